package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"meraki-sync/core/ledger"
	"meraki-sync/core/reconcile"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const maxPrintedErrors = 10

var (
	syncMode     string
	syncOrg      string
	syncNetworks []string
	syncNoClean  bool
	jsonOutput   bool
)

// syncCmd runs one sync in the foreground.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a sync from the Meraki Dashboard",
	Long: `Runs one sync in the foreground and prints its summary.

Examples:
  # Sync everything the API key can see and apply directly
  sync

  # Stage changes of one organization for review
  sync --mode review --org 123456

  # Report what would change in two networks
  sync --mode dry_run --org 123456 --network N_1 --network N_2`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncMode, "mode", string(ledger.ModeAuto), "Run mode (auto, review, dry_run)")
	syncCmd.Flags().StringVar(&syncOrg, "org", "", "Organization ID (default: all organizations)")
	syncCmd.Flags().StringSliceVar(&syncNetworks, "network", nil, "Network ID to sync; repeatable, requires --org")
	syncCmd.Flags().BoolVar(&syncNoClean, "no-cleanup", false, "Skip deletion of orphaned objects")
	syncCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run record as JSON")
	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	mode := ledger.Mode(syncMode)
	if !mode.Valid() {
		return fmt.Errorf("invalid mode %q", syncMode)
	}
	if len(syncNetworks) > 0 && syncOrg == "" {
		return fmt.Errorf("--network requires --org")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	comp := reconcile.AllComponents()
	comp.CleanupOrphaned = !syncNoClean
	req := reconcile.Request{
		Mode:       mode,
		Scope:      reconcile.Scope{OrganizationID: syncOrg, NetworkIDs: syncNetworks},
		Components: &comp,
	}

	rt.logger.Info("Starting sync",
		zap.String("mode", string(mode)),
		zap.String("organization_id", syncOrg),
		zap.Strings("network_ids", syncNetworks),
	)
	run, err := rt.engine.Run(ctx, req)
	if err != nil {
		return err
	}

	if jsonOutput {
		out, err := json.MarshalIndent(run, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	} else {
		printRun(rt, run)
	}

	if run.Status == ledger.RunFailed {
		return fmt.Errorf("run %d failed: %s", run.ID, run.Message)
	}
	return nil
}

func printRun(rt *runtime, run *ledger.RunRecord) {
	fmt.Printf("Run #%d [%s] %s in %.1fs\n", run.ID, run.Mode, run.Status, run.DurationSeconds)
	if run.Message != "" {
		fmt.Printf("  %s\n", run.Message)
	}
	fmt.Printf("  Organizations: %d  Networks: %d  Devices: %d\n", run.OrganizationsSynced, run.NetworksSynced, run.DevicesSynced)
	fmt.Printf("  VLANs: %d  Prefixes: %d (%d updated)  SSIDs: %d\n", run.VLANsSynced, run.PrefixesSynced, run.UpdatedPrefixes, run.SSIDsSynced)
	if n := run.DeletedSites + run.DeletedDevices + run.DeletedVLANs + run.DeletedPrefixes; n > 0 {
		fmt.Printf("  Deleted: %d site(s), %d device(s), %d VLAN(s), %d prefix(es)\n",
			run.DeletedSites, run.DeletedDevices, run.DeletedVLANs, run.DeletedPrefixes)
	}

	if run.Status == ledger.RunPendingReview || run.Status == ledger.RunDryRun {
		if s, err := rt.ledger.SessionForRun(context.Background(), run.ID); err == nil {
			fmt.Printf("  Review session #%d: %d staged change(s)\n", s.ID, s.ItemsTotal)
		}
	}

	if len(run.Errors) > 0 {
		fmt.Printf("  Errors (%d):\n", len(run.Errors))
		for i, e := range run.Errors {
			if i == maxPrintedErrors {
				fmt.Printf("    ... and %d more\n", len(run.Errors)-maxPrintedErrors)
				break
			}
			fmt.Printf("    - %s\n", e)
		}
	}
}
