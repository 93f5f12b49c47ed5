package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"meraki-sync/core/ledger"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var (
	reviewStatus string
	reviewLimit  int
	reviewYes    bool
)

// reviewCmd is the parent command for review session operations.
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Inspect and decide staged review sessions",
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List review sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		sessions, err := rt.ledger.ListSessions(cmd.Context(), ledger.SessionStatus(reviewStatus), reviewLimit)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No review sessions.")
			return nil
		}
		for _, s := range sessions {
			fmt.Printf("#%-5d run #%-5d %-19s total=%d approved=%d rejected=%d applied=%d failed=%d\n",
				s.ID, s.RunID, s.Status, s.ItemsTotal, s.ItemsApproved, s.ItemsRejected, s.ItemsApplied, s.ItemsFailed)
		}
		return nil
	},
}

var reviewShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show the staged changes of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		s, err := rt.ledger.GetSession(cmd.Context(), id, true)
		if err != nil {
			return err
		}
		if jsonOutput {
			out, err := json.MarshalIndent(s, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}
		fmt.Printf("Session #%d (run #%d) %s\n", s.ID, s.RunID, s.Status)
		for _, c := range s.Items {
			fmt.Printf("  [%5d] %-8s %-11s %-6s %s\n", c.ID, c.Status, c.ItemType, c.Action, c.PreviewDisplay)
			if c.ErrorMessage != "" {
				fmt.Printf("          error: %s\n", c.ErrorMessage)
			}
		}
		return nil
	},
}

var reviewApproveCmd = &cobra.Command{
	Use:   "approve <session-id> [item-id...]",
	Short: "Approve items, or every pending item when none are given",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decide(cmd.Context(), args, true)
	},
}

var reviewRejectCmd = &cobra.Command{
	Use:   "reject <session-id> [item-id...]",
	Short: "Reject items, or every pending item when none are given",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decide(cmd.Context(), args, false)
	},
}

var reviewApplyCmd = &cobra.Command{
	Use:   "apply <session-id>",
	Short: "Apply the approved items of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		s, err := rt.ledger.GetSession(cmd.Context(), id, false)
		if err != nil {
			return err
		}
		if !reviewYes && !confirm(fmt.Sprintf("Apply %d approved change(s) of session #%d?", s.ItemsApproved, id)) {
			fmt.Println("Aborted.")
			return nil
		}

		s, err = rt.engine.ApplyReview(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Printf("Session #%d %s: %d applied, %d failed, %d rejected\n",
			s.ID, s.Status, s.ItemsApplied, s.ItemsFailed, s.ItemsRejected)
		return nil
	},
}

func init() {
	reviewListCmd.Flags().StringVar(&reviewStatus, "status", "", "Only list sessions with this status")
	reviewListCmd.Flags().IntVar(&reviewLimit, "limit", 20, "Maximum number of sessions")
	reviewShowCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the session as JSON")
	reviewApplyCmd.Flags().BoolVar(&reviewYes, "yes", false, "Auto-confirm (non-interactive)")

	reviewCmd.AddCommand(reviewListCmd, reviewShowCmd, reviewApproveCmd, reviewRejectCmd, reviewApplyCmd)
	RootCmd.AddCommand(reviewCmd)
}

func decide(ctx context.Context, args []string, approve bool) error {
	sessionID, err := parseID(args[0])
	if err != nil {
		return err
	}
	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	if len(args) == 1 {
		var s *ledger.ReviewSession
		if approve {
			s, err = rt.ledger.ApproveAll(ctx, sessionID)
		} else {
			s, err = rt.ledger.RejectAll(ctx, sessionID)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Session #%d %s: %d approved, %d rejected\n", s.ID, s.Status, s.ItemsApproved, s.ItemsRejected)
		return nil
	}

	for _, arg := range args[1:] {
		itemID, err := parseID(arg)
		if err != nil {
			return err
		}
		var c *ledger.StagedChange
		if approve {
			c, err = rt.ledger.Approve(ctx, sessionID, itemID)
		} else {
			c, err = rt.ledger.Reject(ctx, sessionID, itemID)
		}
		if err != nil {
			return fmt.Errorf("item %d: %w", itemID, err)
		}
		fmt.Printf("Item #%d %s\n", c.ID, c.Status)
	}
	return nil
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(id), nil
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
