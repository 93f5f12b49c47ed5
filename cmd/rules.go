package cmd

import (
	"fmt"
	"os"

	"meraki-sync/core/rules"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var rulesOut string

// rulesCmd is the parent command for naming and prefix rules.
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Import and export naming and prefix filter rules",
}

var rulesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every rule as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		doc, err := rt.rules.Export(cmd.Context())
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode rules: %w", err)
		}
		if rulesOut == "" || rulesOut == "-" {
			_, err = os.Stdout.Write(out)
			return err
		}
		if err := os.WriteFile(rulesOut, out, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", rulesOut, err)
		}
		fmt.Printf("Exported %d name rule(s) and %d prefix rule(s) to %s\n", len(doc.NameRules), len(doc.PrefixRules), rulesOut)
		return nil
	},
}

var rulesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Upsert rules from a YAML file, matched by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		var doc rules.Document
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("failed to parse %s: %w", args[0], err)
		}

		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		if err := rt.rules.Import(cmd.Context(), doc); err != nil {
			return err
		}
		fmt.Printf("Imported %d name rule(s) and %d prefix rule(s)\n", len(doc.NameRules), len(doc.PrefixRules))
		return nil
	},
}

func init() {
	rulesExportCmd.Flags().StringVarP(&rulesOut, "out", "o", "", "Output file (default: stdout)")
	rulesCmd.AddCommand(rulesExportCmd, rulesImportCmd)
	RootCmd.AddCommand(rulesCmd)
}
