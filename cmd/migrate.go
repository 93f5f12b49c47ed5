package cmd

import (
	"fmt"
	"sort"

	"meraki-sync/feature/health/checks"

	"github.com/spf13/cobra"
)

// migrateCmd creates or updates every table and reports the resulting schema.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		report, err := checks.CheckSchema(rt.db.WithContext(cmd.Context()), allModels())
		if err != nil {
			return err
		}

		tables := make([]string, 0, len(report.Tables))
		for name := range report.Tables {
			tables = append(tables, name)
		}
		sort.Strings(tables)
		for _, name := range tables {
			t := report.Tables[name]
			fmt.Printf("  %-32s %s\n", name, t.Status)
			for _, col := range t.MissingColumns {
				fmt.Printf("    missing column: %s\n", col)
			}
		}
		if !report.Matched {
			return fmt.Errorf("schema does not match after migration")
		}
		fmt.Printf("Schema up to date (%d tables)\n", len(tables))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(migrateCmd)
}
