package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var exportDryRun bool

var exportCmd = &cobra.Command{
	Use:   "export <database>",
	Short: "Export a database's schema objects to the repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbName := args[0]

		s, logger, err := newSyncer()
		if err != nil {
			return err
		}
		defer logger.Sync()

		summary, err := s.SyncDBToRepo(context.Background(), dbName, exportDryRun)
		if err != nil {
			return err
		}

		if summary.DryRun {
			fmt.Printf("[DRY RUN] %s: %s\n", summary.Database, summary.Message)
			printPlan(summary)
			return nil
		}

		fmt.Printf("%s: %s\n", summary.Database, summary.Message)
		if summary.CommitID != "" {
			fmt.Printf("Commit: %s\n", summary.CommitID)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(exportCmd)

	exportCmd.Flags().BoolVar(&exportDryRun, "dry-run", false, "Compute and print the plan without committing")
}
