package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"

	"db-sync/internal/reconcile"
	"db-sync/internal/syncer"
)

var applyDryRun bool

var applyCmd = &cobra.Command{
	Use:   "apply <database>",
	Short: "Apply the repository's recorded objects to a database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbName := args[0]

		s, logger, err := newSyncer()
		if err != nil {
			return err
		}
		defer logger.Sync()

		var onProgress func()
		if !applyDryRun {
			uiprogress.Start()
			bar := uiprogress.AddBar(100).AppendCompleted().PrependElapsed()
			bar.PrependFunc(func(b *uiprogress.Bar) string {
				return "Applying: "
			})
			onProgress = func() { bar.Incr() }
			defer uiprogress.Stop()
		}

		summary, err := s.SyncRepoToDB(context.Background(), dbName, applyDryRun, onProgress)
		if err != nil {
			var oerr *syncer.OutOfSyncError
			if errors.As(err, &oerr) {
				fmt.Printf("Database %s has drifted from the repository; refusing to overwrite:\n", oerr.Database)
				for _, id := range oerr.Conflicts {
					fmt.Printf("  ! %s\n", id)
				}
				fmt.Println("Export the database (or restore the objects) and re-run.")
			}
			return err
		}

		if summary.DryRun {
			fmt.Printf("[DRY RUN] %s: %s\n", summary.Database, summary.Message)
			printPlan(summary)
			return nil
		}

		fmt.Printf("\n%s: %s\n", summary.Database, summary.Message)
		for i, o := range summary.Outcomes {
			icon := "✓"
			if !o.Applied {
				icon = "!"
			}
			fmt.Printf("[%s] [%02d/%02d] %s\n", icon, i+1, len(summary.Outcomes), o.Identity)
			if o.Err != "" {
				fmt.Printf("    └ Error: %s\n", o.Err)
			}
		}
		return nil
	},
}

// printPlan renders plan entries for dry runs.
func printPlan(summary *syncer.Summary) {
	if summary.Plan == nil || len(summary.Plan.Entries) == 0 {
		fmt.Println("Nothing to do.")
		return
	}
	for _, e := range summary.Plan.Entries {
		if e.Action == reconcile.ActionNone && e.Status == reconcile.InSync {
			continue
		}
		fmt.Printf("  %-15s %-12s %s\n", e.Status, e.Action, e.Identity)
	}
}

func init() {
	RootCmd.AddCommand(applyCmd)

	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Compute and print the plan without touching the database")
}
