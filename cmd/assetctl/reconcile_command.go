package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/cochranfilms/coursecreatoracademy/internal/app"
	"github.com/cochranfilms/coursecreatoracademy/internal/service"
	"github.com/spf13/cobra"
)

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	var all, dryRun bool

	cmd := &cobra.Command{
		Use:   "reconcile [folder]",
		Short: "Create missing overlay documents for files in the overlay folders",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return errors.New("specify a folder or --all")
			}

			return ctx.withApp(func(a *app.App) error {
				return ctx.withLock(dryRun, func() error {
					summary := &service.ReconcileSummary{DryRun: dryRun}
					var runErr error
					if all {
						summary, runErr = a.ReconcileService.ReconcileAll(cmd.Context(), dryRun)
					} else {
						var result *service.FolderResult
						result, runErr = a.ReconcileService.ReconcileFolder(cmd.Context(), args[0], dryRun)
						if result != nil {
							summary.Folders = append(summary.Folders, result)
						}
					}
					printReconcileSummary(cmd.OutOrStdout(), summary)
					return runErr
				})
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Reconcile every folder under the overlay root")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would change without writing")
	return cmd
}

func printReconcileSummary(w io.Writer, summary *service.ReconcileSummary) {
	if summary == nil || len(summary.Folders) == 0 {
		fmt.Fprintln(w, "No folders reconciled")
		return
	}

	rows := make([][]string, 0, len(summary.Folders))
	for _, f := range summary.Folders {
		rows = append(rows, []string{
			f.Folder,
			orDash(f.AssetTitle),
			f.Resolution,
			strconv.Itoa(f.Groups),
			strconv.Itoa(f.Created),
			strconv.Itoa(f.Skipped),
			strconv.Itoa(f.Backfilled),
		})
	}
	fmt.Fprint(w, renderTable(
		[]string{"Folder", "Asset", "Resolved", "Groups", "Created", "Skipped", "Backfilled"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
	))

	totals := summary.Totals()
	verb := "created"
	if summary.DryRun {
		verb = "would create"
	}
	fmt.Fprintf(w, "%d folders, %d groups: %s %d, skipped %d, backfilled %d\n",
		len(summary.Folders), totals.Groups, verb, totals.Created, totals.Skipped, totals.Backfilled)
}
