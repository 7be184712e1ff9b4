package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/cochranfilms/coursecreatoracademy/internal/app"
	"github.com/cochranfilms/coursecreatoracademy/internal/model"
	"github.com/spf13/cobra"
)

func newOverlaysCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overlays",
		Short: "Inspect and consolidate overlay documents",
	}

	cmd.AddCommand(newOverlaysListCommand(ctx))
	cmd.AddCommand(newOverlaysConsolidateCommand(ctx))
	return cmd
}

func newOverlaysListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <asset-id>",
		Short: "List an asset's overlays from both locations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app.App) error {
				overlays, err := a.OverlayService.List(args[0])
				if err != nil {
					return err
				}
				printOverlays(cmd.OutOrStdout(), overlays)
				return nil
			})
		},
	}
}

func printOverlays(w io.Writer, overlays []*model.Overlay) {
	if len(overlays) == 0 {
		fmt.Fprintln(w, "No overlays")
		return
	}

	rows := make([][]string, 0, len(overlays))
	for _, o := range overlays {
		preview := ""
		if o.PreviewStoragePath != nil {
			preview = *o.PreviewStoragePath
		}
		rows = append(rows, []string{
			o.ID,
			o.Location.String(),
			o.StoragePath,
			o.FileType,
			orDash(preview),
			yesNo(o.ConvertedFromMOV),
		})
	}
	fmt.Fprint(w, renderTable(
		[]string{"ID", "Location", "Storage Path", "Type", "Preview", "Converted"},
		rows,
		nil,
	))
}

func newOverlaysConsolidateCommand(ctx *commandContext) *cobra.Command {
	var all, dryRun bool

	cmd := &cobra.Command{
		Use:   "consolidate [asset-id]",
		Short: "Move subcollection overlays into the flat collection",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return errors.New("specify an asset id or --all")
			}
			assetID := ""
			if len(args) == 1 {
				assetID = args[0]
			}

			return ctx.withApp(func(a *app.App) error {
				return ctx.withLock(dryRun, func() error {
					result, err := a.OverlayService.Consolidate(assetID, dryRun)
					if result != nil {
						verb := "moved"
						if dryRun {
							verb = "would move"
						}
						fmt.Fprintf(cmd.OutOrStdout(), "%d assets: %s %d, duplicates %d, previews merged %d\n",
							result.Assets, verb, result.Moved, result.Duplicates, result.PreviewsMerged)
					}
					return err
				})
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Consolidate every asset")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would move without writing")
	return cmd
}
