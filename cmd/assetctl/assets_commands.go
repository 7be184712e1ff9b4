package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/cochranfilms/coursecreatoracademy/internal/app"
	"github.com/cochranfilms/coursecreatoracademy/internal/assetpath"
	"github.com/cochranfilms/coursecreatoracademy/internal/model"
	"github.com/cochranfilms/coursecreatoracademy/internal/service"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newAssetsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Inspect assets and folder mappings",
	}

	cmd.AddCommand(newAssetsListCommand(ctx))
	cmd.AddCommand(newAssetsMapCommand(ctx))
	cmd.AddCommand(newAssetsMappingsCommand(ctx))
	cmd.AddCommand(newAssetsRecategorizeCommand(ctx))
	return cmd
}

func newAssetsListCommand(ctx *commandContext) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app.App) error {
				assets, err := a.AssetService.Assets(category)
				if err != nil {
					return err
				}
				printAssets(cmd.OutOrStdout(), assets)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only list assets of this category")
	return cmd
}

func printAssets(w io.Writer, assets []*model.Asset) {
	if len(assets) == 0 {
		fmt.Fprintln(w, "No assets")
		return
	}

	rows := make([][]string, 0, len(assets))
	for _, asset := range assets {
		sub := ""
		if asset.SubCategory != nil {
			sub = *asset.SubCategory
		}
		rows = append(rows, []string{
			asset.ID,
			asset.Title,
			asset.Category,
			orDash(sub),
			orDash(asset.StoragePath),
			humanize.Time(asset.CreatedAt),
		})
	}
	fmt.Fprint(w, renderTable(
		[]string{"ID", "Title", "Category", "Subcategory", "Storage Path", "Created"},
		rows,
		nil,
	))
}

func newAssetsMapCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "map <folder> <asset-id>",
		Short: "Pin a storage folder to an asset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app.App) error {
				mapping, err := a.AssetService.Map(args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Mapped %q to asset %s\n", mapping.Folder, mapping.AssetID)
				return nil
			})
		},
	}
}

func newAssetsMappingsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mappings",
		Short: "List folder mappings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app.App) error {
				mappings, err := a.AssetService.Mappings()
				if err != nil {
					return err
				}
				if len(mappings) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No folder mappings")
					return nil
				}
				rows := make([][]string, 0, len(mappings))
				for _, m := range mappings {
					rows = append(rows, []string{m.Folder, m.AssetID, m.Source, humanize.Time(m.UpdatedAt)})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Folder", "Asset", "Source", "Updated"}, rows, nil))
				return nil
			})
		},
	}
}

func newAssetsRecategorizeCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "recategorize <asset-id> <subcategory>",
		Short: "Move an asset's files to another category folder",
		Long:  "Subcategory is one of: " + strings.Join(assetpath.SubCategoryLabels(), ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app.App) error {
				return ctx.withLock(dryRun, func() error {
					result, err := a.CategoryService.Recategorize(cmd.Context(), args[0], args[1], dryRun)
					if err != nil {
						return err
					}
					printRecategorize(cmd.OutOrStdout(), result, dryRun)
					return nil
				})
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would move without writing")
	return cmd
}

func printRecategorize(w io.Writer, result *service.RecategorizeResult, dryRun bool) {
	prefix := ""
	if dryRun {
		prefix = "dry run: "
	}
	fmt.Fprintf(w, "%s%s -> %s (%s)\n", prefix, result.From, result.To, result.SubCategory)
	fmt.Fprintf(w, "objects %d, overlays %d", result.Objects, result.Overlays)
	if result.DeleteFailures > 0 {
		fmt.Fprintf(w, ", %d old objects left behind", result.DeleteFailures)
	}
	fmt.Fprintln(w)
}
