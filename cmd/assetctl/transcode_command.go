package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/cochranfilms/coursecreatoracademy/internal/app"
	"github.com/cochranfilms/coursecreatoracademy/internal/service"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type transcodeFlags struct {
	assetID        string
	overlayID      string
	key            string
	all            bool
	scanStorage    bool
	deleteOriginal bool
}

func (f transcodeFlags) validate() error {
	switch {
	case f.overlayID != "" && f.key != "":
		return errors.New("--overlay and --key are mutually exclusive")
	case (f.overlayID != "" || f.key != "") && f.assetID == "":
		return errors.New("--overlay and --key require --asset")
	case f.assetID != "" && (f.all || f.scanStorage):
		return errors.New("--asset cannot be combined with --all or --scan-storage")
	case f.assetID == "" && !f.all && !f.scanStorage:
		return errors.New("specify --asset, --all or --scan-storage")
	}
	return nil
}

func newTranscodeCommand(ctx *commandContext) *cobra.Command {
	var flags transcodeFlags

	cmd := &cobra.Command{
		Use:   "transcode",
		Short: "Convert legacy .mov overlays to web .mp4",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.validate(); err != nil {
				return err
			}

			return ctx.withApp(func(a *app.App) error {
				transcoder, err := a.TranscodeService()
				if err != nil {
					return err
				}

				return ctx.withLock(false, func() error {
					report, err := runTranscode(cmd, transcoder, flags)
					printTranscodeReport(cmd.OutOrStdout(), report)
					if err != nil {
						return err
					}
					if failed := len(report.Failed()); failed > 0 {
						return fmt.Errorf("%d item(s) failed", failed)
					}
					return nil
				})
			})
		},
	}

	cmd.Flags().StringVar(&flags.assetID, "asset", "", "Asset id to convert")
	cmd.Flags().StringVar(&flags.overlayID, "overlay", "", "Overlay id to convert (requires --asset)")
	cmd.Flags().StringVar(&flags.key, "key", "", "Storage key to convert directly (requires --asset)")
	cmd.Flags().BoolVar(&flags.all, "all", false, "Convert every legacy overlay")
	cmd.Flags().BoolVar(&flags.scanStorage, "scan-storage", false, "Also convert legacy files that have no document")
	cmd.Flags().BoolVar(&flags.deleteOriginal, "delete-original", false, "Delete the .mov after a successful conversion")
	return cmd
}

func runTranscode(cmd *cobra.Command, transcoder *service.TranscodeService, flags transcodeFlags) (*service.TranscodeReport, error) {
	ctx := cmd.Context()
	opts := service.TranscodeOptions{DeleteOriginal: flags.deleteOriginal}
	report := &service.TranscodeReport{}

	switch {
	case flags.overlayID != "":
		report.Results = append(report.Results, transcoder.TranscodeOverlay(ctx, flags.assetID, flags.overlayID, opts))
		return report, nil
	case flags.key != "":
		report.Results = append(report.Results, transcoder.TranscodeKey(ctx, flags.assetID, flags.key, opts))
		return report, nil
	case flags.assetID != "":
		r, err := transcoder.TranscodeAsset(ctx, flags.assetID, opts)
		report.Merge(r)
		return report, err
	}

	if flags.all {
		r, err := transcoder.TranscodeAll(ctx, opts)
		report.Merge(r)
		if err != nil {
			return report, err
		}
	}
	if flags.scanStorage {
		r, err := transcoder.ScanStorage(ctx, opts)
		report.Merge(r)
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

func printTranscodeReport(w io.Writer, report *service.TranscodeReport) {
	if report == nil || len(report.Results) == 0 {
		fmt.Fprintln(w, "Nothing to convert")
		return
	}

	rows := make([][]string, 0, len(report.Results))
	for _, res := range report.Results {
		size := "-"
		if res.Bytes > 0 {
			size = humanize.Bytes(uint64(res.Bytes))
		}
		rows = append(rows, []string{
			string(res.Status),
			orDash(res.Item.SourceKey),
			orDash(res.TargetKey),
			size,
			yesNo(res.OriginalDeleted),
			orDash(res.Reason),
		})
	}
	fmt.Fprint(w, renderTable(
		[]string{"Status", "Source", "Target", "Size", "Deleted", "Reason"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))
	fmt.Fprintf(w, "%d items: converted %d, already converted %d, skipped %d, failed %d\n",
		len(report.Results),
		report.Count(service.StatusConverted),
		report.Count(service.StatusAlreadyConverted),
		report.Count(service.StatusSkipped),
		report.Count(service.StatusFailed),
	)
	for _, res := range report.Failed() {
		fmt.Fprintf(w, "  %s: %v\n", res, res.Err)
	}
}
