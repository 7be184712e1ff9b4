package service

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/cochranfilms/coursecreatoracademy/internal/assetpath"
	"github.com/cochranfilms/coursecreatoracademy/internal/model"
	"github.com/cochranfilms/coursecreatoracademy/internal/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	legacyKey    = "assets/overlays/Dust/A.mov"
	convertedKey = "assets/overlays/Dust/A.mp4"
)

func legacyOverlay(t *testing.T, h *harness, loc model.Location) (*model.Asset, *model.Overlay) {
	t.Helper()

	asset := h.seedAsset(t, "Dust", "assets/overlays/Dust/Dust.zip")
	h.put(legacyKey)
	overlay := h.seedOverlay(t, loc, asset, legacyKey)
	require.Equal(t, assetpath.FileTypeMOV, overlay.FileType)
	return asset, overlay
}

func assertScratchEmpty(t *testing.T, h *harness) {
	t.Helper()

	entries, err := os.ReadDir(h.transcode.scratchDir)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTranscodeConvertsLegacyOverlay(t *testing.T) {
	h := newHarness(t)
	asset, overlay := legacyOverlay(t, h, model.Flat())

	report, err := h.transcode.TranscodeAsset(context.Background(), asset.ID, TranscodeOptions{})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	res := report.Results[0]
	assert.Equal(t, StatusConverted, res.Status)
	assert.Equal(t, convertedKey, res.TargetKey)
	assert.False(t, res.OriginalDeleted)
	assert.Equal(t, int64(len("data:"+legacyKey)), res.Bytes)

	assert.Equal(t, []string{convertedKey}, h.store.Uploads)
	assert.True(t, h.store.Has(legacyKey))
	assert.Equal(t, 1, h.encoder.CallCount())

	got, err := h.overlayRepo.ByID(asset.ID, overlay.ID)
	require.NoError(t, err)
	assert.Equal(t, convertedKey, got.StoragePath)
	assert.Equal(t, "A.mp4", got.FileName)
	assert.Equal(t, assetpath.FileTypeMP4, got.FileType)
	assert.True(t, got.ConvertedFromMOV)
	assert.Equal(t, 1, h.count(t, asset.ID, convertedKey))
	assert.Equal(t, 0, h.count(t, asset.ID, legacyKey))

	assertScratchEmpty(t, h)
}

func TestTranscodeDeletesOriginal(t *testing.T) {
	h := newHarness(t)
	asset, overlay := legacyOverlay(t, h, model.Flat())

	res := h.transcode.TranscodeOverlay(context.Background(), asset.ID, overlay.ID, TranscodeOptions{DeleteOriginal: true})
	assert.Equal(t, StatusConverted, res.Status)
	assert.True(t, res.OriginalDeleted)
	assert.False(t, h.store.Has(legacyKey))
	assert.True(t, h.store.Has(convertedKey))
}

func TestTranscodeDeleteFailureIsWarning(t *testing.T) {
	h := newHarness(t)
	asset, overlay := legacyOverlay(t, h, model.Flat())
	h.store.FailDelete[legacyKey] = testsupport.ErrInjected

	res := h.transcode.TranscodeOverlay(context.Background(), asset.ID, overlay.ID, TranscodeOptions{DeleteOriginal: true})
	assert.Equal(t, StatusConverted, res.Status)
	assert.False(t, res.OriginalDeleted)
	assert.True(t, h.store.Has(legacyKey))
}

func TestTranscodeUpdatesSubcollectionInPlace(t *testing.T) {
	h := newHarness(t)
	asset, overlay := legacyOverlay(t, h, model.Subcollection(""))

	res := h.transcode.TranscodeOverlay(context.Background(), asset.ID, overlay.ID, TranscodeOptions{})
	require.Equal(t, StatusConverted, res.Status)

	nested, err := h.overlayRepo.InLocation(model.Subcollection(asset.ID))
	require.NoError(t, err)
	require.Len(t, nested, 1)
	assert.Equal(t, convertedKey, nested[0].StoragePath)

	flat, err := h.overlayRepo.InLocation(model.Location{Kind: model.LocationFlat, AssetID: asset.ID})
	require.NoError(t, err)
	assert.Empty(t, flat)
}

func TestTranscodeAlreadyConvertedRepairsWithoutUpload(t *testing.T) {
	h := newHarness(t)
	asset, overlay := legacyOverlay(t, h, model.Flat())
	h.put(convertedKey)

	res := h.transcode.TranscodeOverlay(context.Background(), asset.ID, overlay.ID, TranscodeOptions{DeleteOriginal: true})
	assert.Equal(t, StatusAlreadyConverted, res.Status)
	assert.NoError(t, res.Err)
	assert.Empty(t, h.store.Uploads)
	assert.Empty(t, h.store.Deletes)
	assert.Equal(t, 0, h.encoder.CallCount())

	got, err := h.overlayRepo.ByID(asset.ID, overlay.ID)
	require.NoError(t, err)
	assert.Equal(t, convertedKey, got.StoragePath)
	assert.Equal(t, assetpath.FileTypeMP4, got.FileType)
	assert.True(t, got.ConvertedFromMOV)
}

func TestTranscodeAlreadyConvertedKeepsDuplicateLegacy(t *testing.T) {
	h := newHarness(t)
	asset, legacy := legacyOverlay(t, h, model.Subcollection(""))
	h.put(convertedKey)
	current := h.seedOverlay(t, model.Flat(), asset, convertedKey)

	res := h.transcode.TranscodeOverlay(context.Background(), asset.ID, legacy.ID, TranscodeOptions{})
	assert.Equal(t, StatusAlreadyConverted, res.Status)
	assert.Equal(t, ReasonDuplicateLegacy, res.Reason)

	got, err := h.overlayRepo.ByID(asset.ID, legacy.ID)
	require.NoError(t, err)
	assert.Equal(t, legacyKey, got.StoragePath)
	assert.Equal(t, 1, h.count(t, asset.ID, convertedKey))

	got, err = h.overlayRepo.ByID(asset.ID, current.ID)
	require.NoError(t, err)
	assert.Equal(t, convertedKey, got.StoragePath)
}

func TestTranscodeConvertKeepsDuplicateLegacy(t *testing.T) {
	for name, loc := range map[string]model.Location{
		"subcollection": model.Subcollection(""),
		"flat":          model.Flat(),
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			asset, legacy := legacyOverlay(t, h, loc)
			current := h.seedOverlay(t, model.Flat(), asset, convertedKey)

			res := h.transcode.TranscodeOverlay(context.Background(), asset.ID, legacy.ID, TranscodeOptions{DeleteOriginal: true})
			require.NoError(t, res.Err)
			assert.Equal(t, StatusConverted, res.Status)
			assert.Equal(t, ReasonDuplicateLegacy, res.Reason)
			assert.True(t, h.store.Has(convertedKey))
			assert.True(t, h.store.Has(legacyKey))
			assert.False(t, res.OriginalDeleted)

			got, err := h.overlayRepo.ByID(asset.ID, legacy.ID)
			require.NoError(t, err)
			assert.Equal(t, legacyKey, got.StoragePath)
			assert.Equal(t, assetpath.FileTypeMOV, got.FileType)
			assert.Equal(t, 1, h.count(t, asset.ID, convertedKey))

			got, err = h.overlayRepo.ByID(asset.ID, current.ID)
			require.NoError(t, err)
			assert.Equal(t, convertedKey, got.StoragePath)
		})
	}
}

func TestTranscodeKeyCreatesMissingDocument(t *testing.T) {
	h := newHarness(t)
	asset := h.seedAsset(t, "Dust", "")
	h.put(legacyKey, convertedKey)

	res := h.transcode.TranscodeKey(context.Background(), asset.ID, legacyKey, TranscodeOptions{})
	assert.Equal(t, StatusAlreadyConverted, res.Status)

	got, err := h.overlayRepo.ByStoragePath(asset.ID, convertedKey)
	require.NoError(t, err)
	assert.True(t, got.Location.IsFlat())
	assert.True(t, got.ConvertedFromMOV)
	assert.Equal(t, "Dust", got.AssetTitle)

	res = h.transcode.TranscodeKey(context.Background(), asset.ID, legacyKey, TranscodeOptions{})
	assert.Equal(t, StatusAlreadyConverted, res.Status)
	assert.Equal(t, 1, h.count(t, asset.ID, convertedKey))
}

func TestTranscodeSkipsNonLegacy(t *testing.T) {
	h := newHarness(t)
	asset := h.seedAsset(t, "Dust", "")
	overlay := h.seedOverlay(t, model.Flat(), asset, convertedKey)

	res := h.transcode.TranscodeOverlay(context.Background(), asset.ID, overlay.ID, TranscodeOptions{})
	assert.Equal(t, StatusSkipped, res.Status)
	assert.Equal(t, ReasonNotLegacy, res.Reason)
	assert.Equal(t, 0, h.encoder.CallCount())
}

func TestTranscodeFailures(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T, h *harness)
		reason string
		marker error
	}{
		{
			name:   "missing source",
			setup:  func(t *testing.T, h *harness) { require.NoError(t, h.store.Delete(context.Background(), legacyKey)) },
			reason: ReasonMissingSource,
			marker: ErrNotFound,
		},
		{
			name:   "download failure",
			setup:  func(t *testing.T, h *harness) { h.store.FailDownload[legacyKey] = testsupport.ErrInjected },
			reason: ReasonDownloadFailed,
			marker: ErrStorage,
		},
		{
			name:   "encoder failure",
			setup:  func(t *testing.T, h *harness) { h.encoder.Err = testsupport.ErrInjected },
			reason: ReasonConversion,
			marker: ErrExternalTool,
		},
		{
			name:   "empty output",
			setup:  func(t *testing.T, h *harness) { h.encoder.Empty = true },
			reason: ReasonConversion,
			marker: ErrExternalTool,
		},
		{
			name:   "upload failure",
			setup:  func(t *testing.T, h *harness) { h.store.FailUpload[convertedKey] = testsupport.ErrInjected },
			reason: ReasonUploadFailed,
			marker: ErrStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			asset, overlay := legacyOverlay(t, h, model.Flat())
			tt.setup(t, h)

			res := h.transcode.TranscodeOverlay(context.Background(), asset.ID, overlay.ID, TranscodeOptions{DeleteOriginal: true})
			assert.Equal(t, StatusFailed, res.Status)
			assert.Equal(t, tt.reason, res.Reason)
			assert.ErrorIs(t, res.Err, tt.marker)
			assert.False(t, res.OriginalDeleted)
			assert.False(t, h.store.Has(convertedKey))

			got, err := h.overlayRepo.ByID(asset.ID, overlay.ID)
			require.NoError(t, err)
			assert.Equal(t, legacyKey, got.StoragePath)
			assert.Equal(t, assetpath.FileTypeMOV, got.FileType)

			assertScratchEmpty(t, h)
		})
	}
}

func TestTranscodeMissingAssetAndOverlay(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res := h.transcode.TranscodeOverlay(ctx, "nope", "x", TranscodeOptions{})
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, ReasonMissingAsset, res.Reason)
	assert.ErrorIs(t, res.Err, ErrNotFound)

	asset := h.seedAsset(t, "Dust", "")
	res = h.transcode.TranscodeOverlay(ctx, asset.ID, "x", TranscodeOptions{})
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, ReasonMissingOverlay, res.Reason)

	_, err := h.transcode.TranscodeAsset(ctx, "nope", TranscodeOptions{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTranscodeAllContinuesPastFailures(t *testing.T) {
	h := newHarness(t)
	dust := h.seedAsset(t, "Dust", "")
	grain := h.seedAsset(t, "Grain", "")

	h.put("assets/overlays/Dust/A.mov", "assets/overlays/Grain/G.mov")
	h.seedOverlay(t, model.Flat(), dust, "assets/overlays/Dust/A.mov")
	h.seedOverlay(t, model.Subcollection(""), grain, "assets/overlays/Grain/G.mov")
	h.seedOverlay(t, model.Flat(), dust, "assets/overlays/Dust/Missing.mov")
	h.seedOverlay(t, model.Flat(), &model.Asset{ID: "orphan"}, "assets/overlays/Orphan/O.mov")
	h.seedOverlay(t, model.Flat(), dust, "assets/overlays/Dust/Done.mp4")

	report, err := h.transcode.TranscodeAll(context.Background(), TranscodeOptions{})
	require.NoError(t, err)
	assert.Len(t, report.Results, 4)
	assert.Equal(t, 2, report.Count(StatusConverted))
	assert.Equal(t, 2, report.Count(StatusFailed))

	reasons := map[string]bool{}
	for _, f := range report.Failed() {
		reasons[f.Reason] = true
	}
	assert.True(t, reasons[ReasonMissingSource])
	assert.True(t, reasons[ReasonMissingAsset])

	legacy, err := h.overlayRepo.Legacy("")
	require.NoError(t, err)
	assert.Len(t, legacy, 2)
}

func TestScanStorageConvertsUndocumentedFiles(t *testing.T) {
	h := newHarness(t)
	dust, _ := legacyOverlay(t, h, model.Flat())
	h.put("assets/overlays/Grain/G.mov", "assets/overlays/Grain/H.mp4")

	report, err := h.transcode.ScanStorage(context.Background(), TranscodeOptions{})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	res := report.Results[0]
	assert.Equal(t, StatusConverted, res.Status)
	assert.Equal(t, "assets/overlays/Grain/G.mp4", res.TargetKey)

	mapping, err := h.mappingRepo.ByFolder("Grain")
	require.NoError(t, err)
	got, err := h.overlayRepo.ByStoragePath(mapping.AssetID, "assets/overlays/Grain/G.mp4")
	require.NoError(t, err)
	assert.True(t, got.ConvertedFromMOV)
	assert.True(t, got.Location.IsFlat())

	assert.False(t, h.store.Has(convertedKey))
	assert.Equal(t, 1, h.count(t, dust.ID, legacyKey))
}

func TestTranscodeReport(t *testing.T) {
	report := &TranscodeReport{}
	report.add(TranscodeResult{Status: StatusConverted})
	report.Merge(&TranscodeReport{Results: []TranscodeResult{
		{Status: StatusFailed, Reason: ReasonUploadFailed, Item: TranscodeItem{SourceKey: "a.mov"}},
	}})
	report.Merge(nil)

	assert.Equal(t, 1, report.Count(StatusConverted))
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, "failed a.mov (upload_failed)", report.Failed()[0].String())
}
