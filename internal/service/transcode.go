package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cochranfilms/coursecreatoracademy/internal/assetpath"
	"github.com/cochranfilms/coursecreatoracademy/internal/model"
	"github.com/cochranfilms/coursecreatoracademy/internal/repository"
	"github.com/cochranfilms/coursecreatoracademy/internal/storage"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

type TranscodeStatus string

const (
	StatusConverted        TranscodeStatus = "converted"
	StatusAlreadyConverted TranscodeStatus = "already_converted"
	StatusSkipped          TranscodeStatus = "skipped"
	StatusFailed           TranscodeStatus = "failed"
)

// Reason codes attached to skipped and failed items.
const (
	ReasonNotLegacy       = "not_legacy"
	ReasonMissingAsset    = "missing_asset"
	ReasonMissingOverlay  = "missing_overlay"
	ReasonMissingSource   = "missing_source"
	ReasonLookupFailed    = "lookup_failed"
	ReasonScratchFailed   = "scratch_failed"
	ReasonDownloadFailed  = "download_failed"
	ReasonConversion      = "conversion_failed"
	ReasonUploadFailed    = "upload_failed"
	ReasonFinalizeFailed  = "finalize_failed"
	ReasonRepairFailed    = "metadata_repair_failed"
	ReasonDuplicateLegacy = "duplicate_legacy_document"
)

// Encoder converts a local source file into a web mp4 at dst.
type Encoder interface {
	Encode(ctx context.Context, src, dst string) error
}

// TranscodeItem identifies one legacy file. OverlayID is empty when the
// item came from a direct key or a storage scan.
type TranscodeItem struct {
	AssetID    string
	AssetTitle string
	OverlayID  string
	SourceKey  string
	FileType   string
}

type TranscodeResult struct {
	Item            TranscodeItem
	TargetKey       string
	Status          TranscodeStatus
	Reason          string
	Err             error
	Bytes           int64
	OriginalDeleted bool
}

type TranscodeOptions struct {
	DeleteOriginal bool
}

// TranscodeReport accumulates batch results; failures do not stop a batch.
type TranscodeReport struct {
	Results []TranscodeResult
}

func (r *TranscodeReport) add(res TranscodeResult) {
	r.Results = append(r.Results, res)
}

func (r *TranscodeReport) Merge(other *TranscodeReport) {
	if other != nil {
		r.Results = append(r.Results, other.Results...)
	}
}

func (r *TranscodeReport) Count(status TranscodeStatus) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

func (r *TranscodeReport) Failed() []TranscodeResult {
	var failed []TranscodeResult
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			failed = append(failed, res)
		}
	}
	return failed
}

type TranscodeService struct {
	assets      *AssetService
	assetRepo   repository.AssetRepository
	overlayRepo repository.OverlayRepository
	storage     storage.Storage
	encoder     Encoder
	scratchDir  string
	category    string
}

func NewTranscodeService(
	assets *AssetService,
	assetRepo repository.AssetRepository,
	overlayRepo repository.OverlayRepository,
	storage storage.Storage,
	encoder Encoder,
	scratchDir string,
	category string,
) *TranscodeService {
	return &TranscodeService{
		assets:      assets,
		assetRepo:   assetRepo,
		overlayRepo: overlayRepo,
		storage:     storage,
		encoder:     encoder,
		scratchDir:  scratchDir,
		category:    category,
	}
}

// TranscodeOverlay converts one overlay of one asset.
func (s *TranscodeService) TranscodeOverlay(ctx context.Context, assetID, overlayID string, opts TranscodeOptions) TranscodeResult {
	asset, res, ok := s.requireAsset(assetID)
	if !ok {
		res.Item.OverlayID = overlayID
		return res
	}

	overlay, err := s.overlayRepo.ByID(asset.ID, overlayID)
	if err != nil {
		item := TranscodeItem{AssetID: asset.ID, AssetTitle: asset.Title, OverlayID: overlayID}
		if errors.Is(err, repository.ErrOverlayNotFound) {
			return failed(item, ReasonMissingOverlay, Wrap(ErrNotFound, "transcode", "find overlay", overlayID, err))
		}
		return failed(item, ReasonLookupFailed, Wrap(ErrDocumentStore, "transcode", "find overlay", overlayID, err))
	}

	return s.Transcode(ctx, itemFor(asset, overlay), opts)
}

// TranscodeAsset converts every legacy overlay of one asset.
func (s *TranscodeService) TranscodeAsset(ctx context.Context, assetID string, opts TranscodeOptions) (*TranscodeReport, error) {
	asset, err := s.assets.Asset(assetID)
	if err != nil {
		return nil, err
	}

	overlays, err := s.overlayRepo.Legacy(asset.ID)
	if err != nil {
		return nil, Wrap(ErrDocumentStore, "transcode", "list legacy overlays", asset.ID, err)
	}

	report := &TranscodeReport{}
	for _, overlay := range overlays {
		report.add(s.Transcode(ctx, itemFor(asset, overlay), opts))
	}
	return report, nil
}

// TranscodeAll converts every legacy overlay of every asset.
func (s *TranscodeService) TranscodeAll(ctx context.Context, opts TranscodeOptions) (*TranscodeReport, error) {
	overlays, err := s.overlayRepo.Legacy("")
	if err != nil {
		return nil, Wrap(ErrDocumentStore, "transcode", "list legacy overlays", "", err)
	}

	report := &TranscodeReport{}
	assets := make(map[string]*model.Asset)
	for _, overlay := range overlays {
		asset, ok := assets[overlay.AssetID]
		if !ok {
			var res TranscodeResult
			asset, res, ok = s.requireAsset(overlay.AssetID)
			if !ok {
				res.Item.OverlayID = overlay.ID
				res.Item.SourceKey = overlay.StoragePath
				report.add(res)
				continue
			}
			assets[overlay.AssetID] = asset
		}
		report.add(s.Transcode(ctx, itemFor(asset, overlay), opts))
	}
	return report, nil
}

// TranscodeKey converts a storage key directly, for files that may have
// no document yet.
func (s *TranscodeService) TranscodeKey(ctx context.Context, assetID, key string, opts TranscodeOptions) TranscodeResult {
	asset, res, ok := s.requireAsset(assetID)
	if !ok {
		res.Item.SourceKey = key
		return res
	}
	return s.Transcode(ctx, TranscodeItem{
		AssetID:    asset.ID,
		AssetTitle: asset.Title,
		SourceKey:  key,
		FileType:   assetpath.FileType(key),
	}, opts)
}

// ScanStorage finds legacy files under the overlay root that have no
// document in either location, for the legacy key or its converted
// sibling, and converts them. Folders resolve to assets the same way the
// reconciler resolves them.
func (s *TranscodeService) ScanStorage(ctx context.Context, opts TranscodeOptions) (*TranscodeReport, error) {
	objects, err := s.storage.List(ctx, assetpath.Root+"/")
	if err != nil {
		return nil, Wrap(ErrStorage, "transcode", "scan storage", assetpath.Root, err)
	}

	report := &TranscodeReport{}
	for _, obj := range objects {
		if !assetpath.IsLegacy(obj.Key) {
			continue
		}
		folder, ok := assetpath.FolderName(obj.Key)
		if !ok {
			continue
		}

		resolution, err := s.assets.Resolve(folder, s.category, false)
		if err != nil {
			report.add(failed(TranscodeItem{SourceKey: obj.Key, FileType: assetpath.FileType(obj.Key)}, ReasonLookupFailed, err))
			continue
		}
		asset := resolution.Asset

		documented, err := s.documented(asset.ID, obj.Key)
		if err != nil {
			report.add(failed(TranscodeItem{AssetID: asset.ID, SourceKey: obj.Key}, ReasonLookupFailed, err))
			continue
		}
		if documented {
			continue
		}

		slog.Info("found undocumented legacy file", "key", obj.Key, "size", humanize.Bytes(uint64(obj.Size)), "asset_id", asset.ID)
		report.add(s.Transcode(ctx, TranscodeItem{
			AssetID:    asset.ID,
			AssetTitle: asset.Title,
			SourceKey:  obj.Key,
			FileType:   assetpath.FileType(obj.Key),
		}, opts))
	}
	return report, nil
}

func (s *TranscodeService) documented(assetID, key string) (bool, error) {
	for _, k := range []string{key, assetpath.ConvertedKey(key)} {
		_, err := s.overlayRepo.ByStoragePath(assetID, k)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, repository.ErrOverlayNotFound) {
			return false, Wrap(ErrDocumentStore, "transcode", "find overlay", k, err)
		}
	}
	return false, nil
}

// Transcode runs one item through the conversion state machine:
// not applicable, already converted (document repair only), or
// convert, upload, finalize, and optionally delete the original.
// Scratch files are removed on every path.
func (s *TranscodeService) Transcode(ctx context.Context, item TranscodeItem, opts TranscodeOptions) TranscodeResult {
	res := TranscodeResult{Item: item}
	log := slog.With("asset_id", item.AssetID, "overlay_id", item.OverlayID, "key", item.SourceKey)

	if item.FileType != assetpath.FileTypeMOV && !assetpath.IsLegacy(item.SourceKey) {
		res.Status = StatusSkipped
		res.Reason = ReasonNotLegacy
		log.Debug("skipping, not a legacy container")
		return res
	}

	target := assetpath.ConvertedKey(item.SourceKey)
	res.TargetKey = target

	exists, err := s.storage.Exists(ctx, target)
	if err != nil {
		return failed(item, ReasonLookupFailed, Wrap(ErrStorage, "transcode", "check target", target, err))
	}
	if exists {
		res.Status = StatusAlreadyConverted
		if reason, err := s.repairConverted(item, target); err != nil {
			res.Reason = reason
			res.Err = err
			log.Warn("already converted, metadata repair failed", "target", target, "error", err)
		} else if reason != "" {
			res.Reason = reason
		}
		log.Info("already converted", "target", target)
		return res
	}

	n, reason, err := s.convert(ctx, item, target)
	res.Bytes = n
	if err != nil {
		out := failed(item, reason, err)
		out.TargetKey = target
		log.Error("conversion failed", "reason", reason, "error", err)
		return out
	}

	reason, err = s.finalize(item, target)
	if err != nil {
		out := failed(item, ReasonFinalizeFailed, err)
		out.TargetKey = target
		log.Error("finalize failed", "target", target, "error", err)
		return out
	}

	res.Status = StatusConverted
	res.Reason = reason
	log.Info("converted", "target", target, "source_size", humanize.Bytes(uint64(n)))

	// A duplicate legacy document still points at the original.
	if opts.DeleteOriginal && target != item.SourceKey && reason == "" {
		if err := s.storage.Delete(ctx, item.SourceKey); err != nil {
			log.Warn("failed to delete original", "error", err)
		} else {
			res.OriginalDeleted = true
			log.Info("deleted original")
		}
	}
	return res
}

// convert downloads, encodes and uploads. It returns the source size and,
// on failure, a reason code. No documents are written here.
func (s *TranscodeService) convert(ctx context.Context, item TranscodeItem, target string) (int64, string, error) {
	if err := os.MkdirAll(s.scratchDir, 0o755); err != nil {
		return 0, ReasonScratchFailed, Wrap(ErrExternalTool, "transcode", "create scratch dir", s.scratchDir, err)
	}
	dir, err := os.MkdirTemp(s.scratchDir, "transcode-*")
	if err != nil {
		return 0, ReasonScratchFailed, Wrap(ErrExternalTool, "transcode", "create scratch dir", s.scratchDir, err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("failed to remove scratch dir", "dir", dir, "error", err)
		}
	}()

	srcPath := filepath.Join(dir, "source"+assetpath.Ext(item.SourceKey))
	outPath := filepath.Join(dir, "output"+assetpath.WebExt)

	n, err := s.download(ctx, item.SourceKey, srcPath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return n, ReasonMissingSource, Wrap(ErrNotFound, "transcode", "download", item.SourceKey, err)
		}
		return n, ReasonDownloadFailed, Wrap(ErrStorage, "transcode", "download", item.SourceKey, err)
	}

	if err := s.encoder.Encode(ctx, srcPath, outPath); err != nil {
		return n, ReasonConversion, Wrap(ErrExternalTool, "transcode", "encode", item.SourceKey, err)
	}
	info, err := os.Stat(outPath)
	if err != nil || info.Size() == 0 {
		return n, ReasonConversion, Wrap(ErrExternalTool, "transcode", "encode", "encoder produced no output", err)
	}

	out, err := os.Open(outPath)
	if err != nil {
		return n, ReasonUploadFailed, Wrap(ErrExternalTool, "transcode", "open output", outPath, err)
	}
	defer out.Close()

	if err := s.storage.Upload(ctx, target, out, "video/mp4"); err != nil {
		return n, ReasonUploadFailed, Wrap(ErrStorage, "transcode", "upload", target, err)
	}
	return n, "", nil
}

func (s *TranscodeService) download(ctx context.Context, key, dst string) (int64, error) {
	f, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	n, err := s.storage.Download(ctx, key, f)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	return n, err
}

// locate finds the document for item: by id when one was given, otherwise
// by the legacy key, otherwise by the converted key. Both locations are
// searched each time.
func (s *TranscodeService) locate(item TranscodeItem, target string) (*model.Overlay, error) {
	if item.OverlayID != "" {
		overlay, err := s.overlayRepo.ByID(item.AssetID, item.OverlayID)
		if err == nil || !errors.Is(err, repository.ErrOverlayNotFound) {
			return overlay, err
		}
	}
	for _, key := range []string{item.SourceKey, target} {
		overlay, err := s.overlayRepo.ByStoragePath(item.AssetID, key)
		if err == nil || !errors.Is(err, repository.ErrOverlayNotFound) {
			return overlay, err
		}
	}
	return nil, nil
}

// finalize points the item's document at target, or creates one in the
// flat collection when none exists. When another document already points at
// target the item's document is left alone and ReasonDuplicateLegacy is
// returned.
func (s *TranscodeService) finalize(item TranscodeItem, target string) (string, error) {
	overlay, err := s.locate(item, target)
	if err != nil {
		return "", Wrap(ErrDocumentStore, "transcode", "find overlay", target, err)
	}

	if overlay != nil {
		current, err := s.overlayRepo.ByStoragePath(item.AssetID, target)
		if err != nil && !errors.Is(err, repository.ErrOverlayNotFound) {
			return "", Wrap(ErrDocumentStore, "transcode", "find overlay", target, err)
		}
		if current != nil && current.ID != overlay.ID {
			slog.Warn("legacy document left in place, another document already points at target",
				"legacy_id", overlay.ID, "current_id", current.ID, "target", target)
			return ReasonDuplicateLegacy, nil
		}

		pointAt(overlay, target)
		if err := s.overlayRepo.Update(overlay); err != nil {
			return "", Wrap(ErrDocumentStore, "transcode", "update overlay", overlay.ID, err)
		}
		return "", nil
	}

	created := convertedOverlay(item, target)
	if err := s.overlayRepo.Create(model.Flat(), created); err != nil {
		return "", Wrap(ErrDocumentStore, "transcode", "create overlay", target, err)
	}
	slog.Info("created overlay for converted file", "overlay_id", created.ID, "target", target)
	return "", nil
}

// repairConverted fixes documents when the converted object already
// exists. A document still on the legacy key or type is repointed, unless
// another document already points at target. A document is created only
// when none exists for either key.
func (s *TranscodeService) repairConverted(item TranscodeItem, target string) (string, error) {
	var legacy *model.Overlay
	var err error
	if item.OverlayID != "" {
		legacy, err = s.overlayRepo.ByID(item.AssetID, item.OverlayID)
	} else {
		legacy, err = s.overlayRepo.ByStoragePath(item.AssetID, item.SourceKey)
	}
	if err != nil && !errors.Is(err, repository.ErrOverlayNotFound) {
		return ReasonRepairFailed, Wrap(ErrDocumentStore, "transcode", "find overlay", item.SourceKey, err)
	}
	if errors.Is(err, repository.ErrOverlayNotFound) {
		legacy = nil
	}

	current, err := s.overlayRepo.ByStoragePath(item.AssetID, target)
	if err != nil && !errors.Is(err, repository.ErrOverlayNotFound) {
		return ReasonRepairFailed, Wrap(ErrDocumentStore, "transcode", "find overlay", target, err)
	}
	if errors.Is(err, repository.ErrOverlayNotFound) {
		current = nil
	}

	needsRepair := legacy != nil && (legacy.StoragePath != target || legacy.FileType == assetpath.FileTypeMOV)
	switch {
	case needsRepair && current != nil && current.ID != legacy.ID:
		slog.Warn("legacy document left in place, another document already points at target",
			"legacy_id", legacy.ID, "current_id", current.ID, "target", target)
		return ReasonDuplicateLegacy, nil
	case needsRepair:
		pointAt(legacy, target)
		if err := s.overlayRepo.Update(legacy); err != nil {
			return ReasonRepairFailed, Wrap(ErrDocumentStore, "transcode", "update overlay", legacy.ID, err)
		}
		slog.Info("repointed document at converted file", "overlay_id", legacy.ID, "location", legacy.Location.String())
	case legacy == nil && current == nil:
		created := convertedOverlay(item, target)
		if err := s.overlayRepo.Create(model.Flat(), created); err != nil {
			return ReasonRepairFailed, Wrap(ErrDocumentStore, "transcode", "create overlay", target, err)
		}
		slog.Info("created overlay for converted file", "overlay_id", created.ID, "target", target)
	}
	return "", nil
}

func (s *TranscodeService) requireAsset(assetID string) (*model.Asset, TranscodeResult, bool) {
	asset, err := s.assetRepo.ByID(assetID)
	if err == nil {
		return asset, TranscodeResult{}, true
	}
	item := TranscodeItem{AssetID: assetID}
	if errors.Is(err, repository.ErrAssetNotFound) {
		return nil, failed(item, ReasonMissingAsset, Wrap(ErrNotFound, "transcode", "find asset", assetID, err)), false
	}
	return nil, failed(item, ReasonLookupFailed, Wrap(ErrDocumentStore, "transcode", "find asset", assetID, err)), false
}

func itemFor(asset *model.Asset, overlay *model.Overlay) TranscodeItem {
	return TranscodeItem{
		AssetID:    asset.ID,
		AssetTitle: asset.Title,
		OverlayID:  overlay.ID,
		SourceKey:  overlay.StoragePath,
		FileType:   overlay.FileType,
	}
}

func pointAt(overlay *model.Overlay, target string) {
	overlay.StoragePath = target
	overlay.FileName = assetpath.FileName(target)
	overlay.FileType = assetpath.FileTypeMP4
	overlay.ConvertedFromMOV = true
}

func convertedOverlay(item TranscodeItem, target string) *model.Overlay {
	now := time.Now()
	return &model.Overlay{
		ID:               uuid.New().String(),
		AssetID:          item.AssetID,
		AssetTitle:       item.AssetTitle,
		FileName:         assetpath.FileName(target),
		StoragePath:      target,
		FileType:         assetpath.FileTypeMP4,
		ConvertedFromMOV: true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func failed(item TranscodeItem, reason string, err error) TranscodeResult {
	return TranscodeResult{
		Item:   item,
		Status: StatusFailed,
		Reason: reason,
		Err:    err,
	}
}

func (r TranscodeResult) String() string {
	key := r.Item.SourceKey
	if key == "" {
		key = r.Item.OverlayID
	}
	if r.Reason != "" {
		return fmt.Sprintf("%s %s (%s)", r.Status, key, r.Reason)
	}
	return fmt.Sprintf("%s %s", r.Status, key)
}
