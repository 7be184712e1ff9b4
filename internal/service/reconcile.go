package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/cochranfilms/coursecreatoracademy/internal/assetpath"
	"github.com/cochranfilms/coursecreatoracademy/internal/model"
	"github.com/cochranfilms/coursecreatoracademy/internal/repository"
	"github.com/cochranfilms/coursecreatoracademy/internal/storage"
	"github.com/google/uuid"
)

// FolderResult counts what one reconciliation of a pack folder did.
// Under dry run, Created and Backfilled count intended writes.
type FolderResult struct {
	Folder     string
	AssetID    string
	AssetTitle string
	Resolution string
	Groups     int
	Created    int
	Skipped    int
	Backfilled int
}

// ReconcileSummary aggregates a run over one or more folders.
type ReconcileSummary struct {
	DryRun  bool
	Folders []*FolderResult
}

func (s *ReconcileSummary) Totals() FolderResult {
	var total FolderResult
	for _, f := range s.Folders {
		total.Groups += f.Groups
		total.Created += f.Created
		total.Skipped += f.Skipped
		total.Backfilled += f.Backfilled
	}
	return total
}

// fileGroup collects the renditions of one base name. Later keys of the
// same kind replace earlier ones.
type fileGroup struct {
	base      string
	preview   string
	primary   string // .mp4
	secondary string // .mov
}

func (g *fileGroup) downloadKey() string {
	if g.primary != "" {
		return g.primary
	}
	return g.secondary
}

type ReconcileService struct {
	assets      *AssetService
	overlayRepo repository.OverlayRepository
	storage     storage.Storage
	category    string
}

func NewReconcileService(assets *AssetService, overlayRepo repository.OverlayRepository, storage storage.Storage, category string) *ReconcileService {
	return &ReconcileService{
		assets:      assets,
		overlayRepo: overlayRepo,
		storage:     storage,
		category:    category,
	}
}

// Folders returns the distinct pack folders under the overlay root, sorted.
func (s *ReconcileService) Folders(ctx context.Context) ([]string, error) {
	objects, err := s.storage.List(ctx, assetpath.Root+"/")
	if err != nil {
		return nil, Wrap(ErrStorage, "reconcile", "list folders", assetpath.Root, err)
	}

	seen := make(map[string]bool)
	var folders []string
	for _, obj := range objects {
		folder, ok := assetpath.FolderName(obj.Key)
		if !ok || seen[folder] {
			continue
		}
		seen[folder] = true
		folders = append(folders, folder)
	}
	sort.Strings(folders)
	return folders, nil
}

// ReconcileAll processes every folder in lexicographic order and stops at
// the first failure. The summary covers the folders finished before it.
func (s *ReconcileService) ReconcileAll(ctx context.Context, dryRun bool) (*ReconcileSummary, error) {
	summary := &ReconcileSummary{DryRun: dryRun}

	folders, err := s.Folders(ctx)
	if err != nil {
		return summary, err
	}
	slog.Info("reconciling overlay folders", "count", len(folders), "dry_run", dryRun)

	for _, folder := range folders {
		result, err := s.ReconcileFolder(ctx, folder, dryRun)
		if err != nil {
			return summary, err
		}
		summary.Folders = append(summary.Folders, result)
	}
	return summary, nil
}

// ReconcileFolder resolves the folder's asset and reconciles its files.
func (s *ReconcileService) ReconcileFolder(ctx context.Context, folder string, dryRun bool) (*FolderResult, error) {
	resolution, err := s.assets.Resolve(folder, s.category, dryRun)
	if err != nil {
		return nil, err
	}

	result, err := s.ReconcileAsset(ctx, resolution.Asset, folder, dryRun)
	if err != nil {
		return nil, err
	}
	result.Resolution = resolution.How
	return result, nil
}

// ReconcileAsset makes sure every download-capable file under the folder
// has exactly one overlay document across both locations. It re-derives
// everything from storage and the store each time, so reruns are safe.
// Any write failure aborts the folder.
func (s *ReconcileService) ReconcileAsset(ctx context.Context, asset *model.Asset, folder string, dryRun bool) (*FolderResult, error) {
	result := &FolderResult{
		Folder:     folder,
		AssetID:    asset.ID,
		AssetTitle: asset.Title,
	}
	log := slog.With("folder", folder, "asset_id", asset.ID, "dry_run", dryRun)

	objects, err := s.storage.List(ctx, assetpath.FolderPrefix(folder))
	if err != nil {
		return nil, Wrap(ErrStorage, "reconcile", "list folder", folder, err)
	}

	for _, group := range groupKeys(objects) {
		result.Groups++

		download := group.downloadKey()
		if download == "" {
			log.Debug("no downloadable file in group", "base", group.base)
			result.Skipped++
			continue
		}

		existing, err := s.existing(asset, download)
		if err != nil {
			return nil, err
		}

		if existing != nil {
			result.Skipped++
			if group.preview != "" && !existing.HasPreviewPath() {
				if err := s.backfillPreview(existing, group.preview, dryRun); err != nil {
					return nil, err
				}
				log.Info("backfilled preview", "overlay_id", existing.ID, "location", existing.Location.String(), "preview", group.preview)
				result.Backfilled++
			}
			continue
		}

		if dryRun {
			log.Info("dry run: would create overlay", "storage_path", download, "preview", group.preview)
			result.Created++
			continue
		}

		overlay := newOverlay(asset, download, group.preview)
		if err := s.overlayRepo.Create(model.Flat(), overlay); err != nil {
			return nil, Wrap(ErrDocumentStore, "reconcile", "create overlay", download, err)
		}
		log.Info("created overlay", "overlay_id", overlay.ID, "storage_path", download)
		result.Created++
	}

	log.Info("folder reconciled",
		"groups", result.Groups,
		"created", result.Created,
		"skipped", result.Skipped,
		"backfilled", result.Backfilled,
	)
	return result, nil
}

// existing finds the overlay for key in either location. Unsaved dry-run
// assets have no documents.
func (s *ReconcileService) existing(asset *model.Asset, key string) (*model.Overlay, error) {
	if !asset.Persisted() {
		return nil, nil
	}
	overlay, err := s.overlayRepo.ByStoragePath(asset.ID, key)
	if errors.Is(err, repository.ErrOverlayNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, Wrap(ErrDocumentStore, "reconcile", "find overlay", key, err)
	}
	return overlay, nil
}

func (s *ReconcileService) backfillPreview(overlay *model.Overlay, preview string, dryRun bool) error {
	if dryRun {
		return nil
	}
	overlay.PreviewStoragePath = &preview
	overlay.HasPreview = true
	if err := s.overlayRepo.Update(overlay); err != nil {
		return Wrap(ErrDocumentStore, "reconcile", "backfill preview", overlay.ID, err)
	}
	return nil
}

// groupKeys buckets keys by base name, keeping first-seen order.
func groupKeys(objects []storage.Object) []*fileGroup {
	var groups []*fileGroup
	byBase := make(map[string]*fileGroup)

	for _, obj := range objects {
		base := assetpath.BaseName(obj.Key)
		group, ok := byBase[base]
		if !ok {
			group = &fileGroup{base: base}
			byBase[base] = group
			groups = append(groups, group)
		}

		switch {
		case assetpath.IsPreview(obj.Key):
			group.preview = obj.Key
		case assetpath.Ext(obj.Key) == assetpath.WebExt:
			group.primary = obj.Key
		case assetpath.Ext(obj.Key) == assetpath.LegacyExt:
			group.secondary = obj.Key
		}
	}
	return groups
}

func newOverlay(asset *model.Asset, download, preview string) *model.Overlay {
	now := time.Now()
	overlay := &model.Overlay{
		ID:          uuid.New().String(),
		AssetID:     asset.ID,
		AssetTitle:  asset.Title,
		FileName:    assetpath.FileName(download),
		StoragePath: download,
		FileType:    assetpath.FileType(download),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if preview != "" {
		overlay.PreviewStoragePath = &preview
		overlay.HasPreview = true
	}
	return overlay
}
