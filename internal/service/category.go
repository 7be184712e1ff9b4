package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cochranfilms/coursecreatoracademy/internal/assetpath"
	"github.com/cochranfilms/coursecreatoracademy/internal/model"
	"github.com/cochranfilms/coursecreatoracademy/internal/repository"
	"github.com/cochranfilms/coursecreatoracademy/internal/storage"
)

// RecategorizeResult reports a move of one asset between category folders.
// Under dry run the counts are what would be moved.
type RecategorizeResult struct {
	AssetID        string
	From           string
	To             string
	SubCategory    string
	Objects        int
	Overlays       int
	DeleteFailures int
}

type CategoryService struct {
	assets      *AssetService
	assetRepo   repository.AssetRepository
	overlayRepo repository.OverlayRepository
	storage     storage.Storage
}

func NewCategoryService(
	assets *AssetService,
	assetRepo repository.AssetRepository,
	overlayRepo repository.OverlayRepository,
	storage storage.Storage,
) *CategoryService {
	return &CategoryService{
		assets:      assets,
		assetRepo:   assetRepo,
		overlayRepo: overlayRepo,
		storage:     storage,
	}
}

// Recategorize moves an asset's files to the category folder of label and
// rewrites every path that references them. Objects are copied first and
// the old ones deleted only after all documents point at the new prefix,
// so an interrupted run leaves both copies rather than none.
func (s *CategoryService) Recategorize(ctx context.Context, assetID, label string, dryRun bool) (*RecategorizeResult, error) {
	asset, err := s.assets.Asset(assetID)
	if err != nil {
		return nil, err
	}

	from, err := assetPrefix(asset.StoragePath)
	if err != nil {
		return nil, err
	}
	to, err := assetpath.WithSubCategory(from, label)
	if err != nil {
		return nil, Wrap(ErrValidation, "recategorize", "", err.Error(), nil)
	}
	sub, _ := assetpath.SubCategory(to)

	result := &RecategorizeResult{AssetID: asset.ID, From: from, To: to, SubCategory: sub}
	log := slog.With("asset_id", asset.ID, "from", from, "to", to, "dry_run", dryRun)

	if from == to {
		if asset.SubCategory == nil || *asset.SubCategory != sub {
			if !dryRun {
				asset.SubCategory = &sub
				if err := s.assetRepo.Update(asset); err != nil {
					return nil, Wrap(ErrDocumentStore, "recategorize", "update asset", asset.ID, err)
				}
			}
		}
		log.Info("asset already in category folder")
		return result, nil
	}

	objects, err := s.storage.List(ctx, from)
	if err != nil {
		return nil, Wrap(ErrStorage, "recategorize", "list objects", from, err)
	}

	for _, obj := range objects {
		dst := to + strings.TrimPrefix(obj.Key, from)
		result.Objects++
		if dryRun {
			log.Info("dry run: would copy object", "src", obj.Key, "dst", dst)
			continue
		}
		if err := s.storage.Copy(ctx, obj.Key, dst); err != nil {
			return nil, Wrap(ErrStorage, "recategorize", "copy object", obj.Key, err)
		}
	}

	overlays, err := s.overlayRepo.Overlays(asset.ID)
	if err != nil {
		return nil, Wrap(ErrDocumentStore, "recategorize", "list overlays", asset.ID, err)
	}
	for _, overlay := range overlays {
		if !movePaths(overlay, from, to) {
			continue
		}
		result.Overlays++
		if dryRun {
			continue
		}
		if err := s.overlayRepo.Update(overlay); err != nil {
			return nil, Wrap(ErrDocumentStore, "recategorize", "update overlay", overlay.ID, err)
		}
	}

	if !dryRun {
		asset.StoragePath = rebase(asset.StoragePath, from, to)
		asset.SubCategory = &sub
		if err := s.assetRepo.Update(asset); err != nil {
			return nil, Wrap(ErrDocumentStore, "recategorize", "update asset", asset.ID, err)
		}

		for _, obj := range objects {
			if err := s.storage.Delete(ctx, obj.Key); err != nil {
				log.Warn("failed to delete old object", "key", obj.Key, "error", err)
				result.DeleteFailures++
			}
		}
	}

	log.Info("asset recategorized", "objects", result.Objects, "overlays", result.Overlays)
	return result, nil
}

// assetPrefix returns "assets/<category>/<folder>/" for an asset path.
func assetPrefix(storagePath string) (string, error) {
	parts := strings.Split(storagePath, "/")
	if len(parts) < 4 || parts[0] != "assets" || parts[1] == "" || parts[2] == "" {
		return "", Wrap(ErrValidation, "recategorize", "", "asset path has no category folder: "+storagePath, nil)
	}
	return strings.Join(parts[:3], "/") + "/", nil
}

func rebase(key, from, to string) string {
	if strings.HasPrefix(key, from) {
		return to + strings.TrimPrefix(key, from)
	}
	return key
}

// movePaths rebases the overlay's paths and reports whether any changed.
func movePaths(overlay *model.Overlay, from, to string) bool {
	changed := false
	if moved := rebase(overlay.StoragePath, from, to); moved != overlay.StoragePath {
		overlay.StoragePath = moved
		changed = true
	}
	if overlay.PreviewStoragePath != nil {
		if moved := rebase(*overlay.PreviewStoragePath, from, to); moved != *overlay.PreviewStoragePath {
			overlay.PreviewStoragePath = &moved
			changed = true
		}
	}
	return changed
}
