package service

import (
	"errors"
	"log/slog"

	"github.com/cochranfilms/coursecreatoracademy/internal/model"
	"github.com/cochranfilms/coursecreatoracademy/internal/repository"
	"github.com/google/uuid"
)

// ConsolidateResult counts subcollection documents folded into the flat
// collection.
type ConsolidateResult struct {
	Assets         int
	Moved          int
	Duplicates     int
	PreviewsMerged int
}

type OverlayService struct {
	assets      *AssetService
	overlayRepo repository.OverlayRepository
}

func NewOverlayService(assets *AssetService, overlayRepo repository.OverlayRepository) *OverlayService {
	return &OverlayService{
		assets:      assets,
		overlayRepo: overlayRepo,
	}
}

// List returns an asset's overlays from both locations.
func (s *OverlayService) List(assetID string) ([]*model.Overlay, error) {
	asset, err := s.assets.Asset(assetID)
	if err != nil {
		return nil, err
	}
	overlays, err := s.overlayRepo.Overlays(asset.ID)
	if err != nil {
		return nil, Wrap(ErrDocumentStore, "overlays", "list", asset.ID, err)
	}
	return overlays, nil
}

// Consolidate moves subcollection documents into the flat collection.
// A document whose (asset, storage path) already exists in the flat
// collection is a duplicate: its preview is merged into the flat copy when
// that one lacks it, and the subcollection copy is removed. An empty
// assetID consolidates every asset.
func (s *OverlayService) Consolidate(assetID string, dryRun bool) (*ConsolidateResult, error) {
	var assets []*model.Asset
	if assetID != "" {
		asset, err := s.assets.Asset(assetID)
		if err != nil {
			return nil, err
		}
		assets = []*model.Asset{asset}
	} else {
		all, err := s.assets.Assets("")
		if err != nil {
			return nil, Wrap(ErrDocumentStore, "consolidate", "list assets", "", err)
		}
		assets = all
	}

	result := &ConsolidateResult{}
	for _, asset := range assets {
		if err := s.consolidateAsset(asset, dryRun, result); err != nil {
			return result, err
		}
		result.Assets++
	}
	return result, nil
}

func (s *OverlayService) consolidateAsset(asset *model.Asset, dryRun bool, result *ConsolidateResult) error {
	log := slog.With("asset_id", asset.ID, "dry_run", dryRun)

	nested, err := s.overlayRepo.InLocation(model.Subcollection(asset.ID))
	if err != nil {
		return Wrap(ErrDocumentStore, "consolidate", "list subcollection", asset.ID, err)
	}
	if len(nested) == 0 {
		return nil
	}

	flat, err := s.overlayRepo.InLocation(model.Location{Kind: model.LocationFlat, AssetID: asset.ID})
	if err != nil {
		return Wrap(ErrDocumentStore, "consolidate", "list flat", asset.ID, err)
	}
	byPath := make(map[string]*model.Overlay, len(flat))
	for _, o := range flat {
		if _, ok := byPath[o.StoragePath]; !ok {
			byPath[o.StoragePath] = o
		}
	}

	for _, n := range nested {
		if target, ok := byPath[n.StoragePath]; ok {
			result.Duplicates++
			if n.HasPreviewPath() && !target.HasPreviewPath() {
				result.PreviewsMerged++
				if !dryRun {
					target.PreviewStoragePath = n.PreviewStoragePath
					target.HasPreview = true
					if err := s.overlayRepo.Update(target); err != nil {
						return Wrap(ErrDocumentStore, "consolidate", "merge preview", target.ID, err)
					}
				}
			}
			if !dryRun {
				if err := s.overlayRepo.Delete(n.Location, n.ID); err != nil {
					return Wrap(ErrDocumentStore, "consolidate", "delete duplicate", n.ID, err)
				}
			}
			log.Info("removed duplicate subcollection overlay", "overlay_id", n.ID, "kept", target.ID)
			continue
		}

		result.Moved++
		if dryRun {
			byPath[n.StoragePath] = n
			log.Info("dry run: would move overlay", "overlay_id", n.ID)
			continue
		}

		moved := *n
		if _, err := s.overlayRepo.ByID("", n.ID); err == nil {
			moved.ID = uuid.New().String()
		} else if !errors.Is(err, repository.ErrOverlayNotFound) {
			return Wrap(ErrDocumentStore, "consolidate", "check id", n.ID, err)
		}
		if err := s.overlayRepo.Create(model.Flat(), &moved); err != nil {
			return Wrap(ErrDocumentStore, "consolidate", "create flat overlay", n.ID, err)
		}
		if err := s.overlayRepo.Delete(n.Location, n.ID); err != nil {
			return Wrap(ErrDocumentStore, "consolidate", "delete subcollection overlay", n.ID, err)
		}
		byPath[moved.StoragePath] = &moved
		log.Info("moved overlay to flat collection", "overlay_id", n.ID, "new_id", moved.ID)
	}
	return nil
}
