package service

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/cochranfilms/coursecreatoracademy/internal/assetpath"
	"github.com/cochranfilms/coursecreatoracademy/internal/model"
	"github.com/cochranfilms/coursecreatoracademy/internal/repository"
	"github.com/cochranfilms/coursecreatoracademy/internal/validation"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const (
	ResolvedByMapping = "mapping"
	ResolvedByMatch   = "matched"
	ResolvedByCreate  = "created"
	ResolvedByPlan    = "planned" // dry run: would be created
)

// Resolution is the asset a storage folder maps to and how it was found.
type Resolution struct {
	Asset *model.Asset
	How   string
}

type AssetService struct {
	assetRepo   repository.AssetRepository
	mappingRepo repository.FolderMappingRepository
}

func NewAssetService(assetRepo repository.AssetRepository, mappingRepo repository.FolderMappingRepository) *AssetService {
	return &AssetService{
		assetRepo:   assetRepo,
		mappingRepo: mappingRepo,
	}
}

// Resolve maps a storage folder to exactly one asset of category.
// A persisted folder mapping wins. Otherwise the category's assets are
// walked in creation order and the first fuzzy match wins; with no match a
// placeholder asset is created. Successful resolutions are recorded as
// mappings so later runs skip fuzzy matching. Dry runs write nothing and
// return an unsaved asset when one would be created.
func (s *AssetService) Resolve(folder, category string, dryRun bool) (*Resolution, error) {
	if err := validation.ValidateFolder(folder); err != nil {
		return nil, Wrap(ErrValidation, "resolve asset", "", err.Error(), nil)
	}

	asset, err := s.mappedAsset(folder)
	if err != nil {
		return nil, err
	}
	if asset != nil {
		return &Resolution{Asset: asset, How: ResolvedByMapping}, nil
	}

	assets, err := s.assetRepo.ByCategory(category)
	if err != nil {
		return nil, Wrap(ErrDocumentStore, "resolve asset", "query assets", category, err)
	}

	for _, candidate := range assets {
		if matchesFolder(candidate, folder) {
			slog.Debug("asset matched folder", "folder", folder, "asset_id", candidate.ID, "title", candidate.Title)
			if !dryRun {
				if err := s.remember(folder, candidate.ID, model.MappingSourceMatched); err != nil {
					return nil, err
				}
			}
			return &Resolution{Asset: candidate, How: ResolvedByMatch}, nil
		}
	}

	now := time.Now()
	created := &model.Asset{
		Title:       folder,
		Category:    category,
		StoragePath: placeholderStoragePath(folder),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if sub, ok := assetpath.SubCategory(created.StoragePath); ok {
		created.SubCategory = &sub
	}

	if dryRun {
		slog.Info("dry run: would create asset", "folder", folder, "category", category)
		return &Resolution{Asset: created, How: ResolvedByPlan}, nil
	}

	created.ID = uuid.New().String()
	if err := s.assetRepo.Create(created); err != nil {
		return nil, Wrap(ErrDocumentStore, "resolve asset", "create asset", folder, err)
	}
	slog.Info("created asset", "folder", folder, "asset_id", created.ID)

	if err := s.remember(folder, created.ID, model.MappingSourceCreated); err != nil {
		return nil, err
	}
	return &Resolution{Asset: created, How: ResolvedByCreate}, nil
}

// mappedAsset returns the asset pinned to folder, or nil when there is no
// usable mapping. A mapping to a deleted asset is ignored.
func (s *AssetService) mappedAsset(folder string) (*model.Asset, error) {
	mapping, err := s.mappingRepo.ByFolder(folder)
	if errors.Is(err, repository.ErrMappingNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, Wrap(ErrDocumentStore, "resolve asset", "read mapping", folder, err)
	}

	asset, err := s.assetRepo.ByID(mapping.AssetID)
	if errors.Is(err, repository.ErrAssetNotFound) {
		slog.Warn("folder mapping points at missing asset", "folder", folder, "asset_id", mapping.AssetID)
		return nil, nil
	}
	if err != nil {
		return nil, Wrap(ErrDocumentStore, "resolve asset", "read asset", mapping.AssetID, err)
	}
	return asset, nil
}

func (s *AssetService) remember(folder, assetID, source string) error {
	now := time.Now()
	err := s.mappingRepo.Upsert(&model.FolderMapping{
		Folder:    folder,
		AssetID:   assetID,
		Source:    source,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Wrap(ErrDocumentStore, "resolve asset", "save mapping", folder, err)
	}
	return nil
}

// Map pins folder to an existing asset, replacing any previous mapping.
func (s *AssetService) Map(folder, assetID string) (*model.FolderMapping, error) {
	if err := validation.ValidateFolder(folder); err != nil {
		return nil, Wrap(ErrValidation, "map folder", "", err.Error(), nil)
	}
	if _, err := s.Asset(assetID); err != nil {
		return nil, err
	}
	if err := s.remember(folder, assetID, model.MappingSourceOperator); err != nil {
		return nil, err
	}
	return s.mappingRepo.ByFolder(folder)
}

func (s *AssetService) Mappings() ([]*model.FolderMapping, error) {
	return s.mappingRepo.All()
}

func (s *AssetService) Asset(id string) (*model.Asset, error) {
	if err := validation.ValidateID("asset", id); err != nil {
		return nil, Wrap(ErrValidation, "asset", "lookup", err.Error(), nil)
	}
	asset, err := s.assetRepo.ByID(id)
	if errors.Is(err, repository.ErrAssetNotFound) {
		return nil, Wrap(ErrNotFound, "asset", "lookup", id, err)
	}
	if err != nil {
		return nil, Wrap(ErrDocumentStore, "asset", "lookup", id, err)
	}
	return asset, nil
}

// Assets lists assets, optionally restricted to one category.
func (s *AssetService) Assets(category string) ([]*model.Asset, error) {
	if category == "" {
		return s.assetRepo.All()
	}
	return s.assetRepo.ByCategory(category)
}

func placeholderStoragePath(folder string) string {
	return fmt.Sprintf("%s%s.zip", assetpath.FolderPrefix(folder), folder)
}

// matchesFolder applies, in order: title equals folder, storage path
// contains folder, folder contains the title with whitespace removed.
// Comparison is case-insensitive on NFC-normalised text, since folder
// names uploaded from macOS arrive decomposed.
func matchesFolder(asset *model.Asset, folder string) bool {
	f := fold(folder)
	title := fold(asset.Title)

	if title != "" && title == f {
		return true
	}
	if strings.Contains(fold(asset.StoragePath), f) {
		return true
	}
	compact := stripSpace(title)
	return compact != "" && strings.Contains(f, compact)
}

func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
