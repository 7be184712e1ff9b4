package service

import (
	"testing"
	"time"

	"github.com/cochranfilms/coursecreatoracademy/internal/model"
	"github.com/cochranfilms/coursecreatoracademy/internal/repository"
	"github.com/cochranfilms/coursecreatoracademy/internal/testsupport"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testCategory = model.AssetCategoryOverlays

type harness struct {
	assetRepo   repository.AssetRepository
	overlayRepo repository.OverlayRepository
	mappingRepo repository.FolderMappingRepository
	store       *testsupport.MemoryStorage
	encoder     *testsupport.FakeEncoder

	assets    *AssetService
	reconcile *ReconcileService
	transcode *TranscodeService
	category  *CategoryService
	overlays  *OverlayService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	database := testsupport.MustOpenDB(t)
	h := &harness{
		assetRepo:   repository.NewAssetRepository(database),
		overlayRepo: repository.NewOverlayRepository(database),
		mappingRepo: repository.NewFolderMappingRepository(database),
		store:       testsupport.NewMemoryStorage(),
		encoder:     &testsupport.FakeEncoder{},
	}
	h.assets = NewAssetService(h.assetRepo, h.mappingRepo)
	h.reconcile = NewReconcileService(h.assets, h.overlayRepo, h.store, testCategory)
	h.transcode = NewTranscodeService(h.assets, h.assetRepo, h.overlayRepo, h.store, h.encoder, t.TempDir(), testCategory)
	h.category = NewCategoryService(h.assets, h.assetRepo, h.overlayRepo, h.store)
	h.overlays = NewOverlayService(h.assets, h.overlayRepo)
	return h
}

func (h *harness) seedAsset(t *testing.T, title, storagePath string) *model.Asset {
	t.Helper()

	now := time.Now()
	asset := &model.Asset{
		ID:          uuid.New().String(),
		Title:       title,
		Category:    testCategory,
		StoragePath: storagePath,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, h.assetRepo.Create(asset))
	return asset
}

// seedOverlay stores an overlay for key; any subcollection location is
// scoped to asset.
func (h *harness) seedOverlay(t *testing.T, loc model.Location, asset *model.Asset, key string) *model.Overlay {
	t.Helper()

	if !loc.IsFlat() {
		loc = model.Subcollection(asset.ID)
	}
	overlay := newOverlay(asset, key, "")
	require.NoError(t, h.overlayRepo.Create(loc, overlay))
	return overlay
}

func (h *harness) put(keys ...string) {
	for _, k := range keys {
		h.store.Put(k, []byte("data:"+k))
	}
}

func (h *harness) count(t *testing.T, assetID, key string) int {
	t.Helper()

	n, err := h.overlayRepo.CountByStoragePath(assetID, key)
	require.NoError(t, err)
	return n
}
