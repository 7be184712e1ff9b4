package service

import (
	"context"
	"testing"

	"github.com/cochranfilms/coursecreatoracademy/internal/model"
	"github.com/cochranfilms/coursecreatoracademy/internal/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecategorize(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	asset := h.seedAsset(t, "Whoosh", "assets/overlays/Whoosh/Whoosh.zip")
	h.put(
		"assets/overlays/Whoosh/Whoosh.zip",
		"assets/overlays/Whoosh/W1.mp4",
		"assets/overlays/Whoosh/W1_720p.mp4",
		"assets/overlays/Whooshes/other.mp4",
	)
	flat := h.seedOverlay(t, model.Flat(), asset, "assets/overlays/Whoosh/W1.mp4")
	preview := "assets/overlays/Whoosh/W1_720p.mp4"
	flat.PreviewStoragePath = &preview
	flat.HasPreview = true
	require.NoError(t, h.overlayRepo.Update(flat))
	nested := h.seedOverlay(t, model.Subcollection(asset.ID), asset, "assets/overlays/Whoosh/W1.mp4")

	result, err := h.category.Recategorize(ctx, asset.ID, "sfx", false)
	require.NoError(t, err)
	assert.Equal(t, "assets/overlays/Whoosh/", result.From)
	assert.Equal(t, "assets/sfx/Whoosh/", result.To)
	assert.Equal(t, "SFX", result.SubCategory)
	assert.Equal(t, 3, result.Objects)
	assert.Equal(t, 2, result.Overlays)
	assert.Equal(t, 0, result.DeleteFailures)

	assert.Equal(t, []string{
		"assets/overlays/Whooshes/other.mp4",
		"assets/sfx/Whoosh/W1.mp4",
		"assets/sfx/Whoosh/W1_720p.mp4",
		"assets/sfx/Whoosh/Whoosh.zip",
	}, h.store.Keys())

	got, err := h.assetRepo.ByID(asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "assets/sfx/Whoosh/Whoosh.zip", got.StoragePath)
	require.NotNil(t, got.SubCategory)
	assert.Equal(t, "SFX", *got.SubCategory)

	o, err := h.overlayRepo.ByID(asset.ID, flat.ID)
	require.NoError(t, err)
	assert.Equal(t, "assets/sfx/Whoosh/W1.mp4", o.StoragePath)
	assert.Equal(t, "assets/sfx/Whoosh/W1_720p.mp4", *o.PreviewStoragePath)

	o, err = h.overlayRepo.ByID(asset.ID, nested.ID)
	require.NoError(t, err)
	assert.Equal(t, "assets/sfx/Whoosh/W1.mp4", o.StoragePath)
}

func TestRecategorizeDryRun(t *testing.T) {
	h := newHarness(t)
	asset := h.seedAsset(t, "Whoosh", "assets/overlays/Whoosh/Whoosh.zip")
	h.put("assets/overlays/Whoosh/W1.mp4")
	h.seedOverlay(t, model.Flat(), asset, "assets/overlays/Whoosh/W1.mp4")

	result, err := h.category.Recategorize(context.Background(), asset.ID, "Transitions", true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Objects)
	assert.Equal(t, 1, result.Overlays)

	assert.Empty(t, h.store.Copies)
	assert.Equal(t, []string{"assets/overlays/Whoosh/W1.mp4"}, h.store.Keys())
	got, err := h.assetRepo.ByID(asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "assets/overlays/Whoosh/Whoosh.zip", got.StoragePath)
}

func TestRecategorizeKeepsOldObjectOnDeleteFailure(t *testing.T) {
	h := newHarness(t)
	asset := h.seedAsset(t, "Whoosh", "assets/overlays/Whoosh/Whoosh.zip")
	h.put("assets/overlays/Whoosh/W1.mp4")
	h.store.FailDelete["assets/overlays/Whoosh/W1.mp4"] = testsupport.ErrInjected

	result, err := h.category.Recategorize(context.Background(), asset.ID, "sfx", false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DeleteFailures)
	assert.True(t, h.store.Has("assets/overlays/Whoosh/W1.mp4"))
	assert.True(t, h.store.Has("assets/sfx/Whoosh/W1.mp4"))
}

func TestRecategorizeValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.category.Recategorize(ctx, "missing", "sfx", false)
	assert.ErrorIs(t, err, ErrNotFound)

	bare := h.seedAsset(t, "Bare", "Bare.zip")
	_, err = h.category.Recategorize(ctx, bare.ID, "sfx", false)
	assert.ErrorIs(t, err, ErrValidation)

	asset := h.seedAsset(t, "Whoosh", "assets/overlays/Whoosh/Whoosh.zip")
	_, err = h.category.Recategorize(ctx, asset.ID, "Stickers", false)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRecategorizeSameFolderSetsLabel(t *testing.T) {
	h := newHarness(t)
	asset := h.seedAsset(t, "Whoosh", "assets/overlays/Whoosh/Whoosh.zip")

	result, err := h.category.Recategorize(context.Background(), asset.ID, "overlays", false)
	require.NoError(t, err)
	assert.Equal(t, result.From, result.To)
	assert.Empty(t, h.store.Copies)

	got, err := h.assetRepo.ByID(asset.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SubCategory)
	assert.Equal(t, "Overlays", *got.SubCategory)
}
