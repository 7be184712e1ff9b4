package repository

import (
	"testing"
	"time"

	"github.com/cochranfilms/coursecreatoracademy/internal/model"
	"github.com/cochranfilms/coursecreatoracademy/internal/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOverlay(id, assetID, key string) *model.Overlay {
	now := time.Now()
	return &model.Overlay{
		ID:          id,
		AssetID:     assetID,
		FileName:    key,
		StoragePath: key,
		FileType:    "mp4",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestOverlayLookupPrefersSubcollection(t *testing.T) {
	repo := NewOverlayRepository(testsupport.MustOpenDB(t))

	require.NoError(t, repo.Create(model.Flat(), newTestOverlay("f1", "a1", "k.mp4")))
	require.NoError(t, repo.Create(model.Subcollection("a1"), newTestOverlay("n1", "", "k.mp4")))

	got, err := repo.ByStoragePath("a1", "k.mp4")
	require.NoError(t, err)
	assert.Equal(t, "n1", got.ID)
	assert.Equal(t, "a1", got.AssetID)
	assert.Equal(t, model.Subcollection("a1"), got.Location)

	got, err = repo.ByID("a1", "f1")
	require.NoError(t, err)
	assert.True(t, got.Location.IsFlat())

	got, err = repo.ByID("", "f1")
	require.NoError(t, err)
	assert.Equal(t, "f1", got.ID)

	_, err = repo.ByID("", "n1")
	assert.ErrorIs(t, err, ErrOverlayNotFound)

	_, err = repo.ByStoragePath("a2", "k.mp4")
	assert.ErrorIs(t, err, ErrOverlayNotFound)

	n, err := repo.CountByStoragePath("a1", "k.mp4")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestOverlayFlatUniquePath(t *testing.T) {
	repo := NewOverlayRepository(testsupport.MustOpenDB(t))

	require.NoError(t, repo.Create(model.Flat(), newTestOverlay("f1", "a1", "k.mp4")))
	assert.Error(t, repo.Create(model.Flat(), newTestOverlay("f2", "a1", "k.mp4")))
	assert.NoError(t, repo.Create(model.Flat(), newTestOverlay("f3", "a2", "k.mp4")))
}

func TestOverlayUpdateWritesBackToLocation(t *testing.T) {
	repo := NewOverlayRepository(testsupport.MustOpenDB(t))
	require.NoError(t, repo.Create(model.Subcollection("a1"), newTestOverlay("n1", "", "k.mov")))

	got, err := repo.ByID("a1", "n1")
	require.NoError(t, err)
	got.StoragePath = "k.mp4"
	require.NoError(t, repo.Update(got))

	nested, err := repo.InLocation(model.Subcollection("a1"))
	require.NoError(t, err)
	require.Len(t, nested, 1)
	assert.Equal(t, "k.mp4", nested[0].StoragePath)

	flat, err := repo.InLocation(model.Flat())
	require.NoError(t, err)
	assert.Empty(t, flat)

	missing := newTestOverlay("zz", "a1", "x")
	missing.Location = model.Flat()
	assert.ErrorIs(t, repo.Update(missing), ErrOverlayNotFound)
}

func TestOverlayLegacy(t *testing.T) {
	repo := NewOverlayRepository(testsupport.MustOpenDB(t))

	mov := newTestOverlay("f1", "a1", "a/A.MOV")
	mov.FileType = ""
	require.NoError(t, repo.Create(model.Flat(), mov))
	declared := newTestOverlay("n1", "", "a/B.bin")
	declared.FileType = "mov"
	require.NoError(t, repo.Create(model.Subcollection("a2"), declared))
	require.NoError(t, repo.Create(model.Flat(), newTestOverlay("f2", "a1", "a/C.mp4")))

	all, err := repo.Legacy("")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "n1", all[0].ID)
	assert.Equal(t, "f1", all[1].ID)

	one, err := repo.Legacy("a1")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "f1", one[0].ID)
}

func TestOverlayDelete(t *testing.T) {
	repo := NewOverlayRepository(testsupport.MustOpenDB(t))
	require.NoError(t, repo.Create(model.Subcollection("a1"), newTestOverlay("n1", "", "k")))

	assert.ErrorIs(t, repo.Delete(model.Flat(), "n1"), ErrOverlayNotFound)
	require.NoError(t, repo.Delete(model.Subcollection("a1"), "n1"))

	overlays, err := repo.Overlays("a1")
	require.NoError(t, err)
	assert.Empty(t, overlays)
}
