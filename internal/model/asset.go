package model

import (
	"time"
)

const (
	AssetCategoryOverlays = "Overlays & Transitions"
	AssetCategoryLUTs     = "LUTs & Presets"
	AssetCategorySFX      = "SFX & Plugins"
)

// Asset is a purchasable content pack. StoragePath often points at an
// archive that does not exist yet.
type Asset struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Category    string    `db:"category"`
	SubCategory *string   `db:"sub_category"`
	StoragePath string    `db:"storage_path"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Persisted reports whether the asset exists in the store. Dry runs work
// with placeholder assets that were never written.
func (a *Asset) Persisted() bool {
	return a != nil && a.ID != ""
}
