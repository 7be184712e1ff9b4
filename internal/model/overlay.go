package model

import (
	"time"
)

// Overlay is one deliverable file of an asset (an overlay clip, LUT or
// sound effect). AssetTitle is a denormalized copy of the parent title.
type Overlay struct {
	ID                 string    `db:"id"`
	AssetID            string    `db:"asset_id"`
	AssetTitle         string    `db:"asset_title"`
	FileName           string    `db:"file_name"`
	StoragePath        string    `db:"storage_path"`
	PreviewStoragePath *string   `db:"preview_storage_path"`
	FileType           string    `db:"file_type"`
	ConvertedFromMOV   bool      `db:"converted_from_mov"`
	HasPreview         bool      `db:"has_preview"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`

	// Where the document was read from (not a column)
	Location Location `db:"-"`
}

func (o *Overlay) HasPreviewPath() bool {
	return o.PreviewStoragePath != nil && *o.PreviewStoragePath != ""
}
