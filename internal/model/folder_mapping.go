package model

import (
	"time"
)

const (
	MappingSourceOperator = "operator"
	MappingSourceMatched  = "matched"
	MappingSourceCreated  = "created"
)

// FolderMapping pins a storage folder to an asset so resolution does not
// depend on fuzzy title matching.
type FolderMapping struct {
	Folder    string    `db:"folder"`
	AssetID   string    `db:"asset_id"`
	Source    string    `db:"source"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
