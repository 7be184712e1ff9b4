package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/cochranfilms/coursecreatoracademy/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrOverlayNotFound = errors.New("overlay not found")
)

const overlayColumns = `id, asset_id, asset_title, file_name, storage_path, preview_storage_path,
	file_type, converted_from_mov, has_preview, created_at, updated_at`

// OverlayRepository reads and writes overlay documents in both locations.
// Lookups check the asset's subcollection first, then the flat collection,
// and return the document with its Location set; writes go back to that
// Location.
type OverlayRepository interface {
	Create(loc model.Location, overlay *model.Overlay) error
	ByID(assetID, id string) (*model.Overlay, error)
	ByStoragePath(assetID, storagePath string) (*model.Overlay, error)
	Overlays(assetID string) ([]*model.Overlay, error)
	InLocation(loc model.Location) ([]*model.Overlay, error)
	Legacy(assetID string) ([]*model.Overlay, error)
	CountByStoragePath(assetID, storagePath string) (int, error)
	Update(overlay *model.Overlay) error
	Delete(loc model.Location, id string) error
}

type overlayRepository struct {
	db *sqlx.DB
}

func NewOverlayRepository(db *sqlx.DB) OverlayRepository {
	return &overlayRepository{db: db}
}

func table(loc model.Location) string {
	if loc.IsFlat() {
		return "overlays"
	}
	return "asset_overlays"
}

func withLocation(overlays []*model.Overlay, loc func(o *model.Overlay) model.Location) []*model.Overlay {
	for _, o := range overlays {
		o.Location = loc(o)
	}
	return overlays
}

func subcollectionOf(o *model.Overlay) model.Location {
	return model.Subcollection(o.AssetID)
}

func flatOf(*model.Overlay) model.Location {
	return model.Flat()
}

func (r *overlayRepository) Create(loc model.Location, overlay *model.Overlay) error {
	if !loc.IsFlat() {
		overlay.AssetID = loc.AssetID
	}
	query := `INSERT INTO ` + table(loc) + ` (` + overlayColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Exec(query,
		overlay.ID,
		overlay.AssetID,
		overlay.AssetTitle,
		overlay.FileName,
		overlay.StoragePath,
		overlay.PreviewStoragePath,
		overlay.FileType,
		overlay.ConvertedFromMOV,
		overlay.HasPreview,
		overlay.CreatedAt,
		overlay.UpdatedAt,
	)
	if err != nil {
		return err
	}

	overlay.Location = loc
	return nil
}

// getOne runs a single-row query and tags the result with loc.
func (r *overlayRepository) getOne(loc model.Location, query string, args ...interface{}) (*model.Overlay, error) {
	overlay := &model.Overlay{}
	err := r.db.Get(overlay, query, args...)
	if err == sql.ErrNoRows {
		return nil, ErrOverlayNotFound
	}
	if err != nil {
		return nil, err
	}
	overlay.Location = loc
	return overlay, nil
}

// ByID finds an overlay by document id. An empty assetID only searches
// the flat collection, since subcollection ids are scoped to their asset.
func (r *overlayRepository) ByID(assetID, id string) (*model.Overlay, error) {
	if assetID != "" {
		query := `SELECT ` + overlayColumns + ` FROM asset_overlays WHERE asset_id = $1 AND id = $2`
		overlay, err := r.getOne(model.Subcollection(assetID), query, assetID, id)
		if err != ErrOverlayNotFound {
			return overlay, err
		}

		query = `SELECT ` + overlayColumns + ` FROM overlays WHERE asset_id = $1 AND id = $2`
		return r.getOne(model.Flat(), query, assetID, id)
	}

	query := `SELECT ` + overlayColumns + ` FROM overlays WHERE id = $1`
	return r.getOne(model.Flat(), query, id)
}

func (r *overlayRepository) ByStoragePath(assetID, storagePath string) (*model.Overlay, error) {
	query := `SELECT ` + overlayColumns + ` FROM asset_overlays WHERE asset_id = $1 AND storage_path = $2 LIMIT 1`
	overlay, err := r.getOne(model.Subcollection(assetID), query, assetID, storagePath)
	if err != ErrOverlayNotFound {
		return overlay, err
	}

	query = `SELECT ` + overlayColumns + ` FROM overlays WHERE asset_id = $1 AND storage_path = $2 LIMIT 1`
	return r.getOne(model.Flat(), query, assetID, storagePath)
}

// Overlays lists every overlay of an asset, subcollection documents first.
func (r *overlayRepository) Overlays(assetID string) ([]*model.Overlay, error) {
	var nested []*model.Overlay
	query := `SELECT ` + overlayColumns + ` FROM asset_overlays WHERE asset_id = $1 ORDER BY created_at ASC, id ASC`
	err := r.db.Select(&nested, query, assetID)
	if err != nil {
		return nil, err
	}

	var flat []*model.Overlay
	query = `SELECT ` + overlayColumns + ` FROM overlays WHERE asset_id = $1 ORDER BY created_at ASC, id ASC`
	err = r.db.Select(&flat, query, assetID)
	if err != nil {
		return nil, err
	}

	return append(withLocation(nested, subcollectionOf), withLocation(flat, flatOf)...), nil
}

// InLocation lists the documents of one location. A flat Location with an
// AssetID narrows the flat collection to that asset; a flat Location
// without one lists the whole collection.
func (r *overlayRepository) InLocation(loc model.Location) ([]*model.Overlay, error) {
	var overlays []*model.Overlay
	var err error

	switch {
	case !loc.IsFlat():
		query := `SELECT ` + overlayColumns + ` FROM asset_overlays WHERE asset_id = $1 ORDER BY created_at ASC, id ASC`
		err = r.db.Select(&overlays, query, loc.AssetID)
		overlays = withLocation(overlays, subcollectionOf)
	case loc.AssetID != "":
		query := `SELECT ` + overlayColumns + ` FROM overlays WHERE asset_id = $1 ORDER BY created_at ASC, id ASC`
		err = r.db.Select(&overlays, query, loc.AssetID)
		overlays = withLocation(overlays, flatOf)
	default:
		query := `SELECT ` + overlayColumns + ` FROM overlays ORDER BY created_at ASC, id ASC`
		err = r.db.Select(&overlays, query)
		overlays = withLocation(overlays, flatOf)
	}
	if err != nil {
		return nil, err
	}

	return overlays, nil
}

// Legacy lists overlays that still declare or point at the legacy
// container. An empty assetID searches every asset.
func (r *overlayRepository) Legacy(assetID string) ([]*model.Overlay, error) {
	const legacy = `(file_type = 'mov' OR LOWER(storage_path) LIKE '%.mov')`

	var nested, flat []*model.Overlay
	var err error
	if assetID == "" {
		err = r.db.Select(&nested, `SELECT `+overlayColumns+` FROM asset_overlays WHERE `+legacy+` ORDER BY asset_id ASC, created_at ASC, id ASC`)
		if err == nil {
			err = r.db.Select(&flat, `SELECT `+overlayColumns+` FROM overlays WHERE `+legacy+` ORDER BY asset_id ASC, created_at ASC, id ASC`)
		}
	} else {
		err = r.db.Select(&nested, `SELECT `+overlayColumns+` FROM asset_overlays WHERE asset_id = $1 AND `+legacy+` ORDER BY created_at ASC, id ASC`, assetID)
		if err == nil {
			err = r.db.Select(&flat, `SELECT `+overlayColumns+` FROM overlays WHERE asset_id = $1 AND `+legacy+` ORDER BY created_at ASC, id ASC`, assetID)
		}
	}
	if err != nil {
		return nil, err
	}

	return append(withLocation(nested, subcollectionOf), withLocation(flat, flatOf)...), nil
}

// CountByStoragePath counts documents for (assetID, storagePath) across
// both locations.
func (r *overlayRepository) CountByStoragePath(assetID, storagePath string) (int, error) {
	var nested, flat int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM asset_overlays WHERE asset_id = $1 AND storage_path = $2`, assetID, storagePath).Scan(&nested)
	if err != nil {
		return 0, err
	}
	err = r.db.QueryRow(`SELECT COUNT(*) FROM overlays WHERE asset_id = $1 AND storage_path = $2`, assetID, storagePath).Scan(&flat)
	if err != nil {
		return 0, err
	}
	return nested + flat, nil
}

// Update writes overlay back to the location it was read from.
func (r *overlayRepository) Update(overlay *model.Overlay) error {
	overlay.UpdatedAt = time.Now()
	query := `UPDATE ` + table(overlay.Location) + `
	          SET asset_title = $1, file_name = $2, storage_path = $3, preview_storage_path = $4,
	              file_type = $5, converted_from_mov = $6, has_preview = $7, updated_at = $8
	          WHERE asset_id = $9 AND id = $10`

	result, err := r.db.Exec(query,
		overlay.AssetTitle,
		overlay.FileName,
		overlay.StoragePath,
		overlay.PreviewStoragePath,
		overlay.FileType,
		overlay.ConvertedFromMOV,
		overlay.HasPreview,
		overlay.UpdatedAt,
		overlay.AssetID,
		overlay.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrOverlayNotFound
	}

	return nil
}

func (r *overlayRepository) Delete(loc model.Location, id string) error {
	var result sql.Result
	var err error
	if loc.IsFlat() {
		result, err = r.db.Exec(`DELETE FROM overlays WHERE id = $1`, id)
	} else {
		result, err = r.db.Exec(`DELETE FROM asset_overlays WHERE asset_id = $1 AND id = $2`, loc.AssetID, id)
	}
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrOverlayNotFound
	}

	return nil
}
