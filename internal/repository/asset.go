package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/cochranfilms/coursecreatoracademy/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrAssetNotFound = errors.New("asset not found")
)

type AssetRepository interface {
	Create(asset *model.Asset) error
	ByID(id string) (*model.Asset, error)
	ByCategory(category string) ([]*model.Asset, error)
	All() ([]*model.Asset, error)
	Update(asset *model.Asset) error
}

type assetRepository struct {
	db *sqlx.DB
}

func NewAssetRepository(db *sqlx.DB) AssetRepository {
	return &assetRepository{db: db}
}

func (r *assetRepository) Create(asset *model.Asset) error {
	query := `INSERT INTO assets (id, title, category, sub_category, storage_path, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(query,
		asset.ID,
		asset.Title,
		asset.Category,
		asset.SubCategory,
		asset.StoragePath,
		asset.CreatedAt,
		asset.UpdatedAt,
	)

	return err
}

func (r *assetRepository) ByID(id string) (*model.Asset, error) {
	asset := &model.Asset{}
	query := `SELECT * FROM assets WHERE id = $1`

	err := r.db.Get(asset, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrAssetNotFound
	}
	if err != nil {
		return nil, err
	}

	return asset, nil
}

// ByCategory returns assets in creation order, which is the order fuzzy
// folder matching walks them.
func (r *assetRepository) ByCategory(category string) ([]*model.Asset, error) {
	var assets []*model.Asset
	query := `SELECT * FROM assets WHERE category = $1 ORDER BY created_at ASC, id ASC`

	err := r.db.Select(&assets, query, category)
	if err != nil {
		return nil, err
	}

	return assets, nil
}

func (r *assetRepository) All() ([]*model.Asset, error) {
	var assets []*model.Asset
	query := `SELECT * FROM assets ORDER BY created_at ASC, id ASC`

	err := r.db.Select(&assets, query)
	if err != nil {
		return nil, err
	}

	return assets, nil
}

func (r *assetRepository) Update(asset *model.Asset) error {
	asset.UpdatedAt = time.Now()
	query := `UPDATE assets
	          SET title = $1, category = $2, sub_category = $3, storage_path = $4, updated_at = $5
	          WHERE id = $6`

	result, err := r.db.Exec(query,
		asset.Title,
		asset.Category,
		asset.SubCategory,
		asset.StoragePath,
		asset.UpdatedAt,
		asset.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrAssetNotFound
	}

	return nil
}
