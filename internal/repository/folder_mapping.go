package repository

import (
	"database/sql"
	"errors"

	"github.com/cochranfilms/coursecreatoracademy/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrMappingNotFound = errors.New("folder mapping not found")
)

type FolderMappingRepository interface {
	ByFolder(folder string) (*model.FolderMapping, error)
	All() ([]*model.FolderMapping, error)
	Upsert(mapping *model.FolderMapping) error
	Delete(folder string) error
}

type folderMappingRepository struct {
	db *sqlx.DB
}

func NewFolderMappingRepository(db *sqlx.DB) FolderMappingRepository {
	return &folderMappingRepository{db: db}
}

func (r *folderMappingRepository) ByFolder(folder string) (*model.FolderMapping, error) {
	mapping := &model.FolderMapping{}
	query := `SELECT * FROM folder_mappings WHERE folder = $1`

	err := r.db.Get(mapping, query, folder)
	if err == sql.ErrNoRows {
		return nil, ErrMappingNotFound
	}
	if err != nil {
		return nil, err
	}

	return mapping, nil
}

func (r *folderMappingRepository) All() ([]*model.FolderMapping, error) {
	var mappings []*model.FolderMapping
	query := `SELECT * FROM folder_mappings ORDER BY folder ASC`

	err := r.db.Select(&mappings, query)
	if err != nil {
		return nil, err
	}

	return mappings, nil
}

func (r *folderMappingRepository) Upsert(mapping *model.FolderMapping) error {
	query := `INSERT INTO folder_mappings (folder, asset_id, source, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (folder) DO UPDATE
	          SET asset_id = excluded.asset_id, source = excluded.source, updated_at = excluded.updated_at`

	_, err := r.db.Exec(query,
		mapping.Folder,
		mapping.AssetID,
		mapping.Source,
		mapping.CreatedAt,
		mapping.UpdatedAt,
	)

	return err
}

func (r *folderMappingRepository) Delete(folder string) error {
	query := `DELETE FROM folder_mappings WHERE folder = $1`
	result, err := r.db.Exec(query, folder)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrMappingNotFound
	}

	return nil
}
