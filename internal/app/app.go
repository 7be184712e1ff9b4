package app

import (
	"errors"
	"fmt"

	"github.com/cochranfilms/coursecreatoracademy/internal/config"
	"github.com/cochranfilms/coursecreatoracademy/internal/db"
	"github.com/cochranfilms/coursecreatoracademy/internal/ffmpeg"
	"github.com/cochranfilms/coursecreatoracademy/internal/repository"
	"github.com/cochranfilms/coursecreatoracademy/internal/service"
	"github.com/cochranfilms/coursecreatoracademy/internal/storage"
	"github.com/jmoiron/sqlx"
)

type App struct {
	Cfg              *config.Config
	DB               *sqlx.DB
	Storage          storage.Storage
	AssetService     *service.AssetService
	ReconcileService *service.ReconcileService
	CategoryService  *service.CategoryService
	OverlayService   *service.OverlayService

	assetRepository   repository.AssetRepository
	overlayRepository repository.OverlayRepository
}

// OpenDB connects to the document store and, unless disabled, applies
// pending migrations.
func OpenDB(cfg *config.Config) (*sqlx.DB, error) {
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if cfg.DBAutoMigrate {
		err = db.RunMigrations(database.DB, cfg.DBDriver)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}
	return database, nil
}

func New(cfg *config.Config) (*App, error) {
	database, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}

	// Repositories
	assetRepository := repository.NewAssetRepository(database)
	overlayRepository := repository.NewOverlayRepository(database)
	mappingRepository := repository.NewFolderMappingRepository(database)

	// Storage
	objectStorage, err := storage.New(cfg)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Services
	assetService := service.NewAssetService(assetRepository, mappingRepository)
	reconcileService := service.NewReconcileService(assetService, overlayRepository, objectStorage, cfg.OverlayCategory)
	categoryService := service.NewCategoryService(assetService, assetRepository, overlayRepository, objectStorage)
	overlayService := service.NewOverlayService(assetService, overlayRepository)

	return &App{
		Cfg:               cfg,
		DB:                database,
		Storage:           objectStorage,
		AssetService:      assetService,
		ReconcileService:  reconcileService,
		CategoryService:   categoryService,
		OverlayService:    overlayService,
		assetRepository:   assetRepository,
		overlayRepository: overlayRepository,
	}, nil
}

// TranscodeService builds the transcoder. It is separate from New because
// only transcode runs need the ffmpeg binary.
func (a *App) TranscodeService() (*service.TranscodeService, error) {
	runner, err := ffmpeg.NewRunner(a.Cfg.FFmpegBinary)
	if err != nil {
		return nil, service.Wrap(service.ErrExternalTool, "transcode", "locate encoder", "", err)
	}
	return service.NewTranscodeService(
		a.AssetService,
		a.assetRepository,
		a.overlayRepository,
		a.Storage,
		runner,
		a.Cfg.ScratchDir,
		a.Cfg.OverlayCategory,
	), nil
}

func (a *App) Close() error {
	var errs []error
	if a.Storage != nil {
		errs = append(errs, a.Storage.Close())
	}
	errs = append(errs, db.Close(a.DB))
	return errors.Join(errs...)
}
