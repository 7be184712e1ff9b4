package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppEnv string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver      string
	DBConnection  string
	DBAutoMigrate bool // apply pending migrations on startup

	// Storage ("s3" or "gcs")
	StorageDriver          string
	StorageTimeout         time.Duration // list/stat/delete calls
	StorageTransferTimeout time.Duration // uploads and downloads
	// Storage - S3 compatible
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string // Optional: for S3-compatible services (MinIO, R2, GCS interop, etc.)
	// Storage - Google Cloud Storage / Firebase Storage
	GCSBucket       string
	GCSCredentials  string // Optional: service account file or inline JSON, default: ADC
	GCSEmulatorHost string // Optional: fake-gcs-server for local runs

	// Encoder
	FFmpegBinary string

	// Maintenance runs
	ScratchDir      string // scratch files and the run lock
	OverlayCategory string // asset category the overlay folders belong to

	// Observability (optional)
	SentryDSN string
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppEnv: envString("APP_ENV", "development"),

		// Database
		DBDriver:      envString("DB_DRIVER", "sqlite"),
		DBConnection:  envString("DB_CONNECTION", "./data/assets.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"),
		DBAutoMigrate: envBool("DB_AUTO_MIGRATE", true),

		// Storage
		StorageDriver:          envString("STORAGE_DRIVER", "s3"),
		StorageTimeout:         envDuration("STORAGE_TIMEOUT", 60*time.Second),
		StorageTransferTimeout: envDuration("STORAGE_TRANSFER_TIMEOUT", 30*time.Minute),
		S3Region:               envString("S3_REGION", ""),
		S3Bucket:               envString("S3_BUCKET", ""),
		S3AccessKey:            envString("S3_ACCESS_KEY", ""),
		S3SecretKey:            envString("S3_SECRET_KEY", ""),
		S3Endpoint:             envString("S3_ENDPOINT", ""),
		GCSBucket:              envString("GCS_BUCKET", ""),
		GCSCredentials:         envString("GCS_CREDENTIALS", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
		GCSEmulatorHost:        envString("GCS_EMULATOR_HOST", ""),

		// Encoder
		FFmpegBinary: envString("FFMPEG_BINARY", "ffmpeg"),

		// Maintenance runs
		ScratchDir:      envString("SCRATCH_DIR", filepath.Join(os.TempDir(), "assetctl")),
		OverlayCategory: envString("OVERLAY_CATEGORY", "Overlays & Transitions"),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),
	}

	validateStorage(cfg)

	return cfg
}

// validateStorage ensures the selected storage driver has its credentials.
// Missing credentials are a fatal startup error.
func validateStorage(cfg *Config) {
	switch cfg.StorageDriver {
	case "s3":
		requireSet("S3_REGION", cfg.S3Region)
		requireSet("S3_BUCKET", cfg.S3Bucket)
		requireSet("S3_ACCESS_KEY", cfg.S3AccessKey)
		requireSet("S3_SECRET_KEY", cfg.S3SecretKey)
	case "gcs":
		requireSet("GCS_BUCKET", cfg.GCSBucket)
	default:
		slog.Error("config unknown storage driver",
			"key", "STORAGE_DRIVER", "value", cfg.StorageDriver,
			"hint", "supported: s3, gcs")
		os.Exit(1)
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func requireSet(key, value string) {
	if value != "" {
		return
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
