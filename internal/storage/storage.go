package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	cfg "github.com/cochranfilms/coursecreatoracademy/internal/config"
)

const (
	DriverS3  = "s3"
	DriverGCS = "gcs"
)

var (
	ErrObjectNotFound = errors.New("object not found")
)

// Object describes one listed key.
type Object struct {
	Key     string
	Size    int64
	Updated time.Time
}

// Storage defines the object store operations the asset tools rely on.
// Keys are slash separated paths relative to the bucket root.
type Storage interface {
	// List returns every object whose key starts with prefix, recursively
	List(ctx context.Context, prefix string) ([]Object, error)

	// Exists reports whether an object is stored at key
	Exists(ctx context.Context, key string) (bool, error)

	// Upload stores body at key with the given content type (may be empty)
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error

	// Download streams the object at key into w and returns the byte count.
	// Missing objects return ErrObjectNotFound.
	Download(ctx context.Context, key string, w io.Writer) (int64, error)

	// Copy duplicates src to dst inside the bucket
	Copy(ctx context.Context, src, dst string) error

	// Delete removes the object at key
	Delete(ctx context.Context, key string) error

	// Close releases the underlying client
	Close() error
}

// New creates the storage driver selected by STORAGE_DRIVER
func New(c *cfg.Config) (Storage, error) {
	slog.Debug("initializing object storage", "driver", c.StorageDriver)

	switch c.StorageDriver {
	case DriverS3:
		slog.Debug("s3 storage",
			"bucket", c.S3Bucket,
			"region", c.S3Region,
			"endpoint", c.S3Endpoint,
		)
		return NewS3Storage(context.Background(), S3Config{
			Region:          c.S3Region,
			Bucket:          c.S3Bucket,
			AccessKey:       c.S3AccessKey,
			SecretKey:       c.S3SecretKey,
			Endpoint:        c.S3Endpoint,
			Timeout:         c.StorageTimeout,
			TransferTimeout: c.StorageTransferTimeout,
		})

	case DriverGCS:
		slog.Debug("gcs storage",
			"bucket", c.GCSBucket,
			"emulator_host", c.GCSEmulatorHost,
		)
		return NewGCSStorage(context.Background(), GCSConfig{
			Bucket:          c.GCSBucket,
			Credentials:     c.GCSCredentials,
			EmulatorHost:    c.GCSEmulatorHost,
			Timeout:         c.StorageTimeout,
			TransferTimeout: c.StorageTransferTimeout,
		})

	default:
		return nil, fmt.Errorf("unknown storage driver: %s (supported: s3, gcs)", c.StorageDriver)
	}
}
