package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStorage implements Storage on Google Cloud Storage, which also backs
// Firebase Storage buckets.
type GCSStorage struct {
	client          *gcs.Client
	bucket          *gcs.BucketHandle
	name            string
	timeout         time.Duration
	transferTimeout time.Duration
}

type GCSConfig struct {
	Bucket          string
	Credentials     string // service account file path or inline JSON; empty uses ADC
	EmulatorHost    string // optional fake-gcs-server endpoint
	Timeout         time.Duration
	TransferTimeout time.Duration
}

func NewGCSStorage(ctx context.Context, cfg GCSConfig) (*GCSStorage, error) {
	client, err := gcs.NewClient(ctx, gcsClientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	s := &GCSStorage{
		client:          client,
		bucket:          client.Bucket(cfg.Bucket),
		name:            cfg.Bucket,
		timeout:         withDefault(cfg.Timeout, 30*time.Second),
		transferTimeout: withDefault(cfg.TransferTimeout, 30*time.Minute),
	}

	checkCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.bucket.Attrs(checkCtx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("bucket %q is not accessible: %w", cfg.Bucket, err)
	}

	return s, nil
}

func gcsClientOptions(cfg GCSConfig) []option.ClientOption {
	if host := strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/"); host != "" {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", host)
		return []option.ClientOption{option.WithoutAuthentication()}
	}

	creds := strings.TrimSpace(cfg.Credentials)
	switch {
	case creds == "":
		return []option.ClientOption{option.WithScopes(gcs.ScopeReadWrite)}
	case strings.HasPrefix(creds, "{"):
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds)), option.WithScopes(gcs.ScopeReadWrite)}
	default:
		return []option.ClientOption{option.WithCredentialsFile(creds), option.WithScopes(gcs.ScopeReadWrite)}
	}
}

func (s *GCSStorage) List(ctx context.Context, prefix string) ([]Object, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	it := s.bucket.Objects(ctx, &gcs.Query{Prefix: prefix})
	var objects []Object
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list GCS prefix %q: %w", prefix, err)
		}
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		objects = append(objects, Object{
			Key:     attrs.Name,
			Size:    attrs.Size,
			Updated: attrs.Updated,
		})
	}
	return objects, nil
}

func (s *GCSStorage) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.bucket.Object(key).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat GCS object %q: %w", key, err)
}

func (s *GCSStorage) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, s.transferTimeout)
	defer cancel()

	w := s.bucket.Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

func (s *GCSStorage) Download(ctx context.Context, key string, w io.Writer) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.transferTimeout)
	defer cancel()

	r, err := s.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return 0, fmt.Errorf("failed to open GCS reader: %w", err)
	}
	defer r.Close()

	n, err := io.Copy(w, r)
	if err != nil {
		return n, fmt.Errorf("failed to read GCS object %q: %w", key, err)
	}
	return n, nil
}

func (s *GCSStorage) Copy(ctx context.Context, src, dst string) error {
	ctx, cancel := context.WithTimeout(ctx, s.transferTimeout)
	defer cancel()

	_, err := s.bucket.Object(dst).CopierFrom(s.bucket.Object(src)).Run(ctx)
	if err != nil {
		return fmt.Errorf("copy %s -> %s: %w", src, dst, err)
	}
	return nil
}

func (s *GCSStorage) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.bucket.Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", key, s.name, err)
	}
	return nil
}

func (s *GCSStorage) Close() error {
	return s.client.Close()
}
