package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("ASSETCTL_TEST_STRING", "value")
	t.Setenv("ASSETCTL_TEST_BOOL", "false")
	t.Setenv("ASSETCTL_TEST_BAD_BOOL", "nope")
	t.Setenv("ASSETCTL_TEST_DURATION", "90s")
	t.Setenv("ASSETCTL_TEST_BAD_DURATION", "soon")

	assert.Equal(t, "value", envString("ASSETCTL_TEST_STRING", "def"))
	assert.Equal(t, "def", envString("ASSETCTL_TEST_UNSET", "def"))

	assert.False(t, envBool("ASSETCTL_TEST_BOOL", true))
	assert.True(t, envBool("ASSETCTL_TEST_BAD_BOOL", true))
	assert.True(t, envBool("ASSETCTL_TEST_UNSET", true))

	assert.Equal(t, 90*time.Second, envDuration("ASSETCTL_TEST_DURATION", time.Second))
	assert.Equal(t, time.Second, envDuration("ASSETCTL_TEST_BAD_DURATION", time.Second))
}

func TestLoadGCS(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "gcs")
	t.Setenv("GCS_BUCKET", "creator-academy.appspot.com")
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORAGE_TIMEOUT", "15s")

	cfg := Load()

	assert.Equal(t, "gcs", cfg.StorageDriver)
	assert.Equal(t, "creator-academy.appspot.com", cfg.GCSBucket)
	assert.Equal(t, 15*time.Second, cfg.StorageTimeout)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.True(t, cfg.DBAutoMigrate)
	assert.Equal(t, "Overlays & Transitions", cfg.OverlayCategory)
	assert.True(t, cfg.IsProduction())
}
