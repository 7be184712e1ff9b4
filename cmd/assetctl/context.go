package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/cochranfilms/coursecreatoracademy/internal/app"
	"github.com/cochranfilms/coursecreatoracademy/internal/config"
	"github.com/cochranfilms/coursecreatoracademy/internal/logger"
	"github.com/gofrs/flock"
	"github.com/jmoiron/sqlx"
)

const lockFileName = "assetctl.lock"

type commandContext struct {
	verbose *bool

	configOnce sync.Once
	config     *config.Config
}

func newCommandContext(verbose *bool) *commandContext {
	return &commandContext{verbose: verbose}
}

// ensureConfig loads the environment once and initializes logging.
// Invalid configuration exits the process.
func (c *commandContext) ensureConfig() *config.Config {
	c.configOnce.Do(func() {
		cfg := config.Load()
		logger.Init(cfg.IsDevelopment(), c.verbose != nil && *c.verbose, cfg.SentryDSN)
		c.config = cfg
	})
	return c.config
}

func (c *commandContext) withApp(fn func(*app.App) error) error {
	a, err := app.New(c.ensureConfig())
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("failed to close app", "error", err)
		}
	}()
	return fn(a)
}

func (c *commandContext) withDB(fn func(*sqlx.DB, *config.Config) error) error {
	cfg := c.ensureConfig()
	database, err := app.OpenDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close()
	return fn(database, cfg)
}

// withLock holds the run lock for fn, so two mutating runs never race on
// the same documents. Dry runs skip it.
func (c *commandContext) withLock(dryRun bool, fn func() error) error {
	if dryRun {
		return fn()
	}

	cfg := c.ensureConfig()
	if err := os.MkdirAll(cfg.ScratchDir, 0o755); err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	lockPath := filepath.Join(cfg.ScratchDir, lockFileName)
	lock := flock.New(lockPath)

	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another assetctl run holds %s", lockPath)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			slog.Warn("failed to release run lock", "path", lockPath, "error", err)
		}
	}()

	slog.Debug("acquired run lock", "path", lockPath)
	return fn()
}
