package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/cochranfilms/coursecreatoracademy/internal/db"
	"github.com/jmoiron/sqlx"
)

// MustOpenDB opens a migrated sqlite database under t.TempDir and
// registers cleanup.
func MustOpenDB(t testing.TB) *sqlx.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "store.db")
	database, err := db.Init("sqlite", path)
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() {
		database.Close()
	})

	if err := db.RunMigrations(database.DB, "sqlite"); err != nil {
		t.Fatalf("db.RunMigrations: %v", err)
	}
	return database
}
