package dbtest

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"storefront-backend/config"
	"storefront-backend/database"
)

// Open opens a migrated sqlite database in a per-test temp dir.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.Open(config.Database{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
