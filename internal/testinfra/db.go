// Package testinfra provides an in-memory storage harness for tests
// that exercise gorm-backed repositories without a running Postgres.
package testinfra

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/seawatch/trackwatch/internal/domain"
)

// NewDB opens a fresh in-memory SQLite database, migrates every
// persisted model, and registers cleanup on t. Callers get full
// isolation between tests without a shared file or external service.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening in-memory sqlite: %v", err)
	}

	if err := db.AutoMigrate(
		&domain.VesselLatest{},
		&domain.VesselPosition{},
		&domain.Alert{},
		&domain.AlertCooldown{},
	); err != nil {
		t.Fatalf("migrating schema: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}
