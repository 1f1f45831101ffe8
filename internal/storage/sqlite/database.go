// Package sqlite opens the embedded database used for local development and tests.
package sqlite

import (
	"fmt"
	"time"

	sqlitedriver "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/gravadigital/urna-api/internal/logger"
)

const MemoryDSN = ":memory:"

// Open opens an SQLite database at path with foreign keys enforced.
// SQLite serializes writers, so the pool holds a single connection.
func Open(path string, gormLog gormLogger.Interface) (*gorm.DB, error) {
	log := logger.Database()

	if gormLog == nil {
		gormLog = gormLogger.Default.LogMode(gormLogger.Silent)
	}

	db, err := gorm.Open(sqlitedriver.Open(path), &gorm.Config{
		Logger: gormLog,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	if path != MemoryDSN {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	log.Info("Opened SQLite database", "path", path)
	return db, nil
}

// OpenMemory opens a private in-memory database
func OpenMemory() (*gorm.DB, error) {
	return Open(MemoryDSN, nil)
}
