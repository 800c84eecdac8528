// Package store is the persistence layer: a thin, semantic query surface
// over a single-writer SQLite database. It is the only package that imports
// gorm directly; every other package talks to a canvas in terms of Person,
// Project, Tile and HistoryChange values.
package store

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wplace-tools/pixelwatch/internal/models"
)

// Store wraps a GORM handle bound to a single SQLite file. The teacher's
// production stack pointed this at Dolt over MySQL; pixelwatch is a
// single-process daemon with no concurrent writers to coordinate with, so a
// local file is enough and removes an entire deployment dependency.
type Store struct {
	db *gorm.DB
}

// Open connects to the SQLite database at path, creating it if absent.
// Pass ":memory:" for an ephemeral, process-local database (used by tests).
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("store: underlying handle for %s: %w", path, err)
	}
	// One connection for every query: writes are serialized, and reads
	// wait their turn on the same connection.
	sqlDB.SetMaxOpenConns(1)

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("store: underlying handle: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}

// DB returns the underlying GORM handle. It exists for other packages'
// tests that need to seed rows this package has no semantic operation for
// (e.g. creating a Person); production code should go through Store's
// named operations instead.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// AllModels returns every model migrated by AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&models.Person{},
		&models.Project{},
		&models.Tile{},
		&models.TileProject{},
		&models.HistoryChange{},
	}
}

// AutoMigrate creates or updates all tables.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("store: auto-migrate: %w", err)
	}
	return nil
}
