package stores

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hackai/chatd/logger"
)

// SQLiteStore is the single-process local ChatStore. It keeps the same
// schema and delete-then-reinsert semantics as PostgresStore, but SQLite's
// single-writer model means it offers no cross-process guarantees. Use it
// for local and offline deployments only.
type SQLiteStore struct {
	*gormStore
	path string
}

// NewSQLiteStore creates a SQLite-backed store from configuration.
func NewSQLiteStore(config *StoreConfig, log *logger.Logger, cache ChatListCache) (*SQLiteStore, error) {
	if config.Type != "sqlite" {
		return nil, fmt.Errorf("invalid store type for SQLite store: %s", config.Type)
	}

	db, err := gorm.Open(sqlite.Open(config.Connection), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}

	// SQLite leaves foreign keys off unless asked.
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	base, err := newGormStore(db, log, cache)
	if err != nil {
		return nil, err
	}

	return &SQLiteStore{gormStore: base, path: config.Connection}, nil
}

// NewSQLiteStoreSimple creates a SQLite store with just a file path.
func NewSQLiteStoreSimple(path string) (*SQLiteStore, error) {
	return NewSQLiteStore(NewStoreConfig("sqlite", path), nil, nil)
}
