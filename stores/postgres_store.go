package stores

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/hackai/chatd/logger"
)

// PostgresStore is the authoritative ChatStore. Every mutation runs inside
// a transaction so concurrent readers never observe a half-written message.
type PostgresStore struct {
	*gormStore
	dsn string
}

// NewPostgresStore creates a PostgreSQL-backed store from configuration.
func NewPostgresStore(config *StoreConfig, log *logger.Logger, cache ChatListCache) (*PostgresStore, error) {
	if config.Type != "postgres" {
		return nil, fmt.Errorf("invalid store type for PostgreSQL store: %s", config.Type)
	}

	db, err := gorm.Open(postgres.Open(config.Connection), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	base, err := newGormStore(db, log, cache)
	if err != nil {
		return nil, err
	}

	return &PostgresStore{gormStore: base, dsn: config.Connection}, nil
}

// NewPostgresStoreSimple creates a PostgreSQL store with just a DSN.
func NewPostgresStoreSimple(dsn string) (*PostgresStore, error) {
	return NewPostgresStore(NewStoreConfig("postgres", dsn), nil, nil)
}
