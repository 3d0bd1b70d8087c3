package stores

import (
	"fmt"

	"github.com/hackai/chatd/logger"
)

// NewStore creates a chat store based on the configuration.
func NewStore(config *StoreConfig, log *logger.Logger, cache ChatListCache) (ChatStore, error) {
	switch config.Type {
	case "sqlite":
		return NewSQLiteStore(config, log, cache)
	case "postgres":
		return NewPostgresStore(config, log, cache)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}

// NewSQLiteStoreDefault creates a SQLite store with default settings.
func NewSQLiteStoreDefault() (ChatStore, error) {
	return NewSQLiteStoreSimple("chats.sqlite")
}

// NewPostgresStoreDefault creates a PostgreSQL store from connection
// parameters. You would typically get these from environment variables.
func NewPostgresStoreDefault(host, user, password, dbname string, port int) (ChatStore, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		host, user, password, dbname, port)
	return NewPostgresStoreSimple(dsn)
}
