package stores

import (
	"context"

	"github.com/hackai/chatd/models"
)

// LoadResultType classifies the outcome of LoadChat. It maps one-to-one to
// the HTTP status the server returns.
type LoadResultType string

const (
	LoadResultChat         LoadResultType = "chat"
	LoadResultUnauthorized LoadResultType = "unauthorized"
	LoadResultForbidden    LoadResultType = "forbidden"
	LoadResultNotFound     LoadResultType = "not-found"
)

// LoadResult is the outcome of loading a chat for a viewer. Chat is only
// set when Type is LoadResultChat; Editable is true only for the owner.
type LoadResult struct {
	Type     LoadResultType
	Chat     *models.Chat
	Editable bool
}

// ChatStore is the persistence contract both variants (server-backed
// postgres and local sqlite) must honor. Every multi-row mutation runs in
// one transaction so a concurrent reader never observes a partial part set.
type ChatStore interface {
	// CreateChat creates an empty chat with a fresh id for the owner.
	CreateChat(ctx context.Context, userID string) (models.Chat, error)

	// LoadChat returns the chat with messages and parts in order, applying
	// the visibility rules: a private chat yields unauthorized for an
	// anonymous viewer and forbidden for a non-owner.
	LoadChat(ctx context.Context, chatID, viewerID string) (LoadResult, error)

	// UpsertMessage creates or replaces one message and fully replaces its
	// part set in a single transaction.
	UpsertMessage(ctx context.Context, chatID string, msg models.Message) error

	// DeleteMessagesAfter deletes every message created strictly after the
	// target, and the target itself when inclusive is true (regenerate).
	DeleteMessagesAfter(ctx context.Context, chatID, messageID string, inclusive bool) error

	SetLastModel(ctx context.Context, chatID, model string) error
	RenameChat(ctx context.Context, chatID, icon, title string) error
	SetPublicity(ctx context.Context, chatID string, public bool) error
	DeleteChat(ctx context.Context, chatID string) error
	DeleteAllChats(ctx context.Context, userID string) error

	// ListChatsForUser returns the owner's chats, most recently updated
	// first, without their messages.
	ListChatsForUser(ctx context.Context, userID string) ([]models.Chat, error)

	Close() error
	Ping(ctx context.Context) error
}

// StoreConfig selects and configures a store variant.
type StoreConfig struct {
	Type       string            `json:"type"`       // "sqlite" or "postgres"
	Connection string            `json:"connection"` // DSN or file path
	Options    map[string]string `json:"options"`
}

// NewStoreConfig creates a new store configuration.
func NewStoreConfig(storeType, connection string) *StoreConfig {
	return &StoreConfig{
		Type:       storeType,
		Connection: connection,
		Options:    make(map[string]string),
	}
}

// WithOption adds an option to the store configuration.
func (c *StoreConfig) WithOption(key, value string) *StoreConfig {
	c.Options[key] = value
	return c
}
