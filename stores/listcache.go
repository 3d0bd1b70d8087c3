package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hackai/chatd/logger"
	"github.com/hackai/chatd/models"
)

// ChatListCache caches per-user chat lists. Implementations must treat
// every miss or backend error as a miss; the database stays authoritative.
type ChatListCache interface {
	Get(ctx context.Context, userID string) ([]models.Chat, bool)
	Set(ctx context.Context, userID string, chats []models.Chat)
	Invalidate(ctx context.Context, userID string)
}

// NopChatListCache is the cache used when no Redis is configured. Every
// lookup misses.
type NopChatListCache struct{}

func (NopChatListCache) Get(ctx context.Context, userID string) ([]models.Chat, bool) {
	return nil, false
}
func (NopChatListCache) Set(ctx context.Context, userID string, chats []models.Chat) {}
func (NopChatListCache) Invalidate(ctx context.Context, userID string)               {}

const chatListTTL = 10 * time.Minute

// RedisChatListCache keeps serialized chat lists under user-chats:<userID>.
type RedisChatListCache struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisChatListCache dials Redis using REDIS_ADDR, REDIS_PASSWORD and
// REDIS_DB from the environment and pings it before returning.
func NewRedisChatListCache(ctx context.Context, log *logger.Logger) (*RedisChatListCache, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is not set")
	}
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &db); err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	if log == nil {
		log = logger.NewNop()
	}
	log.Info("connected to redis", "addr", addr)
	return &RedisChatListCache{client: client, log: log}, nil
}

func chatListKey(userID string) string { return "user-chats:" + userID }

func (c *RedisChatListCache) Get(ctx context.Context, userID string) ([]models.Chat, bool) {
	data, err := c.client.Get(ctx, chatListKey(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("chat list cache read failed", "user_id", userID, "error", err)
		}
		return nil, false
	}
	var chats []models.Chat
	if err := json.Unmarshal(data, &chats); err != nil {
		c.log.Warn("chat list cache entry corrupt, dropping", "user_id", userID, "error", err)
		c.client.Del(ctx, chatListKey(userID))
		return nil, false
	}
	return chats, true
}

func (c *RedisChatListCache) Set(ctx context.Context, userID string, chats []models.Chat) {
	data, err := json.Marshal(chats)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, chatListKey(userID), data, chatListTTL).Err(); err != nil {
		c.log.Warn("chat list cache write failed", "user_id", userID, "error", err)
	}
}

func (c *RedisChatListCache) Invalidate(ctx context.Context, userID string) {
	if err := c.client.Del(ctx, chatListKey(userID)).Err(); err != nil {
		c.log.Warn("chat list cache invalidation failed", "user_id", userID, "error", err)
	}
}

// Close releases the underlying Redis connection.
func (c *RedisChatListCache) Close() error { return c.client.Close() }
