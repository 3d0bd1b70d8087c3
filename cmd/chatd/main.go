package main

import (
	"context"
	"time"

	"github.com/hackai/chatd"
	"github.com/hackai/chatd/hackclub"
	"github.com/hackai/chatd/logger"
	"github.com/hackai/chatd/server"
	"github.com/hackai/chatd/stores"
)

func main() {
	cfg := chatd.LoadConfig()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var cache stores.ChatListCache = stores.NopChatListCache{}
	if cfg.RedisAddr != "" {
		redisCache, err := stores.NewRedisChatListCache(ctx, log)
		if err != nil {
			log.Fatal("failed to connect to redis", "error", err)
		}
		defer redisCache.Close()
		cache = redisCache
	}

	storeCfg := stores.NewStoreConfig(cfg.StoreType, cfg.DatabaseURL)
	store, err := stores.NewStore(storeCfg, log, cache)
	if err != nil {
		log.Fatal("failed to open store", "type", cfg.StoreType, "error", err)
	}
	defer store.Close()

	client := hackclub.NewClient(cfg.BaseURL, log)

	catalog := hackclub.NewCatalog(client, log)
	if err := catalog.Start(ctx); err != nil {
		log.Fatal("failed to load model catalog", "error", err)
	}
	defer catalog.Stop()

	srv := server.New(store, client, catalog, cfg.SessionSecret, log)
	if err := srv.Run(":" + cfg.Port); err != nil {
		log.Fatal("server exited", "error", err)
	}
}
