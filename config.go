package chatd

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds the service configuration, loaded from the environment with
// an optional .env file for local development.
type Config struct {
	StoreType     string // "postgres" or "sqlite"
	DatabaseURL   string // DSN for postgres, file path for sqlite
	RedisAddr     string // empty disables the chat-list cache
	SessionSecret string
	BaseURL       string // upstream proxy base URL
	Port          string
	LogMode       string // "dev" or "prod"
}

// LoadConfig reads the environment. Missing optional values get the
// defaults a local deployment wants.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		StoreType:     getEnv("STORE_TYPE", "sqlite"),
		DatabaseURL:   getEnv("DATABASE_URL", "chats.sqlite"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		SessionSecret: getEnv("SESSION_SECRET", "insecure-dev-secret"),
		BaseURL:       os.Getenv("HACKCLUB_BASE_URL"),
		Port:          getEnv("PORT", "8080"),
		LogMode:       getEnv("LOG_MODE", "dev"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// WithStore overrides the persistence settings.
func (c *Config) WithStore(storeType, databaseURL string) *Config {
	c.StoreType = storeType
	c.DatabaseURL = databaseURL
	return c
}

// WithBaseURL overrides the upstream proxy address.
func (c *Config) WithBaseURL(baseURL string) *Config {
	c.BaseURL = baseURL
	return c
}

// WithPort overrides the listen port.
func (c *Config) WithPort(port string) *Config {
	c.Port = port
	return c
}
