package cache

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/tooldashai/tooldash/internal/pkg/env"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// Config describes the Redis connection shared by the job queue, the
// webhook locks and the rate limiter storage.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ConfigFromEnv reads CACHE_HOST, CACHE_PORT, CACHE_PASSWORD and CACHE_DB.
func ConfigFromEnv() Config {
	port, err := strconv.Atoi(env.GetEnv("CACHE_PORT", "6379"))
	if err != nil {
		port = 6379
	}
	db, err := strconv.Atoi(env.GetEnv("CACHE_DB", "0"))
	if err != nil {
		db = 0
	}
	return Config{
		Host:     env.GetEnv("CACHE_HOST", "localhost"),
		Port:     port,
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       db,
	}
}

// Addr returns host:port.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SetupCache initializes the connection to the Redis server
func SetupCache() {
	cfg := ConfigFromEnv()
	client = redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Printf("Warning: Could not connect to Redis cache: %v", err)
	} else {
		log.Printf("Successfully connected to Redis cache: %s", pong)
	}
}

// SetClient replaces the shared client, e.g. with one pointing at a test server.
func SetClient(c *redis.Client) {
	client = c
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}
