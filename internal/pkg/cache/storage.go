package cache

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/redis"
)

// LimiterDatabase keeps rate limiter counters apart from the job queue keys.
const LimiterDatabase = 1

// NewFiberStorage returns a fiber.Storage on the configured Redis server
// using the given logical database.
func NewFiberStorage(cfg Config, database int) fiber.Storage {
	return redis.New(redis.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Password: cfg.Password,
		Database: database,
		Reset:    false,
	})
}
