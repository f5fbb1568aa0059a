package router

import (
	"net"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/storage/redis"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/config"
)

// limiterDatabase keeps rate limit counters apart from the queue keys
const limiterDatabase = 1

// NewLimiterStorage returns Redis-backed storage for the rate limiter, or nil for the
// memory driver. The redis storage panics when the server is unreachable.
func NewLimiterStorage(cfg config.StoreConfig) fiber.Storage {
	if cfg.Driver != config.StoreDriverRedis {
		return nil
	}

	storageCfg := redis.Config{
		Host:     cfg.Host,
		Port:     parsePort(cfg.Port),
		Password: cfg.Password,
		Database: limiterDatabase,
		Reset:    false,
	}

	// the storage would take the database from the URL path, so the URL is split here
	if cfg.URL != "" {
		opts, err := goredis.ParseURL(cfg.URL)
		if err != nil {
			log.Warnf("[Router] Invalid REDIS_URL, rate limit counters kept in memory: %v", err)
			return nil
		}
		host, port, err := net.SplitHostPort(opts.Addr)
		if err != nil {
			log.Warnf("[Router] Invalid REDIS_URL address, rate limit counters kept in memory: %v", err)
			return nil
		}
		storageCfg.Host = host
		storageCfg.Port = parsePort(port)
		storageCfg.Username = opts.Username
		storageCfg.Password = opts.Password
		storageCfg.TLSConfig = opts.TLSConfig
	}

	return redis.New(storageCfg)
}

func parsePort(s string) int {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 6379
	}
	return port
}
