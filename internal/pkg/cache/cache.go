package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/config"
)

// NewClient builds the Redis client for the queue store. REDIS_URL wins over host/port.
func NewClient(cfg config.StoreConfig) (*redis.Client, error) {
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	// BRPOP blocks server-side; keep the socket read deadline above it
	opts.ReadTimeout = 10 * time.Second

	return redis.NewClient(opts), nil
}

// Ping logs the connection state and returns the ping error
func Ping(ctx context.Context, client *redis.Client) error {
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Warnf("[Cache] Could not connect to Redis at %s: %v", client.Options().Addr, err)
		return err
	}
	log.Infof("[Cache] Connected to Redis at %s: %s", client.Options().Addr, pong)
	return nil
}
