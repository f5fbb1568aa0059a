package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// dedupSentinel is the value stored under dedup markers
const dedupSentinel = "1"

// defaultPopBlock is how long a single BRPOP waits server-side before looping
const defaultPopBlock = 5 * time.Second

// RedisStore implements Store on Redis lists: LPUSH appends to the tail and BRPOP/RPOP take the head
type RedisStore struct {
	client    *redis.Client
	popBlock  time.Duration
	ownClient bool
}

// NewRedisStore wraps an existing client. The caller keeps ownership of the client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:   client,
		popBlock: defaultPopBlock,
	}
}

// NewRedisStoreFromURL dials a client from a redis:// URL and owns it
func NewRedisStoreFromURL(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	s := NewRedisStore(redis.NewClient(opts))
	s.ownClient = true
	return s, nil
}

// Client exposes the underlying client for collaborators sharing the connection
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

func (s *RedisStore) SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	// SET key 1 EX ttl NX
	ok, err := s.client.SetNX(ctx, key, dedupSentinel, ttl).Result()
	if err != nil {
		return false, mapRedisErr(err)
	}
	return ok, nil
}

func (s *RedisStore) Del(ctx context.Context, key string) error {
	return mapRedisErr(s.client.Del(ctx, key).Err())
}

func (s *RedisStore) Push(ctx context.Context, list string, value []byte) error {
	return mapRedisErr(s.client.LPush(ctx, list, value).Err())
}

func (s *RedisStore) PushHead(ctx context.Context, list string, value []byte) error {
	return mapRedisErr(s.client.RPush(ctx, list, value).Err())
}

// BlockingPop loops short BRPOP calls so a cancelled context is noticed between waits
func (s *RedisStore) BlockingPop(ctx context.Context, list string) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := s.client.BRPop(ctx, s.popBlock, list).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, mapRedisErr(err)
		}
		// BRPOP returns [key, value]
		if len(res) < 2 {
			continue
		}
		return []byte(res[1]), nil
	}
}

func (s *RedisStore) TryPop(ctx context.Context, list string) ([]byte, bool, error) {
	val, err := s.client.RPop(ctx, list).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, mapRedisErr(err)
	}
	return val, true, nil
}

func (s *RedisStore) Len(ctx context.Context, list string) (int64, error) {
	n, err := s.client.LLen(ctx, list).Result()
	return n, mapRedisErr(err)
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return mapRedisErr(s.client.Ping(ctx).Err())
}

// Close closes the client only when the store created it
func (s *RedisStore) Close() error {
	if !s.ownClient {
		return nil
	}
	return s.client.Close()
}

func mapRedisErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.ErrClosed) {
		return ErrStoreClosed
	}
	return err
}
