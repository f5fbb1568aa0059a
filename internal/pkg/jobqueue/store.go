package jobqueue

import (
	"context"
	"errors"
	"time"
)

// ErrStoreClosed is returned by blocking operations once the store has been shut down
var ErrStoreClosed = errors.New("jobqueue: store closed")

// Store is the key-value/list backend of the queue. Every method is a single atomic
// store operation; the queue adds no locking of its own.
//
// Lists have a tail (Push) and a head (BlockingPop/TryPop). PushHead puts an item back
// in front of the head so it is popped next.
type Store interface {
	// SetNX sets key to a sentinel with the given TTL only if it does not exist.
	// It reports whether the key was created.
	SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
	Push(ctx context.Context, list string, value []byte) error
	PushHead(ctx context.Context, list string, value []byte) error
	// BlockingPop waits until an item is available, ctx is done or the store is closed.
	BlockingPop(ctx context.Context, list string) ([]byte, error)
	// TryPop pops the head if present without waiting.
	TryPop(ctx context.Context, list string) ([]byte, bool, error)
	Len(ctx context.Context, list string) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}
