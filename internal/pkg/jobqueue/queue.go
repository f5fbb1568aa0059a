package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/webhook"
)

const (
	// Store keys
	QueueKey    = "webhook:queue"
	FailedKey   = "webhook:failed"
	DedupPrefix = "msg:"

	// Queue settings
	DefaultDedupTTL = 5 * time.Minute
)

// QueueConfig names the lists and the dedup window
type QueueConfig struct {
	QueueKey    string
	FailedKey   string
	DedupPrefix string
	DedupTTL    time.Duration
}

// DefaultQueueConfig returns the standard key layout with a 5 minute dedup window
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		QueueKey:    QueueKey,
		FailedKey:   FailedKey,
		DedupPrefix: DedupPrefix,
		DedupTTL:    DefaultDedupTTL,
	}
}

// QueueStats is a snapshot of list lengths
type QueueStats struct {
	Pending int64 `json:"pending"`
	Failed  int64 `json:"failed"`
}

// Queue is a deduplicating FIFO of webhook events with a dead-letter list
type Queue struct {
	store Store
	cfg   QueueConfig
	now   func() time.Time
}

// NewQueue creates a queue over store. Zero config fields fall back to defaults.
func NewQueue(store Store, cfg QueueConfig) *Queue {
	def := DefaultQueueConfig()
	if cfg.QueueKey == "" {
		cfg.QueueKey = def.QueueKey
	}
	if cfg.FailedKey == "" {
		cfg.FailedKey = def.FailedKey
	}
	if cfg.DedupPrefix == "" {
		cfg.DedupPrefix = def.DedupPrefix
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = def.DedupTTL
	}

	return &Queue{
		store: store,
		cfg:   cfg,
		now:   time.Now,
	}
}

// Store returns the backing store
func (q *Queue) Store() Store {
	return q.store
}

// Config returns the effective configuration
func (q *Queue) Config() QueueConfig {
	return q.cfg
}

// Enqueue pushes an event unless its message id was already seen inside the dedup window.
// Events without a message id are always pushed.
func (q *Queue) Enqueue(ctx context.Context, event *webhook.WebhookEvent) (bool, error) {
	if event == nil {
		return false, fmt.Errorf("cannot enqueue nil event")
	}

	if event.MessageID == "" {
		if err := q.push(ctx, event); err != nil {
			return false, err
		}
		log.Infof("[JobQueue] Queued %s event (no messageId)", event.Type)
		return true, nil
	}

	isNew, err := q.store.SetNX(ctx, q.dedupKey(event.MessageID), q.cfg.DedupTTL)
	if err != nil {
		return false, fmt.Errorf("failed to set dedup marker for %s: %w", event.MessageID, err)
	}
	if !isNew {
		log.Infof("[JobQueue] Duplicate %s dropped", event.MessageID)
		return false, nil
	}

	if err := q.push(ctx, event); err != nil {
		// release the marker so a redelivery of the same message is not dropped
		if delErr := q.store.Del(context.WithoutCancel(ctx), q.dedupKey(event.MessageID)); delErr != nil {
			log.Errorf("[JobQueue] Failed to release dedup marker for %s: %v", event.MessageID, delErr)
		}
		return false, err
	}
	log.Infof("[JobQueue] Queued %s event %s", event.Type, event.MessageID)
	return true, nil
}

// Dequeue blocks until the next event is available. Entries that cannot be decoded
// are moved to the dead-letter list and skipped.
func (q *Queue) Dequeue(ctx context.Context) (*webhook.WebhookEvent, error) {
	for {
		data, err := q.store.BlockingPop(ctx, q.cfg.QueueKey)
		if err != nil {
			return nil, err
		}

		var event webhook.WebhookEvent
		if err := json.Unmarshal(data, &event); err != nil {
			log.Errorf("[JobQueue] Dropping malformed queue entry: %v", err)
			q.deadLetterRaw(ctx, data, err)
			continue
		}
		return &event, nil
	}
}

// MarkFailed appends the event with its error to the dead-letter list
func (q *Queue) MarkFailed(ctx context.Context, event *webhook.WebhookEvent, errText string) error {
	failed := webhook.NewFailedEvent(event, errText, q.now())
	data, err := json.Marshal(failed)
	if err != nil {
		return fmt.Errorf("failed to marshal failed event %s: %w", event.MessageID, err)
	}
	if err := q.store.Push(ctx, q.cfg.FailedKey, data); err != nil {
		return fmt.Errorf("failed to dead-letter %s: %w", event.MessageID, err)
	}
	log.Warnf("[JobQueue] Dead-lettered %s event %s after %d retries: %s", event.Type, event.MessageID, event.Retries(), errText)
	return nil
}

// Requeue increments the retry count and appends the event to the tail, bypassing dedup
func (q *Queue) Requeue(ctx context.Context, event *webhook.WebhookEvent) error {
	event.RetryCount = event.Retries() + 1
	if err := q.push(ctx, event); err != nil {
		return err
	}
	log.Infof("[JobQueue] Requeued %s event %s (retry %d)", event.Type, event.MessageID, event.RetryCount)
	return nil
}

// Stats returns the pending and dead-letter list lengths
func (q *Queue) Stats(ctx context.Context) (QueueStats, error) {
	pending, err := q.store.Len(ctx, q.cfg.QueueKey)
	if err != nil {
		return QueueStats{}, fmt.Errorf("failed to read queue length: %w", err)
	}
	failed, err := q.store.Len(ctx, q.cfg.FailedKey)
	if err != nil {
		return QueueStats{}, fmt.Errorf("failed to read dead-letter length: %w", err)
	}
	return QueueStats{Pending: pending, Failed: failed}, nil
}

func (q *Queue) push(ctx context.Context, event *webhook.WebhookEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.MessageID, err)
	}
	if err := q.store.Push(ctx, q.cfg.QueueKey, data); err != nil {
		return fmt.Errorf("failed to push event %s: %w", event.MessageID, err)
	}
	return nil
}

func (q *Queue) dedupKey(messageID string) string {
	return q.cfg.DedupPrefix + messageID
}

// deadLetterRaw keeps an undecodable entry for operators
func (q *Queue) deadLetterRaw(ctx context.Context, data []byte, cause error) {
	raw := json.RawMessage(data)
	if !json.Valid(data) {
		quoted, _ := json.Marshal(string(data))
		raw = quoted
	}
	ev := webhook.NewUnknownEvent("", "", q.now().Unix(), raw)
	failed := webhook.NewFailedEvent(ev, "malformed queue entry: "+cause.Error(), q.now())
	out, err := json.Marshal(failed)
	if err != nil {
		log.Errorf("[JobQueue] Failed to marshal malformed entry: %v", err)
		return
	}
	if err := q.store.Push(ctx, q.cfg.FailedKey, out); err != nil {
		log.Errorf("[JobQueue] Failed to dead-letter malformed entry: %v", err)
	}
}
