package jobqueue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/webhook"
)

// WorkerConfig holds the worker's policy knobs. Zero timeouts leave collaborator calls unbounded.
type WorkerConfig struct {
	MaxRetries      int
	AnalyzerTimeout time.Duration
	NotifierTimeout time.Duration
	Backoff         BackoffPolicy
}

// DefaultWorkerConfig returns the production defaults
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		MaxRetries:      DefaultMaxRetries,
		AnalyzerTimeout: 30 * time.Second,
		NotifierTimeout: 15 * time.Second,
		Backoff:         BackoffPolicy{Initial: time.Second, Max: 30 * time.Second},
	}
}

// Worker is the single consumer of the queue. Events are processed strictly one at a time.
type Worker struct {
	queue    *Queue
	analyzer Analyzer
	notifier Notifier
	policy   RetryPolicy
	cfg      WorkerConfig

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	sleep   func(ctx context.Context, d time.Duration)
}

// NewWorker creates a worker for queue
func NewWorker(queue *Queue, analyzer Analyzer, notifier Notifier, cfg WorkerConfig) *Worker {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Worker{
		queue:    queue,
		analyzer: analyzer,
		notifier: notifier,
		policy:   RetryPolicy{MaxRetries: cfg.MaxRetries},
		cfg:      cfg,
		sleep:    sleepCtx,
	}
}

// Start runs the worker loop in the background
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.running = true

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.Run(ctx)
	}()
}

// Stop stops waiting for new events and blocks until the in-flight event is finished
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	log.Info("[Worker] Stopping...")
	w.cancel()
	w.running = false
	w.wg.Wait()
	log.Info("[Worker] Stopped")
}

// IsRunning returns whether the background loop is active
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Run drains the queue until ctx is cancelled or the store is closed
func (w *Worker) Run(ctx context.Context) {
	log.Info("[Worker] Started, waiting for messages...")

	failures := 0
	for {
		if ctx.Err() != nil {
			return
		}

		event, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, ErrStoreClosed) {
				log.Warn("[Worker] Store closed, exiting")
				return
			}
			failures++
			delay := w.cfg.Backoff.NextDelay(failures)
			log.Errorf("[Worker] Dequeue failed (attempt %d), retrying in %s: %v", failures, delay, err)
			w.sleep(ctx, delay)
			continue
		}
		failures = 0

		// the event is finished even when Stop is called mid-flight
		w.handle(context.WithoutCancel(ctx), event)
	}
}

func (w *Worker) handle(ctx context.Context, event *webhook.WebhookEvent) {
	if err := w.processEvent(ctx, event); err != nil {
		w.handleFailure(ctx, event, err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
