package jobqueue

import (
	"time"

	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/webhook"
)

const DefaultMaxRetries = 3

// RetryPolicy bounds how often a failed event is requeued
type RetryPolicy struct {
	MaxRetries int
}

// DefaultRetryPolicy allows three requeues
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: DefaultMaxRetries}
}

// ShouldRetry reports whether the event may be requeued once more
func (p RetryPolicy) ShouldRetry(event *webhook.WebhookEvent) bool {
	return event.Retries() < p.MaxRetries
}

// BackoffPolicy produces capped, doubling delays for store reconnection
type BackoffPolicy struct {
	Initial time.Duration
	Max     time.Duration
}

// NextDelay returns the delay before attempt (1-based)
func (p BackoffPolicy) NextDelay(attempt int) time.Duration {
	initial := p.Initial
	if initial <= 0 {
		initial = time.Second
	}
	maximum := p.Max
	if maximum <= 0 {
		maximum = 30 * time.Second
	}
	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maximum {
			return maximum
		}
	}
	if delay > maximum {
		return maximum
	}
	return delay
}
