package jobqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/webhook"
)

func TestRetryPolicy_ShouldRetry(t *testing.T) {
	policy := DefaultRetryPolicy()

	tests := []struct {
		retryCount int
		want       bool
	}{
		{0, true},
		{1, true},
		{2, true},
		{3, false},
		{4, false},
		{5, false},
	}

	for _, tt := range tests {
		ev := &webhook.WebhookEvent{Type: webhook.EventTypeText, RetryCount: tt.retryCount}
		assert.Equal(t, tt.want, policy.ShouldRetry(ev), "retryCount=%d", tt.retryCount)
	}

	// absent retry count
	assert.True(t, policy.ShouldRetry(&webhook.WebhookEvent{Type: webhook.EventTypeText}))
}

func TestRetryPolicy_DoesNotMutate(t *testing.T) {
	ev := &webhook.WebhookEvent{Type: webhook.EventTypeText, RetryCount: 2}
	DefaultRetryPolicy().ShouldRetry(ev)
	assert.Equal(t, 2, ev.RetryCount)
}

func TestRetryPolicy_Configurable(t *testing.T) {
	assert.False(t, RetryPolicy{MaxRetries: 0}.ShouldRetry(&webhook.WebhookEvent{}))
	assert.True(t, RetryPolicy{MaxRetries: 5}.ShouldRetry(&webhook.WebhookEvent{RetryCount: 4}))
}

func TestBackoffPolicy_NextDelay(t *testing.T) {
	policy := BackoffPolicy{Initial: 100 * time.Millisecond, Max: time.Second}

	assert.Equal(t, 100*time.Millisecond, policy.NextDelay(1))
	assert.Equal(t, 200*time.Millisecond, policy.NextDelay(2))
	assert.Equal(t, 400*time.Millisecond, policy.NextDelay(3))
	assert.Equal(t, 800*time.Millisecond, policy.NextDelay(4))
	assert.Equal(t, time.Second, policy.NextDelay(5))
	assert.Equal(t, time.Second, policy.NextDelay(50))

	defaults := BackoffPolicy{}
	assert.Equal(t, time.Second, defaults.NextDelay(1))
	assert.Equal(t, 30*time.Second, defaults.NextDelay(10))
}
