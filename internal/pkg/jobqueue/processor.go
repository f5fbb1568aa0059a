package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/webhook"
)

// Analyzer turns feedback text into a reply
type Analyzer interface {
	Analyze(ctx context.Context, text string) (string, error)
}

// Notifier sends a text message to a chat address
type Notifier interface {
	Send(ctx context.Context, to, text string) error
}

const (
	// ErrorReply is sent once an event has exhausted its retries
	ErrorReply = "❌ Sorry, I encountered an error analyzing your feedback. Please try again."

	textOnlySuffix = " I can only analyze text feedback. Please send your feedback as a text message."
)

var unsupportedReplies = map[webhook.EventType]string{
	webhook.EventTypeImage:    "📷" + textOnlySuffix,
	webhook.EventTypeAudio:    "🎵" + textOnlySuffix,
	webhook.EventTypeDocument: "📄" + textOnlySuffix,
	webhook.EventTypeVideo:    "🎬" + textOnlySuffix,
}

// UnsupportedReply returns the canned reply for a media type
func UnsupportedReply(t webhook.EventType) string {
	return unsupportedReplies[t]
}

// processEvent runs the side effects for one event. Any returned error is retryable.
func (w *Worker) processEvent(ctx context.Context, event *webhook.WebhookEvent) error {
	switch {
	case event.Type == webhook.EventTypeText:
		log.Infof("[Worker] Processing text %s from %s", event.MessageID, event.From)

		analysis, err := w.analyze(ctx, event.Text)
		if err != nil {
			return fmt.Errorf("analyze %s: %w", event.MessageID, err)
		}
		if err := w.send(ctx, event.From, analysis); err != nil {
			return fmt.Errorf("reply to %s: %w", event.From, err)
		}
		log.Infof("[Worker] Replied to %s", event.From)

	case event.Type == webhook.EventTypeStatus:
		log.Infof("[Worker] Status %s for %s (recipient %s)", event.Status, event.MessageID, event.RecipientID)

	case event.Type.IsMedia():
		log.Infof("[Worker] %s %s from %s is not supported", event.Type, event.MessageID, event.From)
		if err := w.send(ctx, event.From, UnsupportedReply(event.Type)); err != nil {
			return fmt.Errorf("reply to %s: %w", event.From, err)
		}

	default:
		log.Warnf("[Worker] Ignoring %s event %s: %s", event.Type, event.MessageID, string(event.Raw))
	}
	return nil
}

func (w *Worker) analyze(ctx context.Context, text string) (string, error) {
	callCtx, cancel := withOptionalTimeout(ctx, w.cfg.AnalyzerTimeout)
	defer cancel()
	return w.analyzer.Analyze(callCtx, text)
}

func (w *Worker) send(ctx context.Context, to, text string) error {
	callCtx, cancel := withOptionalTimeout(ctx, w.cfg.NotifierTimeout)
	defer cancel()
	return w.notifier.Send(callCtx, to, text)
}

// handleFailure requeues or dead-letters a failed event
func (w *Worker) handleFailure(ctx context.Context, event *webhook.WebhookEvent, procErr error) {
	log.Errorf("[Worker] Failed to process %s: %v", event.MessageID, procErr)

	if w.policy.ShouldRetry(event) {
		if err := w.queue.Requeue(ctx, event); err != nil {
			log.Errorf("[Worker] Failed to requeue %s: %v", event.MessageID, err)
		}
		return
	}

	if err := w.queue.MarkFailed(ctx, event, procErr.Error()); err != nil {
		log.Errorf("[Worker] Failed to dead-letter %s: %v", event.MessageID, err)
	}

	if event.From == "" {
		return
	}
	if err := w.send(ctx, event.From, ErrorReply); err != nil {
		log.Warnf("[Worker] Error reply to %s not delivered: %v", event.From, err)
	}
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
