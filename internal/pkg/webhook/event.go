package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType discriminates the payload shape of a WebhookEvent
type EventType string

const (
	EventTypeText     EventType = "text"
	EventTypeStatus   EventType = "status"
	EventTypeImage    EventType = "image"
	EventTypeAudio    EventType = "audio"
	EventTypeDocument EventType = "document"
	EventTypeVideo    EventType = "video"
	EventTypeUnknown  EventType = "unknown"
)

// IsMedia reports whether the type carries a media reference
func (t EventType) IsMedia() bool {
	switch t {
	case EventTypeImage, EventTypeAudio, EventTypeDocument, EventTypeVideo:
		return true
	}
	return false
}

// WebhookEvent is the canonical unit of work moved through the queue.
// Field names are camelCase so queue entries stay readable by other consumers of the same lists.
type WebhookEvent struct {
	Type        EventType       `json:"type"`
	MessageID   string          `json:"messageId"`
	Timestamp   int64           `json:"timestamp"`
	From        string          `json:"from,omitempty"`
	Text        string          `json:"text,omitempty"`
	MediaURL    string          `json:"mediaUrl,omitempty"`
	MimeType    string          `json:"mimeType,omitempty"`
	Caption     string          `json:"caption,omitempty"`
	RecipientID string          `json:"recipientId,omitempty"`
	Status      string          `json:"status,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
	RetryCount  int             `json:"retryCount,omitempty"`
}

// FailedEvent is a WebhookEvent that exhausted its retries, as written to the dead-letter list
type FailedEvent struct {
	WebhookEvent
	FailureID string `json:"failureId"`
	Error     string `json:"error"`
	FailedAt  int64  `json:"failedAt"` // epoch milliseconds
}

// NewTextEvent builds a text event
func NewTextEvent(id, from, text string, ts int64, raw json.RawMessage) *WebhookEvent {
	return &WebhookEvent{
		Type:      EventTypeText,
		MessageID: id,
		Timestamp: ts,
		From:      from,
		Text:      text,
		Raw:       raw,
	}
}

// NewMediaEvent builds an image/audio/document/video event. Caption may be empty.
func NewMediaEvent(t EventType, id, from, mediaID, mimeType, caption string, ts int64, raw json.RawMessage) *WebhookEvent {
	return &WebhookEvent{
		Type:      t,
		MessageID: id,
		Timestamp: ts,
		From:      from,
		MediaURL:  mediaID,
		MimeType:  mimeType,
		Caption:   caption,
		Raw:       raw,
	}
}

// NewStatusEvent builds a delivery status event
func NewStatusEvent(id, recipientID, status string, ts int64, raw json.RawMessage) *WebhookEvent {
	return &WebhookEvent{
		Type:        EventTypeStatus,
		MessageID:   id,
		Timestamp:   ts,
		RecipientID: recipientID,
		Status:      status,
		Raw:         raw,
	}
}

// NewUnknownEvent keeps only identity fields of a message whose type is not handled
func NewUnknownEvent(id, from string, ts int64, raw json.RawMessage) *WebhookEvent {
	return &WebhookEvent{
		Type:      EventTypeUnknown,
		MessageID: id,
		Timestamp: ts,
		From:      from,
		Raw:       raw,
	}
}

// NewFailedEvent wraps an event with the failure description and time
func NewFailedEvent(e *WebhookEvent, errText string, at time.Time) *FailedEvent {
	return &FailedEvent{
		WebhookEvent: *e,
		FailureID:    uuid.New().String(),
		Error:        errText,
		FailedAt:     at.UnixMilli(),
	}
}

func (e *WebhookEvent) hasText() bool {
	return e.Text != ""
}

func (e *WebhookEvent) hasMedia() bool {
	return e.MediaURL != "" || e.MimeType != "" || e.Caption != ""
}

func (e *WebhookEvent) hasStatus() bool {
	return e.RecipientID != "" || e.Status != ""
}

// Validate checks that only the field group matching Type is populated
func (e *WebhookEvent) Validate() error {
	if e == nil {
		return fmt.Errorf("event is nil")
	}

	text, media, status := e.hasText(), e.hasMedia(), e.hasStatus()
	switch {
	case e.Type == EventTypeText:
		if media || status {
			return fmt.Errorf("text event %q carries media or status fields", e.MessageID)
		}
	case e.Type.IsMedia():
		if text || status {
			return fmt.Errorf("%s event %q carries text or status fields", e.Type, e.MessageID)
		}
	case e.Type == EventTypeStatus:
		if text || media || e.From != "" {
			return fmt.Errorf("status event %q carries message fields", e.MessageID)
		}
	case e.Type == EventTypeUnknown:
		if text || media || status {
			return fmt.Errorf("unknown event %q carries content fields", e.MessageID)
		}
	default:
		return fmt.Errorf("unsupported event type %q", e.Type)
	}
	return nil
}

// Retries returns the retry count, zero when never requeued
func (e *WebhookEvent) Retries() int {
	if e.RetryCount < 0 {
		return 0
	}
	return e.RetryCount
}
