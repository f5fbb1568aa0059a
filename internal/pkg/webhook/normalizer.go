package webhook

import (
	"encoding/json"
	"time"
)

// Normalize converts a raw webhook body into a WebhookEvent using the current time
// as fallback timestamp. It returns nil when the body holds neither a message nor a status.
func Normalize(body []byte) *WebhookEvent {
	return NormalizeAt(body, time.Now())
}

// NormalizeAt is Normalize with an explicit ingestion time
func NormalizeAt(body []byte, now time.Time) *WebhookEvent {
	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}

	if raw := firstMessage(&payload); raw != nil {
		var msg InboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			// keep a message of unexpected shape as unknown so it is still acknowledged
			var head messageHeader
			if err := json.Unmarshal(raw, &head); err != nil {
				return nil
			}
			return NewUnknownEvent(string(head.ID), string(head.From), now.Unix(), raw)
		}
		return fromMessage(&msg, raw, now)
	}

	if raw := firstStatus(&payload); raw != nil {
		var st MessageStatus
		if err := json.Unmarshal(raw, &st); err != nil {
			return nil
		}
		return NewStatusEvent(string(st.ID), string(st.RecipientID), string(st.Status), resolveTimestamp(st.Timestamp, now), raw)
	}

	return nil
}

func fromMessage(msg *InboundMessage, raw json.RawMessage, now time.Time) *WebhookEvent {
	ts := resolveTimestamp(msg.Timestamp, now)
	t := EventType(msg.Type)
	id, from := string(msg.ID), string(msg.From)

	switch {
	case t == EventTypeText:
		body := ""
		if msg.Text != nil {
			body = msg.Text.Body
		}
		return NewTextEvent(id, from, body, ts, raw)
	case t.IsMedia():
		media := msg.media(t)
		if media == nil {
			media = &MediaContent{}
		}
		return NewMediaEvent(t, id, from, media.ID, media.MimeType, media.Caption, ts, raw)
	default:
		return NewUnknownEvent(id, from, ts, raw)
	}
}

func firstMessage(p *Payload) json.RawMessage {
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			if len(change.Value.Messages) > 0 {
				return change.Value.Messages[0]
			}
		}
	}
	return nil
}

func firstStatus(p *Payload) json.RawMessage {
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			if len(change.Value.Statuses) > 0 {
				return change.Value.Statuses[0]
			}
		}
	}
	return nil
}

func resolveTimestamp(ts Timestamp, now time.Time) int64 {
	if ts > 0 {
		return int64(ts)
	}
	return now.Unix()
}
