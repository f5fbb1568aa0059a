package webhook

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ingestTime = time.Unix(1800000000, 0)

func wrapMessages(messages ...string) []byte {
	return []byte(fmt.Sprintf(`{"object":"whatsapp_business_account","entry":[{"id":"e1","changes":[{"field":"messages","value":{"messaging_product":"whatsapp","messages":[%s]}}]}]}`, join(messages)))
}

func wrapStatuses(statuses ...string) []byte {
	return []byte(fmt.Sprintf(`{"entry":[{"changes":[{"value":{"statuses":[%s]}}]}]}`, join(statuses)))
}

func join(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}

func TestNormalize_Text(t *testing.T) {
	msg := `{"id":"m1","from":"555","timestamp":"1700000000","type":"text","text":{"body":"Great!"}}`

	ev := NormalizeAt(wrapMessages(msg), ingestTime)
	require.NotNil(t, ev)

	assert.Equal(t, EventTypeText, ev.Type)
	assert.Equal(t, "m1", ev.MessageID)
	assert.Equal(t, "555", ev.From)
	assert.Equal(t, "Great!", ev.Text)
	assert.Equal(t, int64(1700000000), ev.Timestamp)
	assert.Empty(t, ev.MediaURL)
	assert.Empty(t, ev.MimeType)
	assert.Empty(t, ev.Caption)
	assert.Empty(t, ev.RecipientID)
	assert.Empty(t, ev.Status)
	assert.JSONEq(t, msg, string(ev.Raw))
	assert.Zero(t, ev.RetryCount)
	assert.NoError(t, ev.Validate())
}

func TestNormalize_Media(t *testing.T) {
	tests := []struct {
		name    string
		msg     string
		want    EventType
		media   string
		mime    string
		caption string
	}{
		{
			name:    "image with caption",
			msg:     `{"id":"i1","from":"555","timestamp":"1700000000","type":"image","image":{"id":"media_789","mime_type":"image/jpeg","caption":"My photo"}}`,
			want:    EventTypeImage,
			media:   "media_789",
			mime:    "image/jpeg",
			caption: "My photo",
		},
		{
			name:  "audio without caption",
			msg:   `{"id":"a1","from":"555","timestamp":"1700000000","type":"audio","audio":{"id":"media_audio","mime_type":"audio/ogg"}}`,
			want:  EventTypeAudio,
			media: "media_audio",
			mime:  "audio/ogg",
		},
		{
			name:    "document",
			msg:     `{"id":"d1","from":"555","timestamp":"1700000000","type":"document","document":{"id":"media_doc","mime_type":"application/pdf","caption":"Invoice","filename":"inv.pdf"}}`,
			want:    EventTypeDocument,
			media:   "media_doc",
			mime:    "application/pdf",
			caption: "Invoice",
		},
		{
			name:  "video",
			msg:   `{"id":"v1","from":"555","timestamp":"1700000000","type":"video","video":{"id":"media_vid","mime_type":"video/mp4"}}`,
			want:  EventTypeVideo,
			media: "media_vid",
			mime:  "video/mp4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := NormalizeAt(wrapMessages(tt.msg), ingestTime)
			require.NotNil(t, ev)

			assert.Equal(t, tt.want, ev.Type)
			assert.Equal(t, "555", ev.From)
			assert.Equal(t, tt.media, ev.MediaURL)
			assert.Equal(t, tt.mime, ev.MimeType)
			assert.Equal(t, tt.caption, ev.Caption)
			assert.Empty(t, ev.Text)
			assert.Empty(t, ev.Status)
			assert.Empty(t, ev.RecipientID)
			assert.NoError(t, ev.Validate())
		})
	}
}

func TestNormalize_Status(t *testing.T) {
	st := `{"id":"s1","recipient_id":"555","status":"delivered","timestamp":"1700000001"}`

	ev := NormalizeAt(wrapStatuses(st), ingestTime)
	require.NotNil(t, ev)

	assert.Equal(t, EventTypeStatus, ev.Type)
	assert.Equal(t, "s1", ev.MessageID)
	assert.Equal(t, "555", ev.RecipientID)
	assert.Equal(t, "delivered", ev.Status)
	assert.Equal(t, int64(1700000001), ev.Timestamp)
	assert.Empty(t, ev.From)
	assert.Empty(t, ev.Text)
	assert.NoError(t, ev.Validate())
}

func TestNormalize_UnknownType(t *testing.T) {
	msg := `{"id":"x1","from":"555","timestamp":"1700000000","type":"sticker","sticker":{"id":"st1","mime_type":"image/webp"}}`

	ev := NormalizeAt(wrapMessages(msg), ingestTime)
	require.NotNil(t, ev)

	assert.Equal(t, EventTypeUnknown, ev.Type)
	assert.Equal(t, "x1", ev.MessageID)
	assert.Equal(t, "555", ev.From)
	assert.Empty(t, ev.Text)
	assert.Empty(t, ev.MediaURL)
	assert.Empty(t, ev.MimeType)
	assert.JSONEq(t, msg, string(ev.Raw))
	assert.NoError(t, ev.Validate())
}

func TestNormalize_UnknownMessageWinsOverStatus(t *testing.T) {
	body := []byte(`{"entry":[{"changes":[{"value":{
		"messages":[{"id":"x1","from":"555","type":"reaction"}],
		"statuses":[{"id":"s1","recipient_id":"555","status":"read"}]}}]}]}`)

	ev := NormalizeAt(body, ingestTime)
	require.NotNil(t, ev)
	assert.Equal(t, EventTypeUnknown, ev.Type)
	assert.Equal(t, "x1", ev.MessageID)
}

func TestNormalize_MessageInLaterEntry(t *testing.T) {
	body := []byte(`{"entry":[
		{"changes":[{"value":{"statuses":[{"id":"s1","recipient_id":"555","status":"sent"}]}}]},
		{"changes":[{"value":{"messages":[{"id":"m2","from":"777","type":"text","text":{"body":"hi"}}]}}]}]}`)

	ev := NormalizeAt(body, ingestTime)
	require.NotNil(t, ev)
	assert.Equal(t, EventTypeText, ev.Type)
	assert.Equal(t, "m2", ev.MessageID)
}

func TestNormalize_IgnoresUnusedEnvelopeFields(t *testing.T) {
	body := []byte(`{"object":42,"entry":[{"id":1234567890,"changes":[{"field":7,"value":{
		"messaging_product":false,
		"messages":[{"id":"m1","from":"555","type":"text","text":{"body":"hi"}}]}}]}]}`)

	ev := NormalizeAt(body, ingestTime)
	require.NotNil(t, ev)
	assert.Equal(t, EventTypeText, ev.Type)
	assert.Equal(t, "m1", ev.MessageID)
	assert.Equal(t, "hi", ev.Text)
}

func TestNormalize_NumericSender(t *testing.T) {
	ev := NormalizeAt(wrapMessages(`{"id":"m1","from":15551234567,"type":"text","text":{"body":"hi"}}`), ingestTime)
	require.NotNil(t, ev)
	assert.Equal(t, EventTypeText, ev.Type)
	assert.Equal(t, "15551234567", ev.From)
	assert.Equal(t, "hi", ev.Text)

	st := NormalizeAt(wrapStatuses(`{"id":"s1","recipient_id":555,"status":"read"}`), ingestTime)
	require.NotNil(t, st)
	assert.Equal(t, "555", st.RecipientID)
}

func TestNormalize_MalformedMessageIsUnknown(t *testing.T) {
	msg := `{"id":"m1","from":"555","timestamp":"1700000000","type":"text","text":"hi"}`

	ev := NormalizeAt(wrapMessages(msg), ingestTime)
	require.NotNil(t, ev)
	assert.Equal(t, EventTypeUnknown, ev.Type)
	assert.Equal(t, "m1", ev.MessageID)
	assert.Equal(t, "555", ev.From)
	assert.Equal(t, ingestTime.Unix(), ev.Timestamp)
	assert.JSONEq(t, msg, string(ev.Raw))
	assert.NoError(t, ev.Validate())

	assert.Nil(t, NormalizeAt(wrapMessages(`"not a message"`), ingestTime))
}

func TestNormalize_ReturnsNil(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"no entries", `{"entry":[]}`},
		{"empty value", `{"entry":[{"changes":[{"value":{}}]}]}`},
		{"empty lists", `{"entry":[{"changes":[{"value":{"messages":[],"statuses":[]}}]}]}`},
		{"invalid json", `{"entry":`},
		{"not an object", `"hello"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, NormalizeAt([]byte(tt.body), ingestTime))
		})
	}
}

func TestNormalize_TimestampFallback(t *testing.T) {
	tests := []struct {
		name string
		ts   string
		want int64
	}{
		{"numeric string", `"1700000000"`, 1700000000},
		{"json number", `1700000002`, 1700000002},
		{"garbage", `"yesterday"`, ingestTime.Unix()},
		{"zero", `"0"`, ingestTime.Unix()},
		{"negative", `-5`, ingestTime.Unix()},
		{"null", `null`, ingestTime.Unix()},
		{"object", `{"s":1}`, ingestTime.Unix()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := fmt.Sprintf(`{"id":"m1","from":"555","timestamp":%s,"type":"text","text":{"body":"x"}}`, tt.ts)
			ev := NormalizeAt(wrapMessages(msg), ingestTime)
			require.NotNil(t, ev)
			assert.Equal(t, tt.want, ev.Timestamp)
		})
	}

	t.Run("missing", func(t *testing.T) {
		ev := NormalizeAt(wrapMessages(`{"id":"m1","from":"555","type":"text","text":{"body":"x"}}`), ingestTime)
		require.NotNil(t, ev)
		assert.Equal(t, ingestTime.Unix(), ev.Timestamp)
	})
}

func TestNormalize_TextWithoutID(t *testing.T) {
	ev := NormalizeAt(wrapMessages(`{"from":"555","type":"text","text":{"body":"x"}}`), ingestTime)
	require.NotNil(t, ev)
	assert.Equal(t, "", ev.MessageID)
}

func TestWebhookEvent_JSONShape(t *testing.T) {
	ev := NewTextEvent("m1", "555", "Great!", 1700000000, json.RawMessage(`{"id":"m1"}`))

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "text", fields["type"])
	assert.Equal(t, "m1", fields["messageId"])
	assert.NotContains(t, fields, "mediaUrl")
	assert.NotContains(t, fields, "retryCount")
	assert.NotContains(t, fields, "recipientId")
}

func TestWebhookEvent_Validate(t *testing.T) {
	assert.Error(t, (&WebhookEvent{Type: EventTypeText, Text: "x", Status: "read"}).Validate())
	assert.Error(t, (&WebhookEvent{Type: EventTypeImage, MediaURL: "m", Text: "x"}).Validate())
	assert.Error(t, (&WebhookEvent{Type: EventTypeStatus, Status: "read", From: "555"}).Validate())
	assert.Error(t, (&WebhookEvent{Type: EventTypeUnknown, Caption: "c"}).Validate())
	assert.Error(t, (&WebhookEvent{Type: "sticker"}).Validate())

	var nilEvent *WebhookEvent
	assert.Error(t, nilEvent.Validate())
}

func TestNewFailedEvent(t *testing.T) {
	ev := NewTextEvent("m1", "555", "Great!", 1700000000, nil)
	at := time.UnixMilli(1700000000123)

	failed := NewFailedEvent(ev, "boom", at)
	assert.Equal(t, "m1", failed.MessageID)
	assert.Equal(t, "boom", failed.Error)
	assert.Equal(t, int64(1700000000123), failed.FailedAt)
	assert.NotEmpty(t, failed.FailureID)

	data, err := json.Marshal(failed)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "m1", fields["messageId"])
	assert.Equal(t, "boom", fields["error"])
	assert.Contains(t, fields, "failedAt")
}

func TestEventType_IsMedia(t *testing.T) {
	for _, mt := range []EventType{EventTypeImage, EventTypeAudio, EventTypeDocument, EventTypeVideo} {
		assert.True(t, mt.IsMedia(), string(mt))
	}
	for _, ot := range []EventType{EventTypeText, EventTypeStatus, EventTypeUnknown} {
		assert.False(t, ot.IsMedia(), string(ot))
	}
}
