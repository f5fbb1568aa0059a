package webhook

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Payload mirrors the WhatsApp Cloud API / 360dialog webhook body. Only the
// path down to messages and statuses is decoded; other fields are ignored so
// an unexpected type there cannot reject the whole body.
type Payload struct {
	Entry []Entry `json:"entry"`
}

// Entry is one entry of the webhook body
type Entry struct {
	Changes []Change `json:"changes"`
}

// Change carries the notification contents
type Change struct {
	Value Value `json:"value"`
}

// Value holds inbound messages and delivery statuses. Both are kept raw so the
// original fragment can travel with the normalized event.
type Value struct {
	Messages []json.RawMessage `json:"messages"`
	Statuses []json.RawMessage `json:"statuses"`
}

// InboundMessage is a message entry; exactly one per-kind payload is set according to Type
type InboundMessage struct {
	ID        LooseString   `json:"id"`
	From      LooseString   `json:"from"`
	Timestamp Timestamp     `json:"timestamp"`
	Type      LooseString   `json:"type"`
	Text      *TextContent  `json:"text,omitempty"`
	Image     *MediaContent `json:"image,omitempty"`
	Audio     *MediaContent `json:"audio,omitempty"`
	Document  *MediaContent `json:"document,omitempty"`
	Video     *MediaContent `json:"video,omitempty"`
}

// TextContent is the body of a text message
type TextContent struct {
	Body string `json:"body"`
}

// MediaContent is the media reference of an image/audio/document/video message
type MediaContent struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// MessageStatus is a delivery/read receipt
type MessageStatus struct {
	ID          LooseString `json:"id"`
	RecipientID LooseString `json:"recipient_id"`
	Status      LooseString `json:"status"`
	Timestamp   Timestamp   `json:"timestamp"`
}

// messageHeader is the part of a message read when the full shape does not decode
type messageHeader struct {
	ID   LooseString `json:"id"`
	From LooseString `json:"from"`
}

// LooseString accepts a JSON string or number. Any other value decodes to "".
type LooseString string

func (s *LooseString) UnmarshalJSON(data []byte) error {
	*s = ""
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = LooseString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		*s = LooseString(num.String())
	}
	return nil
}

// Timestamp accepts epoch seconds sent either as a JSON string or a number.
// Anything that is not a positive integer decodes to zero instead of failing the whole payload.
type Timestamp int64

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	*t = 0
	s := strings.TrimSpace(string(bytes.Trim(data, `"`)))
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return nil
	}
	*t = Timestamp(v)
	return nil
}

// media returns the media payload matching the declared type
func (m *InboundMessage) media(t EventType) *MediaContent {
	switch t {
	case EventTypeImage:
		return m.Image
	case EventTypeAudio:
		return m.Audio
	case EventTypeDocument:
		return m.Document
	case EventTypeVideo:
		return m.Video
	}
	return nil
}
