package dialog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/config"
)

// ErrNotConfigured is returned before any request when the API key is missing
var ErrNotConfigured = errors.New("DIALOG_API_KEY is not configured")

const apiKeyHeader = "D360-API-KEY"

// Client talks to the 360dialog WhatsApp API
type Client struct {
	APIKey           string
	MessagesURL      string
	WebhookConfigURL string

	HTTPClient *http.Client
}

type textBody struct {
	Body string `json:"body"`
}

type textMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	RecipientType    string   `json:"recipient_type"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

func NewClient(cfg config.DialogConfig) *Client {
	return &Client{
		APIKey:           strings.TrimSpace(cfg.APIKey),
		MessagesURL:      cfg.APIURL,
		WebhookConfigURL: cfg.WebhookConfigURL,
		HTTPClient: &http.Client{
			Timeout: time.Minute,
		},
	}
}

// Send delivers a plain text WhatsApp message to the given address
func (c *Client) Send(ctx context.Context, to, text string) error {
	if c.APIKey == "" {
		return ErrNotConfigured
	}

	msg := textMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: text},
	}
	if _, err := c.post(ctx, c.MessagesURL, msg); err != nil {
		return fmt.Errorf("send message to %s: %w", to, err)
	}
	log.Infof("[360dialog] Message sent to %s", to)
	return nil
}

// ConfigureWebhook registers the public webhook URL and returns the raw API response
func (c *Client) ConfigureWebhook(ctx context.Context, webhookURL string) ([]byte, error) {
	if c.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(webhookURL) == "" {
		return nil, errors.New("webhook url is required")
	}
	body, err := c.post(ctx, c.WebhookConfigURL, map[string]string{"url": webhookURL})
	if err != nil {
		return nil, fmt.Errorf("configure webhook: %w", err)
	}
	return body, nil
}

func (c *Client) post(ctx context.Context, url string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Errorf("[360dialog] API error: status=%d body=%s", resp.StatusCode, string(body))
		return body, fmt.Errorf("360dialog api failed: status=%d", resp.StatusCode)
	}
	return body, nil
}
