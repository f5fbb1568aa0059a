package analyzer

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

// ErrNotConfigured is returned when no API key is set
var ErrNotConfigured = errors.New("OPENAI_API_KEY is not configured")

// FallbackAnalysis is returned when the model produced no content
const FallbackAnalysis = "Unable to analyze feedback."

const SystemPrompt = `You are a customer feedback analyst. Analyze the feedback and provide:

1. Overall sentiment (Positive/Negative/Mixed) with a percentage
2. Key positive points (if any)
3. Key negative points (if any)
4. 2-3 actionable recommendations

Format your response EXACTLY like this (use these exact emojis and structure):

📊 Feedback Analysis

Sentiment: [Positive/Negative/Mixed] ([X]% positive)

✅ Positive:
• [point 1]
• [point 2]

⚠️ Negative:
• [point 1]
• [point 2]

🎯 Action Items:
• [action 1]
• [action 2]

If there are no positive or negative points, omit that section entirely.
Keep it concise - max 3 bullets per section.`

// Client calls an OpenAI compatible chat completions endpoint
type Client struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64

	HTTPClient *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func NewClient(cfg config.OpenAIConfig) *Client {
	return &Client{
		APIKey:      strings.TrimSpace(cfg.APIKey),
		BaseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		// per-call deadlines come from the worker; this only bounds a stuck connection
		HTTPClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// Analyze sends the feedback text to the model and returns the formatted analysis
func (c *Client) Analyze(ctx context.Context, text string) (string, error) {
	if c.APIKey == "" {
		return "", ErrNotConfigured
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: text},
		},
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Errorf("[Analyzer] Chat completion failed: status=%d body=%s", resp.StatusCode, string(body))
		return "", fmt.Errorf("chat completion failed: status=%d", resp.StatusCode)
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode chat completion: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return FallbackAnalysis, nil
	}
	return out.Choices[0].Message.Content, nil
}
