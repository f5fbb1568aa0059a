package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/env"
)

const (
	StoreDriverRedis  = "redis"
	StoreDriverMemory = "memory"

	DefaultVerifyToken      = "feedback-bot-token"
	DefaultDialogAPIURL     = "https://waba-sandbox.360dialog.io/v1/messages"
	DefaultDialogWebhookURL = "https://waba-sandbox.360dialog.io/v1/configs/webhook"
	DefaultOpenAIBaseURL    = "https://api.openai.com/v1"
)

// Config is the typed application configuration
type Config struct {
	AppEnv string `validate:"required"`
	Host   string
	Port   string `validate:"required,numeric"`

	VerifyToken string `validate:"required"`
	AppSecret   string

	Store  StoreConfig
	Worker WorkerConfig
	Dialog DialogConfig
	OpenAI OpenAIConfig
	Admin  AdminConfig
	Limit  RateLimitConfig
}

// StoreConfig selects and addresses the queue store
type StoreConfig struct {
	Driver   string `validate:"oneof=redis memory"`
	URL      string `validate:"omitempty,url"`
	Host     string `validate:"required_without=URL"`
	Port     string `validate:"required_without=URL"`
	Password string
	DB       int           `validate:"gte=0"`
	DedupTTL time.Duration `validate:"gt=0"`
}

// WorkerConfig holds retry and timeout settings
type WorkerConfig struct {
	MaxRetries      int           `validate:"gte=0"`
	AnalyzerTimeout time.Duration `validate:"gte=0"`
	NotifierTimeout time.Duration `validate:"gte=0"`
	BackoffInitial  time.Duration `validate:"gt=0"`
	BackoffMax      time.Duration `validate:"gtefield=BackoffInitial"`
}

type DialogConfig struct {
	APIKey           string
	APIURL           string `validate:"required,url"`
	WebhookConfigURL string `validate:"required,url"`
	WebhookURL       string `validate:"omitempty,url"`
}

type OpenAIConfig struct {
	APIKey      string
	BaseURL     string  `validate:"required,url"`
	Model       string  `validate:"required"`
	MaxTokens   int     `validate:"gt=0"`
	Temperature float64 `validate:"gte=0,lte=2"`
}

// AdminConfig guards the stats and metrics endpoints. An empty password disables them.
type AdminConfig struct {
	User     string `validate:"required_with=Password"`
	Password string
}

func (a AdminConfig) Enabled() bool {
	return a.Password != ""
}

type RateLimitConfig struct {
	Max    int           `validate:"gte=0"`
	Window time.Duration `validate:"gt=0"`
}

// Load reads the configuration from the environment and validates it
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:      env.GetEnv("APP_ENV", "prod"),
		Host:        env.GetEnv("APP_HOST", "0.0.0.0"),
		Port:        env.GetEnv("APP_PORT", env.GetEnv("PORT", "3000")),
		VerifyToken: env.GetEnv("WEBHOOK_VERIFY_TOKEN", DefaultVerifyToken),
		AppSecret:   env.GetEnv("WEBHOOK_APP_SECRET", ""),
		Store: StoreConfig{
			Driver:   env.GetEnv("STORE_DRIVER", StoreDriverRedis),
			URL:      env.GetEnv("REDIS_URL", ""),
			Host:     env.GetEnv("CACHE_HOST", "localhost"),
			Port:     env.GetEnv("CACHE_PORT", "6379"),
			Password: env.GetEnv("CACHE_PASSWORD", ""),
			DB:       env.GetInt("CACHE_DB", 0),
			DedupTTL: env.GetDuration("DEDUP_TTL", 5*time.Minute),
		},
		Worker: WorkerConfig{
			MaxRetries:      env.GetInt("MAX_RETRIES", 3),
			AnalyzerTimeout: env.GetDuration("ANALYZER_TIMEOUT", 30*time.Second),
			NotifierTimeout: env.GetDuration("NOTIFIER_TIMEOUT", 15*time.Second),
			BackoffInitial:  env.GetDuration("STORE_BACKOFF_INITIAL", time.Second),
			BackoffMax:      env.GetDuration("STORE_BACKOFF_MAX", 30*time.Second),
		},
		Dialog: DialogConfig{
			APIKey:           env.GetEnv("DIALOG_API_KEY", ""),
			APIURL:           env.GetEnv("DIALOG_API_URL", DefaultDialogAPIURL),
			WebhookConfigURL: env.GetEnv("DIALOG_WEBHOOK_CONFIG_URL", DefaultDialogWebhookURL),
			WebhookURL:       env.GetEnv("WEBHOOK_URL", ""),
		},
		OpenAI: OpenAIConfig{
			APIKey:      env.GetEnv("OPENAI_API_KEY", ""),
			BaseURL:     env.GetEnv("OPENAI_BASE_URL", DefaultOpenAIBaseURL),
			Model:       env.GetEnv("OPENAI_MODEL", "gpt-4o-mini"),
			MaxTokens:   env.GetInt("OPENAI_MAX_TOKENS", 500),
			Temperature: env.GetFloat("OPENAI_TEMPERATURE", 0.3),
		},
		Admin: AdminConfig{
			User:     env.GetEnv("ADMIN_USER", "admin"),
			Password: env.GetEnv("ADMIN_PASSWORD", ""),
		},
		Limit: RateLimitConfig{
			Max:    env.GetInt("RATE_LIMIT_MAX", 120),
			Window: env.GetDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Addr is the listen address for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func (c *Config) IsDev() bool {
	return c.AppEnv == "dev"
}
