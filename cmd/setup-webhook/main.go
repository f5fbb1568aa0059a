package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/config"
	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/dialog"
	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/env"
)

func main() {
	env.SetupEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	if err := run(context.Background(), cfg.Dialog); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.DialogConfig) error {
	log.Info("🔧 Setting up 360dialog webhook...")

	if cfg.APIKey == "" {
		return fmt.Errorf("❌ DIALOG_API_KEY not set in .env")
	}
	if cfg.WebhookURL == "" {
		return fmt.Errorf("❌ WEBHOOK_URL not set in .env (e.g. WEBHOOK_URL=https://your-ngrok-url.ngrok.io/webhook)")
	}

	log.Infof("   Webhook URL: %s", cfg.WebhookURL)
	log.Infof("   API Key: %s...", maskKey(cfg.APIKey))

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := dialog.NewClient(cfg).ConfigureWebhook(ctx, cfg.WebhookURL)
	if err != nil {
		return fmt.Errorf("❌ Failed to set webhook: %w", err)
	}

	log.Info("✅ Webhook configured successfully!")
	log.Infof("   Response: %s", string(resp))
	return nil
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return key
	}
	return key[:8]
}
