package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/jobqueue"
	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/webhook"
)

// WebhookController accepts 360dialog webhook deliveries and hands them to the queue
type WebhookController struct {
	queue       *jobqueue.Queue
	verifyToken string
	appSecret   string
}

// NewWebhookController creates a controller. An empty appSecret disables signature checks.
func NewWebhookController(queue *jobqueue.Queue, verifyToken, appSecret string) *WebhookController {
	return &WebhookController{
		queue:       queue,
		verifyToken: verifyToken,
		appSecret:   appSecret,
	}
}

// HandleHealth reports that the service is up
func (wc *WebhookController) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"message": "360dialog Feedback Bot is running",
	})
}

// HandleVerify answers the hub subscription challenge
func (wc *WebhookController) HandleVerify(c *fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == wc.verifyToken {
		log.Info("[Webhook] Verified")
		return c.Status(fiber.StatusOK).SendString(challenge)
	}

	log.Warn("[Webhook] Verification failed")
	return c.SendStatus(fiber.StatusForbidden)
}

// HandleWebhook normalizes and enqueues a delivery. Anything past the signature check is
// acknowledged with 200 so the provider does not redeliver.
func (wc *WebhookController) HandleWebhook(c *fiber.Ctx) error {
	body := c.Body()

	if wc.appSecret != "" && !webhook.VerifySignature(body, c.Get(webhook.SignatureHeader), wc.appSecret) {
		log.Warn("[Webhook] Invalid signature")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid signature"})
	}

	event := webhook.Normalize(body)
	if event == nil {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "ignored": true})
	}

	queued, err := wc.queue.Enqueue(c.UserContext(), event)
	if err != nil {
		log.Errorf("[Webhook] Failed to enqueue %s %s: %v", event.Type, event.MessageID, err)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "queued": false})
	}
	if !queued {
		log.Infof("[Webhook] Duplicate %s %s", event.Type, event.MessageID)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "queued": false, "duplicate": true})
	}

	log.Infof("[Webhook] Queued %s %s", event.Type, event.MessageID)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "queued": true})
}

// HandleQueueStats returns pending and dead-letter counts
func (wc *WebhookController) HandleQueueStats(c *fiber.Ctx) error {
	stats, err := wc.queue.Stats(c.UserContext())
	if err != nil {
		log.Errorf("[Webhook] Queue stats failed: %v", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "queue unavailable"})
	}
	return c.JSON(stats)
}
