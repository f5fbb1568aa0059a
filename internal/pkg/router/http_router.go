package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ssv445/360dialog-feedback-bot/app/controllers"
	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/config"
)

// HttpRouter serves the health check and the public webhook endpoint
type HttpRouter struct {
	webhook *controllers.WebhookController
	limit   config.RateLimitConfig
	storage fiber.Storage
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/", h.webhook.HandleHealth)

	verify := []fiber.Handler{}
	if h.limit.Max > 0 {
		verify = append(verify, limiter.New(limiter.Config{
			Max:        h.limit.Max,
			Expiration: h.limit.Window,
			Storage:    h.storage,
			LimitReached: func(c *fiber.Ctx) error {
				log.Warnf("[Webhook] Rate limit reached for %s", c.IP())
				return c.SendStatus(fiber.StatusTooManyRequests)
			},
		}))
	}
	app.Get("/webhook", append(verify, h.webhook.HandleVerify)...)

	// deliveries are always acknowledged with 200, a 429 would only make the provider retry
	app.Post("/webhook", h.webhook.HandleWebhook)
}

func NewHttpRouter(webhook *controllers.WebhookController, limit config.RateLimitConfig, storage fiber.Storage) *HttpRouter {
	return &HttpRouter{
		webhook: webhook,
		limit:   limit,
		storage: storage,
	}
}
