package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"github.com/ssv445/360dialog-feedback-bot/app/controllers"
	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/config"
)

// ApiRouter serves the operator endpoints behind basic auth
type ApiRouter struct {
	webhook *controllers.WebhookController
	admin   config.AdminConfig
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	if !h.admin.Enabled() {
		log.Info("[Router] ADMIN_PASSWORD not set, operator endpoints disabled")
		return
	}

	auth := basicauth.New(basicauth.Config{
		Users: map[string]string{
			h.admin.User: h.admin.Password,
		},
	})

	// fiber metrics
	app.Get("/metrics", auth, monitor.New(monitor.Config{Title: "Feedback Bot Metrics"}))

	api := app.Group("/api", auth)
	api.Get("/queue/stats", h.webhook.HandleQueueStats)
}

func NewApiRouter(webhook *controllers.WebhookController, admin config.AdminConfig) *ApiRouter {
	return &ApiRouter{
		webhook: webhook,
		admin:   admin,
	}
}
