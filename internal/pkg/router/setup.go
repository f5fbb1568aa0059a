package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ssv445/360dialog-feedback-bot/app/controllers"
	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/config"
	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/jobqueue"
)

// Router registers a group of routes on the app
type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies are the objects the routes need. LimiterStorage may be nil to keep
// rate limit counters in process memory.
type Dependencies struct {
	Config         *config.Config
	Queue          *jobqueue.Queue
	LimiterStorage fiber.Storage
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	wc := controllers.NewWebhookController(deps.Queue, deps.Config.VerifyToken, deps.Config.AppSecret)
	setup(app,
		NewHttpRouter(wc, deps.Config.Limit, deps.LimiterStorage),
		NewApiRouter(wc, deps.Config.Admin),
	)
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
