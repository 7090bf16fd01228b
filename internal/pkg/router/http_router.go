package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tooldashai/tooldash/internal/pkg/middleware"
)

type HttpRouter struct {
	deps Dependencies
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	header := h.deps.UserHeader
	if header == "" {
		header = middleware.DefaultUserHeader
	}
	app.Use(middleware.UserContextMiddleware(h.deps.Users, header))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	// Lemon Squeezy signs the raw body, so this route must not sit behind
	// anything that rewrites it.
	app.Post("/webhooks/lemonsqueezy", h.deps.Billing.HandleLemonSqueezyWebhook)

	if h.deps.Queue != nil {
		app.Get("/metrics/jobs", h.deps.Queue.HandleJobStats)
	}
	app.Get("/metrics/billing", h.deps.Billing.HandleCounters)
}

func NewHttpRouter(deps Dependencies) *HttpRouter {
	return &HttpRouter{deps: deps}
}
