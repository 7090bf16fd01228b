package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/tooldashai/tooldash/internal/pkg/middleware"
)

const (
	apiRateLimit       = 60
	apiRateLimitWindow = time.Minute
)

type ApiRouter struct {
	deps Dependencies
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        apiRateLimit,
		Expiration: apiRateLimitWindow,
		Storage:    h.deps.LimiterStorage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate_limited",
				"message": "too many requests",
			})
		},
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")
	v1.Get("/pricing", h.deps.Billing.HandlePricing)
	v1.Get("/pricing/tiers", h.deps.Billing.HandlePricingTiers)

	// authenticated
	v1.Post("/checkout", middleware.RequireAPIAuth, h.deps.Billing.HandleCreateCheckout)
	v1.Get("/store-status", middleware.RequireAPIAuth, h.deps.Billing.HandleStoreStatus)
	v1.Get("/credits", middleware.RequireAPIAuth, h.deps.Billing.HandleCredits)
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}
