package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tooldashai/tooldash/app/controllers"
	"github.com/tooldashai/tooldash/internal/pkg/middleware"
)

// Router registers a group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies carries the controllers and collaborators the routers need.
type Dependencies struct {
	Billing *controllers.BillingController
	Queue   *controllers.QueueController
	Users   middleware.UserLookup
	// LimiterStorage backs the API rate limiter. Nil falls back to memory.
	LimiterStorage fiber.Storage
	// UserHeader overrides middleware.DefaultUserHeader.
	UserHeader string
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	// The HTTP router installs the user context middleware the API routes
	// rely on, so it goes first.
	setup(app, NewHttpRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
