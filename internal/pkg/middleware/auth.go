package middleware

import (
	"github.com/gofiber/fiber/v2"

	icuser "github.com/tooldashai/tooldash/internal/pkg/usercontext"
)

// RequireAPIAuth ensures a resolved user for API routes and returns JSON 401 otherwise.
func RequireAPIAuth(c *fiber.Ctx) error {
	if !icuser.IsLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	return c.Next()
}
