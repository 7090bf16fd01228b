package middleware

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/tooldashai/tooldash/app/models"
	"github.com/tooldashai/tooldash/internal/pkg/usercontext"
)

// DefaultUserHeader is set by the authenticating proxy in front of the API.
const DefaultUserHeader = "X-Authenticated-User-Id"

// UserLookup resolves a user id to the stored user.
type UserLookup interface {
	GetByID(id uint) (*models.User, error)
}

// UserContextMiddleware resolves the current user from a header populated by
// the upstream authentication layer. Requests without a valid header
// continue anonymously.
func UserContextMiddleware(users UserLookup, header string) fiber.Handler {
	if strings.TrimSpace(header) == "" {
		header = DefaultUserHeader
	}

	return func(c *fiber.Ctx) error {
		raw := strings.TrimSpace(c.Get(header))
		if raw == "" {
			usercontext.SetUserContext(c, usercontext.UserContext{})
			return c.Next()
		}

		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			usercontext.SetUserContext(c, usercontext.UserContext{})
			return c.Next()
		}

		user, err := users.GetByID(uint(id))
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Errorf("[Auth] Failed to load user %d: %v", id, err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error":   "internal_server_error",
					"message": "User lookup failed",
				})
			}
			usercontext.SetUserContext(c, usercontext.UserContext{})
			return c.Next()
		}

		usercontext.SetUserContext(c, usercontext.UserContext{
			UserID:     user.ID,
			Email:      user.Email,
			IsLoggedIn: true,
		})
		return c.Next()
	}
}
