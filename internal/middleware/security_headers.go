package middleware

import (
	"auctions/domain"
	"auctions/pkg/httperror"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const userLocalKey = "user"

// NewSecurityHeadersMiddleware admits requests carrying the identity headers
// set by the gateway and exposes the caller through CurrentUser.
func NewSecurityHeadersMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get("User-ID"))
		userEmail := strings.TrimSpace(c.Get("User-Email"))
		authorization := strings.TrimSpace(c.Get("Authorization"))

		if userID == "" || userEmail == "" || authorization == "" {
			return unauthorized(c)
		}

		c.Locals(userLocalKey, domain.User{ID: userID, Email: userEmail})
		return c.Next()
	}
}

// CurrentUser returns the caller admitted by the security headers middleware.
func CurrentUser(c *fiber.Ctx) (domain.User, bool) {
	user, ok := c.Locals(userLocalKey).(domain.User)
	return user, ok
}

func unauthorized(c *fiber.Ctx) error {
	err := httperror.Unauthorized(
		"auctions.security_headers.unauthorized",
		"Security headers mismatch",
		nil,
	)

	return c.Status(err.Status).JSON(fiber.Map{
		"success": false,
		"code":    err.Code,
		"message": err.Message,
	})
}
