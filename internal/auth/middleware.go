package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"shop-backend/internal/engine"
	"shop-backend/internal/metadata"
)

// AuthMiddleware returns a Fiber middleware that validates access tokens
// and sets the UserContext on the request.
func AuthMiddleware(tokens *Tokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return engine.UnauthorizedError("Missing auth token")
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return engine.UnauthorizedError("Invalid auth header format")
		}

		claims, err := tokens.Parse(parts[1], TokenAccess)
		if err != nil {
			return engine.UnauthorizedError("Invalid or expired token")
		}
		id, err := claims.UserID()
		if err != nil {
			return engine.UnauthorizedError("Invalid or expired token")
		}

		c.Locals("user", &metadata.UserContext{ID: id, Staff: claims.Staff})
		return c.Next()
	}
}

// RequireStaff rejects authenticated users without the staff flag.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := GetUser(c)
		if user == nil {
			return engine.UnauthorizedError("Missing auth token")
		}
		if !user.IsStaff() {
			return engine.ForbiddenError("Staff access required")
		}
		return c.Next()
	}
}

// GetUser extracts the UserContext from a Fiber context.
func GetUser(c *fiber.Ctx) *metadata.UserContext {
	user, _ := c.Locals("user").(*metadata.UserContext)
	return user
}
