// Package middleware provides authentication, logging, rate limiting, and
// metrics middleware for the application.
package middleware

import (
	"context"
	"strings"

	"picpal/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SessionResolver maps a bearer token to the account it was issued for.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (uint, error)
}

// BearerToken extracts the token from the Authorization header, if any.
func BearerToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// AuthRequired is a middleware that enforces authentication for protected
// routes. On success the account ID is stored in c.Locals("userID").
func AuthRequired(sessions SessionResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := BearerToken(c)
		if token == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		userID, err := sessions.Resolve(c.Context(), token)
		if err != nil {
			return models.RespondWithError(c, models.HTTPStatus(err), err)
		}

		c.Locals("userID", userID)
		return c.Next()
	}
}

// OptionalUser resolves the caller's account if a valid token is present but
// never rejects the request. Public listings use it to annotate per-user state.
func OptionalUser(sessions SessionResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := BearerToken(c); token != "" {
			if userID, err := sessions.Resolve(c.Context(), token); err == nil {
				c.Locals("userID", userID)
			}
		}
		return c.Next()
	}
}
