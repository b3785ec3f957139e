package middleware

import (
	"errors"
	"slices"
	"strings"

	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const userKey = "user"

// Protect rejects requests without a valid token and attaches the current
// user record, loaded fresh from the store, to the context.
func Protect(auth *services.AuthService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := tokenFrom(c, auth.CookieName())
		if token == "" {
			return services.Unauthorized("Not authorized, no token")
		}

		user, err := auth.ResolveUser(c.UserContext(), token)
		switch {
		case errors.Is(err, services.ErrInvalidToken):
			log.Debug("token rejected", zap.String("path", c.Path()), zap.Error(err))
			return services.Unauthorized("Not authorized, token failed")
		case errors.Is(err, services.ErrUnknownUser):
			return services.Unauthorized("Not authorized, user not found")
		case err != nil:
			return services.Internal("Failed to authenticate", err)
		}

		c.Locals(userKey, user)
		return c.Next()
	}
}

// OptionalAuth attaches the current user when a valid token is present and
// lets every other request through anonymously.
func OptionalAuth(auth *services.AuthService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := tokenFrom(c, auth.CookieName())
		if token == "" {
			return c.Next()
		}
		user, err := auth.ResolveUser(c.UserContext(), token)
		if err != nil {
			if !errors.Is(err, services.ErrInvalidToken) && !errors.Is(err, services.ErrUnknownUser) {
				log.Warn("optional auth lookup failed", zap.String("path", c.Path()), zap.Error(err))
			}
			return c.Next()
		}
		c.Locals(userKey, user)
		return c.Next()
	}
}

// RequireRoles allows the request when the current user holds any of roles.
// It must run after Protect.
func RequireRoles(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return services.Unauthorized("Not authorized, no token")
		}
		if !slices.ContainsFunc(roles, user.HasRole) {
			return services.Forbidden("Not authorized for this action")
		}
		return c.Next()
	}
}

// CurrentUser returns the user attached by Protect or OptionalAuth, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userKey).(*models.User)
	return user
}

// tokenFrom reads the session cookie, then falls back to a bearer header.
func tokenFrom(c *fiber.Ctx, cookieName string) string {
	if token := c.Cookies(cookieName); token != "" {
		return token
	}
	if token, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
