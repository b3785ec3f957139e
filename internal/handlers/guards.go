package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Guards are the access checks routes are registered with. Staff and Admin
// must follow Protect.
type Guards struct {
	Protect  fiber.Handler
	Optional fiber.Handler
	Staff    fiber.Handler
	Admin    fiber.Handler
}

func NewGuards(auth *services.AuthService, log *zap.Logger) Guards {
	return Guards{
		Protect:  middleware.Protect(auth, log),
		Optional: middleware.OptionalAuth(auth, log),
		Staff:    middleware.RequireRoles(models.RoleAdmin, models.RoleManager),
		Admin:    middleware.RequireRoles(models.RoleAdmin),
	}
}
