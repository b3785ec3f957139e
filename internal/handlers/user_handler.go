package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/response"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// UserHandler handles profile and user administration requests.
type UserHandler struct {
	service  *services.UserService
	validate *validator.Validate
}

func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{service: service, validate: newValidator()}
}

// RegisterRoutes registers the user routes.
func (h *UserHandler) RegisterRoutes(router fiber.Router, g Guards) {
	users := router.Group("/users", g.Protect)
	users.Get("/profile", h.HandleGetProfile)
	users.Put("/profile", h.HandleUpdateProfile)
	users.Get("/", g.Staff, h.HandleListUsers)
	users.Get("/:id", g.Staff, h.HandleGetUser)
	users.Put("/:id", g.Admin, h.HandleUpdateUser)
	users.Delete("/:id", g.Admin, h.HandleDeleteUser)
}

// HandleGetProfile returns the signed-in user's own record.
func (h *UserHandler) HandleGetProfile(c *fiber.Ctx) error {
	return response.OK(c, middleware.CurrentUser(c), "Profile retrieved successfully")
}

type profileRequest struct {
	Name     *string         `json:"name" validate:"omitempty,min=1,max=100"`
	Email    *string         `json:"email" validate:"omitempty,email"`
	Password *string         `json:"password" validate:"omitempty,min=6"`
	Phone    *string         `json:"phone"`
	Shipping *models.Address `json:"shipping"`
}

// HandleUpdateProfile applies the fields present in the body.
func (h *UserHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	var req profileRequest
	if err := bind(c, h.validate, &req); err != nil {
		return err
	}
	user, err := h.service.UpdateProfile(c.UserContext(), middleware.CurrentUser(c), services.ProfileUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Shipping: req.Shipping,
	})
	if err != nil {
		return err
	}
	return response.OK(c, user, "Profile updated successfully")
}

// HandleListUsers returns a page of users.
func (h *UserHandler) HandleListUsers(c *fiber.Ctx) error {
	page, err := h.service.List(c.UserContext(), c.QueryInt("page", 1), c.QueryInt("pageSize", 0))
	if err != nil {
		return err
	}
	return response.OK(c, page, "Users retrieved successfully")
}

func (h *UserHandler) HandleGetUser(c *fiber.Ctx) error {
	user, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return response.OK(c, user, "User retrieved successfully")
}

type adminUserRequest struct {
	Name     *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Email    *string  `json:"email" validate:"omitempty,email"`
	Phone    *string  `json:"phone"`
	Roles    []string `json:"roles" validate:"omitempty,min=1"`
	IsActive *bool    `json:"isActive"`
}

// HandleUpdateUser applies an administrator's changes to another account.
func (h *UserHandler) HandleUpdateUser(c *fiber.Ctx) error {
	var req adminUserRequest
	if err := bind(c, h.validate, &req); err != nil {
		return err
	}
	user, err := h.service.AdminUpdate(c.UserContext(), c.Params("id"), services.AdminUserUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Roles:    req.Roles,
		IsActive: req.IsActive,
	})
	if err != nil {
		return err
	}
	return response.OK(c, user, "User updated successfully")
}

// HandleDeleteUser deactivates a user, or removes it with ?hard=true.
func (h *UserHandler) HandleDeleteUser(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id"), c.QueryBool("hard", false)); err != nil {
		return err
	}
	return response.OK(c, nil, "User deleted successfully")
}
