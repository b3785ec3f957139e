package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/response"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ProductHandler handles HTTP requests for the catalog and reviews.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{service: service, validate: newValidator()}
}

// RegisterRoutes registers the product routes.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, g Guards) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", g.Optional, h.HandleGetProducts)
	productRoutes.Get("/:id", g.Optional, h.HandleGetProductByID)
	productRoutes.Post("/", g.Protect, g.Staff, h.HandleCreateProduct)
	productRoutes.Put("/:id", g.Protect, g.Staff, h.HandleUpdateProduct)
	productRoutes.Delete("/:id", g.Protect, g.Staff, h.HandleDeleteProduct)
	productRoutes.Post("/:id/reviews", g.Protect, h.HandleCreateReview)
}

// HandleGetProducts lists products filtered by keyword, category and brand.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	page, err := h.service.List(c.UserContext(), services.ProductQuery{
		Keyword:  c.Query("keyword"),
		Category: c.Query("category"),
		Brand:    c.Query("brand"),
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("pageSize", 0),
	}, middleware.CurrentUser(c))
	if err != nil {
		return err
	}
	return response.OK(c, page, "Products retrieved successfully")
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.service.Get(c.UserContext(), c.Params("id"), middleware.CurrentUser(c))
	if err != nil {
		return err
	}
	return response.OK(c, product, "Product retrieved successfully")
}

type productRequest struct {
	Name          string  `json:"name" validate:"required,max=200"`
	Description   string  `json:"description"`
	Image         string  `json:"image"`
	Brand         string  `json:"brand"`
	Category      string  `json:"category"`
	Price         float64 `json:"price" validate:"gte=0"`
	CountInStock  *int    `json:"countInStock" validate:"omitempty,gte=0"`
	StripePriceID string  `json:"stripePriceId"`
	IsActive      *bool   `json:"isActive"`
}

func (r productRequest) input() services.ProductInput {
	return services.ProductInput{
		Name:          r.Name,
		Description:   r.Description,
		Image:         r.Image,
		Brand:         r.Brand,
		Category:      r.Category,
		Price:         r.Price,
		CountInStock:  r.CountInStock,
		StripePriceID: r.StripePriceID,
		IsActive:      r.IsActive,
	}
}

// HandleCreateProduct adds an inactive product to the catalog.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var req productRequest
	if err := bind(c, h.validate, &req); err != nil {
		return err
	}
	product, err := h.service.Create(c.UserContext(), middleware.CurrentUser(c), req.input())
	if err != nil {
		return err
	}
	return response.Created(c, product, "Product created successfully")
}

// HandleUpdateProduct replaces a product's catalog fields.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var req productRequest
	if err := bind(c, h.validate, &req); err != nil {
		return err
	}
	product, err := h.service.Update(c.UserContext(), middleware.CurrentUser(c), c.Params("id"), req.input())
	if err != nil {
		return err
	}
	return response.OK(c, product, "Product updated successfully")
}

// HandleDeleteProduct deactivates a product.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return response.OK(c, nil, "Product deleted successfully")
}

type reviewRequest struct {
	Rating  float64 `json:"rating"`
	Comment string  `json:"comment"`
}

// HandleCreateReview adds the signed-in user's review.
func (h *ProductHandler) HandleCreateReview(c *fiber.Ctx) error {
	var req reviewRequest
	if err := bind(c, h.validate, &req); err != nil {
		return err
	}
	product, err := h.service.AddReview(c.UserContext(), middleware.CurrentUser(c), c.Params("id"),
		services.ReviewInput{Rating: req.Rating, Comment: req.Comment})
	if err != nil {
		return err
	}
	return response.Created(c, product, "Review added")
}
