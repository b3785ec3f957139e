package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/response"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for orders and their payment.
type OrderHandler struct {
	service  *services.OrderService
	checkout *services.CheckoutService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, checkout *services.CheckoutService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		checkout: checkout,
		validate: newValidator(),
	}
}

// RegisterRoutes registers the order routes.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, g Guards) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Post("/", g.Optional, h.HandleCreateOrder)
	orderRoutes.Get("/mine", g.Protect, h.HandleGetMyOrders)
	orderRoutes.Get("/", g.Protect, g.Staff, h.HandleGetOrders)
	orderRoutes.Get("/:id", g.Protect, h.HandleGetOrderByID)
	orderRoutes.Put("/:id/deliver", g.Protect, g.Staff, h.HandleMarkDelivered)
	orderRoutes.Post("/:id/checkout-session", g.Optional, h.HandleCreateCheckoutSession)
	orderRoutes.Post("/:id/reconcile", h.HandleReconcilePayment)
}

type orderItemRequest struct {
	Product  string `json:"product" validate:"required"`
	Quantity int    `json:"quantity"`
}

// customerRequest carries guest contact details. Presence is checked by the
// order service, which knows whether the buyer is signed in.
type customerRequest struct {
	Name  string `json:"name" validate:"max=100"`
	Email string `json:"email" validate:"omitempty,email,max=255"`
	Phone string `json:"phone" validate:"max=32"`
}

type createOrderRequest struct {
	OrderItems      []orderItemRequest `json:"orderItems" validate:"dive"`
	ShippingAddress models.Address     `json:"shippingAddress"`
	PaymentMethod   string             `json:"paymentMethod"`
	Customer        *customerRequest   `json:"customer" validate:"omitempty"`
}

// HandleCreateOrder places an order for the signed-in user, or a guest order.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := bind(c, h.validate, &req); err != nil {
		return err
	}
	in := services.CreateOrderInput{
		Items:           make([]services.OrderItemInput, 0, len(req.OrderItems)),
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	}
	if cr := req.Customer; cr != nil {
		in.Customer = &models.Customer{Name: cr.Name, Email: cr.Email, Phone: cr.Phone}
	}
	for _, it := range req.OrderItems {
		in.Items = append(in.Items, services.OrderItemInput{Product: it.Product, Quantity: it.Quantity})
	}

	order, err := h.service.Create(c.UserContext(), middleware.CurrentUser(c), in)
	if err != nil {
		return err
	}
	return response.Created(c, order, "Order created successfully")
}

// HandleGetMyOrders lists the signed-in user's orders.
func (h *OrderHandler) HandleGetMyOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListMine(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return err
	}
	return response.OK(c, orders, "Orders retrieved successfully")
}

// HandleGetOrders retrieves a page of all orders.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	page, err := h.service.List(c.UserContext(), c.QueryInt("page", 1), c.QueryInt("pageSize", 0))
	if err != nil {
		return err
	}
	return response.OK(c, page, "Orders retrieved successfully")
}

// HandleGetOrderByID retrieves a single order visible to the caller.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.Get(c.UserContext(), middleware.CurrentUser(c), c.Params("id"))
	if err != nil {
		return err
	}
	return response.OK(c, order, "Order retrieved successfully")
}

// HandleMarkDelivered marks a paid order as delivered.
func (h *OrderHandler) HandleMarkDelivered(c *fiber.Ctx) error {
	order, err := h.service.MarkDelivered(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return response.OK(c, order, "Order marked as delivered")
}

// HandleCreateCheckoutSession starts hosted checkout and returns its URL.
func (h *OrderHandler) HandleCreateCheckoutSession(c *fiber.Ctx) error {
	session, err := h.checkout.CreateSession(c.UserContext(), middleware.CurrentUser(c), c.Params("id"))
	if err != nil {
		return err
	}
	return response.OK(c, fiber.Map{"url": session.URL}, "Checkout session created")
}

// HandleReconcilePayment syncs the paid state with the payment provider.
func (h *OrderHandler) HandleReconcilePayment(c *fiber.Ctx) error {
	if err := h.checkout.Reconcile(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return response.OK(c, nil, "Payment verified")
}
