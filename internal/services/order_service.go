package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"go.uber.org/zap"
)

// OrderService handles order placement, lookup and fulfilment.
type OrderService struct {
	orders   repositories.OrderRepository
	products repositories.ProductRepository
	pricing  models.Pricing
	events   EventPublisher
	log      *zap.Logger
}

// NewOrderService creates a new OrderService. events may be nil.
func NewOrderService(orders repositories.OrderRepository, products repositories.ProductRepository, pricing models.Pricing, events EventPublisher, log *zap.Logger) *OrderService {
	return &OrderService{orders: orders, products: products, pricing: pricing, events: events, log: log}
}

type OrderItemInput struct {
	Product  string
	Quantity int
}

type CreateOrderInput struct {
	Items           []OrderItemInput
	ShippingAddress models.Address
	PaymentMethod   string
	Customer        *models.Customer // required for guest checkout
}

// Create places an order for user, or a guest order when user is nil. Item
// names, prices and price ids are copied from the catalog at this point.
func (s *OrderService) Create(ctx context.Context, user *models.User, in CreateOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, BadRequest("No order items")
	}

	customer, err := orderCustomer(user, in.Customer)
	if err != nil {
		return nil, err
	}
	shipping := in.ShippingAddress
	if shipping.Address == "" && user != nil {
		shipping = user.Shipping
	}

	items := make([]models.OrderItem, 0, len(in.Items))
	for i, it := range in.Items {
		if it.Quantity < 1 {
			return nil, Validation(map[string]string{fmt.Sprintf("orderItems[%d].quantity", i): "quantity must be at least 1"})
		}
		product, err := s.products.GetByID(ctx, it.Product)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, NotFound(fmt.Sprintf("Product %s not found", it.Product))
			}
			return nil, Internal("Failed to create order", err)
		}
		if !product.IsActive {
			return nil, NotFound(fmt.Sprintf("Product %s not found", it.Product))
		}
		if product.CountInStock < it.Quantity {
			return nil, BadRequest(fmt.Sprintf("Insufficient stock for %s", product.Name))
		}
		items = append(items, models.OrderItem{
			Product:       product.ID,
			Name:          product.Name,
			Image:         product.Image,
			Quantity:      it.Quantity,
			Price:         product.Price,
			StripePriceID: product.StripePriceID,
		})
	}

	totals := s.pricing.Compute(items)
	order := &models.Order{
		Customer:        customer,
		OrderItems:      items,
		ShippingAddress: shipping,
		PaymentMethod:   in.PaymentMethod,
		Subtotal:        totals.Subtotal,
		ShippingCost:    totals.ShippingCost,
		Tax:             totals.Tax,
		Total:           totals.Total,
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = "stripe"
	}
	if user != nil {
		order.User = user.ID
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, Internal("Failed to create order", err)
	}
	ordersCreated.Inc()
	s.log.Info("order created", zap.String("order_id", order.ID), zap.String("user_id", order.User), zap.Float64("total", order.Total))
	publishOrderEvent(ctx, s.events, s.log, EventOrderCreated, order)
	return order, nil
}

func orderCustomer(user *models.User, in *models.Customer) (models.Customer, error) {
	if user != nil {
		c := models.Customer{Name: user.Name, Email: user.Email, Phone: user.Phone}
		if c.Phone == "" && in != nil {
			c.Phone = in.Phone
		}
		return c, nil
	}
	fields := map[string]string{}
	if in == nil || strings.TrimSpace(in.Name) == "" {
		fields["customer.name"] = "name is required for guest checkout"
	}
	if in == nil || strings.TrimSpace(in.Email) == "" {
		fields["customer.email"] = "email is required for guest checkout"
	}
	if len(fields) > 0 {
		return models.Customer{}, Validation(fields)
	}
	return models.Customer{Name: strings.TrimSpace(in.Name), Email: models.NormalizeEmail(in.Email), Phone: in.Phone}, nil
}

// Get returns an order visible to viewer: its owner or staff.
func (s *OrderService) Get(ctx context.Context, viewer *models.User, id string) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "Order not found", "Failed to get order")
	}
	if !order.IsOwnedBy(viewer.ID) && !viewer.IsStaff() {
		return nil, Forbidden("Not authorized to view this order")
	}
	return order, nil
}

func (s *OrderService) ListMine(ctx context.Context, user *models.User) ([]models.Order, error) {
	orders, err := s.orders.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, Internal("Failed to list orders", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

func (s *OrderService) List(ctx context.Context, page, size int) (*Page[models.Order], error) {
	page, size, offset := pageBounds(page, size, 20)
	orders, total, err := s.orders.List(ctx, offset, size)
	if err != nil {
		return nil, Internal("Failed to list orders", err)
	}
	return newPage(orders, total, page, size), nil
}

// MarkDelivered records delivery of a paid order.
func (s *OrderService) MarkDelivered(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "Order not found", "Failed to update order")
	}
	if !order.IsPaid {
		return nil, BadRequest("Order has not been paid")
	}
	if order.IsDelivered {
		return nil, Conflict("Order is already delivered")
	}

	now := time.Now().UTC()
	if err := s.orders.MarkDelivered(ctx, id, now); err != nil {
		return nil, repoError(err, "Order not found", "Failed to update order")
	}
	order.IsDelivered, order.DeliveredAt = true, &now
	s.log.Info("order delivered", zap.String("order_id", id))
	publishOrderEvent(ctx, s.events, s.log, EventOrderDelivered, order)
	return order, nil
}
