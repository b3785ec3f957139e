package services

import (
	"context"
	"time"

	"storefront/internal/models"

	"go.uber.org/zap"
)

// Routing keys of order events.
const (
	EventOrderCreated   = "order.created"
	EventOrderPaid      = "order.paid"
	EventOrderDelivered = "order.delivered"
)

// EventPublisher publishes domain events. A nil publisher disables events.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type EventItem struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}

// OrderEvent is the payload of every order event.
type OrderEvent struct {
	OrderID    string      `json:"orderId"`
	UserID     string      `json:"userId,omitempty"`
	Total      float64     `json:"total"`
	Items      []EventItem `json:"items"`
	OccurredAt time.Time   `json:"occurredAt"`
}

func newOrderEvent(order *models.Order, at time.Time) OrderEvent {
	items := make([]EventItem, 0, len(order.OrderItems))
	for _, it := range order.OrderItems {
		items = append(items, EventItem{Product: it.Product, Quantity: it.Quantity})
	}
	return OrderEvent{OrderID: order.ID, UserID: order.User, Total: order.Total, Items: items, OccurredAt: at}
}

// publishOrderEvent is best effort; the order write has already happened.
func publishOrderEvent(ctx context.Context, pub EventPublisher, log *zap.Logger, key string, order *models.Order) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, key, newOrderEvent(order, time.Now().UTC())); err != nil {
		log.Warn("failed to publish order event",
			zap.String("event", key), zap.String("order_id", order.ID), zap.Error(err))
	}
}
