package services

import (
	"context"
	"encoding/json"
	"fmt"

	"storefront/internal/repositories"
	"storefront/pkg/rabbitmq"

	"go.uber.org/zap"
)

// InventoryConsumer decrements stock when an order is paid.
type InventoryConsumer struct {
	products *ProductService
	log      *zap.Logger
}

func NewInventoryConsumer(products *ProductService, log *zap.Logger) *InventoryConsumer {
	return &InventoryConsumer{products: products, log: log}
}

// BindingKeys lists the routing keys the consumer handles.
func (c *InventoryConsumer) BindingKeys() []string {
	return []string{EventOrderPaid}
}

// Handle applies one order event. The stock changes of an order are written
// as one batch, so a failed attempt is retried as a whole.
func (c *InventoryConsumer) Handle(ctx context.Context, routingKey string, body []byte) error {
	if routingKey != EventOrderPaid {
		return nil
	}
	var event OrderEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: decode %s: %v", rabbitmq.ErrPermanent, routingKey, err)
	}

	adjustments := make([]repositories.StockAdjustment, 0, len(event.Items))
	for _, it := range event.Items {
		adjustments = append(adjustments, repositories.StockAdjustment{Product: it.Product, Delta: -it.Quantity})
	}
	missing, err := c.products.AdjustStock(ctx, adjustments)
	if err != nil {
		return fmt.Errorf("adjust stock for order %s: %w", event.OrderID, err)
	}
	for _, id := range missing {
		c.log.Warn("paid order references missing product",
			zap.String("order_id", event.OrderID), zap.String("product_id", id))
	}
	c.log.Info("stock updated for paid order", zap.String("order_id", event.OrderID), zap.Int("items", len(event.Items)))
	return nil
}
