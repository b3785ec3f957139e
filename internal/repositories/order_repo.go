package repositories

import (
	"context"
	"time"

	"storefront/internal/models"
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	List(ctx context.Context, offset, limit int) ([]models.Order, int64, error)
	// SetSessionID stores the payment session id on an unpaid order.
	SetSessionID(ctx context.Context, id, sessionID string) error
	// MarkPaid flips isPaid to true in a single conditional write. It returns
	// ErrAlreadyPaid when the order is already paid.
	MarkPaid(ctx context.Context, id string, paidAt time.Time) error
	MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error
	// Delete(id string) error // orders are kept as historical records
}
