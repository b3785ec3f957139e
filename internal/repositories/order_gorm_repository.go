package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"

	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

// Create stores a new order.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = models.NewID()
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByID returns an order by its ID.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	return &order, nil
}

// ListByUser returns every order placed by userID, newest first.
func (r *GORMOrderRepository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for user %s: %w", userID, err)
	}
	return orders, nil
}

// List returns a page of all orders and the total count.
func (r *GORMOrderRepository) List(ctx context.Context, offset, limit int) ([]models.Order, int64, error) {
	var (
		orders []models.Order
		total  int64
	)
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

// SetSessionID stores the payment session id on an unpaid order.
func (r *GORMOrderRepository) SetSessionID(ctx context.Context, id, sessionID string) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND is_paid = ?", id, false).
		Updates(map[string]any{"stripe_session_id": sessionID, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("failed to store session for order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return r.missOrPaid(ctx, id)
	}
	return nil
}

// MarkPaid flips the order to paid only if it is still unpaid.
func (r *GORMOrderRepository) MarkPaid(ctx context.Context, id string, paidAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND is_paid = ?", id, false).
		Updates(map[string]any{"is_paid": true, "paid_at": paidAt, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("failed to mark order %s paid: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return r.missOrPaid(ctx, id)
	}
	return nil
}

// MarkDelivered records delivery of an order.
func (r *GORMOrderRepository) MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_delivered": true, "delivered_at": deliveredAt, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("failed to mark order %s delivered: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
	}
	return nil
}

// missOrPaid explains why a conditional write on an unpaid order matched nothing.
func (r *GORMOrderRepository) missOrPaid(ctx context.Context, id string) error {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to look up order %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("order with ID %s: %w", id, ErrAlreadyPaid)
}
