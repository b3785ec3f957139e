package repositories

import (
	"context"

	"storefront/internal/models"
)

// ProductFilter narrows a product listing.
type ProductFilter struct {
	Keyword    string
	Category   string
	Brand      string
	ActiveOnly bool
	Offset     int
	Limit      int
}

// StockAdjustment is one stock change applied by AdjustStock.
type StockAdjustment struct {
	Product string
	Delta   int
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id string) (*models.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error)
	// Update writes the descriptive catalog fields. Stock and activation are
	// only changed through SetStock, SetActive and AdjustStock. Reviews and
	// the rating aggregate are only changed through AddReview.
	Update(ctx context.Context, product *models.Product) error
	SetActive(ctx context.Context, id string, active bool) error
	SetStock(ctx context.Context, id string, count int) error
	// AddReview appends a review once per user and recomputes rating and
	// reviewCount in the same write.
	AddReview(ctx context.Context, id string, review models.Review) (*models.Product, error)
	// AdjustStock applies the adjustments as one batch, clamping each count
	// at zero. SQL stores commit all or none. It returns the ids of products
	// that do not exist.
	AdjustStock(ctx context.Context, adjustments []StockAdjustment) (missing []string, err error)
}
