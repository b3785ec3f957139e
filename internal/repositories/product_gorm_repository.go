package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// Create creates a new product in the database.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = models.NewID()
	}
	if product.Reviews == nil {
		product.Reviews = []models.Review{}
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	return getProduct(r.db.WithContext(ctx), id)
}

func getProduct(db *gorm.DB, id string) (*models.Product, error) {
	var product models.Product
	if err := db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	return &product, nil
}

// List retrieves a filtered page of products and the total match count.
func (r *GORMProductRepository) List(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{})
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if k := strings.TrimSpace(f.Keyword); k != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(k)+"%")
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Brand != "" {
		q = q.Where("brand = ?", f.Brand)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}
	var products []models.Product
	if err := q.Order("created_at DESC").Offset(f.Offset).Limit(f.Limit).Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

// Update writes the descriptive catalog fields of an existing product.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", product.ID).
		Select("*").
		Omit("id", "created_at", "reviews", "rating", "review_count", "count_in_stock", "is_active").
		Updates(product)
	if res.Error != nil {
		return fmt.Errorf("failed to update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return r.requireProduct(r.db.WithContext(ctx), product.ID)
	}
	return nil
}

// SetActive writes only the activation flag.
func (r *GORMProductRepository) SetActive(ctx context.Context, id string, active bool) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_active": active, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("failed to set product %s active: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return r.requireProduct(r.db.WithContext(ctx), id)
	}
	return nil
}

// SetStock overwrites the stock count.
func (r *GORMProductRepository) SetStock(ctx context.Context, id string, count int) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]any{"count_in_stock": count, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("failed to set stock for product %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return r.requireProduct(r.db.WithContext(ctx), id)
	}
	return nil
}

// requireProduct explains a write that matched nothing. MySQL reports only
// changed rows, so a no-op write on an existing product is not a miss.
func (r *GORMProductRepository) requireProduct(db *gorm.DB, id string) error {
	var n int64
	if err := db.Model(&models.Product{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to look up product %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	return nil
}

// AddReview appends a review inside a transaction and stores the recomputed aggregate.
func (r *GORMProductRepository) AddReview(ctx context.Context, id string, review models.Review) (*models.Product, error) {
	var updated *models.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// sqlite has no row locks; its single connection serializes writers
		product, err := getProduct(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
		if err != nil {
			return err
		}
		if err := product.AddReview(review); err != nil {
			return err
		}
		res := tx.Model(product).Select("reviews", "rating", "review_count", "updated_at").Updates(product)
		if res.Error != nil {
			return fmt.Errorf("failed to save review: %w", res.Error)
		}
		updated = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AdjustStock applies all adjustments in one transaction, clamping each
// count at zero.
func (r *GORMProductRepository) AdjustStock(ctx context.Context, adjustments []StockAdjustment) ([]string, error) {
	var missing []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		missing = nil
		for _, a := range adjustments {
			res := tx.Model(&models.Product{}).
				Where("id = ?", a.Product).
				UpdateColumn("count_in_stock", gorm.Expr("CASE WHEN count_in_stock + ? < 0 THEN 0 ELSE count_in_stock + ? END", a.Delta, a.Delta))
			if res.Error != nil {
				return fmt.Errorf("failed to adjust stock for product %s: %w", a.Product, res.Error)
			}
			if res.RowsAffected > 0 {
				continue
			}
			err := r.requireProduct(tx, a.Product)
			switch {
			case errors.Is(err, ErrNotFound):
				missing = append(missing, a.Product)
			case err != nil:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return missing, nil
}
