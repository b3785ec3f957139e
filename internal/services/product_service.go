package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"storefront/internal/cache"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"go.uber.org/zap"
)

// MinReviewCommentLength is the shortest accepted review comment, in characters.
const MinReviewCommentLength = 10

// ProductService handles catalog management and reviews.
type ProductService struct {
	repo     repositories.ProductRepository
	cache    *cache.Cache
	cacheTTL time.Duration
	log      *zap.Logger
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, log *zap.Logger) *ProductService {
	return &ProductService{repo: repo, log: log}
}

// WithCache enables the Redis read-through cache for product details.
func (s *ProductService) WithCache(c *cache.Cache, ttl time.Duration) *ProductService {
	s.cache, s.cacheTTL = c, ttl
	return s
}

type ProductQuery struct {
	Keyword  string
	Category string
	Brand    string
	Page     int
	PageSize int
}

// List returns a page of products. Inactive products are only listed for staff.
func (s *ProductService) List(ctx context.Context, q ProductQuery, viewer *models.User) (*Page[models.Product], error) {
	page, size, offset := pageBounds(q.Page, q.PageSize, 12)
	products, total, err := s.repo.List(ctx, repositories.ProductFilter{
		Keyword:    q.Keyword,
		Category:   q.Category,
		Brand:      q.Brand,
		ActiveOnly: !viewer.IsStaff(),
		Offset:     offset,
		Limit:      size,
	})
	if err != nil {
		return nil, Internal("Failed to list products", err)
	}
	return newPage(products, total, page, size), nil
}

// Get returns a product. Inactive products look missing to non-staff.
func (s *ProductService) Get(ctx context.Context, id string, viewer *models.User) (*models.Product, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, repoError(err, "Product not found", "Failed to get product")
	}
	if !product.IsActive && !viewer.IsStaff() {
		return nil, NotFound("Product not found")
	}
	return product, nil
}

func (s *ProductService) load(ctx context.Context, id string) (*models.Product, error) {
	var (
		product *models.Product
		err     error
	)
	if s.cache == nil {
		product, err = s.repo.GetByID(ctx, id)
	} else {
		product, err = cache.GetOrLoadJSON(s.cache, ctx, productKey(id), s.cacheTTL, func(ctx context.Context) (*models.Product, error) {
			return s.repo.GetByID(ctx, id)
		})
	}
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("product with ID %s: %w", id, repositories.ErrNotFound)
	}
	return product, nil
}

func (s *ProductService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, productKey(id)); err != nil {
		s.log.Warn("failed to evict product", zap.String("product_id", id), zap.Error(err))
	}
}

func productKey(id string) string { return "product:" + id }

// ProductInput carries catalog fields for create and update.
type ProductInput struct {
	Name          string
	Description   string
	Image         string
	Brand         string
	Category      string
	Price         float64
	CountInStock  *int // nil leaves stock untouched on update
	StripePriceID string
	IsActive      *bool
}

// Create adds an inactive product with a snapshot of its creator.
func (s *ProductService) Create(ctx context.Context, creator *models.User, in ProductInput) (*models.Product, error) {
	product := &models.Product{
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		Image:         in.Image,
		Brand:         in.Brand,
		Category:      in.Category,
		Price:         in.Price,
		StripePriceID: in.StripePriceID,
		IsActive:      false,
		User:          creator.ID,
		CreatedBy:     models.Creator{ID: creator.ID, Name: creator.Name, Email: creator.Email},
	}
	if in.CountInStock != nil {
		product.CountInStock = *in.CountInStock
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, Internal("Failed to create product", err)
	}
	s.log.Info("product created", zap.String("product_id", product.ID), zap.String("user_id", creator.ID))
	return product, nil
}

// Update replaces the descriptive catalog fields. Stock is only overwritten
// when the input carries a count. Only admins may change activation.
func (s *ProductService) Update(ctx context.Context, actor *models.User, id string, in ProductInput) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "Product not found", "Failed to update product")
	}
	activate := in.IsActive != nil && *in.IsActive != product.IsActive
	if activate && !actor.IsAdmin() {
		return nil, Forbidden("Only admins can change product activation")
	}
	product.Name = strings.TrimSpace(in.Name)
	product.Description = in.Description
	product.Image = in.Image
	product.Brand = in.Brand
	product.Category = in.Category
	product.Price = in.Price
	product.StripePriceID = in.StripePriceID

	defer s.invalidate(ctx, id)
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, repoError(err, "Product not found", "Failed to update product")
	}
	if activate {
		if err := s.repo.SetActive(ctx, id, *in.IsActive); err != nil {
			return nil, repoError(err, "Product not found", "Failed to update product")
		}
	}
	if in.CountInStock != nil {
		if err := s.repo.SetStock(ctx, id, *in.CountInStock); err != nil {
			return nil, repoError(err, "Product not found", "Failed to update product")
		}
	}
	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "Product not found", "Failed to update product")
	}
	return updated, nil
}

// Delete soft-deletes a product by deactivating it.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return repoError(err, "Product not found", "Failed to delete product")
	}
	s.invalidate(ctx, id)
	return nil
}

type ReviewInput struct {
	Rating  float64
	Comment string
}

func validateReview(in ReviewInput) error {
	fields := map[string]string{}
	if in.Rating < 0 || in.Rating > 5 {
		fields["rating"] = "rating must be between 0 and 5"
	}
	if utf8.RuneCountInString(strings.TrimSpace(in.Comment)) < MinReviewCommentLength {
		fields["comment"] = "comment must be at least 10 characters"
	}
	if len(fields) > 0 {
		return Validation(fields)
	}
	return nil
}

// AddReview records the user's single review of an active product and
// returns the product with its recomputed rating.
func (s *ProductService) AddReview(ctx context.Context, user *models.User, id string, in ReviewInput) (*models.Product, error) {
	if err := validateReview(in); err != nil {
		return nil, err
	}
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "Product not found", "Failed to add review")
	}
	if !product.IsActive {
		return nil, NotFound("Product not found")
	}

	review := models.Review{
		User:      user.ID,
		Name:      user.Name,
		Rating:    in.Rating,
		Comment:   strings.TrimSpace(in.Comment),
		CreatedAt: time.Now().UTC(),
	}
	updated, err := s.repo.AddReview(ctx, id, review)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateReview) {
			return nil, Conflict("Product already reviewed")
		}
		return nil, repoError(err, "Product not found", "Failed to add review")
	}
	s.invalidate(ctx, id)
	return updated, nil
}

// AdjustStock applies the adjustments together and returns the ids of
// products that no longer exist.
func (s *ProductService) AdjustStock(ctx context.Context, adjustments []repositories.StockAdjustment) ([]string, error) {
	missing, err := s.repo.AdjustStock(ctx, adjustments)
	if err != nil {
		return nil, err
	}
	for _, a := range adjustments {
		s.invalidate(ctx, a.Product)
	}
	return missing, nil
}
