package repositories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"storefront/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoProductRepository is a MongoDB implementation of ProductRepository.
type MongoProductRepository struct {
	coll *mongo.Collection
}

// NewMongoProductRepository creates a product repository on the products collection.
func NewMongoProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{coll: db.Collection(ProductsCollection)}
}

func (r *MongoProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = models.NewID()
	}
	if product.Reviews == nil {
		product.Reviews = []models.Review{}
	}
	now := time.Now().UTC()
	product.CreatedAt, product.UpdatedAt = now, now
	if _, err := r.coll.InsertOne(ctx, product); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *MongoProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	return &product, nil
}

func (r *MongoProductRepository) List(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	filter := bson.M{}
	if f.ActiveOnly {
		filter["isActive"] = true
	}
	if k := strings.TrimSpace(f.Keyword); k != "" {
		filter["name"] = bson.M{"$regex": regexp.QuoteMeta(k), "$options": "i"}
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Brand != "" {
		filter["brand"] = f.Brand
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(f.Offset)).
		SetLimit(int64(f.Limit))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	products := []models.Product{}
	if err := cur.All(ctx, &products); err != nil {
		return nil, 0, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, total, nil
}

func (r *MongoProductRepository) Update(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = time.Now().UTC()
	set := bson.M{
		"name":          product.Name,
		"description":   product.Description,
		"image":         product.Image,
		"brand":         product.Brand,
		"category":      product.Category,
		"price":         product.Price,
		"stripePriceId": product.StripePriceID,
		"updatedAt":     product.UpdatedAt,
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": product.ID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("product with ID %s: %w", product.ID, ErrNotFound)
	}
	return nil
}

func (r *MongoProductRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.set(ctx, id, bson.M{"isActive": active})
}

func (r *MongoProductRepository) SetStock(ctx context.Context, id string, count int) error {
	return r.set(ctx, id, bson.M{"countInStock": count})
}

func (r *MongoProductRepository) set(ctx context.Context, id string, fields bson.M) error {
	fields["updatedAt"] = time.Now().UTC()
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update product %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	return nil
}

// AddReview pushes the review and recomputes the aggregate with one pipeline
// update. The filter excludes products the user already reviewed.
func (r *MongoProductRepository) AddReview(ctx context.Context, id string, review models.Review) (*models.Product, error) {
	filter := bson.M{"_id": id, "reviews.user": bson.M{"$ne": review.User}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "reviews", Value: bson.D{{Key: "$concatArrays", Value: bson.A{
				bson.D{{Key: "$ifNull", Value: bson.A{"$reviews", bson.A{}}}},
				bson.A{bson.D{{Key: "$literal", Value: review}}},
			}}}},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "rating", Value: bson.D{{Key: "$avg", Value: "$reviews.rating"}}},
			{Key: "reviewCount", Value: bson.D{{Key: "$size", Value: "$reviews"}}},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var product models.Product
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&product)
	if err == nil {
		return &product, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to add review to product %s: %w", id, err)
	}
	n, cerr := r.coll.CountDocuments(ctx, bson.M{"_id": id})
	if cerr != nil {
		return nil, fmt.Errorf("failed to look up product %s: %w", id, cerr)
	}
	if n == 0 {
		return nil, fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	return nil, ErrDuplicateReview
}

// AdjustStock sends every adjustment in one ordered bulk write.
func (r *MongoProductRepository) AdjustStock(ctx context.Context, adjustments []StockAdjustment) ([]string, error) {
	if len(adjustments) == 0 {
		return nil, nil
	}
	writes := make([]mongo.WriteModel, 0, len(adjustments))
	ids := make([]string, 0, len(adjustments))
	for _, a := range adjustments {
		update := mongo.Pipeline{
			{{Key: "$set", Value: bson.D{
				{Key: "countInStock", Value: bson.D{{Key: "$max", Value: bson.A{
					0, bson.D{{Key: "$add", Value: bson.A{"$countInStock", a.Delta}}},
				}}}},
			}}},
		}
		writes = append(writes, mongo.NewUpdateOneModel().SetFilter(bson.M{"_id": a.Product}).SetUpdate(update))
		ids = append(ids, a.Product)
	}
	res, err := r.coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return nil, fmt.Errorf("failed to adjust stock: %w", err)
	}
	if res.MatchedCount == int64(len(adjustments)) {
		return nil, nil
	}

	found, err := r.coll.Distinct(ctx, "_id", bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to look up products: %w", err)
	}
	exists := make(map[string]bool, len(found))
	for _, v := range found {
		if id, ok := v.(string); ok {
			exists[id] = true
		}
	}
	var missing []string
	for _, id := range ids {
		if !exists[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}
