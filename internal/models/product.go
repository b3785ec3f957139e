package models

import (
	"errors"
	"time"
)

// ErrDuplicateReview is returned when a user reviews the same product twice.
var ErrDuplicateReview = errors.New("product already reviewed by this user")

// Review is a customer review embedded in a product.
type Review struct {
	User      string    `json:"user" bson:"user"`
	Name      string    `json:"name" bson:"name"`
	Rating    float64   `json:"rating" bson:"rating"`
	Comment   string    `json:"comment" bson:"comment"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Creator is a snapshot of the staff member who created a product.
type Creator struct {
	ID    string `json:"id" bson:"id" gorm:"type:varchar(36)"`
	Name  string `json:"name" bson:"name" gorm:"type:varchar(100)"`
	Email string `json:"email" bson:"email" gorm:"type:varchar(255)"`
}

// Product represents a catalog item.
type Product struct {
	ID            string    `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	Name          string    `json:"name" bson:"name" gorm:"type:varchar(200)"`
	Description   string    `json:"description" bson:"description" gorm:"type:text"`
	Image         string    `json:"image" bson:"image" gorm:"type:varchar(500)"`
	Brand         string    `json:"brand" bson:"brand" gorm:"index;type:varchar(100)"`
	Category      string    `json:"category" bson:"category" gorm:"index;type:varchar(100)"`
	Price         float64   `json:"price" bson:"price"`
	CountInStock  int       `json:"countInStock" bson:"countInStock"`
	StripePriceID string    `json:"stripePriceId,omitempty" bson:"stripePriceId,omitempty" gorm:"type:varchar(100)"`
	IsActive      bool      `json:"isActive" bson:"isActive" gorm:"index"`
	User          string    `json:"user" bson:"user" gorm:"column:user_id;type:varchar(36)"` // back-reference to the creator
	CreatedBy     Creator   `json:"createdBy" bson:"createdBy" gorm:"embedded;embeddedPrefix:created_by_"`
	Reviews       []Review  `json:"reviews" bson:"reviews" gorm:"serializer:json;type:text"`
	Rating        float64   `json:"rating" bson:"rating"`
	ReviewCount   int       `json:"reviewCount" bson:"reviewCount"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt" bson:"updatedAt"`
}

// HasReviewFrom reports whether userID already reviewed the product.
func (p *Product) HasReviewFrom(userID string) bool {
	for _, r := range p.Reviews {
		if r.User == userID {
			return true
		}
	}
	return false
}

// AddReview appends r and recomputes the aggregate rating. A second review
// from the same user is rejected with ErrDuplicateReview.
func (p *Product) AddReview(r Review) error {
	if p.HasReviewFrom(r.User) {
		return ErrDuplicateReview
	}
	p.Reviews = append(p.Reviews, r)
	p.RecomputeRating()
	return nil
}

// RecomputeRating sets Rating to the mean of all review ratings and
// ReviewCount to the number of reviews.
func (p *Product) RecomputeRating() {
	p.ReviewCount = len(p.Reviews)
	if p.ReviewCount == 0 {
		p.Rating = 0
		return
	}
	var sum float64
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	p.Rating = sum / float64(p.ReviewCount)
}
