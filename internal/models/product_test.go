package models_test

import (
	"fmt"
	"testing"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduct_AddReviewKeepsMeanRating(t *testing.T) {
	ratings := []float64{5, 4, 3, 0, 2.5}
	p := &models.Product{ID: "p1"}

	var sum float64
	for i, r := range ratings {
		require.NoError(t, p.AddReview(models.Review{User: fmt.Sprintf("user-%d", i), Rating: r, Comment: "solid product"}))
		sum += r
		assert.Equal(t, i+1, p.ReviewCount)
		assert.InDelta(t, sum/float64(i+1), p.Rating, 1e-9)
	}
	assert.Len(t, p.Reviews, len(ratings))
}

func TestProduct_AddReviewRejectsSecondReviewFromSameUser(t *testing.T) {
	p := &models.Product{ID: "p1"}
	require.NoError(t, p.AddReview(models.Review{User: "u1", Rating: 4}))

	err := p.AddReview(models.Review{User: "u1", Rating: 1})
	assert.ErrorIs(t, err, models.ErrDuplicateReview)
	assert.Len(t, p.Reviews, 1)
	assert.Equal(t, 1, p.ReviewCount)
	assert.Equal(t, 4.0, p.Rating)
}

func TestProduct_RecomputeRatingWithoutReviews(t *testing.T) {
	p := &models.Product{Rating: 3, ReviewCount: 7}
	p.RecomputeRating()
	assert.Zero(t, p.Rating)
	assert.Zero(t, p.ReviewCount)
}
