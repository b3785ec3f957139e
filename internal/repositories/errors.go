package repositories

import (
	"errors"

	"storefront/internal/models"
)

var (
	// ErrNotFound is returned when no document matches the lookup.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyPaid is returned when a paid-state write finds the order already paid.
	ErrAlreadyPaid = errors.New("order already paid")
	// ErrDuplicateReview is returned when a user reviews a product twice.
	ErrDuplicateReview = models.ErrDuplicateReview
)
