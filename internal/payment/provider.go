package payment

import (
	"context"
	"errors"
)

var (
	// ErrSessionNotFound is returned when the provider does not know a session id.
	ErrSessionNotFound = errors.New("payment session not found")
	// ErrBusy is returned when no provider slot frees up before the deadline.
	ErrBusy = errors.New("payment provider busy")
)

// StatusPaid is the payment status of a completed session.
const StatusPaid = "paid"

// LineItem is one entry of a hosted checkout. It either references a
// provider-side PriceID or carries an inline Name and UnitAmount.
type LineItem struct {
	PriceID    string
	Name       string
	UnitAmount int64 // minor currency units
	Quantity   int64
}

type CheckoutRequest struct {
	OrderID       string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	LineItems     []LineItem
}

type Session struct {
	ID            string
	URL           string
	PaymentStatus string
}

// Paid reports whether the provider considers the session paid.
func (s *Session) Paid() bool {
	return s != nil && s.PaymentStatus == StatusPaid
}

// Provider creates hosted checkout sessions and reports their status.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
}
