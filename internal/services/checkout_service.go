package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/repositories"

	"go.uber.org/zap"
)

// CheckoutConfig builds the redirect URLs of hosted checkout. The paths
// contain one %s for the order id.
type CheckoutConfig struct {
	ClientURL   string
	SuccessPath string
	CancelPath  string
}

// CheckoutService creates payment sessions for orders and reconciles their
// payment state with the provider.
type CheckoutService struct {
	orders   repositories.OrderRepository
	provider payment.Provider
	cfg      CheckoutConfig
	events   EventPublisher
	log      *zap.Logger
	now      func() time.Time
}

func NewCheckoutService(orders repositories.OrderRepository, provider payment.Provider, cfg CheckoutConfig, events EventPublisher, log *zap.Logger) *CheckoutService {
	return &CheckoutService{
		orders:   orders,
		provider: provider,
		cfg:      cfg,
		events:   events,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateSession opens a hosted checkout for an unpaid order and stores the
// session id on it. Line items use the prices recorded on the order; shipping
// and tax are added as separate items.
func (s *CheckoutService) CreateSession(ctx context.Context, viewer *models.User, orderID string) (*payment.Session, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, repoError(err, "Order not found", "Failed to create payment session")
	}
	if order.User != "" && !order.IsOwnedBy(viewerID(viewer)) && !viewer.IsStaff() {
		return nil, Forbidden("Not authorized to pay for this order")
	}
	if order.IsPaid {
		checkoutSessions.WithLabelValues("already_paid").Inc()
		return nil, Conflict("Order is already paid")
	}
	if len(order.OrderItems) == 0 {
		checkoutSessions.WithLabelValues("invalid").Inc()
		return nil, BadRequest("Order has no items")
	}

	items, err := lineItems(order)
	if err != nil {
		checkoutSessions.WithLabelValues("invalid").Inc()
		return nil, err
	}
	sess, err := s.provider.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		OrderID:       order.ID,
		CustomerEmail: order.Customer.Email,
		SuccessURL:    s.redirectURL(s.cfg.SuccessPath, order.ID),
		CancelURL:     s.redirectURL(s.cfg.CancelPath, order.ID),
		LineItems:     items,
	})
	if err != nil {
		checkoutSessions.WithLabelValues("provider_error").Inc()
		s.log.Error("payment session creation failed", zap.String("order_id", order.ID), zap.Error(err))
		return nil, Internal("Failed to create payment session", err)
	}

	if err := s.orders.SetSessionID(ctx, order.ID, sess.ID); err != nil {
		if errors.Is(err, repositories.ErrAlreadyPaid) {
			return nil, Conflict("Order is already paid")
		}
		return nil, repoError(err, "Order not found", "Failed to store payment session")
	}
	checkoutSessions.WithLabelValues("created").Inc()
	s.log.Info("payment session created", zap.String("order_id", order.ID), zap.String("session_id", sess.ID))
	return sess, nil
}

// lineItems maps order items to provider line items. Every item must carry a
// provider price id.
func lineItems(order *models.Order) ([]payment.LineItem, error) {
	items := make([]payment.LineItem, 0, len(order.OrderItems)+2)
	for _, it := range order.OrderItems {
		if it.StripePriceID == "" {
			return nil, BadRequest(fmt.Sprintf("Product %s has no payment price", it.Name))
		}
		items = append(items, payment.LineItem{PriceID: it.StripePriceID, Quantity: int64(it.Quantity)})
	}
	if order.ShippingCost > 0 {
		items = append(items, payment.LineItem{Name: "Shipping", UnitAmount: models.ToMinorUnits(order.ShippingCost), Quantity: 1})
	}
	if order.Tax > 0 {
		items = append(items, payment.LineItem{Name: "Tax", UnitAmount: models.ToMinorUnits(order.Tax), Quantity: 1})
	}
	return items, nil
}

func (s *CheckoutService) redirectURL(path, orderID string) string {
	return strings.TrimRight(s.cfg.ClientURL, "/") + fmt.Sprintf(path, orderID)
}

// Reconcile asks the provider for the order's session status and marks the
// order paid when the provider reports it paid. The not-paid guard and the
// write are a single conditional update.
func (s *CheckoutService) Reconcile(ctx context.Context, orderID string) error {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return repoError(err, "Order not found", "Failed to reconcile payment")
	}
	if order.IsPaid {
		reconciliations.WithLabelValues("already_paid").Inc()
		return Conflict("Order is already paid")
	}
	if order.StripeSessionID == "" {
		reconciliations.WithLabelValues("no_session").Inc()
		return NotFound("Payment session not found")
	}

	sess, err := s.provider.GetSession(ctx, order.StripeSessionID)
	if err != nil {
		if errors.Is(err, payment.ErrSessionNotFound) {
			reconciliations.WithLabelValues("no_session").Inc()
			return NotFound("Payment session not found")
		}
		reconciliations.WithLabelValues("provider_error").Inc()
		s.log.Error("payment session lookup failed",
			zap.String("order_id", order.ID), zap.String("session_id", order.StripeSessionID), zap.Error(err))
		return Unavailable("Payment provider unavailable", err)
	}
	if !sess.Paid() {
		reconciliations.WithLabelValues("unpaid").Inc()
		return PaymentRequired("Payment has not been completed")
	}

	paidAt := s.now()
	if err := s.orders.MarkPaid(ctx, order.ID, paidAt); err != nil {
		if errors.Is(err, repositories.ErrAlreadyPaid) {
			reconciliations.WithLabelValues("already_paid").Inc()
			return Conflict("Order is already paid")
		}
		return repoError(err, "Order not found", "Failed to reconcile payment")
	}
	order.IsPaid, order.PaidAt = true, &paidAt

	reconciliations.WithLabelValues("paid").Inc()
	s.log.Info("order paid", zap.String("order_id", order.ID), zap.String("session_id", order.StripeSessionID))
	publishOrderEvent(ctx, s.events, s.log, EventOrderPaid, order)
	return nil
}

func viewerID(u *models.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}
