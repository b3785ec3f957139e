package services_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCheckout() (*services.CheckoutService, *MockOrderRepository, *MockProvider, *MockPublisher) {
	orders := new(MockOrderRepository)
	provider := new(MockProvider)
	events := new(MockPublisher)
	svc := services.NewCheckoutService(orders, provider, services.CheckoutConfig{
		ClientURL:   "http://shop.test/",
		SuccessPath: "/order/%s?success=true",
		CancelPath:  "/order/%s?canceled=true",
	}, events, zap.NewNop())
	return svc, orders, provider, events
}

func exampleOrder() *models.Order {
	return &models.Order{
		ID:           "o1",
		User:         shopper.ID,
		Customer:     models.Customer{Name: shopper.Name, Email: shopper.Email},
		OrderItems:   []models.OrderItem{{Product: "p1", Name: "Keyboard", Quantity: 2, Price: 10, StripePriceID: "price_123"}},
		Subtotal:     20,
		ShippingCost: 5,
		Tax:          1,
		Total:        26,
	}
}

func TestCheckoutService_CreateSession_BuildsLineItems(t *testing.T) {
	svc, orders, provider, _ := newCheckout()
	orders.On("GetByID", ctx, "o1").Return(exampleOrder(), nil).Once()

	want := payment.CheckoutRequest{
		OrderID:       "o1",
		CustomerEmail: shopper.Email,
		SuccessURL:    "http://shop.test/order/o1?success=true",
		CancelURL:     "http://shop.test/order/o1?canceled=true",
		LineItems: []payment.LineItem{
			{PriceID: "price_123", Quantity: 2},
			{Name: "Shipping", UnitAmount: 500, Quantity: 1},
			{Name: "Tax", UnitAmount: 100, Quantity: 1},
		},
	}
	provider.On("CreateCheckoutSession", ctx, want).
		Return(&payment.Session{ID: "cs_1", URL: "https://pay.test/cs_1"}, nil).Once()
	orders.On("SetSessionID", ctx, "o1", "cs_1").Return(nil).Once()

	sess, err := svc.CreateSession(ctx, shopper, "o1")

	require.NoError(t, err)
	assert.Equal(t, "https://pay.test/cs_1", sess.URL)
	orders.AssertExpectations(t)
	provider.AssertExpectations(t)
}

func TestCheckoutService_CreateSession_SkipsZeroShippingAndTax(t *testing.T) {
	svc, orders, provider, _ := newCheckout()
	order := exampleOrder()
	order.ShippingCost, order.Tax = 0, 0
	orders.On("GetByID", ctx, "o1").Return(order, nil).Once()
	provider.On("CreateCheckoutSession", ctx, mock.MatchedBy(func(req payment.CheckoutRequest) bool {
		return len(req.LineItems) == 1 && req.LineItems[0].PriceID == "price_123"
	})).Return(&payment.Session{ID: "cs_1", URL: "u"}, nil).Once()
	orders.On("SetSessionID", ctx, "o1", "cs_1").Return(nil).Once()

	_, err := svc.CreateSession(ctx, shopper, "o1")
	require.NoError(t, err)
	provider.AssertExpectations(t)
}

func TestCheckoutService_CreateSession_Failures(t *testing.T) {
	tests := []struct {
		name   string
		viewer *models.User
		order  func() (*models.Order, error)
		status int
	}{
		{
			name:   "order not found",
			viewer: shopper,
			order:  func() (*models.Order, error) { return nil, repositories.ErrNotFound },
			status: http.StatusNotFound,
		},
		{
			name:   "already paid",
			viewer: shopper,
			order: func() (*models.Order, error) {
				o := exampleOrder()
				o.IsPaid = true
				return o, nil
			},
			status: http.StatusConflict,
		},
		{
			name:   "no items",
			viewer: shopper,
			order: func() (*models.Order, error) {
				o := exampleOrder()
				o.OrderItems = nil
				return o, nil
			},
			status: http.StatusBadRequest,
		},
		{
			name:   "item without price id",
			viewer: shopper,
			order: func() (*models.Order, error) {
				o := exampleOrder()
				o.OrderItems[0].StripePriceID = ""
				return o, nil
			},
			status: http.StatusBadRequest,
		},
		{
			name:   "someone else's order",
			viewer: other,
			order:  func() (*models.Order, error) { return exampleOrder(), nil },
			status: http.StatusForbidden,
		},
		{
			name:   "anonymous on a user's order",
			viewer: nil,
			order:  func() (*models.Order, error) { return exampleOrder(), nil },
			status: http.StatusForbidden,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, orders, provider, _ := newCheckout()
			order, err := tt.order()
			if order != nil {
				orders.On("GetByID", ctx, "o1").Return(order, nil).Once()
			} else {
				orders.On("GetByID", ctx, "o1").Return(nil, err).Once()
			}

			_, err = svc.CreateSession(ctx, tt.viewer, "o1")

			assertStatus(t, err, tt.status)
			provider.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
			orders.AssertNotCalled(t, "SetSessionID", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCheckoutService_CreateSession_GuestOrderAndStaff(t *testing.T) {
	for _, viewer := range []*models.User{nil, manager} {
		svc, orders, provider, _ := newCheckout()
		order := exampleOrder()
		if viewer == nil {
			order.User = ""
		}
		orders.On("GetByID", ctx, "o1").Return(order, nil).Once()
		provider.On("CreateCheckoutSession", ctx, mock.Anything).Return(&payment.Session{ID: "cs_1", URL: "u"}, nil).Once()
		orders.On("SetSessionID", ctx, "o1", "cs_1").Return(nil).Once()

		_, err := svc.CreateSession(ctx, viewer, "o1")
		require.NoError(t, err)
	}
}

func TestCheckoutService_CreateSession_ProviderError(t *testing.T) {
	svc, orders, provider, _ := newCheckout()
	orders.On("GetByID", ctx, "o1").Return(exampleOrder(), nil).Once()
	provider.On("CreateCheckoutSession", ctx, mock.Anything).Return(nil, errors.New("card network down")).Once()

	_, err := svc.CreateSession(ctx, shopper, "o1")

	assertStatus(t, err, http.StatusInternalServerError)
	orders.AssertNotCalled(t, "SetSessionID", mock.Anything, mock.Anything, mock.Anything)
}

func sessionOrder() *models.Order {
	o := exampleOrder()
	o.StripeSessionID = "cs_1"
	return o
}

func TestCheckoutService_Reconcile_MarksPaid(t *testing.T) {
	svc, orders, provider, events := newCheckout()
	orders.On("GetByID", ctx, "o1").Return(sessionOrder(), nil).Once()
	provider.On("GetSession", ctx, "cs_1").Return(&payment.Session{ID: "cs_1", PaymentStatus: payment.StatusPaid}, nil).Once()
	orders.On("MarkPaid", ctx, "o1", mock.AnythingOfType("time.Time")).Return(nil).Once()
	events.On("Publish", ctx, services.EventOrderPaid, mock.MatchedBy(func(e services.OrderEvent) bool {
		return e.OrderID == "o1" && len(e.Items) == 1 && e.Items[0].Quantity == 2
	})).Return(nil).Once()

	require.NoError(t, svc.Reconcile(ctx, "o1"))

	orders.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestCheckoutService_Reconcile_AlreadyPaidDoesNotMutate(t *testing.T) {
	svc, orders, provider, events := newCheckout()
	paid := sessionOrder()
	paidAt := time.Now()
	paid.IsPaid, paid.PaidAt = true, &paidAt
	orders.On("GetByID", ctx, "o1").Return(paid, nil).Once()

	err := svc.Reconcile(ctx, "o1")

	assertStatus(t, err, http.StatusConflict)
	provider.AssertNotCalled(t, "GetSession", mock.Anything, mock.Anything)
	orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
	events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckoutService_Reconcile_LostRaceIsConflict(t *testing.T) {
	svc, orders, provider, events := newCheckout()
	orders.On("GetByID", ctx, "o1").Return(sessionOrder(), nil).Once()
	provider.On("GetSession", ctx, "cs_1").Return(&payment.Session{ID: "cs_1", PaymentStatus: payment.StatusPaid}, nil).Once()
	orders.On("MarkPaid", ctx, "o1", mock.Anything).Return(repositories.ErrAlreadyPaid).Once()

	err := svc.Reconcile(ctx, "o1")

	assertStatus(t, err, http.StatusConflict)
	events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckoutService_Reconcile_Failures(t *testing.T) {
	tests := []struct {
		name    string
		order   *models.Order
		session *payment.Session
		lookup  error
		status  int
	}{
		{name: "no stored session", order: exampleOrder(), status: http.StatusNotFound},
		{name: "provider lost the session", order: sessionOrder(), lookup: payment.ErrSessionNotFound, status: http.StatusNotFound},
		{name: "provider unavailable", order: sessionOrder(), lookup: errors.New("timeout"), status: http.StatusServiceUnavailable},
		{name: "session not paid", order: sessionOrder(), session: &payment.Session{ID: "cs_1", PaymentStatus: "unpaid"}, status: http.StatusPaymentRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, orders, provider, _ := newCheckout()
			orders.On("GetByID", ctx, "o1").Return(tt.order, nil).Once()
			if tt.order.StripeSessionID != "" {
				if tt.lookup != nil {
					provider.On("GetSession", ctx, "cs_1").Return(nil, tt.lookup).Once()
				} else {
					provider.On("GetSession", ctx, "cs_1").Return(tt.session, nil).Once()
				}
			}

			err := svc.Reconcile(ctx, "o1")

			assertStatus(t, err, tt.status)
			orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCheckoutService_Reconcile_OrderNotFound(t *testing.T) {
	svc, orders, _, _ := newCheckout()
	orders.On("GetByID", ctx, "missing").Return(nil, repositories.ErrNotFound).Once()

	assertStatus(t, svc.Reconcile(ctx, "missing"), http.StatusNotFound)
}
