package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

func newTestStripe(t *testing.T, handler http.HandlerFunc) *Stripe {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
		MaxNetworkRetries: stripe.Int64(0),
	})
	return NewStripe("sk_test_123", "usd", &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
}

func TestStripe_CreateCheckoutSession(t *testing.T) {
	var form map[string]string
	s := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		form = map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.example/cs_test_1","payment_status":"unpaid"}`))
	})

	sess, err := s.CreateCheckoutSession(context.Background(), CheckoutRequest{
		OrderID:    "o1",
		SuccessURL: "http://shop/order/o1?success=true",
		CancelURL:  "http://shop/order/o1?canceled=true",
		LineItems: []LineItem{
			{PriceID: "price_1", Quantity: 2},
			{Name: "Shipping", UnitAmount: 500, Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", sess.ID)
	assert.Equal(t, "https://checkout.example/cs_test_1", sess.URL)
	assert.False(t, sess.Paid())

	assert.Equal(t, "payment", form["mode"])
	assert.Equal(t, "o1", form["client_reference_id"])
	assert.Equal(t, "price_1", form["line_items[0][price]"])
	assert.Equal(t, "2", form["line_items[0][quantity]"])
	assert.Equal(t, "500", form["line_items[1][price_data][unit_amount]"])
	assert.Equal(t, "usd", form["line_items[1][price_data][currency]"])
	assert.Equal(t, "Shipping", form["line_items[1][price_data][product_data][name]"])
}

func TestStripe_GetSession(t *testing.T) {
	s := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/cs_missing") {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such checkout.session"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"cs_paid","object":"checkout.session","payment_status":"paid"}`))
	})

	sess, err := s.GetSession(context.Background(), "cs_paid")
	require.NoError(t, err)
	assert.True(t, sess.Paid())

	_, err = s.GetSession(context.Background(), "cs_missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

type blockingProvider struct {
	inFlight atomic.Int32
	release  chan struct{}
}

func (p *blockingProvider) CreateCheckoutSession(ctx context.Context, _ CheckoutRequest) (*Session, error) {
	return p.GetSession(ctx, "")
}

func (p *blockingProvider) GetSession(ctx context.Context, _ string) (*Session, error) {
	p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	select {
	case <-p.release:
		return &Session{ID: "cs_1", PaymentStatus: StatusPaid}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestLimited_TimesOutWaitingForSlot(t *testing.T) {
	inner := &blockingProvider{release: make(chan struct{})}
	limited := NewLimited(inner, 1, 0)

	done := make(chan error, 1)
	go func() {
		_, err := limited.GetSession(context.Background(), "cs_1")
		done <- err
	}()
	require.Eventually(t, func() bool { return inner.inFlight.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := limited.GetSession(ctx, "cs_2")
	assert.ErrorIs(t, err, ErrBusy)

	close(inner.release)
	assert.NoError(t, <-done)
}

func TestLimited_AppliesTimeout(t *testing.T) {
	inner := &blockingProvider{release: make(chan struct{})}
	limited := NewLimited(inner, 1, 20*time.Millisecond)

	_, err := limited.GetSession(context.Background(), "cs_1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLimited_PassesThrough(t *testing.T) {
	inner := &blockingProvider{release: make(chan struct{})}
	close(inner.release)
	limited := NewLimited(inner, 2, time.Second)

	sess, err := limited.CreateCheckoutSession(context.Background(), CheckoutRequest{OrderID: "o1"})
	require.NoError(t, err)
	assert.True(t, sess.Paid())
}
