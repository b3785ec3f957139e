package services

import "github.com/prometheus/client_golang/prometheus"

var (
	checkoutSessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "storefront_checkout_sessions_total", Help: "Checkout session attempts by outcome"},
		[]string{"outcome"},
	)
	reconciliations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "storefront_payment_reconciliations_total", Help: "Payment reconciliations by outcome"},
		[]string{"outcome"},
	)
	ordersCreated = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "storefront_orders_created_total", Help: "Orders placed"},
	)
)

func init() { prometheus.MustRegister(checkoutSessions, reconciliations, ordersCreated) }
