package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records counters for the order-placement pipeline.
type CheckoutMetrics struct {
	ordersCreated       *prometheus.CounterVec
	reservationFailures *prometheus.CounterVec
	paymentCallbacks    *prometheus.CounterVec
	submitDuration      prometheus.Histogram
}

// NewCheckoutMetrics registers the checkout metrics on the provided
// registerer. A nil registerer yields a no-op recorder.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created at checkout submit, by payment method.",
	}, []string{"method"})
	reservationFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_failures_total",
		Help: "Inventory reservations aborted, by reason.",
	}, []string{"reason"})
	paymentCallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_callbacks_total",
		Help: "Gateway callbacks processed, by outcome.",
	}, []string{"outcome"})
	submitDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_submit_duration_seconds",
		Help:    "Duration of the checkout submit transaction.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(ordersCreated, reservationFailures, paymentCallbacks, submitDuration)
	return &CheckoutMetrics{
		ordersCreated:       ordersCreated,
		reservationFailures: reservationFailures,
		paymentCallbacks:    paymentCallbacks,
		submitDuration:      submitDuration,
	}
}

// IncOrderCreated counts a successfully created order.
func (m *CheckoutMetrics) IncOrderCreated(method string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(method)).Inc()
}

// IncReservationFailure counts an aborted reservation.
func (m *CheckoutMetrics) IncReservationFailure(reason string) {
	if m == nil || m.reservationFailures == nil {
		return
	}
	m.reservationFailures.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncPaymentCallback counts a processed gateway callback.
func (m *CheckoutMetrics) IncPaymentCallback(outcome string) {
	if m == nil || m.paymentCallbacks == nil {
		return
	}
	m.paymentCallbacks.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveSubmitDuration records how long a submit transaction took.
func (m *CheckoutMetrics) ObserveSubmitDuration(duration time.Duration) {
	if m == nil || m.submitDuration == nil {
		return
	}
	m.submitDuration.Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
