package provider

import "github.com/prometheus/client_golang/prometheus"

// Metrics carries the provider's prometheus collectors. Registered on an
// injected registerer so tests and multiple instances do not collide on
// the default registry.
type Metrics struct {
	ReconciliationWarnings prometheus.Counter
	CaptureDecisions       *prometheus.CounterVec
	WebhookEvents          *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReconciliationWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "paypal_reconciliation_warnings_total",
			Help: "Authorize calls where PayPal auto-captured instead of holding funds.",
		}),
		CaptureDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paypal_capture_decisions_total",
			Help: "Capture requests by reconciliation path.",
		}, []string{"path"}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paypal_webhook_events_total",
			Help: "Verified webhook events by mapped action.",
		}, []string{"action"}),
	}
	if reg != nil {
		reg.MustRegister(m.ReconciliationWarnings, m.CaptureDecisions, m.WebhookEvents)
	}
	return m
}
