package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkflowMetrics records counters for the invoice workflow and the
// webhook reconciler.
type WorkflowMetrics struct {
	invoicesCreated *prometheus.CounterVec
	linksMinted     prometheus.Counter
	webhookEvents   *prometheus.CounterVec
}

// NewWorkflowMetrics registers the workflow metrics on the provided registerer.
func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	invoicesCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "invoices_created_total",
		Help: "Invoices created, labeled by payment method.",
	}, []string{"payment_method"})
	linksMinted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_links_minted_total",
		Help: "Hosted payment links minted, including resends.",
	})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Webhook events processed, labeled by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(invoicesCreated, linksMinted, webhookEvents)
	return &WorkflowMetrics{
		invoicesCreated: invoicesCreated,
		linksMinted:     linksMinted,
		webhookEvents:   webhookEvents,
	}
}

// IncInvoiceCreated increments the created counter for the given method.
func (m *WorkflowMetrics) IncInvoiceCreated(method string) {
	if m == nil || m.invoicesCreated == nil {
		return
	}
	m.invoicesCreated.WithLabelValues(normalizeLabel(method)).Inc()
}

// IncLinkMinted increments the payment link counter.
func (m *WorkflowMetrics) IncLinkMinted() {
	if m == nil || m.linksMinted == nil {
		return
	}
	m.linksMinted.Inc()
}

// IncWebhookEvent increments the webhook counter for the given outcome
// (applied, duplicate, ignored, rejected).
func (m *WorkflowMetrics) IncWebhookEvent(outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
