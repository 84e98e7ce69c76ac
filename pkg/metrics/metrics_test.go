package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestWorkflowMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWorkflowMetrics(reg)

	m.IncInvoiceCreated("card")
	m.IncInvoiceCreated("card")
	m.IncInvoiceCreated("check")
	m.IncLinkMinted()
	m.IncWebhookEvent("applied")
	m.IncWebhookEvent("")

	if got := testutil.ToFloat64(m.invoicesCreated.WithLabelValues("card")); got != 2 {
		t.Fatalf("expected 2 card invoices, got %v", got)
	}
	if got := testutil.ToFloat64(m.invoicesCreated.WithLabelValues("check")); got != 1 {
		t.Fatalf("expected 1 check invoice, got %v", got)
	}
	if got := testutil.ToFloat64(m.linksMinted); got != 1 {
		t.Fatalf("expected 1 link minted, got %v", got)
	}
	if got := testutil.ToFloat64(m.webhookEvents.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("expected empty outcome to normalize to unknown, got %v", got)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	m := NewWorkflowMetrics(nil)
	// must not panic
	m.IncInvoiceCreated("card")
	m.IncLinkMinted()
	m.IncWebhookEvent("applied")
}
