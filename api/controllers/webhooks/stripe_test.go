package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	stripewebhook "github.com/ledgerline/backend/internal/webhooks/stripe"
	"github.com/ledgerline/backend/pkg/config"
	"github.com/ledgerline/backend/pkg/logger"
	"github.com/ledgerline/backend/pkg/metrics"
)

const testSecret = "whsec_test_secret"

type stubService struct {
	outcome stripewebhook.Outcome
	err     error
	handled []stripe.Event
}

func (s *stubService) HandleEvent(ctx context.Context, event stripe.Event) (stripewebhook.Outcome, error) {
	s.handled = append(s.handled, event)
	if s.err != nil {
		return "", s.err
	}
	return s.outcome, nil
}

func newHandler(svc stripewebhook.Service) http.HandlerFunc {
	return Stripe(
		svc,
		config.StripeConfig{WebhookSecret: testSecret},
		metrics.NewWorkflowMetrics(nil),
		logger.New(logger.Options{ServiceName: "test"}),
	)
}

func eventPayload(t *testing.T, kind string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":          "evt_test_1",
		"object":      "event",
		"api_version": stripe.APIVersion,
		"type":        kind,
		"data": map[string]any{
			"object": map[string]any{
				"metadata": map[string]string{"invoice_id": "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"},
			},
		},
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return body
}

func signedRequest(t *testing.T, payload []byte) *http.Request {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(signed.Payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	return req
}

func TestStripeRejectsInvalidSignature(t *testing.T) {
	svc := &stubService{outcome: stripewebhook.OutcomeApplied}
	handler := newHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe",
		bytes.NewReader(eventPayload(t, "payment_intent.succeeded")))
	req.Header.Set("Stripe-Signature", "t=1,v1=bogus")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(svc.handled) != 0 {
		t.Fatal("service must not run for an unverified payload")
	}
}

func TestStripeRejectsMissingSignature(t *testing.T) {
	svc := &stubService{outcome: stripewebhook.OutcomeApplied}
	handler := newHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe",
		bytes.NewReader(eventPayload(t, "payment_intent.succeeded")))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(svc.handled) != 0 {
		t.Fatal("service must not run without a signature")
	}
}

func TestStripeAcceptsSignedEvent(t *testing.T) {
	svc := &stubService{outcome: stripewebhook.OutcomeApplied}
	handler := newHandler(svc)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(t, eventPayload(t, "payment_intent.succeeded")))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if len(svc.handled) != 1 {
		t.Fatalf("expected one handled event, got %d", len(svc.handled))
	}
	if svc.handled[0].Type != "payment_intent.succeeded" {
		t.Fatalf("unexpected event type %s", svc.handled[0].Type)
	}
}

func TestStripeUnknownKindStillAcknowledged(t *testing.T) {
	svc := &stubService{outcome: stripewebhook.OutcomeIgnored}
	handler := newHandler(svc)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(t, eventPayload(t, "customer.created")))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
