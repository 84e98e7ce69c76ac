package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/ledgerline/backend/pkg/db/models"
	"github.com/ledgerline/backend/pkg/enums"
	pkgerrors "github.com/ledgerline/backend/pkg/errors"
	"github.com/ledgerline/backend/pkg/logger"
	"github.com/ledgerline/backend/pkg/stripegateway"
)

// Outcome classifies how an event was handled. The webhook controller maps
// every outcome to a 2xx response; only signature failures reject.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

// Recognized event kinds. Everything else is acknowledged and dropped.
const (
	eventCheckoutCompleted = "checkout.session.completed"
	eventPaymentSucceeded  = "payment_intent.succeeded"
	eventPaymentFailed     = "payment_intent.payment_failed"
	eventChargeSucceeded   = "charge.succeeded"
)

type ledger interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.InvoiceStatus, receiptURL *string) error
}

// Service reconciles verified Stripe events onto invoice rows.
type Service interface {
	HandleEvent(ctx context.Context, event stripe.Event) (Outcome, error)
}

// ServiceParams wires the reconciler dependencies.
type ServiceParams struct {
	Ledger ledger
	Guard  EventGuard
	Logger *logger.Logger
}

type service struct {
	ledger ledger
	guard  EventGuard
	logg   *logger.Logger
}

// NewService validates dependencies and returns the reconciler.
func NewService(params ServiceParams) (Service, error) {
	if params.Ledger == nil {
		return nil, fmt.Errorf("invoice ledger is required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("event guard is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{ledger: params.Ledger, guard: params.Guard, logg: params.Logger}, nil
}

// eventObject is the slice of the event payload the reconciler reads. The
// invoice id in metadata is the sole correlation key.
type eventObject struct {
	Metadata   map[string]string `json:"metadata"`
	ReceiptURL string            `json:"receipt_url"`
}

func (s *service) HandleEvent(ctx context.Context, event stripe.Event) (Outcome, error) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":   event.ID,
		"event_type": string(event.Type),
	})

	seen, err := s.guard.CheckAndMark(ctx, event.ID)
	if err != nil {
		// the guard failing open is safe: the sticky status transition
		// makes re-application a no-op
		s.logg.Warn(ctx, "event guard unavailable, processing without dedup")
	} else if seen {
		s.logg.Info(ctx, "duplicate event suppressed")
		return OutcomeDuplicate, nil
	}
	marked := err == nil

	// a mark left behind after a failed apply would swallow the Stripe
	// redelivery as a duplicate and strand the invoice
	fail := func(err error) (Outcome, error) {
		if marked {
			if uerr := s.guard.Unmark(ctx, event.ID); uerr != nil {
				s.logg.Warn(ctx, "could not release event id, redelivery may be suppressed")
			}
		}
		return "", err
	}

	var target enums.InvoiceStatus
	switch string(event.Type) {
	case eventCheckoutCompleted, eventPaymentSucceeded, eventChargeSucceeded:
		target = enums.InvoiceStatusPaid
	case eventPaymentFailed:
		target = enums.InvoiceStatusFailed
	default:
		s.logg.Info(ctx, "unrecognized event kind acknowledged")
		return OutcomeIgnored, nil
	}

	if event.Data == nil {
		return fail(pkgerrors.New(pkgerrors.CodeReconciliation, "event has no data object"))
	}
	var object eventObject
	if err := json.Unmarshal(event.Data.Raw, &object); err != nil {
		return fail(pkgerrors.Wrap(pkgerrors.CodeReconciliation, err, "decoding event object"))
	}

	rawID := object.Metadata[stripegateway.MetadataInvoiceID]
	if rawID == "" {
		s.logg.Info(ctx, "event carries no invoice id, acknowledged")
		return OutcomeIgnored, nil
	}
	invoiceID, err := uuid.Parse(rawID)
	if err != nil {
		s.logg.Warn(ctx, "event carries malformed invoice id, acknowledged")
		return OutcomeIgnored, nil
	}
	ctx = s.logg.WithInvoiceID(ctx, invoiceID.String())

	invoice, err := s.ledger.FindByID(ctx, invoiceID)
	if err != nil {
		return fail(pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading invoice"))
	}
	if invoice == nil {
		s.logg.Warn(ctx, "event references unknown invoice, acknowledged")
		return OutcomeIgnored, nil
	}

	// paid is terminal: a late failed event never regresses the invoice
	if invoice.Status.IsTerminal() && target == enums.InvoiceStatusFailed {
		s.logg.Info(ctx, "failed event ignored for paid invoice")
		return OutcomeIgnored, nil
	}

	var receiptURL *string
	if target == enums.InvoiceStatusPaid && object.ReceiptURL != "" {
		receiptURL = &object.ReceiptURL
	}

	if err := s.ledger.UpdateStatus(ctx, invoiceID, target, receiptURL); err != nil {
		return fail(pkgerrors.Wrap(pkgerrors.CodeInternal, err, "applying status transition"))
	}

	s.logg.Info(ctx, fmt.Sprintf("invoice marked %s", target))
	return OutcomeApplied, nil
}
