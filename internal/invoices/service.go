package invoices

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/ledgerline/backend/internal/notifications"
	"github.com/ledgerline/backend/internal/settings"
	"github.com/ledgerline/backend/pkg/db/models"
	"github.com/ledgerline/backend/pkg/enums"
	pkgerrors "github.com/ledgerline/backend/pkg/errors"
	"github.com/ledgerline/backend/pkg/logger"
	"github.com/ledgerline/backend/pkg/metrics"
	"github.com/ledgerline/backend/pkg/pagination"
	"github.com/ledgerline/backend/pkg/pdf"
	"github.com/ledgerline/backend/pkg/stripegateway"
)

// Service orchestrates the invoice lifecycle: creation with link minting,
// item-replacing updates, resend, link removal, and deletion. All financial
// writes commit before any notification is attempted; notification failures
// surface as warnings on an otherwise successful result.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*Result, error)
	Get(ctx context.Context, userID, invoiceID uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListResult, error)
	Update(ctx context.Context, userID, invoiceID uuid.UUID, in UpdateInput) (*Result, error)
	Resend(ctx context.Context, userID, invoiceID uuid.UUID) (*Result, error)
	RemovePaymentLink(ctx context.Context, userID, invoiceID uuid.UUID) (*Result, error)
	Delete(ctx context.Context, userID, invoiceID uuid.UUID) error
}

type customerFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the orchestrator dependencies.
type ServiceParams struct {
	Repo       Repository
	Customers  customerFinder
	Gateway    stripegateway.Gateway
	Resolver   settings.Resolver
	Dispatcher notifications.Dispatcher
	Renderer   pdf.Renderer
	Runner     txRunner
	Metrics    *metrics.WorkflowMetrics
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	repo       Repository
	customers  customerFinder
	gateway    stripegateway.Gateway
	resolver   settings.Resolver
	dispatcher notifications.Dispatcher
	renderer   pdf.Renderer
	runner     txRunner
	metrics    *metrics.WorkflowMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// NewService validates dependencies and returns the invoice orchestrator.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("invoice repository is required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customer finder is required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway is required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("settings resolver is required")
	}
	if params.Dispatcher == nil {
		return nil, fmt.Errorf("notification dispatcher is required")
	}
	if params.Renderer == nil {
		return nil, fmt.Errorf("pdf renderer is required")
	}
	if params.Runner == nil {
		return nil, fmt.Errorf("tx runner is required")
	}
	if params.Metrics == nil {
		return nil, fmt.Errorf("workflow metrics are required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:       params.Repo,
		customers:  params.Customers,
		gateway:    params.Gateway,
		resolver:   params.Resolver,
		dispatcher: params.Dispatcher,
		renderer:   params.Renderer,
		runner:     params.Runner,
		metrics:    params.Metrics,
		logg:       params.Logger,
		now:        now,
	}, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*Result, error) {
	customer, err := s.ownedCustomer(ctx, userID, in.CustomerID)
	if err != nil {
		return nil, err
	}
	if in.DueDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "due date is required")
	}
	if err := validateItems(in.Items); err != nil {
		return nil, err
	}

	method := in.PaymentMethod
	if method == "" {
		method = enums.PaymentMethodCard
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", method))
	}

	invoice := &models.Invoice{
		ID:                uuid.New(),
		Number:            NextNumber(s.now()),
		UserID:            userID,
		CustomerID:        customer.ID,
		Amount:            amountOf(in.Items),
		Status:            enums.InvoiceStatusPending,
		DueDate:           in.DueDate,
		PaymentMethod:     method,
		CheckNumber:       in.CheckNumber,
		CheckReceivedDate: in.CheckReceivedDate,
		Items:             itemModels(in.Items),
	}

	// a received check is trusted on entry
	if method == enums.PaymentMethodCheck && in.CheckReceivedDate != nil {
		invoice.Status = enums.InvoiceStatusPaid
	}

	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Create(ctx, invoice)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating invoice")
	}

	s.metrics.IncInvoiceCreated(method.String())
	ctx = s.logg.WithInvoiceID(s.logg.WithUserID(ctx, userID.String()), invoice.ID.String())
	s.logg.Info(ctx, "invoice created")

	resolved, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	if method == enums.PaymentMethodCard {
		// the committed invoice survives a minting failure; Resend retries
		// the link against the same row
		link, err := s.mintLink(ctx, resolved.StripeAPIKey, invoice)
		if err != nil {
			return nil, err
		}
		if err := s.repo.UpdatePaymentLink(ctx, invoice.ID, link.ID, link.URL); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting payment link")
		}
		invoice.PaymentLinkID = &link.ID
		invoice.PaymentLinkURL = &link.URL
	}

	warning := s.notify(ctx, invoice, customer, resolved)
	return &Result{Invoice: invoice, Warning: warning}, nil
}

func (s *service) Get(ctx context.Context, userID, invoiceID uuid.UUID) (*models.Invoice, error) {
	return s.owned(ctx, userID, invoiceID)
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListResult, error) {
	rows, err := s.repo.List(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing invoices")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	result := &ListResult{Invoices: rows}
	if len(rows) > limit {
		result.Invoices = rows[:limit]
		last := result.Invoices[limit-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return result, nil
}

func (s *service) Update(ctx context.Context, userID, invoiceID uuid.UUID, in UpdateInput) (*Result, error) {
	invoice, err := s.owned(ctx, userID, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status == enums.InvoiceStatusPaid && in.Items != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "items of a paid invoice cannot be edited")
	}

	if in.DueDate != nil {
		if in.DueDate.IsZero() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "due date cannot be empty")
		}
		invoice.DueDate = *in.DueDate
	}
	if in.CheckNumber != nil {
		if invoice.PaymentMethod != enums.PaymentMethodCheck {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "check fields apply to check invoices only")
		}
		invoice.CheckNumber = in.CheckNumber
	}
	if in.CheckReceivedDate != nil {
		if invoice.PaymentMethod != enums.PaymentMethodCheck {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "check fields apply to check invoices only")
		}
		invoice.CheckReceivedDate = in.CheckReceivedDate
		if invoice.Status == enums.InvoiceStatusPending {
			invoice.Status = enums.InvoiceStatusPaid
		}
	}

	previousAmount := invoice.Amount
	var replacement []models.InvoiceItem
	if in.Items != nil {
		if err := validateItems(in.Items); err != nil {
			return nil, err
		}
		invoice.Amount = amountOf(in.Items)
		replacement = itemModels(in.Items)
	}

	// a live link priced at the old amount must be replaced before commit
	var staleLinkID string
	var resolved *settings.Resolved
	if in.Items != nil &&
		invoice.HasPaymentLink() &&
		!invoice.Amount.Equal(previousAmount) &&
		invoice.Status == enums.InvoiceStatusPending {

		resolved, err = s.resolver.Resolve(ctx, userID)
		if err != nil {
			return nil, err
		}
		link, err := s.mintLink(ctx, resolved.StripeAPIKey, invoice)
		if err != nil {
			return nil, err
		}
		staleLinkID = *invoice.PaymentLinkID
		invoice.PaymentLinkID = &link.ID
		invoice.PaymentLinkURL = &link.URL
	}

	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if replacement != nil {
			if err := txRepo.ReplaceItems(ctx, invoice.ID, replacement); err != nil {
				return err
			}
		}
		return txRepo.Save(ctx, invoice)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating invoice")
	}
	if replacement != nil {
		invoice.Items = replacement
	}

	ctx = s.logg.WithInvoiceID(s.logg.WithUserID(ctx, userID.String()), invoice.ID.String())
	s.logg.Info(ctx, "invoice updated")

	var warning *pkgerrors.Error
	if staleLinkID != "" {
		if err := s.gateway.DeactivateLink(ctx, resolved.StripeAPIKey, staleLinkID); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "payment_link_id", staleLinkID), "stale payment link left active")
			warning = warningFrom(err)
		}
	}
	return &Result{Invoice: invoice, Warning: warning}, nil
}

// Resend mints a fresh payment link for a card invoice and re-sends the
// notification email. The invoice itself (id, number, amount) is untouched.
// A paid invoice is only re-notified; minting a new link for it would
// invite a second payment.
func (s *service) Resend(ctx context.Context, userID, invoiceID uuid.UUID) (*Result, error) {
	invoice, err := s.owned(ctx, userID, invoiceID)
	if err != nil {
		return nil, err
	}

	customer, err := s.ownedCustomer(ctx, userID, invoice.CustomerID)
	if err != nil {
		return nil, err
	}

	resolved, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	var soft error

	if invoice.PaymentMethod == enums.PaymentMethodCard && invoice.Status != enums.InvoiceStatusPaid {
		var oldLinkID string
		if invoice.HasPaymentLink() {
			oldLinkID = *invoice.PaymentLinkID
		}

		link, err := s.mintLink(ctx, resolved.StripeAPIKey, invoice)
		if err != nil {
			return nil, err
		}
		if err := s.repo.UpdatePaymentLink(ctx, invoice.ID, link.ID, link.URL); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting payment link")
		}
		invoice.PaymentLinkID = &link.ID
		invoice.PaymentLinkURL = &link.URL

		if oldLinkID != "" {
			if err := s.gateway.DeactivateLink(ctx, resolved.StripeAPIKey, oldLinkID); err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "payment_link_id", oldLinkID), "previous payment link left active")
				soft = multierr.Append(soft, err)
			}
		}
	}

	ctx = s.logg.WithInvoiceID(s.logg.WithUserID(ctx, userID.String()), invoice.ID.String())
	s.logg.Info(ctx, "invoice resent")

	if warn := s.notify(ctx, invoice, customer, resolved); warn != nil {
		soft = multierr.Append(soft, warn)
	}
	return &Result{Invoice: invoice, Warning: warningFrom(soft)}, nil
}

// RemovePaymentLink clears the stored link fields after a best-effort
// gateway deactivation. A deactivation failure is surfaced as a warning,
// never blocks the removal.
func (s *service) RemovePaymentLink(ctx context.Context, userID, invoiceID uuid.UUID) (*Result, error) {
	invoice, err := s.owned(ctx, userID, invoiceID)
	if err != nil {
		return nil, err
	}
	if !invoice.HasPaymentLink() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice has no payment link")
	}

	linkID := *invoice.PaymentLinkID
	var soft error
	if resolved, err := s.resolver.Resolve(ctx, userID); err != nil {
		s.logg.Warn(ctx, "settings unavailable, payment link left active")
		soft = multierr.Append(soft, err)
	} else if err := s.gateway.DeactivateLink(ctx, resolved.StripeAPIKey, linkID); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "payment_link_id", linkID), "payment link left active")
		soft = multierr.Append(soft, err)
	}

	if err := s.repo.ClearPaymentLink(ctx, invoice.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing payment link")
	}

	invoice.PaymentLinkID = nil
	invoice.PaymentLinkURL = nil

	s.logg.Info(s.logg.WithInvoiceID(ctx, invoice.ID.String()), "payment link removed")
	return &Result{Invoice: invoice, Warning: warningFrom(soft)}, nil
}

func (s *service) Delete(ctx context.Context, userID, invoiceID uuid.UUID) error {
	invoice, err := s.owned(ctx, userID, invoiceID)
	if err != nil {
		return err
	}

	// best effort: a dangling active link is logged, never blocks deletion
	if invoice.HasPaymentLink() && invoice.Status == enums.InvoiceStatusPending {
		if resolved, err := s.resolver.Resolve(ctx, userID); err != nil {
			s.logg.Warn(ctx, "settings unavailable, skipping link deactivation")
		} else if err := s.gateway.DeactivateLink(ctx, resolved.StripeAPIKey, *invoice.PaymentLinkID); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "payment_link_id", *invoice.PaymentLinkID), "payment link left active on delete")
		}
	}

	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Delete(ctx, invoice.ID)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting invoice")
	}

	s.logg.Info(s.logg.WithInvoiceID(s.logg.WithUserID(ctx, userID.String()), invoice.ID.String()), "invoice deleted")
	return nil
}

func (s *service) mintLink(ctx context.Context, apiKey string, invoice *models.Invoice) (*stripegateway.Link, error) {
	link, err := s.gateway.CreatePriceAndLink(ctx, apiKey, stripegateway.CreateLinkInput{
		AmountCents: invoice.Amount.Shift(2).IntPart(),
		Description: fmt.Sprintf("Invoice %s", invoice.Number),
		Metadata: map[string]string{
			stripegateway.MetadataInvoiceID: invoice.ID.String(),
		},
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncLinkMinted()
	return link, nil
}

func (s *service) notify(ctx context.Context, invoice *models.Invoice, customer *models.Customer, resolved *settings.Resolved) *pkgerrors.Error {
	var paymentURL string
	if invoice.PaymentLinkURL != nil {
		paymentURL = *invoice.PaymentLinkURL
	}

	doc := pdf.InvoiceDocument{
		Number:        invoice.Number,
		CompanyName:   resolved.CompanyName,
		CustomerName:  customer.Name,
		CustomerEmail: customer.Email,
		IssuedAt:      invoice.CreatedAt,
		DueDate:       invoice.DueDate,
		Amount:        invoice.Amount,
		PaymentURL:    paymentURL,
	}
	for _, item := range invoice.Items {
		doc.Items = append(doc.Items, pdf.LineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}

	attachment, err := s.renderer.RenderInvoice(doc)
	if err != nil {
		s.logg.Warn(ctx, "invoice pdf render failed, sending without attachment")
		attachment = nil
	}

	email := notifications.InvoiceEmail{
		To:            customer.Email,
		FromEmail:     resolved.FromEmail,
		CompanyName:   resolved.CompanyName,
		InvoiceNumber: invoice.Number,
		Amount:        invoice.Amount,
		DueDate:       invoice.DueDate,
		PaymentURL:    paymentURL,
		Attachment:    attachment,
	}
	if err := s.dispatcher.SendInvoice(ctx, email); err != nil {
		s.logg.Error(ctx, "invoice notification failed", err)
		return warningFrom(err)
	}
	return nil
}

func (s *service) owned(ctx context.Context, userID, invoiceID uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading invoice")
	}
	if invoice == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
	}
	if invoice.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "invoice belongs to another user")
	}
	return invoice, nil
}

func (s *service) ownedCustomer(ctx context.Context, userID, customerID uuid.UUID) (*models.Customer, error) {
	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading customer")
	}
	if customer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	if customer.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "customer belongs to another user")
	}
	return customer, nil
}

func validateItems(items []ItemInput) error {
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one line item is required")
	}
	for i, item := range items {
		if strings.TrimSpace(item.Description) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: description is required", i))
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: quantity must be positive", i))
		}
		if item.UnitPrice.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: unit price cannot be negative", i))
		}
	}
	return nil
}

// amountOf recomputes the invoice total from its items. The stored amount
// is always this sum; client-provided totals are never persisted.
func amountOf(items []ItemInput) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total.Round(2)
}

func itemModels(items []ItemInput) []models.InvoiceItem {
	out := make([]models.InvoiceItem, 0, len(items))
	for _, item := range items {
		out = append(out, models.InvoiceItem{
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.Round(2),
		})
	}
	return out
}

func warningFrom(errs ...error) *pkgerrors.Error {
	combined := multierr.Combine(errs...)
	if combined == nil {
		return nil
	}
	if typed := pkgerrors.As(combined); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeNotification, combined, "post-commit follow-up failed")
}
