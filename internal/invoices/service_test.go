package invoices

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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

type stubRepo struct {
	byID        map[uuid.UUID]*models.Invoice
	created     []*models.Invoice
	replaced    map[uuid.UUID][]models.InvoiceItem
	linkUpdates []string
	linkCleared []uuid.UUID
	deleted     []uuid.UUID
	listed      []models.Invoice
	saveErr     error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		byID:     map[uuid.UUID]*models.Invoice{},
		replaced: map[uuid.UUID][]models.InvoiceItem{},
	}
}

func (s *stubRepo) Create(ctx context.Context, invoice *models.Invoice) error {
	s.created = append(s.created, invoice)
	s.byID[invoice.ID] = invoice
	return nil
}

func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	return s.byID[id], nil
}

func (s *stubRepo) List(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Invoice, error) {
	return s.listed, nil
}

func (s *stubRepo) Save(ctx context.Context, invoice *models.Invoice) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.byID[invoice.ID] = invoice
	return nil
}

func (s *stubRepo) ReplaceItems(ctx context.Context, invoiceID uuid.UUID, items []models.InvoiceItem) error {
	s.replaced[invoiceID] = items
	return nil
}

func (s *stubRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.InvoiceStatus, receiptURL *string) error {
	return nil
}

func (s *stubRepo) UpdatePaymentLink(ctx context.Context, id uuid.UUID, linkID, linkURL string) error {
	s.linkUpdates = append(s.linkUpdates, linkID)
	return nil
}

func (s *stubRepo) ClearPaymentLink(ctx context.Context, id uuid.UUID) error {
	s.linkCleared = append(s.linkCleared, id)
	return nil
}

func (s *stubRepo) Delete(ctx context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	delete(s.byID, id)
	return nil
}

func (s *stubRepo) CountItems(ctx context.Context, invoiceID uuid.UUID) (int64, error) {
	return int64(len(s.replaced[invoiceID])), nil
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

type stubGateway struct {
	created       []stripegateway.CreateLinkInput
	deactivated   []string
	createErr     error
	deactivateErr error
	nextID        string
}

func (s *stubGateway) CreatePriceAndLink(ctx context.Context, apiKey string, in stripegateway.CreateLinkInput) (*stripegateway.Link, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = append(s.created, in)
	id := s.nextID
	if id == "" {
		id = "plink_" + uuid.NewString()[:8]
	}
	return &stripegateway.Link{ID: id, URL: "https://pay.test/" + id}, nil
}

func (s *stubGateway) DeactivateLink(ctx context.Context, apiKey, linkID string) error {
	if s.deactivateErr != nil {
		return s.deactivateErr
	}
	s.deactivated = append(s.deactivated, linkID)
	return nil
}

type stubResolver struct {
	resolved *settings.Resolved
	err      error
}

func (s *stubResolver) Resolve(ctx context.Context, userID uuid.UUID) (*settings.Resolved, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.resolved != nil {
		return s.resolved, nil
	}
	return &settings.Resolved{StripeAPIKey: "sk_test_abc", FromEmail: "billing@test", CompanyName: "Test Co"}, nil
}

type stubDispatcher struct {
	sent []notifications.InvoiceEmail
	err  error
}

func (s *stubDispatcher) SendInvoice(ctx context.Context, email notifications.InvoiceEmail) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, email)
	return nil
}

type stubRenderer struct {
	err error
}

func (s *stubRenderer) RenderInvoice(doc pdf.InvoiceDocument) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte("%PDF-stub"), nil
}

type stubCustomers struct {
	byID map[uuid.UUID]*models.Customer
}

func (s *stubCustomers) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	return s.byID[id], nil
}

type stubRunner struct{}

func (stubRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fixture struct {
	svc        Service
	repo       *stubRepo
	gateway    *stubGateway
	dispatcher *stubDispatcher
	customers  *stubCustomers
	userID     uuid.UUID
	customerID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repo:       newStubRepo(),
		gateway:    &stubGateway{},
		dispatcher: &stubDispatcher{},
		customers:  &stubCustomers{byID: map[uuid.UUID]*models.Customer{}},
		userID:     uuid.New(),
	}

	customer := &models.Customer{ID: uuid.New(), UserID: f.userID, Name: "Acme", Email: "acme@test"}
	f.customers.byID[customer.ID] = customer
	f.customerID = customer.ID

	svc, err := NewService(ServiceParams{
		Repo:       f.repo,
		Customers:  f.customers,
		Gateway:    f.gateway,
		Resolver:   &stubResolver{},
		Dispatcher: f.dispatcher,
		Renderer:   &stubRenderer{},
		Runner:     stubRunner{},
		Metrics:    metrics.NewWorkflowMetrics(nil),
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func twoItems() []ItemInput {
	return []ItemInput{
		{Description: "Consulting", Quantity: 3, UnitPrice: decimal.NewFromFloat(100.00)},
		{Description: "Filing fee", Quantity: 1, UnitPrice: decimal.NewFromFloat(49.50)},
	}
}

func dueDate() time.Time {
	return time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
}

func TestCreateRecomputesAmountFromItems(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Create(context.Background(), f.userID, CreateInput{
		CustomerID:    f.customerID,
		DueDate:       dueDate(),
		PaymentMethod: enums.PaymentMethodCard,
		Items:         twoItems(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	want := decimal.NewFromFloat(349.50)
	if !result.Invoice.Amount.Equal(want) {
		t.Fatalf("amount = %s, want %s", result.Invoice.Amount, want)
	}
	if len(result.Invoice.Items) != 2 {
		t.Fatalf("expected 2 items persisted, got %d", len(result.Invoice.Items))
	}
}

func TestCreateCardMintsLinkWithInvoiceMetadata(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Create(context.Background(), f.userID, CreateInput{
		CustomerID:    f.customerID,
		DueDate:       dueDate(),
		PaymentMethod: enums.PaymentMethodCard,
		Items:         twoItems(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if len(f.gateway.created) != 1 {
		t.Fatalf("expected one gateway call, got %d", len(f.gateway.created))
	}
	call := f.gateway.created[0]
	if call.AmountCents != 34950 {
		t.Fatalf("amount cents = %d, want 34950", call.AmountCents)
	}
	if call.Metadata[stripegateway.MetadataInvoiceID] != result.Invoice.ID.String() {
		t.Fatalf("metadata invoice id = %q", call.Metadata[stripegateway.MetadataInvoiceID])
	}
	if !result.Invoice.HasPaymentLink() {
		t.Fatal("expected link fields populated")
	}
}

func TestCreateCheckWithReceivedDateIsPaidWithoutGateway(t *testing.T) {
	f := newFixture(t)
	received := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	number := "1042"

	result, err := f.svc.Create(context.Background(), f.userID, CreateInput{
		CustomerID:        f.customerID,
		DueDate:           dueDate(),
		PaymentMethod:     enums.PaymentMethodCheck,
		Items:             twoItems(),
		CheckNumber:       &number,
		CheckReceivedDate: &received,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if result.Invoice.Status != enums.InvoiceStatusPaid {
		t.Fatalf("status = %s, want paid", result.Invoice.Status)
	}
	if len(f.gateway.created) != 0 {
		t.Fatal("check invoices must not touch the gateway")
	}
	if result.Invoice.HasPaymentLink() {
		t.Fatal("check invoices must not carry a link")
	}
}

func TestCreateGatewayFailureLeavesRecoverableInvoice(t *testing.T) {
	f := newFixture(t)
	f.gateway.createErr = pkgerrors.New(pkgerrors.CodeGateway, "stripe down")

	_, err := f.svc.Create(context.Background(), f.userID, CreateInput{
		CustomerID:    f.customerID,
		DueDate:       dueDate(),
		PaymentMethod: enums.PaymentMethodCard,
		Items:         twoItems(),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeGateway) {
		t.Fatalf("expected gateway error, got %v", err)
	}
	if len(f.repo.created) != 1 {
		t.Fatalf("invoice and items must be committed before link minting, persisted=%d", len(f.repo.created))
	}

	orphan := f.repo.created[0]
	if orphan.Status != enums.InvoiceStatusPending {
		t.Fatalf("orphaned invoice status = %s, want pending", orphan.Status)
	}
	if orphan.HasPaymentLink() {
		t.Fatal("no link fields may be set when minting failed")
	}

	// the link is retried against the same row
	f.gateway.createErr = nil
	f.gateway.nextID = "plink_retry"
	result, err := f.svc.Resend(context.Background(), f.userID, orphan.ID)
	if err != nil {
		t.Fatalf("Resend after minting failure: %v", err)
	}
	if result.Invoice.PaymentLinkID == nil || *result.Invoice.PaymentLinkID != "plink_retry" {
		t.Fatalf("expected retried link, got %+v", result.Invoice.PaymentLinkID)
	}
	if len(f.repo.created) != 1 {
		t.Fatal("resend must not create a second invoice row")
	}
}

func TestCreateNotificationFailureIsWarningNotError(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.err = pkgerrors.New(pkgerrors.CodeNotification, "smtp refused")

	result, err := f.svc.Create(context.Background(), f.userID, CreateInput{
		CustomerID:    f.customerID,
		DueDate:       dueDate(),
		PaymentMethod: enums.PaymentMethodCard,
		Items:         twoItems(),
	})
	if err != nil {
		t.Fatalf("Create must succeed despite notification failure: %v", err)
	}
	if result.Warning == nil {
		t.Fatal("expected warning for failed notification")
	}
	if result.Warning.Code() != pkgerrors.CodeNotification {
		t.Fatalf("warning code = %s", result.Warning.Code())
	}
	if len(f.repo.created) != 1 {
		t.Fatal("invoice must stay committed")
	}
}

func TestCreateRejectsCrossTenantCustomer(t *testing.T) {
	f := newFixture(t)
	other := &models.Customer{ID: uuid.New(), UserID: uuid.New(), Name: "Other", Email: "o@test"}
	f.customers.byID[other.ID] = other

	_, err := f.svc.Create(context.Background(), f.userID, CreateInput{
		CustomerID:    other.ID,
		DueDate:       dueDate(),
		PaymentMethod: enums.PaymentMethodCard,
		Items:         twoItems(),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCreateRejectsInvalidItems(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name  string
		items []ItemInput
	}{
		{"empty", nil},
		{"zero quantity", []ItemInput{{Description: "x", Quantity: 0, UnitPrice: decimal.NewFromInt(1)}}},
		{"negative price", []ItemInput{{Description: "x", Quantity: 1, UnitPrice: decimal.NewFromInt(-1)}}},
		{"blank description", []ItemInput{{Description: "  ", Quantity: 1, UnitPrice: decimal.NewFromInt(1)}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), f.userID, CreateInput{
				CustomerID:    f.customerID,
				DueDate:       dueDate(),
				PaymentMethod: enums.PaymentMethodCard,
				Items:         tc.items,
			})
			if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func seedInvoice(f *fixture, status enums.InvoiceStatus, linkID string) *models.Invoice {
	invoice := &models.Invoice{
		ID:            uuid.New(),
		Number:        "INV-TEST1",
		UserID:        f.userID,
		CustomerID:    f.customerID,
		Amount:        decimal.NewFromFloat(349.50),
		Status:        status,
		DueDate:       dueDate(),
		PaymentMethod: enums.PaymentMethodCard,
		Items: []models.InvoiceItem{
			{Description: "Consulting", Quantity: 3, UnitPrice: decimal.NewFromFloat(100.00)},
			{Description: "Filing fee", Quantity: 1, UnitPrice: decimal.NewFromFloat(49.50)},
		},
	}
	if linkID != "" {
		url := "https://pay.test/" + linkID
		invoice.PaymentLinkID = &linkID
		invoice.PaymentLinkURL = &url
	}
	f.repo.byID[invoice.ID] = invoice
	return invoice
}

func TestResendMintsNewLinkAndKeepsIdentity(t *testing.T) {
	f := newFixture(t)
	invoice := seedInvoice(f, enums.InvoiceStatusPending, "plink_old")
	f.gateway.nextID = "plink_new"

	result, err := f.svc.Resend(context.Background(), f.userID, invoice.ID)
	if err != nil {
		t.Fatalf("Resend: %v", err)
	}
	if result.Warning != nil {
		t.Fatalf("unexpected warning: %v", result.Warning)
	}

	if result.Invoice.ID != invoice.ID || result.Invoice.Number != "INV-TEST1" {
		t.Fatal("resend must not change invoice identity")
	}
	if result.Invoice.PaymentLinkID == nil || *result.Invoice.PaymentLinkID != "plink_new" {
		t.Fatalf("expected new link, got %+v", result.Invoice.PaymentLinkID)
	}
	if len(f.gateway.deactivated) != 1 || f.gateway.deactivated[0] != "plink_old" {
		t.Fatalf("expected old link deactivated, got %v", f.gateway.deactivated)
	}
	if len(f.dispatcher.sent) != 1 {
		t.Fatalf("expected one notification, got %d", len(f.dispatcher.sent))
	}
}

func TestResendDeactivateFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	invoice := seedInvoice(f, enums.InvoiceStatusPending, "plink_old")
	f.gateway.deactivateErr = errors.New("already archived")

	result, err := f.svc.Resend(context.Background(), f.userID, invoice.ID)
	if err != nil {
		t.Fatalf("Resend must still succeed: %v", err)
	}
	if result.Warning == nil {
		t.Fatal("expected warning for failed deactivation")
	}
	if len(f.dispatcher.sent) != 1 {
		t.Fatal("notification must still go out")
	}
}

func TestResendPaidInvoiceNotifiesWithoutMinting(t *testing.T) {
	f := newFixture(t)
	invoice := seedInvoice(f, enums.InvoiceStatusPaid, "plink_old")

	result, err := f.svc.Resend(context.Background(), f.userID, invoice.ID)
	if err != nil {
		t.Fatalf("Resend: %v", err)
	}
	if len(f.gateway.created) != 0 {
		t.Fatal("no link may be minted for a paid invoice")
	}
	if result.Invoice.PaymentLinkID == nil || *result.Invoice.PaymentLinkID != "plink_old" {
		t.Fatalf("link fields must be untouched, got %+v", result.Invoice.PaymentLinkID)
	}
	if len(f.dispatcher.sent) != 1 {
		t.Fatalf("expected one notification, got %d", len(f.dispatcher.sent))
	}
}

func TestUpdateReplacesItemsAndRecomputesAmount(t *testing.T) {
	f := newFixture(t)
	invoice := seedInvoice(f, enums.InvoiceStatusPending, "")

	result, err := f.svc.Update(context.Background(), f.userID, invoice.ID, UpdateInput{
		Items: []ItemInput{
			{Description: "Retainer", Quantity: 2, UnitPrice: decimal.NewFromFloat(250.00)},
		},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	want := decimal.NewFromFloat(500.00)
	if !result.Invoice.Amount.Equal(want) {
		t.Fatalf("amount = %s, want %s", result.Invoice.Amount, want)
	}
	replaced := f.repo.replaced[invoice.ID]
	if len(replaced) != 1 || replaced[0].Description != "Retainer" {
		t.Fatalf("items not replaced wholesale: %+v", replaced)
	}
}

func TestUpdatePaidItemsIsConflict(t *testing.T) {
	f := newFixture(t)
	invoice := seedInvoice(f, enums.InvoiceStatusPaid, "")

	_, err := f.svc.Update(context.Background(), f.userID, invoice.ID, UpdateInput{
		Items: []ItemInput{{Description: "x", Quantity: 1, UnitPrice: decimal.NewFromInt(1)}},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestUpdateAmountChangeRemintsLink(t *testing.T) {
	f := newFixture(t)
	invoice := seedInvoice(f, enums.InvoiceStatusPending, "plink_old")
	f.gateway.nextID = "plink_repriced"

	result, err := f.svc.Update(context.Background(), f.userID, invoice.ID, UpdateInput{
		Items: []ItemInput{{Description: "Retainer", Quantity: 1, UnitPrice: decimal.NewFromFloat(500.00)}},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if result.Invoice.PaymentLinkID == nil || *result.Invoice.PaymentLinkID != "plink_repriced" {
		t.Fatalf("expected repriced link, got %+v", result.Invoice.PaymentLinkID)
	}
	if len(f.gateway.deactivated) != 1 || f.gateway.deactivated[0] != "plink_old" {
		t.Fatalf("expected old link deactivated, got %v", f.gateway.deactivated)
	}
}

func TestRemovePaymentLinkClearsFields(t *testing.T) {
	f := newFixture(t)
	invoice := seedInvoice(f, enums.InvoiceStatusPending, "plink_old")

	result, err := f.svc.RemovePaymentLink(context.Background(), f.userID, invoice.ID)
	if err != nil {
		t.Fatalf("RemovePaymentLink: %v", err)
	}
	if result.Warning != nil {
		t.Fatalf("unexpected warning: %v", result.Warning)
	}
	if result.Invoice.HasPaymentLink() {
		t.Fatal("expected link fields cleared")
	}
	if len(f.gateway.deactivated) != 1 || f.gateway.deactivated[0] != "plink_old" {
		t.Fatalf("expected link deactivated, got %v", f.gateway.deactivated)
	}
	if len(f.repo.linkCleared) != 1 {
		t.Fatal("expected one clear call")
	}
}

func TestRemovePaymentLinkClearsDespiteGatewayFailure(t *testing.T) {
	f := newFixture(t)
	invoice := seedInvoice(f, enums.InvoiceStatusPending, "plink_old")
	f.gateway.deactivateErr = pkgerrors.New(pkgerrors.CodeGateway, "stripe down")

	result, err := f.svc.RemovePaymentLink(context.Background(), f.userID, invoice.ID)
	if err != nil {
		t.Fatalf("RemovePaymentLink must succeed despite gateway failure: %v", err)
	}
	if result.Warning == nil {
		t.Fatal("expected warning for failed deactivation")
	}
	if result.Invoice.HasPaymentLink() {
		t.Fatal("expected link fields cleared regardless")
	}
	if len(f.repo.linkCleared) != 1 {
		t.Fatal("expected one clear call")
	}
}

func TestDeleteEnforcesOwnership(t *testing.T) {
	f := newFixture(t)
	invoice := seedInvoice(f, enums.InvoiceStatusPending, "")

	err := f.svc.Delete(context.Background(), uuid.New(), invoice.ID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if len(f.repo.deleted) != 0 {
		t.Fatal("cross-tenant delete must not run")
	}

	if err := f.svc.Delete(context.Background(), f.userID, invoice.ID); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
	if len(f.repo.deleted) != 1 {
		t.Fatal("expected one delete")
	}
}

func TestListPaginatesWithCursor(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.repo.listed = append(f.repo.listed, models.Invoice{ID: uuid.New(), UserID: f.userID})
	}

	result, err := f.svc.List(context.Background(), f.userID, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(result.Invoices) != 2 {
		t.Fatalf("expected page of 2, got %d", len(result.Invoices))
	}
	if result.NextCursor == "" {
		t.Fatal("expected next cursor")
	}
}
