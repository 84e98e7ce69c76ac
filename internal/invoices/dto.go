package invoices

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/backend/pkg/db/models"
	"github.com/ledgerline/backend/pkg/enums"
	pkgerrors "github.com/ledgerline/backend/pkg/errors"
)

// ItemInput is one requested line item. The amount an invoice carries is
// always recomputed from these; any client-supplied total is ignored.
type ItemInput struct {
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// CreateInput carries the fields for a new invoice.
type CreateInput struct {
	CustomerID        uuid.UUID
	DueDate           time.Time
	PaymentMethod     enums.PaymentMethod
	Items             []ItemInput
	CheckNumber       *string
	CheckReceivedDate *time.Time
}

// UpdateInput is a partial invoice patch. A nil Items slice keeps the
// current items; a non-nil slice replaces them wholesale.
type UpdateInput struct {
	DueDate           *time.Time
	Items             []ItemInput
	CheckNumber       *string
	CheckReceivedDate *time.Time
}

// Result pairs the invoice with an optional non-fatal warning, typically a
// notification delivery failure on an otherwise committed operation.
type Result struct {
	Invoice *models.Invoice
	Warning *pkgerrors.Error
}

// ListResult bundles a page of invoices with its next cursor.
type ListResult struct {
	Invoices   []models.Invoice
	NextCursor string
}
