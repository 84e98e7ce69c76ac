package notifications

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceEmail describes one invoice notification to a customer. The PDF
// attachment is optional; a render failure upstream still sends the email.
type InvoiceEmail struct {
	To            string
	FromEmail     string
	CompanyName   string
	InvoiceNumber string
	Amount        decimal.Decimal
	DueDate       time.Time
	PaymentURL    string
	Attachment    []byte
}

// Dispatcher delivers invoice emails. Delivery is best effort: callers treat
// a dispatch failure as a warning, never as an operation failure.
type Dispatcher interface {
	SendInvoice(ctx context.Context, email InvoiceEmail) error
}
