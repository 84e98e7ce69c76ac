package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// InvoiceDocument carries everything the renderer needs to lay out an
// invoice PDF for the notification attachment.
type InvoiceDocument struct {
	Number       string
	CompanyName  string
	CustomerName string
	CustomerEmail string
	IssuedAt     time.Time
	DueDate      time.Time
	Items        []LineItem
	Amount       decimal.Decimal
	PaymentURL   string
	Footer       string
}

// LineItem is one row of the invoice table.
type LineItem struct {
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// Renderer produces invoice documents. The interface exists so the
// orchestrator can be tested without gofpdf.
type Renderer interface {
	RenderInvoice(doc InvoiceDocument) ([]byte, error)
}

type renderer struct{}

// NewRenderer returns the gofpdf-backed invoice renderer.
func NewRenderer() Renderer {
	return &renderer{}
}

func (r *renderer) RenderInvoice(doc InvoiceDocument) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Invoice %s", doc.Number), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	title := doc.CompanyName
	if title == "" {
		title = "Invoice"
	}
	pdf.Cell(0, 12, title)
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Invoice number: %s", doc.Number))
	pdf.Ln(6)
	if !doc.IssuedAt.IsZero() {
		pdf.Cell(0, 6, fmt.Sprintf("Issued: %s", doc.IssuedAt.Format("January 2, 2006")))
		pdf.Ln(6)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Due: %s", doc.DueDate.Format("January 2, 2006")))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Bill to: %s <%s>", doc.CustomerName, doc.CustomerEmail))
	pdf.Ln(12)

	// table header
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(100, 8, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 8, "Qty", "1", 0, "R", true, 0, "")
	pdf.CellFormat(30, 8, "Unit price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 8, "Total", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	for _, item := range doc.Items {
		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		pdf.CellFormat(100, 8, item.Description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 8, fmt.Sprintf("%d", item.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, item.UnitPrice.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 8, lineTotal.StringFixed(2), "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(155, 10, "Amount due", "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 10, doc.Amount.StringFixed(2), "1", 1, "R", false, 0, "")
	pdf.Ln(6)

	if doc.PaymentURL != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(0, 0, 200)
		pdf.CellFormat(0, 6, "Pay online: "+doc.PaymentURL, "", 1, "L", false, 0, doc.PaymentURL)
		pdf.SetTextColor(0, 0, 0)
	}

	if doc.Footer != "" {
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, 5, doc.Footer, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}
