package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/backend/pkg/enums"
)

// Invoice is the primary financial artifact. Amount always equals the sum
// of its items' quantity x unit price; the orchestrator recomputes it before
// every persist, so the column is never trusted from client input.
type Invoice struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Number            string              `gorm:"column:number;not null;uniqueIndex" json:"number"`
	UserID            uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	CustomerID        uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index" json:"customer_id"`
	Amount            decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Status            enums.InvoiceStatus `gorm:"column:status;type:text;not null;default:'pending'" json:"status"`
	DueDate           time.Time           `gorm:"column:due_date;not null" json:"due_date"`
	PaymentMethod     enums.PaymentMethod `gorm:"column:payment_method;type:text;not null;default:'card'" json:"payment_method"`
	PaymentLinkID     *string             `gorm:"column:payment_link_id" json:"payment_link_id,omitempty"`
	PaymentLinkURL    *string             `gorm:"column:payment_link_url" json:"payment_link_url,omitempty"`
	ReceiptURL        *string             `gorm:"column:receipt_url" json:"receipt_url,omitempty"`
	CheckNumber       *string             `gorm:"column:check_number" json:"check_number,omitempty"`
	CheckReceivedDate *time.Time          `gorm:"column:check_received_date" json:"check_received_date,omitempty"`
	Items             []InvoiceItem       `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// HasPaymentLink reports whether link fields are currently populated.
func (i *Invoice) HasPaymentLink() bool {
	return i != nil && i.PaymentLinkID != nil && *i.PaymentLinkID != ""
}
