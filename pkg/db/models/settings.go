package models

import (
	"time"

	"github.com/google/uuid"
)

// Settings is the per-user configuration bundle: gateway credentials,
// notification sender, company display fields, tax rate, reset base URL.
// One row per user, seeded with defaults at registration and updated via
// merge-upsert only so unspecified fields are never clobbered.
type Settings struct {
	ID                   uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID               uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex" json:"user_id"`
	StripeAPIKey         *string   `gorm:"column:stripe_api_key" json:"stripe_api_key,omitempty"`
	FromEmail            *string   `gorm:"column:from_email" json:"from_email,omitempty"`
	CompanyName          *string   `gorm:"column:company_name" json:"company_name,omitempty"`
	CompanyAddress       *string   `gorm:"column:company_address" json:"company_address,omitempty"`
	CompanyPhone         *string   `gorm:"column:company_phone" json:"company_phone,omitempty"`
	TaxRate              *float64  `gorm:"column:tax_rate" json:"tax_rate,omitempty"`
	PasswordResetBaseURL *string   `gorm:"column:password_reset_base_url" json:"password_reset_base_url,omitempty"`
	CreatedAt            time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
