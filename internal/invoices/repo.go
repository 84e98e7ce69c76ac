package invoices

import (
	"context"
	stdErrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerline/backend/internal/repo"
	"github.com/ledgerline/backend/pkg/db/models"
	"github.com/ledgerline/backend/pkg/enums"
	"github.com/ledgerline/backend/pkg/pagination"
)

// Repository persists invoices and their line items.
type Repository interface {
	Create(ctx context.Context, invoice *models.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Invoice, error)
	Save(ctx context.Context, invoice *models.Invoice) error
	ReplaceItems(ctx context.Context, invoiceID uuid.UUID, items []models.InvoiceItem) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.InvoiceStatus, receiptURL *string) error
	UpdatePaymentLink(ctx context.Context, id uuid.UUID, linkID, linkURL string) error
	ClearPaymentLink(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountItems(ctx context.Context, invoiceID uuid.UUID) (int64, error)
	WithTx(tx *gorm.DB) Repository
}

type gormRepository struct {
	base repo.Base
}

// NewRepository builds the GORM-backed invoice repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{base: repo.NewBase(db)}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	return &gormRepository{base: repo.NewBase(tx)}
}

func (r *gormRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	return r.base.DB(ctx).Create(invoice).Error
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.base.DB(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&invoice).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

// List returns one page of the user's invoices in newest-first cursor order.
// The caller passes LimitWithBuffer so the extra row signals another page.
func (r *gormRepository) List(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Invoice, error) {
	query := r.base.DB(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Invoice
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *gormRepository) Save(ctx context.Context, invoice *models.Invoice) error {
	return r.base.DB(ctx).
		Omit("Items").
		Save(invoice).Error
}

// ReplaceItems deletes the invoice's current items and inserts the new set.
// Callers run this inside a transaction alongside the amount update.
func (r *gormRepository) ReplaceItems(ctx context.Context, invoiceID uuid.UUID, items []models.InvoiceItem) error {
	db := r.base.DB(ctx)

	if err := db.Where("invoice_id = ?", invoiceID).Delete(&models.InvoiceItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].InvoiceID = invoiceID
	}
	return db.Create(&items).Error
}

// UpdateStatus applies a status transition. Paid is sticky: a failed
// transition only lands on invoices still pending, so a late failed event
// can never regress a paid invoice.
func (r *gormRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.InvoiceStatus, receiptURL *string) error {
	updates := map[string]any{"status": status}
	if receiptURL != nil {
		updates["receipt_url"] = *receiptURL
	}

	query := r.base.DB(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", id)
	if status == enums.InvoiceStatusFailed {
		query = query.Where("status = ?", enums.InvoiceStatusPending)
	}
	return query.Updates(updates).Error
}

func (r *gormRepository) UpdatePaymentLink(ctx context.Context, id uuid.UUID, linkID, linkURL string) error {
	return r.base.DB(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"payment_link_id":  linkID,
			"payment_link_url": linkURL,
		}).Error
}

func (r *gormRepository) ClearPaymentLink(ctx context.Context, id uuid.UUID) error {
	return r.base.DB(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"payment_link_id":  nil,
			"payment_link_url": nil,
		}).Error
}

// Delete removes items first, then the invoice row, so the pair stays
// consistent even on engines without FK cascade enforcement.
func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.base.DB(ctx)
	if err := db.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&models.Invoice{}).Error
}

func (r *gormRepository) CountItems(ctx context.Context, invoiceID uuid.UUID) (int64, error) {
	var count int64
	err := r.base.DB(ctx).
		Model(&models.InvoiceItem{}).
		Where("invoice_id = ?", invoiceID).
		Count(&count).Error
	return count, err
}
