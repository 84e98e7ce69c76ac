package customers

import (
	"context"
	stdErrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerline/backend/internal/repo"
	"github.com/ledgerline/backend/pkg/db/models"
	"github.com/ledgerline/backend/pkg/pagination"
)

// Repository persists customer rows.
type Repository interface {
	Create(ctx context.Context, customer *models.Customer) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Customer, error)
	Save(ctx context.Context, customer *models.Customer) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type gormRepository struct {
	base repo.Base
}

// NewRepository builds the GORM-backed customer repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{base: repo.NewBase(db)}
}

func (r *gormRepository) Create(ctx context.Context, customer *models.Customer) error {
	return r.base.DB(ctx).Create(customer).Error
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	err := r.base.DB(ctx).
		Where("id = ?", id).
		First(&customer).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// List returns one page of the user's customers in newest-first cursor order.
// The caller passes LimitWithBuffer so the extra row signals another page.
func (r *gormRepository) List(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Customer, error) {
	query := r.base.DB(ctx).
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

	var rows []models.Customer
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *gormRepository) Save(ctx context.Context, customer *models.Customer) error {
	return r.base.DB(ctx).Save(customer).Error
}

func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.base.DB(ctx).
		Where("id = ?", id).
		Delete(&models.Customer{}).Error
}
