package settings

import (
	"context"
	stdErrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerline/backend/internal/repo"
	"github.com/ledgerline/backend/pkg/db/models"
)

// Repository persists per-user settings rows.
type Repository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Settings, error)
	Create(ctx context.Context, settings *models.Settings) error
	Save(ctx context.Context, settings *models.Settings) error
	WithTx(tx *gorm.DB) Repository
}

type gormRepository struct {
	base repo.Base
}

// NewRepository builds the GORM-backed settings repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{base: repo.NewBase(db)}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	return &gormRepository{base: repo.NewBase(tx)}
}

// GetByUserID returns nil without error when the user has no settings row yet.
func (r *gormRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Settings, error) {
	var settings models.Settings
	err := r.base.DB(ctx).
		Where("user_id = ?", userID).
		First(&settings).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &settings, nil
}

func (r *gormRepository) Create(ctx context.Context, settings *models.Settings) error {
	return r.base.DB(ctx).Create(settings).Error
}

func (r *gormRepository) Save(ctx context.Context, settings *models.Settings) error {
	return r.base.DB(ctx).Save(settings).Error
}
