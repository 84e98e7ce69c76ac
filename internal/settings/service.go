package settings

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerline/backend/pkg/config"
	"github.com/ledgerline/backend/pkg/db/models"
	pkgerrors "github.com/ledgerline/backend/pkg/errors"
	"github.com/ledgerline/backend/pkg/logger"
)

// UpdateInput carries a partial settings patch. Nil fields are left
// untouched; a present empty string clears the stored value.
type UpdateInput struct {
	StripeAPIKey         *string
	FromEmail            *string
	CompanyName          *string
	CompanyAddress       *string
	CompanyPhone         *string
	TaxRate              *float64
	PasswordResetBaseURL *string
}

// Service exposes settings reads and the merge-upsert write path.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Settings, error)
	Update(ctx context.Context, userID uuid.UUID, in UpdateInput) (*models.Settings, error)
	Seed(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the settings service dependencies.
type ServiceParams struct {
	Repo   Repository
	Runner txRunner
	Config *config.Config
	Logger *logger.Logger
}

type service struct {
	repo   Repository
	runner txRunner
	cfg    *config.Config
	logg   *logger.Logger
}

// NewService validates dependencies and returns the settings service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("settings repository is required")
	}
	if params.Runner == nil {
		return nil, fmt.Errorf("tx runner is required")
	}
	if params.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		repo:   params.Repo,
		runner: params.Runner,
		cfg:    params.Config,
		logg:   params.Logger,
	}, nil
}

// Get returns the stored settings row, or an in-memory default view when the
// user has never saved one.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (*models.Settings, error) {
	stored, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading settings")
	}
	if stored == nil {
		defaults := s.defaultsFor(userID)
		return &defaults, nil
	}
	return stored, nil
}

// Update applies the patch under a transaction, creating the row on first
// write. Fields absent from the patch keep their stored values.
func (s *service) Update(ctx context.Context, userID uuid.UUID, in UpdateInput) (*models.Settings, error) {
	var result *models.Settings

	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		current, err := txRepo.GetByUserID(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading settings")
		}

		if current == nil {
			seeded := s.defaultsFor(userID)
			current = &seeded
			applyPatch(current, in)
			if err := txRepo.Create(ctx, current); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating settings")
			}
			result = current
			return nil
		}

		applyPatch(current, in)
		if err := txRepo.Save(ctx, current); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving settings")
		}
		result = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "settings updated")
	return result, nil
}

// Seed inserts the default settings row inside the caller's transaction.
// Used at registration so every user starts with a row.
func (s *service) Seed(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	seeded := s.defaultsFor(userID)
	if err := s.repo.WithTx(tx).Create(ctx, &seeded); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "seeding settings")
	}
	return nil
}

func (s *service) defaultsFor(userID uuid.UUID) models.Settings {
	settings := models.Settings{UserID: userID}
	if s.cfg.SMTP.DefaultFrom != "" {
		settings.FromEmail = ptr(s.cfg.SMTP.DefaultFrom)
	}
	if s.cfg.Company.Name != "" {
		settings.CompanyName = ptr(s.cfg.Company.Name)
	}
	if s.cfg.Company.TaxRate != 0 {
		settings.TaxRate = ptrFloat(s.cfg.Company.TaxRate)
	}
	if s.cfg.Company.ResetBaseURL != "" {
		settings.PasswordResetBaseURL = ptr(s.cfg.Company.ResetBaseURL)
	}
	return settings
}

func applyPatch(target *models.Settings, in UpdateInput) {
	if in.StripeAPIKey != nil {
		target.StripeAPIKey = in.StripeAPIKey
	}
	if in.FromEmail != nil {
		target.FromEmail = in.FromEmail
	}
	if in.CompanyName != nil {
		target.CompanyName = in.CompanyName
	}
	if in.CompanyAddress != nil {
		target.CompanyAddress = in.CompanyAddress
	}
	if in.CompanyPhone != nil {
		target.CompanyPhone = in.CompanyPhone
	}
	if in.TaxRate != nil {
		target.TaxRate = in.TaxRate
	}
	if in.PasswordResetBaseURL != nil {
		target.PasswordResetBaseURL = in.PasswordResetBaseURL
	}
}

func ptr(value string) *string {
	return &value
}

func ptrFloat(value float64) *float64 {
	return &value
}
