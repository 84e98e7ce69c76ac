package customers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ledgerline/backend/pkg/db/models"
	pkgerrors "github.com/ledgerline/backend/pkg/errors"
	"github.com/ledgerline/backend/pkg/logger"
	"github.com/ledgerline/backend/pkg/pagination"
)

// CreateInput carries the fields for a new customer.
type CreateInput struct {
	Name    string
	Email   string
	Address string
	Phone   *string
}

// UpdateInput is a partial customer patch. Nil fields keep stored values.
type UpdateInput struct {
	Name    *string
	Email   *string
	Address *string
	Phone   *string
}

// ListResult bundles a page of customers with its next cursor.
type ListResult struct {
	Customers  []models.Customer
	NextCursor string
}

// Service exposes customer CRUD scoped to the authenticated user.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*models.Customer, error)
	Get(ctx context.Context, userID, customerID uuid.UUID) (*models.Customer, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListResult, error)
	Update(ctx context.Context, userID, customerID uuid.UUID, in UpdateInput) (*models.Customer, error)
	Delete(ctx context.Context, userID, customerID uuid.UUID) error
}

// ServiceParams wires the customer service dependencies.
type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService validates dependencies and returns the customer service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("customer repository is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{repo: params.Repo, logg: params.Logger}, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*models.Customer, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}
	if strings.TrimSpace(in.Email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}

	customer := &models.Customer{
		UserID:  userID,
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Address: strings.TrimSpace(in.Address),
		Phone:   in.Phone,
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating customer")
	}

	s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "customer created")
	return customer, nil
}

func (s *service) Get(ctx context.Context, userID, customerID uuid.UUID) (*models.Customer, error) {
	return s.owned(ctx, userID, customerID)
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListResult, error) {
	rows, err := s.repo.List(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing customers")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	result := &ListResult{Customers: rows}
	if len(rows) > limit {
		result.Customers = rows[:limit]
		last := result.Customers[limit-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return result, nil
}

func (s *service) Update(ctx context.Context, userID, customerID uuid.UUID, in UpdateInput) (*models.Customer, error) {
	customer, err := s.owned(ctx, userID, customerID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name cannot be empty")
		}
		customer.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		if strings.TrimSpace(*in.Email) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email cannot be empty")
		}
		customer.Email = strings.TrimSpace(*in.Email)
	}
	if in.Address != nil {
		customer.Address = strings.TrimSpace(*in.Address)
	}
	if in.Phone != nil {
		customer.Phone = in.Phone
	}

	if err := s.repo.Save(ctx, customer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving customer")
	}
	return customer, nil
}

// Delete removes the customer row only. Invoices keep their customer_id;
// an invoice may outlive its customer reference.
func (s *service) Delete(ctx context.Context, userID, customerID uuid.UUID) error {
	if _, err := s.owned(ctx, userID, customerID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, customerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting customer")
	}
	s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "customer deleted")
	return nil
}

// owned loads the customer and enforces tenant ownership.
func (s *service) owned(ctx context.Context, userID, customerID uuid.UUID) (*models.Customer, error) {
	customer, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading customer")
	}
	if customer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	if customer.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "customer belongs to another user")
	}
	return customer, nil
}
