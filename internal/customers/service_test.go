package customers

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/ledgerline/backend/pkg/db/models"
	pkgerrors "github.com/ledgerline/backend/pkg/errors"
	"github.com/ledgerline/backend/pkg/logger"
	"github.com/ledgerline/backend/pkg/pagination"
)

type stubRepo struct {
	byID    map[uuid.UUID]*models.Customer
	listed  []models.Customer
	deleted []uuid.UUID
}

func newStubRepo() *stubRepo {
	return &stubRepo{byID: map[uuid.UUID]*models.Customer{}}
}

func (s *stubRepo) Create(ctx context.Context, customer *models.Customer) error {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	s.byID[customer.ID] = customer
	return nil
}

func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	return s.byID[id], nil
}

func (s *stubRepo) List(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Customer, error) {
	return s.listed, nil
}

func (s *stubRepo) Save(ctx context.Context, customer *models.Customer) error {
	s.byID[customer.ID] = customer
	return nil
}

func (s *stubRepo) Delete(ctx context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	delete(s.byID, id)
	return nil
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Logger: logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreateRequiresNameAndEmail(t *testing.T) {
	svc := newTestService(t, newStubRepo())

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{Email: "a@b.test"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing name, got %v", err)
	}

	_, err = svc.Create(context.Background(), uuid.New(), CreateInput{Name: "Acme"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing email, got %v", err)
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	repo := newStubRepo()
	owner := uuid.New()
	stranger := uuid.New()
	customer := &models.Customer{ID: uuid.New(), UserID: owner, Name: "Acme", Email: "a@b.test"}
	repo.byID[customer.ID] = customer

	svc := newTestService(t, repo)

	if _, err := svc.Get(context.Background(), owner, customer.ID); err != nil {
		t.Fatalf("owner access failed: %v", err)
	}

	_, err := svc.Get(context.Background(), stranger, customer.ID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for cross-tenant access, got %v", err)
	}

	_, err = svc.Get(context.Background(), owner, uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for unknown id, got %v", err)
	}
}

func TestUpdateMergesPartialPatch(t *testing.T) {
	repo := newStubRepo()
	owner := uuid.New()
	customer := &models.Customer{ID: uuid.New(), UserID: owner, Name: "Acme", Email: "a@b.test", Address: "1 Main St"}
	repo.byID[customer.ID] = customer

	svc := newTestService(t, repo)

	newEmail := "new@b.test"
	got, err := svc.Update(context.Background(), owner, customer.ID, UpdateInput{Email: &newEmail})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Email != newEmail {
		t.Fatalf("email not updated: %q", got.Email)
	}
	if got.Name != "Acme" || got.Address != "1 Main St" {
		t.Fatalf("unspecified fields were clobbered: %+v", got)
	}
}

func TestDeleteEnforcesOwnership(t *testing.T) {
	repo := newStubRepo()
	owner := uuid.New()
	customer := &models.Customer{ID: uuid.New(), UserID: owner, Name: "Acme", Email: "a@b.test"}
	repo.byID[customer.ID] = customer

	svc := newTestService(t, repo)

	err := svc.Delete(context.Background(), uuid.New(), customer.ID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if len(repo.deleted) != 0 {
		t.Fatal("delete must not run for cross-tenant caller")
	}

	if err := svc.Delete(context.Background(), owner, customer.ID); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
	if len(repo.deleted) != 1 {
		t.Fatal("expected one delete")
	}
}

func TestListPaginatesWithCursor(t *testing.T) {
	repo := newStubRepo()
	owner := uuid.New()
	for i := 0; i < 3; i++ {
		repo.listed = append(repo.listed, models.Customer{ID: uuid.New(), UserID: owner})
	}

	svc := newTestService(t, repo)

	result, err := svc.List(context.Background(), owner, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(result.Customers) != 2 {
		t.Fatalf("expected trimmed page of 2, got %d", len(result.Customers))
	}
	if result.NextCursor == "" {
		t.Fatal("expected next cursor when buffer row present")
	}
}
