package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerline/backend/pkg/config"
	"github.com/ledgerline/backend/pkg/db/models"
	"github.com/ledgerline/backend/pkg/logger"
)

type stubRepo struct {
	stored  *models.Settings
	getErr  error
	created *models.Settings
	saved   *models.Settings
}

func (s *stubRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Settings, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.stored, nil
}

func (s *stubRepo) Create(ctx context.Context, settings *models.Settings) error {
	s.created = settings
	return nil
}

func (s *stubRepo) Save(ctx context.Context, settings *models.Settings) error {
	s.saved = settings
	return nil
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

type stubRunner struct{}

func (stubRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newTestService(t *testing.T, repo Repository, cfg *config.Config) Service {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{}
	}
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Runner: stubRunner{},
		Config: cfg,
		Logger: logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestGetReturnsDefaultsWhenNoRow(t *testing.T) {
	cfg := &config.Config{}
	cfg.Company.Name = "Acme Legal"
	cfg.SMTP.DefaultFrom = "billing@acme.test"

	svc := newTestService(t, &stubRepo{}, cfg)

	got, err := svc.Get(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.CompanyName == nil || *got.CompanyName != "Acme Legal" {
		t.Fatalf("expected config company name, got %+v", got.CompanyName)
	}
	if got.FromEmail == nil || *got.FromEmail != "billing@acme.test" {
		t.Fatalf("expected config from email, got %+v", got.FromEmail)
	}
	if got.StripeAPIKey != nil {
		t.Fatalf("expected no stripe key in defaults")
	}
}

func TestUpdateMergePreservesUnspecifiedFields(t *testing.T) {
	key := "sk_live_abc"
	name := "Old Name"
	repo := &stubRepo{stored: &models.Settings{
		UserID:       uuid.New(),
		StripeAPIKey: &key,
		CompanyName:  &name,
	}}
	svc := newTestService(t, repo, nil)

	newName := "New Name"
	got, err := svc.Update(context.Background(), repo.stored.UserID, UpdateInput{CompanyName: &newName})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.StripeAPIKey == nil || *got.StripeAPIKey != key {
		t.Fatalf("unspecified stripe key was clobbered: %+v", got.StripeAPIKey)
	}
	if got.CompanyName == nil || *got.CompanyName != newName {
		t.Fatalf("company name not updated: %+v", got.CompanyName)
	}
	if repo.saved == nil {
		t.Fatal("expected Save to be called for existing row")
	}
}

func TestUpdateCreatesRowOnFirstWrite(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(t, repo, nil)

	key := "sk_test_first"
	_, err := svc.Update(context.Background(), uuid.New(), UpdateInput{StripeAPIKey: &key})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if repo.created == nil {
		t.Fatal("expected Create on first write")
	}
	if repo.created.StripeAPIKey == nil || *repo.created.StripeAPIKey != key {
		t.Fatalf("created row missing patched key: %+v", repo.created.StripeAPIKey)
	}
}

func TestResolverOverlaysUserSettings(t *testing.T) {
	cfg := &config.Config{}
	cfg.Stripe.APIKey = "sk_test_default"
	cfg.Company.Name = "Default Co"
	cfg.Company.TaxRate = 5

	userKey := "sk_live_user"
	repo := &stubRepo{stored: &models.Settings{
		UserID:       uuid.New(),
		StripeAPIKey: &userKey,
	}}

	res, err := NewResolver(repo, cfg)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	resolved, err := res.Resolve(context.Background(), repo.stored.UserID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.StripeAPIKey != userKey {
		t.Fatalf("expected user key to win, got %q", resolved.StripeAPIKey)
	}
	if resolved.CompanyName != "Default Co" {
		t.Fatalf("expected config fallback for company name, got %q", resolved.CompanyName)
	}
	if resolved.TaxRate != 5 {
		t.Fatalf("expected config tax rate, got %v", resolved.TaxRate)
	}
}

func TestResolverFallsBackToConfigWhenNoRow(t *testing.T) {
	cfg := &config.Config{}
	cfg.Stripe.APIKey = "sk_test_default"

	res, err := NewResolver(&stubRepo{}, cfg)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	resolved, err := res.Resolve(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.StripeAPIKey != "sk_test_default" {
		t.Fatalf("expected config key, got %q", resolved.StripeAPIKey)
	}
}

func TestResolverSurfacesRepoFailure(t *testing.T) {
	res, err := NewResolver(&stubRepo{getErr: errors.New("db down")}, &config.Config{})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	if _, err := res.Resolve(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error when repo fails")
	}
}
