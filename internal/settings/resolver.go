package settings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/ledgerline/backend/pkg/config"
	"github.com/ledgerline/backend/pkg/db/models"
	pkgerrors "github.com/ledgerline/backend/pkg/errors"
)

// Resolved is the flattened, default-filled view of a user's settings used
// by the invoice workflow. It is computed per operation and never cached, so
// a credential rotated between calls takes effect immediately.
type Resolved struct {
	StripeAPIKey   string
	FromEmail      string
	CompanyName    string
	CompanyAddress string
	CompanyPhone   string
	TaxRate        float64
	ResetBaseURL   string
}

// Resolver merges a user's stored settings over the process-level defaults.
type Resolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (*Resolved, error)
}

type resolver struct {
	repo Repository
	cfg  *config.Config
}

// NewResolver builds the two-tier settings resolver.
func NewResolver(repo Repository, cfg *config.Config) (Resolver, error) {
	if repo == nil {
		return nil, fmt.Errorf("settings repository is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	return &resolver{repo: repo, cfg: cfg}, nil
}

func (r *resolver) Resolve(ctx context.Context, userID uuid.UUID) (*Resolved, error) {
	var stored *models.Settings

	backoff := retry.WithMaxRetries(2, retry.NewExponential(100*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		loaded, err := r.repo.GetByUserID(ctx, userID)
		if err != nil {
			return retry.RetryableError(err)
		}
		stored = loaded
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolving settings")
	}

	resolved := &Resolved{
		StripeAPIKey: r.cfg.Stripe.APIKey,
		FromEmail:    r.cfg.SMTP.DefaultFrom,
		CompanyName:  r.cfg.Company.Name,
		TaxRate:      r.cfg.Company.TaxRate,
		ResetBaseURL: r.cfg.Company.ResetBaseURL,
	}

	if stored == nil {
		return resolved, nil
	}

	overlayString(&resolved.StripeAPIKey, stored.StripeAPIKey)
	overlayString(&resolved.FromEmail, stored.FromEmail)
	overlayString(&resolved.CompanyName, stored.CompanyName)
	overlayString(&resolved.CompanyAddress, stored.CompanyAddress)
	overlayString(&resolved.CompanyPhone, stored.CompanyPhone)
	overlayString(&resolved.ResetBaseURL, stored.PasswordResetBaseURL)
	if stored.TaxRate != nil {
		resolved.TaxRate = *stored.TaxRate
	}

	return resolved, nil
}

func overlayString(target *string, value *string) {
	if value != nil && *value != "" {
		*target = *value
	}
}
