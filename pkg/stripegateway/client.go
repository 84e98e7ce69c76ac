package stripegateway

import (
	"context"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	pkgerrors "github.com/ledgerline/backend/pkg/errors"
)

const secretKeyPrefix = "sk_"

// MetadataInvoiceID is the metadata key carried from link creation through
// to webhook events. It is the sole correlation key the reconciler uses.
const MetadataInvoiceID = "invoice_id"

// Link is the hosted payment page minted for one invoice.
type Link struct {
	ID  string
	URL string
}

// CreateLinkInput describes the price and metadata for a new payment link.
type CreateLinkInput struct {
	AmountCents int64
	Currency    string
	Description string
	Metadata    map[string]string
}

// Gateway mints and deactivates hosted payment links. Implementations must
// construct their provider client per call from the supplied API key: users
// rotate keys between operations, so nothing may be cached across calls.
type Gateway interface {
	CreatePriceAndLink(ctx context.Context, apiKey string, in CreateLinkInput) (*Link, error)
	DeactivateLink(ctx context.Context, apiKey, linkID string) error
}

type stripeGateway struct{}

// New returns the Stripe-backed payment link gateway.
func New() Gateway {
	return &stripeGateway{}
}

// ValidateAPIKey rejects keys that do not carry the Stripe secret-key prefix
// before any network call is attempted.
func ValidateAPIKey(apiKey string) error {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return pkgerrors.New(pkgerrors.CodeConfiguration, "stripe api key is not configured")
	}
	if !strings.HasPrefix(key, secretKeyPrefix) {
		return pkgerrors.New(pkgerrors.CodeConfiguration, "stripe api key must start with sk_")
	}
	return nil
}

func (g *stripeGateway) CreatePriceAndLink(ctx context.Context, apiKey string, in CreateLinkInput) (*Link, error) {
	if err := ValidateAPIKey(apiKey); err != nil {
		return nil, err
	}
	if in.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	currency := in.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	sc := stripe.NewClient(strings.TrimSpace(apiKey))

	price, err := sc.V1Prices.Create(ctx, &stripe.PriceCreateParams{
		UnitAmount: stripe.Int64(in.AmountCents),
		Currency:   stripe.String(currency),
		ProductData: &stripe.PriceCreateProductDataParams{
			Name: stripe.String(in.Description),
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "create price")
	}

	link, err := sc.V1PaymentLinks.Create(ctx, &stripe.PaymentLinkCreateParams{
		LineItems: []*stripe.PaymentLinkCreateLineItemParams{
			{
				Price:    stripe.String(price.ID),
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: in.Metadata,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "create payment link")
	}

	return &Link{ID: link.ID, URL: link.URL}, nil
}

func (g *stripeGateway) DeactivateLink(ctx context.Context, apiKey, linkID string) error {
	if err := ValidateAPIKey(apiKey); err != nil {
		return err
	}
	if strings.TrimSpace(linkID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment link id required")
	}

	sc := stripe.NewClient(strings.TrimSpace(apiKey))
	_, err := sc.V1PaymentLinks.Update(ctx, linkID, &stripe.PaymentLinkUpdateParams{
		Active: stripe.Bool(false),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "deactivate payment link")
	}
	return nil
}

// VerifyEvent authenticates a raw webhook payload against its signature
// header. Unsigned or invalid-signature payloads are rejected before any
// state is touched.
func VerifyEvent(payload []byte, sigHeader, secret string) (stripe.Event, error) {
	if strings.TrimSpace(sigHeader) == "" {
		return stripe.Event{}, pkgerrors.New(pkgerrors.CodeReconciliation, "signature header missing")
	}
	if strings.TrimSpace(secret) == "" {
		return stripe.Event{}, pkgerrors.New(pkgerrors.CodeConfiguration, "webhook signing secret is not configured")
	}
	event, err := webhook.ConstructEvent(payload, sigHeader, secret)
	if err != nil {
		return stripe.Event{}, pkgerrors.Wrap(pkgerrors.CodeReconciliation, err, "verify signature")
	}
	return event, nil
}
