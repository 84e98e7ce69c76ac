package webhooks

import (
	"io"
	"net/http"

	"github.com/ledgerline/backend/api/responses"
	stripewebhook "github.com/ledgerline/backend/internal/webhooks/stripe"
	"github.com/ledgerline/backend/pkg/config"
	pkgerrors "github.com/ledgerline/backend/pkg/errors"
	"github.com/ledgerline/backend/pkg/logger"
	"github.com/ledgerline/backend/pkg/metrics"
	"github.com/ledgerline/backend/pkg/stripegateway"
)

const signatureHeader = "Stripe-Signature"

// Stripe sends events up to 64KB; leave generous headroom.
const maxPayloadBytes = 1 << 20

// Stripe handles POST /webhooks/stripe. The signature is verified over the
// raw body before anything else happens; an invalid signature rejects with
// 4xx and no state is touched.
func Stripe(svc stripewebhook.Service, cfg config.StripeConfig, wm *metrics.WorkflowMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
		if err != nil {
			wm.IncWebhookEvent("rejected")
			responses.WriteError(r.Context(), w, logg,
				pkgerrors.Wrap(pkgerrors.CodeReconciliation, err, "reading payload"))
			return
		}

		event, err := stripegateway.VerifyEvent(payload, r.Header.Get(signatureHeader), cfg.WebhookSecret)
		if err != nil {
			wm.IncWebhookEvent("rejected")
			responses.WriteError(r.Context(), w, logg, err)
			return
		}

		outcome, err := svc.HandleEvent(r.Context(), event)
		if err != nil {
			wm.IncWebhookEvent("rejected")
			responses.WriteError(r.Context(), w, logg, err)
			return
		}

		wm.IncWebhookEvent(string(outcome))
		responses.WriteSuccess(w, http.StatusOK, map[string]string{"received": string(outcome)})
	}
}
