package controllers

import (
	"net/http"

	"github.com/ledgerline/backend/api/middleware"
	"github.com/ledgerline/backend/api/responses"
	"github.com/ledgerline/backend/api/validators"
	"github.com/ledgerline/backend/internal/settings"
	"github.com/ledgerline/backend/pkg/logger"
)

type updateSettingsRequest struct {
	StripeAPIKey         *string  `json:"stripe_api_key"`
	FromEmail            *string  `json:"from_email" validate:"omitempty,email"`
	CompanyName          *string  `json:"company_name"`
	CompanyAddress       *string  `json:"company_address"`
	CompanyPhone         *string  `json:"company_phone"`
	TaxRate              *float64 `json:"tax_rate" validate:"omitempty,gte=0,lte=100"`
	PasswordResetBaseURL *string  `json:"password_reset_base_url" validate:"omitempty,url"`
}

// GetSettings handles GET /settings.
func GetSettings(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.MustUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}

		stored, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, stored)
	}
}

// UpdateSettings handles PUT /settings with merge semantics: fields absent
// from the body keep their stored values.
func UpdateSettings(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.MustUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}

		var req updateSettingsRequest
		if err := validators.DecodeAndValidate(r, &req); err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}

		updated, err := svc.Update(r.Context(), userID, settings.UpdateInput{
			StripeAPIKey:         req.StripeAPIKey,
			FromEmail:            req.FromEmail,
			CompanyName:          req.CompanyName,
			CompanyAddress:       req.CompanyAddress,
			CompanyPhone:         req.CompanyPhone,
			TaxRate:              req.TaxRate,
			PasswordResetBaseURL: req.PasswordResetBaseURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, updated)
	}
}
