package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/backend/api/middleware"
	"github.com/ledgerline/backend/api/responses"
	"github.com/ledgerline/backend/api/validators"
	"github.com/ledgerline/backend/internal/invoices"
	"github.com/ledgerline/backend/pkg/enums"
	pkgerrors "github.com/ledgerline/backend/pkg/errors"
	"github.com/ledgerline/backend/pkg/logger"
)

type invoiceItemRequest struct {
	Description string          `json:"description" validate:"required"`
	Quantity    int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price" validate:"required"`
}

type createInvoiceRequest struct {
	CustomerID        uuid.UUID            `json:"customer_id" validate:"required"`
	DueDate           time.Time            `json:"due_date" validate:"required"`
	PaymentMethod     string               `json:"payment_method"`
	Items             []invoiceItemRequest `json:"items" validate:"required,min=1,dive"`
	CheckNumber       *string              `json:"check_number"`
	CheckReceivedDate *time.Time           `json:"check_received_date"`
}

type updateInvoiceRequest struct {
	DueDate           *time.Time           `json:"due_date"`
	Items             []invoiceItemRequest `json:"items" validate:"omitempty,min=1,dive"`
	CheckNumber       *string              `json:"check_number"`
	CheckReceivedDate *time.Time           `json:"check_received_date"`
}

func itemInputs(items []invoiceItemRequest) []invoices.ItemInput {
	out := make([]invoices.ItemInput, 0, len(items))
	for _, item := range items {
		out = append(out, invoices.ItemInput{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return out
}

// CreateInvoice handles POST /invoices.
func CreateInvoice(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.MustUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}

		var req createInvoiceRequest
		if err := validators.DecodeAndValidate(r, &req); err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}

		method := enums.PaymentMethod(req.PaymentMethod)
		if req.PaymentMethod != "" && !method.IsValid() {
			responses.WriteError(r.Context(), w, logg,
				pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method"))
			return
		}

		result, err := svc.Create(r.Context(), userID, invoices.CreateInput{
			CustomerID:        req.CustomerID,
			DueDate:           req.DueDate,
			PaymentMethod:     method,
			Items:             itemInputs(req.Items),
			CheckNumber:       req.CheckNumber,
			CheckReceivedDate: req.CheckReceivedDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}
		responses.WriteSuccessWarning(w, http.StatusCreated, result.Invoice, result.Warning)
	}
}

// GetInvoice handles GET /invoices/{invoiceId}.
func GetInvoice(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.MustUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}
		invoiceID, err := validators.PathUUID(r, "invoiceId")
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}

		invoice, err := svc.Get(r.Context(), userID, invoiceID)
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, invoice)
	}
}

// ListInvoices handles GET /invoices.
func ListInvoices(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.MustUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}
		params, err := validators.PaginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}

		result, err := svc.List(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, listEnvelope{
			Items:      result.Invoices,
			NextCursor: result.NextCursor,
		})
	}
}

// UpdateInvoice handles PATCH /invoices/{invoiceId}.
func UpdateInvoice(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.MustUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}
		invoiceID, err := validators.PathUUID(r, "invoiceId")
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}

		var req updateInvoiceRequest
		if err := validators.DecodeAndValidate(r, &req); err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}

		in := invoices.UpdateInput{
			DueDate:           req.DueDate,
			CheckNumber:       req.CheckNumber,
			CheckReceivedDate: req.CheckReceivedDate,
		}
		if req.Items != nil {
			in.Items = itemInputs(req.Items)
		}

		result, err := svc.Update(r.Context(), userID, invoiceID, in)
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}
		responses.WriteSuccessWarning(w, http.StatusOK, result.Invoice, result.Warning)
	}
}

// ResendInvoice handles POST /invoices/{invoiceId}/resend.
func ResendInvoice(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.MustUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}
		invoiceID, err := validators.PathUUID(r, "invoiceId")
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}

		result, err := svc.Resend(r.Context(), userID, invoiceID)
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}
		responses.WriteSuccessWarning(w, http.StatusOK, result.Invoice, result.Warning)
	}
}

// RemoveInvoicePaymentLink handles DELETE /invoices/{invoiceId}/payment-link.
func RemoveInvoicePaymentLink(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.MustUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}
		invoiceID, err := validators.PathUUID(r, "invoiceId")
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}

		result, err := svc.RemovePaymentLink(r.Context(), userID, invoiceID)
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}
		responses.WriteSuccessWarning(w, http.StatusOK, result.Invoice, result.Warning)
	}
}

// DeleteInvoice handles DELETE /invoices/{invoiceId}.
func DeleteInvoice(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.MustUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}
		invoiceID, err := validators.PathUUID(r, "invoiceId")
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}

		if err := svc.Delete(r.Context(), userID, invoiceID); err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
