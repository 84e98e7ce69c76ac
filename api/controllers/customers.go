package controllers

import (
	"net/http"

	"github.com/ledgerline/backend/api/middleware"
	"github.com/ledgerline/backend/api/responses"
	"github.com/ledgerline/backend/api/validators"
	"github.com/ledgerline/backend/internal/customers"
	"github.com/ledgerline/backend/pkg/logger"
)

type createCustomerRequest struct {
	Name    string  `json:"name" validate:"required"`
	Email   string  `json:"email" validate:"required,email"`
	Address string  `json:"address" validate:"required"`
	Phone   *string `json:"phone"`
}

type updateCustomerRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
}

type listEnvelope struct {
	Items      any    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// CreateCustomer handles POST /customers.
func CreateCustomer(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.MustUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}

		var req createCustomerRequest
		if err := validators.DecodeAndValidate(r, &req); err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}

		customer, err := svc.Create(r.Context(), userID, customers.CreateInput{
			Name:    req.Name,
			Email:   req.Email,
			Address: req.Address,
			Phone:   req.Phone,
		})
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}
		responses.WriteSuccess(w, http.StatusCreated, customer)
	}
}

// GetCustomer handles GET /customers/{customerId}.
func GetCustomer(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.MustUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}
		customerID, err := validators.PathUUID(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}

		customer, err := svc.Get(r.Context(), userID, customerID)
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, customer)
	}
}

// ListCustomers handles GET /customers.
func ListCustomers(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
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
			Items:      result.Customers,
			NextCursor: result.NextCursor,
		})
	}
}

// UpdateCustomer handles PATCH /customers/{customerId}.
func UpdateCustomer(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.MustUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}
		customerID, err := validators.PathUUID(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}

		var req updateCustomerRequest
		if err := validators.DecodeAndValidate(r, &req); err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}

		customer, err := svc.Update(r.Context(), userID, customerID, customers.UpdateInput{
			Name:    req.Name,
			Email:   req.Email,
			Address: req.Address,
			Phone:   req.Phone,
		})
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}
		responses.WriteSuccess(w, http.StatusOK, customer)
	}
}

// DeleteCustomer handles DELETE /customers/{customerId}.
func DeleteCustomer(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.MustUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}
		customerID, err := validators.PathUUID(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}

		if err := svc.Delete(r.Context(), userID, customerID); err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
