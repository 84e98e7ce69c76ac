package controllers

import (
	"net/http"

	"github.com/ledgerline/backend/api/responses"
	"github.com/ledgerline/backend/api/validators"
	"github.com/ledgerline/backend/internal/auth"
	"github.com/ledgerline/backend/pkg/logger"
)

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	User        any    `json:"user"`
	AccessToken string `json:"access_token"`
}

// Register handles POST /auth/register.
func Register(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := validators.DecodeAndValidate(r, &req); err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}

		session, err := svc.Register(r.Context(), auth.RegisterInput{
			Email:     req.Email,
			Password:  req.Password,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		})
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}

		responses.WriteSuccess(w, http.StatusCreated, sessionResponse{
			User:        session.User,
			AccessToken: session.AccessToken,
		})
	}
}

// Login handles POST /auth/login.
func Login(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := validators.DecodeAndValidate(r, &req); err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}

		session, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			responses.WriteError(r.Context(), w, logg, err)
			return
		}

		responses.WriteSuccess(w, http.StatusOK, sessionResponse{
			User:        session.User,
			AccessToken: session.AccessToken,
		})
	}
}
