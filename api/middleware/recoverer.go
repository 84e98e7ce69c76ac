package middleware

import (
	"fmt"
	"net/http"

	"github.com/ledgerline/backend/api/responses"
	pkgerrors "github.com/ledgerline/backend/pkg/errors"
	"github.com/ledgerline/backend/pkg/logger"
)

// Recoverer converts panics into logged 500 responses.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					err := pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("panic: %v", rec))
					responses.WriteError(r.Context(), w, logg, err)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
