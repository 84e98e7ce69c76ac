package controllers

import (
	"net/http"

	"github.com/ledgerline/backend/api/responses"
	pkgerrors "github.com/ledgerline/backend/pkg/errors"
	"github.com/ledgerline/backend/pkg/logger"
)

// Live reports process liveness.
func Live() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadinessCheck is one named dependency probe.
type ReadinessCheck struct {
	Name  string
	Check func(r *http.Request) error
}

// Ready reports readiness by probing every registered dependency.
func Ready(logg *logger.Logger, checks ...ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{}
		healthy := true
		for _, check := range checks {
			if err := check.Check(r); err != nil {
				status[check.Name] = "unavailable"
				healthy = false
				continue
			}
			status[check.Name] = "ok"
		}

		if !healthy {
			responses.WriteError(r.Context(), w, logg,
				pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(status))
			return
		}
		responses.WriteSuccess(w, http.StatusOK, status)
	}
}
