package responses

import (
	"context"
	"encoding/json"
	"net/http"

	pkgerrors "github.com/ledgerline/backend/pkg/errors"
	"github.com/ledgerline/backend/pkg/logger"
	"github.com/ledgerline/backend/pkg/types"
)

// WriteSuccess writes the standard success envelope.
func WriteSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteSuccessWarning writes a success envelope with a non-fatal warning,
// used when the financial artifact committed but a follow-up failed.
func WriteSuccessWarning(w http.ResponseWriter, status int, data any, warning *pkgerrors.Error) {
	envelope := types.SuccessEnvelope{Data: data}
	if warning != nil {
		envelope.Warning = apiErrorFrom(warning)
	}
	writeJSON(w, status, envelope)
}

// WriteNoContent writes an empty 204 response.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError maps the error's code to HTTP metadata and writes the error
// envelope. Untyped errors become opaque 500s.
func WriteError(ctx context.Context, w http.ResponseWriter, logg *logger.Logger, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())
	if meta.HTTPStatus >= http.StatusInternalServerError {
		// full cause chain plus any postgres detail for the on-call trail
		logg.Error(logg.WithField(ctx, "error_dump", pkgerrors.Dump(err)), "request failed", err)
	} else {
		logg.Warn(ctx, "request rejected: "+typed.Message())
	}

	writeJSON(w, meta.HTTPStatus, types.ErrorEnvelope{Error: *apiErrorFrom(typed)})
}

func apiErrorFrom(err *pkgerrors.Error) *types.APIError {
	meta := pkgerrors.MetadataFor(err.Code())
	out := &types.APIError{
		Code:    string(err.Code()),
		Message: meta.PublicMessage,
	}
	if meta.DetailsAllowed {
		out.Message = err.Message()
		out.Details = err.Details()
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
