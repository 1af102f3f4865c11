package httpapi

import (
	"errors"
	"net/http"

	"github.com/elidra/taskq/intake"
	"github.com/elidra/taskq/store"
)

// writeError maps a typed error from Intake/Observer to the status
// codes of §7: Validation -> 400, NotFound -> 404, Conflict -> 409,
// anything else -> 500 as a transient-infra error.
func writeError(w http.ResponseWriter, log logWarner, err error) {
	var fieldErr *intake.FieldError
	switch {
	case errors.As(err, &fieldErr):
		writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: fieldErr.Message, Field: fieldErr.Field})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorEnvelope{Error: "job not found"})
	case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrIdempotencyConflict):
		writeJSON(w, http.StatusConflict, errorEnvelope{Error: err.Error()})
	default:
		log.Warn("unhandled httpapi error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorEnvelope{Error: "internal error"})
	}
}

// logWarner is the slice of *slog.Logger writeError needs, kept
// narrow so it can be called directly from the Server's handlers.
type logWarner interface {
	Warn(msg string, args ...any)
}
