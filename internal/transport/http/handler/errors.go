package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-anon-inbox/internal/domain"
)

// statusFor picks the HTTP status for a domain error. Specific codes are
// checked before their kind.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrMessagesClosed):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrState):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrSuggestionUnavailable), errors.Is(err, domain.ErrExportUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrDependency):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError maps err to a status and its stable code. Anything that is
// not a coded domain error becomes a bare 500 and is only logged.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		slog.ErrorContext(r.Context(), "unhandled error", "method", r.Method, "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, MessageEnvelope{Error: "internal server error"})
		return
	}
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.WarnContext(r.Context(), "dependency failure", "path", r.URL.Path, "code", de.Code, "err", err)
	}
	writeError(w, status, de.Code, de.Msg)
}
