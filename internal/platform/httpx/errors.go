// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/firewatch/firewatch/internal/shared"
)

type problemKind struct {
	status int
	title  string
	detail bool
}

func classify(err error) problemKind {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return problemKind{http.StatusNotFound, "Not Found", false}
	case errors.Is(err, shared.ErrDuplicate):
		return problemKind{http.StatusConflict, "Duplicate", true}
	case errors.Is(err, shared.ErrConflict):
		return problemKind{http.StatusConflict, "Conflict", true}
	case errors.Is(err, shared.ErrValidation):
		return problemKind{http.StatusBadRequest, "Validation Failed", true}
	case errors.Is(err, shared.ErrForbidden):
		return problemKind{http.StatusForbidden, "Forbidden", false}
	case errors.Is(err, shared.ErrUnauthenticated):
		return problemKind{http.StatusUnauthorized, "Unauthorized", false}
	case errors.Is(err, shared.ErrInvalidCredentials),
		errors.Is(err, shared.ErrVerificationInvalid),
		errors.Is(err, shared.ErrVerificationExpired):
		return problemKind{http.StatusUnauthorized, "Unauthorized", true}
	case errors.Is(err, shared.ErrEmailNotVerified),
		errors.Is(err, shared.ErrCSRFTokenMissing),
		errors.Is(err, shared.ErrCSRFTokenMismatch):
		return problemKind{http.StatusForbidden, "Forbidden", true}
	default:
		return problemKind{http.StatusInternalServerError, "Internal Error", false}
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807. Data-store
// failures and other unexpected errors never leak their detail.
func RespondError(w http.ResponseWriter, err error) {
	kind := classify(err)
	detail := ""
	if kind.detail {
		detail = err.Error()
	}
	Problem(w, kind.status, kind.title, detail)
}

// Fail logs unexpected errors under op and writes the mapped problem.
func Fail(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	if classify(err).status >= http.StatusInternalServerError && logger != nil {
		logger.Error(op, slog.Any("error", err))
	}
	RespondError(w, err)
}
