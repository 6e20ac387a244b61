package httpapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"eeytech.com/console/internal/auth"
)

const loginPath = "/login"

func badRequest(msg string) error {
	return fmt.Errorf("%w: %s", auth.ErrInvalidInput, msg)
}

// respondError maps domain errors onto HTTP statuses. Unexpected errors are
// logged and reported as 500 without detail.
func (a *API) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrUnauthenticated):
		if wantsHTML(r) {
			http.Redirect(w, r, loginPath, http.StatusSeeOther)
			return
		}
		writeError(w, r, http.StatusUnauthorized, "unauthenticated")
	case errors.Is(err, auth.ErrInvalidSession):
		writeError(w, r, http.StatusUnauthorized, "invalid or expired session")
	case errors.Is(err, auth.ErrWrongTenant):
		writeError(w, r, http.StatusForbidden, "token not valid for this application")
	case errors.Is(err, auth.ErrInsufficientPermission):
		writeError(w, r, http.StatusForbidden, "insufficient permission")
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, inputMessage(err))
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "resource not found")
	case errors.Is(err, auth.ErrConflict):
		writeError(w, r, http.StatusConflict, "resource already exists")
	default:
		a.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("request_id", RequestIDFromContext(r.Context())),
			slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func inputMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), auth.ErrInvalidInput.Error())
	msg = strings.TrimPrefix(msg, ": ")
	if msg == "" {
		return "invalid input"
	}
	return msg
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
