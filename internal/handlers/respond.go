// Package handlers exposes the HTTP surface. Identity arrives as
// gateway-verified headers (X-Student-Id, X-Student-Name, X-Student-Email,
// X-Role); these handlers trust them and never parse credentials.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/tutorlane/bookingd/internal/booking"
	"github.com/tutorlane/bookingd/internal/storage"
)

type student struct {
	ID    string
	Name  string
	Email string
}

func studentFromHeaders(r *http.Request) student {
	return student{
		ID:    strings.TrimSpace(r.Header.Get("X-Student-Id")),
		Name:  strings.TrimSpace(r.Header.Get("X-Student-Name")),
		Email: strings.TrimSpace(r.Header.Get("X-Student-Email")),
	}
}

func isAdmin(r *http.Request) bool {
	return strings.TrimSpace(r.Header.Get("X-Role")) == "admin"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeBookingError maps domain errors onto the response contract:
// validation failures are 422 with a machine-readable reason, losing a
// window race is 409, internal failures are 500 carrying only the
// correlation id.
func writeBookingError(w http.ResponseWriter, err error) {
	var verr *booking.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  verr.Error(),
			"reason": string(verr.Reason),
		})
		return
	}
	if errors.Is(err, booking.ErrWindowUnavailable) || errors.Is(err, booking.ErrWindowNotFound) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": booking.ErrWindowUnavailable.Error(),
		})
		return
	}
	if errors.Is(err, storage.ErrStateConflict) {
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error()})
		return
	}
	if storage.IsNotFound(err) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "booking not found"})
		return
	}
	var oe *booking.OpError
	if errors.As(err, &oe) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": "operation failed",
			"ref":   oe.CorrelationID,
		})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
}
