package shared

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

const maxBodyBytes = 1 << 20

// ErrorBody is the JSON shape for error responses.
type ErrorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// RespondJSON writes v as a JSON response with the given status.
func RespondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Warn("encode response", slog.Any("error", err))
	}
}

// RespondError writes a JSON error body with an optional machine reason.
func RespondError(w http.ResponseWriter, status int, message, reason string) {
	RespondJSON(w, status, ErrorBody{Error: message, Reason: reason})
}

// RespondDomainError maps taxonomy errors onto HTTP statuses.
func RespondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		RespondError(w, http.StatusUnauthorized, UserSafeMessage(err), "unauthenticated")
	case errors.Is(err, ErrUnauthorized):
		RespondError(w, http.StatusForbidden, UserSafeMessage(err), "unauthorized")
	case errors.Is(err, ErrNotFound):
		RespondError(w, http.StatusNotFound, UserSafeMessage(err), "not_found")
	case errors.Is(err, ErrConflict), errors.Is(err, ErrIdempotencyConflict):
		RespondError(w, http.StatusConflict, UserSafeMessage(err), "conflict")
	default:
		RespondError(w, http.StatusInternalServerError, UserSafeMessage(err), "")
	}
}

// DecodeJSON reads a bounded JSON body into dst.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
