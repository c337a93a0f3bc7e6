package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	pmsGuard "github.com/MrEthical07/pmsGuard"
)

// Error codes returned in the "error" field of JSON error bodies.
const (
	errCodeBadRequest    = "bad_request"
	errCodeTOTPRequired  = "totp_required"
	errCodeConfiguration = "configuration_error"
	errCodeUnavailable   = "service_unavailable"
	errCodeInternal      = "internal_error"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, errCodeBadRequest, message)
}

// writeEngineError maps an engine sentinel to its status and wire code.
// Unknown errors become a 500 without detail.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pmsGuard.ErrTOTPRequired):
		writeError(w, http.StatusUnauthorized, errCodeTOTPRequired, "Second factor required")
	case errors.Is(err, pmsGuard.ErrInvalidCredentials), errors.Is(err, pmsGuard.ErrTOTPInvalid):
		writeError(w, http.StatusUnauthorized, pmsGuard.ReasonUnauthenticated.String(), "Invalid credentials")
	case errors.Is(err, pmsGuard.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, pmsGuard.ReasonUnauthenticated.String(), "Unauthorized")
	case errors.Is(err, pmsGuard.ErrForbidden):
		writeError(w, http.StatusForbidden, pmsGuard.ReasonForbidden.String(), "Forbidden")
	case errors.Is(err, pmsGuard.ErrNotFound):
		writeError(w, http.StatusNotFound, pmsGuard.ReasonNotFound.String(), "Not found")
	case errors.Is(err, pmsGuard.ErrLoginRateLimited), errors.Is(err, pmsGuard.ErrTooManyRequests):
		writeError(w, http.StatusTooManyRequests, pmsGuard.ReasonTooManyRequests.String(), "Too many requests")
	case errors.Is(err, pmsGuard.ErrTOTPNotEnrolled):
		writeError(w, http.StatusConflict, "totp_not_enrolled", "Second factor is not enabled")
	case errors.Is(err, pmsGuard.ErrConfiguration):
		writeError(w, http.StatusServiceUnavailable, errCodeConfiguration, "Feature is not configured")
	case errors.Is(err, pmsGuard.ErrStoreUnavailable), errors.Is(err, pmsGuard.ErrEngineNotReady):
		writeError(w, http.StatusServiceUnavailable, errCodeUnavailable, "Service unavailable")
	default:
		writeError(w, http.StatusInternalServerError, errCodeInternal, "Internal error")
	}
}

// decodeJSON reads at most maxBodyBytes of JSON into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return false
	}
	return true
}

const maxBodyBytes = 64 << 10
