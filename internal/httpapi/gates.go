package httpapi

import (
	"net/http"

	pmsGuard "github.com/MrEthical07/pmsGuard"
)

// handleInternalAuthDisabled lets sibling services read the cached flag
// without their own store access.
func (s *server) handleInternalAuthDisabled(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"disabled": s.engine.IsAuthDisabled()})
}

// handleExternalPing confirms that a caller passes the external gate.
func (s *server) handleExternalPing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"clientIp":  pmsGuard.ClientIP(r),
		"requestId": pmsGuard.RequestIDFromContext(r.Context()),
	})
}
