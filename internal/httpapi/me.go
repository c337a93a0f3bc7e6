package httpapi

import (
	"net/http"

	"github.com/MrEthical07/pmsGuard/middleware"
	"github.com/MrEthical07/pmsGuard/permission"
)

type permissionsResponse struct {
	Role         string   `json:"role,omitempty"`
	Permissions  []string `json:"permissions"`
	AuthDisabled bool     `json:"authDisabled"`
}

type totpStatusResponse struct {
	Enabled bool `json:"enabled"`
}

type totpBeginResponse struct {
	Secret string `json:"secret"`
	URI    string `json:"uri"`
}

type totpConfirmRequest struct {
	Secret string `json:"secret"`
	Code   string `json:"code"`
}

func (s *server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]bool{"authDisabled": s.engine.IsAuthDisabled()})
		return
	}
	writeJSON(w, http.StatusOK, toPrincipalResponse(p))
}

// handleMyPermissions lists the caller's permission codes. With auth
// disabled there is no principal and every known code is listed.
func (s *server) handleMyPermissions(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, permissionsResponse{
			Permissions:  append([]string(nil), permission.Codes...),
			AuthDisabled: true,
		})
		return
	}
	set := s.engine.GetMyPermissions(r.Context(), &p)
	writeJSON(w, http.StatusOK, permissionsResponse{Role: p.Role, Permissions: set.Codes()})
}

func (s *server) handleTOTPStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeEngineError(w, errNoPrincipal)
		return
	}
	enabled, err := s.engine.TOTPStatus(r.Context(), p)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totpStatusResponse{Enabled: enabled})
}

func (s *server) handleTOTPBegin(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeEngineError(w, errNoPrincipal)
		return
	}
	enrollment, err := s.engine.BeginTOTPEnrollment(r.Context(), p)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totpBeginResponse{Secret: enrollment.Secret, URI: enrollment.URI})
}

func (s *server) handleTOTPConfirm(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeEngineError(w, errNoPrincipal)
		return
	}
	var req totpConfirmRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Secret == "" || req.Code == "" {
		writeBadRequest(w, "secret and code are required")
		return
	}
	if err := s.engine.ConfirmTOTPEnrollment(r.Context(), p, req.Secret, req.Code); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totpStatusResponse{Enabled: true})
}

func (s *server) handleTOTPDisable(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeEngineError(w, errNoPrincipal)
		return
	}
	if err := s.engine.DisableTOTP(r.Context(), p); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totpStatusResponse{Enabled: false})
}
