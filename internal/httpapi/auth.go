package httpapi

import (
	"net/http"
	"time"

	pmsGuard "github.com/MrEthical07/pmsGuard"
	"github.com/MrEthical07/pmsGuard/internal/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StateCookieName holds the identity provider state between redirect and callback.
const StateCookieName = "pms_oauth_state"

const stateCookieTTL = 10 * time.Minute

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TOTPCode string `json:"totpCode,omitempty"`
}

type principalResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// handleIsDisabled reloads the flag from the store. Any failure answers
// {"disabled": false}.
func (s *server) handleIsDisabled(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"disabled": s.engine.RefreshAuthDisabled(r.Context())})
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := s.engine.Login(r.Context(), req.Email, req.Password, req.TOTPCode)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	if res.NewPasswordHash != "" && s.passwords != nil {
		if err := s.passwords.UpdatePasswordHash(r.Context(), res.Principal.ID, res.NewPasswordHash); err != nil {
			logger.From(r.Context()).Warn("password rehash not persisted",
				zap.String("principal_id", res.Principal.ID),
				zap.Error(err),
			)
		}
	}

	http.SetCookie(w, res.Cookie)
	if c := s.engine.TouchSession(); c != nil {
		http.SetCookie(w, c)
	}
	writeJSON(w, http.StatusOK, toPrincipalResponse(res.Principal))
}

func (s *server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	for _, c := range s.engine.ClearSession() {
		http.SetCookie(w, c)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStaffGoogle redirects to the identity provider with a fresh state
// value, also kept in a short-lived cookie for the callback to compare.
func (s *server) handleStaffGoogle(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	target, err := s.engine.IdentityProviderLoginURL(state)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.engine.Config().Session.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, target, http.StatusFound)
}

func toPrincipalResponse(p pmsGuard.Principal) principalResponse {
	return principalResponse{ID: p.ID, Email: p.Email, Name: p.Name, Role: p.Role}
}
