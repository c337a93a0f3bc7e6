package pmsGuard

import (
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// IdentityProviderLoginURL builds the staff login redirect to the external
// identity provider. The code exchange after the callback is not handled
// here. Missing client id or redirect base returns ErrConfiguration.
func (e *Engine) IdentityProviderLoginURL(state string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}

	cfg := e.config.IdentityProvider
	clientID := strings.TrimSpace(cfg.ClientID)
	base := strings.TrimRight(strings.TrimSpace(cfg.RedirectBase), "/")
	if clientID == "" || base == "" {
		e.logger.Error("identity provider login is not configured",
			zap.Bool("client_id_set", clientID != ""),
			zap.Bool("redirect_base_set", base != ""),
		)
		return "", ErrConfiguration
	}

	authorize, err := url.Parse(cfg.AuthorizeURL)
	if err != nil || authorize.Scheme == "" {
		e.logger.Error("identity provider authorize url is invalid", zap.String("authorize_url", cfg.AuthorizeURL))
		return "", ErrConfiguration
	}

	q := authorize.Query()
	q.Set("client_id", clientID)
	q.Set("redirect_uri", base+cfg.CallbackPath)
	q.Set("response_type", "code")
	q.Set("scope", "openid email profile")
	q.Set("access_type", "offline")
	q.Set("prompt", "consent")
	if state != "" {
		q.Set("state", state)
	}
	authorize.RawQuery = q.Encode()

	return authorize.String(), nil
}
