package session

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/MrEthical07/pmsGuard/jwt"
)

// Config names the cookies and sets their attributes.
type Config struct {
	CookieName         string
	ActivityCookieName string
	IdleTimeout        time.Duration
	Secure             bool
	Path               string
}

// Codec issues and reads session cookies.
type Codec struct {
	cfg    Config
	tokens *jwt.Manager
}

// NewCodec returns a codec signing tokens with tokens.
func NewCodec(tokens *jwt.Manager, cfg Config) (*Codec, error) {
	if tokens == nil {
		return nil, errors.New("session: nil token manager")
	}
	if cfg.CookieName == "" {
		return nil, errors.New("session: cookie name required")
	}
	if cfg.ActivityCookieName == "" {
		return nil, errors.New("session: activity cookie name required")
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	return &Codec{cfg: cfg, tokens: tokens}, nil
}

// Issue returns a session cookie for principalID.
func (c *Codec) Issue(principalID string, now time.Time) (*http.Cookie, error) {
	token, expires, err := c.tokens.CreateSession(principalID, now)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     c.cfg.CookieName,
		Value:    token,
		Path:     c.cfg.Path,
		Expires:  expires,
		MaxAge:   int(c.tokens.TTL() / time.Second),
		HttpOnly: true,
		Secure:   c.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Reference returns the principal id named by the request's session cookie.
func (c *Codec) Reference(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	cookie, err := r.Cookie(c.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return c.ParseToken(cookie.Value)
}

// ParseToken returns the principal id named by a raw session token.
func (c *Codec) ParseToken(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	claims, err := c.tokens.ParseSession(token)
	if err != nil {
		return "", false
	}
	return claims.UID, true
}

// Touch returns an activity cookie stamped with now.
func (c *Codec) Touch(now time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     c.cfg.ActivityCookieName,
		Value:    strconv.FormatInt(now.UnixMilli(), 10),
		Path:     c.cfg.Path,
		MaxAge:   int(c.tokens.TTL() / time.Second),
		HttpOnly: true,
		Secure:   c.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Idle reports whether the last recorded activity is older than the idle
// timeout. A missing or unreadable activity cookie is not idle; the next
// Touch starts the clock.
func (c *Codec) Idle(r *http.Request, now time.Time) bool {
	if c.cfg.IdleTimeout <= 0 || r == nil {
		return false
	}
	cookie, err := r.Cookie(c.cfg.ActivityCookieName)
	if err != nil {
		return false
	}
	ms, err := strconv.ParseInt(cookie.Value, 10, 64)
	if err != nil {
		return false
	}
	return now.Sub(time.UnixMilli(ms)) > c.cfg.IdleTimeout
}

// Clear returns expired copies of both cookies.
func (c *Codec) Clear() []*http.Cookie {
	expired := func(name string) *http.Cookie {
		return &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     c.cfg.Path,
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			Secure:   c.cfg.Secure,
			SameSite: http.SameSiteLaxMode,
		}
	}
	return []*http.Cookie{expired(c.cfg.CookieName), expired(c.cfg.ActivityCookieName)}
}
