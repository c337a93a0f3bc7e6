package pmsGuard

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/MrEthical07/pmsGuard/internal/rate"
	"go.uber.org/zap"
)

// ResolveSession turns the session cookie on r into a Principal. It returns
// false when there is no cookie, the token does not verify, the principal
// is unknown or inactive, or the store fails.
func (e *Engine) ResolveSession(ctx context.Context, r *http.Request) (Principal, bool) {
	if e == nil || e.sessions == nil || r == nil {
		return Principal{}, false
	}
	id, ok := e.sessions.Reference(r)
	if !ok {
		e.metricInc(MetricSessionRejected)
		return Principal{}, false
	}
	return e.loadSessionPrincipal(ctx, id)
}

// ResolveSessionToken is [Engine.ResolveSession] for callers holding the raw
// token instead of a request.
func (e *Engine) ResolveSessionToken(ctx context.Context, token string) (Principal, bool) {
	if e == nil || e.sessions == nil {
		return Principal{}, false
	}
	id, ok := e.sessions.ParseToken(token)
	if !ok {
		e.metricInc(MetricSessionRejected)
		return Principal{}, false
	}
	return e.loadSessionPrincipal(ctx, id)
}

func (e *Engine) loadSessionPrincipal(ctx context.Context, id string) (Principal, bool) {
	rec, err := e.principals.GetPrincipal(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			e.metricInc(MetricStoreFailure)
			e.logger.Warn("session principal lookup failed", zap.Error(err))
		}
		e.metricInc(MetricSessionRejected)
		return Principal{}, false
	}
	if !rec.IsActive || rec.ID == "" {
		e.metricInc(MetricSessionRejected)
		return Principal{}, false
	}

	e.metricInc(MetricSessionResolved)
	return rec.Principal, true
}

// IssueSession returns the session cookie for p.
func (e *Engine) IssueSession(p Principal) (*http.Cookie, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}
	if p.ID == "" || !p.IsActive {
		return nil, ErrUnauthenticated
	}
	cookie, err := e.sessions.Issue(p.ID, e.clock())
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricSessionCreated)
	return cookie, nil
}

// SessionIdle reports whether the activity cookie on r is older than the
// idle timeout.
func (e *Engine) SessionIdle(r *http.Request) bool {
	if e == nil || e.sessions == nil {
		return false
	}
	return e.sessions.Idle(r, e.clock())
}

// TouchSession returns a refreshed activity cookie.
func (e *Engine) TouchSession() *http.Cookie {
	if e == nil || e.sessions == nil {
		return nil
	}
	return e.sessions.Touch(e.clock())
}

// ClearSession returns cookies that delete the session and activity cookies.
func (e *Engine) ClearSession() []*http.Cookie {
	if e == nil || e.sessions == nil {
		return nil
	}
	return e.sessions.Clear()
}

// Login verifies email and password, and the TOTP code when the principal
// has a second factor, then issues a session cookie.
//
// Unknown email, wrong password and inactive principal all return
// ErrInvalidCredentials. A principal with a second factor and an empty
// totpCode gets ErrTOTPRequired without it counting as a failure.
func (e *Engine) Login(ctx context.Context, email, password, totpCode string) (*LoginResult, error) {
	if e == nil || e.principals == nil || e.passwords == nil {
		return nil, ErrEngineNotReady
	}

	identifier := strings.ToLower(strings.TrimSpace(email))
	ip := clientIPFromContext(ctx)
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	if e.limiter != nil {
		if err := e.limiter.CheckLogin(ctx, identifier, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.metricInc(MetricLoginRateLimited)
				e.emitAudit(ctx, auditEventLoginRateLimited, false, boundarySession, "", ErrLoginRateLimited, nil)
				return nil, ErrLoginRateLimited
			}
			e.metricInc(MetricStoreFailure)
			return nil, storeErr(err)
		}
	}

	rec, err := e.principals.GetPrincipalByEmail(ctx, identifier)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			e.metricInc(MetricStoreFailure)
			return nil, storeErr(err)
		}
		e.passwords.Burn(password)
		return nil, e.loginFailed(ctx, identifier, ip, "", ErrInvalidCredentials)
	}

	ok, rehash, err := e.passwords.Verify(password, rec.PasswordHash)
	if err != nil || !ok || !rec.IsActive {
		if err != nil {
			e.logger.Warn("stored password hash unusable", zap.String("principal_id", rec.ID), zap.Error(err))
		}
		return nil, e.loginFailed(ctx, identifier, ip, rec.ID, ErrInvalidCredentials)
	}

	if rec.TOTPEnabled {
		if strings.TrimSpace(totpCode) == "" {
			e.metricInc(MetricTOTPRequired)
			return nil, ErrTOTPRequired
		}
		if !e.totp.Verify(rec.TOTPSecret, totpCode, e.clock()) {
			e.metricInc(MetricTOTPFailure)
			return nil, e.loginFailed(ctx, identifier, ip, rec.ID, ErrTOTPInvalid)
		}
		e.metricInc(MetricTOTPSuccess)
	}

	if e.limiter != nil {
		if err := e.limiter.ResetLogin(ctx, identifier, ip); err != nil {
			e.logger.Warn("login throttle reset failed", zap.Error(err))
		}
	}

	cookie, err := e.IssueSession(rec.Principal)
	if err != nil {
		return nil, err
	}

	result := &LoginResult{Principal: rec.Principal, Cookie: cookie}
	if rehash {
		if h, err := e.passwords.Hash(password); err == nil {
			result.NewPasswordHash = h
		}
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, boundarySession, rec.ID, nil, nil)
	return result, nil
}

func (e *Engine) loginFailed(ctx context.Context, identifier, ip, principalID string, cause error) error {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, boundarySession, principalID, cause, nil)

	if e.limiter != nil {
		if err := e.limiter.IncrementLogin(ctx, identifier, ip); err != nil && !errors.Is(err, rate.ErrRateLimited) {
			e.logger.Warn("login throttle update failed", zap.Error(err))
		}
	}
	return cause
}
