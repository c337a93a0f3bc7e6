package pmsGuard

import (
	"context"
	"errors"
)

// GenerateTOTPSecret returns a fresh 32-character base32 secret.
func (e *Engine) GenerateTOTPSecret() (string, error) {
	if e == nil || e.totp == nil {
		return "", ErrEngineNotReady
	}
	return e.totp.GenerateSecret()
}

// TOTPURI builds the otpauth:// enrollment URI for email and secret.
func (e *Engine) TOTPURI(email, secret string) string {
	if e == nil || e.totp == nil {
		return ""
	}
	return e.totp.ProvisionURI(email, secret)
}

// VerifyTOTP reports whether token is the code for secret at the current
// time step or one step on either side. Malformed input returns false.
func (e *Engine) VerifyTOTP(secret, token string) bool {
	if e == nil || e.totp == nil {
		return false
	}
	return e.totp.Verify(secret, token, e.clock())
}

// BeginTOTPEnrollment issues a secret and URI for p. Nothing is stored until
// [Engine.ConfirmTOTPEnrollment] succeeds.
func (e *Engine) BeginTOTPEnrollment(ctx context.Context, p Principal) (*TOTPEnrollment, error) {
	if e == nil || e.totp == nil {
		return nil, ErrEngineNotReady
	}
	if p.ID == "" || !p.IsActive {
		return nil, ErrUnauthenticated
	}

	secret, err := e.totp.GenerateSecret()
	if err != nil {
		return nil, err
	}
	label := p.Email
	if label == "" {
		label = p.ID
	}
	return &TOTPEnrollment{Secret: secret, URI: e.totp.ProvisionURI(label, secret)}, nil
}

// ConfirmTOTPEnrollment stores secret for p once code verifies against it.
// The new secret replaces any previous one.
func (e *Engine) ConfirmTOTPEnrollment(ctx context.Context, p Principal, secret, code string) error {
	if e == nil || e.totp == nil {
		return ErrEngineNotReady
	}
	if e.totpStore == nil {
		return ErrConfiguration
	}
	if p.ID == "" || !p.IsActive {
		return ErrUnauthenticated
	}

	if !e.totp.Verify(secret, code, e.clock()) {
		e.metricInc(MetricTOTPFailure)
		e.emitAudit(ctx, auditEventTOTPFailure, false, boundarySession, p.ID, ErrTOTPInvalid, nil)
		return ErrTOTPInvalid
	}

	if err := e.totpStore.SaveTOTPSecret(ctx, p.ID, secret); err != nil {
		e.metricInc(MetricStoreFailure)
		return storeErr(err)
	}

	e.metricInc(MetricTOTPEnrolled)
	e.emitAudit(ctx, auditEventTOTPEnabled, true, boundarySession, p.ID, nil, nil)
	return nil
}

// DisableTOTP removes p's second factor.
func (e *Engine) DisableTOTP(ctx context.Context, p Principal) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if e.totpStore == nil {
		return ErrConfiguration
	}
	if p.ID == "" {
		return ErrUnauthenticated
	}

	if err := e.totpStore.ClearTOTPSecret(ctx, p.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrTOTPNotEnrolled
		}
		e.metricInc(MetricStoreFailure)
		return storeErr(err)
	}

	e.metricInc(MetricTOTPDisabled)
	e.emitAudit(ctx, auditEventTOTPDisabled, true, boundarySession, p.ID, nil, nil)
	return nil
}

// TOTPStatus reports whether p has an active second factor.
func (e *Engine) TOTPStatus(ctx context.Context, p Principal) (bool, error) {
	if e == nil || e.principals == nil {
		return false, ErrEngineNotReady
	}
	rec, err := e.principals.GetPrincipal(ctx, p.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, ErrUnauthenticated
		}
		return false, storeErr(err)
	}
	return rec.TOTPEnabled && rec.TOTPSecret != "", nil
}
