package pmsGuard

import (
	"context"
	"errors"
)

const (
	auditEventAuthDisabledChanged = "auth_disabled_changed"
	auditEventInternalRejected    = "internal_gate_rejected"
	auditEventExternalRejected    = "external_gate_rejected"
	auditEventIPRejected          = "ip_allowlist_rejected"
	auditEventRateLimitTriggered  = "rate_limit_triggered"
	auditEventLoginSuccess        = "login_success"
	auditEventLoginFailure        = "login_failure"
	auditEventLoginRateLimited    = "login_rate_limited"
	auditEventTOTPEnabled         = "totp_enabled"
	auditEventTOTPDisabled        = "totp_disabled"
	auditEventTOTPFailure         = "totp_failure"
	auditEventGuestRedeemed       = "guest_token_redeemed"
	auditEventGuestRejected       = "guest_token_rejected"
)

const (
	boundarySession  = "session"
	boundaryInternal = "internal"
	boundaryExternal = "external"
	boundaryGuest    = "guest"
)

// AuditErrorCode is the categorical reason attached to failed audit events.
type AuditErrorCode string

const (
	auditErrUnauthenticated    AuditErrorCode = "unauthenticated"
	auditErrUnauthorized       AuditErrorCode = "unauthorized"
	auditErrForbidden          AuditErrorCode = "forbidden"
	auditErrNotFound           AuditErrorCode = "not_found"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrTOTPRequired       AuditErrorCode = "totp_required"
	auditErrTOTPInvalid        AuditErrorCode = "totp_invalid"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrConfiguration      AuditErrorCode = "configuration"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	boundary string,
	principalID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if id := RequestIDFromContext(ctx); id != "" {
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata["request_id"] = id
	}

	event := AuditEvent{
		EventType:   eventType,
		Boundary:    boundary,
		PrincipalID: principalID,
		IP:          clientIPFromContext(ctx),
		Success:     success,
		Metadata:    metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Reason = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRejection(ctx context.Context, eventType, boundary string, d Decision) {
	e.emitAudit(ctx, eventType, false, boundary, "", d.Err(), nil)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnauthenticated):
		return auditErrUnauthenticated
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrTooManyRequests), errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrTOTPRequired):
		return auditErrTOTPRequired
	case errors.Is(err, ErrTOTPInvalid):
		return auditErrTOTPInvalid
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrConfiguration):
		return auditErrConfiguration
	default:
		return auditErrInternal
	}
}
