package pmsGuard

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/MrEthical07/pmsGuard/internal/secret"
	"go.uber.org/zap"
)

const (
	internalRejectMessage = "Forbidden"
	externalRejectMessage = "Missing or invalid API key. Send it in the X-API-Key header or as Authorization: Bearer <key>."
	rateLimitMessage      = "Request limit exceeded. Try again shortly."
	ipRejectMessage       = "Forbidden: IP not allowed"
)

// RequireInternalSecret checks a shared-secret header value. With no secret
// configured every call is rejected. The rejection never says whether the
// secret was missing or wrong.
func (e *Engine) RequireInternalSecret(provided string) Decision {
	return e.requireInternalSecret(context.Background(), provided)
}

// RequireInternalRequest reads the configured internal header from r and
// applies [Engine.RequireInternalSecret].
func (e *Engine) RequireInternalRequest(r *http.Request) Decision {
	if e == nil || r == nil {
		return Reject(ReasonForbidden, internalRejectMessage)
	}
	return e.requireInternalSecret(r.Context(), r.Header.Get(e.config.Internal.Header))
}

func (e *Engine) requireInternalSecret(ctx context.Context, provided string) Decision {
	if e == nil {
		return Reject(ReasonForbidden, internalRejectMessage)
	}
	if e.IsAuthDisabled() {
		e.metricInc(MetricGateBypassed)
		return Continue()
	}

	expected := e.config.Internal.Secret
	if !secret.Configured(expected) || !secret.Equal(provided, expected) {
		d := Reject(ReasonForbidden, internalRejectMessage)
		e.metricInc(MetricInternalReject)
		e.emitRejection(ctx, auditEventInternalRejected, boundaryInternal, d)
		return d
	}

	e.metricInc(MetricInternalPass)
	return Continue()
}

// RequireExternalAPIKey checks the API key on r. With no key configured the
// gate is open. The X-API-Key header wins over Authorization: Bearer.
func (e *Engine) RequireExternalAPIKey(r *http.Request) Decision {
	if e == nil || r == nil {
		return Reject(ReasonUnauthorized, externalRejectMessage)
	}
	if e.IsAuthDisabled() {
		e.metricInc(MetricGateBypassed)
		return Continue()
	}

	expected := e.config.External.Key
	if !secret.Configured(expected) {
		e.metricInc(MetricExternalPass)
		return Continue()
	}

	candidate := e.apiKeyCandidate(r)
	if candidate == "" || !secret.Equal(candidate, expected) {
		d := Reject(ReasonUnauthorized, externalRejectMessage)
		e.metricInc(MetricExternalReject)
		e.emitRejection(r.Context(), auditEventExternalRejected, boundaryExternal, d)
		return d
	}

	e.metricInc(MetricExternalPass)
	return Continue()
}

// CheckAPIRateLimit counts r against its per-minute budget. The budget is
// keyed by the first characters of the presented API key, or by client IP
// when no key is presented. Limiter failures let the request through.
func (e *Engine) CheckAPIRateLimit(ctx context.Context, r *http.Request) Decision {
	if e == nil || r == nil {
		return Continue()
	}
	if !e.config.External.RateLimit.Enabled || e.limiter == nil || e.IsAuthDisabled() {
		return Continue()
	}

	res, err := e.limiter.Allow(ctx, e.rateLimitKey(r))
	if err != nil {
		e.metricInc(MetricStoreFailure)
		e.logger.Warn("api rate limiter unavailable", zap.Error(err))
		return Continue()
	}
	if !res.Allowed {
		d := RejectRetryAfter(rateLimitMessage, res.RetryAfter)
		e.metricInc(MetricRateLimitHit)
		e.emitRejection(ctx, auditEventRateLimitTriggered, boundaryExternal, d)
		return d
	}
	return Continue()
}

// AllowIP enforces the external API IP allowlist. An empty list allows
// every caller.
func (e *Engine) AllowIP(r *http.Request) Decision {
	if e == nil || r == nil {
		return Continue()
	}
	if len(e.allowlist) == 0 || e.IsAuthDisabled() {
		return Continue()
	}

	addr, err := netip.ParseAddr(ClientIP(r))
	if err == nil {
		addr = addr.Unmap()
		for _, p := range e.allowlist {
			if p.Contains(addr) {
				return Continue()
			}
		}
	}

	d := Reject(ReasonForbidden, ipRejectMessage)
	e.metricInc(MetricIPRejected)
	e.emitRejection(r.Context(), auditEventIPRejected, boundaryExternal, d)
	return d
}

func (e *Engine) apiKeyCandidate(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(e.config.External.KeyHeader)); v != "" {
		return v
	}
	return bearerToken(r.Header.Get("Authorization"))
}

func (e *Engine) rateLimitKey(r *http.Request) string {
	if key := e.apiKeyCandidate(r); key != "" {
		if n := e.config.External.RateLimit.KeyPrefixLength; n > 0 && len(key) > n {
			key = key[:n]
		}
		return "key:" + key
	}
	return "ip:" + ClientIP(r)
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// ClientIP returns the first X-Forwarded-For entry, then X-Real-IP, then
// the host part of RemoteAddr, or "unknown".
func ClientIP(r *http.Request) string {
	if r == nil {
		return "unknown"
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
