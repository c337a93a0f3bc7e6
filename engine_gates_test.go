package pmsGuard_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	pmsGuard "github.com/MrEthical07/pmsGuard"
	"github.com/MrEthical07/pmsGuard/store/memory"
)

func TestRequireInternalSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Internal.Secret = "s3cret"
	engine := newTestEngine(t, cfg, memory.New())

	if d := engine.RequireInternalSecret("s3cret"); !d.Allowed() {
		t.Fatalf("matching secret must pass, got %v", d.Reason())
	}
	for _, provided := range []string{"wrong", "", "s3cret ", "S3CRET"} {
		d := engine.RequireInternalSecret(provided)
		if d.Allowed() || d.Reason() != pmsGuard.ReasonForbidden {
			t.Fatalf("%q: expected Forbidden, got %v", provided, d.Reason())
		}
		if d.Status() != http.StatusForbidden || d.Message() != "Forbidden" {
			t.Fatalf("%q: rejection must be generic, got %d %q", provided, d.Status(), d.Message())
		}
	}
}

func TestRequireInternalSecretFailsClosedWhenUnconfigured(t *testing.T) {
	engine := newTestEngine(t, testConfig(), memory.New())

	for _, provided := range []string{"", "anything"} {
		if d := engine.RequireInternalSecret(provided); d.Allowed() {
			t.Fatalf("%q: unconfigured internal gate must reject", provided)
		}
	}
}

func TestRequireInternalRequestReadsHeader(t *testing.T) {
	cfg := testConfig()
	cfg.Internal.Secret = "s3cret"
	engine := newTestEngine(t, cfg, memory.New())

	r := httptest.NewRequest(http.MethodGet, "/api/internal/sync", nil)
	if engine.RequireInternalRequest(r).Allowed() {
		t.Fatalf("missing header must be rejected")
	}
	r.Header.Set("X-Internal-Secret", "s3cret")
	if !engine.RequireInternalRequest(r).Allowed() {
		t.Fatalf("correct header must pass")
	}
}

func TestRequireExternalAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.External.Key = "abc123"
	engine := newTestEngine(t, cfg, memory.New())

	cases := []struct {
		name    string
		headers map[string]string
		allowed bool
	}{
		{"api key header", map[string]string{"X-API-Key": "abc123"}, true},
		{"api key header trimmed", map[string]string{"X-API-Key": "  abc123 "}, true},
		{"bearer", map[string]string{"Authorization": "Bearer abc123"}, true},
		{"bearer lower case", map[string]string{"Authorization": "bearer   abc123"}, true},
		{"wrong key", map[string]string{"X-API-Key": "wrong"}, false},
		{"no header", nil, false},
		{"dedicated header wins", map[string]string{"X-API-Key": "wrong", "Authorization": "Bearer abc123"}, false},
		{"dedicated header wins when valid", map[string]string{"X-API-Key": "abc123", "Authorization": "Bearer wrong"}, true},
		{"basic scheme", map[string]string{"Authorization": "Basic abc123"}, false},
	}

	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/external/availability", nil)
		for k, v := range tc.headers {
			r.Header.Set(k, v)
		}
		d := engine.RequireExternalAPIKey(r)
		if d.Allowed() != tc.allowed {
			t.Fatalf("%s: expected allowed=%v, got %v", tc.name, tc.allowed, d.Allowed())
		}
		if !tc.allowed {
			if d.Reason() != pmsGuard.ReasonUnauthorized || d.Status() != http.StatusUnauthorized {
				t.Fatalf("%s: expected Unauthorized, got %v", tc.name, d.Reason())
			}
			if !containsAll(d.Message(), "X-API-Key", "Authorization: Bearer") || containsAll(d.Message(), "abc123") {
				t.Fatalf("%s: message must name both header forms and never the key: %q", tc.name, d.Message())
			}
		}
	}
}

func TestRequireExternalAPIKeyOpenWhenUnconfigured(t *testing.T) {
	engine := newTestEngine(t, testConfig(), memory.New())

	r := httptest.NewRequest(http.MethodGet, "/api/v1/external/availability", nil)
	if !engine.RequireExternalAPIKey(r).Allowed() {
		t.Fatalf("unconfigured external gate must pass")
	}
	r.Header.Set("X-API-Key", "whatever")
	if !engine.RequireExternalAPIKey(r).Allowed() {
		t.Fatalf("unconfigured external gate must pass any key")
	}
}

func TestGatesBypassedWhenAuthDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Internal.Secret = "s3cret"
	cfg.External.Key = "abc123"
	cfg.External.IPAllowlist = []string{"10.0.0.1"}
	engine := newTestEngine(t, cfg, memory.New())
	engine.SetAuthDisabledCache(true)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/external/availability", nil)
	r.RemoteAddr = "192.0.2.7:1234"
	if !engine.RequireInternalSecret("").Allowed() {
		t.Fatalf("internal gate must be a no-op while auth is disabled")
	}
	if !engine.RequireExternalAPIKey(r).Allowed() {
		t.Fatalf("external gate must be a no-op while auth is disabled")
	}
	if !engine.AllowIP(r).Allowed() {
		t.Fatalf("ip allowlist must be a no-op while auth is disabled")
	}
	if engine.MetricsSnapshot().Counters[pmsGuard.MetricGateBypassed] < 2 {
		t.Fatalf("expected bypass metric")
	}
}

func TestCheckAPIRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.External.RateLimit.Requests = 3
	cfg.External.RateLimit.Window = time.Minute
	engine := newTestEngine(t, cfg, memory.New())
	ctx := context.Background()

	keyed := func(key string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/external/posting", nil)
		r.Header.Set("X-API-Key", key)
		return r
	}

	for i := 0; i < 3; i++ {
		if d := engine.CheckAPIRateLimit(ctx, keyed("key-a")); !d.Allowed() {
			t.Fatalf("request %d must pass", i)
		}
	}
	d := engine.CheckAPIRateLimit(ctx, keyed("key-a"))
	if d.Allowed() || d.Reason() != pmsGuard.ReasonTooManyRequests || d.Status() != http.StatusTooManyRequests {
		t.Fatalf("fourth request must be limited, got %v", d.Reason())
	}
	if d.RetryAfter() <= 0 {
		t.Fatalf("expected RetryAfter, got %v", d.RetryAfter())
	}

	if !engine.CheckAPIRateLimit(ctx, keyed("key-b")).Allowed() {
		t.Fatalf("other keys have their own budget")
	}

	byIP := httptest.NewRequest(http.MethodGet, "/api/v1/external/posting", nil)
	byIP.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if !engine.CheckAPIRateLimit(ctx, byIP).Allowed() {
		t.Fatalf("anonymous callers are budgeted by ip")
	}
}

func TestCheckAPIRateLimitSharesKeyPrefix(t *testing.T) {
	cfg := testConfig()
	cfg.External.RateLimit.Requests = 1
	cfg.External.RateLimit.KeyPrefixLength = 4
	engine := newTestEngine(t, cfg, memory.New())
	ctx := context.Background()

	first := httptest.NewRequest(http.MethodGet, "/", nil)
	first.Header.Set("X-API-Key", "abcd-one")
	second := httptest.NewRequest(http.MethodGet, "/", nil)
	second.Header.Set("Authorization", "Bearer abcd-two")

	if !engine.CheckAPIRateLimit(ctx, first).Allowed() {
		t.Fatalf("first request must pass")
	}
	if engine.CheckAPIRateLimit(ctx, second).Allowed() {
		t.Fatalf("keys sharing a prefix share a budget")
	}
}

func TestAllowIP(t *testing.T) {
	cfg := testConfig()
	cfg.External.IPAllowlist = []string{"198.51.100.4", "10.1.0.0/16"}
	engine := newTestEngine(t, cfg, memory.New())

	cases := []struct {
		name    string
		setup   func(r *http.Request)
		allowed bool
	}{
		{"forwarded exact", func(r *http.Request) { r.Header.Set("X-Forwarded-For", "198.51.100.4, 10.9.9.9") }, true},
		{"real ip in prefix", func(r *http.Request) { r.Header.Set("X-Real-IP", "10.1.44.2") }, true},
		{"remote addr", func(r *http.Request) { r.RemoteAddr = "198.51.100.4:5555" }, true},
		{"outside", func(r *http.Request) { r.RemoteAddr = "192.0.2.1:5555" }, false},
		{"garbage", func(r *http.Request) { r.Header.Set("X-Forwarded-For", "unknown") }, false},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
		r.RemoteAddr = "192.0.2.1:1"
		tc.setup(r)
		d := engine.AllowIP(r)
		if d.Allowed() != tc.allowed {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.allowed, d.Allowed())
		}
		if !tc.allowed && d.Status() != http.StatusForbidden {
			t.Fatalf("%s: expected 403, got %d", tc.name, d.Status())
		}
	}
}

func TestAllowIPEmptyListAllowsAll(t *testing.T) {
	engine := newTestEngine(t, testConfig(), memory.New())
	r := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	if !engine.AllowIP(r).Allowed() {
		t.Fatalf("empty allowlist must allow")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.10:4000"
	if got := pmsGuard.ClientIP(r); got != "192.0.2.10" {
		t.Fatalf("expected remote host, got %q", got)
	}
	r.Header.Set("X-Real-IP", "203.0.113.2")
	if got := pmsGuard.ClientIP(r); got != "203.0.113.2" {
		t.Fatalf("expected X-Real-IP, got %q", got)
	}
	r.Header.Set("X-Forwarded-For", " 203.0.113.1 , 10.0.0.1")
	if got := pmsGuard.ClientIP(r); got != "203.0.113.1" {
		t.Fatalf("expected first forwarded entry, got %q", got)
	}
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
