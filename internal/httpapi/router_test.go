package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	pmsGuard "github.com/MrEthical07/pmsGuard"
	"github.com/MrEthical07/pmsGuard/internal/httpapi"
	"github.com/MrEthical07/pmsGuard/password"
	"github.com/MrEthical07/pmsGuard/permission"
	"github.com/MrEthical07/pmsGuard/store/memory"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testPassword = "correct horse battery staple"

type fixture struct {
	engine  *pmsGuard.Engine
	store   *memory.Store
	handler http.Handler
	cfg     pmsGuard.Config
}

func newFixture(t *testing.T, mutate func(*pmsGuard.Config), deps func(*httpapi.Deps)) *fixture {
	t.Helper()
	cfg := pmsGuard.DefaultConfig()
	cfg.Session.Secret = "httpapi-test-secret-0123456789ab"
	cfg.Session.Secure = false
	cfg.Audit.Enabled = false
	cfg.Login.Password = password.Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	if mutate != nil {
		mutate(&cfg)
	}

	store := memory.NewWithDefaultRoles()
	log := zaptest.NewLogger(t)
	engine, err := pmsGuard.New().WithConfig(cfg).WithStore(store).WithLogger(log).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	d := httpapi.Deps{Engine: engine, Logger: log, Passwords: store, LoginPath: "/login"}
	if deps != nil {
		deps(&d)
	}
	return &fixture{engine: engine, store: store, handler: httpapi.NewRouter(d), cfg: cfg}
}

func (f *fixture) do(t *testing.T, method, target string, body any, cookies []*http.Cookie, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) seed(t *testing.T, email, role string) pmsGuard.Principal {
	t.Helper()
	v, err := password.NewVerifier(f.cfg.Login.Password)
	require.NoError(t, err)
	hash, err := v.Hash(testPassword)
	require.NoError(t, err)
	rec := f.store.PutPrincipal(pmsGuard.PrincipalRecord{
		Principal:    pmsGuard.Principal{Email: email, Name: "Test " + role, Role: role, IsActive: true},
		PasswordHash: hash,
	})
	return rec.Principal
}

func (f *fixture) session(t *testing.T, role string) []*http.Cookie {
	t.Helper()
	p := f.seed(t, strings.ToLower(role)+"@hotel.test", role)
	c, err := f.engine.IssueSession(p)
	require.NoError(t, err)
	return []*http.Cookie{c}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec := f.do(t, http.MethodGet, "/api/health", nil, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	f.store.SetPingError(assert.AnError)
	rec = f.do(t, http.MethodGet, "/api/health", nil, nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", decode(t, rec)["status"])
}

func TestIsDisabledReadsStore(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec := f.do(t, http.MethodGet, "/api/auth/is-disabled", nil, nil, nil)
	assert.Equal(t, false, decode(t, rec)["disabled"])

	require.NoError(t, f.store.SetAuthDisabled(context.Background(), true))
	rec = f.do(t, http.MethodGet, "/api/auth/is-disabled", nil, nil, nil)
	assert.Equal(t, true, decode(t, rec)["disabled"])
	assert.True(t, f.engine.IsAuthDisabled())
}

func TestLoginThenPermissions(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.seed(t, "desk@hotel.test", permission.RoleReception)

	rec := f.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "Desk@Hotel.test", "password": testPassword,
	}, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, permission.RoleReception, decode(t, rec)["role"])

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)

	rec = f.do(t, http.MethodGet, "/api/me/permissions", nil, cookies, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Role        string   `json:"role"`
		Permissions []string `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, permission.RoleReception, body.Role)
	assert.Contains(t, body.Permissions, permission.ReservationCheckIn)
	assert.NotContains(t, body.Permissions, permission.AdminSettings)
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t, func(c *pmsGuard.Config) { c.Login.MaxAttempts = 2 }, nil)
	f.seed(t, "desk@hotel.test", permission.RoleReception)

	bad := map[string]string{"email": "desk@hotel.test", "password": "wrong"}
	rec := f.do(t, http.MethodPost, "/api/auth/login", bad, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", decode(t, rec)["error"])

	rec = f.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "nobody@hotel.test", "password": "wrong"}, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	f.do(t, http.MethodPost, "/api/auth/login", bad, nil, nil)
	rec = f.do(t, http.MethodPost, "/api/auth/login", bad, nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/auth/login", map[string]any{"email": 1}, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutClearsCookies(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec := f.do(t, http.MethodPost, "/api/auth/logout", nil, nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	for _, c := range rec.Result().Cookies() {
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
	}
}

func TestSessionRoutes(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.do(t, http.MethodGet, "/api/me", nil, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	cookies := f.session(t, permission.RoleHousekeeping)
	rec = f.do(t, http.MethodGet, "/api/me", nil, cookies, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, permission.RoleHousekeeping, decode(t, rec)["role"])

	rec = f.do(t, http.MethodGet, "/api/me/totp", nil, cookies, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["enabled"])

	rec = f.do(t, http.MethodPost, "/api/me/totp/begin", nil, cookies, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	begin := decode(t, rec)
	assert.Len(t, begin["secret"], 32)
	assert.True(t, strings.HasPrefix(begin["uri"].(string), "otpauth://totp/"))

	rec = f.do(t, http.MethodPost, "/api/me/totp/confirm", map[string]string{
		"secret": begin["secret"].(string), "code": "000000x",
	}, cookies, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/me/totp", nil, cookies, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminRequiresPermission(t *testing.T) {
	f := newFixture(t, nil, nil)

	reception := f.session(t, permission.RoleReception)
	rec := f.do(t, http.MethodPut, "/api/admin/auth-disabled", map[string]bool{"disabled": true}, reception, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, f.engine.IsAuthDisabled())

	manager := f.session(t, permission.RoleManager)
	rec = f.do(t, http.MethodPut, "/api/admin/auth-disabled", map[string]bool{"disabled": true}, manager, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, f.engine.IsAuthDisabled())

	stored, err := f.store.AuthDisabled(context.Background())
	require.NoError(t, err)
	assert.True(t, stored)
}

func TestAdminBadToggleBody(t *testing.T) {
	f := newFixture(t, nil, nil)
	manager := f.session(t, permission.RoleManager)
	rec := f.do(t, http.MethodPut, "/api/admin/auth-disabled", map[string]string{}, manager, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthDisabledOpensSessionRoutes(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.engine.SetAuthDisabledCache(true)

	rec := f.do(t, http.MethodGet, "/api/me/permissions", nil, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["authDisabled"])

	rec = f.do(t, http.MethodGet, "/api/admin/auth-disabled", nil, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/me/totp", nil, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuestPaymentFlow(t *testing.T) {
	f := newFixture(t, nil, nil)
	reception := f.session(t, permission.RoleReception)

	rec := f.do(t, http.MethodPost, "/api/admin/guest-tokens/payment", map[string]any{
		"reservationId": "res-42", "amountCents": 15000, "currency": "EUR",
	}, reception, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	issued := decode(t, rec)
	path := issued["path"].(string)
	token := issued["token"].(string)
	assert.Equal(t, "/pay/"+token, path)

	rec = f.do(t, http.MethodGet, path, nil, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "150.00", body["amount"])
	assert.Equal(t, "res-42", body["resourceId"])

	rec = f.do(t, http.MethodGet, "/check-in/guest/"+token, nil, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, path, nil, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, path, nil, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	used := rec.Body.String()

	rec = f.do(t, http.MethodGet, "/pay/unknown-token", nil, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, used, rec.Body.String())
}

func TestGuestCheckInIssueNeedsPermission(t *testing.T) {
	f := newFixture(t, nil, nil)
	hk := f.session(t, permission.RoleHousekeeping)
	rec := f.do(t, http.MethodPost, "/api/admin/guest-tokens/check-in", map[string]any{
		"reservationId": "res-1", "guestName": "Ada",
	}, hk, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	reception := f.session(t, permission.RoleReception)
	rec = f.do(t, http.MethodPost, "/api/admin/guest-tokens/check-in", map[string]any{
		"reservationId": "res-1", "guestName": "Ada", "roomNumber": "101",
	}, reception, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, decode(t, rec)["path"].(string), nil, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ada", decode(t, rec)["checkIn"].(map[string]any)["guestName"])
}

func TestInternalGate(t *testing.T) {
	f := newFixture(t, func(c *pmsGuard.Config) { c.Internal.Secret = "internal-secret-0123456789" }, nil)

	rec := f.do(t, http.MethodGet, "/api/internal/auth-disabled", nil, nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/internal/auth-disabled", nil, nil, http.Header{"X-Internal-Secret": {"wrong"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/internal/auth-disabled", nil, nil, http.Header{"X-Internal-Secret": {"internal-secret-0123456789"}})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/internal/permissions/invalidate", map[string][]string{"roles": {"MANAGER"}}, nil,
		http.Header{"X-Internal-Secret": {"internal-secret-0123456789"}})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestInternalGateClosedWithoutSecret(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec := f.do(t, http.MethodGet, "/api/internal/auth-disabled", nil, nil, http.Header{"X-Internal-Secret": {""}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestExternalGate(t *testing.T) {
	open := newFixture(t, nil, nil)
	rec := open.do(t, http.MethodGet, "/api/v1/external/ping", nil, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var mounted bool
	f := newFixture(t, func(c *pmsGuard.Config) { c.External.Key = "ext-key-1" }, func(d *httpapi.Deps) {
		d.External = func(r chi.Router) {
			r.Get("/occupied-rooms", func(w http.ResponseWriter, _ *http.Request) {
				mounted = true
				w.WriteHeader(http.StatusOK)
			})
		}
	})

	rec = f.do(t, http.MethodGet, "/api/v1/external/occupied-rooms", nil, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, mounted)

	rec = f.do(t, http.MethodGet, "/api/v1/external/occupied-rooms", nil, nil, http.Header{"Authorization": {"Bearer ext-key-1"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, mounted)

	rec = f.do(t, http.MethodGet, "/api/v1/external/ping", nil, nil, http.Header{"X-API-Key": {"ext-key-1"}, "Authorization": {"Bearer wrong"}})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStaffGoogle(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec := f.do(t, http.MethodGet, "/api/auth/staff/google", nil, nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	f = newFixture(t, func(c *pmsGuard.Config) {
		c.IdentityProvider.ClientID = "client-1"
		c.IdentityProvider.RedirectBase = "https://pms.hotel.test/"
	}, nil)
	rec = f.do(t, http.MethodGet, "/api/auth/staff/google", nil, nil, nil)
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "client-1", loc.Query().Get("client_id"))
	assert.Equal(t, "https://pms.hotel.test/api/auth/staff/google/callback", loc.Query().Get("redirect_uri"))

	var state string
	for _, c := range rec.Result().Cookies() {
		if c.Name == httpapi.StateCookieName {
			state = c.Value
		}
	}
	assert.NotEmpty(t, state)
	assert.Equal(t, state, loc.Query().Get("state"))
}

func TestMetricsMountedWhenProvided(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec := f.do(t, http.MethodGet, "/metrics", nil, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f = newFixture(t, nil, func(d *httpapi.Deps) {
		d.Metrics = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("pmsguard_login_success_total 0\n"))
		})
	})
	rec = f.do(t, http.MethodGet, "/metrics", nil, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pmsguard_login_success_total")
}
