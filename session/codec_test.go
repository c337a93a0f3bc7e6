package session

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/MrEthical07/pmsGuard/jwt"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	m, err := jwt.NewManager(jwt.Config{
		TTL:           7 * 24 * time.Hour,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
	})
	if err != nil {
		t.Fatalf("jwt manager: %v", err)
	}
	c, err := NewCodec(m, Config{CookieName: "pms_session", ActivityCookieName: "pms_last_activity", IdleTimeout: 30 * time.Minute})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return c
}

func TestIssueAndReference(t *testing.T) {
	c := newTestCodec(t)
	cookie, err := c.Issue("user-7", time.Now())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if cookie.Name != "pms_session" || !cookie.HttpOnly {
		t.Fatalf("unexpected cookie %+v", cookie)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookie)
	id, ok := c.Reference(r)
	if !ok || id != "user-7" {
		t.Fatalf("expected user-7, got %q ok=%v", id, ok)
	}
}

func TestReferenceRejectsMissingAndInvalidCookies(t *testing.T) {
	c := newTestCodec(t)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := c.Reference(r); ok {
		t.Fatal("expected no reference without cookie")
	}

	r.AddCookie(&http.Cookie{Name: "pms_session", Value: "garbage"})
	if _, ok := c.Reference(r); ok {
		t.Fatal("expected invalid token to be rejected")
	}
}

func TestIdleTimeout(t *testing.T) {
	c := newTestCodec(t)
	now := time.Now()

	fresh := httptest.NewRequest(http.MethodGet, "/", nil)
	if c.Idle(fresh, now) {
		t.Fatal("missing activity cookie must not count as idle")
	}

	recent := httptest.NewRequest(http.MethodGet, "/", nil)
	recent.AddCookie(c.Touch(now.Add(-10 * time.Minute)))
	if c.Idle(recent, now) {
		t.Fatal("10 minutes of inactivity must not be idle")
	}

	stale := httptest.NewRequest(http.MethodGet, "/", nil)
	stale.AddCookie(&http.Cookie{Name: "pms_last_activity", Value: strconv.FormatInt(now.Add(-31*time.Minute).UnixMilli(), 10)})
	if !c.Idle(stale, now) {
		t.Fatal("31 minutes of inactivity must be idle")
	}
}

func TestClearExpiresBothCookies(t *testing.T) {
	c := newTestCodec(t)
	cookies := c.Clear()
	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(cookies))
	}
	for _, ck := range cookies {
		if ck.MaxAge >= 0 {
			t.Fatalf("cookie %s not expired", ck.Name)
		}
	}
}
