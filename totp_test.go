package pmsGuard

import (
	"encoding/base32"
	"net/url"
	"strings"
	"testing"
	"time"
)

func b32(raw string) string {
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(raw))
}

func TestTOTPVerifyRFCVectors(t *testing.T) {
	cases := []struct {
		algorithm string
		secret    string
		ts        int64
		code      string
	}{
		{"SHA1", "12345678901234567890", 59, "94287082"},
		{"SHA1", "12345678901234567890", 1111111109, "07081804"},
		{"SHA1", "12345678901234567890", 1234567890, "89005924"},
		{"SHA1", "12345678901234567890", 20000000000, "65353130"},
		{"SHA256", "12345678901234567890123456789012", 59, "46119246"},
		{"SHA256", "12345678901234567890123456789012", 1111111111, "67062674"},
		{"SHA256", "12345678901234567890123456789012", 2000000000, "90698825"},
		{"SHA512", "1234567890123456789012345678901234567890123456789012345678901234", 59, "90693936"},
		{"SHA512", "1234567890123456789012345678901234567890123456789012345678901234", 1234567890, "93441116"},
	}

	for _, tc := range cases {
		m := newTOTPManager(TOTPConfig{Issuer: "PMS", Digits: 8, Period: 30, Algorithm: tc.algorithm, Skew: 0})
		if !m.Verify(b32(tc.secret), tc.code, time.Unix(tc.ts, 0)) {
			t.Fatalf("%s vector failed at t=%d", tc.algorithm, tc.ts)
		}
	}
}

func TestTOTPGeneratedSecretShape(t *testing.T) {
	m := newTOTPManager(TOTPConfig{Issuer: "PMS", Digits: 6, Period: 30, Skew: 1})
	seen := make(map[string]struct{})
	for i := 0; i < 64; i++ {
		s, err := m.GenerateSecret()
		if err != nil {
			t.Fatalf("GenerateSecret: %v", err)
		}
		if len(s) != 32 {
			t.Fatalf("expected 32 characters, got %d", len(s))
		}
		if strings.Trim(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567") != "" {
			t.Fatalf("secret %q is not base32", s)
		}
		if _, dup := seen[s]; dup {
			t.Fatalf("duplicate secret %q", s)
		}
		seen[s] = struct{}{}
	}
}

func TestTOTPSkewWindow(t *testing.T) {
	m := newTOTPManager(TOTPConfig{Issuer: "PMS", Digits: 6, Period: 30, Algorithm: "SHA1", Skew: 1})
	secret, err := m.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	raw, _ := decodeTOTPSecret(secret)
	now := time.Unix(1_700_000_010, 0)
	base := now.Unix() / 30

	codeAt := func(counter int64) string {
		c, err := hotpCode(raw, counter, 6, "SHA1")
		if err != nil {
			t.Fatalf("hotpCode: %v", err)
		}
		return c
	}

	for _, step := range []int64{-1, 0, 1} {
		if !m.Verify(secret, codeAt(base+step), now) {
			t.Fatalf("step %d must verify", step)
		}
	}
	// Codes that collide with the window by chance would make this flaky.
	window := map[string]bool{codeAt(base - 1): true, codeAt(base): true, codeAt(base + 1): true}
	for _, step := range []int64{-3, 3, 10} {
		c := codeAt(base + step)
		if window[c] {
			continue
		}
		if m.Verify(secret, c, now) {
			t.Fatalf("step %d must not verify", step)
		}
	}
}

func TestTOTPSkewZeroOnlyCurrentStep(t *testing.T) {
	m := newTOTPManager(TOTPConfig{Issuer: "PMS", Digits: 6, Period: 30, Algorithm: "SHA1", Skew: 0})
	raw := []byte("12345678901234567890")
	now := time.Unix(1_700_000_010, 0)
	base := now.Unix() / 30
	prev, _ := hotpCode(raw, base-1, 6, "SHA1")
	cur, _ := hotpCode(raw, base, 6, "SHA1")

	if !m.Verify(b32(string(raw)), cur, now) {
		t.Fatalf("current step must verify")
	}
	if prev != cur && m.Verify(b32(string(raw)), prev, now) {
		t.Fatalf("previous step must not verify with skew 0")
	}
}

func TestTOTPMalformedInputIsFalse(t *testing.T) {
	m := newTOTPManager(TOTPConfig{Issuer: "PMS", Digits: 6, Period: 30, Algorithm: "SHA1", Skew: 1})
	secret := b32("12345678901234567890")
	now := time.Unix(1_700_000_010, 0)
	code, _ := hotpCode([]byte("12345678901234567890"), now.Unix()/30, 6, "SHA1")

	cases := map[string]struct {
		secret string
		token  string
	}{
		"letters":        {secret, "12a456"},
		"too short":      {secret, "12345"},
		"too long":       {secret, "1234567"},
		"empty":          {secret, ""},
		"inner space":    {secret, code[:3] + " " + code[3:]},
		"empty secret":   {"", code},
		"invalid secret": {"not-base32!!", code},
		"unicode digits": {secret, "١٢٣٤٥٦"},
	}
	for name, tc := range cases {
		if m.Verify(tc.secret, tc.token, now) {
			t.Fatalf("%s: expected false", name)
		}
	}

	if !m.Verify(secret, "  "+code+"\n", now) {
		t.Fatalf("surrounding whitespace must be trimmed")
	}
	lower := strings.ToLower(secret[:8]) + " " + secret[8:] + "===="
	if !m.Verify(lower, code, now) {
		t.Fatalf("secret decoding must ignore case, spaces and padding")
	}

	var nilManager *totpManager
	if nilManager.Verify(secret, code, now) {
		t.Fatalf("nil manager must not verify")
	}
}

func TestTOTPProvisionURI(t *testing.T) {
	m := newTOTPManager(TOTPConfig{Issuer: "PMS Hotel", Digits: 6, Period: 30, Algorithm: "SHA1", Skew: 1})
	uri := m.ProvisionURI("anna@hotel.test", "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP")

	u, err := url.Parse(uri)
	if err != nil {
		t.Fatalf("parse uri: %v", err)
	}
	if u.Scheme != "otpauth" || u.Host != "totp" {
		t.Fatalf("unexpected uri prefix: %s", uri)
	}
	if u.Path != "/PMS Hotel:anna@hotel.test" {
		t.Fatalf("unexpected label %q", u.Path)
	}
	q := u.Query()
	want := map[string]string{
		"secret":    "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP",
		"issuer":    "PMS Hotel",
		"algorithm": "SHA1",
		"digits":    "6",
		"period":    "30",
	}
	for k, v := range want {
		if q.Get(k) != v {
			t.Fatalf("%s: expected %q, got %q", k, v, q.Get(k))
		}
	}
	if m.ProvisionURI("anna@hotel.test", "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP") != uri {
		t.Fatalf("uri must be deterministic")
	}
}

func TestTOTPToolingHelpers(t *testing.T) {
	tool := NewTOTP(TOTPConfig{Issuer: "Hotel PMS", Skew: 1})
	secret, err := tool.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	if len(secret) != 32 {
		t.Fatalf("secret length = %d", len(secret))
	}

	now := time.Unix(1_700_000_000, 0)
	code, err := tool.Code(secret, now)
	if err != nil {
		t.Fatalf("Code: %v", err)
	}
	if !tool.Verify(secret, code, now.Add(30*time.Second)) {
		t.Fatal("code from the previous step should verify with skew 1")
	}
	if tool.Verify(secret, code, now.Add(90*time.Second)) {
		t.Fatal("code two steps old must not verify")
	}
	if !strings.HasPrefix(tool.URI("desk@hotel.test", secret), "otpauth://totp/Hotel%20PMS:desk@hotel.test?") {
		t.Fatalf("uri = %s", tool.URI("desk@hotel.test", secret))
	}
	if _, err := tool.Code("!!", now); err == nil {
		t.Fatal("expected error for malformed secret")
	}
}
