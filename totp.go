package pmsGuard

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// 20 bytes encode to exactly 32 unpadded base32 characters.
const totpSecretBytes = 20

var totpEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

type totpManager struct {
	config TOTPConfig
	now    func() time.Time
}

func newTOTPManager(cfg TOTPConfig) *totpManager {
	if cfg.Algorithm == "" {
		cfg.Algorithm = "SHA1"
	}
	if cfg.Digits == 0 {
		cfg.Digits = 6
	}
	if cfg.Period == 0 {
		cfg.Period = 30
	}
	return &totpManager{config: cfg, now: time.Now}
}

func (m *totpManager) GenerateSecret() (string, error) {
	if m == nil {
		return "", ErrEngineNotReady
	}
	raw := make([]byte, totpSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return totpEncoding.EncodeToString(raw), nil
}

func (m *totpManager) ProvisionURI(account, secretBase32 string) string {
	issuer := m.config.Issuer
	label := url.PathEscape(issuer + ":" + account)

	v := url.Values{}
	v.Set("secret", secretBase32)
	v.Set("issuer", issuer)
	v.Set("algorithm", strings.ToUpper(m.config.Algorithm))
	v.Set("digits", strconv.Itoa(m.config.Digits))
	v.Set("period", strconv.Itoa(m.config.Period))

	return "otpauth://totp/" + label + "?" + v.Encode()
}

// Verify never returns an error: malformed secrets and codes are simply
// not valid.
func (m *totpManager) Verify(secretBase32, code string, now time.Time) bool {
	if m == nil {
		return false
	}

	trimmed := strings.TrimSpace(code)
	if len(trimmed) != m.config.Digits || !isNumericString(trimmed) {
		return false
	}

	secret, err := decodeTOTPSecret(secretBase32)
	if err != nil || len(secret) == 0 {
		return false
	}

	skew := m.config.Skew
	if skew > 1 {
		skew = 1
	}

	baseCounter := now.Unix() / int64(m.config.Period)
	matched := 0
	for step := -skew; step <= skew; step++ {
		counter := baseCounter + int64(step)
		if counter < 0 {
			continue
		}
		generated, err := hotpCode(secret, counter, m.config.Digits, m.config.Algorithm)
		if err != nil {
			return false
		}
		matched |= subtle.ConstantTimeCompare([]byte(generated), []byte(trimmed))
	}

	return matched == 1
}

func decodeTOTPSecret(s string) ([]byte, error) {
	cleaned := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	cleaned = strings.TrimRight(cleaned, "=")
	if cleaned == "" {
		return nil, errors.New("empty totp secret")
	}
	return totpEncoding.DecodeString(cleaned)
}

func isNumericString(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func hotpCode(secret []byte, counter int64, digits int, algorithm string) (string, error) {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	hf, err := hmacFunc(algorithm)
	if err != nil {
		return "", err
	}
	mac := hmac.New(hf, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	code := bin % mod
	return fmt.Sprintf("%0*d", digits, code), nil
}

func hmacFunc(algorithm string) (func() hash.Hash, error) {
	switch strings.ToUpper(algorithm) {
	case "", "SHA1":
		return sha1.New, nil
	case "SHA256":
		return sha256.New, nil
	case "SHA512":
		return sha512.New, nil
	default:
		return nil, errors.New("unsupported totp algorithm")
	}
}

// TOTP gives tooling the second-factor primitives without building an
// Engine. It uses the same defaults and skew rules.
type TOTP struct {
	m *totpManager
}

// NewTOTP returns TOTP helpers for cfg.
func NewTOTP(cfg TOTPConfig) TOTP {
	return TOTP{m: newTOTPManager(cfg)}
}

// GenerateSecret returns a fresh base32 secret.
func (t TOTP) GenerateSecret() (string, error) { return t.m.GenerateSecret() }

// URI returns the otpauth:// provisioning URI for account.
func (t TOTP) URI(account, secret string) string { return t.m.ProvisionURI(account, secret) }

// Verify checks code against secret at now.
func (t TOTP) Verify(secret, code string, now time.Time) bool { return t.m.Verify(secret, code, now) }

// Code returns the code for secret at the time step containing at.
func (t TOTP) Code(secret string, at time.Time) (string, error) {
	raw, err := decodeTOTPSecret(secret)
	if err != nil {
		return "", fmt.Errorf("decode totp secret: %w", err)
	}
	return hotpCode(raw, at.Unix()/int64(t.m.config.Period), t.m.config.Digits, t.m.config.Algorithm)
}
