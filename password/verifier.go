package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrUnsupportedHash is returned for stored hashes in an unknown format.
var ErrUnsupportedHash = errors.New("unsupported password hash format")

// Verifier checks passwords against Argon2id or bcrypt hashes.
type Verifier struct {
	argon *Argon2
	dummy string
}

// NewVerifier returns a verifier whose new hashes use cfg.
func NewVerifier(cfg Config) (*Verifier, error) {
	a, err := NewArgon2(cfg)
	if err != nil {
		return nil, err
	}
	dummy, err := a.Hash("pmsguard-dummy-password")
	if err != nil {
		return nil, err
	}
	return &Verifier{argon: a, dummy: dummy}, nil
}

// Hash hashes password with the configured Argon2id parameters.
func (v *Verifier) Hash(password string) (string, error) {
	return v.argon.Hash(password)
}

// Verify reports whether password matches encoded, and whether encoded
// should be replaced by a fresh Argon2id hash after a successful login.
func (v *Verifier) Verify(password, encoded string) (ok bool, rehash bool, err error) {
	switch {
	case strings.HasPrefix(encoded, argon2Prefix):
		ok, err = v.argon.Verify(password, encoded)
		if err != nil || !ok {
			return false, false, err
		}
		return true, v.argon.weaker(encoded), nil
	case isBcrypt(encoded):
		err = bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, false, nil
		}
		if err != nil {
			return false, false, err
		}
		return true, true, nil
	default:
		return false, false, ErrUnsupportedHash
	}
}

// Burn spends the same effort as a real verification. Login calls it for
// unknown identifiers so response timing does not reveal which emails exist.
func (v *Verifier) Burn(password string) {
	_, _ = v.argon.Verify(password, v.dummy)
}

func isBcrypt(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}
