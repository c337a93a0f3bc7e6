// Package secret compares shared secrets and API keys without leaking where
// or whether the inputs differ through timing.
package secret

import (
	"crypto/sha256"
	"crypto/subtle"
)

// Equal reports whether provided matches expected.
//
// Both values are hashed to fixed-size digests before the constant-time
// comparison, so neither the position of the first differing byte nor a
// length mismatch changes the amount of work done.
func Equal(provided, expected string) bool {
	p := sha256.Sum256([]byte(provided))
	e := sha256.Sum256([]byte(expected))
	return subtle.ConstantTimeCompare(p[:], e[:]) == 1
}

// Configured reports whether a secret value is usable for comparison.
func Configured(value string) bool {
	return value != ""
}
