package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// guestTokenSize matches the links already printed on guest documents.
const guestTokenSize = 16

// TokenID is the raw form of a guest link token.
type TokenID [guestTokenSize]byte

// NewTokenID reads a token from crypto/rand.
func NewTokenID() (TokenID, error) {
	var id TokenID
	_, err := rand.Read(id[:])
	return id, err
}

func (t TokenID) String() string {
	// base64url, no padding, safe in a URL path segment
	return base64.RawURLEncoding.EncodeToString(t[:])
}

// ParseTokenID decodes a token produced by [TokenID.String].
func ParseTokenID(s string) (TokenID, error) {
	var id TokenID

	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(raw) != len(id) {
		return id, errors.New("invalid token size")
	}

	copy(id[:], raw)
	return id, nil
}

// NewGuestToken returns a fresh encoded guest link token.
func NewGuestToken() (string, error) {
	id, err := NewTokenID()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
