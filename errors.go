package pmsGuard

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means no valid session or principal backs the request.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means the caller is known but may not perform the action,
	// or presented the wrong internal shared secret.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized means the external API key is missing or invalid.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is the single answer for every guest token that cannot be acted on.
	ErrNotFound = errors.New("not found")
	// ErrTooManyRequests means a request budget is exhausted.
	ErrTooManyRequests = errors.New("too many requests")
	// ErrConfiguration means a required setting is absent and a whole feature is unusable.
	ErrConfiguration = errors.New("configuration error")
	// ErrStoreUnavailable wraps failures of the external store.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrStateConflict is returned by stores when a conditional transition finds
	// the record in an unexpected state.
	ErrStateConflict = errors.New("state conflict")
	// ErrEngineNotReady is returned by methods on a nil or partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInvalidCredentials is the uniform login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginRateLimited means the identifier exhausted its failure budget.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrTOTPRequired means the principal has a second factor and no code was given.
	ErrTOTPRequired = errors.New("totp required")
	// ErrTOTPInvalid means a submitted second-factor code did not verify.
	ErrTOTPInvalid = errors.New("invalid totp code")
	// ErrTOTPNotEnrolled means the principal has no active second factor.
	ErrTOTPNotEnrolled = errors.New("totp not enrolled")
)

// storeErr wraps an unexpected store failure in ErrStoreUnavailable. Errors
// that already carry a sentinel pass through.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrStateConflict) || errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
