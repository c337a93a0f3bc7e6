package pmsGuard

import (
	"net/http"
	"time"
)

// Reason classifies a rejected gate decision.
type Reason uint8

const (
	// ReasonNone accompanies a Continue decision.
	ReasonNone Reason = iota
	ReasonUnauthenticated
	ReasonUnauthorized
	ReasonForbidden
	ReasonNotFound
	ReasonTooManyRequests
)

// String returns the stable wire code of r.
func (r Reason) String() string {
	switch r {
	case ReasonUnauthenticated:
		return "unauthenticated"
	case ReasonUnauthorized:
		return "unauthorized"
	case ReasonForbidden:
		return "forbidden"
	case ReasonNotFound:
		return "not_found"
	case ReasonTooManyRequests:
		return "too_many_requests"
	default:
		return "ok"
	}
}

// Status maps r to an HTTP status code.
func (r Reason) Status() int {
	switch r {
	case ReasonUnauthenticated, ReasonUnauthorized:
		return http.StatusUnauthorized
	case ReasonForbidden:
		return http.StatusForbidden
	case ReasonNotFound:
		return http.StatusNotFound
	case ReasonTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusOK
	}
}

// Err maps r to its sentinel error, or nil for ReasonNone.
func (r Reason) Err() error {
	switch r {
	case ReasonUnauthenticated:
		return ErrUnauthenticated
	case ReasonUnauthorized:
		return ErrUnauthorized
	case ReasonForbidden:
		return ErrForbidden
	case ReasonNotFound:
		return ErrNotFound
	case ReasonTooManyRequests:
		return ErrTooManyRequests
	default:
		return nil
	}
}

// Decision is the outcome of a gate: either Continue, or Reject with a
// categorical reason and a caller-safe message.
type Decision struct {
	reason     Reason
	message    string
	retryAfter time.Duration
}

// Continue lets the request through.
func Continue() Decision {
	return Decision{}
}

// Reject stops the request.
func Reject(reason Reason, message string) Decision {
	if reason == ReasonNone {
		reason = ReasonForbidden
	}
	if message == "" {
		message = http.StatusText(reason.Status())
	}
	return Decision{reason: reason, message: message}
}

// RejectRetryAfter stops the request and tells the caller when to retry.
func RejectRetryAfter(message string, retryAfter time.Duration) Decision {
	d := Reject(ReasonTooManyRequests, message)
	d.retryAfter = retryAfter
	return d
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool { return d.reason == ReasonNone }

// Reason returns the rejection category, ReasonNone for Continue.
func (d Decision) Reason() Reason { return d.reason }

// Message returns the caller-safe rejection message.
func (d Decision) Message() string { return d.message }

// RetryAfter is set on TooManyRequests rejections.
func (d Decision) RetryAfter() time.Duration { return d.retryAfter }

// Status maps the decision to an HTTP status code.
func (d Decision) Status() int { return d.reason.Status() }

// Err returns nil for Continue and the matching sentinel otherwise.
func (d Decision) Err() error { return d.reason.Err() }
