package pmsGuard

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestDecisionStatusMapping(t *testing.T) {
	tests := []struct {
		reason Reason
		status int
		err    error
	}{
		{ReasonUnauthenticated, http.StatusUnauthorized, ErrUnauthenticated},
		{ReasonUnauthorized, http.StatusUnauthorized, ErrUnauthorized},
		{ReasonForbidden, http.StatusForbidden, ErrForbidden},
		{ReasonNotFound, http.StatusNotFound, ErrNotFound},
		{ReasonTooManyRequests, http.StatusTooManyRequests, ErrTooManyRequests},
	}
	for _, tc := range tests {
		d := Reject(tc.reason, "nope")
		if d.Allowed() || d.Status() != tc.status || !errors.Is(d.Err(), tc.err) {
			t.Fatalf("%s: got status %d err %v", tc.reason, d.Status(), d.Err())
		}
		if d.Message() != "nope" {
			t.Fatalf("%s: message %q", tc.reason, d.Message())
		}
	}
}

func TestDecisionContinue(t *testing.T) {
	d := Continue()
	if !d.Allowed() || d.Reason() != ReasonNone || d.Err() != nil {
		t.Fatalf("unexpected %+v", d)
	}
}

func TestRejectRetryAfter(t *testing.T) {
	d := RejectRetryAfter("slow down", 3*time.Second)
	if d.Reason() != ReasonTooManyRequests || d.RetryAfter() != 3*time.Second {
		t.Fatalf("unexpected %+v", d)
	}
}

func TestRejectDefaults(t *testing.T) {
	d := Reject(ReasonNone, "")
	if d.Reason() != ReasonForbidden || d.Message() != "Forbidden" {
		t.Fatalf("unexpected %q %q", d.Reason(), d.Message())
	}
}
