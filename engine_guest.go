package pmsGuard

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/pmsGuard/internal"
	"go.uber.org/zap"
)

// ResolveGuestToken returns the minimal projection of the resource behind a
// guest token. Every failure, including store errors, is ErrNotFound so a
// caller cannot tell an unknown token from a used or expired one. Malformed
// tokens are rejected without a store lookup.
//
// Resolving is not always read-only: a pending token found past its expiry
// is moved to GuestExpired in the store before NotFound is returned.
//
// No session or permission check happens here.
func (e *Engine) ResolveGuestToken(ctx context.Context, token string, typ GuestResourceType) (GuestResource, error) {
	if e == nil || e.guests == nil {
		return GuestResource{}, ErrNotFound
	}
	token = strings.TrimSpace(token)
	if token == "" || !typ.Valid() {
		return e.guestNotFound()
	}
	if _, err := internal.ParseTokenID(token); err != nil {
		return e.guestNotFound()
	}

	rec, err := e.guests.GetGuestToken(ctx, token)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			e.metricInc(MetricStoreFailure)
			e.logger.Warn("guest token lookup failed", zap.Error(err))
		}
		return e.guestNotFound()
	}
	if rec.Type != typ || rec.State != GuestPending {
		return e.guestNotFound()
	}
	if e.guestExpired(rec) {
		e.expireGuestToken(ctx, token)
		return e.guestNotFound()
	}

	res, ok := projectGuest(rec)
	if !ok {
		return e.guestNotFound()
	}
	e.metricInc(MetricGuestResolved)
	return res, nil
}

// RedeemGuestToken moves a pending token to Completed and returns the
// projection it had. The state is re-checked by the store's atomic
// transition, so of two concurrent redemptions only one succeeds; the other
// gets ErrNotFound. A token whose expiry passed before the transition landed
// is moved on to GuestExpired and also gets ErrNotFound.
func (e *Engine) RedeemGuestToken(ctx context.Context, token string, typ GuestResourceType) (GuestResource, error) {
	if _, err := e.ResolveGuestToken(ctx, token, typ); err != nil {
		return GuestResource{}, err
	}
	token = strings.TrimSpace(token)

	rec, err := e.guests.TransitionGuestToken(ctx, token, GuestPending, GuestCompleted)
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrStateConflict) {
			e.metricInc(MetricStoreFailure)
			e.logger.Warn("guest token redemption failed", zap.Error(err))
		}
		e.emitAudit(ctx, auditEventGuestRejected, false, boundaryGuest, "", ErrNotFound, nil)
		return e.guestNotFound()
	}
	if e.guestExpired(rec) {
		if _, err := e.guests.TransitionGuestToken(ctx, token, GuestCompleted, GuestExpired); err != nil {
			e.logger.Warn("late guest token expiry failed", zap.Error(err))
		} else {
			e.metricInc(MetricGuestExpired)
		}
		e.emitAudit(ctx, auditEventGuestRejected, false, boundaryGuest, "", ErrNotFound, nil)
		return e.guestNotFound()
	}

	res, ok := projectGuest(rec)
	if !ok {
		return e.guestNotFound()
	}

	e.metricInc(MetricGuestRedeemed)
	e.emitAudit(ctx, auditEventGuestRedeemed, true, boundaryGuest, "", nil, func() map[string]string {
		return map[string]string{"type": string(rec.Type), "resource_id": rec.ResourceID}
	})
	return res, nil
}

// IssueGuestToken stores a new pending token for a resource and returns its
// value. The token is 16 random bytes, base64url encoded, and expires after
// Config.Guest.TTL.
func (e *Engine) IssueGuestToken(ctx context.Context, typ GuestResourceType, resourceID string, checkIn *CheckInView, payment *PaymentView) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	if e.guests == nil {
		return "", ErrConfiguration
	}
	if !typ.Valid() || resourceID == "" {
		return "", errors.New("guest token requires a resource type and id")
	}
	if (typ == GuestCheckIn && checkIn == nil) || (typ == GuestPayment && payment == nil) {
		return "", errors.New("guest token projection does not match its type")
	}

	token, err := internal.NewGuestToken()
	if err != nil {
		return "", err
	}
	now := e.clock()
	rec := GuestToken{
		Token:      token,
		Type:       typ,
		ResourceID: resourceID,
		State:      GuestPending,
		CreatedAt:  now,
		ExpiresAt:  now.Add(e.config.Guest.TTL),
	}
	if typ == GuestCheckIn {
		v := *checkIn
		rec.CheckIn = &v
	} else {
		v := *payment
		rec.Payment = &v
	}

	if err := e.guests.CreateGuestToken(ctx, rec); err != nil {
		e.metricInc(MetricStoreFailure)
		return "", storeErr(err)
	}
	return token, nil
}

func (e *Engine) guestExpired(rec GuestToken) bool {
	return !rec.ExpiresAt.IsZero() && !e.clock().Before(rec.ExpiresAt)
}

func (e *Engine) expireGuestToken(ctx context.Context, token string) {
	if _, err := e.guests.TransitionGuestToken(ctx, token, GuestPending, GuestExpired); err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrStateConflict) {
			e.logger.Warn("guest token expiry failed", zap.Error(err))
		}
		return
	}
	e.metricInc(MetricGuestExpired)
}

func (e *Engine) guestNotFound() (GuestResource, error) {
	e.metricInc(MetricGuestNotFound)
	return GuestResource{}, ErrNotFound
}

func projectGuest(rec GuestToken) (GuestResource, bool) {
	res := GuestResource{Type: rec.Type, ResourceID: rec.ResourceID}
	switch rec.Type {
	case GuestCheckIn:
		if rec.CheckIn == nil {
			return GuestResource{}, false
		}
		v := *rec.CheckIn
		res.CheckIn = &v
	case GuestPayment:
		if rec.Payment == nil {
			return GuestResource{}, false
		}
		v := *rec.Payment
		res.Payment = &v
	default:
		return GuestResource{}, false
	}
	return res, true
}
