package pmsGuard

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	internalaudit "github.com/MrEthical07/pmsGuard/internal/audit"
	"github.com/MrEthical07/pmsGuard/permission"
	"go.uber.org/zap"
)

// Principal is the authenticated staff member behind a session.
type Principal struct {
	ID       string
	Email    string
	Name     string
	Role     string
	IsActive bool
}

// PrincipalRecord is a Principal plus the credential material the login and
// TOTP flows need. It never leaves the Engine.
type PrincipalRecord struct {
	Principal
	PasswordHash string
	TOTPEnabled  bool
	TOTPSecret   string
}

// PrincipalStore reads principals from the identity store. Unknown ids and
// emails return ErrNotFound.
type PrincipalStore interface {
	GetPrincipal(ctx context.Context, id string) (PrincipalRecord, error)
	GetPrincipalByEmail(ctx context.Context, email string) (PrincipalRecord, error)
}

// TOTPStore persists the one active second-factor secret per principal.
// Saving a new secret replaces the previous one.
type TOTPStore interface {
	SaveTOTPSecret(ctx context.Context, principalID, secret string) error
	ClearTOTPSecret(ctx context.Context, principalID string) error
}

// SettingsStore holds the persisted source of truth for the auth-disabled flag.
type SettingsStore interface {
	AuthDisabled(ctx context.Context) (bool, error)
	SetAuthDisabled(ctx context.Context, disabled bool) error
}

// GuestTokenStore owns guest tokens and their resource state.
//
// TransitionGuestToken must check the current state and write the new one
// atomically. When the record is absent it returns ErrNotFound; when the
// record is not in state from it returns ErrStateConflict.
type GuestTokenStore interface {
	GetGuestToken(ctx context.Context, token string) (GuestToken, error)
	CreateGuestToken(ctx context.Context, token GuestToken) error
	TransitionGuestToken(ctx context.Context, token string, from, to GuestTokenState) (GuestToken, error)
}

// Store is the full persistence collaborator.
type Store interface {
	PrincipalStore
	TOTPStore
	SettingsStore
	GuestTokenStore
	permission.Source
	Ping(ctx context.Context) error
}

// GuestResourceType names the action a guest token grants.
type GuestResourceType string

const (
	GuestCheckIn GuestResourceType = "check_in"
	GuestPayment GuestResourceType = "payment"
)

// Valid reports whether t is a known resource type.
func (t GuestResourceType) Valid() bool {
	return t == GuestCheckIn || t == GuestPayment
}

// GuestTokenState is the resource lifecycle. Pending is the only state that
// can be acted on; Completed and Expired are terminal.
type GuestTokenState string

const (
	GuestPending   GuestTokenState = "pending"
	GuestCompleted GuestTokenState = "completed"
	GuestExpired   GuestTokenState = "expired"
)

// Terminal reports whether s can no longer change.
func (s GuestTokenState) Terminal() bool {
	return s == GuestCompleted || s == GuestExpired
}

// GuestToken is the stored record behind a guest link.
type GuestToken struct {
	Token      string
	Type       GuestResourceType
	ResourceID string
	State      GuestTokenState
	// ExpiresAt is the validity window. Zero means no window.
	ExpiresAt time.Time
	CreatedAt time.Time
	CheckIn   *CheckInView
	Payment   *PaymentView
}

// CheckInView is the projection shown on the guest check-in page.
type CheckInView struct {
	GuestName  string    `json:"guestName"`
	CheckIn    time.Time `json:"checkIn"`
	CheckOut   time.Time `json:"checkOut"`
	RoomNumber string    `json:"roomNumber"`
}

// PaymentView is the projection shown on the guest payment page.
type PaymentView struct {
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency"`
}

// Amount formats AmountCents with two decimals, e.g. "150.00".
func (p PaymentView) Amount() string {
	sign := ""
	cents := p.AmountCents
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	frac := strconv.FormatInt(cents%100, 10)
	if len(frac) == 1 {
		frac = "0" + frac
	}
	return sign + strconv.FormatInt(cents/100, 10) + "." + frac
}

// GuestResource is what a resolved guest token exposes. Exactly one of
// CheckIn and Payment is set, matching Type.
type GuestResource struct {
	Type       GuestResourceType `json:"type"`
	ResourceID string            `json:"resourceId"`
	CheckIn    *CheckInView      `json:"checkIn,omitempty"`
	Payment    *PaymentView      `json:"payment,omitempty"`
}

// LoginResult is returned by a successful [Engine.Login].
type LoginResult struct {
	Principal Principal
	Cookie    *http.Cookie
	// NewPasswordHash is set when the stored hash used weaker parameters
	// or bcrypt. Callers should persist it.
	NewPasswordHash string
}

// TOTPEnrollment is the material shown to a principal while enrolling.
type TOTPEnrollment struct {
	Secret string
	URI    string
}

// HealthReport summarizes the Engine's collaborators.
type HealthReport struct {
	Status       string `json:"status"`
	Store        string `json:"store,omitempty"`
	AuthDisabled bool   `json:"authDisabled"`
}

// AuditEvent is one security-relevant decision or state change.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the Engine's dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink discards events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink forwards events to a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per event.
type JSONWriterSink = internalaudit.JSONWriterSink

// ZapSink logs events through a zap logger.
type ZapSink = internalaudit.ZapSink

// NewChannelSink creates a [ChannelSink] with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewZapSink creates a [ZapSink].
func NewZapSink(l *zap.Logger) *ZapSink {
	return internalaudit.NewZapSink(l)
}
