// Package redisstore keeps guest tokens and the auth-disabled setting in
// Redis. It implements [pmsGuard.GuestTokenStore] and
// [pmsGuard.SettingsStore]; principals and permissions stay in the SQL
// store.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	pmsGuard "github.com/MrEthical07/pmsGuard"
	"github.com/redis/go-redis/v9"
)

// DefaultRetention is how long a token record outlives its ExpiresAt.
const DefaultRetention = 7 * 24 * time.Hour

// transitionScript moves KEYS[1] from state ARGV[1] to ARGV[2].
// Returns 1 on success, 0 when the key is missing, -1 on a state mismatch.
var transitionScript = redis.NewScript(`
local state = redis.call("HGET", KEYS[1], "state")
if not state then
	return 0
end
if state ~= ARGV[1] then
	return -1
end
redis.call("HSET", KEYS[1], "state", ARGV[2])
return 1
`)

// createScript writes the record only when the key does not exist.
var createScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
redis.call("HSET", KEYS[1], unpack(ARGV, 2))
if tonumber(ARGV[1]) > 0 then
	redis.call("PEXPIREAT", KEYS[1], ARGV[1])
end
return 1
`)

// Store is the Redis-backed guest token and settings store.
type Store struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
	now       func() time.Time
}

var (
	_ pmsGuard.GuestTokenStore = (*Store)(nil)
	_ pmsGuard.SettingsStore   = (*Store)(nil)
)

// New returns a store using prefix for every key.
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "pms:"
	}
	return &Store{redis: client, prefix: prefix, retention: DefaultRetention, now: time.Now}
}

func (s *Store) guestKey(token string) string {
	return s.prefix + "guest:" + token
}

func (s *Store) settingsKey() string {
	return s.prefix + "settings:auth_disabled"
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

// AuthDisabled implements [pmsGuard.SettingsStore]. A missing key means
// auth is enabled.
func (s *Store) AuthDisabled(ctx context.Context) (bool, error) {
	v, err := s.redis.Get(ctx, s.settingsKey()).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", pmsGuard.ErrStoreUnavailable, err)
	}
	return v == "1", nil
}

// SetAuthDisabled implements [pmsGuard.SettingsStore].
func (s *Store) SetAuthDisabled(ctx context.Context, disabled bool) error {
	v := "0"
	if disabled {
		v = "1"
	}
	if err := s.redis.Set(ctx, s.settingsKey(), v, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", pmsGuard.ErrStoreUnavailable, err)
	}
	return nil
}

type projection struct {
	CheckIn *pmsGuard.CheckInView `json:"checkIn,omitempty"`
	Payment *pmsGuard.PaymentView `json:"payment,omitempty"`
}

// CreateGuestToken implements [pmsGuard.GuestTokenStore]. The key expires
// the retention period after ExpiresAt.
func (s *Store) CreateGuestToken(ctx context.Context, g pmsGuard.GuestToken) error {
	proj, err := json.Marshal(projection{CheckIn: g.CheckIn, Payment: g.Payment})
	if err != nil {
		return fmt.Errorf("redisstore: encode projection: %w", err)
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = s.now()
	}

	var expireAt int64
	if !g.ExpiresAt.IsZero() {
		expireAt = g.ExpiresAt.Add(s.retention).UnixMilli()
	}

	args := []any{
		expireAt,
		"type", string(g.Type),
		"resource_id", g.ResourceID,
		"state", string(g.State),
		"expires_at", millis(g.ExpiresAt),
		"created_at", millis(g.CreatedAt),
		"projection", string(proj),
	}
	created, err := createScript.Run(ctx, s.redis, []string{s.guestKey(g.Token)}, args...).Int()
	if err != nil {
		return fmt.Errorf("%w: %v", pmsGuard.ErrStoreUnavailable, err)
	}
	if created == 0 {
		return pmsGuard.ErrStateConflict
	}
	return nil
}

// GetGuestToken implements [pmsGuard.GuestTokenStore].
func (s *Store) GetGuestToken(ctx context.Context, token string) (pmsGuard.GuestToken, error) {
	fields, err := s.redis.HGetAll(ctx, s.guestKey(token)).Result()
	if err != nil {
		return pmsGuard.GuestToken{}, fmt.Errorf("%w: %v", pmsGuard.ErrStoreUnavailable, err)
	}
	if len(fields) == 0 {
		return pmsGuard.GuestToken{}, pmsGuard.ErrNotFound
	}
	return decodeGuestToken(token, fields)
}

// TransitionGuestToken implements [pmsGuard.GuestTokenStore]. The state
// check and write run in one Lua script.
func (s *Store) TransitionGuestToken(ctx context.Context, token string, from, to pmsGuard.GuestTokenState) (pmsGuard.GuestToken, error) {
	res, err := transitionScript.Run(ctx, s.redis, []string{s.guestKey(token)}, string(from), string(to)).Int()
	if err != nil {
		return pmsGuard.GuestToken{}, fmt.Errorf("%w: %v", pmsGuard.ErrStoreUnavailable, err)
	}
	switch res {
	case 0:
		return pmsGuard.GuestToken{}, pmsGuard.ErrNotFound
	case -1:
		return pmsGuard.GuestToken{}, pmsGuard.ErrStateConflict
	}

	g, err := s.GetGuestToken(ctx, token)
	if err != nil {
		return pmsGuard.GuestToken{}, err
	}
	// The record may have been replaced between the script and the read.
	g.State = to
	return g, nil
}

func decodeGuestToken(token string, fields map[string]string) (pmsGuard.GuestToken, error) {
	var p projection
	if err := json.Unmarshal([]byte(fields["projection"]), &p); err != nil {
		return pmsGuard.GuestToken{}, fmt.Errorf("redisstore: decode projection: %w", err)
	}
	return pmsGuard.GuestToken{
		Token:      token,
		Type:       pmsGuard.GuestResourceType(fields["type"]),
		ResourceID: fields["resource_id"],
		State:      pmsGuard.GuestTokenState(fields["state"]),
		ExpiresAt:  fromMillis(fields["expires_at"]),
		CreatedAt:  fromMillis(fields["created_at"]),
		CheckIn:    p.CheckIn,
		Payment:    p.Payment,
	}, nil
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(v string) time.Time {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
