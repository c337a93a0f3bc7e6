package pmsGuard

import (
	"context"
	"net/netip"
	"time"

	"github.com/MrEthical07/pmsGuard/authflag"
	"github.com/MrEthical07/pmsGuard/internal/audit"
	"github.com/MrEthical07/pmsGuard/internal/rate"
	"github.com/MrEthical07/pmsGuard/jwt"
	"github.com/MrEthical07/pmsGuard/password"
	"github.com/MrEthical07/pmsGuard/permission"
	"github.com/MrEthical07/pmsGuard/session"
	"go.uber.org/zap"
)

// limiter is satisfied by both the Redis and the in-process rate limiters.
type limiter interface {
	CheckLogin(ctx context.Context, identifier, ip string) error
	IncrementLogin(ctx context.Context, identifier, ip string) error
	ResetLogin(ctx context.Context, identifier, ip string) error
	Allow(ctx context.Context, key string) (rate.Result, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Engine is the authorization and trust layer. It is built once per process
// by [Builder] and is safe for concurrent use by every request handler.
type Engine struct {
	config Config
	logger *zap.Logger
	now    func() time.Time

	flag        *authflag.Cache
	permissions *permission.Resolver
	sessions    *session.Codec
	tokens      *jwt.Manager
	passwords   *password.Verifier
	totp        *totpManager
	limiter     limiter
	allowlist   []netip.Prefix

	principals PrincipalStore
	totpStore  TOTPStore
	settings   SettingsStore
	guests     GuestTokenStore
	health     pinger

	audit   *audit.Dispatcher
	metrics *Metrics
}

// Close flushes pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// Config returns a copy of the configuration the Engine was built with.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

// Logger returns the Engine's logger.
func (e *Engine) Logger() *zap.Logger {
	if e == nil || e.logger == nil {
		return zap.NewNop()
	}
	return e.logger
}

// AuditDropped reports how many audit events were discarded on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the Engine's counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// PermissionStats returns the permission cache counters.
func (e *Engine) PermissionStats() permission.Stats {
	if e == nil || e.permissions == nil {
		return permission.Stats{}
	}
	return e.permissions.Stats()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now()
}
