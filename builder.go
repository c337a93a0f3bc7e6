package pmsGuard

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/MrEthical07/pmsGuard/authflag"
	"github.com/MrEthical07/pmsGuard/internal/audit"
	"github.com/MrEthical07/pmsGuard/internal/logger"
	"github.com/MrEthical07/pmsGuard/internal/rate"
	"github.com/MrEthical07/pmsGuard/jwt"
	"github.com/MrEthical07/pmsGuard/password"
	"github.com/MrEthical07/pmsGuard/permission"
	"github.com/MrEthical07/pmsGuard/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an [Engine]. A Builder can be used once.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	logger *zap.Logger
	flag   *authflag.Cache
	now    func() time.Time

	principals PrincipalStore
	source     permission.Source
	totpStore  TOTPStore
	settings   SettingsStore
	guests     GuestTokenStore
	health     pinger

	auditSink AuditSink

	built bool
}

// New returns a Builder holding the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore wires every collaborator interface to one store.
func (b *Builder) WithStore(s Store) *Builder {
	b.principals = s
	b.source = s
	b.totpStore = s
	b.settings = s
	b.guests = s
	b.health = s
	return b
}

// WithPrincipalStore sets the identity store used by sessions and login.
func (b *Builder) WithPrincipalStore(s PrincipalStore) *Builder {
	b.principals = s
	return b
}

// WithPermissionSource sets where role permissions are loaded from.
func (b *Builder) WithPermissionSource(s permission.Source) *Builder {
	b.source = s
	return b
}

// WithTOTPStore sets where second-factor secrets are persisted.
func (b *Builder) WithTOTPStore(s TOTPStore) *Builder {
	b.totpStore = s
	return b
}

// WithSettingsStore sets the persisted source of the auth-disabled flag.
func (b *Builder) WithSettingsStore(s SettingsStore) *Builder {
	b.settings = s
	return b
}

// WithGuestTokenStore sets the guest token store, e.g. a Redis store while
// principals live in SQL.
func (b *Builder) WithGuestTokenStore(s GuestTokenStore) *Builder {
	b.guests = s
	return b
}

// WithRedis moves rate limiting into Redis so the budgets are shared by
// every process.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the Engine logger.
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink sets the audit destination. Without one, events go to the
// Engine logger.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithAuthFlag shares one auth-disabled cache between engines of the same
// process.
func (b *Builder) WithAuthFlag(flag *authflag.Cache) *Builder {
	b.flag = flag
	return b
}

// WithClock overrides the Engine's time source.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and returns the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.principals == nil {
		return nil, errors.New("principal store required")
	}
	if b.source == nil {
		return nil, errors.New("permission source required")
	}

	log := b.logger
	if log == nil {
		log = logger.Named("pmsguard")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	engine := &Engine{
		config:     cfg,
		logger:     log,
		now:        now,
		principals: b.principals,
		totpStore:  b.totpStore,
		settings:   b.settings,
		guests:     b.guests,
		health:     b.health,
		metrics:    NewMetrics(cfg.Metrics),
	}

	engine.flag = b.flag
	if engine.flag == nil {
		engine.flag = authflag.New()
	}

	resolver, err := permission.NewResolver(b.source, permission.Config{
		TTL:             cfg.Permission.CacheTTL,
		CleanupInterval: cfg.Permission.CleanupInterval,
		LoadTimeout:     cfg.Permission.LoadTimeout,
		Now:             now,
		Hooks:           engine.permissionHooks(),
	})
	if err != nil {
		return nil, err
	}
	engine.permissions = resolver

	// -------- SESSION --------
	tokens, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.Session.TTL,
		SigningMethod: jwt.SigningMethod(cfg.Session.SigningMethod),
		PrivateKey:    sessionSigningKey(cfg.Session),
		PublicKey:     []byte(cfg.Session.PublicKey),
		Issuer:        cfg.Session.Issuer,
	})
	if err != nil {
		return nil, err
	}
	engine.tokens = tokens

	codec, err := session.NewCodec(tokens, session.Config{
		CookieName:         cfg.Session.CookieName,
		ActivityCookieName: cfg.Session.ActivityCookieName,
		IdleTimeout:        cfg.Session.IdleTimeout,
		Secure:             cfg.Session.Secure,
	})
	if err != nil {
		return nil, err
	}
	engine.sessions = codec

	verifier, err := password.NewVerifier(cfg.Login.Password)
	if err != nil {
		return nil, err
	}
	engine.passwords = verifier

	engine.totp = newTOTPManager(cfg.TOTP)

	// -------- RATE LIMITS --------
	limits := rate.Config{
		Prefix:           cfg.Store.RedisPrefix,
		EnableIPThrottle: cfg.Login.EnableIPThrottle,
		MaxLoginAttempts: cfg.Login.MaxAttempts,
		LoginCooldown:    cfg.Login.Cooldown,
		Requests:         cfg.External.RateLimit.Requests,
		Window:           cfg.External.RateLimit.Window,
	}
	if b.redis != nil {
		engine.limiter = rate.New(b.redis, limits)
	} else {
		engine.limiter = rate.NewLocal(limits)
	}

	allowlist, err := parseAllowlist(cfg.External.IPAllowlist)
	if err != nil {
		return nil, err
	}
	engine.allowlist = allowlist

	sink := b.auditSink
	if sink == nil {
		sink = audit.NewZapSink(log.Named("audit"))
	}
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Now:        now,
	}, sink)

	if cfg.Internal.Secret == "" {
		log.Warn("internal shared secret not configured, internal routes are closed")
	}
	if cfg.External.Key == "" {
		log.Warn("external API key not configured, external API gate is open")
	}

	b.built = true

	return engine, nil
}

func sessionSigningKey(cfg SessionConfig) []byte {
	if cfg.SigningMethod == "hs256" {
		return []byte(cfg.Secret)
	}
	return []byte(cfg.PrivateKey)
}

// parseAllowlist accepts single addresses and CIDR prefixes.
func parseAllowlist(entries []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(entries))
	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("External IPAllowlist entry %q: %w", entry, err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("External IPAllowlist entry %q: %w", entry, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}
