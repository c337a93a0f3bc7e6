package pmsGuard

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/pmsGuard/password"
	"github.com/MrEthical07/pmsGuard/permission"
)

// Config is the full Engine configuration. It is copied at Build time and
// treated as immutable afterwards.
type Config struct {
	Env              string                 `yaml:"env"`
	Session          SessionConfig          `yaml:"session"`
	Permission       PermissionConfig       `yaml:"permission"`
	TOTP             TOTPConfig             `yaml:"totp"`
	Internal         InternalConfig         `yaml:"internal"`
	External         ExternalConfig         `yaml:"external"`
	Login            LoginConfig            `yaml:"login"`
	Guest            GuestConfig            `yaml:"guest"`
	IdentityProvider IdentityProviderConfig `yaml:"identity_provider"`
	Audit            AuditConfig            `yaml:"audit"`
	Metrics          MetricsConfig          `yaml:"metrics"`
	Log              LogConfig              `yaml:"log"`
	Store            StoreConfig            `yaml:"store"`
	Server           ServerConfig           `yaml:"server"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the browser session cookies and their signing.
type SessionConfig struct {
	CookieName         string        `yaml:"cookie_name"`
	ActivityCookieName string        `yaml:"activity_cookie_name"`
	TTL                time.Duration `yaml:"ttl"`
	IdleTimeout        time.Duration `yaml:"idle_timeout"`
	SigningMethod      string        `yaml:"signing_method"` // "hs256" (default) or "ed25519"
	Secret             string        `yaml:"secret"`
	PrivateKey         string        `yaml:"private_key"`
	PublicKey          string        `yaml:"public_key"`
	Issuer             string        `yaml:"issuer"`
	Secure             bool          `yaml:"secure"`
}

/*
====================================
PERMISSION CONFIG
====================================
*/

// PermissionConfig controls the role permission cache.
type PermissionConfig struct {
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	// LoadTimeout bounds one role load. The load is shared by every caller
	// waiting on that role, so it does not end with any single request.
	LoadTimeout time.Duration `yaml:"load_timeout"`
}

/*
====================================
TOTP CONFIG
====================================
*/

// TOTPConfig controls second-factor code generation and verification.
type TOTPConfig struct {
	Issuer    string `yaml:"issuer"`
	Digits    int    `yaml:"digits"`
	Period    int    `yaml:"period"`
	Algorithm string `yaml:"algorithm"`
	// Skew is the number of adjacent time steps accepted on each side of the
	// current one. Only 0 and 1 are allowed.
	Skew int `yaml:"skew"`
}

/*
====================================
GATE CONFIG
====================================
*/

// InternalConfig configures the internal call gate. An empty Secret closes
// every internal route.
type InternalConfig struct {
	Header string `yaml:"header"`
	Secret string `yaml:"secret"`
}

// ExternalConfig configures the external API gate. An empty Key leaves the
// gate open.
type ExternalConfig struct {
	Key         string          `yaml:"key"`
	KeyHeader   string          `yaml:"key_header"`
	IPAllowlist []string        `yaml:"ip_allowlist"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig bounds external API traffic per key or client IP.
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
	// KeyPrefixLength is how many characters of an API key identify its bucket.
	KeyPrefixLength int `yaml:"key_prefix_length"`
}

/*
====================================
LOGIN CONFIG
====================================
*/

// LoginConfig controls password login and its failure throttling.
type LoginConfig struct {
	MaxAttempts      int             `yaml:"max_attempts"`
	Cooldown         time.Duration   `yaml:"cooldown"`
	EnableIPThrottle bool            `yaml:"enable_ip_throttle"`
	Password         password.Config `yaml:"password"`
}

// GuestConfig controls links issued to anonymous guests.
type GuestConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// IdentityProviderConfig is consumed only by login initiation. Missing values
// disable that feature with ErrConfiguration.
type IdentityProviderConfig struct {
	ClientID     string `yaml:"client_id"`
	RedirectBase string `yaml:"redirect_base"`
	AuthorizeURL string `yaml:"authorize_url"`
	CallbackPath string `yaml:"callback_path"`
}

/*
====================================
AMBIENT CONFIG
====================================
*/

// AuditConfig controls asynchronous audit dispatch.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// LogConfig selects the logger encoder and level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// StoreConfig selects the persistent store backends.
type StoreConfig struct {
	Driver        string `yaml:"driver"` // memory, postgres, sqlite
	DSN           string `yaml:"dsn"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`
}

// ServerConfig is read by the serve command.
type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// DefaultConfig returns the production defaults. Secrets are left empty.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Env: "prod",
		Session: SessionConfig{
			CookieName:         "pms_session",
			ActivityCookieName: "pms_last_activity",
			TTL:                7 * 24 * time.Hour,
			IdleTimeout:        30 * time.Minute,
			SigningMethod:      "hs256",
			Issuer:             "pms",
			Secure:             true,
		},
		Permission: PermissionConfig{
			CacheTTL:        permission.DefaultTTL,
			CleanupInterval: 5 * time.Minute,
			LoadTimeout:     permission.DefaultLoadTimeout,
		},
		TOTP: TOTPConfig{
			Issuer:    "PMS Hotel",
			Digits:    6,
			Period:    30,
			Algorithm: "SHA1",
			Skew:      1,
		},
		Internal: InternalConfig{
			Header: "X-Internal-Secret",
		},
		External: ExternalConfig{
			KeyHeader: "X-API-Key",
			RateLimit: RateLimitConfig{
				Enabled:         true,
				Requests:        100,
				Window:          time.Minute,
				KeyPrefixLength: 32,
			},
		},
		Login: LoginConfig{
			MaxAttempts:      5,
			Cooldown:         15 * time.Minute,
			EnableIPThrottle: true,
			Password:         password.DefaultConfig(),
		},
		Guest: GuestConfig{
			TTL: 7 * 24 * time.Hour,
		},
		IdentityProvider: IdentityProviderConfig{
			AuthorizeURL: "https://accounts.google.com/o/oauth2/v2/auth",
			CallbackPath: "/api/auth/staff/google/callback",
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Log: LogConfig{
			Level: "info",
		},
		Store: StoreConfig{
			Driver:      "memory",
			RedisPrefix: "pms:",
		},
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.External.IPAllowlist != nil {
		out.External.IPAllowlist = append([]string(nil), cfg.External.IPAllowlist...)
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting. Identity-provider settings are
// not checked here: their absence only disables login initiation.
func (c *Config) Validate() error {
	// Session
	if c.Session.CookieName == "" || c.Session.ActivityCookieName == "" {
		return errors.New("Session cookie names are required")
	}
	if c.Session.CookieName == c.Session.ActivityCookieName {
		return errors.New("Session cookie names must differ")
	}
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if c.Session.IdleTimeout < 0 {
		return errors.New("Session IdleTimeout must be >= 0")
	}
	switch c.Session.SigningMethod {
	case "hs256":
		if len(c.Session.Secret) < 16 {
			return errors.New("Session Secret must be at least 16 bytes for hs256")
		}
	case "ed25519":
		if c.Session.PrivateKey == "" || c.Session.PublicKey == "" {
			return errors.New("ed25519 requires PrivateKey and PublicKey")
		}
	default:
		return errors.New("unsupported Session signing method")
	}

	// Permission
	if c.Permission.CacheTTL <= 0 {
		return errors.New("Permission CacheTTL must be > 0")
	}
	if c.Permission.LoadTimeout < 0 {
		return errors.New("Permission LoadTimeout must be >= 0")
	}

	// TOTP
	if strings.TrimSpace(c.TOTP.Issuer) == "" {
		return errors.New("TOTP Issuer is required")
	}
	if strings.Contains(c.TOTP.Issuer, ":") {
		return errors.New("TOTP Issuer must not contain ':'")
	}
	if c.TOTP.Digits != 6 && c.TOTP.Digits != 8 {
		return errors.New("TOTP Digits must be 6 or 8")
	}
	if c.TOTP.Period < 15 {
		return errors.New("TOTP Period must be >= 15 seconds")
	}
	if c.TOTP.Skew < 0 || c.TOTP.Skew > 1 {
		return errors.New("TOTP Skew must be 0 or 1")
	}
	if _, err := hmacFunc(c.TOTP.Algorithm); err != nil {
		return errors.New("TOTP Algorithm must be SHA1, SHA256, or SHA512")
	}

	// Gates
	if strings.TrimSpace(c.Internal.Header) == "" {
		return errors.New("Internal Header is required")
	}
	if strings.TrimSpace(c.External.KeyHeader) == "" {
		return errors.New("External KeyHeader is required")
	}
	if c.External.RateLimit.Enabled {
		if c.External.RateLimit.Requests <= 0 {
			return errors.New("External RateLimit Requests must be > 0")
		}
		if c.External.RateLimit.Window <= 0 {
			return errors.New("External RateLimit Window must be > 0")
		}
		if c.External.RateLimit.KeyPrefixLength <= 0 {
			return errors.New("External RateLimit KeyPrefixLength must be > 0")
		}
	}
	for _, entry := range c.External.IPAllowlist {
		if strings.TrimSpace(entry) == "" {
			return errors.New("External IPAllowlist contains an empty entry")
		}
	}

	// Login
	if c.Login.MaxAttempts <= 0 {
		return errors.New("Login MaxAttempts must be > 0")
	}
	if c.Login.Cooldown <= 0 {
		return errors.New("Login Cooldown must be > 0")
	}

	// Guest
	if c.Guest.TTL <= 0 {
		return errors.New("Guest TTL must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Store
	switch c.Store.Driver {
	case "memory":
	case "postgres", "sqlite":
		if c.Store.DSN == "" {
			return errors.New("Store DSN is required for " + c.Store.Driver)
		}
	default:
		return errors.New("Store Driver must be memory, postgres, or sqlite")
	}

	return nil
}
