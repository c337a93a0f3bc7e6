package pmsGuard

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads a YAML file over the defaults and then applies PMS_*
// environment overrides. An empty path skips the file. The result is
// validated.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg, os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	str("PMS_ENV", &cfg.Env)
	str("PMS_LOG_LEVEL", &cfg.Log.Level)
	str("PMS_SESSION_SECRET", &cfg.Session.Secret)
	str("PMS_INTERNAL_SECRET", &cfg.Internal.Secret)
	str("PMS_EXTERNAL_API_KEY", &cfg.External.Key)
	str("PMS_TOTP_ISSUER", &cfg.TOTP.Issuer)
	str("PMS_IDP_CLIENT_ID", &cfg.IdentityProvider.ClientID)
	str("PMS_IDP_REDIRECT_BASE", &cfg.IdentityProvider.RedirectBase)
	str("PMS_STORE_DRIVER", &cfg.Store.Driver)
	str("PMS_STORE_DSN", &cfg.Store.DSN)
	str("PMS_REDIS_ADDR", &cfg.Store.RedisAddr)
	str("PMS_SERVER_ADDR", &cfg.Server.Addr)

	if v, ok := lookup("PMS_API_IP_ALLOWLIST"); ok {
		cfg.External.IPAllowlist = splitList(v)
	}
	if v, ok := lookup("PMS_SESSION_SECURE"); ok {
		cfg.Session.Secure = !strings.EqualFold(strings.TrimSpace(v), "false")
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
