package main

import (
	"context"
	"fmt"
	"strings"

	pmsGuard "github.com/MrEthical07/pmsGuard"
	"github.com/MrEthical07/pmsGuard/internal/httpapi"
	"github.com/MrEthical07/pmsGuard/store/memory"
	"github.com/MrEthical07/pmsGuard/store/redisstore"
	"github.com/MrEthical07/pmsGuard/store/sqlstore"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// backends holds what serve wires into the builder, plus their closers.
type backends struct {
	store     pmsGuard.Store
	passwords httpapi.PasswordUpdater
	redis     redis.UniversalClient
	guests    *redisstore.Store
	closers   []func() error
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		_ = b.closers[i]()
	}
}

func openBackends(ctx context.Context, cfg pmsGuard.StoreConfig, migrate bool, log *zap.Logger) (*backends, error) {
	b := &backends{}

	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case "", "memory":
		log.Warn("using in-memory store, state is lost on restart")
		s := memory.NewWithDefaultRoles()
		b.store, b.passwords = s, s
	case "postgres", "sqlite":
		d, err := sqlstore.ParseDialect(driver)
		if err != nil {
			return nil, err
		}
		s, err := sqlstore.Open(ctx, d, cfg.DSN)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, s.Close)
		if migrate {
			if err := s.Migrate(ctx); err != nil {
				b.Close()
				return nil, err
			}
		}
		b.store, b.passwords = s, s
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.RedisAddr},
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		b.closers = append(b.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			b.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		b.redis = rdb
		b.guests = redisstore.New(rdb, cfg.RedisPrefix)
	}

	return b, nil
}
