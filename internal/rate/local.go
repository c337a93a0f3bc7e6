package rate

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// LocalLimiter is the single-process counterpart of [Limiter].
type LocalLimiter struct {
	config   Config
	now      func() time.Time
	attempts *gocache.Cache

	mu      sync.Mutex
	buckets *gocache.Cache
}

// NewLocal creates an in-process limiter.
func NewLocal(cfg Config) *LocalLimiter {
	idle := 2 * cfg.Window
	if idle <= 0 {
		idle = 2 * time.Minute
	}
	return &LocalLimiter{
		config:   cfg,
		now:      time.Now,
		attempts: gocache.New(cfg.LoginCooldown, time.Minute),
		buckets:  gocache.New(idle, time.Minute),
	}
}

// CheckLogin mirrors [Limiter.CheckLogin].
func (l *LocalLimiter) CheckLogin(_ context.Context, identifier, ip string) error {
	if l.count("al:"+identifier) >= int64(l.config.MaxLoginAttempts) {
		return ErrRateLimited
	}
	if l.config.EnableIPThrottle && ip != "" && l.count("ali:"+ip) >= int64(l.config.MaxLoginAttempts) {
		return ErrRateLimited
	}
	return nil
}

// IncrementLogin mirrors [Limiter.IncrementLogin].
func (l *LocalLimiter) IncrementLogin(_ context.Context, identifier, ip string) error {
	if l.increment("al:"+identifier) > int64(l.config.MaxLoginAttempts) {
		return ErrRateLimited
	}
	if l.config.EnableIPThrottle && ip != "" && l.increment("ali:"+ip) > int64(l.config.MaxLoginAttempts) {
		return ErrRateLimited
	}
	return nil
}

// ResetLogin mirrors [Limiter.ResetLogin].
func (l *LocalLimiter) ResetLogin(_ context.Context, identifier, ip string) error {
	l.attempts.Delete("al:" + identifier)
	if ip != "" {
		l.attempts.Delete("ali:" + ip)
	}
	return nil
}

// Allow takes one token from key's bucket. The bucket refills at
// Requests per Window and holds at most Requests tokens.
func (l *LocalLimiter) Allow(_ context.Context, key string) (Result, error) {
	lim := l.bucket(key)
	now := l.now()

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return Result{Allowed: false, RetryAfter: l.config.Window}, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Result{Allowed: false, RetryAfter: delay}, nil
	}

	return Result{Allowed: true, Remaining: int(lim.TokensAt(now))}, nil
}

func (l *LocalLimiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.buckets.Get(key); ok {
		lim := v.(*rate.Limiter)
		l.buckets.SetDefault(key, lim)
		return lim
	}

	every := time.Minute
	if l.config.Requests > 0 && l.config.Window > 0 {
		every = l.config.Window / time.Duration(l.config.Requests)
	}
	lim := rate.NewLimiter(rate.Every(every), l.config.Requests)
	l.buckets.SetDefault(key, lim)
	return lim
}

func (l *LocalLimiter) count(key string) int64 {
	v, ok := l.attempts.Get(key)
	if !ok {
		return 0
	}
	return v.(int64)
}

func (l *LocalLimiter) increment(key string) int64 {
	// Add fails when the key exists, which keeps the window anchored at the first failure.
	_ = l.attempts.Add(key, int64(0), l.config.LoginCooldown)
	n, err := l.attempts.IncrementInt64(key, 1)
	if err != nil {
		return 0
	}
	return n
}
