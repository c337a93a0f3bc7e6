package permission

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTTL is how long a role's permission set is served from cache.
	DefaultTTL = 120 * time.Second
	// DefaultLoadTimeout bounds a single source load.
	DefaultLoadTimeout = 5 * time.Second
)

// ErrNilSource is returned by [NewResolver] when no source is supplied.
var ErrNilSource = errors.New("permission: nil source")

// Source loads the permission codes granted to a role. An unknown role is
// not an error: it grants nothing.
type Source interface {
	RolePermissions(ctx context.Context, role string) ([]string, error)
}

// SourceFunc adapts a function to [Source].
type SourceFunc func(ctx context.Context, role string) ([]string, error)

// RolePermissions calls f.
func (f SourceFunc) RolePermissions(ctx context.Context, role string) ([]string, error) {
	return f(ctx, role)
}

// Config tunes a [Resolver].
type Config struct {
	TTL             time.Duration
	CleanupInterval time.Duration
	// LoadTimeout bounds a source load. Zero means DefaultLoadTimeout.
	LoadTimeout time.Duration
	// Now overrides the clock used to age entries. Nil means time.Now.
	Now   func() time.Time
	Hooks Hooks
}

// Hooks observe resolver activity. Nil fields are skipped. They run on the
// caller's goroutine and must not block.
type Hooks struct {
	OnHit  func(role string)
	OnMiss func(role string)
	OnLoad func(role string, took time.Duration, err error)
}

// Stats counts resolver outcomes since construction.
type Stats struct {
	Hits     uint64
	Misses   uint64
	Loads    uint64
	Failures uint64
}

type entry struct {
	set      Set
	loadedAt time.Time
}

// Resolver caches role → permission set lookups.
type Resolver struct {
	source      Source
	ttl         time.Duration
	loadTimeout time.Duration
	now         func() time.Time
	hooks       Hooks
	cache       *gocache.Cache
	group       singleflight.Group

	// generation advances on every invalidation so that a load started
	// before the invalidation does not repopulate the cache.
	generation atomic.Uint64

	hits     atomic.Uint64
	misses   atomic.Uint64
	loads    atomic.Uint64
	failures atomic.Uint64
}

// NewResolver returns a resolver reading from source.
func NewResolver(source Source, cfg Config) (*Resolver, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = DefaultLoadTimeout
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Resolver{
		source:      source,
		ttl:         cfg.TTL,
		loadTimeout: cfg.LoadTimeout,
		now:         now,
		hooks:       cfg.Hooks,
		cache:       gocache.New(cfg.TTL, cfg.CleanupInterval),
	}, nil
}

// TTL returns the configured entry lifetime.
func (r *Resolver) TTL() time.Duration {
	return r.ttl
}

// Resolve returns the permission set for role. A fresh cached entry is
// returned without touching the source. Otherwise exactly one load runs per
// role at a time and every concurrent caller receives its result.
//
// The load is detached from ctx and bounded by the load timeout instead, so
// a cancelled caller returns ctx.Err() without failing the others waiting
// on the same role.
func (r *Resolver) Resolve(ctx context.Context, role string) (Set, error) {
	if set, ok := r.lookup(role); ok {
		r.hits.Add(1)
		if r.hooks.OnHit != nil {
			r.hooks.OnHit(role)
		}
		return set, nil
	}
	r.misses.Add(1)
	if r.hooks.OnMiss != nil {
		r.hooks.OnMiss(role)
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(role, func() (interface{}, error) {
		return r.load(loadCtx, role)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Set{}, res.Err
		}
		return res.Val.(Set), nil
	case <-ctx.Done():
		return Set{}, ctx.Err()
	}
}

func (r *Resolver) load(ctx context.Context, role string) (Set, error) {
	// A flight that finished between our lookup and DoChan already stored the entry.
	if set, ok := r.lookup(role); ok {
		return set, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.loadTimeout)
	defer cancel()

	gen := r.generation.Load()
	r.loads.Add(1)
	started := time.Now()
	codes, err := r.source.RolePermissions(ctx, role)
	if r.hooks.OnLoad != nil {
		r.hooks.OnLoad(role, time.Since(started), err)
	}
	if err != nil {
		r.failures.Add(1)
		return Set{}, err
	}

	set := NewSet(codes...)
	if r.generation.Load() == gen {
		r.cache.Set(role, entry{set: set, loadedAt: r.now()}, r.ttl)
	}
	return set, nil
}

// Invalidate drops the cached entries for roles. With no arguments every
// entry is dropped.
func (r *Resolver) Invalidate(roles ...string) {
	r.generation.Add(1)
	if len(roles) == 0 {
		r.cache.Flush()
		return
	}
	for _, role := range roles {
		r.cache.Delete(role)
	}
}

// Stats returns the outcome counters.
func (r *Resolver) Stats() Stats {
	return Stats{
		Hits:     r.hits.Load(),
		Misses:   r.misses.Load(),
		Loads:    r.loads.Load(),
		Failures: r.failures.Load(),
	}
}

func (r *Resolver) lookup(role string) (Set, bool) {
	v, ok := r.cache.Get(role)
	if !ok {
		return Set{}, false
	}
	e := v.(entry)
	if r.now().Sub(e.loadedAt) >= r.ttl {
		return Set{}, false
	}
	return e.set, true
}
