package pmsGuard_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	pmsGuard "github.com/MrEthical07/pmsGuard"
	"github.com/MrEthical07/pmsGuard/password"
	"github.com/MrEthical07/pmsGuard/store/memory"
	"go.uber.org/zap/zaptest"
)

const testPassword = "correct-horse-battery"

func testConfig() pmsGuard.Config {
	cfg := pmsGuard.DefaultConfig()
	cfg.Env = "dev"
	cfg.Session.Secret = "test-session-secret-0123456789abcdef"
	cfg.Session.Secure = false
	cfg.Audit.Enabled = false
	cfg.Login.Password = password.Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	return cfg
}

type engineOption func(*pmsGuard.Builder)

func newTestEngine(t *testing.T, cfg pmsGuard.Config, store pmsGuard.Store, opts ...engineOption) *pmsGuard.Engine {
	t.Helper()
	b := pmsGuard.New().
		WithConfig(cfg).
		WithStore(store).
		WithLogger(zaptest.NewLogger(t))
	for _, opt := range opts {
		opt(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func hashPassword(t *testing.T, cfg pmsGuard.Config, plain string) string {
	t.Helper()
	v, err := password.NewVerifier(cfg.Login.Password)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	h, err := v.Hash(plain)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	return h
}

// countingSource records loads and can hold them open until released.
type countingSource struct {
	mu      sync.Mutex
	roles   map[string][]string
	err     error
	calls   atomic.Int32
	gate    chan struct{}
	entered chan struct{}
}

func newCountingSource(roles map[string][]string) *countingSource {
	return &countingSource{roles: roles}
}

func (s *countingSource) RolePermissions(ctx context.Context, role string) ([]string, error) {
	s.calls.Add(1)
	if s.entered != nil {
		select {
		case s.entered <- struct{}{}:
		default:
		}
	}
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]string(nil), s.roles[role]...), nil
}

func (s *countingSource) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func seedPrincipal(t *testing.T, store *memory.Store, cfg pmsGuard.Config, email, role string, active bool) pmsGuard.PrincipalRecord {
	t.Helper()
	return store.PutPrincipal(pmsGuard.PrincipalRecord{
		Principal: pmsGuard.Principal{
			Email:    email,
			Name:     "Test User",
			Role:     role,
			IsActive: active,
		},
		PasswordHash: hashPassword(t, cfg, testPassword),
	})
}
