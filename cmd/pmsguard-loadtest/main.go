// Command pmsguard-loadtest measures the permission cache and guest token
// redemption under concurrency, against Redis or an embedded miniredis.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	pmsGuard "github.com/MrEthical07/pmsGuard"
	"github.com/MrEthical07/pmsGuard/permission"
	"github.com/MrEthical07/pmsGuard/store/redisstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		tokens      = flag.Int("tokens", 20000, "number of guest tokens to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase")
		loadDelay   = flag.Duration("load-delay", 2*time.Millisecond, "simulated permission source latency")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "pms-loadtest:", "redis key prefix")
	)
	flag.Parse()

	if *tokens <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "tokens, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	store := redisstore.New(client, *prefix)

	fmt.Printf("seeding %d guest tokens...\n", *tokens)
	startSeed := time.Now()
	ids := make([]string, *tokens)
	now := time.Now()
	for i := range ids {
		ids[i] = fmt.Sprintf("lt-%d-%d", now.UnixNano(), i)
		err := store.CreateGuestToken(ctx, pmsGuard.GuestToken{
			Token:      ids[i],
			Type:       pmsGuard.GuestPayment,
			ResourceID: fmt.Sprintf("res-%d", i),
			State:      pmsGuard.GuestPending,
			CreatedAt:  now,
			ExpiresAt:  now.Add(time.Hour),
			Payment:    &pmsGuard.PaymentView{AmountCents: 15000, Currency: "EUR"},
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	permStats, loads := runPermissionPhase(ctx, *ops, *concurrency, *loadDelay)
	redeemStats, winners := runRedeemPhase(ctx, store, ids, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("permissions", permStats)
	fmt.Printf("permissions: source loads=%d for %d roles\n", loads, len(permission.DefaultRoles()))
	printStats("redeem", redeemStats)
	fmt.Printf("redeem: winners=%d tokens=%d\n", winners, len(ids))
	if winners > int64(len(ids)) {
		fmt.Fprintln(os.Stderr, "a token was redeemed more than once")
		os.Exit(1)
	}
}

// runPermissionPhase resolves random roles through a cold cache. With
// single-flight loading the source sees about one load per role.
func runPermissionPhase(ctx context.Context, ops, concurrency int, delay time.Duration) (phaseStats, int64) {
	roles := permission.DefaultRoles()
	names := make([]string, 0, len(roles))
	for name := range roles {
		names = append(names, name)
	}

	var loads int64
	source := permission.SourceFunc(func(_ context.Context, role string) ([]string, error) {
		atomic.AddInt64(&loads, 1)
		time.Sleep(delay)
		return roles[role], nil
	})
	resolver, err := permission.NewResolver(source, permission.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolver: %v\n", err)
		os.Exit(1)
	}

	stats := runPhase(ops, concurrency, 7919, func(r *rand.Rand, _ int) error {
		_, err := resolver.Resolve(ctx, names[r.Intn(len(names))])
		return err
	})
	return stats, atomic.LoadInt64(&loads)
}

// runRedeemPhase races workers on random tokens. Losing a race is expected
// and not counted as a failure; only store errors are.
func runRedeemPhase(ctx context.Context, store *redisstore.Store, ids []string, ops, concurrency int) (phaseStats, int64) {
	var winners int64
	stats := runPhase(ops, concurrency, 6151, func(r *rand.Rand, _ int) error {
		_, err := store.TransitionGuestToken(ctx, ids[r.Intn(len(ids))], pmsGuard.GuestPending, pmsGuard.GuestCompleted)
		switch {
		case err == nil:
			atomic.AddInt64(&winners, 1)
			return nil
		case errors.Is(err, pmsGuard.ErrStateConflict):
			return nil
		default:
			return err
		}
	})
	return stats, atomic.LoadInt64(&winners)
}

func runPhase(ops, concurrency int, seed int64, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
