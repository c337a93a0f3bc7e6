package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pmsGuard "github.com/MrEthical07/pmsGuard"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeSource struct {
	snapshot pmsGuard.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() pmsGuard.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                      { return f.dropped }

func TestCollectorCounters(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: pmsGuard.MetricsSnapshot{
			Counters: map[pmsGuard.MetricID]uint64{
				pmsGuard.MetricLoginSuccess:       7,
				pmsGuard.MetricPermissionCacheHit: 40,
			},
			Histograms: map[pmsGuard.MetricID][]uint64{},
		},
		dropped: 2,
	})

	rec := httptest.NewRecorder()
	Handler(c).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	out := rec.Body.String()
	for _, want := range []string{
		"# TYPE pmsguard_login_success_total counter",
		"pmsguard_login_success_total 7",
		"pmsguard_permission_cache_hit_total 40",
		"pmsguard_guest_redeemed_total 0",
		"pmsguard_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestCollectorLintsAndRegisters(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{snapshot: pmsGuard.MetricsSnapshot{
		Counters:   map[pmsGuard.MetricID]uint64{},
		Histograms: map[pmsGuard.MetricID][]uint64{},
	}})
	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := reg.Gather(); err != nil {
		t.Fatalf("Gather: %v", err)
	}
}

func TestHandlerRendersHistogram(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: pmsGuard.MetricsSnapshot{
			Counters: map[pmsGuard.MetricID]uint64{},
			Histograms: map[pmsGuard.MetricID][]uint64{
				pmsGuard.MetricPermissionLoadLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
	})

	rec := httptest.NewRecorder()
	Handler(c).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	out := string(body)
	for _, want := range []string{
		`pmsguard_permission_load_seconds_bucket{le="0.005"} 1`,
		`pmsguard_permission_load_seconds_bucket{le="0.5"} 28`,
		`pmsguard_permission_load_seconds_bucket{le="+Inf"} 36`,
		`pmsguard_permission_load_seconds_count 36`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}
