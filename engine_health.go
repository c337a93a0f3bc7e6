package pmsGuard

import (
	"context"

	"go.uber.org/zap"
)

const (
	healthOK       = "ok"
	healthDegraded = "degraded"
)

// Health pings the store. A failing store reports degraded; Health itself
// never fails.
func (e *Engine) Health(ctx context.Context) HealthReport {
	if e == nil {
		return HealthReport{Status: healthDegraded, Store: ErrEngineNotReady.Error()}
	}

	report := HealthReport{Status: healthOK, AuthDisabled: e.IsAuthDisabled()}
	if e.health == nil {
		return report
	}
	if err := e.health.Ping(ctx); err != nil {
		e.metricInc(MetricStoreFailure)
		e.logger.Warn("store health check failed", zap.Error(err))
		report.Status = healthDegraded
		report.Store = ErrStoreUnavailable.Error()
	}
	return report
}
