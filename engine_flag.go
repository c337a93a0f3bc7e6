package pmsGuard

import (
	"context"
	"strconv"

	"go.uber.org/zap"
)

// SetAuthDisabledCache overwrites the process-wide auth-disabled flag. It
// does not touch the store.
func (e *Engine) SetAuthDisabledCache(disabled bool) {
	if e == nil || e.flag == nil {
		return
	}
	prev := e.flag.Disabled()
	e.flag.Set(disabled)
	if prev != disabled {
		e.metricInc(MetricAuthDisabledChanged)
		e.logger.Info("auth disabled flag changed", zap.Bool("disabled", disabled))
	}
}

// IsAuthDisabled returns the cached flag, false if it was never set.
func (e *Engine) IsAuthDisabled() bool {
	if e == nil || e.flag == nil {
		return false
	}
	return e.flag.Disabled()
}

// RefreshAuthDisabled reloads the flag from the settings store and caches
// it. Any store failure caches and returns false, keeping auth enabled.
func (e *Engine) RefreshAuthDisabled(ctx context.Context) bool {
	if e == nil || e.flag == nil {
		return false
	}
	if e.settings == nil {
		e.logger.Warn("auth disabled refresh without settings store, keeping auth enabled")
		e.SetAuthDisabledCache(false)
		return false
	}

	disabled, err := e.settings.AuthDisabled(ctx)
	if err != nil {
		e.metricInc(MetricStoreFailure)
		e.logger.Warn("auth disabled refresh failed, keeping auth enabled", zap.Error(err))
		e.SetAuthDisabledCache(false)
		return false
	}

	e.SetAuthDisabledCache(disabled)
	return disabled
}

// SetAuthDisabled persists the flag and then updates this process's cache.
// Other processes pick the change up on their next refresh.
func (e *Engine) SetAuthDisabled(ctx context.Context, disabled bool) error {
	if e == nil || e.flag == nil {
		return ErrEngineNotReady
	}
	if e.settings == nil {
		return ErrConfiguration
	}
	if err := e.settings.SetAuthDisabled(ctx, disabled); err != nil {
		e.metricInc(MetricStoreFailure)
		return storeErr(err)
	}

	e.SetAuthDisabledCache(disabled)
	e.emitAudit(ctx, auditEventAuthDisabledChanged, true, "", "", nil, func() map[string]string {
		return map[string]string{"disabled": strconv.FormatBool(disabled)}
	})
	return nil
}
