package pmsGuard

import (
	"context"
	"time"

	"github.com/MrEthical07/pmsGuard/permission"
	"go.uber.org/zap"
)

// GetPermissionsForRole returns the permission codes granted to role. A
// fresh cached set is served without a store call. Store failures yield the
// empty set and are logged.
func (e *Engine) GetPermissionsForRole(ctx context.Context, role string) permission.Set {
	if e == nil || e.permissions == nil || role == "" {
		return permission.Set{}
	}

	set, err := e.permissions.Resolve(ctx, role)
	if err != nil {
		if ctx.Err() != nil {
			// the caller's own request ended while it waited
			e.logger.Debug("permission lookup abandoned", zap.String("role", role), zap.Error(err))
			return permission.Set{}
		}
		e.logger.Warn("permission load failed, denying", zap.String("role", role), zap.Error(err))
		return permission.Set{}
	}
	return set
}

// Can reports whether role holds code.
func (e *Engine) Can(ctx context.Context, role, code string) bool {
	if e == nil {
		return false
	}
	allowed := e.GetPermissionsForRole(ctx, role).Has(code)
	if !allowed {
		e.metricInc(MetricPermissionDenied)
	}
	return allowed
}

// GetMyPermissions returns the permissions of p's role. No principal and no
// role both give the empty set.
func (e *Engine) GetMyPermissions(ctx context.Context, p *Principal) permission.Set {
	if p == nil || p.Role == "" {
		return permission.Set{}
	}
	return e.GetPermissionsForRole(ctx, p.Role)
}

// InvalidatePermissions drops cached sets for roles, or all of them when
// called without arguments.
func (e *Engine) InvalidatePermissions(roles ...string) {
	if e == nil || e.permissions == nil {
		return
	}
	e.permissions.Invalidate(roles...)
}

func (e *Engine) permissionHooks() permission.Hooks {
	return permission.Hooks{
		OnHit: func(string) {
			e.metricInc(MetricPermissionCacheHit)
		},
		OnMiss: func(string) {
			e.metricInc(MetricPermissionCacheMiss)
		},
		OnLoad: func(role string, took time.Duration, err error) {
			e.metricInc(MetricPermissionLoad)
			if e.metrics != nil {
				e.metrics.Observe(MetricPermissionLoadLatency, took)
			}
			if err != nil {
				e.metricInc(MetricPermissionLoadFailure)
				e.metricInc(MetricStoreFailure)
				return
			}
			e.logger.Debug("permissions loaded", zap.String("role", role), zap.Duration("took", took))
		},
	}
}
