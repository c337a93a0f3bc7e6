package internaldefs

import (
	pmsGuard "github.com/MrEthical07/pmsGuard"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   pmsGuard.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   pmsGuard.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "pmsguard_audit_dropped_total"

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: pmsGuard.MetricGateBypassed, Name: "pmsguard_gate_bypassed_total", Help: "Gate checks skipped while auth is globally disabled."},
	{ID: pmsGuard.MetricInternalPass, Name: "pmsguard_internal_pass_total", Help: "Internal calls admitted by the shared secret."},
	{ID: pmsGuard.MetricInternalReject, Name: "pmsguard_internal_reject_total", Help: "Internal calls rejected."},
	{ID: pmsGuard.MetricExternalPass, Name: "pmsguard_external_pass_total", Help: "External API calls admitted."},
	{ID: pmsGuard.MetricExternalReject, Name: "pmsguard_external_reject_total", Help: "External API calls rejected for a missing or wrong key."},
	{ID: pmsGuard.MetricRateLimitHit, Name: "pmsguard_rate_limit_hit_total", Help: "External API calls over their request budget."},
	{ID: pmsGuard.MetricIPRejected, Name: "pmsguard_ip_rejected_total", Help: "External API calls from addresses outside the allowlist."},
	{ID: pmsGuard.MetricSessionResolved, Name: "pmsguard_session_resolved_total", Help: "Session cookies resolved to an active principal."},
	{ID: pmsGuard.MetricSessionRejected, Name: "pmsguard_session_rejected_total", Help: "Session cookies that resolved to no principal."},
	{ID: pmsGuard.MetricSessionCreated, Name: "pmsguard_session_created_total", Help: "Issued session cookies."},
	{ID: pmsGuard.MetricLoginSuccess, Name: "pmsguard_login_success_total", Help: "Successful logins."},
	{ID: pmsGuard.MetricLoginFailure, Name: "pmsguard_login_failure_total", Help: "Failed logins."},
	{ID: pmsGuard.MetricLoginRateLimited, Name: "pmsguard_login_rate_limited_total", Help: "Logins refused by the failure throttle."},
	{ID: pmsGuard.MetricTOTPRequired, Name: "pmsguard_totp_required_total", Help: "Logins that stopped for a second factor."},
	{ID: pmsGuard.MetricTOTPSuccess, Name: "pmsguard_totp_success_total", Help: "Accepted TOTP codes."},
	{ID: pmsGuard.MetricTOTPFailure, Name: "pmsguard_totp_failure_total", Help: "Rejected TOTP codes."},
	{ID: pmsGuard.MetricTOTPEnrolled, Name: "pmsguard_totp_enrolled_total", Help: "Confirmed TOTP enrollments."},
	{ID: pmsGuard.MetricTOTPDisabled, Name: "pmsguard_totp_disabled_total", Help: "Removed second factors."},
	{ID: pmsGuard.MetricPermissionCacheHit, Name: "pmsguard_permission_cache_hit_total", Help: "Role permission lookups served from cache."},
	{ID: pmsGuard.MetricPermissionCacheMiss, Name: "pmsguard_permission_cache_miss_total", Help: "Role permission lookups that missed the cache."},
	{ID: pmsGuard.MetricPermissionLoad, Name: "pmsguard_permission_load_total", Help: "Role permission loads from the store."},
	{ID: pmsGuard.MetricPermissionLoadFailure, Name: "pmsguard_permission_load_failure_total", Help: "Failed role permission loads."},
	{ID: pmsGuard.MetricPermissionDenied, Name: "pmsguard_permission_denied_total", Help: "Permission checks that denied access."},
	{ID: pmsGuard.MetricGuestResolved, Name: "pmsguard_guest_resolved_total", Help: "Guest tokens resolved to a resource."},
	{ID: pmsGuard.MetricGuestNotFound, Name: "pmsguard_guest_not_found_total", Help: "Guest token requests answered with not found."},
	{ID: pmsGuard.MetricGuestRedeemed, Name: "pmsguard_guest_redeemed_total", Help: "Guest tokens redeemed."},
	{ID: pmsGuard.MetricGuestExpired, Name: "pmsguard_guest_expired_total", Help: "Guest tokens moved to expired."},
	{ID: pmsGuard.MetricAuthDisabledChanged, Name: "pmsguard_auth_disabled_changed_total", Help: "Changes of the auth-disabled flag."},
	{ID: pmsGuard.MetricStoreFailure, Name: "pmsguard_store_failure_total", Help: "Store errors converted to a safe default."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: pmsGuard.MetricPermissionLoadLatency, Name: "pmsguard_permission_load_seconds", Help: "Role permission load latency."},
}

// HistogramUpperBounds are the bucket upper bounds in seconds, excluding +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf last, for exporters that
// cannot carry a label.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
