package internaldefs

import (
	"github.com/MrEthical07/loginguard"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   loginguard.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   loginguard.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: loginguard.MetricLoginSuccess, Name: "loginguard_login_success_total", Help: "Successful login attempts."},
	{ID: loginguard.MetricLoginFailure, Name: "loginguard_login_failure_total", Help: "Login attempts rejected for invalid credentials."},
	{ID: loginguard.MetricLoginValidationFailed, Name: "loginguard_login_validation_failed_total", Help: "Login attempts rejected by input validation."},
	{ID: loginguard.MetricLoginRateLimited, Name: "loginguard_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: loginguard.MetricLoginLocked, Name: "loginguard_login_locked_total", Help: "Login attempts against a locked identifier."},
	{ID: loginguard.MetricLoginUnavailable, Name: "loginguard_login_unavailable_total", Help: "Login attempts denied because a backend was unavailable."},
	{ID: loginguard.MetricLockoutTriggered, Name: "loginguard_lockout_triggered_total", Help: "Lockouts placed or extended by failed attempts."},
	{ID: loginguard.MetricSessionCreated, Name: "loginguard_session_created_total", Help: "Created sessions."},
	{ID: loginguard.MetricPasswordRehashed, Name: "loginguard_password_rehashed_total", Help: "Stored hashes upgraded to current argon2id parameters."},
	{ID: loginguard.MetricMalformedHash, Name: "loginguard_malformed_hash_total", Help: "Stored hashes that could not be parsed."},
	{ID: loginguard.MetricSessionValidated, Name: "loginguard_session_validated_total", Help: "Access tokens that resolved to a live session."},
	{ID: loginguard.MetricSessionRejected, Name: "loginguard_session_rejected_total", Help: "Access tokens rejected during session validation."},
	{ID: loginguard.MetricLogout, Name: "loginguard_logout_total", Help: "Single-session logout operations."},
	{ID: loginguard.MetricLogoutAll, Name: "loginguard_logout_all_total", Help: "Logout-all operations."},
	{ID: loginguard.MetricAdminLock, Name: "loginguard_admin_lock_total", Help: "Administrative identifier locks."},
	{ID: loginguard.MetricAdminUnlock, Name: "loginguard_admin_unlock_total", Help: "Administrative identifier unlocks."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: loginguard.MetricLoginLatency, Name: "loginguard_login_latency_seconds", Help: "Login pipeline latency histogram."},
}

// AuditDroppedName is the counter for events lost to dispatcher backpressure.
const AuditDroppedName = "loginguard_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// BucketCount is the number of histogram buckets including +Inf.
const BucketCount = len(loginguard.HistogramBucketBounds) + 1

// HistogramBounds are the finite bucket upper bounds in seconds.
var HistogramBounds = func() []float64 {
	out := make([]float64, len(loginguard.HistogramBucketBounds))
	for i, d := range loginguard.HistogramBucketBounds {
		out[i] = d.Seconds()
	}
	return out
}()

// HistogramBoundLabels are the le label values, ending with +Inf.
var HistogramBoundLabels = []string{
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"+Inf",
}

// HistogramBoundSuffix are metric-name-safe forms of HistogramBoundLabels.
var HistogramBoundSuffix = []string{
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling missing
// buckets.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
