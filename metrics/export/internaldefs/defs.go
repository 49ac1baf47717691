package internaldefs

import (
	"github.com/honjaopseoye/adminsession"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   adminsession.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   adminsession.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in output order.
var CounterDefs = []CounterDef{
	{ID: adminsession.MetricBootstrapRestored, Name: "adminsession_bootstrap_restored_total", Help: "Sessions restored from storage at start-up."},
	{ID: adminsession.MetricBootstrapEmpty, Name: "adminsession_bootstrap_empty_total", Help: "Start-ups without a stored session."},
	{ID: adminsession.MetricBootstrapPurged, Name: "adminsession_bootstrap_purged_total", Help: "Stored sessions purged as invalid or expired."},
	{ID: adminsession.MetricBootstrapReadError, Name: "adminsession_bootstrap_read_error_total", Help: "Start-ups that could not read session storage."},
	{ID: adminsession.MetricLoginSuccess, Name: "adminsession_login_success_total", Help: "Sessions recorded after login."},
	{ID: adminsession.MetricLoginFailure, Name: "adminsession_login_failure_total", Help: "Logins rejected or not persisted."},
	{ID: adminsession.MetricLogout, Name: "adminsession_logout_total", Help: "Logout operations."},
	{ID: adminsession.MetricInvalidated, Name: "adminsession_invalidated_total", Help: "Sessions ended by the backend or an expiry check."},
	{ID: adminsession.MetricExpiredOnAccess, Name: "adminsession_expired_on_access_total", Help: "Tokens found expired when building a request."},
}

// Audit dispatcher counters.  They are read from the manager directly rather
// than from a snapshot, so their IDs are unset.
var (
	AuditDropped = CounterDef{Name: "adminsession_audit_dropped_total", Help: "Audit events dropped because the buffer was full or the caller gave up."}
	AuditFailed  = CounterDef{Name: "adminsession_audit_failed_total", Help: "Audit events the sink rejected."}
)

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: adminsession.MetricStorageWriteLatency, Name: "adminsession_storage_write_latency_seconds", Help: "Session storage write latency."},
}

// HistogramBounds are the upper bounds of the histogram buckets in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix are HistogramBounds in a form usable in instrument
// names.
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

// NormalizeBuckets pads or truncates raw to exactly 8 buckets.
func NormalizeBuckets(raw []uint64) (out [8]uint64) {
	copy(out[:], raw)

	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [8]uint64) (out [8]uint64) {
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}

	return out
}
