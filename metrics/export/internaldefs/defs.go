package internaldefs

import (
	goSnap "github.com/MrEthical07/goSnap"
)

// CounterDef binds a goSnap counter to its exported name.
type CounterDef struct {
	ID   goSnap.MetricID
	Name string
	Help string
}

// HistogramDef binds a goSnap histogram to its exported name.
type HistogramDef struct {
	ID   goSnap.MetricID
	Name string
	Help string
}

// AuditDroppedName is the exported name of the audit drop counter.
const AuditDroppedName = "gosnap_audit_dropped_total"

// AuditDroppedHelp describes the audit drop counter.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goSnap.MetricSignInSuccess, Name: "gosnap_sign_in_success_total", Help: "Successful sign-ins."},
	{ID: goSnap.MetricSignInFailure, Name: "gosnap_sign_in_failure_total", Help: "Failed sign-ins."},
	{ID: goSnap.MetricRestoreSuccess, Name: "gosnap_restore_success_total", Help: "Sessions restored from a stored auth token."},
	{ID: goSnap.MetricRestoreRejected, Name: "gosnap_restore_rejected_total", Help: "Rejected session restorations."},
	{ID: goSnap.MetricSignOut, Name: "gosnap_sign_out_total", Help: "Local sign-outs."},
	{ID: goSnap.MetricSignOutRemoteFailure, Name: "gosnap_sign_out_remote_failure_total", Help: "Sign-outs whose remote notification failed."},
	{ID: goSnap.MetricSessionUpdate, Name: "gosnap_session_update_total", Help: "Successful session updates."},
	{ID: goSnap.MetricSupersededCommit, Name: "gosnap_superseded_commit_total", Help: "Lifecycle results discarded after a newer change."},
	{ID: goSnap.MetricRequestDispatched, Name: "gosnap_request_dispatched_total", Help: "Requests handed to the transport."},
	{ID: goSnap.MetricRequestSuccess, Name: "gosnap_request_success_total", Help: "Requests completed without error."},
	{ID: goSnap.MetricRequestNetworkFailure, Name: "gosnap_request_network_failure_total", Help: "Requests failed at the transport."},
	{ID: goSnap.MetricRequestRemoteRejected, Name: "gosnap_request_remote_rejected_total", Help: "Requests rejected by the remote service."},
	{ID: goSnap.MetricRequestCanceled, Name: "gosnap_request_canceled_total", Help: "Canceled requests."},
	{ID: goSnap.MetricPreconditionViolation, Name: "gosnap_precondition_violation_total", Help: "Calls rejected before any I/O."},
	{ID: goSnap.MetricNotAuthenticated, Name: "gosnap_not_authenticated_total", Help: "Calls rejected for lack of a session."},
	{ID: goSnap.MetricMissingCredentials, Name: "gosnap_missing_credentials_total", Help: "Signed requests attempted without credentials."},
	{ID: goSnap.MetricSignatureCacheHit, Name: "gosnap_signature_cache_hit_total", Help: "Signatures served from the token cache."},
	{ID: goSnap.MetricSignatureCacheMiss, Name: "gosnap_signature_cache_miss_total", Help: "Signatures computed and stored."},
	{ID: goSnap.MetricSignatureCacheError, Name: "gosnap_signature_cache_error_total", Help: "Token cache backend errors."},
	{ID: goSnap.MetricTokenCacheCleared, Name: "gosnap_token_cache_cleared_total", Help: "Token cache clears."},
	{ID: goSnap.MetricRegistrationStepSuccess, Name: "gosnap_registration_step_success_total", Help: "Completed registration steps."},
	{ID: goSnap.MetricRegistrationStepFailure, Name: "gosnap_registration_step_failure_total", Help: "Failed registration steps."},
	{ID: goSnap.MetricSnapSent, Name: "gosnap_snap_sent_total", Help: "Snaps accepted by the service."},
	{ID: goSnap.MetricSnapLoaded, Name: "gosnap_snap_loaded_total", Help: "Snap blobs loaded."},
	{ID: goSnap.MetricEventsSent, Name: "gosnap_events_sent_total", Help: "Event batches reported."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSnap.MetricRequestLatency, Name: "gosnap_request_latency_seconds", Help: "Request dispatch latency histogram."},
}

// HistogramBounds are the upper bounds of the latency buckets in seconds.
var HistogramBounds = []string{
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"5",
	"+Inf",
}

// HistogramBoundValues are HistogramBounds without the +Inf bucket.
var HistogramBoundValues = boundSeconds()

func boundSeconds() []float64 {
	out := make([]float64, len(goSnap.LatencyBucketBounds))
	for i, b := range goSnap.LatencyBucketBounds {
		out[i] = b.Seconds()
	}
	return out
}

// HistogramBoundSuffix are metric-name-safe forms of HistogramBounds.
var HistogramBoundSuffix = []string{
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size bucket array.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals, the form
// Prometheus and otel expect for "le" buckets.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
