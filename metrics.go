package goSnap

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one client metric.
type MetricID uint16

const (
	// MetricSignInSuccess counts successful sign-ins.
	MetricSignInSuccess MetricID = iota
	// MetricSignInFailure counts failed sign-ins of any kind.
	MetricSignInFailure
	// MetricRestoreSuccess counts sessions restored from a stored auth token.
	MetricRestoreSuccess
	// MetricRestoreRejected counts restore attempts outside the freshness window or with bad input.
	MetricRestoreRejected
	// MetricSignOut counts local sign-outs.
	MetricSignOut
	// MetricSignOutRemoteFailure counts sign-outs whose remote notification failed.
	MetricSignOutRemoteFailure
	// MetricSessionUpdate counts successful session updates.
	MetricSessionUpdate
	// MetricSupersededCommit counts lifecycle results discarded after a newer change.
	MetricSupersededCommit
	// MetricRequestDispatched counts requests handed to the transport.
	MetricRequestDispatched
	// MetricRequestSuccess counts requests that completed without error.
	MetricRequestSuccess
	// MetricRequestNetworkFailure counts transport failures.
	MetricRequestNetworkFailure
	// MetricRequestRemoteRejected counts remote rejections after normalization.
	MetricRequestRemoteRejected
	// MetricRequestCanceled counts canceled requests.
	MetricRequestCanceled
	// MetricPreconditionViolation counts calls rejected before any I/O.
	MetricPreconditionViolation
	// MetricNotAuthenticated counts calls rejected for lack of a session.
	MetricNotAuthenticated
	// MetricMissingCredentials counts signed requests without credentials.
	MetricMissingCredentials
	// MetricSignatureCacheHit counts signatures served from the token cache.
	MetricSignatureCacheHit
	// MetricSignatureCacheMiss counts signatures computed and stored.
	MetricSignatureCacheMiss
	// MetricSignatureCacheError counts token cache backend errors.
	MetricSignatureCacheError
	// MetricTokenCacheCleared counts token cache clears.
	MetricTokenCacheCleared
	// MetricRegistrationStepSuccess counts completed registration steps.
	MetricRegistrationStepSuccess
	// MetricRegistrationStepFailure counts failed registration steps.
	MetricRegistrationStepFailure
	// MetricSnapSent counts snaps accepted by the service.
	MetricSnapSent
	// MetricSnapLoaded counts snap blobs loaded.
	MetricSnapLoaded
	// MetricEventsSent counts event batches reported.
	MetricEventsSent
	// MetricRequestLatency is the dispatch latency histogram.
	MetricRequestLatency
	metricIDCount
)

// LatencyBucketBounds are the inclusive upper bounds of the request latency
// histogram. A final overflow bucket catches everything slower.
var LatencyBucketBounds = [...]time.Duration{
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
	2500 * time.Millisecond,
	5 * time.Second,
}

const latencyBucketCount = len(LatencyBucketBounds) + 1

// counter sits on its own cache line so hot counters do not false-share.
type counter struct {
	n atomic.Uint64
	_ [56]byte
}

// Metrics holds lock-free operation counters and the request latency
// histogram. A nil or disabled Metrics ignores every update.
type Metrics struct {
	enabled bool
	latency bool

	counters [metricIDCount]counter
	buckets  [latencyBucketCount]atomic.Uint64
}

type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
		latency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool { return m != nil && m.enabled }

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool { return m != nil && m.latency }

func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount || id == MetricRequestLatency {
		return
	}
	m.counters[id].n.Add(1)
}

// Observe records d in the histogram of id. Only MetricRequestLatency has a
// histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricRequestLatency {
		return
	}
	m.buckets[latencyBucket(d)].Add(1)
}

// Value returns the current counter value of id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].n.Load()
}

// Snapshot copies every counter, and the latency histogram when enabled. The
// copy is not atomic across counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id != MetricRequestLatency {
			s.Counters[id] = m.counters[id].n.Load()
		}
	}
	if m.latency {
		hist := make([]uint64, latencyBucketCount)
		for i := range hist {
			hist[i] = m.buckets[i].Load()
		}
		s.Histograms[MetricRequestLatency] = hist
	}
	return s
}

func latencyBucket(d time.Duration) int {
	for i, bound := range LatencyBucketBounds {
		if d <= bound {
			return i
		}
	}
	return len(LatencyBucketBounds)
}
