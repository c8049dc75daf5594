package goSnap

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricSignInSuccess)

	if got := m.Value(MetricSignInSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("expected empty snapshot, got %v", snap.Counters)
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricSignInSuccess)
	m.Inc(MetricSignInSuccess)
	m.Inc(MetricSignInSuccess)

	if got := m.Value(MetricSignInSuccess); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricSnapSent)
	m.Observe(MetricRequestLatency, time.Millisecond)
	if m.Value(MetricSnapSent) != 0 || m.Enabled() || m.LatencyEnabled() {
		t.Fatalf("nil metrics must be inert")
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricRequestDispatched)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricRequestDispatched); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		5 * time.Millisecond,
		75 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		900 * time.Millisecond,
		2 * time.Second,
		4 * time.Second,
		9 * time.Second,
	}

	for _, d := range observations {
		m.Observe(MetricRequestLatency, d)
	}
	m.Observe(MetricSignInSuccess, time.Millisecond)

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricRequestLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}

	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
	if _, ok := snap.Histograms[MetricSignInSuccess]; ok {
		t.Fatalf("only request latency carries a histogram")
	}
}

func TestMetricsSnapshotConsistency(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	m.Inc(MetricSignInSuccess)
	m.Inc(MetricSignInFailure)
	m.Inc(MetricSignInFailure)
	m.Observe(MetricRequestLatency, 2*time.Millisecond)

	snap := m.Snapshot()

	if snap.Counters[MetricSignInSuccess] != 1 {
		t.Fatalf("expected MetricSignInSuccess=1 got %d", snap.Counters[MetricSignInSuccess])
	}
	if snap.Counters[MetricSignInFailure] != 2 {
		t.Fatalf("expected MetricSignInFailure=2 got %d", snap.Counters[MetricSignInFailure])
	}
	if _, ok := snap.Counters[MetricRequestLatency]; ok {
		t.Fatalf("latency must not appear as a counter")
	}
	if snap.Histograms[MetricRequestLatency][0] != 1 {
		t.Fatalf("expected first histogram bucket=1 got %d", snap.Histograms[MetricRequestLatency][0])
	}
}

func TestClientOperationsUpdateMetrics(t *testing.T) {
	c, ft, _ := signedInClient(t)
	ft.respond(EndpointLogout, http.StatusOK, `{}`)
	if err := c.SignOut(context.Background()); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	_ = c.UpdateSession(context.Background())

	snap := c.MetricsSnapshot()
	want := map[MetricID]uint64{
		MetricSignInSuccess:     1,
		MetricSignOut:           1,
		MetricRequestDispatched: 2,
		MetricRequestSuccess:    2,
		MetricNotAuthenticated:  1,
		MetricTokenCacheCleared: 3,
	}
	for id, v := range want {
		if snap.Counters[id] != v {
			t.Fatalf("metric %d expected %d got %d", id, v, snap.Counters[id])
		}
	}
}

func TestClientMetricsSnapshotEmptyWhenDisabled(t *testing.T) {
	c, _, _ := newTestClient(t, func(b *Builder) { b.WithMetricsEnabled(false) })
	c.metricInc(MetricSignOut)

	snap := c.MetricsSnapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}

	var nilClient *Client
	if snap := nilClient.MetricsSnapshot(); snap.Counters == nil || snap.Histograms == nil {
		t.Fatalf("nil client snapshot must have non-nil maps")
	}
}
