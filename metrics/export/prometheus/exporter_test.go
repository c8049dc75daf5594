package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goSnap "github.com/MrEthical07/goSnap"
	"github.com/MrEthical07/goSnap/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	snapshot goSnap.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goSnap.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                    { return f.dropped }

func TestCollectorCountsEveryDefinition(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goSnap.MetricsSnapshot{
			Counters:   map[goSnap.MetricID]uint64{},
			Histograms: map[goSnap.MetricID][]uint64{},
		},
	})

	want := len(internaldefs.CounterDefs) + len(internaldefs.HistogramDefs) + 1
	if got := testutil.CollectAndCount(c); got != want {
		t.Fatalf("expected %d metrics, got %d", want, got)
	}
}

func TestCollectorCounterValues(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goSnap.MetricsSnapshot{
			Counters: map[goSnap.MetricID]uint64{
				goSnap.MetricSignInSuccess: 7,
			},
			Histograms: map[goSnap.MetricID][]uint64{},
		},
		dropped: 2,
	})

	expected := `
# HELP gosnap_sign_in_success_total Successful sign-ins.
# TYPE gosnap_sign_in_success_total counter
gosnap_sign_in_success_total 7
# HELP gosnap_audit_dropped_total Dropped audit events due to dispatcher backpressure.
# TYPE gosnap_audit_dropped_total counter
gosnap_audit_dropped_total 2
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected), "gosnap_sign_in_success_total", "gosnap_audit_dropped_total"); err != nil {
		t.Fatalf("unexpected collector output: %v", err)
	}
}

func TestHandlerServesHistogram(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goSnap.MetricsSnapshot{
			Counters: map[goSnap.MetricID]uint64{goSnap.MetricRequestDispatched: 1},
			Histograms: map[goSnap.MetricID][]uint64{
				goSnap.MetricRequestLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	out := string(body)
	if !strings.Contains(out, `gosnap_request_latency_seconds_bucket{le="0.05"} 1`) {
		t.Fatalf("expected first histogram bucket, got:\n%s", out)
	}
	if !strings.Contains(out, `gosnap_request_latency_seconds_bucket{le="+Inf"} 36`) {
		t.Fatalf("expected +Inf cumulative bucket, got:\n%s", out)
	}
	if !strings.Contains(out, "gosnap_request_dispatched_total 1") {
		t.Fatalf("expected dispatched counter, got:\n%s", out)
	}
}

func TestBucketLabel(t *testing.T) {
	if got := BucketLabel(0); got != "0.05" {
		t.Fatalf("expected 0.05, got %q", got)
	}
	if got := BucketLabel(7); got != "+Inf" {
		t.Fatalf("expected +Inf, got %q", got)
	}
}
