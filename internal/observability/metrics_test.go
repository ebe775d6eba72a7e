package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// valueOf reads the current value of a single counter or gauge.
func valueOf(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	var pb dto.Metric
	if err := (<-ch).Write(&pb); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	switch {
	case pb.Counter != nil:
		return pb.Counter.GetValue()
	case pb.Gauge != nil:
		return pb.Gauge.GetValue()
	}
	t.Fatalf("unsupported metric type")
	return 0
}

func TestRecordRun(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordRun("SPY", "MOMENTUM_120", 250, 4, 0.12, 3*time.Millisecond, nil)
	m.RecordRun("SPY", "MOMENTUM_120", 0, 0, 0, 0, errors.New("bad input"))

	if got := valueOf(t, m.RunsTotal.WithLabelValues("MOMENTUM_120", "ok")); got != 1 {
		t.Errorf("ok runs: got %v", got)
	}
	if got := valueOf(t, m.RunsTotal.WithLabelValues("MOMENTUM_120", "error")); got != 1 {
		t.Errorf("error runs: got %v", got)
	}
	if got := valueOf(t, m.BarsProcessed); got != 250 {
		t.Errorf("bars: got %v", got)
	}
	if got := valueOf(t, m.TradesTotal.WithLabelValues("MOMENTUM_120")); got != 4 {
		t.Errorf("trades: got %v", got)
	}
	if got := valueOf(t, m.LastReturn.WithLabelValues("SPY", "MOMENTUM_120")); got != 0.12 {
		t.Errorf("last return: got %v", got)
	}
}

func TestRecordLookup(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordLookup(TierCache)
	m.RecordLookup(TierCache)
	m.RecordLookup(TierFetcher)

	if got := valueOf(t, m.CacheLookups.WithLabelValues(TierCache)); got != 2 {
		t.Errorf("cache lookups: got %v", got)
	}
	if got := valueOf(t, m.CacheLookups.WithLabelValues(TierStore)); got != 0 {
		t.Errorf("store lookups: got %v", got)
	}
}

func TestHandler(t *testing.T) {
	DefaultMetrics.RecordLookup(TierStore)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "backtest_lab_marketdata_lookups_total") {
		t.Error("default metrics not exposed")
	}
}
