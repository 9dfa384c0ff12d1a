package instrumentation

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetricsRegistered(t *testing.T) {
	RefreshesTotal.WithLabelValues("ok").Inc()
	RecordEdition(42, true)

	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	want := map[string]bool{
		"marketpress_refreshes_total":   false,
		"marketpress_markets_published": false,
		"marketpress_demo_mode":         false,
	}
	for _, mf := range mfs {
		if _, ok := want[mf.GetName()]; ok {
			want[mf.GetName()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("Metric %s not registered", name)
		}
	}
}

func TestRecordEdition(t *testing.T) {
	RecordEdition(7, false)

	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		switch mf.GetName() {
		case "marketpress_markets_published":
			if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 7 {
				t.Errorf("Expected 7 published markets, got %f", got)
			}
		case "marketpress_demo_mode":
			if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 0 {
				t.Errorf("Expected demo mode 0, got %f", got)
			}
		}
	}
}
