package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// gathered returns the first sample value of the named family.
func gathered(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name || len(mf.GetMetric()) == 0 {
			continue
		}
		m := mf.GetMetric()[0]
		switch {
		case m.GetGauge() != nil:
			return m.GetGauge().GetValue()
		case m.GetCounter() != nil:
			return m.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %q not gathered", name)
	return 0
}

func TestCrawlResolved(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CrawlStarted()
	m.CrawlStarted()
	m.CrawlResolved("zhihu", "success", true, time.Second)

	if got := gathered(t, reg, "mirror_crawls_in_flight"); got != 1 {
		t.Errorf("in flight = %v, want 1", got)
	}
	if got := gathered(t, reg, "mirror_crawls_total"); got != 1 {
		t.Errorf("crawls_total = %v, want 1", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.CrawlStarted()
	m.CrawlResolved("unknown", "session_failure", false, 0)
	m.NavigationRetried()
	m.ResolutionDropped("handler_failure")
	m.ObserveHTTP("GET", "/health", 200, 0)
	m.CacheLookup(true)
}
