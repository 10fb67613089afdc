// Package metrics exposes Prometheus instruments for crawls and the HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus instruments. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	CrawlsTotal         *prometheus.CounterVec
	CrawlDuration       *prometheus.HistogramVec
	NavigationRetries   prometheus.Counter
	CrawlsInFlight      prometheus.Gauge
	DroppedResolutions  *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	CacheLookups        *prometheus.CounterVec
}

// New registers every instrument on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CrawlsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mirror_crawls_total",
			Help: "Resolved crawls by platform and resolution path.",
		}, []string{"platform", "path", "success"}),
		CrawlDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mirror_crawl_duration_seconds",
			Help:    "Time from crawl start to resolution.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 15, 30, 60, 120},
		}, []string{"platform"}),
		NavigationRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "mirror_navigation_retries_total",
			Help: "Navigation attempts beyond the first.",
		}),
		CrawlsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "mirror_crawls_in_flight",
			Help: "Crawls started and not yet resolved.",
		}),
		DroppedResolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mirror_dropped_resolutions_total",
			Help: "Late resolution attempts ignored because the crawl was already resolved.",
		}, []string{"path"}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mirror_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mirror_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mirror_cache_lookups_total",
			Help: "Response cache lookups by result.",
		}, []string{"result"}),
	}
}

// NewRegistry returns a registry preloaded with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func (m *Metrics) CrawlStarted() {
	if m == nil {
		return
	}
	m.CrawlsInFlight.Inc()
}

// CrawlResolved records one resolved crawl.
func (m *Metrics) CrawlResolved(platform, path string, success bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.CrawlsInFlight.Dec()
	m.CrawlsTotal.WithLabelValues(platform, path, strconv.FormatBool(success)).Inc()
	m.CrawlDuration.WithLabelValues(platform).Observe(elapsed.Seconds())
}

func (m *Metrics) NavigationRetried() {
	if m == nil {
		return
	}
	m.NavigationRetries.Inc()
}

func (m *Metrics) ResolutionDropped(path string) {
	if m == nil {
		return
	}
	m.DroppedResolutions.WithLabelValues(path).Inc()
}

func (m *Metrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}
