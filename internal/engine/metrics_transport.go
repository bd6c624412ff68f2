package engine

import (
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the run's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration prometheus.Histogram
	findingsTotal   *prometheus.CounterVec
	pagesCrawled    prometheus.Counter

	requests  atomic.Int64
	durationN atomic.Int64
}

func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawlprobe_requests_total",
			Help: "Outgoing HTTP requests by method and outcome",
		},
		[]string{"method", "outcome"},
	)
	m.requestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "crawlprobe_request_duration_seconds",
		Help:    "Round-trip time of outgoing requests",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})
	m.findingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawlprobe_findings_total",
			Help: "Findings appended to the sink by kind",
		},
		[]string{"kind"},
	)
	m.pagesCrawled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crawlprobe_pages_crawled_total",
		Help: "Pages handed out by the traversal queue",
	})

	m.registry.MustRegister(m.requestsTotal, m.requestDuration, m.findingsTotal, m.pagesCrawled)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ObserveFinding(kind string) {
	if m == nil {
		return
	}
	m.findingsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObservePage() {
	if m == nil {
		return
	}
	m.pagesCrawled.Inc()
}

// Snapshot returns the number of requests that left the process and their
// cumulative round-trip time. Budget and boundary rejections are not counted.
func (m *Metrics) Snapshot() (int64, time.Duration) {
	if m == nil {
		return 0, 0
	}
	return m.requests.Load(), time.Duration(m.durationN.Load())
}

func (m *Metrics) observeRequest(method, outcome string, d time.Duration) {
	if outcome != "budget" && outcome != "blocked" {
		m.requests.Add(1)
		m.durationN.Add(d.Nanoseconds())
	}
	m.requestsTotal.WithLabelValues(method, outcome).Inc()
	m.requestDuration.Observe(d.Seconds())
}

// MetricsTransport records every round trip into Metrics.
type MetricsTransport struct {
	Base    http.RoundTripper
	Metrics *Metrics
}

func (t *MetricsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := baseTransport(t.Base).RoundTrip(req)
	if t.Metrics != nil {
		t.Metrics.observeRequest(req.Method, outcomeOf(resp, err), time.Since(start))
	}
	return resp, err
}

func outcomeOf(resp *http.Response, err error) string {
	switch {
	case errors.Is(err, ErrRequestBudgetExceeded):
		return "budget"
	case errors.Is(err, ErrCrossDomain):
		return "blocked"
	case err != nil:
		return "error"
	case resp == nil:
		return "error"
	default:
		return strconv.Itoa(resp.StatusCode/100) + "xx"
	}
}
