// Package metrics holds the Prometheus collectors of the dashboard.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tweetcompare"

// Comparison results.
const (
	ResultComputed = "computed"
	ResultCached   = "cached"
	ResultInvalid  = "invalid"
)

// Event publish results.
const (
	PublishOK    = "ok"
	PublishError = "error"
)

// Metrics is a set of collectors on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	activeRequests      prometheus.Gauge
	comparisonsTotal    *prometheus.CounterVec
	postsLoaded         prometheus.Gauge
	postsDropped        *prometheus.CounterVec
	eventsPublished     *prometheus.CounterVec
	serviceInfo         *prometheus.GaugeVec
}

func New(version string) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	m.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	m.activeRequests = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_active_requests",
		Help:      "Number of requests being served",
	})
	m.comparisonsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comparisons_total",
			Help:      "Comparisons served, by result",
		},
		[]string{"result"},
	)
	m.postsLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "posts_loaded",
		Help:      "Number of posts in the loaded post set",
	})
	m.postsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_dropped_total",
			Help:      "Source rows dropped at load, by reason",
		},
		[]string{"reason"},
	)
	m.eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Comparison events published, by result",
		},
		[]string{"result"},
	)
	m.serviceInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "service_info",
			Help:      "Service information",
		},
		[]string{"version"},
	)

	m.registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.activeRequests,
		m.comparisonsTotal,
		m.postsLoaded,
		m.postsDropped,
		m.eventsPublished,
		m.serviceInfo,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.serviceInfo.WithLabelValues(version).Set(1)

	return m
}

// Registry exposes the private registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus exposition handler for the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RequestStarted tracks an in-flight request; call the returned func when
// it completes.
func (m *Metrics) RequestStarted() func() {
	if m == nil {
		return func() {}
	}
	m.activeRequests.Inc()
	return m.activeRequests.Dec
}

// ObserveRequest records one completed HTTP request.
func (m *Metrics) ObserveRequest(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (m *Metrics) ObserveComparison(result string) {
	if m == nil {
		return
	}
	m.comparisonsTotal.WithLabelValues(result).Inc()
}

// ObserveLoad records the outcome of the startup load.
func (m *Metrics) ObserveLoad(kept, missingFlags, malformed int) {
	if m == nil {
		return
	}
	m.postsLoaded.Set(float64(kept))
	m.postsDropped.WithLabelValues("missing_flags").Add(float64(missingFlags))
	m.postsDropped.WithLabelValues("malformed").Add(float64(malformed))
}

func (m *Metrics) ObservePublish(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.eventsPublished.WithLabelValues(PublishError).Inc()
		return
	}
	m.eventsPublished.WithLabelValues(PublishOK).Inc()
}
