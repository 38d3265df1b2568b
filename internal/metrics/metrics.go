// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tour_dashboard"

// Metrics holds the application collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	remoteRequests *prometheus.HistogramVec
	remoteErrors   *prometheus.CounterVec
	loads          *prometheus.CounterVec
	lastLoad       prometheus.Gauge
	loadedRecords  *prometheus.GaugeVec
	submissions    *prometheus.CounterVec
	wsClients      prometheus.Gauge
}

// New creates the collectors and registers them on a fresh registry together
// with the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		remoteRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "request_duration_seconds",
			Help:      "Duration of requests against the record service.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"collection", "method", "code"}),
		remoteErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "errors_total",
			Help:      "Requests against the record service that failed.",
		}, []string{"collection", "method"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "loads_total",
			Help:      "Dashboard load cycles by result.",
		}, []string{"result"}),
		lastLoad: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful load.",
		}),
		loadedRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "records",
			Help:      "Records held by the current view model per collection.",
		}, []string{"collection"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entries",
			Name:      "submissions_total",
			Help:      "Add-entry form submissions by result.",
		}, []string{"result"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "clients",
			Help:      "Connected WebSocket clients.",
		}),
	}

	reg.MustRegister(
		m.remoteRequests,
		m.remoteErrors,
		m.loads,
		m.lastLoad,
		m.loadedRecords,
		m.submissions,
		m.wsClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRemoteRequest records one request against the record service.
// status is 0 when the transport failed before a response arrived.
func (m *Metrics) ObserveRemoteRequest(collection, method string, status int, d time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.remoteRequests.WithLabelValues(collection, method, strconv.Itoa(status)).Observe(d.Seconds())
	if failed {
		m.remoteErrors.WithLabelValues(collection, method).Inc()
	}
}

// LoadSucceeded records a completed load and the record counts it produced.
func (m *Metrics) LoadSucceeded(at time.Time, users, calendarEntries, weeklyEntries int) {
	if m == nil {
		return
	}
	m.loads.WithLabelValues("success").Inc()
	m.lastLoad.Set(float64(at.Unix()))
	m.loadedRecords.WithLabelValues("users").Set(float64(users))
	m.loadedRecords.WithLabelValues("calendar_entries").Set(float64(calendarEntries))
	m.loadedRecords.WithLabelValues("weekly_entries").Set(float64(weeklyEntries))
}

// LoadFailed records a failed load.
func (m *Metrics) LoadFailed() {
	if m == nil {
		return
	}
	m.loads.WithLabelValues("error").Inc()
}

// LoadDiscarded records a load whose result was superseded by a newer one.
func (m *Metrics) LoadDiscarded() {
	if m == nil {
		return
	}
	m.loads.WithLabelValues("discarded").Inc()
}

// Submission records an add-entry submission with result
// "succeeded", "failed" or "invalid".
func (m *Metrics) Submission(result string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(result).Inc()
}

// SetWebSocketClients records the number of connected push clients.
func (m *Metrics) SetWebSocketClients(n int) {
	if m == nil {
		return
	}
	m.wsClients.Set(float64(n))
}
