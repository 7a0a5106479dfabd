// Package metrics holds the Prometheus instruments of the taskmaster service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides observability for the roster service.
// All methods are safe on a nil receiver, so callers may run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP requests by method, route pattern and status
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Domain events by type, and event handler runs by type and outcome
	Events      *prometheus.CounterVec
	HandlerRuns *prometheus.CounterVec

	// Ids a best-effort bulk mark could not resolve
	SkippedIDs prometheus.Counter

	// Repository saves by outcome
	Saves        *prometheus.CounterVec
	SaveDuration prometheus.Histogram

	// Current roster size
	Students prometheus.Gauge
	Records  prometheus.Gauge

	// Background job runs by job and outcome
	JobRuns *prometheus.CounterVec
}

// New creates a Metrics instance registered on its own registry, together
// with the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmaster_http_requests_total",
			Help: "Total HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),

		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskmaster_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by method and route",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"method", "route"}),

		Events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmaster_roster_events_total",
			Help: "Total roster events by type",
		}, []string{"type"}),

		HandlerRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmaster_event_handler_runs_total",
			Help: "Total event handler runs by event type and outcome",
		}, []string{"type", "outcome"}),

		SkippedIDs: f.NewCounter(prometheus.CounterOpts{
			Name: "taskmaster_attendance_skipped_ids_total",
			Help: "Total national ids skipped by bulk attendance marks",
		}),

		Saves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmaster_roster_saves_total",
			Help: "Total roster saves by outcome",
		}, []string{"outcome"}), // outcome: "ok", "error"

		SaveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskmaster_roster_save_duration_seconds",
			Help:    "Duration of roster saves",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		Students: f.NewGauge(prometheus.GaugeOpts{
			Name: "taskmaster_roster_students",
			Help: "Number of students in the registry",
		}),

		Records: f.NewGauge(prometheus.GaugeOpts{
			Name: "taskmaster_roster_attendance_records",
			Help: "Number of records in the attendance ledger",
		}),

		JobRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmaster_job_runs_total",
			Help: "Total background job runs by job and outcome",
		}, []string{"job", "outcome"}),
	}
}

// Registry returns the registry the instruments live on.
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

// ObserveHTTPRequest records one served request.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// IncrementEvent records a roster event of the given type.
func (m *Metrics) IncrementEvent(eventType string) {
	if m != nil {
		m.Events.WithLabelValues(eventType).Inc()
	}
}

// ObserveEventHandler records one handler run. It matches the bus's
// OnHandled hook once the event type is converted to a string.
func (m *Metrics) ObserveEventHandler(eventType string, _ time.Duration, err error) {
	if m != nil {
		m.HandlerRuns.WithLabelValues(eventType, outcome(err)).Inc()
	}
}

// AddSkipped records ids skipped by a bulk mark.
func (m *Metrics) AddSkipped(n int) {
	if m != nil && n > 0 {
		m.SkippedIDs.Add(float64(n))
	}
}

// ObserveSave records a repository save.
func (m *Metrics) ObserveSave(err error, d time.Duration) {
	if m == nil {
		return
	}
	m.Saves.WithLabelValues(outcome(err)).Inc()
	m.SaveDuration.Observe(d.Seconds())
}

// ObserveJob records one background job run.
func (m *Metrics) ObserveJob(job string, err error) {
	if m != nil {
		m.JobRuns.WithLabelValues(job, outcome(err)).Inc()
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// SetRosterSize records the current registry and ledger sizes.
func (m *Metrics) SetRosterSize(students, records int) {
	if m == nil {
		return
	}
	m.Students.Set(float64(students))
	m.Records.Set(float64(records))
}
