// Package metrics exposes Prometheus instruments for registration, the
// reconciliation sweep and outbound notifications.
//
// All recording methods are safe on a nil *Metrics so components can run
// without instrumentation in tests.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "urltracker"

type Metrics struct {
	// SweepRunsTotal counts reconciliation sweeps by status (success, failure).
	SweepRunsTotal *prometheus.CounterVec

	// SweepDurationSeconds buckets are sized for full-collection scans.
	SweepDurationSeconds prometheus.Histogram

	SweepLastSuccessTimestamp prometheus.Gauge

	// TransitionsTotal counts persisted status changes by target status.
	TransitionsTotal *prometheus.CounterVec

	// NotificationsTotal counts expiry alerts by result (sent, failed).
	NotificationsTotal *prometheus.CounterVec

	// RegistrationsTotal counts registrations by result (created, existing).
	RegistrationsTotal *prometheus.CounterVec

	AllocationRetriesTotal prometheus.Counter

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SweepRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_runs_total",
			Help:      "Total number of reconciliation sweeps by status.",
		}, []string{"status"}),
		SweepDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of reconciliation sweeps.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 15, 60},
		}),
		SweepLastSuccessTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sweep_last_success_timestamp_seconds",
			Help:      "Unix timestamp of the last successful sweep.",
		}),
		TransitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Status changes persisted by the reconciler.",
		}, []string{"to"}),
		NotificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Expiry notifications by result.",
		}, []string{"result"}),
		RegistrationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "URL registrations by result.",
		}, []string{"result"}),
		AllocationRetriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "id_allocation_retries_total",
			Help:      "Inserts retried after losing an ID allocation race.",
		}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) RecordSweep(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.SweepRunsTotal.WithLabelValues(status).Inc()
	m.SweepDurationSeconds.Observe(duration.Seconds())
	if status == "success" {
		m.SweepLastSuccessTimestamp.SetToCurrentTime()
	}
}

func (m *Metrics) RecordTransition(to string) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(to).Inc()
}

func (m *Metrics) RecordNotification(result string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordRegistration(result string) {
	if m == nil {
		return
	}
	m.RegistrationsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordAllocationRetry() {
	if m == nil {
		return
	}
	m.AllocationRetriesTotal.Inc()
}

func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
