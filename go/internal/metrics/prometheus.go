package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus implements Collector on a private registry.
type Prometheus struct {
	registry *prometheus.Registry

	deliveries       *prometheus.CounterVec
	deliveryDuration *prometheus.HistogramVec
	events           *prometheus.CounterVec
	eventDuration    *prometheus.HistogramVec
	transitions      *prometheus.CounterVec
	draws            prometheus.Counter
	marks            *prometheus.CounterVec
	finished         *prometheus.CounterVec
	drawsPerSession  prometheus.Histogram
	sessionDuration  prometheus.Histogram
	liveSessions     prometheus.Gauge
}

func NewPrometheus() *Prometheus {
	m := &Prometheus{
		registry: prometheus.NewRegistry(),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lotto",
			Name:      "deliveries_total",
			Help:      "Messages handed to the transport, by kind and status.",
		}, []string{"kind", "status"}),
		deliveryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lotto",
			Name:      "delivery_duration_seconds",
			Help:      "Time spent in a single transport send.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lotto",
			Name:      "events_published_total",
			Help:      "Domain events published, by type and status.",
		}, []string{"event_type", "status"}),
		eventDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lotto",
			Name:      "event_publish_duration_seconds",
			Help:      "Time spent publishing one domain event.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lotto",
			Name:      "session_transitions_total",
			Help:      "Session status transitions.",
		}, []string{"from", "to"}),
		draws: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lotto",
			Name:      "draws_total",
			Help:      "Numbers drawn across all sessions.",
		}),
		marks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lotto",
			Name:      "marks_total",
			Help:      "Mark attempts, by outcome.",
		}, []string{"outcome"}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lotto",
			Name:      "sessions_finished_total",
			Help:      "Finished sessions, by reason.",
		}, []string{"reason"}),
		drawsPerSession: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lotto",
			Name:      "session_draws",
			Help:      "Numbers drawn before a session finished.",
			Buckets:   prometheus.LinearBuckets(10, 10, 8),
		}),
		sessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lotto",
			Name:      "session_duration_seconds",
			Help:      "Wall time from creation to finish.",
			Buckets:   prometheus.ExponentialBuckets(30, 2, 8),
		}),
		liveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lotto",
			Name:      "live_sessions",
			Help:      "Sessions not yet finished.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.deliveries, m.deliveryDuration,
		m.events, m.eventDuration,
		m.transitions, m.draws, m.marks,
		m.finished, m.drawsPerSession, m.sessionDuration,
		m.liveSessions,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Prometheus) Registry() *prometheus.Registry {
	return m.registry
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func (m *Prometheus) RecordDelivery(kind string, success bool, duration time.Duration) {
	m.deliveries.WithLabelValues(kind, status(success)).Inc()
	m.deliveryDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func (m *Prometheus) RecordEventPublished(eventType string, success bool, duration time.Duration) {
	m.events.WithLabelValues(eventType, status(success)).Inc()
	m.eventDuration.WithLabelValues(eventType).Observe(duration.Seconds())
}

func (m *Prometheus) RecordTransition(from, to string) {
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Prometheus) RecordDraw() {
	m.draws.Inc()
}

func (m *Prometheus) RecordMark(accepted bool) {
	outcome := "accepted"
	if !accepted {
		outcome = "rejected"
	}
	m.marks.WithLabelValues(outcome).Inc()
}

func (m *Prometheus) RecordSessionFinished(reason string, draws int, duration time.Duration) {
	m.finished.WithLabelValues(reason).Inc()
	m.drawsPerSession.Observe(float64(draws))
	m.sessionDuration.Observe(duration.Seconds())
}

func (m *Prometheus) SetLiveSessions(n int) {
	m.liveSessions.Set(float64(n))
}
