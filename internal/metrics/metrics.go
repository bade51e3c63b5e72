// Package metrics exposes engine activity as Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/verte-zerg/neurocursor/internal/session"
)

const namespace = "neurocursor"

// StateSource is read on every scrape for the gauge values.
type StateSource interface {
	State(now time.Time) session.State
}

// Metrics owns a private registry so tests and multiple engines do not collide.
type Metrics struct {
	registry *prometheus.Registry

	samples     prometheus.Counter
	focus       prometheus.Gauge
	stress      prometheus.Gauge
	spoken      *prometheus.CounterVec
	resets      *prometheus.CounterVec
	resetsEnded *prometheus.CounterVec
	sessions    prometheus.Counter
	archived    prometheus.Counter

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New registers every collector. src may be nil, in which case the
// state-derived gauges are omitted.
func New(src StateSource) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Telemetry samples ingested.",
		}),
		focus: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "focus_score",
			Help:      "Focus score of the latest sample (0-100).",
		}),
		stress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stress_score",
			Help:      "Stress score of the latest sample (0-100).",
		}),
		spoken: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coach_lines_total",
			Help:      "Coaching lines produced, by theme.",
		}, []string{"theme"}),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reset_requests_total",
			Help:      "Guided reset requests by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		resetsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_ended_total",
			Help:      "Guided resets ended, by how they ended.",
		}, []string{"how"}),
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Sessions started after the initial one.",
		}),
		archived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_archived_total",
			Help:      "Session reports exported to the archive.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.samples,
		m.focus,
		m.stress,
		m.spoken,
		m.resets,
		m.resetsEnded,
		m.sessions,
		m.archived,
		m.httpRequestsTotal,
		m.httpDuration,
	)
	if src != nil {
		m.registerState(src)
	}
	return m
}

func (m *Metrics) registerState(src StateSource) {
	gauge := func(name, help string, read func(session.State) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return read(src.State(time.Now())) })
	}
	m.registry.MustRegister(
		gauge("shield_hp", "Health shield level (0-100).", func(s session.State) float64 { return s.Shield }),
		gauge("break_charge", "Break charge (0-1).", func(s session.State) float64 { return s.Charge }),
		gauge("session_average_focus", "Average focus of the current session.", func(s session.State) float64 { return s.Stats.AverageFocus }),
		gauge("session_micro_stress_events", "Micro-stress events in the current session.", func(s session.State) float64 {
			return float64(s.Stats.MicroStressEvents)
		}),
		gauge("session_high_load_seconds", "Time in high load in the current session.", func(s session.State) float64 {
			return s.Stats.HighLoadDuration.Seconds()
		}),
		gauge("reset_active", "1 while a guided reset is running.", func(s session.State) float64 {
			if s.Reset.Active {
				return 1
			}
			return 0
		}),
	)
}

// Observe is a session.Listener.
func (m *Metrics) Observe(ev session.Event) {
	switch ev.Kind {
	case session.EventSample:
		m.samples.Inc()
		m.focus.Set(ev.Scores.FocusScore)
		m.stress.Set(ev.Scores.StressScore)
	case session.EventSpoke:
		m.spoken.WithLabelValues(ev.Theme.String()).Inc()
	case session.EventResetStarted:
		m.resets.WithLabelValues(string(ev.Trigger), "accepted").Inc()
	case session.EventResetRefused:
		m.resets.WithLabelValues(string(ev.Trigger), ev.Reason.String()).Inc()
	case session.EventResetEnded:
		how := "expired"
		if ev.Skipped {
			how = "skipped"
		}
		m.resetsEnded.WithLabelValues(how).Inc()
	case session.EventSessionStarted:
		m.sessions.Inc()
		if ev.Archived != nil {
			m.archived.Inc()
		}
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler records request counts and durations for route.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}
