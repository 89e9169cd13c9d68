package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReminderMetrics exposes reminder sweep counters.
type ReminderMetrics struct {
	sweeps     *prometheus.CounterVec
	reminders  *prometheus.CounterVec
	candidates prometheus.Gauge
	duration   prometheus.Histogram
	lastSweep  prometheus.Gauge
}

func NewReminderMetrics(reg prometheus.Registerer) *ReminderMetrics {
	m := &ReminderMetrics{
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "frontdesk",
			Subsystem: "reminders",
			Name:      "sweeps_total",
			Help:      "Reminder sweeps by outcome",
		}, []string{"outcome"}),
		reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "frontdesk",
			Subsystem: "reminders",
			Name:      "candidates_processed_total",
			Help:      "Reminder candidates by result",
		}, []string{"result"}),
		candidates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "frontdesk",
			Subsystem: "reminders",
			Name:      "candidates",
			Help:      "Candidates seen by the most recent sweep",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "frontdesk",
			Subsystem: "reminders",
			Name:      "sweep_duration_seconds",
			Help:      "Wall time of a reminder sweep",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		lastSweep: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "frontdesk",
			Subsystem: "reminders",
			Name:      "last_sweep_timestamp_seconds",
			Help:      "Unix time the last sweep finished",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.sweeps, m.reminders, m.candidates, m.duration, m.lastSweep)
	return m
}

// ObserveSweep records a finished sweep. outcome is "ok", "error" or "skipped".
func (m *ReminderMetrics) ObserveSweep(outcome string, candidates int, elapsed time.Duration, finished time.Time) {
	if m == nil {
		return
	}
	m.sweeps.WithLabelValues(outcome).Inc()
	if outcome == "skipped" {
		return
	}
	m.candidates.Set(float64(candidates))
	m.duration.Observe(elapsed.Seconds())
	m.lastSweep.Set(float64(finished.Unix()))
}

// ObserveCandidate records what happened to one candidate.
func (m *ReminderMetrics) ObserveCandidate(result string) {
	if m == nil {
		return
	}
	m.reminders.WithLabelValues(result).Inc()
}
