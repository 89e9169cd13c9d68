package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNotificationMetricsCountsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewNotificationMetrics(reg)

	m.ObserveSend("approved", "sent", 0.2)
	m.ObserveSend("approved", "sent", 0.1)
	m.ObserveSend("reminder", "failed", 1.5)
	m.ObserveSend("created", "render_error", 0)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.total.WithLabelValues("approved", "sent")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.total.WithLabelValues("reminder", "failed")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.latency), "render errors are not timed")
}

func TestReminderMetricsSweep(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReminderMetrics(reg)
	finished := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	m.ObserveSweep("ok", 4, 120*time.Millisecond, finished)
	m.ObserveSweep("skipped", 0, 0, finished.Add(time.Minute))
	m.ObserveCandidate("sent")
	m.ObserveCandidate("sent")
	m.ObserveCandidate("out_of_window")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.sweeps.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.sweeps.WithLabelValues("skipped")))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.candidates))
	assert.Equal(t, float64(finished.Unix()), testutil.ToFloat64(m.lastSweep))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.reminders.WithLabelValues("sent")))
}

func TestMetricsNilSafe(t *testing.T) {
	var n *NotificationMetrics
	n.ObserveSend("approved", "sent", 0.1)

	var r *ReminderMetrics
	r.ObserveSweep("ok", 1, time.Second, time.Now())
	r.ObserveCandidate("sent")
}
