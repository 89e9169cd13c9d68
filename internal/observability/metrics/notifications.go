package metrics

import "github.com/prometheus/client_golang/prometheus"

// NotificationMetrics counts email notifications by kind and outcome.
type NotificationMetrics struct {
	total   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	m := &NotificationMetrics{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "frontdesk",
			Subsystem: "notify",
			Name:      "emails_total",
			Help:      "Email notifications by kind and outcome",
		}, []string{"kind", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "frontdesk",
			Subsystem: "notify",
			Name:      "send_latency_seconds",
			Help:      "Time spent handing a message to the mail provider",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.total, m.latency)
	return m
}

// ObserveSend records one delivery attempt. outcome is "sent", "failed" or "render_error".
func (m *NotificationMetrics) ObserveSend(kind, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.total.WithLabelValues(kind, outcome).Inc()
	if outcome != "render_error" {
		m.latency.WithLabelValues(kind).Observe(seconds)
	}
}
