package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/frontdesk/internal/appointments"
	"github.com/wolfman30/frontdesk/internal/observability/metrics"
	"github.com/wolfman30/frontdesk/pkg/logging"
)

// DispatcherConfig holds addressing for outbound email.
type DispatcherConfig struct {
	// StaffEmail receives staff-facing notifications. Empty disables them.
	StaffEmail string
	// PublicBaseURL prefixes reschedule links.
	PublicBaseURL string
	// SendTimeout bounds a single provider call. Zero means 15s.
	SendTimeout time.Duration
}

// Dispatcher renders and delivers appointment emails. It never returns an error:
// failures are logged, counted and reported as false.
type Dispatcher struct {
	sender  EmailSender
	cfg     DispatcherConfig
	metrics *metrics.NotificationMetrics
	logger  *logging.Logger
}

// NewDispatcher creates a dispatcher. A nil sender makes every send fail.
func NewDispatcher(sender EmailSender, cfg DispatcherConfig, m *metrics.NotificationMetrics, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	return &Dispatcher{sender: sender, cfg: cfg, metrics: m, logger: logger.Component("notify")}
}

var _ appointments.Notifier = (*Dispatcher)(nil)

// Notify sends the email for kind and reports whether the provider accepted it.
func (d *Dispatcher) Notify(ctx context.Context, e *appointments.Entry, kind appointments.NotificationKind) (ok bool) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notify: panic while sending", "kind", kind, "id", e.ID, "panic", fmt.Sprint(r))
			d.metrics.ObserveSend(string(kind), "failed", time.Since(start).Seconds())
			ok = false
		}
	}()

	msg, err := Render(e, kind, d.cfg.PublicBaseURL)
	if err != nil {
		d.logger.Error("notify: render failed", "kind", kind, "id", e.ID, "error", err)
		d.metrics.ObserveSend(string(kind), "render_error", 0)
		return false
	}

	to, toName := e.Email, e.Name
	if msg.Staff {
		to, toName = d.cfg.StaffEmail, ""
	}
	if to == "" || d.sender == nil {
		d.logger.Warn("notify: no recipient or sender configured", "kind", kind, "id", e.ID)
		d.metrics.ObserveSend(string(kind), "failed", 0)
		return false
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()
	err = d.sender.Send(sendCtx, EmailMessage{To: to, ToName: toName, Subject: msg.Subject, Body: msg.Body})
	elapsed := time.Since(start)
	if err != nil {
		d.logger.Error("notify: delivery failed", "kind", kind, "id", e.ID, "error", err)
		d.metrics.ObserveSend(string(kind), "failed", elapsed.Seconds())
		return false
	}

	d.logger.Info("notify: email sent", "kind", kind, "id", e.ID, "duration_ms", elapsed.Milliseconds())
	d.metrics.ObserveSend(string(kind), "sent", elapsed.Seconds())
	return true
}
