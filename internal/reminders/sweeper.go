package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/frontdesk/internal/appointments"
	"github.com/wolfman30/frontdesk/internal/observability/metrics"
	"github.com/wolfman30/frontdesk/pkg/logging"
)

var tracer = otel.Tracer("frontdesk.internal.reminders")

// DefaultLead is how long before an appointment the reminder goes out.
const DefaultLead = time.Hour

const actor = "system:reminders"

const releaseTimeout = 5 * time.Second

// Store is the slice of the appointment store the sweep needs.
type Store interface {
	ListReminderCandidates(ctx context.Context) ([]appointments.Entry, error)
	ClaimReminder(ctx context.Context, id uuid.UUID, date time.Time, t appointments.TimeOfDay, at time.Time) (bool, error)
	ResetReminder(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Candidate results, also used as metric labels.
const (
	ResultSent        = "sent"
	ResultFailed      = "failed"
	ResultLostClaim   = "lost_claim"
	ResultOutOfWindow = "out_of_window"
	ResultError       = "error"
)

// SweepResult summarises one pass over the candidates.
type SweepResult struct {
	Candidates int
	Sent       int
	Failed     int
	LostClaims int
	Skipped    int
	Errors     int
}

func (r *SweepResult) add(result string) {
	switch result {
	case ResultSent:
		r.Sent++
	case ResultFailed:
		r.Failed++
	case ResultLostClaim:
		r.LostClaims++
	case ResultOutOfWindow:
		r.Skipped++
	default:
		r.Errors++
	}
}

// Sweeper sends at most one reminder per appointment inside the lead window before it.
// The claim on reminder_sent is persisted before delivery and undone when delivery fails,
// so concurrent sweeps never double-send and failures retry on the next pass.
type Sweeper struct {
	store    Store
	notifier appointments.Notifier
	events   appointments.EventRecorder
	rules    appointments.Rules
	clock    appointments.Clock
	lead     time.Duration
	metrics  *metrics.ReminderMetrics
	logger   *logging.Logger
}

func NewSweeper(store Store, notifier appointments.Notifier, rules appointments.Rules, clock appointments.Clock, logger *logging.Logger) *Sweeper {
	if logger == nil {
		logger = logging.Default()
	}
	if clock == nil {
		clock = appointments.SystemClock{Location: rules.Location}
	}
	return &Sweeper{
		store:    store,
		notifier: notifier,
		rules:    rules,
		clock:    clock,
		lead:     DefaultLead,
		logger:   logger.Component("reminders"),
	}
}

func (s *Sweeper) WithLead(d time.Duration) *Sweeper {
	if d > 0 {
		s.lead = d
	}
	return s
}

func (s *Sweeper) WithEventRecorder(r appointments.EventRecorder) *Sweeper {
	s.events = r
	return s
}

func (s *Sweeper) WithMetrics(m *metrics.ReminderMetrics) *Sweeper {
	s.metrics = m
	return s
}

// Lead returns the configured reminder lead time.
func (s *Sweeper) Lead() time.Duration { return s.lead }

// InWindow reports whether now < instant <= now+lead.
func InWindow(instant, now time.Time, lead time.Duration) bool {
	return instant.After(now) && !instant.After(now.Add(lead))
}

// Sweep processes every candidate once. Only a failure to list candidates is returned;
// per-candidate problems are logged and counted.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	ctx, span := tracer.Start(ctx, "reminders.sweep")
	defer span.End()

	start := time.Now()
	var res SweepResult
	if s.store == nil || s.notifier == nil {
		return res, fmt.Errorf("reminders: sweeper not configured")
	}

	candidates, err := s.store.ListReminderCandidates(ctx)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveSweep("error", 0, time.Since(start), time.Now())
		return res, fmt.Errorf("reminders: list candidates: %w", err)
	}
	res.Candidates = len(candidates)
	span.SetAttributes(attribute.Int("frontdesk.reminder_candidates", len(candidates)))

	for i := range candidates {
		if ctx.Err() != nil {
			break
		}
		result := s.process(ctx, &candidates[i])
		res.add(result)
		s.metrics.ObserveCandidate(result)
	}

	span.SetAttributes(attribute.Int("frontdesk.reminders_sent", res.Sent), attribute.Int("frontdesk.reminders_failed", res.Failed))
	s.metrics.ObserveSweep("ok", res.Candidates, time.Since(start), time.Now())
	if res.Sent > 0 || res.Failed > 0 || res.Errors > 0 {
		s.logger.Info("reminders: sweep finished",
			"candidates", res.Candidates, "sent", res.Sent, "failed", res.Failed,
			"lost_claims", res.LostClaims, "errors", res.Errors)
	}
	return res, nil
}

func (s *Sweeper) process(ctx context.Context, e *appointments.Entry) (result string) {
	claimed := false
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("reminders: panic while processing candidate", "id", e.ID, "panic", fmt.Sprint(r))
			if claimed {
				s.release(ctx, e)
			}
			result = ResultError
		}
	}()

	if !e.Status.Remindable() || e.ReminderSent {
		return ResultOutOfWindow
	}
	now := s.clock.Now()
	instant := s.rules.Instant(e.AppointmentDate, e.AppointmentTime)
	if !InWindow(instant, now, s.lead) {
		return ResultOutOfWindow
	}

	// The claim only succeeds while the entry is still booked for the slot checked above.
	ok, err := s.store.ClaimReminder(ctx, e.ID, e.AppointmentDate, e.AppointmentTime, now)
	if err != nil {
		s.logger.Error("reminders: claim failed", "id", e.ID, "error", err)
		return ResultError
	}
	if !ok {
		return ResultLostClaim
	}
	claimed = true

	if !s.notifier.Notify(ctx, e, appointments.KindReminder) {
		s.release(ctx, e)
		s.record(ctx, e, appointments.EventReminderFailed)
		s.logger.Warn("reminders: delivery failed, will retry", "id", e.ID, "phone", logging.Last4(e.Phone))
		return ResultFailed
	}

	s.record(ctx, e, appointments.EventReminderSent)
	s.logger.Info("reminders: reminder sent", "id", e.ID, "appointment_at", instant)
	return ResultSent
}

// release re-arms a claimed reminder. It outlives ctx so a shutdown mid-send
// cannot leave the entry marked as reminded.
func (s *Sweeper) release(ctx context.Context, e *appointments.Entry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := s.store.ResetReminder(ctx, e.ID, s.clock.Now()); err != nil {
		s.logger.Error("reminders: reset after failure", "id", e.ID, "error", err)
	}
}

func (s *Sweeper) record(ctx context.Context, e *appointments.Entry, eventType string) {
	if s.events == nil {
		return
	}
	ev := appointments.LifecycleEvent{
		EntryID:    e.ID,
		Type:       eventType,
		FromStatus: e.Status,
		ToStatus:   e.Status,
		Actor:      actor,
		Details:    map[string]any{"appointment_date": appointments.FormatDate(e.AppointmentDate), "appointment_time": e.AppointmentTime.String()},
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := s.events.RecordEvent(ctx, ev); err != nil {
		s.logger.Warn("reminders: record event failed", "id", e.ID, "type", eventType, "error", err)
	}
}
