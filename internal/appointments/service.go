package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/frontdesk/pkg/logging"
)

var tracer = otel.Tracer("frontdesk.internal.appointments")

// Service owns the appointment lifecycle.
type Service struct {
	store    Store
	notifier Notifier
	events   EventRecorder
	rules    Rules
	clock    Clock
	logger   *logging.Logger
}

// NewService wires the state machine. A nil notifier sends nothing.
func NewService(store Store, notifier Notifier, rules Rules, clock Clock, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if clock == nil {
		clock = SystemClock{Location: rules.Location}
	}
	return &Service{
		store:    store,
		notifier: notifier,
		events:   noopRecorder{},
		rules:    rules,
		clock:    clock,
		logger:   logger.Component("appointments"),
	}
}

// WithEventRecorder records lifecycle history through r.
func (s *Service) WithEventRecorder(r EventRecorder) *Service {
	if r != nil {
		s.events = r
	}
	return s
}

// Rules returns the booking constraints in force.
func (s *Service) Rules() Rules {
	return s.rules
}

// CreateResult reports a new booking and whether each email went out.
type CreateResult struct {
	Entry         *Entry
	EmailSent     bool
	StaffNotified bool
}

// TransitionResult reports a status change. Notified is false when the new status has no
// email; EmailSent is only meaningful when Notified is true.
type TransitionResult struct {
	Entry          *Entry
	PreviousStatus Status
	Notified       bool
	EmailSent      bool
}

// Create books a new pending appointment.
func (s *Service) Create(ctx context.Context, personal PersonalDetails, details AppointmentDetails) (*CreateResult, error) {
	ctx, span := tracer.Start(ctx, "appointments.create")
	defer span.End()

	personal.Normalize()
	if err := personal.Validate(); err != nil {
		return nil, err
	}
	details.Reason = strings.TrimSpace(details.Reason)
	if details.Reason == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrInvalidInput)
	}
	now := s.clock.Now()
	if err := validateSlotFields(s.rules, now, details.Date, details.Time, details.Attendee); err != nil {
		return nil, err
	}

	if _, err := s.store.GetByPhone(ctx, personal.Phone); err == nil {
		return nil, ErrDuplicatePhone
	} else if !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: create: %w", err)
	}

	e := &Entry{
		ID:                 uuid.New(),
		Name:               personal.Name,
		Email:              personal.Email,
		Phone:              personal.Phone,
		Category:           personal.Category,
		Reason:             details.Reason,
		DesignatedAttendee: details.Attendee,
		AppointmentDate:    DateOf(details.Date),
		AppointmentTime:    details.Time,
		DocumentRef:        strings.TrimSpace(details.DocumentRef),
		Status:             StatusPending,
		RescheduleToken:    uuid.NewString(),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.Create(ctx, e); err != nil {
		if errors.Is(err, ErrDuplicatePhone) {
			return nil, ErrDuplicatePhone
		}
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: create: %w", err)
	}
	span.SetAttributes(attribute.String("frontdesk.entry_id", e.ID.String()))

	s.logger.Info("appointments: created", "id", e.ID, "phone", logging.Last4(e.Phone),
		"date", FormatDate(e.AppointmentDate), "time", e.AppointmentTime.String())
	s.record(ctx, LifecycleEvent{EntryID: e.ID, Type: EventCreated, ToStatus: StatusPending})

	res := &CreateResult{Entry: e}
	res.EmailSent = s.notifier.Notify(ctx, e, KindCreated)
	res.StaffNotified = s.notifier.Notify(ctx, e, KindStaffNewBooking)
	return res, nil
}

// Get returns one appointment.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return s.store.Get(ctx, id)
}

// GetByToken resolves a public reschedule link.
func (s *Service) GetByToken(ctx context.Context, token string) (*Entry, error) {
	e, err := s.store.GetByToken(ctx, strings.TrimSpace(token))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidToken
	}
	return e, err
}

// List returns every appointment ordered by slot.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	return s.store.List(ctx)
}

// ListByStatus returns appointments in any of the given statuses.
func (s *Service) ListByStatus(ctx context.Context, statuses ...Status) ([]Entry, error) {
	return s.store.ListByStatus(ctx, statuses...)
}

// SetStatus moves an appointment to status and sends that status's email, if it has one.
// The email is sent on every call, including when the status is unchanged.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status Status) (*TransitionResult, error) {
	ctx, span := s.startSpan(ctx, "appointments.set_status", id)
	defer span.End()

	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := e.Status
	e.Status = status
	e.UpdatedAt = s.clock.Now()
	if err := s.store.Update(ctx, e); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: set status: %w", err)
	}

	s.logger.Info("appointments: status changed", "id", e.ID, "from", prev, "to", status)
	s.record(ctx, LifecycleEvent{EntryID: e.ID, Type: EventStatusChanged, FromStatus: prev, ToStatus: status})

	res := &TransitionResult{Entry: e, PreviousStatus: prev}
	if kind, ok := StatusNotification(status); ok {
		res.Notified = true
		res.EmailSent = s.notifier.Notify(ctx, e, kind)
	}
	return res, nil
}

// ProposeReschedule stages a new slot chosen by staff and waits for approval.
func (s *Service) ProposeReschedule(ctx context.Context, id uuid.UUID, slot Slot) (*TransitionResult, error) {
	ctx, span := s.startSpan(ctx, "appointments.propose_reschedule", id)
	defer span.End()

	now := s.clock.Now()
	if err := validateSlotFields(s.rules, now, slot.Date, slot.Time, slot.Attendee); err != nil {
		return nil, err
	}
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if e.OriginalDate == nil {
		d, t := e.AppointmentDate, e.AppointmentTime
		e.OriginalDate, e.OriginalTime = &d, &t
	}
	date, t := DateOf(slot.Date), slot.Time
	e.RescheduledDate, e.RescheduledTime = &date, &t
	e.DesignatedAttendee = slot.Attendee
	e.RescheduleReason = strings.TrimSpace(slot.Reason)
	prev := e.Status
	e.Status = StatusPendingReschedule
	e.UpdatedAt = now
	if err := s.store.Update(ctx, e); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: propose reschedule: %w", err)
	}

	s.logger.Info("appointments: reschedule proposed", "id", e.ID,
		"date", FormatDate(date), "time", t.String())
	s.record(ctx, LifecycleEvent{
		EntryID: e.ID, Type: EventRescheduleProposed, FromStatus: prev, ToStatus: e.Status,
		Details: map[string]any{"date": FormatDate(date), "time": t.String(), "reason": e.RescheduleReason},
	})

	res := &TransitionResult{Entry: e, PreviousStatus: prev, Notified: true}
	res.EmailSent = s.notifier.Notify(ctx, e, KindRescheduleProposed)
	return res, nil
}

// ApproveReschedule makes a staged proposal the booked slot.
func (s *Service) ApproveReschedule(ctx context.Context, id uuid.UUID) (*TransitionResult, error) {
	ctx, span := s.startSpan(ctx, "appointments.approve_reschedule", id)
	defer span.End()

	e, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status != StatusPendingReschedule || e.RescheduledDate == nil || e.RescheduledTime == nil {
		return nil, fmt.Errorf("%w: appointment is %s, not awaiting reschedule approval", ErrInvalidStateTransition, e.Status)
	}
	now := s.clock.Now()
	if err := s.rules.ValidateSlot(now, *e.RescheduledDate, *e.RescheduledTime); err != nil {
		return nil, err
	}

	prev := e.Status
	e.AppointmentDate = *e.RescheduledDate
	e.AppointmentTime = *e.RescheduledTime
	e.Status = StatusRescheduled
	e.UpdatedAt = now
	if err := s.store.Update(ctx, e); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: approve reschedule: %w", err)
	}
	s.rearmReminder(ctx, e)

	s.logger.Info("appointments: reschedule approved", "id", e.ID)
	s.record(ctx, LifecycleEvent{
		EntryID: e.ID, Type: EventRescheduleApproved, FromStatus: prev, ToStatus: e.Status,
		Details: map[string]any{"date": FormatDate(e.AppointmentDate), "time": e.AppointmentTime.String()},
	})

	res := &TransitionResult{Entry: e, PreviousStatus: prev, Notified: true}
	res.EmailSent = s.notifier.Notify(ctx, e, KindRescheduled)
	return res, nil
}

// VisitorReschedule applies a new slot chosen through the public link. The appointment goes
// straight back to pending; original_* is left alone.
func (s *Service) VisitorReschedule(ctx context.Context, token string, slot Slot) (*TransitionResult, error) {
	ctx, span := tracer.Start(ctx, "appointments.visitor_reschedule")
	defer span.End()

	e, err := s.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if err := validateSlotFields(s.rules, now, slot.Date, slot.Time, slot.Attendee); err != nil {
		return nil, err
	}

	prev := e.Status
	e.AppointmentDate = DateOf(slot.Date)
	e.AppointmentTime = slot.Time
	e.DesignatedAttendee = slot.Attendee
	if reason := strings.TrimSpace(slot.Reason); reason != "" {
		e.Reason = reason
	}
	e.Status = StatusPending
	e.UpdatedAt = now
	if err := s.store.Update(ctx, e); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: visitor reschedule: %w", err)
	}
	s.rearmReminder(ctx, e)

	s.logger.Info("appointments: visitor rescheduled", "id", e.ID,
		"date", FormatDate(e.AppointmentDate), "time", e.AppointmentTime.String())
	s.record(ctx, LifecycleEvent{
		EntryID: e.ID, Type: EventVisitorRescheduled, FromStatus: prev, ToStatus: e.Status,
		Details: map[string]any{"date": FormatDate(e.AppointmentDate), "time": e.AppointmentTime.String()},
	})

	res := &TransitionResult{Entry: e, PreviousStatus: prev, Notified: true}
	res.EmailSent = s.notifier.Notify(ctx, e, KindVisitorRescheduled)
	s.notifier.Notify(ctx, e, KindStaffVisitorRescheduled)
	return res, nil
}

// Delete removes an appointment and its check-in records.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.startSpan(ctx, "appointments.delete", id)
	defer span.End()

	e, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		span.RecordError(err)
		return fmt.Errorf("appointments: delete: %w", err)
	}
	s.logger.Info("appointments: deleted", "id", id)
	s.record(ctx, LifecycleEvent{EntryID: id, Type: EventDeleted, FromStatus: e.Status,
		Details: map[string]any{"name": e.Name}})
	return nil
}

// rearmReminder clears reminder_sent after the slot moves so the new slot gets its own reminder.
func (s *Service) rearmReminder(ctx context.Context, e *Entry) {
	if err := s.store.ResetReminder(ctx, e.ID, e.UpdatedAt); err != nil {
		s.logger.Error("appointments: failed to re-arm reminder", "id", e.ID, "error", err)
		return
	}
	e.ReminderSent = false
}

func (s *Service) record(ctx context.Context, ev LifecycleEvent) {
	if ev.Actor == "" {
		ev.Actor = ActorFromContext(ctx)
	}
	if err := s.events.RecordEvent(ctx, ev); err != nil {
		s.logger.Warn("appointments: failed to record event", "id", ev.EntryID, "event", ev.Type, "error", err)
	}
}

func (s *Service) startSpan(ctx context.Context, name string, id uuid.UUID) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, name)
	span.SetAttributes(attribute.String("frontdesk.entry_id", id.String()))
	return ctx, span
}
