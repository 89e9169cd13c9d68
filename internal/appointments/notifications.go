package appointments

import (
	"context"

	"github.com/google/uuid"
)

// NotificationKind identifies an email template.
type NotificationKind string

const (
	KindCreated                 NotificationKind = "created"
	KindStaffNewBooking         NotificationKind = "staff_new_booking"
	KindApproved                NotificationKind = "approved"
	KindRejected                NotificationKind = "rejected"
	KindRescheduled             NotificationKind = "rescheduled"
	KindRescheduleProposed      NotificationKind = "reschedule_proposed"
	KindVisitorRescheduled      NotificationKind = "visitor_rescheduled"
	KindStaffVisitorRescheduled NotificationKind = "staff_visitor_rescheduled"
	KindReminder                NotificationKind = "reminder"
)

// NotificationKinds lists every kind; each must have a template.
var NotificationKinds = []NotificationKind{
	KindCreated,
	KindStaffNewBooking,
	KindApproved,
	KindRejected,
	KindRescheduled,
	KindRescheduleProposed,
	KindVisitorRescheduled,
	KindStaffVisitorRescheduled,
	KindReminder,
}

// statusNotifications maps a status set through SetStatus to its email.
// An empty kind means the status intentionally sends nothing.
var statusNotifications = map[Status]NotificationKind{
	StatusPending:           "",
	StatusApproved:          KindApproved,
	StatusRejected:          KindRejected,
	StatusRescheduled:       KindRescheduled,
	StatusPendingReschedule: "",
	StatusCompleted:         "",
}

// StatusNotification returns the email sent when an appointment moves to s.
func StatusNotification(s Status) (NotificationKind, bool) {
	kind := statusNotifications[s]
	return kind, kind != ""
}

// Notifier delivers an email for an appointment. It reports success and never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, e *Entry, kind NotificationKind) bool
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, e *Entry, kind NotificationKind) bool

func (f NotifierFunc) Notify(ctx context.Context, e *Entry, kind NotificationKind) bool {
	return f(ctx, e, kind)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, *Entry, NotificationKind) bool { return false }

// Event types written to the lifecycle history.
const (
	EventCreated            = "created"
	EventStatusChanged      = "status_changed"
	EventRescheduleProposed = "reschedule_proposed"
	EventRescheduleApproved = "reschedule_approved"
	EventVisitorRescheduled = "visitor_rescheduled"
	EventDeleted            = "deleted"
	EventCheckedIn          = "checked_in"
	EventCheckedOut         = "checked_out"
	EventCheckInEdited      = "check_in_edited"
	EventReminderSent       = "reminder_sent"
	EventReminderFailed     = "reminder_failed"
)

// LifecycleEvent is one entry in an appointment's history.
type LifecycleEvent struct {
	EntryID    uuid.UUID
	Type       string
	FromStatus Status
	ToStatus   Status
	Actor      string
	Details    map[string]any
}

// EventRecorder appends lifecycle events. Failures are logged by callers, never surfaced.
type EventRecorder interface {
	RecordEvent(ctx context.Context, ev LifecycleEvent) error
}

type noopRecorder struct{}

func (noopRecorder) RecordEvent(context.Context, LifecycleEvent) error { return nil }

type actorKey struct{}

// WithActor tags the context with who is performing an operation.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor set by WithActor, or "visitor".
func ActorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok && v != "" {
		return v
	}
	return "visitor"
}
