package appointments

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists appointments and their check-in records.
//
// Update writes every mutable column except reminder_sent, which only changes through
// ClaimReminder and ResetReminder so a full-row write never clobbers a concurrent claim.
type Store interface {
	Create(ctx context.Context, e *Entry) error
	Get(ctx context.Context, id uuid.UUID) (*Entry, error)
	GetByToken(ctx context.Context, token string) (*Entry, error)
	GetByPhone(ctx context.Context, phone string) (*Entry, error)
	List(ctx context.Context) ([]Entry, error)
	ListByStatus(ctx context.Context, statuses ...Status) ([]Entry, error)
	Update(ctx context.Context, e *Entry) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ListReminderCandidates returns remindable entries with reminder_sent = false.
	ListReminderCandidates(ctx context.Context) ([]Entry, error)
	// ClaimReminder flips reminder_sent false->true for a remindable entry still booked
	// at date and t, and reports whether this caller won the claim.
	ClaimReminder(ctx context.Context, id uuid.UUID, date time.Time, t TimeOfDay, at time.Time) (bool, error)
	// ResetReminder sets reminder_sent back to false.
	ResetReminder(ctx context.Context, id uuid.UUID, at time.Time) error

	CreateCheckIn(ctx context.Context, c *CheckIn) error
	GetCheckIn(ctx context.Context, id uuid.UUID) (*CheckIn, error)
	// HasCheckInOn reports whether the entry has a check-in with in_time in [start, end).
	HasCheckInOn(ctx context.Context, entryID uuid.UUID, start, end time.Time) (bool, error)
	LatestCheckIn(ctx context.Context, entryID uuid.UUID) (*CheckIn, error)
	UpdateCheckIn(ctx context.Context, c *CheckIn) error
	ListCheckIns(ctx context.Context, filter CheckInFilter) ([]CheckInView, error)
}

// CheckInFilter narrows the check-in report. A zero From/To lists everything.
// A record matches when created_at, in_time or out_time falls in [From, To).
type CheckInFilter struct {
	From time.Time
	To   time.Time
}

func (f CheckInFilter) matches(c *CheckIn) bool {
	if f.From.IsZero() && f.To.IsZero() {
		return true
	}
	in := func(t time.Time) bool { return !t.Before(f.From) && t.Before(f.To) }
	if in(c.CreatedAt) || in(c.InTime) {
		return true
	}
	return c.OutTime != nil && in(*c.OutTime)
}
