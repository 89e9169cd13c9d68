package reminders

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/frontdesk/internal/appointments"
)

// Upcoming is an appointment whose reminder window has not opened yet.
type Upcoming struct {
	EntryID         uuid.UUID             `json:"id"`
	Name            string                `json:"name"`
	Email           string                `json:"email"`
	Status          appointments.Status   `json:"status"`
	Attendee        appointments.Attendee `json:"designated_attendee"`
	AppointmentDate string                `json:"appointment_date"`
	AppointmentTime string                `json:"appointment_time"`
	AppointmentAt   time.Time             `json:"appointment_at"`
	ReminderAt      time.Time             `json:"reminder_at"`
}

// Upcoming lists unsent reminders whose window opens after now, soonest first.
func (s *Sweeper) Upcoming(ctx context.Context) ([]Upcoming, error) {
	candidates, err := s.store.ListReminderCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("reminders: list upcoming: %w", err)
	}
	return upcoming(candidates, s.rules, s.clock.Now(), s.lead), nil
}

func upcoming(entries []appointments.Entry, rules appointments.Rules, now time.Time, lead time.Duration) []Upcoming {
	out := make([]Upcoming, 0, len(entries))
	for _, e := range entries {
		if e.ReminderSent || !e.Status.Remindable() {
			continue
		}
		at := rules.Instant(e.AppointmentDate, e.AppointmentTime)
		remindAt := at.Add(-lead)
		if !remindAt.After(now) {
			continue
		}
		out = append(out, Upcoming{
			EntryID:         e.ID,
			Name:            e.Name,
			Email:           e.Email,
			Status:          e.Status,
			Attendee:        e.DesignatedAttendee,
			AppointmentDate: appointments.FormatDate(e.AppointmentDate),
			AppointmentTime: e.AppointmentTime.String(),
			AppointmentAt:   at,
			ReminderAt:      remindAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ReminderAt.Before(out[j].ReminderAt) })
	return out
}
