package appointments

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending           Status = "pending"
	StatusApproved          Status = "approved"
	StatusRejected          Status = "rejected"
	StatusRescheduled       Status = "rescheduled"
	StatusPendingReschedule Status = "pending_reschedule"
	StatusCompleted         Status = "completed"
)

// Statuses lists every status in display order.
var Statuses = []Status{
	StatusPending,
	StatusApproved,
	StatusRejected,
	StatusRescheduled,
	StatusPendingReschedule,
	StatusCompleted,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// RemindableStatuses are the statuses the reminder sweep considers.
var RemindableStatuses = []Status{StatusApproved, StatusRescheduled}

// Remindable reports whether an appointment in this status gets a reminder.
func (s Status) Remindable() bool {
	return s == StatusApproved || s == StatusRescheduled
}

// Category classifies the visitor.
type Category string

const (
	CategoryStudent  Category = "student"
	CategoryStaff    Category = "staff"
	CategoryEmployee Category = "employee"
	CategoryIntern   Category = "intern"
)

var categories = []Category{CategoryStudent, CategoryStaff, CategoryEmployee, CategoryIntern}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

// Attendee is the staff member a visitor asks to meet.
type Attendee string

const (
	AttendeeMember1 Attendee = "member1"
	AttendeeMember2 Attendee = "member2"
)

// AttendeeChoice is a selectable attendee with its display label.
type AttendeeChoice struct {
	Value Attendee `json:"value"`
	Label string   `json:"label"`
}

// Attendees lists the attendees a visitor may choose.
var Attendees = []AttendeeChoice{
	{Value: AttendeeMember1, Label: "Member 1"},
	{Value: AttendeeMember2, Label: "Member 2"},
}

// Valid reports whether a is one of the configured attendees.
func (a Attendee) Valid() bool {
	for _, c := range Attendees {
		if a == c.Value {
			return true
		}
	}
	return false
}

// Label returns the display name for the attendee.
func (a Attendee) Label() string {
	for _, c := range Attendees {
		if a == c.Value {
			return c.Label
		}
	}
	return string(a)
}

// Entry is an appointment booked by a visitor.
// Dates are civil dates stored as midnight UTC; times are wall-clock times in the
// configured timezone.
type Entry struct {
	ID                 uuid.UUID
	Name               string
	Email              string
	Phone              string
	Category           Category
	Reason             string
	DesignatedAttendee Attendee
	AppointmentDate    time.Time
	AppointmentTime    TimeOfDay
	DocumentRef        string
	Status             Status

	OriginalDate     *time.Time
	OriginalTime     *TimeOfDay
	RescheduledDate  *time.Time
	RescheduledTime  *TimeOfDay
	RescheduleReason string
	RescheduleToken  string

	ReminderSent bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.OriginalDate = cloneTime(e.OriginalDate)
	c.OriginalTime = cloneTimeOfDay(e.OriginalTime)
	c.RescheduledDate = cloneTime(e.RescheduledDate)
	c.RescheduledTime = cloneTimeOfDay(e.RescheduledTime)
	return &c
}

// CheckIn records a visitor arriving for, and leaving, an appointment.
type CheckIn struct {
	ID              uuid.UUID
	EntryID         uuid.UUID
	InTime          time.Time
	OutTime         *time.Time
	UserRemarks     string
	AttendeeRemarks string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Clone returns a deep copy of the check-in.
func (c *CheckIn) Clone() *CheckIn {
	if c == nil {
		return nil
	}
	out := *c
	out.OutTime = cloneTime(c.OutTime)
	return &out
}

// CheckInView is a check-in joined with the visitor it belongs to.
type CheckInView struct {
	CheckIn
	Name  string
	Phone string
	Email string
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneTimeOfDay(t *TimeOfDay) *TimeOfDay {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
