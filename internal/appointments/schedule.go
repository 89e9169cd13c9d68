package appointments

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time with minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "15:04" or "15:04:05". Seconds are dropped.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return TimeOfDay{}, fmt.Errorf("%w: %q is not HH:MM", ErrInvalidTime, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("%w: bad hour in %q", ErrInvalidTime, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || len(parts[1]) != 2 {
		return TimeOfDay{}, fmt.Errorf("%w: bad minute in %q", ErrInvalidTime, s)
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec < 0 || sec > 59 {
			return TimeOfDay{}, fmt.Errorf("%w: bad second in %q", ErrInvalidTime, s)
		}
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

// MustTimeOfDay is ParseTimeOfDay for constants; it panics on bad input.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Minutes returns minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// Kitchen formats the time as "3:04 PM" for emails.
func (t TimeOfDay) Kitchen() string {
	return time.Date(2000, 1, 1, t.Hour, t.Minute, 0, 0, time.UTC).Format(time.Kitchen)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ParseDate parses a YYYY-MM-DD civil date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not YYYY-MM-DD", ErrInvalidDate, s)
	}
	return d, nil
}

// DateOf returns the civil date of t in its own location, as midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate formats a civil date as YYYY-MM-DD.
func FormatDate(d time.Time) string {
	return d.Format(time.DateOnly)
}

// Rules holds the booking constraints and the canonical timezone.
type Rules struct {
	Location   *time.Location
	WindowDays int
	Opening    TimeOfDay
	Closing    TimeOfDay
}

// DefaultRules books up to 10 days ahead between 10:00 and 22:00.
func DefaultRules(loc *time.Location) Rules {
	if loc == nil {
		loc = time.UTC
	}
	return Rules{
		Location:   loc,
		WindowDays: 10,
		Opening:    TimeOfDay{Hour: 10},
		Closing:    TimeOfDay{Hour: 22},
	}
}

func (r Rules) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

// Today returns the current civil date in the canonical timezone.
func (r Rules) Today(now time.Time) time.Time {
	return DateOf(now.In(r.location()))
}

// Instant combines a civil date and wall-clock time in the canonical timezone.
func (r Rules) Instant(date time.Time, t TimeOfDay) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, r.location())
}

// DayBounds returns [start, end) of the civil date in the canonical timezone.
func (r Rules) DayBounds(date time.Time) (time.Time, time.Time) {
	start := r.Instant(date, TimeOfDay{})
	return start, start.AddDate(0, 0, 1)
}

// ValidateDate requires today <= date <= today+WindowDays.
func (r Rules) ValidateDate(now, date time.Time) error {
	today := r.Today(now)
	last := today.AddDate(0, 0, r.WindowDays)
	date = DateOf(date)
	if date.Before(today) {
		return fmt.Errorf("%w: %s is in the past", ErrInvalidDate, FormatDate(date))
	}
	if date.After(last) {
		return fmt.Errorf("%w: appointments can only be booked up to %d days in advance", ErrInvalidDate, r.WindowDays)
	}
	return nil
}

// ValidateTime requires Opening <= t <= Closing.
func (r Rules) ValidateTime(t TimeOfDay) error {
	if t.Minutes() < r.Opening.Minutes() || t.Minutes() > r.Closing.Minutes() {
		return fmt.Errorf("%w: appointments must be between %s and %s", ErrInvalidTime, r.Opening, r.Closing)
	}
	return nil
}

// ValidateSlot checks both date and time.
func (r Rules) ValidateSlot(now, date time.Time, t TimeOfDay) error {
	if err := r.ValidateDate(now, date); err != nil {
		return err
	}
	return r.ValidateTime(t)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in a fixed location.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Location)
}
