package reminders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/frontdesk/internal/appointments"
	"github.com/wolfman30/frontdesk/pkg/logging"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type countingNotifier struct {
	mu    sync.Mutex
	calls map[uuid.UUID]int
	ok    bool
	panic bool
}

func newCountingNotifier() *countingNotifier {
	return &countingNotifier{calls: make(map[uuid.UUID]int), ok: true}
}

func (n *countingNotifier) Notify(_ context.Context, e *appointments.Entry, kind appointments.NotificationKind) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if kind != appointments.KindReminder {
		return false
	}
	n.calls[e.ID]++
	if n.panic {
		panic("mail transport crashed")
	}
	return n.ok
}

func (n *countingNotifier) setOK(ok bool) {
	n.mu.Lock()
	n.ok = ok
	n.mu.Unlock()
}

func (n *countingNotifier) count(id uuid.UUID) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[id]
}

type recordingEvents struct {
	mu    sync.Mutex
	types []string
}

func (r *recordingEvents) RecordEvent(_ context.Context, ev appointments.LifecycleEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, ev.Type)
	return nil
}

// Monday 2 March 2026, 12:00 UTC.
var testNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store    *appointments.MemoryStore
	clock    *fixedClock
	notifier *countingNotifier
	events   *recordingEvents
	sweeper  *Sweeper
	phone    int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    appointments.NewMemoryStore(),
		clock:    &fixedClock{now: testNow},
		notifier: newCountingNotifier(),
		events:   &recordingEvents{},
		phone:    5550000000,
	}
	rules := appointments.DefaultRules(time.UTC)
	f.sweeper = NewSweeper(f.store, f.notifier, rules, f.clock, logging.New("error")).WithEventRecorder(f.events)
	return f
}

// add stores an entry whose appointment starts at testNow+offset.
func (f *fixture) add(t *testing.T, offset time.Duration, status appointments.Status) *appointments.Entry {
	t.Helper()
	at := testNow.Add(offset)
	f.phone++
	e := &appointments.Entry{
		ID:                 uuid.New(),
		Name:               "Grace Hopper",
		Email:              "grace@example.com",
		Phone:              formatPhone(f.phone),
		Category:           appointments.CategoryStaff,
		Reason:             "Review",
		DesignatedAttendee: appointments.AttendeeMember1,
		AppointmentDate:    appointments.DateOf(at),
		AppointmentTime:    appointments.TimeOfDay{Hour: at.Hour(), Minute: at.Minute()},
		Status:             status,
		RescheduleToken:    uuid.NewString(),
		CreatedAt:          testNow,
		UpdatedAt:          testNow,
	}
	require.NoError(t, f.store.Create(context.Background(), e))
	return e
}

func (f *fixture) sent(t *testing.T, id uuid.UUID) bool {
	t.Helper()
	e, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	return e.ReminderSent
}

func formatPhone(n int) string {
	const digits = "0123456789"
	b := make([]byte, 10)
	for i := 9; i >= 0; i-- {
		b[i] = digits[n%10]
		n /= 10
	}
	return string(b)
}
