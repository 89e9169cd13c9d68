package appointments

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

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

type recordingNotifier struct {
	mu    sync.Mutex
	kinds []NotificationKind
	fail  map[NotificationKind]bool
}

func (n *recordingNotifier) Notify(_ context.Context, _ *Entry, kind NotificationKind) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = append(n.kinds, kind)
	return !n.fail[kind]
}

func (n *recordingNotifier) count(kind NotificationKind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, k := range n.kinds {
		if k == kind {
			c++
		}
	}
	return c
}

type recordingEvents struct {
	mu     sync.Mutex
	events []LifecycleEvent
}

func (r *recordingEvents) RecordEvent(_ context.Context, ev LifecycleEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

// Monday 2 March 2026, 09:00 UTC.
var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store    *MemoryStore
	clock    *fixedClock
	notifier *recordingNotifier
	events   *recordingEvents
	service  *Service
	checkIns *CheckInService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    NewMemoryStore(),
		clock:    &fixedClock{now: testNow},
		notifier: &recordingNotifier{fail: map[NotificationKind]bool{}},
		events:   &recordingEvents{},
	}
	logger := logging.Default()
	rules := DefaultRules(time.UTC)
	f.service = NewService(f.store, f.notifier, rules, f.clock, logger).WithEventRecorder(f.events)
	f.checkIns = NewCheckInService(f.store, rules, f.clock, logger).WithEventRecorder(f.events)
	return f
}

func day(offset int) time.Time {
	return DateOf(testNow).AddDate(0, 0, offset)
}

func personal(phone string) PersonalDetails {
	return PersonalDetails{Name: "Ada Lovelace", Email: "ada@example.com", Phone: phone, Category: CategoryStudent}
}

func booking(offset int, at string) AppointmentDetails {
	return AppointmentDetails{
		Reason:   "Thesis review",
		Attendee: AttendeeMember1,
		Date:     day(offset),
		Time:     MustTimeOfDay(at),
	}
}

func (f *fixture) book(t *testing.T, phone string) *Entry {
	t.Helper()
	res, err := f.service.Create(context.Background(), personal(phone), booking(1, "14:00"))
	require.NoError(t, err)
	return res.Entry
}

func (f *fixture) bookWithStatus(t *testing.T, phone string, status Status) *Entry {
	t.Helper()
	e := f.book(t, phone)
	res, err := f.service.SetStatus(context.Background(), e.ID, status)
	require.NoError(t, err)
	return res.Entry
}
