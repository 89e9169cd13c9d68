package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used by tests and database-less runs.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  map[uuid.UUID]*Entry
	checkIns map[uuid.UUID]*CheckIn
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:  make(map[uuid.UUID]*Entry),
		checkIns: make(map[uuid.UUID]*CheckIn),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Create(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.entries {
		if existing.Phone == e.Phone {
			return ErrDuplicatePhone
		}
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	s.entries[e.ID] = e.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.Clone(), nil
}

func (s *MemoryStore) GetByToken(_ context.Context, token string) (*Entry, error) {
	return s.find(func(e *Entry) bool { return e.RescheduleToken == token })
}

func (s *MemoryStore) GetByPhone(_ context.Context, phone string) (*Entry, error) {
	return s.find(func(e *Entry) bool { return e.Phone == phone })
}

func (s *MemoryStore) find(match func(*Entry) bool) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if match(e) {
			return e.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) List(_ context.Context) ([]Entry, error) {
	return s.collect(func(*Entry) bool { return true }), nil
}

func (s *MemoryStore) ListByStatus(_ context.Context, statuses ...Status) ([]Entry, error) {
	return s.collect(func(e *Entry) bool {
		for _, st := range statuses {
			if e.Status == st {
				return true
			}
		}
		return false
	}), nil
}

func (s *MemoryStore) ListReminderCandidates(_ context.Context) ([]Entry, error) {
	return s.collect(func(e *Entry) bool { return e.Status.Remindable() && !e.ReminderSent }), nil
}

func (s *MemoryStore) collect(match func(*Entry) bool) []Entry {
	s.mu.RLock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if match(e) {
			out = append(out, *e.Clone())
		}
	}
	s.mu.RUnlock()
	sortEntries(out)
	return out
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.AppointmentDate.Equal(b.AppointmentDate) {
			return a.AppointmentDate.Before(b.AppointmentDate)
		}
		if a.AppointmentTime != b.AppointmentTime {
			return a.AppointmentTime.Minutes() < b.AppointmentTime.Minutes()
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

func (s *MemoryStore) Update(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.entries[e.ID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range s.entries {
		if id != e.ID && other.Phone == e.Phone {
			return ErrDuplicatePhone
		}
	}
	next := e.Clone()
	next.ReminderSent = existing.ReminderSent
	next.CreatedAt = existing.CreatedAt
	s.entries[e.ID] = next
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return ErrNotFound
	}
	delete(s.entries, id)
	for cid, c := range s.checkIns {
		if c.EntryID == id {
			delete(s.checkIns, cid)
		}
	}
	return nil
}

func (s *MemoryStore) ClaimReminder(_ context.Context, id uuid.UUID, date time.Time, t TimeOfDay, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || e.ReminderSent || !e.Status.Remindable() {
		return false, nil
	}
	if FormatDate(e.AppointmentDate) != FormatDate(date) || e.AppointmentTime != t {
		return false, nil
	}
	e.ReminderSent = true
	e.UpdatedAt = at
	return true, nil
}

func (s *MemoryStore) ResetReminder(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return ErrNotFound
	}
	e.ReminderSent = false
	e.UpdatedAt = at
	return nil
}

func (s *MemoryStore) CreateCheckIn(_ context.Context, c *CheckIn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[c.EntryID]; !ok {
		return ErrNotFound
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	s.checkIns[c.ID] = c.Clone()
	return nil
}

func (s *MemoryStore) GetCheckIn(_ context.Context, id uuid.UUID) (*CheckIn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.checkIns[id]
	if !ok {
		return nil, ErrCheckInNotFound
	}
	return c.Clone(), nil
}

func (s *MemoryStore) HasCheckInOn(_ context.Context, entryID uuid.UUID, start, end time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.checkIns {
		if c.EntryID == entryID && !c.InTime.Before(start) && c.InTime.Before(end) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) LatestCheckIn(_ context.Context, entryID uuid.UUID) (*CheckIn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *CheckIn
	for _, c := range s.checkIns {
		if c.EntryID != entryID {
			continue
		}
		if latest == nil || c.InTime.After(latest.InTime) {
			latest = c
		}
	}
	if latest == nil {
		return nil, ErrNoCheckIn
	}
	return latest.Clone(), nil
}

func (s *MemoryStore) UpdateCheckIn(_ context.Context, c *CheckIn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.checkIns[c.ID]; !ok {
		return ErrCheckInNotFound
	}
	s.checkIns[c.ID] = c.Clone()
	return nil
}

func (s *MemoryStore) ListCheckIns(_ context.Context, filter CheckInFilter) ([]CheckInView, error) {
	s.mu.RLock()
	out := make([]CheckInView, 0)
	for _, c := range s.checkIns {
		if !filter.matches(c) {
			continue
		}
		view := CheckInView{CheckIn: *c.Clone()}
		if e, ok := s.entries[c.EntryID]; ok {
			view.Name, view.Phone, view.Email = e.Name, e.Phone, e.Email
		}
		out = append(out, view)
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].InTime.After(out[j].InTime) })
	return out, nil
}
