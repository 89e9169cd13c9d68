package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/frontdesk/pkg/logging"
)

// CheckInService records visitors arriving and leaving.
type CheckInService struct {
	store  Store
	events EventRecorder
	rules  Rules
	clock  Clock
	logger *logging.Logger
}

// NewCheckInService creates a check-in service sharing the appointment store.
func NewCheckInService(store Store, rules Rules, clock Clock, logger *logging.Logger) *CheckInService {
	if logger == nil {
		logger = logging.Default()
	}
	if clock == nil {
		clock = SystemClock{Location: rules.Location}
	}
	return &CheckInService{
		store:  store,
		events: noopRecorder{},
		rules:  rules,
		clock:  clock,
		logger: logger.Component("checkins"),
	}
}

// WithEventRecorder records check-in history through r.
func (s *CheckInService) WithEventRecorder(r EventRecorder) *CheckInService {
	if r != nil {
		s.events = r
	}
	return s
}

// CheckInResult is a new check-in and the appointment it belongs to.
type CheckInResult struct {
	CheckIn *CheckIn
	Entry   *Entry
}

// CheckIn records a visitor's arrival by phone number. Only approved or rescheduled
// appointments are eligible, at most once per calendar day.
func (s *CheckInService) CheckIn(ctx context.Context, phone, remarks string) (*CheckInResult, error) {
	phone = DigitsOnly(phone)
	if phone == "" {
		return nil, fmt.Errorf("%w: phone number is required", ErrInvalidInput)
	}
	if len(phone) != 10 {
		return nil, fmt.Errorf("%w: phone number must be exactly 10 digits", ErrInvalidInput)
	}

	e, err := s.store.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: no appointment found with this phone number", ErrNotFound)
		}
		return nil, fmt.Errorf("appointments: check in: %w", err)
	}
	if e.Status != StatusApproved && e.Status != StatusRescheduled {
		return nil, fmt.Errorf("%w: status is %s", ErrNotCheckInEligible, e.Status)
	}

	now := s.clock.Now()
	start, end := s.rules.DayBounds(s.rules.Today(now))
	already, err := s.store.HasCheckInOn(ctx, e.ID, start, end)
	if err != nil {
		return nil, fmt.Errorf("appointments: check in: %w", err)
	}
	if already {
		return nil, ErrAlreadyCheckedIn
	}

	c := &CheckIn{
		ID:          uuid.New(),
		EntryID:     e.ID,
		InTime:      now,
		UserRemarks: strings.TrimSpace(remarks),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateCheckIn(ctx, c); err != nil {
		return nil, fmt.Errorf("appointments: check in: %w", err)
	}

	s.logger.Info("checkins: visitor checked in", "entry_id", e.ID, "phone", logging.Last4(phone))
	s.record(ctx, LifecycleEvent{EntryID: e.ID, Type: EventCheckedIn, Details: map[string]any{"check_in_id": c.ID.String()}})
	return &CheckInResult{CheckIn: c, Entry: e}, nil
}

// Checkout closes the latest check-in of an appointment.
func (s *CheckInService) Checkout(ctx context.Context, entryID uuid.UUID, attendeeRemarks string) (*CheckIn, error) {
	if _, err := s.store.Get(ctx, entryID); err != nil {
		return nil, err
	}
	c, err := s.store.LatestCheckIn(ctx, entryID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	c.OutTime = &now
	c.AttendeeRemarks = strings.TrimSpace(attendeeRemarks)
	c.UpdatedAt = now
	if err := s.store.UpdateCheckIn(ctx, c); err != nil {
		return nil, fmt.Errorf("appointments: checkout: %w", err)
	}

	s.logger.Info("checkins: visitor checked out", "entry_id", entryID, "check_in_id", c.ID)
	s.record(ctx, LifecycleEvent{EntryID: entryID, Type: EventCheckedOut, Details: map[string]any{"check_in_id": c.ID.String()}})
	return c, nil
}

// CheckInPatch edits a check-in record; nil fields are left unchanged.
type CheckInPatch struct {
	InTime          *time.Time
	OutTime         *time.Time
	UserRemarks     *string
	AttendeeRemarks *string
}

// UpdateRecord applies a staff correction to a check-in record.
func (s *CheckInService) UpdateRecord(ctx context.Context, id uuid.UUID, patch CheckInPatch) (*CheckIn, error) {
	c, err := s.store.GetCheckIn(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.InTime != nil {
		c.InTime = *patch.InTime
	}
	if patch.OutTime != nil {
		out := *patch.OutTime
		c.OutTime = &out
	}
	if patch.UserRemarks != nil {
		c.UserRemarks = strings.TrimSpace(*patch.UserRemarks)
	}
	if patch.AttendeeRemarks != nil {
		c.AttendeeRemarks = strings.TrimSpace(*patch.AttendeeRemarks)
	}
	if c.OutTime != nil && c.OutTime.Before(c.InTime) {
		return nil, fmt.Errorf("%w: out time is before in time", ErrInvalidInput)
	}
	c.UpdatedAt = s.clock.Now()
	if err := s.store.UpdateCheckIn(ctx, c); err != nil {
		if errors.Is(err, ErrCheckInNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("appointments: update check-in: %w", err)
	}
	s.record(ctx, LifecycleEvent{EntryID: c.EntryID, Type: EventCheckInEdited, Details: map[string]any{"check_in_id": c.ID.String()}})
	return c, nil
}

// List returns check-in records, limited to one civil date when day is non-nil.
func (s *CheckInService) List(ctx context.Context, day *time.Time) ([]CheckInView, error) {
	var filter CheckInFilter
	if day != nil {
		filter.From, filter.To = s.rules.DayBounds(*day)
	}
	return s.store.ListCheckIns(ctx, filter)
}

func (s *CheckInService) record(ctx context.Context, ev LifecycleEvent) {
	if ev.Actor == "" {
		ev.Actor = ActorFromContext(ctx)
	}
	if err := s.events.RecordEvent(ctx, ev); err != nil {
		s.logger.Warn("checkins: failed to record event", "entry_id", ev.EntryID, "event", ev.Type, "error", err)
	}
}
