package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBooksPendingAppointment(t *testing.T) {
	f := newFixture(t)

	res, err := f.service.Create(context.Background(), personal("5551234567"), booking(2, "15:30"))
	require.NoError(t, err)

	e := res.Entry
	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.Equal(t, StatusPending, e.Status)
	assert.Equal(t, day(2), e.AppointmentDate)
	assert.Equal(t, MustTimeOfDay("15:30"), e.AppointmentTime)
	assert.NotEmpty(t, e.RescheduleToken)
	assert.False(t, e.ReminderSent)
	assert.Equal(t, testNow, e.CreatedAt)
	assert.True(t, res.EmailSent)
	assert.True(t, res.StaffNotified)

	assert.Equal(t, 1, f.notifier.count(KindCreated))
	assert.Equal(t, 1, f.notifier.count(KindStaffNewBooking))
	assert.Equal(t, []string{EventCreated}, f.events.types())

	stored, err := f.store.Get(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.RescheduleToken, stored.RescheduleToken)
}

func TestCreateGeneratesDistinctTokens(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, "5550000001")
	b := f.book(t, "5550000002")
	assert.NotEqual(t, a.RescheduleToken, b.RescheduleToken)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestCreateRejectsDuplicatePhone(t *testing.T) {
	f := newFixture(t)
	f.book(t, "5551234567")

	_, err := f.service.Create(context.Background(), personal("5551234567"), booking(3, "11:00"))
	assert.ErrorIs(t, err, ErrDuplicatePhone)

	all, err := f.store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateToleratesEmailFailure(t *testing.T) {
	f := newFixture(t)
	f.notifier.fail[KindCreated] = true

	res, err := f.service.Create(context.Background(), personal("5551234567"), booking(1, "12:00"))
	require.NoError(t, err)
	assert.False(t, res.EmailSent)
	assert.True(t, res.StaffNotified)
}

func TestCreateValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(p *PersonalDetails, a *AppointmentDetails)
		want   error
	}{
		{"short name", func(p *PersonalDetails, _ *AppointmentDetails) { p.Name = "Al" }, ErrInvalidInput},
		{"digits in name", func(p *PersonalDetails, _ *AppointmentDetails) { p.Name = "J0hn Smith" }, ErrInvalidInput},
		{"name starting with hyphen", func(p *PersonalDetails, _ *AppointmentDetails) { p.Name = "-Ann" }, ErrInvalidInput},
		{"bad email", func(p *PersonalDetails, _ *AppointmentDetails) { p.Email = "not-an-email" }, ErrInvalidInput},
		{"nine digit phone", func(p *PersonalDetails, _ *AppointmentDetails) { p.Phone = "555123456" }, ErrInvalidInput},
		{"phone with letters", func(p *PersonalDetails, _ *AppointmentDetails) { p.Phone = "555123456x" }, ErrInvalidInput},
		{"unknown category", func(p *PersonalDetails, _ *AppointmentDetails) { p.Category = "guest" }, ErrInvalidCategory},
		{"missing reason", func(_ *PersonalDetails, a *AppointmentDetails) { a.Reason = "  " }, ErrInvalidInput},
		{"unknown attendee", func(_ *PersonalDetails, a *AppointmentDetails) { a.Attendee = "member9" }, ErrInvalidAttendee},
		{"missing date", func(_ *PersonalDetails, a *AppointmentDetails) { a.Date = time.Time{} }, ErrInvalidDate},
		{"yesterday", func(_ *PersonalDetails, a *AppointmentDetails) { a.Date = day(-1) }, ErrInvalidDate},
		{"eleven days out", func(_ *PersonalDetails, a *AppointmentDetails) { a.Date = day(11) }, ErrInvalidDate},
		{"before opening", func(_ *PersonalDetails, a *AppointmentDetails) { a.Time = MustTimeOfDay("09:59") }, ErrInvalidTime},
		{"after closing", func(_ *PersonalDetails, a *AppointmentDetails) { a.Time = MustTimeOfDay("22:01") }, ErrInvalidTime},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			p, a := personal("5551234567"), booking(1, "14:00")
			tc.mutate(&p, &a)

			_, err := f.service.Create(context.Background(), p, a)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, 0, f.notifier.count(KindCreated))
		})
	}
}

func TestCreateAcceptsWindowEdges(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Create(context.Background(), personal("5550000001"), booking(0, "10:00"))
	require.NoError(t, err)
	_, err = f.service.Create(context.Background(), personal("5550000002"), booking(10, "22:00"))
	require.NoError(t, err)

	p := personal("5550000003")
	p.Name = "Mary-Jane O'Neil"
	_, err = f.service.Create(context.Background(), p, booking(5, "12:00"))
	require.NoError(t, err)
}

func TestSetStatusNotifiesOnEveryCall(t *testing.T) {
	f := newFixture(t)
	e := f.book(t, "5551234567")

	first, err := f.service.SetStatus(context.Background(), e.ID, StatusApproved)
	require.NoError(t, err)
	second, err := f.service.SetStatus(context.Background(), e.ID, StatusApproved)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, first.PreviousStatus)
	assert.Equal(t, StatusApproved, second.PreviousStatus)
	assert.True(t, first.Notified && first.EmailSent)
	assert.True(t, second.Notified && second.EmailSent)
	assert.Equal(t, 2, f.notifier.count(KindApproved))
}

func TestSetStatusNotificationTable(t *testing.T) {
	cases := []struct {
		status Status
		kind   NotificationKind
	}{
		{StatusApproved, KindApproved},
		{StatusRejected, KindRejected},
		{StatusRescheduled, KindRescheduled},
		{StatusPending, ""},
		{StatusPendingReschedule, ""},
		{StatusCompleted, ""},
	}
	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			f := newFixture(t)
			e := f.book(t, "5551234567")
			before := len(f.notifier.kinds)

			res, err := f.service.SetStatus(context.Background(), e.ID, tc.status)
			require.NoError(t, err)
			assert.Equal(t, tc.status, res.Entry.Status)

			if tc.kind == "" {
				assert.False(t, res.Notified)
				assert.Len(t, f.notifier.kinds, before)
				return
			}
			assert.True(t, res.Notified)
			assert.Equal(t, 1, f.notifier.count(tc.kind))
		})
	}
}

func TestSetStatusReportsEmailFailure(t *testing.T) {
	f := newFixture(t)
	e := f.book(t, "5551234567")
	f.notifier.fail[KindRejected] = true

	res, err := f.service.SetStatus(context.Background(), e.ID, StatusRejected)
	require.NoError(t, err)
	assert.True(t, res.Notified)
	assert.False(t, res.EmailSent)

	stored, err := f.store.Get(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, stored.Status)
}

func TestSetStatusErrors(t *testing.T) {
	f := newFixture(t)
	e := f.book(t, "5551234567")

	_, err := f.service.SetStatus(context.Background(), uuid.New(), StatusApproved)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.service.SetStatus(context.Background(), e.ID, Status("archived"))
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestProposeRescheduleStagesSlotAndKeepsFirstOriginal(t *testing.T) {
	f := newFixture(t)
	e := f.bookWithStatus(t, "5551234567", StatusApproved)

	res, err := f.service.ProposeReschedule(context.Background(), e.ID, Slot{
		Date: day(4), Time: MustTimeOfDay("16:00"), Attendee: AttendeeMember2, Reason: "Attendee travelling",
	})
	require.NoError(t, err)
	got := res.Entry
	assert.Equal(t, StatusPendingReschedule, got.Status)
	require.NotNil(t, got.OriginalDate)
	assert.Equal(t, day(1), *got.OriginalDate)
	assert.Equal(t, MustTimeOfDay("14:00"), *got.OriginalTime)
	assert.Equal(t, day(4), *got.RescheduledDate)
	assert.Equal(t, MustTimeOfDay("16:00"), *got.RescheduledTime)
	assert.Equal(t, AttendeeMember2, got.DesignatedAttendee)
	assert.Equal(t, "Attendee travelling", got.RescheduleReason)
	assert.Equal(t, day(1), got.AppointmentDate, "slot only moves on approval")
	assert.Equal(t, 1, f.notifier.count(KindRescheduleProposed))

	_, err = f.service.ApproveReschedule(context.Background(), e.ID)
	require.NoError(t, err)
	res, err = f.service.ProposeReschedule(context.Background(), e.ID, Slot{
		Date: day(6), Time: MustTimeOfDay("11:00"), Attendee: AttendeeMember1,
	})
	require.NoError(t, err)
	assert.Equal(t, day(1), *res.Entry.OriginalDate, "original slot is written once")
	assert.Equal(t, MustTimeOfDay("14:00"), *res.Entry.OriginalTime)
}

func TestProposeRescheduleValidation(t *testing.T) {
	f := newFixture(t)
	e := f.book(t, "5551234567")

	_, err := f.service.ProposeReschedule(context.Background(), uuid.New(), Slot{Date: day(2), Time: MustTimeOfDay("12:00"), Attendee: AttendeeMember1})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.service.ProposeReschedule(context.Background(), e.ID, Slot{Date: day(12), Time: MustTimeOfDay("12:00"), Attendee: AttendeeMember1})
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = f.service.ProposeReschedule(context.Background(), e.ID, Slot{Date: day(2), Time: MustTimeOfDay("23:00"), Attendee: AttendeeMember1})
	assert.ErrorIs(t, err, ErrInvalidTime)

	stored, err := f.store.Get(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
	assert.Nil(t, stored.OriginalDate)
}

func TestApproveRescheduleRequiresPendingReschedule(t *testing.T) {
	for _, status := range []Status{StatusPending, StatusApproved, StatusRejected, StatusRescheduled, StatusCompleted} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t)
			e := f.bookWithStatus(t, "5551234567", status)

			_, err := f.service.ApproveReschedule(context.Background(), e.ID)
			assert.ErrorIs(t, err, ErrInvalidStateTransition)

			stored, err := f.store.Get(context.Background(), e.ID)
			require.NoError(t, err)
			assert.Equal(t, status, stored.Status)
		})
	}
}

func TestApproveRescheduleWithoutProposal(t *testing.T) {
	f := newFixture(t)
	e := f.bookWithStatus(t, "5551234567", StatusPendingReschedule)

	_, err := f.service.ApproveReschedule(context.Background(), e.ID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestApproveRescheduleMovesSlotAndRearmsReminder(t *testing.T) {
	f := newFixture(t)
	e := f.bookWithStatus(t, "5551234567", StatusApproved)
	claimed, err := f.store.ClaimReminder(context.Background(), e.ID, e.AppointmentDate, e.AppointmentTime, testNow)
	require.NoError(t, err)
	require.True(t, claimed)

	_, err = f.service.ProposeReschedule(context.Background(), e.ID, Slot{Date: day(3), Time: MustTimeOfDay("18:15"), Attendee: AttendeeMember2})
	require.NoError(t, err)
	res, err := f.service.ApproveReschedule(context.Background(), e.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusRescheduled, res.Entry.Status)
	assert.Equal(t, day(3), res.Entry.AppointmentDate)
	assert.Equal(t, MustTimeOfDay("18:15"), res.Entry.AppointmentTime)
	assert.Equal(t, 1, f.notifier.count(KindRescheduled))

	stored, err := f.store.Get(context.Background(), e.ID)
	require.NoError(t, err)
	assert.False(t, stored.ReminderSent, "new slot needs its own reminder")
	assert.Equal(t, day(1), *stored.OriginalDate)
}

func TestApproveRescheduleRejectsStaleProposal(t *testing.T) {
	f := newFixture(t)
	e := f.book(t, "5551234567")
	_, err := f.service.ProposeReschedule(context.Background(), e.ID, Slot{Date: day(1), Time: MustTimeOfDay("12:00"), Attendee: AttendeeMember1})
	require.NoError(t, err)

	f.clock.Advance(72 * time.Hour)
	_, err = f.service.ApproveReschedule(context.Background(), e.ID)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestVisitorRescheduleByToken(t *testing.T) {
	f := newFixture(t)
	e := f.bookWithStatus(t, "5551234567", StatusRejected)

	res, err := f.service.VisitorReschedule(context.Background(), e.RescheduleToken, Slot{
		Date: day(5), Time: MustTimeOfDay("19:00"), Attendee: AttendeeMember2, Reason: "New reason",
	})
	require.NoError(t, err)
	got := res.Entry
	assert.Equal(t, StatusRejected, res.PreviousStatus)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, day(5), got.AppointmentDate)
	assert.Equal(t, MustTimeOfDay("19:00"), got.AppointmentTime)
	assert.Equal(t, AttendeeMember2, got.DesignatedAttendee)
	assert.Equal(t, "New reason", got.Reason)
	assert.Nil(t, got.OriginalDate, "visitor path does not record the original slot")
	assert.Equal(t, 1, f.notifier.count(KindVisitorRescheduled))
	assert.Equal(t, 1, f.notifier.count(KindStaffVisitorRescheduled))
}

func TestVisitorRescheduleKeepsReasonWhenBlank(t *testing.T) {
	f := newFixture(t)
	e := f.book(t, "5551234567")

	res, err := f.service.VisitorReschedule(context.Background(), e.RescheduleToken, Slot{
		Date: day(2), Time: MustTimeOfDay("12:00"), Attendee: AttendeeMember1,
	})
	require.NoError(t, err)
	assert.Equal(t, "Thesis review", res.Entry.Reason)
}

func TestVisitorRescheduleErrors(t *testing.T) {
	f := newFixture(t)
	e := f.book(t, "5551234567")

	_, err := f.service.VisitorReschedule(context.Background(), uuid.NewString(), Slot{Date: day(2), Time: MustTimeOfDay("12:00"), Attendee: AttendeeMember1})
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = f.service.VisitorReschedule(context.Background(), e.RescheduleToken, Slot{Date: day(-1), Time: MustTimeOfDay("12:00"), Attendee: AttendeeMember1})
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = f.service.VisitorReschedule(context.Background(), e.RescheduleToken, Slot{Date: day(2), Time: MustTimeOfDay("08:00"), Attendee: AttendeeMember1})
	assert.ErrorIs(t, err, ErrInvalidTime)
}

func TestDeleteCascadesCheckIns(t *testing.T) {
	f := newFixture(t)
	e := f.bookWithStatus(t, "5551234567", StatusApproved)
	_, err := f.checkIns.CheckIn(context.Background(), "5551234567", "")
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(context.Background(), e.ID))

	_, err = f.store.Get(context.Background(), e.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	records, err := f.store.ListCheckIns(context.Background(), CheckInFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)

	assert.ErrorIs(t, f.service.Delete(context.Background(), e.ID), ErrNotFound)
}

func TestActorIsRecordedOnEvents(t *testing.T) {
	f := newFixture(t)
	e := f.book(t, "5551234567")

	ctx := WithActor(context.Background(), "receptionist:desk-1")
	_, err := f.service.SetStatus(ctx, e.ID, StatusApproved)
	require.NoError(t, err)

	require.Len(t, f.events.events, 2)
	assert.Equal(t, "visitor", f.events.events[0].Actor)
	assert.Equal(t, "receptionist:desk-1", f.events.events[1].Actor)
	assert.Equal(t, StatusPending, f.events.events[1].FromStatus)
	assert.Equal(t, StatusApproved, f.events.events[1].ToStatus)
}

func TestEveryStatusHasNotificationEntry(t *testing.T) {
	for _, s := range Statuses {
		_, ok := statusNotifications[s]
		assert.True(t, ok, "status %s missing from notification table", s)
	}
}
