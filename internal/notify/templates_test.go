package notify

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/frontdesk/internal/appointments"
)

func sampleEntry() *appointments.Entry {
	return &appointments.Entry{
		ID:                 uuid.New(),
		Name:               "Ada Lovelace",
		Email:              "ada@example.com",
		Phone:              "5551234567",
		Category:           appointments.CategoryStudent,
		Reason:             "Thesis review",
		DesignatedAttendee: appointments.AttendeeMember2,
		AppointmentDate:    time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
		AppointmentTime:    appointments.MustTimeOfDay("15:30"),
		Status:             appointments.StatusApproved,
		RescheduleToken:    "0f8fad5b-d9cb-469f-a165-70867728950e",
	}
}

func TestEveryKindHasTemplate(t *testing.T) {
	for _, kind := range appointments.NotificationKinds {
		t.Run(string(kind), func(t *testing.T) {
			msg, err := Render(sampleEntry(), kind, "https://desk.example.com")
			require.NoError(t, err)
			assert.NotEmpty(t, msg.Subject)
			assert.Contains(t, msg.Body, "Ada Lovelace")
		})
	}
	assert.Len(t, emailTemplates, len(appointments.NotificationKinds))
}

func TestRenderUnknownKind(t *testing.T) {
	_, err := Render(sampleEntry(), appointments.NotificationKind("bogus"), "")
	assert.Error(t, err)
}

func TestRenderApproved(t *testing.T) {
	msg, err := Render(sampleEntry(), appointments.KindApproved, "https://desk.example.com")
	require.NoError(t, err)
	assert.Equal(t, "Appointment Approved - Confirmation", msg.Subject)
	assert.Contains(t, msg.Body, "Wednesday, 04 March 2026")
	assert.Contains(t, msg.Body, "3:30PM")
	assert.Contains(t, msg.Body, "Member 2")
	assert.False(t, msg.Staff)
}

func TestRenderRejectedCarriesRescheduleLink(t *testing.T) {
	msg, err := Render(sampleEntry(), appointments.KindRejected, "https://desk.example.com/")
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "https://desk.example.com/reschedule/0f8fad5b-d9cb-469f-a165-70867728950e/")
}

func TestRenderRescheduledIncludesOriginalSlot(t *testing.T) {
	e := sampleEntry()
	orig := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	origTime := appointments.MustTimeOfDay("10:00")
	e.OriginalDate, e.OriginalTime = &orig, &origTime
	e.RescheduleReason = "Attendee unavailable"

	msg, err := Render(e, appointments.KindRescheduled, "https://desk.example.com")
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "Originally booked for Monday, 02 March 2026 at 10:00AM.")
	assert.Contains(t, msg.Body, "Reason for the change: Attendee unavailable")

	e.OriginalDate, e.OriginalTime, e.RescheduleReason = nil, nil, ""
	msg, err = Render(e, appointments.KindRescheduled, "https://desk.example.com")
	require.NoError(t, err)
	assert.NotContains(t, msg.Body, "Originally booked")
}

func TestRenderProposalShowsProposedSlot(t *testing.T) {
	e := sampleEntry()
	proposed := time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)
	pt := appointments.MustTimeOfDay("11:15")
	e.RescheduledDate, e.RescheduledTime = &proposed, &pt

	msg, err := Render(e, appointments.KindRescheduleProposed, "https://desk.example.com")
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "Proposed: Friday, 06 March 2026 at 11:15AM")
}

func TestStaffKindsAreFlagged(t *testing.T) {
	for _, kind := range []appointments.NotificationKind{appointments.KindStaffNewBooking, appointments.KindStaffVisitorRescheduled} {
		msg, err := Render(sampleEntry(), kind, "")
		require.NoError(t, err)
		assert.True(t, msg.Staff, kind)
	}
}
