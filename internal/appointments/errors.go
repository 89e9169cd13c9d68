package appointments

import "errors"

var (
	// ErrNotFound is returned when no appointment or record matches.
	ErrNotFound = errors.New("appointment not found")

	// ErrDuplicatePhone is returned when a phone number already has an appointment.
	ErrDuplicatePhone = errors.New("an appointment with this phone number already exists")

	// ErrInvalidInput wraps field validation failures.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidDate is returned when a date falls outside the booking window.
	ErrInvalidDate = errors.New("invalid appointment date")

	// ErrInvalidTime is returned when a time falls outside opening hours.
	ErrInvalidTime = errors.New("invalid appointment time")

	// ErrInvalidAttendee is returned for an unknown designated attendee.
	ErrInvalidAttendee = errors.New("invalid designated attendee")

	// ErrInvalidCategory is returned for an unknown visitor category.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrInvalidStatus is returned for an unknown status value.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidStateTransition is returned when an operation is not allowed from the current status.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrInvalidToken is returned when a reschedule token matches no appointment.
	ErrInvalidToken = errors.New("invalid or expired reschedule link")

	// ErrNotCheckInEligible is returned when the appointment is not approved or rescheduled.
	ErrNotCheckInEligible = errors.New("appointment is not approved for check-in")

	// ErrAlreadyCheckedIn is returned on a second check-in for the same day.
	ErrAlreadyCheckedIn = errors.New("already checked in today")

	// ErrNoCheckIn is returned when checkout finds no check-in record.
	ErrNoCheckIn = errors.New("no check-in record for appointment")

	// ErrCheckInNotFound is returned when a check-in record id is unknown.
	ErrCheckInNotFound = errors.New("check-in record not found")
)
