package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/wolfman30/frontdesk/internal/appointments"
)

type emailTemplate struct {
	subject string
	body    string
	staff   bool
}

// Bodies are plain text. Every key must exist in the data map (missingkey=error).
var emailTemplates = map[appointments.NotificationKind]emailTemplate{
	appointments.KindCreated: {
		subject: "Appointment Scheduled Successfully",
		body: `Hello {{.Name}},

Your appointment has been scheduled and is pending review.

- Date: {{.Date}}
- Time: {{.Time}}
- Attendee: {{.Attendee}}
- Reason: {{.Reason}}

You will receive another email once a receptionist has reviewed it.
If you need to change the slot, use this link: {{.RescheduleURL}}

Appointment Management Team`,
	},
	appointments.KindStaffNewBooking: {
		staff:   true,
		subject: "New Appointment Booking: {{.Name}}",
		body: `New appointment booked by {{.Name}}.

- Date: {{.Date}}
- Time: {{.Time}}
- Category: {{.Category}}
- Attendee: {{.Attendee}}
- Phone: {{.Phone}}
- Email: {{.Email}}
- Reason: {{.Reason}}
{{- if .DocumentRef}}
- Document: {{.DocumentRef}}
{{- end}}

Review it on the reception dashboard.`,
	},
	appointments.KindApproved: {
		subject: "Appointment Approved - Confirmation",
		body: `Dear {{.Name}},

Your appointment has been approved.

- Date: {{.Date}}
- Time: {{.Time}}
- Attendee: {{.Attendee}}

Please arrive a few minutes early and check in at reception with your phone number.

Appointment Management Team`,
	},
	appointments.KindRejected: {
		subject: "Appointment Status Update - Alternative Options Available",
		body: `Dear {{.Name}},

We are unable to accommodate your appointment on {{.Date}} at {{.Time}}.

You can choose another slot using this link:
{{.RescheduleURL}}

We apologise for the inconvenience.

Appointment Management Team`,
	},
	appointments.KindRescheduled: {
		subject: "Appointment Rescheduled - New Time Confirmed",
		body: `Dear {{.Name}},

Your appointment has been rescheduled and confirmed.

New appointment:
- Date: {{.Date}}
- Time: {{.Time}}
- Attendee: {{.Attendee}}
{{- if .OriginalDate}}

Originally booked for {{.OriginalDate}} at {{.OriginalTime}}.
{{- end}}
{{- if .RescheduleReason}}
Reason for the change: {{.RescheduleReason}}
{{- end}}

If the new time does not suit you, pick another slot here:
{{.RescheduleURL}}

Appointment Management Team`,
	},
	appointments.KindRescheduleProposed: {
		subject: "Appointment Reschedule Proposal - Pending Your Approval",
		body: `Dear {{.Name}},

Our reception team has proposed a new time for your appointment.

Current booking: {{.Date}} at {{.Time}}
Proposed: {{.ProposedDate}} at {{.ProposedTime}} with {{.Attendee}}
{{- if .RescheduleReason}}
Reason: {{.RescheduleReason}}
{{- end}}

The change will be confirmed by email once approved. To choose a different slot yourself:
{{.RescheduleURL}}

Appointment Management Team`,
	},
	appointments.KindVisitorRescheduled: {
		subject: "Appointment Rescheduled Successfully",
		body: `Dear {{.Name}},

Your appointment has been successfully rescheduled.

New appointment details:
- Date: {{.Date}}
- Time: {{.Time}}
- Category: {{.Category}}
- Attendee: {{.Attendee}}

Your appointment is now pending approval. You will receive a confirmation email once approved.

Appointment Management Team`,
	},
	appointments.KindStaffVisitorRescheduled: {
		staff:   true,
		subject: "Appointment Rescheduled - Needs Approval",
		body: `Appointment rescheduled by {{.Name}}.

New details:
- Date: {{.Date}}
- Time: {{.Time}}
- Category: {{.Category}}
- Attendee: {{.Attendee}}
- Reason: {{.Reason}}

Please review and approve the new slot.`,
	},
	appointments.KindReminder: {
		subject: "Appointment Reminder",
		body: `Dear {{.Name}},

This is a reminder that your appointment is coming up.

- Date: {{.Date}}
- Time: {{.Time}}
- Attendee: {{.Attendee}}

Please check in at reception with your phone number when you arrive.

Appointment Management Team`,
	},
}

type compiledTemplate struct {
	subject *template.Template
	body    *template.Template
	staff   bool
}

var compiledTemplates = mustCompile(emailTemplates)

func mustCompile(src map[appointments.NotificationKind]emailTemplate) map[appointments.NotificationKind]compiledTemplate {
	out := make(map[appointments.NotificationKind]compiledTemplate, len(src))
	for kind, t := range src {
		out[kind] = compiledTemplate{
			subject: template.Must(template.New(string(kind) + ".subject").Option("missingkey=error").Parse(t.subject)),
			body:    template.Must(template.New(string(kind) + ".body").Option("missingkey=error").Parse(t.body)),
			staff:   t.staff,
		}
	}
	return out
}

// Rendered is a rendered email.
type Rendered struct {
	Subject string
	Body    string
	// Staff is true when the email goes to the staff address rather than the visitor.
	Staff bool
}

// Render builds the subject and body for an appointment. It has no side effects.
func Render(e *appointments.Entry, kind appointments.NotificationKind, baseURL string) (Rendered, error) {
	t, ok := compiledTemplates[kind]
	if !ok {
		return Rendered{}, fmt.Errorf("notify: no template for kind %q", kind)
	}
	data := templateData(e, baseURL)

	var subject, body bytes.Buffer
	if err := t.subject.Execute(&subject, data); err != nil {
		return Rendered{}, fmt.Errorf("notify: render %s subject: %w", kind, err)
	}
	if err := t.body.Execute(&body, data); err != nil {
		return Rendered{}, fmt.Errorf("notify: render %s body: %w", kind, err)
	}
	return Rendered{
		Subject: strings.TrimSpace(subject.String()),
		Body:    strings.TrimSpace(body.String()) + "\n",
		Staff:   t.staff,
	}, nil
}

const displayDate = "Monday, 02 January 2006"

func templateData(e *appointments.Entry, baseURL string) map[string]any {
	data := map[string]any{
		"Name":             e.Name,
		"Email":            e.Email,
		"Phone":            e.Phone,
		"Category":         string(e.Category),
		"Reason":           e.Reason,
		"Attendee":         e.DesignatedAttendee.Label(),
		"Date":             e.AppointmentDate.Format(displayDate),
		"Time":             e.AppointmentTime.Kitchen(),
		"Status":           string(e.Status),
		"DocumentRef":      e.DocumentRef,
		"RescheduleReason": e.RescheduleReason,
		"RescheduleURL":    RescheduleURL(baseURL, e.RescheduleToken),
		"OriginalDate":     "",
		"OriginalTime":     "",
		"ProposedDate":     "",
		"ProposedTime":     "",
	}
	if e.OriginalDate != nil && e.OriginalTime != nil {
		data["OriginalDate"] = e.OriginalDate.Format(displayDate)
		data["OriginalTime"] = e.OriginalTime.Kitchen()
	}
	if e.RescheduledDate != nil && e.RescheduledTime != nil {
		data["ProposedDate"] = e.RescheduledDate.Format(displayDate)
		data["ProposedTime"] = e.RescheduledTime.Kitchen()
	}
	return data
}

// RescheduleURL is the public self-service link for a token.
func RescheduleURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/reschedule/" + token + "/"
}
