package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/frontdesk/internal/http/middleware"
	"github.com/wolfman30/frontdesk/pkg/logging"
)

const maxJSONBody = 1 << 20

// Handler serves the booking, reschedule and check-in endpoints.
type Handler struct {
	service  *Service
	checkIns *CheckInService
	logger   *logging.Logger
}

// NewHandler creates the appointments HTTP handler.
func NewHandler(service *Service, checkIns *CheckInService, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, checkIns: checkIns, logger: logger}
}

// RegisterPublicRoutes mounts the visitor-facing endpoints.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/api/attendees", h.listAttendees)
	r.Post("/api/appointments", h.createAppointment)
	r.Get("/api/reschedule/{token}", h.getRescheduleForm)
	r.Post("/api/reschedule/{token}", h.visitorReschedule)
	r.Post("/api/checkins", h.checkIn)
}

// RegisterStaffRoutes mounts the receptionist endpoints. Callers wrap them in session auth.
func (h *Handler) RegisterStaffRoutes(r chi.Router) {
	r.Get("/api/appointments", h.listAppointments)
	r.Put("/api/appointments/{id}/status", h.updateStatus)
	r.Post("/api/appointments/{id}/reschedule", h.proposeReschedule)
	r.Post("/api/appointments/{id}/reschedule/approve", h.approveReschedule)
	r.Delete("/api/appointments/{id}", h.deleteAppointment)
	r.Post("/api/appointments/{id}/checkout", h.checkout)
	r.Get("/api/checkins", h.listCheckIns)
	r.Patch("/api/checkins/{id}", h.updateCheckIn)
}

type createRequest struct {
	Name               string `json:"name"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	Category           string `json:"category"`
	Reason             string `json:"reason"`
	DesignatedAttendee string `json:"designated_attendee"`
	AppointmentDate    string `json:"appointment_date"`
	AppointmentTime    string `json:"appointment_time"`
	DocumentRef        string `json:"document_ref"`
}

type slotRequest struct {
	AppointmentDate    string `json:"appointment_date"`
	AppointmentTime    string `json:"appointment_time"`
	DesignatedAttendee string `json:"designated_attendee"`
	Reason             string `json:"reason"`
}

func (req slotRequest) slot() (Slot, error) {
	date, t, err := parseSlot(req.AppointmentDate, req.AppointmentTime)
	if err != nil {
		return Slot{}, err
	}
	return Slot{Date: date, Time: t, Attendee: Attendee(req.DesignatedAttendee), Reason: req.Reason}, nil
}

// parseSlot leaves an empty date as zero so validation reports it as missing.
func parseSlot(dateStr, timeStr string) (time.Time, TimeOfDay, error) {
	var date time.Time
	if dateStr != "" {
		d, err := ParseDate(dateStr)
		if err != nil {
			return time.Time{}, TimeOfDay{}, err
		}
		date = d
	}
	t, err := ParseTimeOfDay(timeStr)
	if err != nil {
		return time.Time{}, TimeOfDay{}, err
	}
	return date, t, nil
}

type statusRequest struct {
	Status string `json:"status"`
}

type entryResponse struct {
	ID                      uuid.UUID `json:"id"`
	Name                    string    `json:"name"`
	Email                   string    `json:"email"`
	Phone                   string    `json:"phone"`
	Category                Category  `json:"category"`
	Reason                  string    `json:"reason"`
	DesignatedAttendee      Attendee  `json:"designated_attendee"`
	DesignatedAttendeeLabel string    `json:"designated_attendee_label"`
	AppointmentDate         string    `json:"appointment_date"`
	AppointmentTime         string    `json:"appointment_time"`
	DocumentRef             string    `json:"document_ref,omitempty"`
	Status                  Status    `json:"status"`
	OriginalDate            string    `json:"original_date,omitempty"`
	OriginalTime            string    `json:"original_time,omitempty"`
	RescheduledDate         string    `json:"rescheduled_date,omitempty"`
	RescheduledTime         string    `json:"rescheduled_time,omitempty"`
	RescheduleReason        string    `json:"reschedule_reason,omitempty"`
	ReminderSent            bool      `json:"reminder_sent"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

func toEntryResponse(e *Entry) entryResponse {
	resp := entryResponse{
		ID:                      e.ID,
		Name:                    e.Name,
		Email:                   e.Email,
		Phone:                   e.Phone,
		Category:                e.Category,
		Reason:                  e.Reason,
		DesignatedAttendee:      e.DesignatedAttendee,
		DesignatedAttendeeLabel: e.DesignatedAttendee.Label(),
		AppointmentDate:         FormatDate(e.AppointmentDate),
		AppointmentTime:         e.AppointmentTime.String(),
		DocumentRef:             e.DocumentRef,
		Status:                  e.Status,
		RescheduleReason:        e.RescheduleReason,
		ReminderSent:            e.ReminderSent,
		CreatedAt:               e.CreatedAt,
		UpdatedAt:               e.UpdatedAt,
	}
	if e.OriginalDate != nil {
		resp.OriginalDate = FormatDate(*e.OriginalDate)
	}
	if e.OriginalTime != nil {
		resp.OriginalTime = e.OriginalTime.String()
	}
	if e.RescheduledDate != nil {
		resp.RescheduledDate = FormatDate(*e.RescheduledDate)
	}
	if e.RescheduledTime != nil {
		resp.RescheduledTime = e.RescheduledTime.String()
	}
	return resp
}

func (h *Handler) listAttendees(w http.ResponseWriter, r *http.Request) {
	rules := h.service.Rules()
	today := rules.Today(h.service.clock.Now())
	writeJSON(w, http.StatusOK, map[string]any{
		"attendees":  Attendees,
		"categories": categories,
		"booking_window": map[string]string{
			"from":    FormatDate(today),
			"to":      FormatDate(today.AddDate(0, 0, rules.WindowDays)),
			"opening": rules.Opening.String(),
			"closing": rules.Closing.String(),
		},
	})
}

func (h *Handler) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	date, t, err := parseSlot(req.AppointmentDate, req.AppointmentTime)
	if err != nil {
		h.writeError(w, "create appointment", err)
		return
	}
	res, err := h.service.Create(r.Context(),
		PersonalDetails{Name: req.Name, Email: req.Email, Phone: req.Phone, Category: Category(req.Category)},
		AppointmentDetails{
			Reason:      req.Reason,
			Attendee:    Attendee(req.DesignatedAttendee),
			Date:        date,
			Time:        t,
			DocumentRef: req.DocumentRef,
		},
	)
	if err != nil {
		h.writeError(w, "create appointment", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":     true,
		"email_sent":  res.EmailSent,
		"message":     "Appointment booked successfully. You will receive an email once it is reviewed.",
		"appointment": toEntryResponse(res.Entry),
	})
}

func (h *Handler) listAppointments(w http.ResponseWriter, r *http.Request) {
	var (
		entries []Entry
		err     error
	)
	if st := r.URL.Query().Get("status"); st != "" {
		if !Status(st).Valid() {
			h.writeError(w, "list appointments", ErrInvalidStatus)
			return
		}
		entries, err = h.service.ListByStatus(r.Context(), Status(st))
	} else {
		entries, err = h.service.List(r.Context())
	}
	if err != nil {
		h.writeError(w, "list appointments", err)
		return
	}
	out := make([]entryResponse, len(entries))
	for i := range entries {
		out[i] = toEntryResponse(&entries[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": out, "count": len(out)})
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.service.SetStatus(staffContext(r), id, Status(req.Status))
	if err != nil {
		h.writeError(w, "update status", err)
		return
	}
	h.writeTransition(w, res, "Status updated to "+string(res.Entry.Status)+".")
}

func (h *Handler) proposeReschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	var req slotRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	slot, err := req.slot()
	if err != nil {
		h.writeError(w, "propose reschedule", err)
		return
	}
	res, err := h.service.ProposeReschedule(staffContext(r), id, slot)
	if err != nil {
		h.writeError(w, "propose reschedule", err)
		return
	}
	h.writeTransition(w, res, "Reschedule proposed; awaiting approval.")
}

func (h *Handler) approveReschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	res, err := h.service.ApproveReschedule(staffContext(r), id)
	if err != nil {
		h.writeError(w, "approve reschedule", err)
		return
	}
	h.writeTransition(w, res, "Reschedule approved.")
}

func (h *Handler) deleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(staffContext(r), id); err != nil {
		h.writeError(w, "delete appointment", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Appointment deleted."})
}

func (h *Handler) getRescheduleForm(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.GetByToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.writeError(w, "reschedule form", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":                e.Name,
		"status":              e.Status,
		"reason":              e.Reason,
		"appointment_date":    FormatDate(e.AppointmentDate),
		"appointment_time":    e.AppointmentTime.String(),
		"designated_attendee": e.DesignatedAttendee,
		"attendees":           Attendees,
	})
}

func (h *Handler) visitorReschedule(w http.ResponseWriter, r *http.Request) {
	var req slotRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	slot, err := req.slot()
	if err != nil {
		h.writeError(w, "visitor reschedule", err)
		return
	}
	res, err := h.service.VisitorReschedule(r.Context(), chi.URLParam(r, "token"), slot)
	if err != nil {
		h.writeError(w, "visitor reschedule", err)
		return
	}
	h.writeTransition(w, res, "Appointment rescheduled; it is pending approval again.")
}

func (h *Handler) writeTransition(w http.ResponseWriter, res *TransitionResult, message string) {
	if res.Notified && !res.EmailSent {
		message += " The notification email could not be sent."
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"email_sent":  res.EmailSent,
		"message":     message,
		"appointment": toEntryResponse(res.Entry),
	})
}

func (h *Handler) entryID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_id", "invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

// staffContext tags the request context with the signed-in staff member.
func staffContext(r *http.Request) context.Context {
	if claims, ok := middleware.SessionFromContext(r.Context()); ok {
		return WithActor(r.Context(), claims.Role+":"+claims.Subject)
	}
	return r.Context()
}

// decodeJSON treats an empty body as an empty object.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_json", "invalid request body: "+err.Error()))
		return false
	}
	return true
}

var errorStatuses = []struct {
	err    error
	status int
	code   string
}{
	{ErrNotFound, http.StatusNotFound, "not_found"},
	{ErrCheckInNotFound, http.StatusNotFound, "check_in_not_found"},
	{ErrInvalidToken, http.StatusNotFound, "invalid_token"},
	{ErrNoCheckIn, http.StatusNotFound, "no_check_in"},
	{ErrDuplicatePhone, http.StatusConflict, "duplicate_phone"},
	{ErrAlreadyCheckedIn, http.StatusConflict, "already_checked_in"},
	{ErrInvalidStateTransition, http.StatusConflict, "invalid_state_transition"},
	{ErrNotCheckInEligible, http.StatusForbidden, "not_eligible"},
	{ErrInvalidDate, http.StatusUnprocessableEntity, "invalid_date"},
	{ErrInvalidTime, http.StatusUnprocessableEntity, "invalid_time"},
	{ErrInvalidAttendee, http.StatusUnprocessableEntity, "invalid_attendee"},
	{ErrInvalidCategory, http.StatusUnprocessableEntity, "invalid_category"},
	{ErrInvalidStatus, http.StatusUnprocessableEntity, "invalid_status"},
	{ErrInvalidInput, http.StatusUnprocessableEntity, "invalid_input"},
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	for _, m := range errorStatuses {
		if errors.Is(err, m.err) {
			writeJSON(w, m.status, errorBody(m.code, err.Error()))
			return
		}
	}
	h.logger.Error("appointments handler: "+op, "error", err)
	writeJSON(w, http.StatusInternalServerError, errorBody("internal", "internal error"))
}

func errorBody(code, message string) map[string]any {
	return map[string]any{"success": false, "error": code, "message": message}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
