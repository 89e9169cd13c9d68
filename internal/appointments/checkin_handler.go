package appointments

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type checkInRequest struct {
	Phone   string `json:"phone"`
	Remarks string `json:"remarks"`
}

type checkoutRequest struct {
	AttendeeRemarks string `json:"attendee_remarks"`
}

type checkInPatchRequest struct {
	InTime          *time.Time `json:"in_time"`
	OutTime         *time.Time `json:"out_time"`
	UserRemarks     *string    `json:"user_remarks"`
	AttendeeRemarks *string    `json:"attendee_remarks"`
}

type checkInResponse struct {
	ID              uuid.UUID  `json:"id"`
	EntryID         uuid.UUID  `json:"entry_id"`
	Name            string     `json:"name,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	Email           string     `json:"email,omitempty"`
	InTime          time.Time  `json:"in_time"`
	OutTime         *time.Time `json:"out_time,omitempty"`
	UserRemarks     string     `json:"user_remarks"`
	AttendeeRemarks string     `json:"attendee_remarks"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toCheckInResponse(c *CheckIn) checkInResponse {
	return checkInResponse{
		ID:              c.ID,
		EntryID:         c.EntryID,
		InTime:          c.InTime,
		OutTime:         c.OutTime,
		UserRemarks:     c.UserRemarks,
		AttendeeRemarks: c.AttendeeRemarks,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func (h *Handler) checkIn(w http.ResponseWriter, r *http.Request) {
	var req checkInRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.checkIns.CheckIn(r.Context(), req.Phone, req.Remarks)
	if err != nil {
		h.writeError(w, "check in", err)
		return
	}
	resp := toCheckInResponse(res.CheckIn)
	resp.Name = res.Entry.Name
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":  true,
		"message":  "Welcome, " + res.Entry.Name + ". You are checked in.",
		"check_in": resp,
	})
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	var req checkoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.checkIns.Checkout(staffContext(r), id, req.AttendeeRemarks)
	if err != nil {
		h.writeError(w, "checkout", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Visitor checked out.",
		"check_in": toCheckInResponse(c),
	})
}

func (h *Handler) listCheckIns(w http.ResponseWriter, r *http.Request) {
	var day *time.Time
	if s := r.URL.Query().Get("date"); s != "" {
		d, err := ParseDate(s)
		if err != nil {
			h.writeError(w, "list check-ins", err)
			return
		}
		day = &d
	}
	views, err := h.checkIns.List(r.Context(), day)
	if err != nil {
		h.writeError(w, "list check-ins", err)
		return
	}
	out := make([]checkInResponse, len(views))
	for i := range views {
		v := &views[i]
		out[i] = toCheckInResponse(&v.CheckIn)
		out[i].Name, out[i].Phone, out[i].Email = v.Name, v.Phone, v.Email
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": out, "count": len(out)})
}

func (h *Handler) updateCheckIn(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_id", "invalid id"))
		return
	}
	var req checkInPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.checkIns.UpdateRecord(staffContext(r), id, CheckInPatch{
		InTime:          req.InTime,
		OutTime:         req.OutTime,
		UserRemarks:     req.UserRemarks,
		AttendeeRemarks: req.AttendeeRemarks,
	})
	if err != nil {
		h.writeError(w, "update check-in", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "check_in": toCheckInResponse(c)})
}
