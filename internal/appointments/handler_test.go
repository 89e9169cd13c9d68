package appointments

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/frontdesk/pkg/logging"
)

func newTestRouter(t *testing.T) (*fixture, http.Handler) {
	t.Helper()
	f := newFixture(t)
	h := NewHandler(f.service, f.checkIns, logging.Default())
	r := chi.NewRouter()
	h.RegisterPublicRoutes(r)
	h.RegisterStaffRoutes(r)
	return f, r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func createBody(phone string) map[string]any {
	return map[string]any{
		"name":                "Ada Lovelace",
		"email":               "ada@example.com",
		"phone":               phone,
		"category":            "student",
		"reason":              "Thesis review",
		"designated_attendee": "member1",
		"appointment_date":    FormatDate(day(1)),
		"appointment_time":    "14:00",
	}
}

func TestHandlerCreateAppointment(t *testing.T) {
	_, router := newTestRouter(t)

	rec, body := doJSON(t, router, http.MethodPost, "/api/appointments", createBody("5551234567"))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["email_sent"])
	appt := body["appointment"].(map[string]any)
	assert.Equal(t, "pending", appt["status"])
	assert.Equal(t, "14:00", appt["appointment_time"])
	assert.NotContains(t, appt, "reschedule_token")

	rec, body = doJSON(t, router, http.MethodPost, "/api/appointments", createBody("5551234567"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_phone", body["error"])
}

func TestHandlerCreateValidationErrors(t *testing.T) {
	_, router := newTestRouter(t)

	late := createBody("5551234567")
	late["appointment_time"] = "23:30"
	rec, body := doJSON(t, router, http.MethodPost, "/api/appointments", late)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "invalid_time", body["error"])

	far := createBody("5551234567")
	far["appointment_date"] = FormatDate(day(30))
	rec, body = doJSON(t, router, http.MethodPost, "/api/appointments", far)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "invalid_date", body["error"])

	rec, _ = doJSON(t, router, http.MethodPost, "/api/appointments", map[string]any{"unexpected": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerStatusUpdateReportsEmail(t *testing.T) {
	f, router := newTestRouter(t)
	e := f.book(t, "5551234567")
	f.notifier.fail[KindApproved] = true

	rec, body := doJSON(t, router, http.MethodPut, "/api/appointments/"+e.ID.String()+"/status", map[string]any{"status": "approved"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["email_sent"])
	assert.Contains(t, body["message"], "could not be sent")

	rec, body = doJSON(t, router, http.MethodPut, "/api/appointments/not-a-uuid/status", map[string]any{"status": "approved"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_id", body["error"])
}

func TestHandlerRescheduleFlow(t *testing.T) {
	f, router := newTestRouter(t)
	e := f.bookWithStatus(t, "5551234567", StatusApproved)
	base := "/api/appointments/" + e.ID.String()

	rec, body := doJSON(t, router, http.MethodPost, base+"/reschedule/approve", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_state_transition", body["error"])

	rec, body = doJSON(t, router, http.MethodPost, base+"/reschedule", map[string]any{
		"appointment_date":    FormatDate(day(3)),
		"appointment_time":    "17:00",
		"designated_attendee": "member2",
		"reason":              "Clash",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pending_reschedule", body["appointment"].(map[string]any)["status"])

	rec, body = doJSON(t, router, http.MethodPost, base+"/reschedule/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	appt := body["appointment"].(map[string]any)
	assert.Equal(t, "rescheduled", appt["status"])
	assert.Equal(t, FormatDate(day(3)), appt["appointment_date"])
	assert.Equal(t, FormatDate(day(1)), appt["original_date"])
}

func TestHandlerVisitorReschedule(t *testing.T) {
	f, router := newTestRouter(t)
	e := f.bookWithStatus(t, "5551234567", StatusRejected)

	rec, _ := doJSON(t, router, http.MethodGet, "/api/reschedule/"+e.RescheduleToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body := doJSON(t, router, http.MethodGet, "/api/reschedule/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "invalid_token", body["error"])

	rec, body = doJSON(t, router, http.MethodPost, "/api/reschedule/"+e.RescheduleToken, map[string]any{
		"appointment_date":    FormatDate(day(2)),
		"appointment_time":    "12:30",
		"designated_attendee": "member1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pending", body["appointment"].(map[string]any)["status"])
}

func TestHandlerCheckInOutcomes(t *testing.T) {
	f, router := newTestRouter(t)
	f.bookWithStatus(t, "5551234567", StatusApproved)
	f.book(t, "5557654321")

	rec, _ := doJSON(t, router, http.MethodPost, "/api/checkins", map[string]any{"phone": "5551234567"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec, body := doJSON(t, router, http.MethodPost, "/api/checkins", map[string]any{"phone": "5551234567"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_checked_in", body["error"])

	rec, body = doJSON(t, router, http.MethodPost, "/api/checkins", map[string]any{"phone": "5557654321"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "not_eligible", body["error"])

	rec, body = doJSON(t, router, http.MethodPost, "/api/checkins", map[string]any{"phone": "5550000000"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", body["error"])

	rec, body = doJSON(t, router, http.MethodGet, "/api/checkins?date="+FormatDate(day(0)), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])
}

func TestHandlerDeleteAndList(t *testing.T) {
	f, router := newTestRouter(t)
	e := f.book(t, "5551234567")
	f.book(t, "5557654321")

	rec, body := doJSON(t, router, http.MethodGet, "/api/appointments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["count"])

	rec, _ = doJSON(t, router, http.MethodDelete, "/api/appointments/"+e.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, router, http.MethodDelete, "/api/appointments/"+e.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = doJSON(t, router, http.MethodGet, "/api/appointments?status=pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])

	_, err := f.store.Get(context.Background(), e.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
