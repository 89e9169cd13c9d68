package audit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/frontdesk/pkg/logging"
)

// Handler serves appointment history to staff.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// RegisterRoutes mounts GET /api/appointments/{id}/history.
// Optional query params: type (comma separated) and limit.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/appointments/{id}/history", h.history)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid_id", "message": "appointment id must be a uuid"})
		return
	}

	filter := Filter{EntryID: id}
	if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				filter.Types = append(filter.Types, t)
			}
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid_limit", "message": "limit must be a positive integer"})
			return
		}
		filter.Limit = n
	}

	events, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("audit: list history failed", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "internal", "message": "could not load history"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointment_id": id, "events": events})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
