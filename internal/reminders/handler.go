package reminders

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/frontdesk/pkg/logging"
)

// Handler exposes the read-only reminders view.
type Handler struct {
	sweeper *Sweeper
	logger  *logging.Logger
}

func NewHandler(sweeper *Sweeper, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{sweeper: sweeper, logger: logger}
}

// RegisterRoutes mounts GET /api/reminders. Callers wrap it in session auth.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/reminders", h.list)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.sweeper.Upcoming(r.Context())
	if err != nil {
		h.logger.Error("reminders: list upcoming failed", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "internal", "message": "could not load reminders"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"reminders":    items,
		"count":        len(items),
		"lead_minutes": int(h.sweeper.Lead().Minutes()),
	})
}
