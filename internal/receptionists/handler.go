package receptionists

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/frontdesk/pkg/logging"
)

const maxJSONBody = 64 << 10

// Handler serves registration, login and the admin approval queue.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterPublicRoutes mounts registration and both login endpoints.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/api/receptionists/register", h.register)
	r.Post("/api/receptionists/login", h.login)
	r.Post("/api/admin/login", h.adminLogin)
}

// RegisterAdminRoutes mounts the approval queue. Callers wrap it in admin session auth.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/api/admin/receptionists", h.list)
	r.Post("/api/admin/receptionists/{id}/approve", h.approve)
	r.Delete("/api/admin/receptionists/{id}", h.reject)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterInput
	if !decode(w, r, &req) {
		return
	}
	account, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Registration successful. Wait for admin approval before logging in.",
		"account": account,
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	session, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "session": session})
}

func (h *Handler) adminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	session, err := h.service.AdminLogin(req.Username, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "session": session})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"receptionists": accounts})
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	account, err := h.service.Approve(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "account": account})
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Reject(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_id", "receptionist id must be a uuid"))
		return uuid.Nil, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_json", "request body must be valid JSON"))
		return false
	}
	return true
}

var errorStatuses = []struct {
	err    error
	status int
	code   string
}{
	{ErrInvalidInput, http.StatusUnprocessableEntity, "invalid_input"},
	{ErrUsernameTaken, http.StatusConflict, "username_taken"},
	{ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{ErrNotApproved, http.StatusForbidden, "not_approved"},
	{ErrAdminDisabled, http.StatusServiceUnavailable, "admin_disabled"},
	{ErrNotFound, http.StatusNotFound, "not_found"},
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			writeJSON(w, e.status, errorBody(e.code, err.Error()))
			return
		}
	}
	h.logger.Error("receptionists: request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, errorBody("internal", "internal server error"))
}

func errorBody(code, message string) map[string]any {
	return map[string]any{"success": false, "error": code, "message": message}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
