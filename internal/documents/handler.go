package documents

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/frontdesk/pkg/logging"
)

// FormField is the multipart field carrying the file.
const FormField = "document"

// Handler accepts document uploads.
type Handler struct {
	store  *S3Store
	logger *logging.Logger
}

func NewHandler(store *S3Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// RegisterRoutes mounts POST /api/documents.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/documents", h.upload)
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	if !h.store.Enabled() {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("documents_disabled", "document uploads are not available"))
		return
	}

	// Leave room for multipart framing around the file.
	r.Body = http.MaxBytesReader(w, r.Body, h.store.MaxBytes()+64<<10)
	file, header, err := r.FormFile(FormField)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("too_large", ErrTooLarge.Error()))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody("missing_file", "attach a PDF in the \"document\" field"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.store.MaxBytes()+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("read_failed", "could not read upload"))
		return
	}

	key, err := h.store.Put(r.Context(), header.Filename, data)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "document_ref": key})
	case errors.Is(err, ErrTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("too_large", err.Error()))
	case errors.Is(err, ErrNotPDF), errors.Is(err, ErrEmpty):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody("invalid_document", err.Error()))
	default:
		h.logger.Error("documents: upload failed", "error", err)
		writeJSON(w, http.StatusBadGateway, errorBody("storage_error", "could not store document"))
	}
}

func errorBody(code, message string) map[string]any {
	return map[string]any{"success": false, "error": code, "message": message}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
