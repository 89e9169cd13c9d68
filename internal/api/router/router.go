package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/frontdesk/internal/appointments"
	"github.com/wolfman30/frontdesk/internal/audit"
	"github.com/wolfman30/frontdesk/internal/documents"
	httpmiddleware "github.com/wolfman30/frontdesk/internal/http/middleware"
	"github.com/wolfman30/frontdesk/internal/receptionists"
	"github.com/wolfman30/frontdesk/internal/reminders"
	"github.com/wolfman30/frontdesk/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Appointments       *appointments.Handler
	Reminders          *reminders.Handler
	Audit              *audit.Handler
	Receptionists      *receptionists.Handler
	Documents          *documents.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// SessionSecret signs receptionist and admin tokens. Empty locks every staff route.
	SessionSecret string

	// Public write endpoints are rate limited per client when RateLimitRPS > 0.
	RateLimitRPS   float64
	RateLimitBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Visitor-facing endpoints
	r.Group(func(public chi.Router) {
		if cfg.RateLimitRPS > 0 {
			public.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		}
		if cfg.Appointments != nil {
			cfg.Appointments.RegisterPublicRoutes(public)
		}
		if cfg.Documents != nil {
			cfg.Documents.RegisterRoutes(public)
		}
		if cfg.Receptionists != nil {
			cfg.Receptionists.RegisterPublicRoutes(public)
		}
	})

	// Receptionist dashboard
	r.Group(func(staff chi.Router) {
		staff.Use(httpmiddleware.RequireSession(cfg.SessionSecret, httpmiddleware.RoleReceptionist))
		if cfg.Appointments != nil {
			cfg.Appointments.RegisterStaffRoutes(staff)
		}
		if cfg.Reminders != nil {
			cfg.Reminders.RegisterRoutes(staff)
		}
		if cfg.Audit != nil {
			cfg.Audit.RegisterRoutes(staff)
		}
	})

	// Administrator approval queue
	if cfg.Receptionists != nil {
		r.Group(func(admin chi.Router) {
			admin.Use(httpmiddleware.RequireSession(cfg.SessionSecret, httpmiddleware.RoleAdmin))
			cfg.Receptionists.RegisterAdminRoutes(admin)
		})
	}

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
