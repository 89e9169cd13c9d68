package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/frontdesk/cmd/mainconfig"
	"github.com/wolfman30/frontdesk/internal/api/router"
	"github.com/wolfman30/frontdesk/internal/app/bootstrap"
	"github.com/wolfman30/frontdesk/internal/appointments"
	"github.com/wolfman30/frontdesk/internal/audit"
	appconfig "github.com/wolfman30/frontdesk/internal/config"
	"github.com/wolfman30/frontdesk/internal/documents"
	"github.com/wolfman30/frontdesk/internal/notify"
	"github.com/wolfman30/frontdesk/internal/observability/metrics"
	"github.com/wolfman30/frontdesk/internal/receptionists"
	"github.com/wolfman30/frontdesk/internal/reminders"
	"github.com/wolfman30/frontdesk/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting frontdesk API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"timezone", cfg.Location().String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := bootstrap.ConnectPostgres(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}

	stores, err := bootstrap.BuildStores(pool, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to build stores", "error", err)
		os.Exit(1)
	}
	defer func() { _ = stores.Close() }()

	var awsCfg *aws.Config
	if loaded, err := mainconfig.LoadAWSConfig(ctx, cfg); err != nil {
		logger.Warn("AWS config unavailable; SES and document uploads disabled", "error", err)
	} else {
		awsCfg = &loaded
	}

	sender, provider, reason := bootstrap.BuildEmailSender(cfg, awsCfg, logger)
	logger.Info("email sender configured", "provider", provider, "reason", reason)

	var docs documents.S3API
	if awsCfg != nil && cfg.DocumentsBucket != "" {
		docs = mainconfig.NewS3Client(*awsCfg, cfg)
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	app := buildApp(cfg, deps{
		stores:    stores,
		sender:    sender,
		documents: docs,
		redis:     redisClient,
		registry:  prometheus.NewRegistry(),
	}, logger)

	var wg sync.WaitGroup
	if app.scheduler != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.scheduler.Run(ctx)
		}()
		logger.Info("reminder scheduler started", "interval", cfg.ReminderInterval, "lead", cfg.ReminderLead)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      app.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	wg.Wait()
	logger.Info("server stopped")
}

type deps struct {
	stores    *bootstrap.Stores
	sender    notify.EmailSender
	documents documents.S3API
	redis     *redis.Client
	registry  *prometheus.Registry
}

type application struct {
	handler   http.Handler
	scheduler *reminders.Scheduler
	sweeper   *reminders.Sweeper
}

// buildApp wires services, handlers and the reminder scheduler. The scheduler is nil
// when reminders are disabled.
func buildApp(cfg *appconfig.Config, d deps, logger *logging.Logger) *application {
	reg := d.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	notifyMetrics := metrics.NewNotificationMetrics(reg)
	reminderMetrics := metrics.NewReminderMetrics(reg)

	rules := bootstrap.BuildRules(cfg, logger)
	clock := appointments.SystemClock{Location: rules.Location}
	recorder := d.stores.EventRecorder()

	dispatcher := notify.NewDispatcher(d.sender, notify.DispatcherConfig{
		StaffEmail:    cfg.StaffNotifyEmail,
		PublicBaseURL: cfg.PublicBaseURL,
	}, notifyMetrics, logger)

	service := appointments.NewService(d.stores.Appointments, dispatcher, rules, clock, logger)
	checkIns := appointments.NewCheckInService(d.stores.Appointments, rules, clock, logger)
	if recorder != nil {
		service = service.WithEventRecorder(recorder)
		checkIns = checkIns.WithEventRecorder(recorder)
	}

	lead := cfg.ReminderLead
	if lead <= 0 {
		lead = reminders.DefaultLead
	}
	sweeper := reminders.NewSweeper(d.stores.Appointments, dispatcher, rules, clock, logger).
		WithLead(lead).
		WithMetrics(reminderMetrics)
	if recorder != nil {
		sweeper = sweeper.WithEventRecorder(recorder)
	}

	var scheduler *reminders.Scheduler
	if cfg.ReminderEnabled {
		scheduler = reminders.NewScheduler(sweeper, logger).WithMetrics(reminderMetrics)
		if cfg.ReminderInterval > 0 {
			scheduler = scheduler.WithInterval(cfg.ReminderInterval)
		}
		if d.redis != nil {
			scheduler = scheduler.WithLease(reminders.NewRedisLease(d.redis, reminders.DefaultLeaseKey), cfg.SweepLeaseTTL)
		}
	}

	accounts := receptionists.NewService(d.stores.Receptionists, receptionists.AuthConfig{
		JWTSecret:         cfg.JWTSecret,
		SessionTTL:        cfg.SessionTTL,
		AdminUsername:     cfg.AdminUsername,
		AdminPasswordHash: cfg.AdminPasswordHash,
	}, logger)
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set; staff routes will reject every request")
	}

	var auditHandler *audit.Handler
	if d.stores.Audit != nil {
		auditHandler = audit.NewHandler(d.stores.Audit, logger)
	}

	docStore := documents.NewS3Store(d.documents, cfg.DocumentsBucket, cfg.DocumentMaxBytes, logger)

	handler := router.New(&router.Config{
		Logger:             logger,
		Appointments:       appointments.NewHandler(service, checkIns, logger),
		Reminders:          reminders.NewHandler(sweeper, logger),
		Audit:              auditHandler,
		Receptionists:      receptionists.NewHandler(accounts, logger),
		Documents:          documents.NewHandler(docStore, logger),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		SessionSecret:      cfg.JWTSecret,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	return &application{handler: handler, scheduler: scheduler, sweeper: sweeper}
}
