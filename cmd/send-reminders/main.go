// Command send-reminders runs one reminder sweep and exits. It is meant for cron
// or a scheduled task when the API's in-process scheduler is disabled.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"

	"github.com/wolfman30/frontdesk/cmd/mainconfig"
	"github.com/wolfman30/frontdesk/internal/app/bootstrap"
	"github.com/wolfman30/frontdesk/internal/appointments"
	appconfig "github.com/wolfman30/frontdesk/internal/config"
	"github.com/wolfman30/frontdesk/internal/notify"
	"github.com/wolfman30/frontdesk/internal/reminders"
	"github.com/wolfman30/frontdesk/pkg/logging"
)

var errNoDatabase = errors.New("DATABASE_URL is required")

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := run(ctx, cfg, logger)
	if err != nil {
		logger.Error("reminder sweep failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("candidates=%d sent=%d failed=%d lost_claims=%d skipped=%d errors=%d\n",
		res.Candidates, res.Sent, res.Failed, res.LostClaims, res.Skipped, res.Errors)
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (reminders.SweepResult, error) {
	if cfg.DatabaseURL == "" {
		return reminders.SweepResult{}, errNoDatabase
	}
	pool, err := bootstrap.ConnectPostgres(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return reminders.SweepResult{}, err
	}
	defer pool.Close()

	stores, err := bootstrap.BuildStores(pool, cfg.DatabaseURL, logger)
	if err != nil {
		return reminders.SweepResult{}, err
	}
	defer func() { _ = stores.Close() }()

	var awsCfg *aws.Config
	if loaded, err := mainconfig.LoadAWSConfig(ctx, cfg); err == nil {
		awsCfg = &loaded
	}
	sender, provider, _ := bootstrap.BuildEmailSender(cfg, awsCfg, logger)
	logger.Info("email sender configured", "provider", provider)

	return sweepOnce(ctx, cfg, stores, sender, logger)
}

func sweepOnce(ctx context.Context, cfg *appconfig.Config, stores *bootstrap.Stores, sender notify.EmailSender, logger *logging.Logger) (reminders.SweepResult, error) {
	rules := bootstrap.BuildRules(cfg, logger)
	dispatcher := notify.NewDispatcher(sender, notify.DispatcherConfig{
		StaffEmail:    cfg.StaffNotifyEmail,
		PublicBaseURL: cfg.PublicBaseURL,
	}, nil, logger)

	sweeper := reminders.NewSweeper(stores.Appointments, dispatcher, rules, appointments.SystemClock{Location: rules.Location}, logger)
	if cfg.ReminderLead > 0 {
		sweeper = sweeper.WithLead(cfg.ReminderLead)
	}
	if rec := stores.EventRecorder(); rec != nil {
		sweeper = sweeper.WithEventRecorder(rec)
	}
	return sweeper.Sweep(ctx)
}
