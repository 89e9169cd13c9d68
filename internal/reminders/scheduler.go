package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/frontdesk/internal/observability/metrics"
	"github.com/wolfman30/frontdesk/pkg/logging"
)

// DefaultInterval is the pause between sweeps.
const DefaultInterval = 30 * time.Second

// Lease lets one of several replicas own a sweep tick.
type Lease interface {
	Acquire(ctx context.Context, ttl time.Duration) (bool, error)
	Release(ctx context.Context) error
}

// Scheduler runs the sweeper on a fixed interval until its context is cancelled.
type Scheduler struct {
	sweeper  *Sweeper
	lease    Lease
	leaseTTL time.Duration
	interval time.Duration
	metrics  *metrics.ReminderMetrics
	logger   *logging.Logger
}

func NewScheduler(sweeper *Sweeper, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{
		sweeper:  sweeper,
		interval: DefaultInterval,
		leaseTTL: 25 * time.Second,
		logger:   logger.Component("reminders"),
	}
}

func (s *Scheduler) WithInterval(d time.Duration) *Scheduler {
	if d > 0 {
		s.interval = d
	}
	return s
}

// WithLease makes every tick acquire the lease first. A tick that loses it is skipped.
func (s *Scheduler) WithLease(l Lease, ttl time.Duration) *Scheduler {
	s.lease = l
	if ttl > 0 {
		s.leaseTTL = ttl
	}
	return s
}

func (s *Scheduler) WithMetrics(m *metrics.ReminderMetrics) *Scheduler {
	s.metrics = m
	return s
}

// Run sweeps immediately and then once per interval. It returns when ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("reminders: scheduler started", "interval", s.interval, "lead", s.sweeper.Lead())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reminders: scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("reminders: panic during sweep", "panic", fmt.Sprint(r))
		}
	}()
	if s.lease != nil {
		ok, err := s.lease.Acquire(ctx, s.leaseTTL)
		if err != nil {
			// The claim still prevents double sends, so sweep without the lease.
			s.logger.Warn("reminders: lease unavailable, sweeping anyway", "error", err)
		} else if !ok {
			s.metrics.ObserveSweep("skipped", 0, 0, time.Now())
			return
		} else {
			defer func() {
				if err := s.lease.Release(context.WithoutCancel(ctx)); err != nil {
					s.logger.Warn("reminders: lease release failed", "error", err)
				}
			}()
		}
	}

	if _, err := s.sweeper.Sweep(ctx); err != nil {
		s.logger.Error("reminders: sweep failed", "error", err)
	}
}
