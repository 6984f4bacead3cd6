package reconciliation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/flash-service/flash_service/pkg/logger"
)

// Scheduler handles automated reconciliation runs
type Scheduler struct {
	service  *Service
	logger   *logger.Logger
	schedule string
	timeout  time.Duration

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	// Schedule is a cron spec; a leading seconds field is optional
	Schedule string
	// RunTimeout bounds a single run, default 10 minutes
	RunTimeout time.Duration
}

// NewScheduler validates the cron spec and creates a stopped scheduler
func NewScheduler(service *Service, logger *logger.Logger, config SchedulerConfig) (*Scheduler, error) {
	if config.RunTimeout == 0 {
		config.RunTimeout = 10 * time.Minute
	}

	c := cron.New(
		cron.WithParser(cron.NewParser(cron.SecondOptional|cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	s := &Scheduler{
		service:  service,
		logger:   logger,
		schedule: config.Schedule,
		timeout:  config.RunTimeout,
		cron:     c,
	}

	if _, err := c.AddFunc(config.Schedule, func() { s.execute(context.Background(), "scheduled") }); err != nil {
		return nil, fmt.Errorf("invalid reconciliation schedule %q: %w", config.Schedule, err)
	}
	return s, nil
}

// Start begins the reconciliation scheduler
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true

	s.logger.Info("Starting reconciliation scheduler", "schedule", s.schedule)
	s.cron.Start()
}

// Shutdown stops scheduling and waits up to timeout for a running check to finish
func (s *Scheduler) Shutdown(timeout time.Duration) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("Stopping reconciliation scheduler")

	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		s.logger.Info("Reconciliation scheduler stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("reconciliation run still in progress after %s", timeout)
	}
}

// RunManualReconciliation triggers a run outside the schedule
func (s *Scheduler) RunManualReconciliation(ctx context.Context) (*Report, error) {
	s.logger.Info("Starting manual reconciliation")
	return s.execute(ctx, "manual")
}

func (s *Scheduler) execute(ctx context.Context, runType string) (*Report, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()

	report, err := s.service.RunReconciliation(ctx, runType)
	if err != nil {
		s.logger.Error("Reconciliation failed",
			"run_type", runType,
			"error", err,
			"duration", time.Since(startTime),
		)
		return nil, err
	}

	s.logger.Info("Reconciliation completed",
		"run_type", runType,
		"report_id", report.ID,
		"accounts_checked", report.AccountsChecked,
		"mismatches", len(report.Mismatches),
		"total_drift", report.TotalDrift.String(),
		"duration", time.Since(startTime),
	)
	return report, nil
}

// LastReport returns the most recent completed run, scheduled or manual
func (s *Scheduler) LastReport() *Report {
	return s.service.LastReport()
}
