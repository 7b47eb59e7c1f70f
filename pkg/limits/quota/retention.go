package quota

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// HistoryPruner deletes reservation history older than a cutoff.
type HistoryPruner interface {
	PruneHistory(ctx context.Context, before time.Time) (int64, error)
}

// RetentionConfig configures reservation history pruning.
type RetentionConfig struct {
	// RetentionDays is how long history is kept. 0 keeps it forever.
	RetentionDays int

	// PruneSchedule is a cron expression, e.g. "0 3 * * *" (daily at 3 AM).
	// Empty disables scheduled pruning.
	PruneSchedule string
}

// Scheduler prunes reservation history on a cron schedule.
type Scheduler struct {
	pruner  HistoryPruner
	config  RetentionConfig
	now     func() time.Time
	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

// NewScheduler creates a retention scheduler.
func NewScheduler(pruner HistoryPruner, cfg RetentionConfig) *Scheduler {
	return &Scheduler{
		pruner: pruner,
		config: cfg,
		now:    time.Now,
		cron:   cron.New(),
		logger: slog.Default().With("component", "quota.retention"),
	}
}

// Start schedules pruning. If PruneSchedule or RetentionDays is unset the
// scheduler does nothing. The scheduler stops when ctx is cancelled.
//
// Common cron expressions:
//   - "0 3 * * *"    - Daily at 3 AM
//   - "0 */6 * * *"  - Every 6 hours
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.PruneSchedule == "" || s.config.RetentionDays <= 0 {
		s.logger.Info("history retention not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.config.PruneSchedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.config.PruneSchedule, err)
	}

	if _, err := s.cron.AddFunc(s.config.PruneSchedule, func() {
		s.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("retention scheduler started",
		"schedule", s.config.PruneSchedule,
		"retention_days", s.config.RetentionDays,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// RunOnce prunes history older than the retention period and returns the
// number of deleted rows.
func (s *Scheduler) RunOnce(ctx context.Context) int64 {
	if s.config.RetentionDays <= 0 {
		return 0
	}

	cutoff := s.now().AddDate(0, 0, -s.config.RetentionDays)
	deleted, err := s.pruner.PruneHistory(ctx, cutoff)
	if err != nil {
		s.logger.Error("scheduled pruning failed", "error", err)
		return 0
	}

	if deleted > 0 {
		s.logger.Info("scheduled pruning completed", "deleted_count", deleted)
	} else {
		s.logger.Debug("scheduled pruning completed, no records deleted")
	}
	return deleted
}

// Stop stops the scheduler and waits for any running job to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("retention scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled pruning time, or nil.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
