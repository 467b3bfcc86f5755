package scheduler

import (
	"context"
	"time"

	"consultancy_backend/platform/logger"
)

const (
	defaultRunCleanupInterval = time.Hour
	defaultRunRetention       = 30 * 24 * time.Hour
	defaultStaleRunAfter      = 6 * time.Hour
)

// RunHousekeeper is the automation run storage the cleanup needs.
type RunHousekeeper interface {
	DeleteFinishedRunsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	FailStaleRuns(ctx context.Context, cutoff, now time.Time) (int64, error)
}

// AutomationRunCleanup periodically closes abandoned runs and removes old
// finished ones.
type AutomationRunCleanup struct {
	repo      RunHousekeeper
	log       *logger.Logger
	interval  time.Duration
	retention time.Duration
	staleAt   time.Duration
	now       func() time.Time
}

func NewAutomationRunCleanup(repo RunHousekeeper, log *logger.Logger, interval, retention time.Duration) *AutomationRunCleanup {
	if interval <= 0 {
		interval = defaultRunCleanupInterval
	}
	if retention <= 0 {
		retention = defaultRunRetention
	}

	return &AutomationRunCleanup{
		repo:      repo,
		log:       log,
		interval:  interval,
		retention: retention,
		staleAt:   defaultStaleRunAfter,
		now:       time.Now,
	}
}

func (c *AutomationRunCleanup) Run(ctx context.Context) {
	if c == nil || c.repo == nil {
		return
	}

	c.cleanup(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *AutomationRunCleanup) cleanup(ctx context.Context) {
	now := c.now()

	failed, err := c.repo.FailStaleRuns(ctx, now.Add(-c.staleAt), now)
	if err != nil {
		c.log.DatabaseError("fail stale automation runs", err)
		return
	}
	if failed > 0 {
		c.log.Warn("marked abandoned automation runs as failed", "count", failed)
	}

	deleted, err := c.repo.DeleteFinishedRunsBefore(ctx, now.Add(-c.retention))
	if err != nil {
		c.log.DatabaseError("delete finished automation runs", err)
		return
	}
	if deleted > 0 {
		c.log.Info("automation run cleanup deleted finished runs", "deleted", deleted)
	}
}
