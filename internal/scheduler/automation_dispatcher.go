package scheduler

import (
	"context"
	"errors"
	"time"

	"consultancy_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const defaultAutomationInterval = 30 * time.Minute

// AutomationEnqueuer queues automation runs.
type AutomationEnqueuer interface {
	EnqueueAutomationRun(ctx context.Context, payload AutomationRunPayload, uniqueFor time.Duration) error
}

// AutomationDispatcher queues a scheduled automation run every interval.
// The uniqueness window keeps several scheduler replicas from queueing the
// same tick twice.
type AutomationDispatcher struct {
	client   AutomationEnqueuer
	interval time.Duration
	log      *logger.Logger
}

func NewAutomationDispatcher(client AutomationEnqueuer, interval time.Duration, log *logger.Logger) *AutomationDispatcher {
	if interval <= 0 {
		interval = defaultAutomationInterval
	}
	return &AutomationDispatcher{client: client, interval: interval, log: log}
}

func (d *AutomationDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.dispatch(ctx)
		}
	}
}

func (d *AutomationDispatcher) dispatch(ctx context.Context) {
	err := d.client.EnqueueAutomationRun(ctx, AutomationRunPayload{Trigger: triggerScheduled}, d.interval/2)
	switch {
	case err == nil:
		d.log.Debug("scheduled automation run queued")
	case errors.Is(err, asynq.ErrDuplicateTask):
		d.log.Debug("scheduled automation run already queued")
	default:
		d.log.Warn("failed to queue scheduled automation run", "error", err)
	}
}
