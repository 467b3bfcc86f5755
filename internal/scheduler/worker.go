package scheduler

import (
	"context"
	"errors"
	"fmt"

	"consultancy_backend/internal/automation/repository"
	automation "consultancy_backend/internal/automation/service"
	"consultancy_backend/platform/config"
	"consultancy_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const triggerScheduled = automation.TriggerScheduled

// AutomationRunner executes a run synchronously.
type AutomationRunner interface {
	RunNow(ctx context.Context, trigger string, ruleID *uuid.UUID) (repository.Run, error)
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	runner AutomationRunner
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, runner AutomationRunner, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		runner: runner,
		log:    log,
	}

	mux.HandleFunc(TaskAutomationRun, w.handleAutomationRun)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleAutomationRun runs automation in the worker. A run already holding
// the run-lock means this tick is skipped, not retried.
func (w *Worker) handleAutomationRun(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseAutomationRunPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	var ruleID *uuid.UUID
	if payload.RuleID != nil {
		id, err := uuid.Parse(*payload.RuleID)
		if err != nil {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		ruleID = &id
	}

	trigger := payload.Trigger
	if trigger == "" {
		trigger = triggerScheduled
	}

	run, err := w.runner.RunNow(ctx, trigger, ruleID)
	if errors.Is(err, automation.ErrAlreadyRunning) {
		w.log.Info("automation run skipped, another run is in progress", "trigger", trigger)
		return nil
	}
	if err != nil {
		return err
	}

	w.log.Debug("automation run handled", "runId", run.ID, "status", run.Status)
	return nil
}
