// Package automation provides the workflow automation bounded context module.
package automation

import (
	"context"

	"consultancy_backend/internal/automation/evaluator"
	"consultancy_backend/internal/automation/handler"
	"consultancy_backend/internal/automation/repository"
	"consultancy_backend/internal/automation/service"
	"consultancy_backend/internal/events"
	apphttp "consultancy_backend/internal/http"
	"consultancy_backend/platform/config"
	"consultancy_backend/platform/logger"
	"consultancy_backend/platform/redislock"
	"consultancy_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Deps are the cross-module collaborators of the automation module.
type Deps struct {
	Snapshots service.SnapshotLoader
	Tasks     service.TaskCreator
	Mailer    service.Mailer
	Invoker   service.Invoker
	// Locker is optional; without it the run-lock only guards this process.
	Locker *redislock.Locker
}

// Module is the automation bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	runner  *service.Runner
	repo    *repository.Repository
}

// NewModule creates and initializes the automation module.
func NewModule(ctx context.Context, pool *pgxpool.Pool, deps Deps, cfg config.AutomationConfig, eventBus events.Bus, val *validator.Validator, log *logger.Logger) (*Module, error) {
	if err := val.RegisterOneOf("trigger_type", evaluator.TriggerTypes...); err != nil {
		return nil, err
	}
	if err := val.RegisterOneOf("action_type", evaluator.ActionTypes...); err != nil {
		return nil, err
	}

	repo := repository.New(pool)
	runner := service.NewRunner(service.RunnerDeps{
		Rules:     repo,
		Runs:      repo,
		Snapshots: deps.Snapshots,
		Tasks:     deps.Tasks,
		Mailer:    deps.Mailer,
		Enricher:  service.NewLLMEnricher(deps.Invoker),
		Lock:      service.NewRunLock(deps.Locker),
		EventBus:  eventBus,
		Log:       log,
		Pacing:    cfg.GetAutomationPacing(),
	}).WithBaseContext(ctx)

	svc := service.New(repo, repo, runner)
	return &Module{handler: handler.New(svc, val), service: svc, runner: runner, repo: repo}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "automation"
}

// Service exposes rule management, including default rule seeding.
func (m *Module) Service() *service.Service {
	return m.service
}

// Runner exposes the runner to the scheduler worker.
func (m *Module) Runner() *service.Runner {
	return m.runner
}

// Repository exposes run housekeeping to the scheduler.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts automation routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/automation"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
