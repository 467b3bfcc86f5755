// Package scoring provides the lead scoring bounded context module.
package scoring

import (
	"consultancy_backend/internal/events"
	apphttp "consultancy_backend/internal/http"
	"consultancy_backend/internal/scoring/engine"
	"consultancy_backend/internal/scoring/handler"
	"consultancy_backend/internal/scoring/repository"
	"consultancy_backend/internal/scoring/service"
	"consultancy_backend/platform/config"
	"consultancy_backend/platform/logger"
	"consultancy_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the scoring bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	service    *service.Service
	repository *repository.Repository
}

// NewModule creates the scoring module and subscribes it to the student
// events that change a score.
func NewModule(pool *pgxpool.Pool, signals service.SignalLoader, cfg config.ScoringConfig, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, signals, engine.Options{CapTotal: cfg.GetScoringCapTotal()}, log)

	eventBus.Subscribe(events.StudentCreated{}.EventName(), events.HandlerFunc(svc.HandleEvent))
	eventBus.Subscribe(events.LeadScoreAdjusted{}.EventName(), events.HandlerFunc(svc.HandleEvent))

	return &Module{handler: handler.New(svc, val), service: svc, repository: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "scoring"
}

// Service exposes the scoring service for batch tooling.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes persisted scores to the automation snapshot reader.
func (m *Module) Repository() *repository.Repository {
	return m.repository
}

// RegisterRoutes mounts scoring routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterStudentRoutes(ctx.Protected.Group("/students"))
	m.handler.RegisterRoutes(ctx.Protected.Group("/scoring"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/scoring"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
