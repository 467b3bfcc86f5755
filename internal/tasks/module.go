// Package tasks provides the follow-up tasks bounded context module.
package tasks

import (
	"consultancy_backend/internal/events"
	apphttp "consultancy_backend/internal/http"
	"consultancy_backend/internal/tasks/handler"
	"consultancy_backend/internal/tasks/repository"
	"consultancy_backend/internal/tasks/service"
	"consultancy_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the tasks bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the tasks module.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator) (*Module, error) {
	if err := val.RegisterOneOf("task_priority", service.Priorities...); err != nil {
		return nil, err
	}

	svc := service.New(repository.New(pool), eventBus)
	return &Module{handler: handler.New(svc, val), service: svc}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "tasks"
}

// Service returns the service layer for automation actions.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts task routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/tasks"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
