// Package applications provides the courses and university applications
// bounded context module.
package applications

import (
	"consultancy_backend/internal/applications/handler"
	"consultancy_backend/internal/applications/repository"
	"consultancy_backend/internal/applications/service"
	apphttp "consultancy_backend/internal/http"
	"consultancy_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the applications bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	service    *service.Service
	repository *repository.Repository
}

// NewModule creates and initializes the applications module.
func NewModule(pool *pgxpool.Pool, students service.StudentChecker, val *validator.Validator) (*Module, error) {
	if err := val.RegisterOneOf("application_status", service.Statuses...); err != nil {
		return nil, err
	}

	repo := repository.New(pool)
	svc := service.New(repo, students)
	return &Module{handler: handler.New(svc, val), service: svc, repository: repo}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "applications"
}

// Repository exposes the repository for cross-module readers.
func (m *Module) Repository() *repository.Repository {
	return m.repository
}

// RegisterRoutes mounts course and application routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterCourseRoutes(ctx.Protected.Group("/courses"))
	m.handler.RegisterRoutes(ctx.Protected.Group("/applications"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
