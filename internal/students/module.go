// Package students provides the student/lead CRM bounded context module.
package students

import (
	"consultancy_backend/internal/events"
	apphttp "consultancy_backend/internal/http"
	"consultancy_backend/internal/students/handler"
	"consultancy_backend/internal/students/repository"
	"consultancy_backend/internal/students/service"
	"consultancy_backend/platform/phone"
	"consultancy_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the students bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	service    *service.Service
	repository *repository.Repository
}

// NewModule creates and initializes the students module with all its dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, phones phone.Normalizer, val *validator.Validator) (*Module, error) {
	if err := val.RegisterOneOf("student_status", service.Statuses...); err != nil {
		return nil, err
	}

	repo := repository.New(pool)
	svc := service.New(repo, eventBus, phones, val)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc, repository: repo}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "students"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes the repository for cross-module readers (scoring,
// automation snapshots).
func (m *Module) Repository() *repository.Repository {
	return m.repository
}

// RegisterRoutes mounts student routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/students"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/students"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
