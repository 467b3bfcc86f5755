// Package documents provides the student documents bounded context module.
package documents

import (
	"consultancy_backend/internal/adapters/storage"
	"consultancy_backend/internal/documents/handler"
	"consultancy_backend/internal/documents/repository"
	"consultancy_backend/internal/documents/service"
	apphttp "consultancy_backend/internal/http"
	"consultancy_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the documents bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	repository *repository.Repository
}

// NewModule creates and initializes the documents module.
func NewModule(pool *pgxpool.Pool, students service.StudentChecker, storageSvc storage.StorageService, bucket string, val *validator.Validator) (*Module, error) {
	if err := val.RegisterOneOf("document_type", service.DocumentTypes...); err != nil {
		return nil, err
	}

	repo := repository.New(pool)
	svc := service.New(repo, students, storageSvc, bucket)
	return &Module{handler: handler.New(svc, val), repository: repo}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "documents"
}

// Repository exposes the repository for automation snapshots.
func (m *Module) Repository() *repository.Repository {
	return m.repository
}

// RegisterRoutes mounts document routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterStudentRoutes(ctx.Protected.Group("/students"))
	m.handler.RegisterRoutes(ctx.Protected.Group("/documents"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
