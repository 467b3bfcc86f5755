// Package auth provides the authentication bounded context module.
// This file defines the module that encapsulates all auth setup and route registration.
package auth

import (
	"consultancy_backend/internal/auth/adapter"
	"consultancy_backend/internal/auth/handler"
	"consultancy_backend/internal/auth/repository"
	"consultancy_backend/internal/auth/service"
	authvalidator "consultancy_backend/internal/auth/validator"
	apphttp "consultancy_backend/internal/http"
	"consultancy_backend/platform/config"
	"consultancy_backend/platform/logger"
	"consultancy_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the auth bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	users   *adapter.UserProviderAdapter
}

// NewModule creates and initializes the auth module with all its dependencies.
func NewModule(pool *pgxpool.Pool, cfg config.AuthServiceConfig, mailer service.Mailer, val *validator.Validator, log *logger.Logger) (*Module, error) {
	if err := val.RegisterOneOf("user_role", service.Roles...); err != nil {
		return nil, err
	}
	if err := authvalidator.RegisterPasswordPolicy(val); err != nil {
		return nil, err
	}

	repo := repository.New(pool)
	svc := service.New(repo, cfg, mailer, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		users:   adapter.NewUserProviderAdapter(repo),
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// Service returns the auth service, used at startup to bootstrap the admin.
func (m *Module) Service() *service.Service {
	return m.service
}

// Users returns the user lookup other domains depend on.
func (m *Module) Users() UserProvider {
	return m.users
}

// RegisterRoutes mounts auth routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public auth routes with stricter rate limiting
	authGroup := ctx.V1.Group("/auth")
	authGroup.Use(ctx.AuthRateLimiter.RateLimit())
	m.handler.RegisterRoutes(authGroup)

	ctx.Protected.GET("/users/me", m.handler.GetMe)

	// Admin routes
	ctx.Admin.GET("/users", m.handler.ListUsers)
	ctx.Admin.POST("/users", m.handler.CreateUser)
	ctx.Admin.PUT("/users/:id/roles", m.handler.SetUserRoles)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
