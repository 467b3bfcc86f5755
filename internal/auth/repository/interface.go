package repository

import (
	"context"

	"github.com/google/uuid"
)

// UserReader is the read side other domains are allowed to see.
type UserReader interface {
	GetUserByID(ctx context.Context, userID uuid.UUID) (User, error)
}

// AuthRepository defines the interface for authentication data operations.
// This allows services to depend on an abstraction rather than concrete implementation,
// improving testability and modularity.
type AuthRepository interface {
	UserReader
	CreateUser(ctx context.Context, u User) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	CountAdmins(ctx context.Context) (int, error)
	SetUserRoles(ctx context.Context, userID uuid.UUID, roles []string) (User, error)
}

// Ensure Repository implements AuthRepository
var _ AuthRepository = (*Repository)(nil)
