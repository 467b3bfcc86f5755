// Package ports holds the auth types shared with other domains. It is a leaf
// package so that internal/auth/adapter can depend on it without importing
// internal/auth (which would create an import cycle).
package ports

import (
	"context"

	"github.com/google/uuid"
)

// Profile represents user information that can be shared with other domains.
type Profile struct {
	ID       uuid.UUID
	Email    string
	FullName string
	Roles    []string
	IsActive bool
}

// UserProvider is an interface that other domains can use to get user information.
// This abstracts authentication details from other bounded contexts.
type UserProvider interface {
	// GetUserByID returns basic user information needed by other domains.
	GetUserByID(ctx context.Context, userID uuid.UUID) (Profile, error)
}
