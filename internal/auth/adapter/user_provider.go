// Package adapter provides implementations of external interfaces that other domains need.
// This follows the Anti-Corruption Layer pattern - auth domain provides adapters
// that satisfy consumer-driven interfaces defined by other domains.
package adapter

import (
	"context"
	"errors"

	auth "consultancy_backend/internal/auth/ports"
	"consultancy_backend/internal/auth/repository"
	"consultancy_backend/platform/apperr"

	"github.com/google/uuid"
)

// UserProviderAdapter implements auth.UserProvider using the auth repository.
// This lets automation and notifications address counselors without
// depending on auth internals.
type UserProviderAdapter struct {
	repo repository.UserReader
}

// NewUserProviderAdapter creates a new adapter for providing user info to other domains.
func NewUserProviderAdapter(repo repository.UserReader) *UserProviderAdapter {
	return &UserProviderAdapter{repo: repo}
}

// GetUserByID implements auth.UserProvider.
func (a *UserProviderAdapter) GetUserByID(ctx context.Context, userID uuid.UUID) (auth.Profile, error) {
	user, err := a.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return auth.Profile{}, apperr.NotFound("user not found")
		}
		return auth.Profile{}, err
	}

	return auth.Profile{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Roles:    user.Roles,
		IsActive: user.IsActive,
	}, nil
}

// Ensure UserProviderAdapter implements auth.UserProvider
var _ auth.UserProvider = (*UserProviderAdapter)(nil)
