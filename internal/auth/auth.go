// Package auth provides authentication and authorization functionality.
// This file defines the public API of the auth bounded context.
// Only types and interfaces defined here should be imported by other domains.
package auth

import "consultancy_backend/internal/auth/ports"

// Profile represents user information that can be shared with other domains.
type Profile = ports.Profile

// UserProvider is an interface that other domains can use to get user information.
// This abstracts authentication details from other bounded contexts.
type UserProvider = ports.UserProvider
