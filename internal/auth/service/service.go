package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"consultancy_backend/internal/auth/password"
	"consultancy_backend/internal/auth/repository"
	"consultancy_backend/internal/auth/transport"
	"consultancy_backend/platform/apperr"
	"consultancy_backend/platform/config"
	"consultancy_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const accessTokenType = "access"

const (
	RoleAdmin     = "admin"
	RoleCounselor = "counselor"
)

// Roles is registered as the "user_role" validation tag.
var Roles = []string{RoleAdmin, RoleCounselor}

// Mailer announces new accounts. Failures are logged, never returned.
type Mailer interface {
	SendAccountCreatedEmail(ctx context.Context, toEmail, fullName string) error
}

type Service struct {
	repo repository.AuthRepository
	cfg  config.AuthServiceConfig
	mail Mailer
	log  *logger.Logger
	now  func() time.Time
}

func New(repo repository.AuthRepository, cfg config.AuthServiceConfig, mailer Mailer, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, mail: mailer, log: log, now: time.Now}
}

func (s *Service) SignIn(ctx context.Context, email, plainPassword string) (transport.AuthResponse, error) {
	email = strings.TrimSpace(email)
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.AuthEvent("sign_in", email, false, "unknown email")
			return transport.AuthResponse{}, apperr.Unauthorized(ErrInvalidCredentials.Error())
		}
		s.log.DatabaseError("get user by email", err)
		return transport.AuthResponse{}, err
	}

	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		s.log.AuthEvent("sign_in", email, false, "wrong password")
		return transport.AuthResponse{}, apperr.Unauthorized(ErrInvalidCredentials.Error())
	}
	if !user.IsActive {
		s.log.AuthEvent("sign_in", email, false, "account disabled")
		return transport.AuthResponse{}, apperr.Forbidden("account disabled")
	}

	ttl := s.cfg.GetAccessTokenTTL()
	accessToken, err := s.signJWT(user.ID, user.Roles, ttl)
	if err != nil {
		return transport.AuthResponse{}, err
	}
	s.log.AuthEvent("sign_in", user.Email, true, "")
	return transport.AuthResponse{AccessToken: accessToken, ExpiresIn: int(ttl.Seconds())}, nil
}

func (s *Service) GetMe(ctx context.Context, userID uuid.UUID) (transport.MeResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return transport.MeResponse{}, err
	}
	return transport.MeResponse{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     primaryRole(user.Roles),
	}, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]transport.UserResponse, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]transport.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, mapUserResponse(u))
	}
	return out, nil
}

// CreateUser adds a staff account. Roles default to counselor.
func (s *Service) CreateUser(ctx context.Context, req transport.CreateUserRequest) (transport.UserResponse, error) {
	roles := req.Roles
	if len(roles) == 0 {
		roles = []string{RoleCounselor}
	}

	user, err := s.createUser(ctx, req.Email, req.FullName, req.Password, roles)
	if err != nil {
		return transport.UserResponse{}, err
	}

	if err := s.mail.SendAccountCreatedEmail(ctx, user.Email, user.FullName); err != nil {
		s.log.WithContext(ctx).Warn("failed to send account email", "userId", user.ID, "error", err)
	}
	return mapUserResponse(user), nil
}

func (s *Service) SetUserRoles(ctx context.Context, userID uuid.UUID, roles []string) (transport.UserResponse, error) {
	user, err := s.repo.SetUserRoles(ctx, userID, dedupe(roles))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.UserResponse{}, apperr.NotFound("user not found")
		}
		return transport.UserResponse{}, err
	}
	return mapUserResponse(user), nil
}

// EnsureBootstrapAdmin creates the configured admin when no admin exists.
// It reports whether an account was created.
func (s *Service) EnsureBootstrapAdmin(ctx context.Context) (bool, error) {
	email := strings.TrimSpace(s.cfg.GetBootstrapAdminEmail())
	plain := s.cfg.GetBootstrapAdminPassword()
	if email == "" || plain == "" {
		return false, nil
	}

	admins, err := s.repo.CountAdmins(ctx)
	if err != nil {
		return false, err
	}
	if admins > 0 {
		return false, nil
	}

	if _, err := s.createUser(ctx, email, "Administrator", plain, []string{RoleAdmin}); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Service) createUser(ctx context.Context, email, fullName, plain string, roles []string) (repository.User, error) {
	hash, err := password.Hash(plain)
	if err != nil {
		return repository.User{}, err
	}

	now := s.now()
	user, err := s.repo.CreateUser(ctx, repository.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: hash,
		Roles:        dedupe(roles),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return repository.User{}, apperr.Conflict(err.Error())
		}
		return repository.User{}, err
	}
	return user, nil
}

func (s *Service) getUser(ctx context.Context, userID uuid.UUID) (repository.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.User{}, apperr.NotFound("user not found")
		}
		return repository.User{}, err
	}
	return user, nil
}

func (s *Service) signJWT(userID uuid.UUID, roles []string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   userID.String(),
		"type":  accessTokenType,
		"roles": roles,
		"exp":   now.Add(ttl).Unix(),
		"iat":   now.Unix(),
	}

	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tokenObj.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
}

func primaryRole(roles []string) string {
	if slices.Contains(roles, RoleAdmin) {
		return RoleAdmin
	}
	return RoleCounselor
}

func dedupe(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}

func mapUserResponse(u repository.User) transport.UserResponse {
	return transport.UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Roles:     u.Roles,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}
