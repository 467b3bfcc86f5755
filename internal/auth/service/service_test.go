package service

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"consultancy_backend/internal/auth/repository"
	"consultancy_backend/internal/auth/transport"
	"consultancy_backend/platform/apperr"
	"consultancy_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type fakeRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]repository.User
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[uuid.UUID]repository.User)}
}

func (f *fakeRepo) CreateUser(_ context.Context, u repository.User) (repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.User{}, repository.ErrEmailTaken
		}
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeRepo) GetUserByEmail(_ context.Context, email string) (repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return repository.User{}, repository.ErrNotFound
}

func (f *fakeRepo) GetUserByID(_ context.Context, id uuid.UUID) (repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeRepo) ListUsers(context.Context) ([]repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeRepo) CountAdmins(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, u := range f.users {
		for _, r := range u.Roles {
			if r == RoleAdmin {
				n++
			}
		}
	}
	return n, nil
}

func (f *fakeRepo) SetUserRoles(_ context.Context, id uuid.UUID, roles []string) (repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	u.Roles = roles
	f.users[id] = u
	return u, nil
}

type testConfig struct {
	adminEmail    string
	adminPassword string
}

func (testConfig) GetJWTAccessSecret() string          { return "test-secret" }
func (testConfig) GetAccessTokenTTL() time.Duration    { return 15 * time.Minute }
func (c testConfig) GetBootstrapAdminEmail() string    { return c.adminEmail }
func (c testConfig) GetBootstrapAdminPassword() string { return c.adminPassword }

type recordingMailer struct {
	sent []string
}

func (m *recordingMailer) SendAccountCreatedEmail(_ context.Context, to, _ string) error {
	m.sent = append(m.sent, to)
	return nil
}

func newTestService(cfg testConfig) (*Service, *fakeRepo, *recordingMailer) {
	repo := newFakeRepo()
	mailer := &recordingMailer{}
	return New(repo, cfg, mailer, logger.Discard()), repo, mailer
}

func TestSignInIssuesAccessToken(t *testing.T) {
	svc, _, mailer := newTestService(testConfig{})

	created, err := svc.CreateUser(context.Background(), transport.CreateUserRequest{
		Email: "Counselor@Example.com", FullName: "Sam Lee", Password: "Str0ng!pass",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("expected account email, got %v", mailer.sent)
	}

	resp, err := svc.SignIn(context.Background(), "counselor@example.com", "Str0ng!pass")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}

	parsed, err := jwt.Parse(resp.AccessToken, func(*jwt.Token) (interface{}, error) { return []byte("test-secret"), nil })
	if err != nil || !parsed.Valid {
		t.Fatalf("expected valid token, got %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] != created.ID.String() || claims["type"] != "access" {
		t.Fatalf("unexpected claims %v", claims)
	}
}

func TestSignInRejectsWrongPassword(t *testing.T) {
	svc, _, _ := newTestService(testConfig{})
	if _, err := svc.CreateUser(context.Background(), transport.CreateUserRequest{
		Email: "a@example.com", FullName: "A", Password: "Str0ng!pass",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.SignIn(context.Background(), "a@example.com", "nope"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := svc.SignIn(context.Background(), "missing@example.com", "nope"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized for unknown email, got %v", err)
	}
}

func TestSignInLogsAuthEvents(t *testing.T) {
	var buf bytes.Buffer
	repo := newFakeRepo()
	svc := New(repo, testConfig{}, &recordingMailer{}, logger.NewWithWriter("production", &buf))
	if _, err := svc.CreateUser(context.Background(), transport.CreateUserRequest{
		Email: "a@example.com", FullName: "A", Password: "Str0ng!pass",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, _ = svc.SignIn(context.Background(), "a@example.com", "nope")
	if out := buf.String(); !strings.Contains(out, `"msg":"auth_event"`) || !strings.Contains(out, `"success":false`) || !strings.Contains(out, `"reason":"wrong password"`) {
		t.Fatalf("expected failed auth event, got %s", out)
	}

	buf.Reset()
	if _, err := svc.SignIn(context.Background(), "a@example.com", "Str0ng!pass"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if out := buf.String(); !strings.Contains(out, `"success":true`) {
		t.Fatalf("expected successful auth event, got %s", out)
	}
}

func TestCreateUserDuplicateEmailConflicts(t *testing.T) {
	svc, _, _ := newTestService(testConfig{})
	req := transport.CreateUserRequest{Email: "a@example.com", FullName: "A", Password: "Str0ng!pass"}
	if _, err := svc.CreateUser(context.Background(), req); err != nil {
		t.Fatalf("create: %v", err)
	}
	req.Email = "A@EXAMPLE.COM"
	if _, err := svc.CreateUser(context.Background(), req); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestGetMeReportsPrimaryRole(t *testing.T) {
	svc, _, _ := newTestService(testConfig{})
	created, err := svc.CreateUser(context.Background(), transport.CreateUserRequest{
		Email: "a@example.com", FullName: "A", Password: "Str0ng!pass",
		Roles: []string{RoleCounselor, RoleAdmin},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	me, err := svc.GetMe(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.Role != RoleAdmin || me.FullName != "A" {
		t.Fatalf("unexpected me %+v", me)
	}

	if _, err := svc.GetMe(context.Background(), uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEnsureBootstrapAdminRunsOnce(t *testing.T) {
	svc, _, _ := newTestService(testConfig{adminEmail: "root@example.com", adminPassword: "Str0ng!pass"})

	created, err := svc.EnsureBootstrapAdmin(context.Background())
	if err != nil || !created {
		t.Fatalf("expected admin created, got %v, %v", created, err)
	}
	created, err = svc.EnsureBootstrapAdmin(context.Background())
	if err != nil || created {
		t.Fatalf("expected no second admin, got %v, %v", created, err)
	}
}

func TestEnsureBootstrapAdminSkipsWithoutConfig(t *testing.T) {
	svc, repo, _ := newTestService(testConfig{})
	created, err := svc.EnsureBootstrapAdmin(context.Background())
	if err != nil || created || len(repo.users) != 0 {
		t.Fatalf("expected nothing created, got %v, %v", created, err)
	}
}
