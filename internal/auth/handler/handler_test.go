package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"consultancy_backend/internal/auth/password"
	"consultancy_backend/internal/auth/repository"
	"consultancy_backend/internal/auth/service"
	"consultancy_backend/platform/httpkit"
	"consultancy_backend/platform/logger"
	"consultancy_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type testConfig struct{}

func (testConfig) GetJWTAccessSecret() string        { return "handler-secret" }
func (testConfig) GetAccessTokenTTL() time.Duration  { return time.Hour }
func (testConfig) GetBootstrapAdminEmail() string    { return "" }
func (testConfig) GetBootstrapAdminPassword() string { return "" }

type singleUserRepo struct {
	user repository.User
}

func (r *singleUserRepo) GetUserByID(_ context.Context, id uuid.UUID) (repository.User, error) {
	if id != r.user.ID {
		return repository.User{}, repository.ErrNotFound
	}
	return r.user, nil
}

func (r *singleUserRepo) GetUserByEmail(_ context.Context, email string) (repository.User, error) {
	if !strings.EqualFold(email, r.user.Email) {
		return repository.User{}, repository.ErrNotFound
	}
	return r.user, nil
}

func (r *singleUserRepo) CreateUser(context.Context, repository.User) (repository.User, error) {
	return repository.User{}, repository.ErrEmailTaken
}

func (r *singleUserRepo) ListUsers(context.Context) ([]repository.User, error) {
	return []repository.User{r.user}, nil
}

func (r *singleUserRepo) CountAdmins(context.Context) (int, error) { return 1, nil }

func (r *singleUserRepo) SetUserRoles(_ context.Context, _ uuid.UUID, roles []string) (repository.User, error) {
	r.user.Roles = roles
	return r.user, nil
}

type noMail struct{}

func (noMail) SendAccountCreatedEmail(context.Context, string, string) error { return nil }

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	hash, err := password.Hash("Counsel0r!pass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo := &singleUserRepo{user: repository.User{
		ID:           uuid.New(),
		Email:        "sara@consultancy.test",
		FullName:     "Sara Malik",
		PasswordHash: hash,
		Roles:        []string{service.RoleCounselor},
		IsActive:     true,
	}}

	h := New(service.New(repo, testConfig{}, noMail{}, logger.Discard()), validator.New())

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h.RegisterRoutes(engine.Group("/auth"))
	protected := engine.Group("", httpkit.AuthRequired(testConfig{}))
	protected.GET("/users/me", h.GetMe)
	return engine
}

func do(engine *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestSignInThenMe(t *testing.T) {
	engine := newTestEngine(t)

	rec := do(engine, http.MethodPost, "/auth/sign-in", "", map[string]string{
		"email":    "Sara@Consultancy.test",
		"password": "Counsel0r!pass",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("sign-in: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var auth struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &auth); err != nil || auth.AccessToken == "" {
		t.Fatalf("expected an access token, got %s", rec.Body.String())
	}

	rec = do(engine, http.MethodGet, "/users/me", auth.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var me map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me["full_name"] != "Sara Malik" || me["role"] != service.RoleCounselor || me["email"] != "sara@consultancy.test" {
		t.Fatalf("unexpected me payload %v", me)
	}
}

func TestSignInRejectsBadPassword(t *testing.T) {
	engine := newTestEngine(t)

	rec := do(engine, http.MethodPost, "/auth/sign-in", "", map[string]string{
		"email":    "sara@consultancy.test",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSignInValidatesBody(t *testing.T) {
	engine := newTestEngine(t)

	rec := do(engine, http.MethodPost, "/auth/sign-in", "", map[string]string{"email": "not-an-email"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMeRequiresToken(t *testing.T) {
	engine := newTestEngine(t)

	if rec := do(engine, http.MethodGet, "/users/me", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
