package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"consultancy_backend/internal/automation/evaluator"
	"consultancy_backend/internal/automation/service"
	"consultancy_backend/platform/logger"
	"consultancy_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// newLockedEngine returns an engine whose run-lock is already held, so no
// store is reached by the run endpoints.
func newLockedEngine(t *testing.T) *gin.Engine {
	t.Helper()
	val := validator.New()
	if err := val.RegisterOneOf("trigger_type", evaluator.TriggerTypes...); err != nil {
		t.Fatalf("register trigger tag: %v", err)
	}
	if err := val.RegisterOneOf("action_type", evaluator.ActionTypes...); err != nil {
		t.Fatalf("register action tag: %v", err)
	}

	lock := service.NewRunLock(nil)
	release, err := lock.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	t.Cleanup(func() { release(context.Background()) })

	runner := service.NewRunner(service.RunnerDeps{Lock: lock, Log: logger.Discard()})
	h := New(service.New(nil, nil, runner), val)

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h.RegisterRoutes(engine.Group("/automation"))
	return engine
}

func post(engine *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestRunRejectedWhileRunInProgress(t *testing.T) {
	engine := newLockedEngine(t)

	if rec := post(engine, "/automation/run", ""); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := post(engine, "/automation/rules/6f1c2a0e-2b7f-4c55-9d57-0c2f4b1d7e11/run", ""); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a single rule, got %d", rec.Code)
	}
}

func TestRunRuleRejectsMalformedID(t *testing.T) {
	engine := newLockedEngine(t)

	if rec := post(engine, "/automation/rules/42/run", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateRuleValidatesTriggerAndActions(t *testing.T) {
	engine := newLockedEngine(t)

	cases := map[string]string{
		"unknown trigger": `{"name":"x","triggerType":"birthday","actions":[]}`,
		"unknown action":  `{"name":"x","triggerType":"communication_gap","actions":[{"actionType":"sms","executionOrder":0}]}`,
		"blank name":      `{"name":"   ","triggerType":"communication_gap"}`,
		"bad threshold":   `{"name":"x","triggerType":"communication_gap","triggerConditions":{"daysThreshold":-2}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if rec := post(engine, "/automation/rules", body); rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}
