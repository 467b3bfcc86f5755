package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"consultancy_backend/internal/automation/evaluator"
	"consultancy_backend/platform/ai/llm"

	"github.com/google/uuid"
)

type stubInvoker struct {
	res llm.Result
	err error
	got llm.Request
}

func (s *stubInvoker) Invoke(_ context.Context, req llm.Request) (llm.Result, error) {
	s.got = req
	return s.res, s.err
}

func gapMatch() evaluator.Match {
	return evaluator.Match{
		TriggerType: evaluator.TriggerCommunicationGap,
		Student:     evaluator.Student{ID: uuid.New(), Name: "Amira"},
	}
}

func TestDraftUsesStructuredModelOutput(t *testing.T) {
	inv := &stubInvoker{res: llm.Result{JSON: map[string]any{"subject": "Hello", "body": " Let's talk "}}}
	draft, err := NewLLMEnricher(inv).Draft(context.Background(), gapMatch())
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	if draft.Fallback || draft.Subject != "Hello" || draft.Body != "Let's talk" {
		t.Fatalf("unexpected draft %+v", draft)
	}
	if !strings.Contains(inv.got.Prompt, "Amira") {
		t.Fatalf("expected student name in prompt, got %q", inv.got.Prompt)
	}
}

func TestDraftAcceptsFreeText(t *testing.T) {
	inv := &stubInvoker{res: llm.Result{Text: "Hi Amira, shall we talk?"}, err: llm.ErrSchemaMismatch}
	draft, err := NewLLMEnricher(inv).Draft(context.Background(), gapMatch())
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	if draft.Body != "Hi Amira, shall we talk?" || draft.Fallback {
		t.Fatalf("unexpected draft %+v", draft)
	}
}

func TestDraftFallsBackToTemplate(t *testing.T) {
	disabled := &stubInvoker{err: llm.ErrDisabled}
	draft, err := NewLLMEnricher(disabled).Draft(context.Background(), gapMatch())
	if err != nil || !draft.Fallback {
		t.Fatalf("expected silent template fallback, got %+v, %v", draft, err)
	}

	failing := &stubInvoker{err: errors.New("timeout")}
	draft, err = NewLLMEnricher(failing).Draft(context.Background(), gapMatch())
	if err == nil {
		t.Fatal("expected the model failure to be reported")
	}
	if !draft.Fallback || !strings.Contains(draft.Body, "Amira") {
		t.Fatalf("expected template draft, got %+v", draft)
	}
}

func TestDraftSkipsModelForOtherTriggers(t *testing.T) {
	inv := &stubInvoker{err: errors.New("must not be called")}
	m := gapMatch()
	m.TriggerType = evaluator.TriggerDocumentPending

	draft, err := NewLLMEnricher(inv).Draft(context.Background(), m)
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	if !draft.Fallback || inv.got.Prompt != "" {
		t.Fatalf("expected template without a model call, got %+v", draft)
	}
}
