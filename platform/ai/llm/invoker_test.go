package llm

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

type fakeModel struct {
	reply   string
	err     error
	lastReq *model.LLMRequest
}

func (f *fakeModel) Name() string { return "fake" }

func (f *fakeModel) GenerateContent(_ context.Context, req *model.LLMRequest, _ bool) iter.Seq2[*model.LLMResponse, error] {
	f.lastReq = req
	return func(yield func(*model.LLMResponse, error) bool) {
		if f.err != nil {
			yield(nil, f.err)
			return
		}
		yield(&model.LLMResponse{Content: &genai.Content{
			Role:  genai.RoleModel,
			Parts: []*genai.Part{genai.NewPartFromText(f.reply)},
		}}, nil)
	}
}

var draftSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"subject": map[string]any{"type": "string"},
		"body":    map[string]any{"type": "string"},
	},
	"required": []any{"subject", "body"},
}

func TestInvokeValidatesStructuredOutput(t *testing.T) {
	m := &fakeModel{reply: "```json\n{\"subject\":\"Checking in\",\"body\":\"Hello Ada\"}\n```"}
	inv := NewInvoker(m, 0)

	res, err := inv.Invoke(context.Background(), Request{Prompt: "draft", ResponseJSONSchema: draftSchema})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.JSON["subject"] != "Checking in" {
		t.Fatalf("unexpected subject %v", res.JSON["subject"])
	}
	if m.lastReq.Config.ResponseMIMEType != "application/json" {
		t.Fatalf("expected json mime type, got %q", m.lastReq.Config.ResponseMIMEType)
	}
}

func TestInvokeRejectsSchemaMismatch(t *testing.T) {
	inv := NewInvoker(&fakeModel{reply: `{"subject": 42}`}, 0)

	res, err := inv.Invoke(context.Background(), Request{Prompt: "draft", ResponseJSONSchema: draftSchema})
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
	if res.Text != `{"subject": 42}` || res.JSON != nil {
		t.Fatalf("expected raw text without JSON, got %+v", res)
	}
}

func TestInvokeReturnsRawTextWithoutSchema(t *testing.T) {
	inv := NewInvoker(&fakeModel{reply: "  any text at all  "}, 0)

	res, err := inv.Invoke(context.Background(), Request{Prompt: "hi", AddContextFromInternet: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "any text at all" || res.JSON != nil {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestInvokeInternetHintPrependsPrompt(t *testing.T) {
	m := &fakeModel{reply: "ok"}
	inv := NewInvoker(m, 0)

	if _, err := inv.Invoke(context.Background(), Request{Prompt: "deadline for UCL?", AddContextFromInternet: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sent := m.lastReq.Contents[0].Parts[0].Text
	if !strings.HasPrefix(sent, internetContextHint) {
		t.Fatalf("expected internet hint prefix, got %q", sent)
	}
}

func TestInvokeDisabled(t *testing.T) {
	inv := NewInvoker(nil, 0)
	if _, err := inv.Invoke(context.Background(), Request{Prompt: "hi"}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestInvokePropagatesModelError(t *testing.T) {
	inv := NewInvoker(&fakeModel{err: errors.New("upstream 503")}, 0)
	if _, err := inv.Invoke(context.Background(), Request{Prompt: "hi"}); err == nil {
		t.Fatal("expected error")
	}
}
