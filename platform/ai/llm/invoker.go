// Package llm is the prompt-completion port: a prompt in, raw text or
// schema-validated JSON out. It drives any ADK model.LLM.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

var (
	// ErrDisabled is returned when no model is configured.
	ErrDisabled = errors.New("llm: no model configured")
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("llm: empty response")
	// ErrSchemaMismatch is returned when structured output fails validation.
	ErrSchemaMismatch = errors.New("llm: response does not match schema")
)

const internetContextHint = "Where relevant, draw on current publicly available information " +
	"(admission requirements, deadlines, visa rules) and say when something may have changed."

// Request is a single prompt completion.
type Request struct {
	Prompt            string
	SystemInstruction string
	// ResponseJSONSchema, when set, asks for JSON output and validates it.
	ResponseJSONSchema map[string]any
	// AddContextFromInternet asks the model to lean on current public knowledge.
	// The configured models have no browsing tool, so this is a prompt hint.
	AddContextFromInternet bool
}

// Result holds the model output. JSON is populated only for schema requests.
type Result struct {
	Text string
	JSON map[string]any
}

// Invoker sends requests to a model.LLM.
type Invoker struct {
	model   model.LLM
	timeout time.Duration
}

// NewInvoker wraps m. A nil model yields an invoker that always returns ErrDisabled.
func NewInvoker(m model.LLM, timeout time.Duration) *Invoker {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Invoker{model: m, timeout: timeout}
}

// Enabled reports whether a model is configured.
func (i *Invoker) Enabled() bool {
	return i != nil && i.model != nil
}

// Invoke runs req and returns the model output.
func (i *Invoker) Invoke(ctx context.Context, req Request) (Result, error) {
	if !i.Enabled() {
		return Result{}, ErrDisabled
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return Result{}, errors.New("llm: prompt is required")
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	prompt := req.Prompt
	if req.AddContextFromInternet {
		prompt = internetContextHint + "\n\n" + prompt
	}

	cfg := &genai.GenerateContentConfig{}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if req.ResponseJSONSchema != nil {
		schemaJSON, err := json.Marshal(req.ResponseJSONSchema)
		if err != nil {
			return Result{}, fmt.Errorf("llm: encode schema: %w", err)
		}
		cfg.ResponseMIMEType = "application/json"
		prompt += "\n\nRespond only with a JSON object that satisfies this JSON schema:\n" + string(schemaJSON)
	}

	llmReq := &model.LLMRequest{
		Contents: []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		Config:   cfg,
	}

	var text strings.Builder
	for resp, err := range i.model.GenerateContent(ctx, llmReq, false) {
		if err != nil {
			return Result{}, err
		}
		if resp == nil || resp.Content == nil {
			continue
		}
		for _, part := range resp.Content.Parts {
			if part != nil {
				text.WriteString(part.Text)
			}
		}
	}

	out := strings.TrimSpace(text.String())
	if out == "" {
		return Result{}, ErrEmptyResponse
	}

	result := Result{Text: out}
	if req.ResponseJSONSchema == nil {
		return result, nil
	}

	// On a schema mismatch the raw text is still returned with the error.
	doc, err := ParseJSONObject(out)
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	if err := ValidateAgainstSchema(req.ResponseJSONSchema, doc); err != nil {
		return result, err
	}
	result.JSON = doc
	return result, nil
}

// ParseJSONObject decodes a JSON object from model output, tolerating
// markdown code fences around it.
func ParseJSONObject(text string) (map[string]any, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	}
	if start, end := strings.Index(trimmed, "{"), strings.LastIndex(trimmed, "}"); start >= 0 && end > start {
		trimmed = trimmed[start : end+1]
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ValidateAgainstSchema checks doc against a JSON schema given as a Go map.
func ValidateAgainstSchema(schema map[string]any, doc map[string]any) error {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("llm: schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return fmt.Errorf("%w: %s", ErrSchemaMismatch, strings.Join(problems, "; "))
}
