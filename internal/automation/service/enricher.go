package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"consultancy_backend/internal/automation/evaluator"
	"consultancy_backend/platform/ai/llm"
	"consultancy_backend/platform/metrics"
)

const purposeFollowUpDraft = "follow_up_draft"

var followUpSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"subject": map[string]any{"type": "string"},
		"body":    map[string]any{"type": "string"},
	},
	"required": []any{"body"},
}

const followUpSystemInstruction = "You are an admissions counselor at a study-abroad consultancy. " +
	"Write short, warm, professional follow-up emails. Never invent offers, deadlines or fees."

// Invoker is the prompt completion port.
type Invoker interface {
	Invoke(ctx context.Context, req llm.Request) (llm.Result, error)
}

// LLMEnricher drafts communication-gap follow-ups with a model and falls
// back to a template for every other trigger, or when the model fails.
type LLMEnricher struct {
	invoker Invoker
}

func NewLLMEnricher(invoker Invoker) *LLMEnricher {
	return &LLMEnricher{invoker: invoker}
}

// Draft always returns a usable draft. The error is non-nil when the model
// was asked and failed; the draft is then the template.
func (e *LLMEnricher) Draft(ctx context.Context, m evaluator.Match) (Draft, error) {
	if m.TriggerType != evaluator.TriggerCommunicationGap || e.invoker == nil {
		return TemplateDraft(m), nil
	}

	res, err := e.invoker.Invoke(ctx, llm.Request{
		Prompt:             followUpPrompt(m),
		SystemInstruction:  followUpSystemInstruction,
		ResponseJSONSchema: followUpSchema,
	})
	switch {
	case err == nil:
		metrics.LLMCalls.WithLabelValues(purposeFollowUpDraft, "ok").Inc()
		body, _ := res.JSON["body"].(string)
		subject, _ := res.JSON["subject"].(string)
		if strings.TrimSpace(body) == "" {
			body = res.Text
		}
		return Draft{Subject: strings.TrimSpace(subject), Body: strings.TrimSpace(body)}, nil
	case errors.Is(err, llm.ErrSchemaMismatch) && res.Text != "":
		// Free text is still a usable draft.
		metrics.LLMCalls.WithLabelValues(purposeFollowUpDraft, "unstructured").Inc()
		return Draft{Body: res.Text}, nil
	case errors.Is(err, llm.ErrDisabled):
		metrics.LLMCalls.WithLabelValues(purposeFollowUpDraft, "disabled").Inc()
		return TemplateDraft(m), nil
	default:
		metrics.LLMCalls.WithLabelValues(purposeFollowUpDraft, "error").Inc()
		return TemplateDraft(m), fmt.Errorf("draft follow-up for %s: %w", m.Student.ID, err)
	}
}

func followUpPrompt(m evaluator.Match) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Draft a follow-up email to %s, a prospective international student.\n", m.Student.Name)
	if m.LastContactAt != nil {
		fmt.Fprintf(&b, "We last spoke on %s.\n", m.LastContactAt.Format("2 January 2006"))
	} else {
		b.WriteString("We have not spoken to them since their first inquiry.\n")
	}
	b.WriteString("Invite them to book a short call about their study plans and ask whether anything is blocking them.")
	return b.String()
}

// TemplateDraft is the deterministic draft used without a model.
func TemplateDraft(m evaluator.Match) Draft {
	name := m.Student.Name
	switch m.TriggerType {
	case evaluator.TriggerDeadlineApproaching:
		target := ""
		if m.Application != nil {
			target = m.Application.UniversityName
			if m.Application.CourseName != "" {
				target = m.Application.CourseName + " at " + target
			}
		}
		return Draft{
			Subject:  "Your application deadline is coming up",
			Body:     fmt.Sprintf("Hi %s,\n\nThe deadline for your application to %s is %s and it has not been submitted yet. Reply to this email and we will help you finish it.", name, target, m.DueDate.Format("2 January 2006")),
			Fallback: true,
		}
	case evaluator.TriggerDocumentPending:
		return Draft{
			Subject:  "We are reviewing your documents",
			Body:     fmt.Sprintf("Hi %s,\n\nThanks for uploading your documents. Our team is reviewing them and will be in touch shortly.", name),
			Fallback: true,
		}
	default:
		return Draft{
			Subject:  "Checking in on your study abroad plans",
			Body:     fmt.Sprintf("Hi %s,\n\nWe wanted to check in on your study abroad plans. Would you like to book a short call with your counselor this week?", name),
			Fallback: true,
		}
	}
}
