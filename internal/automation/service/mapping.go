package service

import (
	"consultancy_backend/internal/automation/evaluator"
	"consultancy_backend/internal/automation/repository"
	"consultancy_backend/internal/automation/transport"
)

func mapRuleResponse(r repository.Rule) transport.RuleResponse {
	return transport.RuleResponse{
		ID:             r.ID,
		Name:           r.Name,
		Description:    r.Description,
		TriggerType:    r.TriggerType,
		Conditions:     transport.Conditions(r.Conditions),
		Actions:        mapActionsOut(r.Actions),
		IsActive:       r.IsActive,
		ExecutionCount: r.ExecutionCount,
		LastRun:        r.LastRun,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func mapActionsOut(actions []evaluator.Action) []transport.Action {
	out := make([]transport.Action, 0, len(actions))
	for _, a := range actions {
		out = append(out, transport.Action(a))
	}
	return out
}

func mapActionsIn(actions []transport.Action) []evaluator.Action {
	out := make([]evaluator.Action, 0, len(actions))
	for _, a := range actions {
		out = append(out, evaluator.Action(a))
	}
	return out
}

func mapRunResponse(run repository.Run) transport.RunResponse {
	return transport.RunResponse(run)
}
