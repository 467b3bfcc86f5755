package service

import (
	"context"
	"errors"
	"time"

	"consultancy_backend/internal/automation/evaluator"
	"consultancy_backend/internal/automation/repository"
	"consultancy_backend/internal/automation/transport"
	"consultancy_backend/platform/apperr"
	"consultancy_backend/platform/sanitize"

	"github.com/google/uuid"
)

const defaultRunsLimit = 50

// Service manages rule definitions and starts runs on request.
type Service struct {
	rules  RuleStore
	runs   RunStore
	runner *Runner
	now    func() time.Time
}

// New creates a new automation service.
func New(rules RuleStore, runs RunStore, runner *Runner) *Service {
	return &Service{rules: rules, runs: runs, runner: runner, now: time.Now}
}

func (s *Service) CreateRule(ctx context.Context, req transport.CreateRuleRequest) (transport.RuleResponse, error) {
	now := s.now()
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	created, err := s.rules.CreateRule(ctx, repository.Rule{
		ID:          uuid.New(),
		Name:        sanitize.Text(req.Name),
		Description: sanitize.Text(req.Description),
		TriggerType: req.TriggerType,
		Conditions:  evaluator.Conditions(req.Conditions),
		Actions:     mapActionsIn(req.Actions),
		IsActive:    active,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return transport.RuleResponse{}, err
	}
	return mapRuleResponse(created), nil
}

func (s *Service) GetRule(ctx context.Context, id uuid.UUID) (transport.RuleResponse, error) {
	rule, err := s.rules.GetRule(ctx, id)
	if err != nil {
		return transport.RuleResponse{}, err
	}
	return mapRuleResponse(rule), nil
}

func (s *Service) ListRules(ctx context.Context) ([]transport.RuleResponse, error) {
	rules, err := s.rules.ListRules(ctx, false)
	if err != nil {
		return nil, err
	}
	out := make([]transport.RuleResponse, 0, len(rules))
	for _, r := range rules {
		out = append(out, mapRuleResponse(r))
	}
	return out, nil
}

func (s *Service) UpdateRule(ctx context.Context, id uuid.UUID, req transport.UpdateRuleRequest) (transport.RuleResponse, error) {
	rule, err := s.rules.GetRule(ctx, id)
	if err != nil {
		return transport.RuleResponse{}, err
	}

	if req.Name != nil {
		rule.Name = sanitize.Text(*req.Name)
	}
	if req.Description != nil {
		rule.Description = sanitize.Text(*req.Description)
	}
	if req.TriggerType != nil {
		rule.TriggerType = *req.TriggerType
	}
	if req.Conditions != nil {
		rule.Conditions = evaluator.Conditions(*req.Conditions)
	}
	if req.Actions != nil {
		rule.Actions = mapActionsIn(*req.Actions)
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	rule.UpdatedAt = s.now()

	updated, err := s.rules.UpdateRule(ctx, rule)
	if err != nil {
		return transport.RuleResponse{}, err
	}
	return mapRuleResponse(updated), nil
}

// ToggleRule flips is_active.
func (s *Service) ToggleRule(ctx context.Context, id uuid.UUID) (transport.RuleResponse, error) {
	rule, err := s.rules.GetRule(ctx, id)
	if err != nil {
		return transport.RuleResponse{}, err
	}
	rule.IsActive = !rule.IsActive
	rule.UpdatedAt = s.now()

	updated, err := s.rules.UpdateRule(ctx, rule)
	if err != nil {
		return transport.RuleResponse{}, err
	}
	return mapRuleResponse(updated), nil
}

// StartRun starts a manual run over all active rules, or over one rule when
// ruleID is set. The returned record is still running.
func (s *Service) StartRun(ctx context.Context, ruleID *uuid.UUID) (transport.RunResponse, error) {
	run, err := s.runner.Start(ctx, TriggerManual, ruleID)
	if err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			return transport.RunResponse{}, apperr.Conflict(err.Error())
		}
		return transport.RunResponse{}, err
	}
	return mapRunResponse(run), nil
}

func (s *Service) GetRun(ctx context.Context, id uuid.UUID) (transport.RunResponse, error) {
	run, err := s.runs.GetRun(ctx, id)
	if err != nil {
		return transport.RunResponse{}, err
	}
	return mapRunResponse(run), nil
}

func (s *Service) ListRuns(ctx context.Context, req transport.ListRunsRequest) ([]transport.RunResponse, error) {
	limit := req.Limit
	if limit == 0 {
		limit = defaultRunsLimit
	}
	runs, err := s.runs.ListRuns(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]transport.RunResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, mapRunResponse(run))
	}
	return out, nil
}
