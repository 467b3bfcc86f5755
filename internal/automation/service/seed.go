package service

import (
	"context"
	_ "embed"
	"fmt"

	"consultancy_backend/internal/automation/evaluator"
	"consultancy_backend/internal/automation/repository"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

type seedFile struct {
	Rules []seedRule `yaml:"rules"`
}

type seedRule struct {
	Name        string               `yaml:"name"`
	Description string               `yaml:"description"`
	TriggerType string               `yaml:"trigger_type"`
	Conditions  evaluator.Conditions `yaml:"trigger_conditions"`
	Actions     []evaluator.Action   `yaml:"actions"`
	IsActive    bool                 `yaml:"is_active"`
}

// DefaultRules parses the embedded rule set.
func DefaultRules() ([]repository.Rule, error) {
	var file seedFile
	if err := yaml.Unmarshal(defaultRulesYAML, &file); err != nil {
		return nil, fmt.Errorf("parse default rules: %w", err)
	}

	rules := make([]repository.Rule, 0, len(file.Rules))
	for _, r := range file.Rules {
		rules = append(rules, repository.Rule{
			ID:          uuid.New(),
			Name:        r.Name,
			Description: r.Description,
			TriggerType: r.TriggerType,
			Conditions:  r.Conditions,
			Actions:     r.Actions,
			IsActive:    r.IsActive,
		})
	}
	return rules, nil
}

// SeedDefaults stores the default rules when no rule exists yet. It returns
// the number of rules created.
func (s *Service) SeedDefaults(ctx context.Context) (int, error) {
	count, err := s.rules.CountRules(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	defaults, err := DefaultRules()
	if err != nil {
		return 0, err
	}
	now := s.now()
	for _, rule := range defaults {
		rule.CreatedAt, rule.UpdatedAt = now, now
		if _, err := s.rules.CreateRule(ctx, rule); err != nil {
			return 0, fmt.Errorf("seed rule %q: %w", rule.Name, err)
		}
	}
	return len(defaults), nil
}
