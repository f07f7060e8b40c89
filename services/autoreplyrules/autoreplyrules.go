package autoreplyrules

import (
	"context"
	"fmt"
	"log"

	"msgbridge/core"
	"msgbridge/db"
	"msgbridge/models"
)

type AutoReplyRulesService struct {
	rulesRepo *db.PostgresAutoReplyRulesRepository
}

func NewAutoReplyRulesService(rulesRepo *db.PostgresAutoReplyRulesRepository) *AutoReplyRulesService {
	return &AutoReplyRulesService{rulesRepo: rulesRepo}
}

func (s *AutoReplyRulesService) ListActiveRules(ctx context.Context) ([]*models.AutoReplyRule, error) {
	log.Printf("📋 Starting to list active auto reply rules")

	rules, err := s.rulesRepo.ListActiveRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active rules: %w", err)
	}

	log.Printf("📋 Completed successfully - found %d active rules", len(rules))
	return rules, nil
}

func (s *AutoReplyRulesService) CreateRule(
	ctx context.Context,
	rule *models.AutoReplyRule,
) (*models.AutoReplyRule, error) {
	log.Printf("📋 Starting to create auto reply rule: %s", rule.Name)

	if rule.Name == "" {
		return nil, fmt.Errorf("rule name cannot be empty")
	}
	if len(rule.TriggerKeywords) == 0 {
		return nil, fmt.Errorf("rule must have at least one trigger keyword")
	}
	if rule.ResponseTemplate == "" {
		return nil, fmt.Errorf("response template cannot be empty")
	}
	if rule.ConfidenceThreshold < 0 || rule.ConfidenceThreshold > 1 {
		return nil, fmt.Errorf("confidence threshold must be within [0, 1]")
	}

	rule.ID = core.NewID("rule")
	if err := s.rulesRepo.CreateRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to create rule: %w", err)
	}

	log.Printf("📋 Completed successfully - created rule with ID: %s", rule.ID)
	return rule, nil
}
