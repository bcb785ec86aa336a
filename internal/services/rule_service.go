package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalog-harmonization-service/internal/models"
	"catalog-harmonization-service/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrNoRules = errors.New("no rules defined for field")

// SaveRulesInput is the payload of a bulk rule submission
type SaveRulesInput struct {
	FieldName      string   `json:"field_name" binding:"required"`
	CanonicalValue string   `json:"canonical_value" binding:"required"`
	Variations     []string `json:"variations" binding:"required"`
}

// RuleApplyResult reports a rule application batch
type RuleApplyResult struct {
	RulesApplied   int    `json:"rules_applied"`
	RecordsUpdated int    `json:"records_updated"`
	LogID          uint   `json:"log_id,omitempty"`
	RuleBatchID    string `json:"rule_batch_id,omitempty"`
}

// RuleService persists normalization rules and rewrites the catalog with them
type RuleService struct {
	products  repository.ProductRepositoryInterface
	rules     repository.RuleRepositoryInterface
	changelog repository.ChangeLogRepositoryInterface
	fieldLock *KeyedMutex
	logger    *logrus.Entry
}

// NewRuleService creates a new RuleService
func NewRuleService(
	products repository.ProductRepositoryInterface,
	rules repository.RuleRepositoryInterface,
	changelog repository.ChangeLogRepositoryInterface,
	logger *logrus.Logger,
) *RuleService {
	return &RuleService{
		products:  products,
		rules:     rules,
		changelog: changelog,
		fieldLock: NewKeyedMutex(),
		logger:    logger.WithField("component", "rules"),
	}
}

// SaveRules upserts one rule per variation, all pointing at the canonical
// value. A variation equal to the canonical is a no-op and is skipped.
func (s *RuleService) SaveRules(ctx context.Context, input SaveRulesInput) (int, error) {
	if !groupableFields[input.FieldName] {
		return 0, ErrUnsupportedField
	}

	batchID := uuid.New().String()
	rules := make([]models.NormalizationRule, 0, len(input.Variations))
	for _, variation := range input.Variations {
		if variation == input.CanonicalValue || variation == "" {
			continue
		}
		rules = append(rules, models.NormalizationRule{
			FieldName:      input.FieldName,
			Variation:      variation,
			CanonicalValue: input.CanonicalValue,
			RuleBatchID:    batchID,
		})
	}

	if err := s.rules.Upsert(ctx, rules); err != nil {
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"field":       input.FieldName,
		"canonical":   input.CanonicalValue,
		"rules_saved": len(rules),
	}).Info("Normalization rules saved")
	return len(rules), nil
}

// ApplyRules rewrites every record whose field value matches a rule variation.
// The whole batch commits as one transaction with one log entry. Calls for the
// same field serialize; different fields run independently.
func (s *RuleService) ApplyRules(ctx context.Context, field string) (*RuleApplyResult, error) {
	if !models.IsProductField(field) {
		return nil, ErrUnsupportedField
	}

	s.fieldLock.Lock("rules:" + field)
	defer s.fieldLock.Unlock("rules:" + field)

	rules, err := s.rules.ListByField(ctx, field)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, ErrNoRules
	}

	canonicalFor := make(map[string]string, len(rules))
	batchID := ""
	var batchSavedAt time.Time
	for _, r := range rules {
		canonicalFor[r.Variation] = r.CanonicalValue
		// most recently saved batch wins for attribution
		if batchID == "" || r.UpdatedAt.After(batchSavedAt) {
			batchID = r.RuleBatchID
			batchSavedAt = r.UpdatedAt
		}
	}

	products, err := s.products.ListAllOrdered(ctx)
	if err != nil {
		return nil, err
	}

	var changes []models.FieldChange
	for i := range products {
		p := &products[i]
		current, err := p.Field(field)
		if err != nil {
			return nil, err
		}
		if current == nil {
			continue
		}
		canonical, ok := canonicalFor[*current]
		if !ok || canonical == *current {
			continue
		}
		newValue := canonical
		changes = append(changes, models.FieldChange{
			RecordID: p.ID,
			Field:    field,
			OldValue: current,
			NewValue: &newValue,
		})
	}

	result := &RuleApplyResult{RulesApplied: len(rules)}
	if len(changes) == 0 {
		// Idempotent re-apply: nothing changed, no log entry.
		return result, nil
	}

	entry := &models.ChangeLogEntry{
		StepID:      "rules:" + field,
		StepName:    fmt.Sprintf("Authority control: %s", field),
		RuleBatchID: &batchID,
	}
	entry, err = s.changelog.ApplyChanges(ctx, entry, changes)
	if err != nil {
		return nil, err
	}

	result.RecordsUpdated = entry.RecordsUpdated
	result.LogID = entry.ID
	result.RuleBatchID = batchID

	s.logger.WithFields(logrus.Fields{
		"field":           field,
		"records_updated": result.RecordsUpdated,
		"log_id":          entry.ID,
	}).Info("Normalization rules applied")
	return result, nil
}

// ListRules returns stored rules, optionally filtered by field
func (s *RuleService) ListRules(ctx context.Context, field string) ([]models.NormalizationRule, error) {
	if field != "" {
		return s.rules.ListByField(ctx, field)
	}
	return s.rules.List(ctx)
}

// DeleteRule removes one rule
func (s *RuleService) DeleteRule(ctx context.Context, id uint) error {
	return s.rules.Delete(ctx, id)
}
