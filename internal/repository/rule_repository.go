package repository

import (
	"context"

	"catalog-harmonization-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RuleRepositoryInterface defines normalization rule data access
type RuleRepositoryInterface interface {
	Upsert(ctx context.Context, rules []models.NormalizationRule) error
	ListByField(ctx context.Context, field string) ([]models.NormalizationRule, error)
	List(ctx context.Context) ([]models.NormalizationRule, error)
	Delete(ctx context.Context, id uint) error
}

// RuleRepository handles database operations for normalization rules
type RuleRepository struct {
	db *gorm.DB
}

// NewRuleRepository creates a new RuleRepository
func NewRuleRepository(db *gorm.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// Upsert inserts rules, replacing the canonical form when a rule for the same
// (field_name, variation) pair already exists.
func (r *RuleRepository) Upsert(ctx context.Context, rules []models.NormalizationRule) error {
	if len(rules) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "field_name"}, {Name: "variation"}},
		DoUpdates: clause.AssignmentColumns([]string{"canonical_value", "rule_batch_id", "updated_at"}),
	}).Create(&rules).Error
}

// ListByField retrieves all rules targeting one column
func (r *RuleRepository) ListByField(ctx context.Context, field string) ([]models.NormalizationRule, error) {
	var rules []models.NormalizationRule
	err := r.db.WithContext(ctx).
		Where("field_name = ?", field).
		Order("variation ASC").
		Find(&rules).Error
	return rules, err
}

// List retrieves all rules
func (r *RuleRepository) List(ctx context.Context) ([]models.NormalizationRule, error) {
	var rules []models.NormalizationRule
	err := r.db.WithContext(ctx).
		Order("field_name ASC, variation ASC").
		Find(&rules).Error
	return rules, err
}

// Delete removes a rule
func (r *RuleRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.NormalizationRule{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
