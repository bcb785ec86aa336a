package models

import "time"

// NormalizationRule records that a variant spelling of a field value should be
// rewritten to its canonical form. Rules are persisted so later imports can be
// re-normalized without re-running the review flow.
type NormalizationRule struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	FieldName      string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_rule_field_variation" json:"field_name"`
	Variation      string    `gorm:"type:text;not null;uniqueIndex:idx_rule_field_variation" json:"variation"`
	CanonicalValue string    `gorm:"type:text;not null" json:"canonical_value"`
	RuleBatchID    string    `gorm:"type:varchar(36);index" json:"rule_batch_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName specifies the table name for NormalizationRule
func (NormalizationRule) TableName() string {
	return "normalization_rules"
}

// VariationGroup is a transient cluster of near-duplicate values of one field
// sharing a normalized key. ResolvedTo is set once rules cover every
// non-canonical variation in the group.
type VariationGroup struct {
	Main       string            `json:"main"`
	Variations []FieldValueCount `json:"variations"`
	Count      int64             `json:"count"`
	ResolvedTo *string           `json:"resolved_to"`
}

// AuthorityAnalysis is the full grouping result for one field
type AuthorityAnalysis struct {
	Groups        []VariationGroup `json:"groups"`
	TotalGroups   int              `json:"total_groups"`
	TotalRules    int              `json:"total_rules"`
	PendingGroups int              `json:"pending_groups"`
}
