package services

import (
	"context"
	"testing"
	"time"

	"catalog-harmonization-service/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newRuleService(products *MockProductRepository, rules *MockRuleRepository, changelog *MockChangeLogRepository) *RuleService {
	return NewRuleService(products, rules, changelog, logrus.New())
}

func sonyRules(batchID string) []models.NormalizationRule {
	return []models.NormalizationRule{
		{FieldName: "brand_capitalized", Variation: "SONY", CanonicalValue: "Sony", RuleBatchID: batchID},
		{FieldName: "brand_capitalized", Variation: "Sony Corp", CanonicalValue: "Sony", RuleBatchID: batchID},
		{FieldName: "brand_capitalized", Variation: "sony", CanonicalValue: "Sony", RuleBatchID: batchID},
	}
}

func TestSaveRules_SkipsCanonicalAndEmpty(t *testing.T) {
	ctx := context.Background()
	mockRules := new(MockRuleRepository)
	service := newRuleService(new(MockProductRepository), mockRules, new(MockChangeLogRepository))

	mockRules.On("Upsert", ctx, mock.MatchedBy(func(rules []models.NormalizationRule) bool {
		return len(rules) == 2
	})).Return(nil)

	saved, err := service.SaveRules(ctx, SaveRulesInput{
		FieldName:      "brand_capitalized",
		CanonicalValue: "Sony",
		Variations:     []string{"sony", "SONY", "Sony", ""},
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, saved)
	mockRules.AssertExpectations(t)
}

func TestSaveRules_UnsupportedField(t *testing.T) {
	service := newRuleService(new(MockProductRepository), new(MockRuleRepository), new(MockChangeLogRepository))

	_, err := service.SaveRules(context.Background(), SaveRulesInput{
		FieldName:      "price",
		CanonicalValue: "x",
		Variations:     []string{"y"},
	})
	assert.ErrorIs(t, err, ErrUnsupportedField)
}

func TestApplyRules_SonyScenario(t *testing.T) {
	ctx := context.Background()
	mockProducts := new(MockProductRepository)
	mockRules := new(MockRuleRepository)
	mockChangelog := new(MockChangeLogRepository)
	service := newRuleService(mockProducts, mockRules, mockChangelog)

	mockRules.On("ListByField", ctx, "brand_capitalized").Return(sonyRules("batch-1"), nil)
	mockProducts.On("ListAllOrdered", ctx).Return([]models.Product{
		{ID: 1, BrandCapitalized: strp("sony")},
		{ID: 2, BrandCapitalized: strp("SONY")},
		{ID: 3, BrandCapitalized: strp("Sony Corp")},
		{ID: 4, BrandCapitalized: strp("Sony")}, // already canonical
		{ID: 5},                                 // unset field
	}, nil)

	mockChangelog.On("ApplyChanges", ctx,
		mock.MatchedBy(func(entry *models.ChangeLogEntry) bool {
			return entry.StepID == "rules:brand_capitalized" && entry.RuleBatchID != nil && *entry.RuleBatchID == "batch-1"
		}),
		mock.MatchedBy(func(changes []models.FieldChange) bool {
			if len(changes) != 3 {
				return false
			}
			for _, c := range changes {
				if c.Field != "brand_capitalized" || *c.NewValue != "Sony" {
					return false
				}
			}
			return true
		}),
	).Return(&models.ChangeLogEntry{
		ID:             42,
		StepID:         "rules:brand_capitalized",
		RecordsUpdated: 3,
		FieldsModified: models.StringList{"brand_capitalized"},
	}, nil)

	result, err := service.ApplyRules(ctx, "brand_capitalized")

	assert.NoError(t, err)
	assert.Equal(t, 3, result.RulesApplied)
	assert.Equal(t, 3, result.RecordsUpdated)
	assert.Equal(t, uint(42), result.LogID)
	assert.Equal(t, "batch-1", result.RuleBatchID)
	mockChangelog.AssertExpectations(t)
}

func TestApplyRules_AttributesNewestBatch(t *testing.T) {
	ctx := context.Background()
	mockProducts := new(MockProductRepository)
	mockRules := new(MockRuleRepository)
	mockChangelog := new(MockChangeLogRepository)
	service := newRuleService(mockProducts, mockRules, mockChangelog)

	older := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	// alphabetical variation order puts the older batch last
	mockRules.On("ListByField", ctx, "brand_capitalized").Return([]models.NormalizationRule{
		{FieldName: "brand_capitalized", Variation: "LG Corp", CanonicalValue: "LG", RuleBatchID: "batch-2", UpdatedAt: newer},
		{FieldName: "brand_capitalized", Variation: "sony", CanonicalValue: "Sony", RuleBatchID: "batch-1", UpdatedAt: older},
	}, nil)
	mockProducts.On("ListAllOrdered", ctx).Return([]models.Product{
		{ID: 1, BrandCapitalized: strp("LG Corp")},
	}, nil)

	mockChangelog.On("ApplyChanges", ctx,
		mock.MatchedBy(func(entry *models.ChangeLogEntry) bool {
			return entry.RuleBatchID != nil && *entry.RuleBatchID == "batch-2"
		}),
		mock.Anything,
	).Return(&models.ChangeLogEntry{ID: 43, RecordsUpdated: 1}, nil)

	result, err := service.ApplyRules(ctx, "brand_capitalized")

	assert.NoError(t, err)
	assert.Equal(t, "batch-2", result.RuleBatchID)
	mockChangelog.AssertExpectations(t)
}

func TestApplyRules_SecondCallIsIdempotent(t *testing.T) {
	ctx := context.Background()
	mockProducts := new(MockProductRepository)
	mockRules := new(MockRuleRepository)
	mockChangelog := new(MockChangeLogRepository)
	service := newRuleService(mockProducts, mockRules, mockChangelog)

	mockRules.On("ListByField", ctx, "brand_capitalized").Return(sonyRules("batch-1"), nil)
	// Catalog already normalized: every record holds the canonical value.
	mockProducts.On("ListAllOrdered", ctx).Return([]models.Product{
		{ID: 1, BrandCapitalized: strp("Sony")},
		{ID: 2, BrandCapitalized: strp("Sony")},
	}, nil)

	result, err := service.ApplyRules(ctx, "brand_capitalized")

	assert.NoError(t, err)
	assert.Equal(t, 3, result.RulesApplied)
	assert.Equal(t, 0, result.RecordsUpdated)
	assert.Zero(t, result.LogID)
	mockChangelog.AssertNotCalled(t, "ApplyChanges", mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyRules_NoRules(t *testing.T) {
	ctx := context.Background()
	mockRules := new(MockRuleRepository)
	service := newRuleService(new(MockProductRepository), mockRules, new(MockChangeLogRepository))

	mockRules.On("ListByField", ctx, "brand_capitalized").Return([]models.NormalizationRule{}, nil)

	_, err := service.ApplyRules(ctx, "brand_capitalized")
	assert.ErrorIs(t, err, ErrNoRules)
}

func TestApplyRules_UnknownField(t *testing.T) {
	service := newRuleService(new(MockProductRepository), new(MockRuleRepository), new(MockChangeLogRepository))

	_, err := service.ApplyRules(context.Background(), "no_such_column")
	assert.ErrorIs(t, err, ErrUnsupportedField)
}
