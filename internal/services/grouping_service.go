package services

import (
	"context"
	"errors"
	"sort"
	"strings"

	"catalog-harmonization-service/internal/models"
	"catalog-harmonization-service/internal/repository"
	"github.com/sirupsen/logrus"
)

var ErrUnsupportedField = errors.New("unsupported field for authority analysis")

// groupableFields are the columns the authority-control workflow can analyze
var groupableFields = map[string]bool{
	"brand_capitalized": true,
	"product_name":      true,
	"model":             true,
	"product_type":      true,
}

// GroupingService clusters near-duplicate field values into variation groups.
// Clustering is exact bucketing on a normalized key, deterministic and
// order-independent; no similarity scoring.
type GroupingService struct {
	products repository.ProductRepositoryInterface
	rules    repository.RuleRepositoryInterface
	logger   *logrus.Entry
}

// NewGroupingService creates a new GroupingService
func NewGroupingService(products repository.ProductRepositoryInterface, rules repository.RuleRepositoryInterface, logger *logrus.Logger) *GroupingService {
	return &GroupingService{
		products: products,
		rules:    rules,
		logger:   logger.WithField("component", "grouping"),
	}
}

// accentFolds maps the accented characters common in the source catalogs to
// their base letters, so "Más" and "MAS" share one normalized key.
var accentFolds = map[rune]rune{
	'á': 'a', 'à': 'a', 'ä': 'a', 'â': 'a',
	'é': 'e', 'è': 'e', 'ë': 'e', 'ê': 'e',
	'í': 'i', 'ì': 'i', 'ï': 'i', 'î': 'i',
	'ó': 'o', 'ò': 'o', 'ö': 'o', 'ô': 'o',
	'ú': 'u', 'ù': 'u', 'ü': 'u', 'û': 'u',
	'ñ': 'n', 'ç': 'c',
}

const strippedPunctuation = ".,;:()'\"´-_/&"

// NormalizeKey computes the bucketing key of a raw value: lowercase, trimmed,
// internal whitespace collapsed, punctuation and accents stripped.
func NormalizeKey(value string) string {
	var b strings.Builder
	b.Grow(len(value))

	lastSpace := true // leading whitespace drops
	for _, r := range strings.ToLower(value) {
		if folded, ok := accentFolds[r]; ok {
			r = folded
		}
		if strings.ContainsRune(strippedPunctuation, r) {
			continue
		}
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimRight(b.String(), " ")
}

// Analyze clusters the distinct values of one field. Read-only; resolution
// state is re-derived from the rule store on every call so edited rules are
// reflected immediately.
func (s *GroupingService) Analyze(ctx context.Context, field string) (*models.AuthorityAnalysis, error) {
	if !groupableFields[field] {
		return nil, ErrUnsupportedField
	}

	values, err := s.products.DistinctValues(ctx, field)
	if err != nil {
		return nil, err
	}

	rules, err := s.rules.ListByField(ctx, field)
	if err != nil {
		return nil, err
	}
	ruleByVariation := make(map[string]string, len(rules))
	for _, r := range rules {
		ruleByVariation[r.Variation] = r.CanonicalValue
	}

	buckets := map[string][]models.FieldValueCount{}
	for _, v := range values {
		key := NormalizeKey(v.Value)
		if key == "" {
			continue
		}
		buckets[key] = append(buckets[key], v)
	}

	keys := make([]string, 0, len(buckets))
	for key, members := range buckets {
		if len(members) < 2 {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	analysis := &models.AuthorityAnalysis{
		Groups:     make([]models.VariationGroup, 0, len(keys)),
		TotalRules: len(rules),
	}

	for _, key := range keys {
		members := buckets[key]
		sort.Slice(members, func(i, j int) bool {
			if members[i].Count != members[j].Count {
				return members[i].Count > members[j].Count
			}
			return members[i].Value < members[j].Value
		})

		group := models.VariationGroup{
			Main:       members[0].Value,
			Variations: members,
		}
		for _, m := range members {
			group.Count += m.Count
		}
		group.ResolvedTo = resolveGroup(members, ruleByVariation)

		analysis.Groups = append(analysis.Groups, group)
		if group.ResolvedTo == nil {
			analysis.PendingGroups++
		}
	}

	analysis.TotalGroups = len(analysis.Groups)
	s.logger.WithFields(logrus.Fields{
		"field":          field,
		"total_groups":   analysis.TotalGroups,
		"pending_groups": analysis.PendingGroups,
	}).Debug("Authority analysis complete")
	return analysis, nil
}

// resolveGroup reports the canonical value a fully-ruled group collapses to.
// Every variation must either carry a rule or already equal the canonical.
func resolveGroup(members []models.FieldValueCount, ruleByVariation map[string]string) *string {
	canonical := ""
	for _, m := range members {
		if c, ok := ruleByVariation[m.Value]; ok {
			if canonical == "" {
				canonical = c
			}
			continue
		}
		// No rule: only acceptable if this value is itself the target
		if canonical != "" && m.Value == canonical {
			continue
		}
		if canonical == "" {
			// Could be the canonical of rules seen later; check all rules
			found := false
			for _, c := range ruleByVariation {
				if c == m.Value {
					canonical = c
					found = true
					break
				}
			}
			if !found {
				return nil
			}
			continue
		}
		return nil
	}
	if canonical == "" {
		return nil
	}
	return &canonical
}
