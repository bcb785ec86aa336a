package services

import (
	"regexp"
	"strings"

	"catalog-harmonization-service/internal/models"
)

// Step is one deterministic cleaning transformation. Transform is a pure
// function of the record's current values; returning no changes means the
// record is already clean, which is what makes every step idempotent.
type Step struct {
	ID          string
	Name        string
	Description string
	Order       int
	Transform   func(p *models.Product) []models.FieldChange
}

// stepCatalog is the fixed, ordered pipeline. Steps may be applied
// individually and out of order; none assumes another ran first.
var stepCatalog = []Step{
	{
		ID:          "consolidate_brands",
		Name:        "Consolidate brands",
		Description: "Trim and re-case brand names so spelling variants collapse to one form",
		Order:       1,
		Transform:   consolidateBrands,
	},
	{
		ID:          "clean_product_names",
		Name:        "Clean product names",
		Description: "Trim whitespace and trailing separators from product names",
		Order:       2,
		Transform:   cleanProductNames,
	},
	{
		ID:          "standardize_volumes",
		Name:        "Standardize volumes",
		Description: "Rewrite volume and weight tokens to compact lowercase units (500 ML -> 500ml)",
		Order:       3,
		Transform:   standardizeVolumes,
	},
	{
		ID:          "consolidate_gtin",
		Name:        "Consolidate GTIN reasons",
		Description: "Coalesce the duplicated GTIN reason columns left by the export into one",
		Order:       4,
		Transform:   consolidateGTIN,
	},
	{
		ID:          "fix_export_typos",
		Name:        "Fix export typos",
		Description: "Repair known header typos and mojibake leaked into field values",
		Order:       5,
		Transform:   fixExportTypos,
	},
}

// Steps returns the pipeline in order
func Steps() []Step {
	return stepCatalog
}

// StepByID looks up a step definition
func StepByID(stepID string) (*Step, bool) {
	for i := range stepCatalog {
		if stepCatalog[i].ID == stepID {
			return &stepCatalog[i], true
		}
	}
	return nil, false
}

func change(p *models.Product, field string, oldValue *string, newValue *string) models.FieldChange {
	return models.FieldChange{
		RecordID: p.ID,
		Field:    field,
		OldValue: oldValue,
		NewValue: newValue,
	}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string {
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
}

// titleCaseBrand capitalizes each word, keeping short all-caps tokens (LG,
// 3M, HP) as acronyms.
func titleCaseBrand(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len([]rune(w)) <= 3 && w == strings.ToUpper(w) && w != strings.ToLower(w) {
			continue // acronym
		}
		runes := []rune(strings.ToLower(w))
		for j, r := range runes {
			if r >= 'a' && r <= 'z' {
				runes[j] = r - ('a' - 'A')
				break
			}
			// Leading digits or punctuation: capitalize the first letter after them
			if (r >= '0' && r <= '9') || r == '-' || r == '.' {
				continue
			}
			break
		}
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

func consolidateBrands(p *models.Product) []models.FieldChange {
	if p.BrandCapitalized == nil {
		return nil
	}
	cleaned := titleCaseBrand(collapseWhitespace(*p.BrandCapitalized))
	if cleaned == *p.BrandCapitalized {
		return nil
	}
	return []models.FieldChange{change(p, "brand_capitalized", p.BrandCapitalized, &cleaned)}
}

func cleanProductNames(p *models.Product) []models.FieldChange {
	if p.ProductName == nil {
		return nil
	}
	cleaned := collapseWhitespace(*p.ProductName)
	cleaned = strings.TrimRight(cleaned, " .,;:-/")
	if cleaned != "" {
		runes := []rune(cleaned)
		first := runes[0]
		if first >= 'a' && first <= 'z' {
			runes[0] = first - ('a' - 'A')
			cleaned = string(runes)
		}
	}
	if cleaned == *p.ProductName {
		return nil
	}
	return []models.FieldChange{change(p, "product_name", p.ProductName, &cleaned)}
}

// volumeToken matches quantity+unit pairs in any spacing/casing, e.g.
// "500 ML", "1LT.", "250 Grs", "1.5 lts".
var volumeToken = regexp.MustCompile(`(?i)\b(\d+(?:[.,]\d+)?)\s*(ml|cc|lts?|l|grs?|g|kgs?|kg)\b\.?`)

var unitCanonical = map[string]string{
	"ml": "ml", "cc": "ml",
	"l": "l", "lt": "l", "lts": "l",
	"g": "g", "gr": "g", "grs": "g",
	"kg": "kg", "kgs": "kg",
}

func normalizeVolumes(s string) string {
	return volumeToken.ReplaceAllStringFunc(s, func(match string) string {
		parts := volumeToken.FindStringSubmatch(match)
		unit := unitCanonical[strings.ToLower(parts[2])]
		return parts[1] + unit
	})
}

func standardizeVolumes(p *models.Product) []models.FieldChange {
	var changes []models.FieldChange
	for _, field := range []string{"product_name", "variant"} {
		current, _ := p.Field(field)
		if current == nil {
			continue
		}
		normalized := normalizeVolumes(*current)
		if normalized == *current {
			continue
		}
		value := normalized
		changes = append(changes, change(p, field, current, &value))
	}
	return changes
}

// gtinReasonFields are the duplicated columns the export leaked, in coalesce
// priority order. gtin_reason is the survivor.
var gtinReasonFields = []string{
	"gtin_reason",
	"gtin_product_reason",
	"gtin_empty_reason_1",
	"gtin_empty_reason_2",
	"gtin_empty_reason_3",
	"gtin_reason_lower",
	"gtin_empty_reason_typo",
}

func consolidateGTIN(p *models.Product) []models.FieldChange {
	var survivor *string
	for _, field := range gtinReasonFields {
		value, _ := p.Field(field)
		if value != nil && strings.TrimSpace(*value) != "" {
			trimmed := strings.TrimSpace(*value)
			survivor = &trimmed
			break
		}
	}

	var changes []models.FieldChange
	current, _ := p.Field("gtin_reason")
	if survivor != nil && (current == nil || *current != *survivor) {
		changes = append(changes, change(p, "gtin_reason", current, survivor))
	}
	for _, field := range gtinReasonFields[1:] {
		value, _ := p.Field(field)
		if value != nil {
			changes = append(changes, change(p, field, value, nil))
		}
	}
	return changes
}

// exportTypos are literal value repairs observed in the export: a header typo
// that leaked into classification values, and UTF-8 read as Latin-1.
var exportTypos = []struct{ from, to string }{
	{"EQUIMAPIENTO", "EQUIPAMIENTO"},
	{"Ã¡", "á"}, {"Ã©", "é"}, {"Ã­", "í"}, {"Ã³", "ó"}, {"Ãº", "ú"},
	{"Ã±", "ñ"}, {"Ã‘", "Ñ"}, {"Ã¼", "ü"},
}

var typoFields = []string{
	"classification", "product_type", "product_name", "brand_capitalized",
	"variant", "model", "status", "measure", "unit_of_measure", "gtin_reason",
}

func fixExportTypos(p *models.Product) []models.FieldChange {
	var changes []models.FieldChange
	for _, field := range typoFields {
		current, _ := p.Field(field)
		if current == nil {
			continue
		}
		fixed := *current
		for _, t := range exportTypos {
			fixed = strings.ReplaceAll(fixed, t.from, t.to)
		}
		if fixed == *current {
			continue
		}
		value := fixed
		changes = append(changes, change(p, field, current, &value))
	}
	return changes
}
