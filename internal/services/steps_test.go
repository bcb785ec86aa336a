package services

import (
	"testing"

	"catalog-harmonization-service/internal/models"
	"github.com/stretchr/testify/assert"
)

func strp(s string) *string { return &s }

func TestStepCatalogOrder(t *testing.T) {
	steps := Steps()
	assert.Len(t, steps, 5)
	for i, step := range steps {
		assert.Equal(t, i+1, step.Order)
	}

	ids := []string{"consolidate_brands", "clean_product_names", "standardize_volumes", "consolidate_gtin", "fix_export_typos"}
	for i, step := range steps {
		assert.Equal(t, ids[i], step.ID)
	}

	_, ok := StepByID("does_not_exist")
	assert.False(t, ok)
}

func TestConsolidateBrands(t *testing.T) {
	cases := []struct {
		in   string
		want string // empty means no change expected
	}{
		{"  sony  ", "Sony"},
		{"SONY CORP", "Sony Corp"},
		{"LG  electronics", "LG Electronics"},
		{"LG", ""},
		{"3M", ""},
		{"philips   avent", "Philips Avent"},
		{"Sony", ""},
	}
	for _, c := range cases {
		p := &models.Product{ID: 1, BrandCapitalized: strp(c.in)}
		changes := consolidateBrands(p)
		if c.want == "" {
			assert.Empty(t, changes, "input %q", c.in)
			continue
		}
		if assert.Len(t, changes, 1, "input %q", c.in) {
			assert.Equal(t, "brand_capitalized", changes[0].Field)
			assert.Equal(t, c.in, *changes[0].OldValue)
			assert.Equal(t, c.want, *changes[0].NewValue)
		}
	}

	assert.Empty(t, consolidateBrands(&models.Product{ID: 1}))
}

func TestCleanProductNames(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  Televisor LED 40   ", "Televisor LED 40"},
		{"Televisor LED 40 -", "Televisor LED 40"},
		{"parlante bluetooth", "Parlante bluetooth"},
		{"Cafetera  express...", "Cafetera express"},
		{"Televisor LED 40", ""},
	}
	for _, c := range cases {
		p := &models.Product{ID: 1, ProductName: strp(c.in)}
		changes := cleanProductNames(p)
		if c.want == "" {
			assert.Empty(t, changes, "input %q", c.in)
			continue
		}
		if assert.Len(t, changes, 1, "input %q", c.in) {
			assert.Equal(t, c.want, *changes[0].NewValue)
		}
	}
}

func TestStandardizeVolumes(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Bebida 500 ML", "Bebida 500ml"},
		{"Aceite 1 LT.", "Aceite 1l"},
		{"Harina 250 Grs", "Harina 250g"},
		{"Arroz 1 KG", "Arroz 1kg"},
		{"Jugo 1.5 lts", "Jugo 1.5l"},
		{"Shampoo 400cc", "Shampoo 400ml"},
		{"Bebida 500ml", ""},
		{"Modelo XL", ""},
	}
	for _, c := range cases {
		p := &models.Product{ID: 1, ProductName: strp(c.in)}
		changes := standardizeVolumes(p)
		if c.want == "" {
			assert.Empty(t, changes, "input %q", c.in)
			continue
		}
		if assert.Len(t, changes, 1, "input %q", c.in) {
			assert.Equal(t, "product_name", changes[0].Field)
			assert.Equal(t, c.want, *changes[0].NewValue)
		}
	}
}

func TestStandardizeVolumes_VariantField(t *testing.T) {
	p := &models.Product{
		ID:          1,
		ProductName: strp("Bebida 500 ML"),
		Variant:     strp("Pack 6 x 350 CC"),
	}
	changes := standardizeVolumes(p)
	assert.Len(t, changes, 2)
	assert.Equal(t, "Bebida 500ml", *changes[0].NewValue)
	assert.Equal(t, "Pack 6 x 350ml", *changes[1].NewValue)
}

func TestConsolidateGTIN(t *testing.T) {
	p := &models.Product{
		ID:               1,
		GTINEmptyReason1: strp("  sin codigo  "),
		GTINReasonLower:  strp("sin codigo"),
	}
	changes := consolidateGTIN(p)

	// Survivor lands in gtin_reason, both duplicates are nulled.
	if assert.Len(t, changes, 3) {
		assert.Equal(t, "gtin_reason", changes[0].Field)
		assert.Equal(t, "sin codigo", *changes[0].NewValue)
		assert.Nil(t, changes[1].NewValue)
		assert.Nil(t, changes[2].NewValue)
	}
}

func TestConsolidateGTIN_AlreadyClean(t *testing.T) {
	p := &models.Product{ID: 1, GTINReason: strp("sin codigo")}
	assert.Empty(t, consolidateGTIN(p))
}

func TestFixExportTypos(t *testing.T) {
	p := &models.Product{
		ID:             1,
		Classification: strp("EQUIMAPIENTO HOGAR"),
		ProductName:    strp("CafÃ© molido"),
	}
	changes := fixExportTypos(p)

	if assert.Len(t, changes, 2) {
		assert.Equal(t, "classification", changes[0].Field)
		assert.Equal(t, "EQUIPAMIENTO HOGAR", *changes[0].NewValue)
		assert.Equal(t, "product_name", changes[1].Field)
		assert.Equal(t, "Café molido", *changes[1].NewValue)
	}
}

func TestStepsAreIdempotent(t *testing.T) {
	p := &models.Product{
		ID:               1,
		BrandCapitalized: strp("  sony corp  "),
		ProductName:      strp("  bebida 500 ML - "),
		Classification:   strp("EQUIMAPIENTO"),
		GTINEmptyReason1: strp("sin codigo"),
	}

	for _, step := range Steps() {
		for _, c := range step.Transform(p) {
			assert.NoError(t, p.SetField(c.Field, c.NewValue))
		}
		// Re-running against the transformed record changes nothing.
		assert.Empty(t, step.Transform(p), "step %s", step.ID)
	}
}
