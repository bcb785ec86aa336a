package models

import (
	"fmt"
	"time"
)

// ValidationStatus tracks manual review state of a catalog record.
type ValidationStatus string

const (
	ValidationPending ValidationStatus = "pending"
	ValidationValid   ValidationStatus = "valid"
	ValidationInvalid ValidationStatus = "invalid"
)

// Product is one row of the imported catalog. Column names mirror the
// normalized export headers, including the messy GTIN reason variants that
// the harmonization steps consolidate.
type Product struct {
	ID uint `gorm:"primaryKey" json:"id"`

	ProductName      *string `gorm:"type:text;index" json:"product_name"`
	Classification   *string `gorm:"type:text" json:"classification"`
	ProductType      *string `gorm:"type:text" json:"product_type"`
	Status           *string `gorm:"type:text" json:"status"`
	Variant          *string `gorm:"type:text" json:"variant"`
	BrandCapitalized *string `gorm:"type:text;index" json:"brand_capitalized"`
	Model            *string `gorm:"type:text" json:"model"`
	SKU              *string `gorm:"column:sku;type:text;index" json:"sku"`
	Barcode          *string `gorm:"type:text" json:"barcode"`

	GTIN                *string `gorm:"column:gtin;type:text" json:"gtin"`
	GTINReason          *string `gorm:"column:gtin_reason;type:text" json:"gtin_reason"`
	GTINEmptyReason1    *string `gorm:"column:gtin_empty_reason_1;type:text" json:"gtin_empty_reason_1"`
	GTINEmptyReason2    *string `gorm:"column:gtin_empty_reason_2;type:text" json:"gtin_empty_reason_2"`
	GTINEmptyReason3    *string `gorm:"column:gtin_empty_reason_3;type:text" json:"gtin_empty_reason_3"`
	GTINProductReason   *string `gorm:"column:gtin_product_reason;type:text" json:"gtin_product_reason"`
	GTINReasonLower     *string `gorm:"column:gtin_reason_lower;type:text" json:"gtin_reason_lower"`
	GTINEmptyReasonTypo *string `gorm:"column:gtin_empty_reason_typo;type:text" json:"gtin_empty_reason_typo"`

	Measure       *string `gorm:"type:text" json:"measure"`
	UnitOfMeasure *string `gorm:"type:text" json:"unit_of_measure"`

	ValidationStatus ValidationStatus `gorm:"type:varchar(20);default:'pending'" json:"validation_status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Product
func (Product) TableName() string {
	return "products"
}

// productFields maps wire-level field names to accessors. Only fields listed
// here can be targeted by grouping, rules, harmonization steps or sync
// write-back.
var productFields = map[string]func(*Product) **string{
	"product_name":           func(p *Product) **string { return &p.ProductName },
	"classification":         func(p *Product) **string { return &p.Classification },
	"product_type":           func(p *Product) **string { return &p.ProductType },
	"status":                 func(p *Product) **string { return &p.Status },
	"variant":                func(p *Product) **string { return &p.Variant },
	"brand_capitalized":      func(p *Product) **string { return &p.BrandCapitalized },
	"model":                  func(p *Product) **string { return &p.Model },
	"sku":                    func(p *Product) **string { return &p.SKU },
	"barcode":                func(p *Product) **string { return &p.Barcode },
	"gtin":                   func(p *Product) **string { return &p.GTIN },
	"gtin_reason":            func(p *Product) **string { return &p.GTINReason },
	"gtin_empty_reason_1":    func(p *Product) **string { return &p.GTINEmptyReason1 },
	"gtin_empty_reason_2":    func(p *Product) **string { return &p.GTINEmptyReason2 },
	"gtin_empty_reason_3":    func(p *Product) **string { return &p.GTINEmptyReason3 },
	"gtin_product_reason":    func(p *Product) **string { return &p.GTINProductReason },
	"gtin_reason_lower":      func(p *Product) **string { return &p.GTINReasonLower },
	"gtin_empty_reason_typo": func(p *Product) **string { return &p.GTINEmptyReasonTypo },
	"measure":                func(p *Product) **string { return &p.Measure },
	"unit_of_measure":        func(p *Product) **string { return &p.UnitOfMeasure },
}

// IsProductField reports whether name is a mutable catalog column.
func IsProductField(name string) bool {
	_, ok := productFields[name]
	return ok
}

// Field returns the current value of a named column, nil when unset.
func (p *Product) Field(name string) (*string, error) {
	get, ok := productFields[name]
	if !ok {
		return nil, fmt.Errorf("unknown product field %q", name)
	}
	return *get(p), nil
}

// SetField overwrites a named column. A nil value clears it.
func (p *Product) SetField(name string, value *string) error {
	get, ok := productFields[name]
	if !ok {
		return fmt.Errorf("unknown product field %q", name)
	}
	*get(p) = value
	return nil
}

// FieldChange is a single (record, field) rewrite produced by a rule batch or
// a harmonization step, carrying enough state to reverse it.
type FieldChange struct {
	RecordID uint    `json:"record_id"`
	Field    string  `json:"field"`
	OldValue *string `json:"old_value"`
	NewValue *string `json:"new_value"`
}

// FieldValueCount is one distinct value of a column with its occurrence count.
type FieldValueCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}
