package repository

import (
	"context"
	"errors"
	"fmt"

	"catalog-harmonization-service/internal/models"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("not found")

// ProductListOptions filters and paginates catalog listings
type ProductListOptions struct {
	Search           string
	ValidationStatus string
	Limit            int
	Offset           int
}

// CatalogStats summarizes the catalog for the dashboard
type CatalogStats struct {
	TotalProducts     int64 `json:"total_products"`
	PendingValidation int64 `json:"pending_validation"`
	Valid             int64 `json:"valid"`
	Invalid           int64 `json:"invalid"`
	DistinctBrands    int64 `json:"distinct_brands"`

	// Identifier coverage
	WithSKU     int64 `json:"with_sku"`
	WithBarcode int64 `json:"with_barcode"`
	WithGTIN    int64 `json:"with_gtin"`

	TopBrands    []models.FieldValueCount `json:"top_brands"`
	ProductTypes []models.FieldValueCount `json:"product_types"`
}

// ProductRepositoryInterface defines catalog data access
type ProductRepositoryInterface interface {
	List(ctx context.Context, opts ProductListOptions) ([]models.Product, int64, error)
	ListAllOrdered(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	FindBySKU(ctx context.Context, sku string) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uint) error
	DistinctValues(ctx context.Context, field string) ([]models.FieldValueCount, error)
	Stats(ctx context.Context) (*CatalogStats, error)
}

// ProductRepository handles database operations for catalog records
type ProductRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new ProductRepository
func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// List retrieves catalog records with filtering and pagination
func (r *ProductRepository) List(ctx context.Context, opts ProductListOptions) ([]models.Product, int64, error) {
	var products []models.Product
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Product{})

	if opts.Search != "" {
		pattern := "%" + opts.Search + "%"
		query = query.Where("product_name ILIKE ? OR sku ILIKE ? OR brand_capitalized ILIKE ?", pattern, pattern, pattern)
	}
	if opts.ValidationStatus != "" {
		query = query.Where("validation_status = ?", opts.ValidationStatus)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	err := query.Order("id ASC").Find(&products).Error
	return products, total, err
}

// ListAllOrdered retrieves every catalog record in primary key order. The
// harmonization engines depend on this ordering for stable previews.
func (r *ProductRepository) ListAllOrdered(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).Order("id ASC").Find(&products).Error
	return products, err
}

// GetByID retrieves a catalog record by ID
func (r *ProductRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// FindBySKU retrieves the first catalog record carrying a SKU
func (r *ProductRepository) FindBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("sku = ?", sku).
		Order("id ASC").
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// Update saves all columns of a catalog record
func (r *ProductRepository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// Delete removes a catalog record
func (r *ProductRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DistinctValues returns every non-empty value of a column with its count,
// ordered by count descending then value ascending.
func (r *ProductRepository) DistinctValues(ctx context.Context, field string) ([]models.FieldValueCount, error) {
	if !models.IsProductField(field) {
		return nil, fmt.Errorf("unknown product field %q", field)
	}

	var counts []models.FieldValueCount
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Select(fmt.Sprintf("%s AS value, COUNT(*) AS count", field)).
		Where(fmt.Sprintf("%s IS NOT NULL AND %s <> ''", field, field)).
		Group(field).
		Order("count DESC, value ASC").
		Scan(&counts).Error
	return counts, err
}

// Stats computes catalog summary counts
func (r *ProductRepository) Stats(ctx context.Context) (*CatalogStats, error) {
	stats := &CatalogStats{}
	db := r.db.WithContext(ctx).Model(&models.Product{})

	if err := db.Count(&stats.TotalProducts).Error; err != nil {
		return nil, err
	}

	type statusCount struct {
		ValidationStatus string
		Count            int64
	}
	var byStatus []statusCount
	if err := r.db.WithContext(ctx).Model(&models.Product{}).
		Select("validation_status, COUNT(*) AS count").
		Group("validation_status").
		Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, sc := range byStatus {
		switch models.ValidationStatus(sc.ValidationStatus) {
		case models.ValidationPending:
			stats.PendingValidation = sc.Count
		case models.ValidationValid:
			stats.Valid = sc.Count
		case models.ValidationInvalid:
			stats.Invalid = sc.Count
		}
	}

	if err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("brand_capitalized IS NOT NULL AND brand_capitalized <> ''").
		Distinct("brand_capitalized").
		Count(&stats.DistinctBrands).Error; err != nil {
		return nil, err
	}

	coverage := map[string]*int64{
		"sku":     &stats.WithSKU,
		"barcode": &stats.WithBarcode,
		"gtin":    &stats.WithGTIN,
	}
	for column, target := range coverage {
		if err := r.db.WithContext(ctx).Model(&models.Product{}).
			Where(fmt.Sprintf("%s IS NOT NULL AND %s <> ''", column, column)).
			Count(target).Error; err != nil {
			return nil, err
		}
	}

	if err := r.db.WithContext(ctx).Model(&models.Product{}).
		Select("brand_capitalized AS value, COUNT(*) AS count").
		Where("brand_capitalized IS NOT NULL AND brand_capitalized <> ''").
		Group("brand_capitalized").
		Order("count DESC, value ASC").
		Limit(10).
		Scan(&stats.TopBrands).Error; err != nil {
		return nil, err
	}

	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Select("product_type AS value, COUNT(*) AS count").
		Where("product_type IS NOT NULL AND product_type <> ''").
		Group("product_type").
		Order("count DESC, value ASC").
		Scan(&stats.ProductTypes).Error
	return stats, err
}
