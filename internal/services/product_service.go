package services

import (
	"context"

	"catalog-harmonization-service/internal/models"
	"catalog-harmonization-service/internal/repository"
	"github.com/sirupsen/logrus"
)

// ProductService is the thin catalog access layer behind the direct-edit
// endpoints and the stats dashboard.
type ProductService struct {
	products repository.ProductRepositoryInterface
	cache    *StatsCache
	logger   *logrus.Entry
}

// NewProductService creates a new ProductService
func NewProductService(products repository.ProductRepositoryInterface, cache *StatsCache, logger *logrus.Logger) *ProductService {
	return &ProductService{
		products: products,
		cache:    cache,
		logger:   logger.WithField("component", "products"),
	}
}

// List retrieves catalog records with filtering and pagination
func (s *ProductService) List(ctx context.Context, opts repository.ProductListOptions) ([]models.Product, int64, error) {
	return s.products.List(ctx, opts)
}

// Get retrieves one catalog record
func (s *ProductService) Get(ctx context.Context, id uint) (*models.Product, error) {
	return s.products.GetByID(ctx, id)
}

// Update saves a direct edit of a catalog record
func (s *ProductService) Update(ctx context.Context, product *models.Product) error {
	if err := s.products.Update(ctx, product); err != nil {
		return err
	}
	s.cache.Invalidate(ctx)
	return nil
}

// Delete removes a catalog record
func (s *ProductService) Delete(ctx context.Context, id uint) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx)
	return nil
}

// Stats returns the catalog summary, cached for the dashboard's polling
func (s *ProductService) Stats(ctx context.Context) (*repository.CatalogStats, error) {
	var cached repository.CatalogStats
	if s.cache.Get(ctx, &cached) {
		return &cached, nil
	}

	stats, err := s.products.Stats(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, stats)
	return stats, nil
}
