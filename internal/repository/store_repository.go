package repository

import (
	"context"
	"errors"
	"time"

	"catalog-harmonization-service/internal/models"
	"gorm.io/gorm"
)

// StoreRepositoryInterface defines store connection data access
type StoreRepositoryInterface interface {
	Create(ctx context.Context, store *models.StoreConnection) error
	GetByID(ctx context.Context, id uint) (*models.StoreConnection, error)
	GetByName(ctx context.Context, name string) (*models.StoreConnection, error)
	List(ctx context.Context) ([]models.StoreConnection, error)
	Update(ctx context.Context, store *models.StoreConnection) error
	Delete(ctx context.Context, id uint) error
	SetLastSync(ctx context.Context, id uint, at time.Time, productCount int) error
}

// StoreRepository handles database operations for store connections
type StoreRepository struct {
	db *gorm.DB
}

// NewStoreRepository creates a new StoreRepository
func NewStoreRepository(db *gorm.DB) *StoreRepository {
	return &StoreRepository{db: db}
}

// Create persists a new store connection
func (r *StoreRepository) Create(ctx context.Context, store *models.StoreConnection) error {
	return r.db.WithContext(ctx).Create(store).Error
}

// GetByID retrieves a store connection
func (r *StoreRepository) GetByID(ctx context.Context, id uint) (*models.StoreConnection, error) {
	var store models.StoreConnection
	err := r.db.WithContext(ctx).First(&store, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &store, nil
}

// GetByName retrieves a store connection by its unique name
func (r *StoreRepository) GetByName(ctx context.Context, name string) (*models.StoreConnection, error) {
	var store models.StoreConnection
	err := r.db.WithContext(ctx).First(&store, "name = ?", name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &store, nil
}

// List retrieves all store connections, oldest first
func (r *StoreRepository) List(ctx context.Context) ([]models.StoreConnection, error) {
	var stores []models.StoreConnection
	err := r.db.WithContext(ctx).Order("id ASC").Find(&stores).Error
	return stores, err
}

// Update saves all columns of a store connection
func (r *StoreRepository) Update(ctx context.Context, store *models.StoreConnection) error {
	return r.db.WithContext(ctx).Save(store).Error
}

// Delete removes a store and its dependent mappings, queue items and logs
func (r *StoreRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.SyncQueueItem{}, "store_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.ProductMapping{}, "store_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.SyncLog{}, "store_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.StoreConnection{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// SetLastSync stamps the last pull time and the observed remote catalog size
func (r *StoreRepository) SetLastSync(ctx context.Context, id uint, at time.Time, productCount int) error {
	return r.db.WithContext(ctx).
		Model(&models.StoreConnection{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_sync_at":  at,
			"product_count": productCount,
		}).Error
}
