package repository

import (
	"context"
	"errors"
	"time"

	"catalog-harmonization-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrItemResolved signals that a queue item was already approved, rejected or
// applied by another request.
var ErrItemResolved = errors.New("queue item is already resolved")

// QueueListOptions filters and paginates the review queue
type QueueListOptions struct {
	StoreID uint
	Status  string
	Limit   int
	Offset  int
}

// QueueResolution is the outcome of reviewing one queue item. The service
// decides where the remote value lands; the repository applies it atomically.
type QueueResolution struct {
	Status models.QueueStatus

	// When set, write ProductValue into ProductField of this local record.
	ProductID    *uint
	ProductField string
	ProductValue *string

	// When non-empty, update these mapping snapshot columns.
	MappingUpdates map[string]interface{}
}

// SyncRepositoryInterface defines data access for mappings, the review queue
// and sync run logs.
type SyncRepositoryInterface interface {
	UpsertMapping(ctx context.Context, mapping *models.ProductMapping) error
	GetMapping(ctx context.Context, id uint) (*models.ProductMapping, error)
	GetMappingByURL(ctx context.Context, storeID uint, canonicalURL string) (*models.ProductMapping, error)
	ListMappings(ctx context.Context, storeID uint, limit, offset int) ([]models.ProductMapping, int64, error)

	CreateQueueItem(ctx context.Context, item *models.SyncQueueItem) error
	HasPendingQueueItem(ctx context.Context, mappingID uint, field string) (bool, error)
	GetQueueItem(ctx context.Context, id uint) (*models.SyncQueueItem, error)
	ListQueue(ctx context.Context, opts QueueListOptions) ([]models.SyncQueueItem, int64, error)
	ListPendingByStore(ctx context.Context, storeID uint) ([]models.SyncQueueItem, error)
	ResolveQueueItem(ctx context.Context, id uint, res QueueResolution) error

	CreateSyncLog(ctx context.Context, log *models.SyncLog) error
	ListSyncLogs(ctx context.Context, storeID uint, limit int) ([]models.SyncLog, error)
}

// SyncRepository handles database operations for platform synchronization
type SyncRepository struct {
	db *gorm.DB
}

// NewSyncRepository creates a new SyncRepository
func NewSyncRepository(db *gorm.DB) *SyncRepository {
	return &SyncRepository{db: db}
}

// UpsertMapping creates or refreshes a mapping keyed by (store_id, canonical_url)
func (r *SyncRepository) UpsertMapping(ctx context.Context, mapping *models.ProductMapping) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "store_id"}, {Name: "canonical_url"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"remote_product_id", "local_product_id", "remote_name", "remote_sku", "remote_price",
			"remote_stock", "remote_status", "remote_data", "sync_status", "last_synced_at", "updated_at",
		}),
	}).Create(mapping).Error
}

// GetMapping retrieves a mapping with its store
func (r *SyncRepository) GetMapping(ctx context.Context, id uint) (*models.ProductMapping, error) {
	var mapping models.ProductMapping
	err := r.db.WithContext(ctx).Preload("Store").First(&mapping, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &mapping, nil
}

// GetMappingByURL retrieves a mapping by its identity key
func (r *SyncRepository) GetMappingByURL(ctx context.Context, storeID uint, canonicalURL string) (*models.ProductMapping, error) {
	var mapping models.ProductMapping
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND canonical_url = ?", storeID, canonicalURL).
		First(&mapping).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &mapping, nil
}

// ListMappings retrieves a store's mappings with pagination
func (r *SyncRepository) ListMappings(ctx context.Context, storeID uint, limit, offset int) ([]models.ProductMapping, int64, error) {
	var mappings []models.ProductMapping
	var total int64

	query := r.db.WithContext(ctx).Model(&models.ProductMapping{}).Where("store_id = ?", storeID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	err := query.Order("id ASC").Find(&mappings).Error
	return mappings, total, err
}

// CreateQueueItem enqueues a detected difference for review
func (r *SyncRepository) CreateQueueItem(ctx context.Context, item *models.SyncQueueItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// HasPendingQueueItem reports whether an open item already covers the same
// (mapping, field) pair.
func (r *SyncRepository) HasPendingQueueItem(ctx context.Context, mappingID uint, field string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SyncQueueItem{}).
		Where("mapping_id = ? AND field = ? AND status = ?", mappingID, field, models.QueuePending).
		Count(&count).Error
	return count > 0, err
}

// GetQueueItem retrieves a queue item with its mapping and store
func (r *SyncRepository) GetQueueItem(ctx context.Context, id uint) (*models.SyncQueueItem, error) {
	var item models.SyncQueueItem
	err := r.db.WithContext(ctx).Preload("Mapping").Preload("Mapping.Store").First(&item, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// ListQueue retrieves review queue items with filtering and pagination
func (r *SyncRepository) ListQueue(ctx context.Context, opts QueueListOptions) ([]models.SyncQueueItem, int64, error) {
	var items []models.SyncQueueItem
	var total int64

	query := r.db.WithContext(ctx).Model(&models.SyncQueueItem{})
	if opts.StoreID != 0 {
		query = query.Where("store_id = ?", opts.StoreID)
	}
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
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

	err := query.Preload("Mapping").Order("created_at DESC, id DESC").Find(&items).Error
	return items, total, err
}

// ListPendingByStore retrieves a store's open items in queue order
func (r *SyncRepository) ListPendingByStore(ctx context.Context, storeID uint) ([]models.SyncQueueItem, error) {
	var items []models.SyncQueueItem
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND status = ?", storeID, models.QueuePending).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

// ResolveQueueItem applies a review decision in one transaction. The item
// must still be pending; concurrent reviewers get ErrItemResolved.
func (r *SyncRepository) ResolveQueueItem(ctx context.Context, id uint, res QueueResolution) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.SyncQueueItem
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&item, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if item.Status != models.QueuePending {
			return ErrItemResolved
		}

		if res.ProductID != nil && res.ProductField != "" {
			if err := tx.Model(&models.Product{}).
				Where("id = ?", *res.ProductID).
				Update(res.ProductField, res.ProductValue).Error; err != nil {
				return err
			}
		}

		if len(res.MappingUpdates) > 0 && item.MappingID != nil {
			if err := tx.Model(&models.ProductMapping{}).
				Where("id = ?", *item.MappingID).
				Updates(res.MappingUpdates).Error; err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		return tx.Model(&models.SyncQueueItem{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":      res.Status,
				"resolved_at": now,
			}).Error
	})
}

// CreateSyncLog records a pull or push run
func (r *SyncRepository) CreateSyncLog(ctx context.Context, log *models.SyncLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// ListSyncLogs retrieves a store's run history, newest first
func (r *SyncRepository) ListSyncLogs(ctx context.Context, storeID uint, limit int) ([]models.SyncLog, error) {
	var logs []models.SyncLog
	query := r.db.WithContext(ctx).Where("store_id = ?", storeID).Order("executed_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&logs).Error
	return logs, err
}
