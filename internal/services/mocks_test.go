package services

import (
	"context"
	"time"

	"catalog-harmonization-service/internal/models"
	"catalog-harmonization-service/internal/repository"
	"github.com/stretchr/testify/mock"
)

// MockProductRepository is a mock implementation of ProductRepositoryInterface
type MockProductRepository struct {
	mock.Mock
}

var _ repository.ProductRepositoryInterface = (*MockProductRepository)(nil)

func (m *MockProductRepository) List(ctx context.Context, opts repository.ProductListOptions) ([]models.Product, int64, error) {
	args := m.Called(ctx, opts)
	return args.Get(0).([]models.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductRepository) ListAllOrdered(ctx context.Context) ([]models.Product, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) FindBySKU(ctx context.Context, sku string) (*models.Product, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Update(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductRepository) DistinctValues(ctx context.Context, field string) ([]models.FieldValueCount, error) {
	args := m.Called(ctx, field)
	return args.Get(0).([]models.FieldValueCount), args.Error(1)
}

func (m *MockProductRepository) Stats(ctx context.Context) (*repository.CatalogStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.CatalogStats), args.Error(1)
}

// MockRuleRepository is a mock implementation of RuleRepositoryInterface
type MockRuleRepository struct {
	mock.Mock
}

var _ repository.RuleRepositoryInterface = (*MockRuleRepository)(nil)

func (m *MockRuleRepository) Upsert(ctx context.Context, rules []models.NormalizationRule) error {
	args := m.Called(ctx, rules)
	return args.Error(0)
}

func (m *MockRuleRepository) ListByField(ctx context.Context, field string) ([]models.NormalizationRule, error) {
	args := m.Called(ctx, field)
	return args.Get(0).([]models.NormalizationRule), args.Error(1)
}

func (m *MockRuleRepository) List(ctx context.Context) ([]models.NormalizationRule, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.NormalizationRule), args.Error(1)
}

func (m *MockRuleRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockChangeLogRepository is a mock implementation of ChangeLogRepositoryInterface
type MockChangeLogRepository struct {
	mock.Mock
}

var _ repository.ChangeLogRepositoryInterface = (*MockChangeLogRepository)(nil)

func (m *MockChangeLogRepository) ApplyChanges(ctx context.Context, entry *models.ChangeLogEntry, changes []models.FieldChange) (*models.ChangeLogEntry, error) {
	args := m.Called(ctx, entry, changes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChangeLogEntry), args.Error(1)
}

func (m *MockChangeLogRepository) List(ctx context.Context, limit int) ([]models.ChangeLogEntry, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]models.ChangeLogEntry), args.Error(1)
}

func (m *MockChangeLogRepository) GetByID(ctx context.Context, id uint) (*models.ChangeLogEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChangeLogEntry), args.Error(1)
}

func (m *MockChangeLogRepository) Revert(ctx context.Context, id uint) (*models.ChangeLogEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChangeLogEntry), args.Error(1)
}

func (m *MockChangeLogRepository) Reapply(ctx context.Context, id uint) (*models.ChangeLogEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChangeLogEntry), args.Error(1)
}

func (m *MockChangeLogRepository) UpsertStepState(ctx context.Context, state *models.StepState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *MockChangeLogRepository) ListStepStates(ctx context.Context) ([]models.StepState, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.StepState), args.Error(1)
}

// MockStoreRepository is a mock implementation of StoreRepositoryInterface
type MockStoreRepository struct {
	mock.Mock
}

var _ repository.StoreRepositoryInterface = (*MockStoreRepository)(nil)

func (m *MockStoreRepository) Create(ctx context.Context, store *models.StoreConnection) error {
	args := m.Called(ctx, store)
	if args.Error(0) == nil && store.ID == 0 {
		store.ID = 1
	}
	return args.Error(0)
}

func (m *MockStoreRepository) GetByID(ctx context.Context, id uint) (*models.StoreConnection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StoreConnection), args.Error(1)
}

func (m *MockStoreRepository) GetByName(ctx context.Context, name string) (*models.StoreConnection, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StoreConnection), args.Error(1)
}

func (m *MockStoreRepository) List(ctx context.Context) ([]models.StoreConnection, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.StoreConnection), args.Error(1)
}

func (m *MockStoreRepository) Update(ctx context.Context, store *models.StoreConnection) error {
	args := m.Called(ctx, store)
	return args.Error(0)
}

func (m *MockStoreRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStoreRepository) SetLastSync(ctx context.Context, id uint, at time.Time, productCount int) error {
	args := m.Called(ctx, id, at, productCount)
	return args.Error(0)
}

// MockSyncRepository is a mock implementation of SyncRepositoryInterface
type MockSyncRepository struct {
	mock.Mock
}

var _ repository.SyncRepositoryInterface = (*MockSyncRepository)(nil)

func (m *MockSyncRepository) UpsertMapping(ctx context.Context, mapping *models.ProductMapping) error {
	args := m.Called(ctx, mapping)
	return args.Error(0)
}

func (m *MockSyncRepository) GetMapping(ctx context.Context, id uint) (*models.ProductMapping, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProductMapping), args.Error(1)
}

func (m *MockSyncRepository) GetMappingByURL(ctx context.Context, storeID uint, canonicalURL string) (*models.ProductMapping, error) {
	args := m.Called(ctx, storeID, canonicalURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProductMapping), args.Error(1)
}

func (m *MockSyncRepository) ListMappings(ctx context.Context, storeID uint, limit, offset int) ([]models.ProductMapping, int64, error) {
	args := m.Called(ctx, storeID, limit, offset)
	return args.Get(0).([]models.ProductMapping), args.Get(1).(int64), args.Error(2)
}

func (m *MockSyncRepository) CreateQueueItem(ctx context.Context, item *models.SyncQueueItem) error {
	args := m.Called(ctx, item)
	if args.Error(0) == nil && item.ID == 0 {
		item.ID = 1
	}
	return args.Error(0)
}

func (m *MockSyncRepository) HasPendingQueueItem(ctx context.Context, mappingID uint, field string) (bool, error) {
	args := m.Called(ctx, mappingID, field)
	return args.Bool(0), args.Error(1)
}

func (m *MockSyncRepository) GetQueueItem(ctx context.Context, id uint) (*models.SyncQueueItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SyncQueueItem), args.Error(1)
}

func (m *MockSyncRepository) ListQueue(ctx context.Context, opts repository.QueueListOptions) ([]models.SyncQueueItem, int64, error) {
	args := m.Called(ctx, opts)
	return args.Get(0).([]models.SyncQueueItem), args.Get(1).(int64), args.Error(2)
}

func (m *MockSyncRepository) ListPendingByStore(ctx context.Context, storeID uint) ([]models.SyncQueueItem, error) {
	args := m.Called(ctx, storeID)
	return args.Get(0).([]models.SyncQueueItem), args.Error(1)
}

func (m *MockSyncRepository) ResolveQueueItem(ctx context.Context, id uint, res repository.QueueResolution) error {
	args := m.Called(ctx, id, res)
	return args.Error(0)
}

func (m *MockSyncRepository) CreateSyncLog(ctx context.Context, log *models.SyncLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockSyncRepository) ListSyncLogs(ctx context.Context, storeID uint, limit int) ([]models.SyncLog, error) {
	args := m.Called(ctx, storeID, limit)
	return args.Get(0).([]models.SyncLog), args.Error(1)
}
