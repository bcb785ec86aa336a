package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"catalog-harmonization-service/internal/clients"
	"catalog-harmonization-service/internal/encryption"
	"catalog-harmonization-service/internal/models"
	"catalog-harmonization-service/internal/repository"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// fakeAdapter is an in-memory StoreAdapter
type fakeAdapter struct {
	products []clients.RemoteProduct
	testErr  error
	fetchErr error
}

var _ clients.StoreAdapter = (*fakeAdapter)(nil)

func (f *fakeAdapter) Platform() models.PlatformType { return models.PlatformCustom }

func (f *fakeAdapter) TestConnection(ctx context.Context) (*clients.ConnectionTestResult, error) {
	if f.testErr != nil {
		return nil, f.testErr
	}
	count := len(f.products)
	return &clients.ConnectionTestResult{Success: true, Message: "connection successful", ProductCount: &count}, nil
}

func (f *fakeAdapter) FetchProducts(ctx context.Context, page, perPage int) ([]clients.RemoteProduct, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if page > 1 {
		return nil, nil
	}
	return f.products, nil
}

func (f *fakeAdapter) FetchProductCount(ctx context.Context) (int, error) {
	return len(f.products), nil
}

func (f *fakeAdapter) PushProductUpdate(ctx context.Context, remoteID, field string, value *string) error {
	return nil
}

type syncFixture struct {
	stores  *MockStoreRepository
	sync    *MockSyncRepository
	prods   *MockProductRepository
	service *SyncService
}

func newSyncFixture(adapter clients.StoreAdapter) *syncFixture {
	f := &syncFixture{
		stores: new(MockStoreRepository),
		sync:   new(MockSyncRepository),
		prods:  new(MockProductRepository),
	}
	f.service = NewSyncService(
		f.stores, f.sync, f.prods,
		encryption.NewCredentialCipher(""),
		nil, nil,
		100, 5, 30*time.Second,
		logrus.New(),
	)
	if adapter != nil {
		f.service.newAdapter = func(models.PlatformType, clients.Config) (clients.StoreAdapter, error) {
			return adapter, nil
		}
	}
	return f
}

func activeStore(id uint) *models.StoreConnection {
	return &models.StoreConnection{
		ID:       id,
		Name:     "Main store",
		Platform: models.PlatformCustom,
		BaseURL:  "https://shop.example.com",
		IsActive: true,
	}
}

func uintp(v uint) *uint { return &v }

func floatp(v float64) *float64 { return &v }

// --- Store CRUD ---

func TestCreateStore_DuplicateName(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(nil)

	f.stores.On("GetByName", ctx, "Main store").Return(activeStore(1), nil)

	_, err := f.service.CreateStore(ctx, StoreInput{
		Name:     "Main store",
		Platform: models.PlatformShopify,
		BaseURL:  "https://x.myshopify.com",
	})
	assert.ErrorIs(t, err, ErrDuplicateStoreName)
}

func TestCreateStore_InvalidPlatform(t *testing.T) {
	f := newSyncFixture(nil)

	_, err := f.service.CreateStore(context.Background(), StoreInput{
		Name:     "Main store",
		Platform: "magento",
		BaseURL:  "https://x",
	})
	assert.ErrorIs(t, err, ErrInvalidPlatform)
}

func TestCreateStore_CredentialsAreWriteOnly(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(nil)

	f.stores.On("GetByName", ctx, "Main store").Return(nil, repository.ErrNotFound)
	f.stores.On("Create", ctx, mock.MatchedBy(func(store *models.StoreConnection) bool {
		return store.APIKey == "ck_live_123" && store.IsActive && store.SyncDirection == models.SyncPull
	})).Return(nil)

	apiKey := "ck_live_123"
	detail, err := f.service.CreateStore(ctx, StoreInput{
		Name:     "Main store",
		Platform: models.PlatformWooCommerce,
		BaseURL:  "https://shop.example.com",
		APIKey:   &apiKey,
	})

	assert.NoError(t, err)
	assert.True(t, detail.HasAPIKey)
	assert.False(t, detail.HasAPISecret)
	assert.False(t, detail.HasAccessToken)
	f.stores.AssertExpectations(t)
}

func TestUpdateStore_OmittedCredentialsPreserved(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(nil)

	stored := activeStore(1)
	stored.APIKey = "stored-key"
	f.stores.On("GetByID", ctx, uint(1)).Return(stored, nil)
	f.stores.On("Update", ctx, mock.MatchedBy(func(store *models.StoreConnection) bool {
		return store.APIKey == "stored-key" && store.Notes == "updated"
	})).Return(nil)

	notes := "updated"
	detail, err := f.service.UpdateStore(ctx, 1, StoreInput{Notes: &notes})

	assert.NoError(t, err)
	assert.True(t, detail.HasAPIKey)
	f.stores.AssertExpectations(t)
}

func TestToggleStore(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(nil)

	f.stores.On("GetByID", ctx, uint(1)).Return(activeStore(1), nil)
	f.stores.On("Update", ctx, mock.MatchedBy(func(store *models.StoreConnection) bool {
		return !store.IsActive
	})).Return(nil)

	detail, err := f.service.ToggleStore(ctx, 1)

	assert.NoError(t, err)
	assert.False(t, detail.IsActive)
}

func TestGetStore_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(nil)

	f.stores.On("GetByID", ctx, uint(99)).Return(nil, repository.ErrNotFound)

	_, err := f.service.GetStore(ctx, 99)
	assert.ErrorIs(t, err, ErrStoreNotFound)
}

// --- Connection test ---

func TestTest_AdapterFailureIsNotAnError(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(&fakeAdapter{testErr: errors.New("connection refused")})

	f.stores.On("GetByID", ctx, uint(1)).Return(activeStore(1), nil)
	f.sync.On("CreateSyncLog", ctx, mock.MatchedBy(func(log *models.SyncLog) bool {
		return log.Action == "test" && log.Status == models.SyncLogError
	})).Return(nil)

	result, err := f.service.Test(ctx, 1)

	assert.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "connection refused")
	f.sync.AssertExpectations(t)
}

func TestTest_Success(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(&fakeAdapter{products: make([]clients.RemoteProduct, 3)})

	f.stores.On("GetByID", ctx, uint(1)).Return(activeStore(1), nil)
	f.sync.On("CreateSyncLog", ctx, mock.MatchedBy(func(log *models.SyncLog) bool {
		return log.Action == "test" && log.Status == models.SyncLogSuccess
	})).Return(nil)

	result, err := f.service.Test(ctx, 1)

	assert.NoError(t, err)
	assert.True(t, result.Success)
	if assert.NotNil(t, result.ProductCount) {
		assert.Equal(t, 3, *result.ProductCount)
	}
}

// --- Pull reconciliation ---

func TestPull_InactiveStore(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(nil)

	store := activeStore(1)
	store.IsActive = false
	f.stores.On("GetByID", ctx, uint(1)).Return(store, nil)

	_, err := f.service.Pull(ctx, 1)
	assert.ErrorIs(t, err, ErrStoreInactive)
}

func TestPull_ExclusivePerStore(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(nil)

	f.stores.On("GetByID", ctx, uint(1)).Return(activeStore(1), nil)
	f.service.pullLock.Lock("pull:1")
	defer f.service.pullLock.Unlock("pull:1")

	_, err := f.service.Pull(ctx, 1)
	assert.ErrorIs(t, err, ErrPullInProgress)
}

func TestPull_FirstPullCreatesMappingWithoutQueueItems(t *testing.T) {
	ctx := context.Background()
	remote := clients.RemoteProduct{
		RemoteID:     "r1",
		Name:         "Widget",
		SKU:          "W1",
		Price:        floatp(100),
		CanonicalURL: "https://shop.example.com/products/widget",
	}
	f := newSyncFixture(&fakeAdapter{products: []clients.RemoteProduct{remote}})

	f.stores.On("GetByID", ctx, uint(1)).Return(activeStore(1), nil)
	f.sync.On("GetMappingByURL", ctx, uint(1), remote.CanonicalURL).Return(nil, repository.ErrNotFound)
	f.prods.On("FindBySKU", ctx, "W1").Return(nil, repository.ErrNotFound)
	f.sync.On("UpsertMapping", ctx, mock.MatchedBy(func(m *models.ProductMapping) bool {
		return m.StoreID == 1 && m.RemoteProductID == "r1" && m.SyncStatus == models.MappingSynced
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.ProductMapping).ID = 9
	}).Return(nil)
	f.stores.On("SetLastSync", ctx, uint(1), mock.Anything, 1).Return(nil)
	f.sync.On("CreateSyncLog", ctx, mock.MatchedBy(func(log *models.SyncLog) bool {
		return log.Action == "pull" && log.Status == models.SyncLogSuccess
	})).Return(nil)

	result, err := f.service.Pull(ctx, 1)

	assert.NoError(t, err)
	assert.Equal(t, 1, result.NewMappings)
	assert.Equal(t, 0, result.NewQueueItems)
	// No prior snapshot means nothing to diff against.
	f.sync.AssertNotCalled(t, "CreateQueueItem", mock.Anything, mock.Anything)
}

func TestPull_PriceDriftQueuesOneItem(t *testing.T) {
	ctx := context.Background()
	remote := clients.RemoteProduct{
		RemoteID:     "r1",
		Name:         "Widget",
		SKU:          "W1",
		Price:        floatp(100),
		CanonicalURL: "https://shop.example.com/products/widget",
	}
	f := newSyncFixture(&fakeAdapter{products: []clients.RemoteProduct{remote}})

	prev := &models.ProductMapping{
		ID:              5,
		StoreID:         1,
		RemoteProductID: "r1",
		CanonicalURL:    remote.CanonicalURL,
		LocalProductID:  uintp(7),
		RemotePrice:     floatp(90),
	}
	local := &models.Product{ID: 7, ProductName: strp("Widget"), SKU: strp("W1")}

	f.stores.On("GetByID", ctx, uint(1)).Return(activeStore(1), nil)
	f.sync.On("GetMappingByURL", ctx, uint(1), remote.CanonicalURL).Return(prev, nil)
	f.prods.On("GetByID", ctx, uint(7)).Return(local, nil)
	f.sync.On("UpsertMapping", ctx, mock.Anything).Return(nil)
	f.sync.On("HasPendingQueueItem", ctx, uint(5), "price").Return(false, nil)
	f.sync.On("CreateQueueItem", ctx, mock.MatchedBy(func(item *models.SyncQueueItem) bool {
		return item.Field == "price" &&
			item.Status == models.QueuePending &&
			item.Direction == models.SyncPull &&
			*item.LocalValue == "90" && *item.RemoteValue == "100" &&
			item.MappingID != nil && *item.MappingID == 5
	})).Return(nil)
	f.stores.On("SetLastSync", ctx, uint(1), mock.Anything, 1).Return(nil)
	f.sync.On("CreateSyncLog", ctx, mock.Anything).Return(nil)

	result, err := f.service.Pull(ctx, 1)

	assert.NoError(t, err)
	assert.Equal(t, 0, result.NewMappings)
	assert.Equal(t, 1, result.NewQueueItems)
	f.sync.AssertExpectations(t)
}

func TestPull_PendingItemIsNotDuplicated(t *testing.T) {
	ctx := context.Background()
	remote := clients.RemoteProduct{
		RemoteID:     "r1",
		Name:         "Widget",
		SKU:          "W1",
		Price:        floatp(100),
		CanonicalURL: "https://shop.example.com/products/widget",
	}
	f := newSyncFixture(&fakeAdapter{products: []clients.RemoteProduct{remote}})

	prev := &models.ProductMapping{
		ID:             5,
		StoreID:        1,
		CanonicalURL:   remote.CanonicalURL,
		LocalProductID: uintp(7),
		RemotePrice:    floatp(90),
	}
	local := &models.Product{ID: 7, ProductName: strp("Widget"), SKU: strp("W1")}

	f.stores.On("GetByID", ctx, uint(1)).Return(activeStore(1), nil)
	f.sync.On("GetMappingByURL", ctx, uint(1), remote.CanonicalURL).Return(prev, nil)
	f.prods.On("GetByID", ctx, uint(7)).Return(local, nil)
	f.sync.On("UpsertMapping", ctx, mock.Anything).Return(nil)
	// The previous pull's item is still awaiting review.
	f.sync.On("HasPendingQueueItem", ctx, uint(5), "price").Return(true, nil)
	f.stores.On("SetLastSync", ctx, uint(1), mock.Anything, 1).Return(nil)
	f.sync.On("CreateSyncLog", ctx, mock.Anything).Return(nil)

	result, err := f.service.Pull(ctx, 1)

	assert.NoError(t, err)
	assert.Equal(t, 0, result.NewQueueItems)
	f.sync.AssertNotCalled(t, "CreateQueueItem", mock.Anything, mock.Anything)
}

func TestPull_FetchFailureIsPartial(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(&fakeAdapter{fetchErr: errors.New("upstream 502")})

	f.stores.On("GetByID", ctx, uint(1)).Return(activeStore(1), nil)
	f.stores.On("SetLastSync", ctx, uint(1), mock.Anything, 0).Return(nil)
	f.sync.On("CreateSyncLog", ctx, mock.MatchedBy(func(log *models.SyncLog) bool {
		return log.Action == "pull" && log.Status == models.SyncLogPartial
	})).Return(nil)

	result, err := f.service.Pull(ctx, 1)

	assert.NoError(t, err)
	assert.Contains(t, result.Message, "errors")
	f.sync.AssertExpectations(t)
}

func TestPull_FetchFailureKeepsStoredProductCount(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(&fakeAdapter{fetchErr: errors.New("upstream 502")})

	store := activeStore(1)
	store.ProductCount = 12
	f.stores.On("GetByID", ctx, uint(1)).Return(store, nil)
	f.stores.On("SetLastSync", ctx, uint(1), mock.Anything, 12).Return(nil)
	f.sync.On("CreateSyncLog", ctx, mock.Anything).Return(nil)

	_, err := f.service.Pull(ctx, 1)

	assert.NoError(t, err)
	f.stores.AssertExpectations(t)
}

// --- Review queue ---

func pendingItem(id uint, field string, remoteValue string) *models.SyncQueueItem {
	return &models.SyncQueueItem{
		ID:          id,
		StoreID:     1,
		MappingID:   uintp(5),
		Direction:   models.SyncPull,
		Field:       field,
		RemoteValue: strp(remoteValue),
		Status:      models.QueuePending,
		Mapping: &models.ProductMapping{
			ID:             5,
			StoreID:        1,
			LocalProductID: uintp(7),
		},
	}
}

func TestApprove_NameWritesLocalRecord(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(nil)

	item := pendingItem(3, "name", "Widget Pro")
	f.sync.On("GetQueueItem", ctx, uint(3)).Return(item, nil)
	f.sync.On("ResolveQueueItem", ctx, uint(3), mock.MatchedBy(func(res repository.QueueResolution) bool {
		return res.Status == models.QueueApplied &&
			res.ProductID != nil && *res.ProductID == 7 &&
			res.ProductField == "product_name" &&
			res.ProductValue != nil && *res.ProductValue == "Widget Pro"
	})).Return(nil)
	f.sync.On("CreateSyncLog", ctx, mock.MatchedBy(func(log *models.SyncLog) bool {
		return log.Action == "approve"
	})).Return(nil)

	resolved, err := f.service.Approve(ctx, 3)

	assert.NoError(t, err)
	assert.Equal(t, models.QueueApplied, resolved.Status)
	assert.NotNil(t, resolved.ResolvedAt)
	f.sync.AssertExpectations(t)
}

func TestApprove_PriceUpdatesSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(nil)

	item := pendingItem(4, "price", "49.9")
	f.sync.On("GetQueueItem", ctx, uint(4)).Return(item, nil)
	f.sync.On("ResolveQueueItem", ctx, uint(4), mock.MatchedBy(func(res repository.QueueResolution) bool {
		return res.Status == models.QueueApplied &&
			res.ProductID == nil &&
			res.MappingUpdates["remote_price"] == 49.9
	})).Return(nil)
	f.sync.On("CreateSyncLog", ctx, mock.Anything).Return(nil)

	_, err := f.service.Approve(ctx, 4)
	assert.NoError(t, err)
	f.sync.AssertExpectations(t)
}

func TestApprove_AlreadyResolved(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(nil)

	item := pendingItem(3, "name", "Widget Pro")
	item.Status = models.QueueRejected
	f.sync.On("GetQueueItem", ctx, uint(3)).Return(item, nil)

	_, err := f.service.Approve(ctx, 3)
	assert.ErrorIs(t, err, ErrItemResolved)
	f.sync.AssertNotCalled(t, "ResolveQueueItem", mock.Anything, mock.Anything, mock.Anything)
}

func TestReject_KeepsLocalValue(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(nil)

	item := pendingItem(3, "name", "Widget Pro")
	f.sync.On("GetQueueItem", ctx, uint(3)).Return(item, nil)
	f.sync.On("ResolveQueueItem", ctx, uint(3), mock.MatchedBy(func(res repository.QueueResolution) bool {
		return res.Status == models.QueueRejected && res.ProductID == nil && res.MappingUpdates == nil
	})).Return(nil)
	f.sync.On("CreateSyncLog", ctx, mock.Anything).Return(nil)

	resolved, err := f.service.Reject(ctx, 3)

	assert.NoError(t, err)
	assert.Equal(t, models.QueueRejected, resolved.Status)
}

func TestBulkReject(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(nil)

	first := pendingItem(1, "name", "A")
	second := pendingItem(2, "price", "10")

	f.stores.On("GetByID", ctx, uint(1)).Return(activeStore(1), nil)
	f.sync.On("ListPendingByStore", ctx, uint(1)).Return([]models.SyncQueueItem{*first, *second}, nil)
	f.sync.On("GetQueueItem", ctx, uint(1)).Return(first, nil)
	f.sync.On("GetQueueItem", ctx, uint(2)).Return(second, nil)
	f.sync.On("ResolveQueueItem", ctx, mock.Anything, mock.Anything).Return(nil)
	f.sync.On("CreateSyncLog", ctx, mock.Anything).Return(nil)

	result, err := f.service.BulkReject(ctx, 1)

	assert.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 0, result.Failed)
	assert.Len(t, result.Results, 2)
	for _, r := range result.Results {
		assert.Equal(t, string(models.QueueRejected), r.Status)
	}
}

func TestBulkApprove_PartialFailure(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(nil)

	first := pendingItem(1, "name", "A")
	second := pendingItem(2, "price", "10")

	f.stores.On("GetByID", ctx, uint(1)).Return(activeStore(1), nil)
	f.sync.On("ListPendingByStore", ctx, uint(1)).Return([]models.SyncQueueItem{*first, *second}, nil)
	f.sync.On("GetQueueItem", ctx, uint(1)).Return(first, nil)
	f.sync.On("GetQueueItem", ctx, uint(2)).Return(second, nil)
	f.sync.On("ResolveQueueItem", ctx, uint(1), mock.Anything).Return(nil)
	// Second item was resolved by another reviewer mid-flight.
	f.sync.On("ResolveQueueItem", ctx, uint(2), mock.Anything).Return(repository.ErrItemResolved)
	f.sync.On("CreateSyncLog", ctx, mock.Anything).Return(nil)

	result, err := f.service.BulkApprove(ctx, 1)

	assert.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, "error", result.Results[1].Status)
}
