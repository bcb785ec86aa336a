package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"catalog-harmonization-service/internal/clients"
	"catalog-harmonization-service/internal/clients/bsale"
	"catalog-harmonization-service/internal/clients/custom"
	"catalog-harmonization-service/internal/clients/shopify"
	"catalog-harmonization-service/internal/clients/woocommerce"
	"catalog-harmonization-service/internal/encryption"
	"catalog-harmonization-service/internal/events"
	"catalog-harmonization-service/internal/models"
	"catalog-harmonization-service/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

var (
	ErrStoreNotFound      = errors.New("store not found")
	ErrDuplicateStoreName = errors.New("a store with that name already exists")
	ErrInvalidPlatform    = errors.New("invalid platform")
	ErrStoreInactive      = errors.New("store is inactive")
	ErrPullInProgress     = errors.New("a pull for this store is already running")
	ErrQueueItemNotFound  = errors.New("queue item not found")
	ErrItemResolved       = errors.New("queue item is already resolved")
)

// diffFields are the remote attributes reconciliation watches. name and sku
// compare against the linked local record; price, stock and status against
// the mapping's last-known remote snapshot.
var diffFields = []string{"name", "sku", "price", "stock", "status"}

// StoreInput is the create/update payload for a store connection. Credential
// pointers distinguish "not sent" (preserve) from "sent empty" (clear).
type StoreInput struct {
	Name          string                 `json:"name"`
	Platform      models.PlatformType    `json:"platform"`
	BaseURL       string                 `json:"base_url"`
	APIKey        *string                `json:"api_key"`
	APISecret     *string                `json:"api_secret"`
	AccessToken   *string                `json:"access_token"`
	CustomHeaders map[string]interface{} `json:"custom_headers"`
	IsActive      *bool                  `json:"is_active"`
	SyncDirection models.SyncDirection   `json:"sync_direction"`
	Notes         *string                `json:"notes"`
}

// TestResult is the connection test response
type TestResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	StoreName    string `json:"store_name,omitempty"`
	ProductCount *int   `json:"product_count,omitempty"`
}

// PullResult summarizes one reconciliation pull
type PullResult struct {
	Message       string `json:"message"`
	NewMappings   int    `json:"new_mappings"`
	NewQueueItems int    `json:"new_queue_items"`
}

// QueueListResult pages the review queue
type QueueListResult struct {
	Items []models.SyncQueueItem `json:"items"`
	Total int64                  `json:"total"`
}

// MappingListResult pages a store's mappings
type MappingListResult struct {
	Mappings []models.ProductMapping `json:"mappings"`
	Total    int64                   `json:"total"`
}

// BulkItemResult is the per-item outcome of a bulk queue action
type BulkItemResult struct {
	ID     uint   `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// BulkResult reports a bulk approve/reject run
type BulkResult struct {
	Processed int              `json:"processed"`
	Failed    int              `json:"failed"`
	Results   []BulkItemResult `json:"results"`
}

// AdapterFactory builds a platform adapter; swapped for a fake in tests
type AdapterFactory func(platform models.PlatformType, cfg clients.Config) (clients.StoreAdapter, error)

// defaultAdapterFactory wires the real platform clients
func defaultAdapterFactory(platform models.PlatformType, cfg clients.Config) (clients.StoreAdapter, error) {
	switch platform {
	case models.PlatformWooCommerce:
		return woocommerce.NewClient(cfg)
	case models.PlatformShopify:
		return shopify.NewClient(cfg)
	case models.PlatformBsale:
		return bsale.NewClient(cfg)
	case models.PlatformCustom:
		return custom.NewClient(cfg)
	}
	return nil, &clients.UnsupportedPlatformError{Platform: string(platform)}
}

// SyncService owns store connections, reconciliation pulls and the review queue
type SyncService struct {
	stores     repository.StoreRepositoryInterface
	sync       repository.SyncRepositoryInterface
	products   repository.ProductRepositoryInterface
	cipher     *encryption.CredentialCipher
	publisher  *events.Publisher
	cache      *StatsCache
	pullLock   *KeyedMutex
	newAdapter AdapterFactory
	pageSize   int
	rateLimit  int
	timeout    time.Duration
	logger     *logrus.Entry
}

// NewSyncService creates a new SyncService
func NewSyncService(
	stores repository.StoreRepositoryInterface,
	syncRepo repository.SyncRepositoryInterface,
	products repository.ProductRepositoryInterface,
	cipher *encryption.CredentialCipher,
	publisher *events.Publisher,
	cache *StatsCache,
	pageSize, rateLimit int,
	timeout time.Duration,
	logger *logrus.Logger,
) *SyncService {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &SyncService{
		stores:     stores,
		sync:       syncRepo,
		products:   products,
		cipher:     cipher,
		publisher:  publisher,
		cache:      cache,
		pullLock:   NewKeyedMutex(),
		newAdapter: defaultAdapterFactory,
		pageSize:   pageSize,
		rateLimit:  rateLimit,
		timeout:    timeout,
		logger:     logger.WithField("component", "sync"),
	}
}

// --- Store connections ---

// CreateStore registers a new platform connection, credentials encrypted
func (s *SyncService) CreateStore(ctx context.Context, input StoreInput) (*models.StoreDetail, error) {
	if !models.ValidPlatform(input.Platform) {
		return nil, ErrInvalidPlatform
	}
	if input.Name == "" || input.BaseURL == "" {
		return nil, fmt.Errorf("%w: name and base_url are required", ErrInvalidPlatform)
	}
	if _, err := s.stores.GetByName(ctx, input.Name); err == nil {
		return nil, ErrDuplicateStoreName
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	store := &models.StoreConnection{
		Name:          input.Name,
		Platform:      input.Platform,
		BaseURL:       input.BaseURL,
		IsActive:      true,
		SyncDirection: models.SyncPull,
	}
	if input.SyncDirection != "" {
		if !models.ValidSyncDirection(input.SyncDirection) {
			return nil, fmt.Errorf("%w: unknown sync direction %q", ErrInvalidPlatform, input.SyncDirection)
		}
		store.SyncDirection = input.SyncDirection
	}
	if input.IsActive != nil {
		store.IsActive = *input.IsActive
	}
	if input.Notes != nil {
		store.Notes = *input.Notes
	}
	if input.CustomHeaders != nil {
		raw, err := json.Marshal(input.CustomHeaders)
		if err != nil {
			return nil, err
		}
		store.CustomHeaders = datatypes.JSON(raw)
	}
	if err := s.sealCredentials(store, input); err != nil {
		return nil, err
	}

	if err := s.stores.Create(ctx, store); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"store_id": store.ID,
		"platform": store.Platform,
	}).Info("Store connection created")
	detail := store.Detail()
	return &detail, nil
}

// GetStore returns the credential-safe view of one connection
func (s *SyncService) GetStore(ctx context.Context, id uint) (*models.StoreDetail, error) {
	store, err := s.getStore(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := store.Detail()
	return &detail, nil
}

// ListStores returns all connections
func (s *SyncService) ListStores(ctx context.Context) ([]models.StoreDetail, error) {
	stores, err := s.stores.List(ctx)
	if err != nil {
		return nil, err
	}
	details := make([]models.StoreDetail, 0, len(stores))
	for i := range stores {
		details = append(details, stores[i].Detail())
	}
	return details, nil
}

// UpdateStore edits a connection. Credentials omitted from the payload keep
// their stored values.
func (s *SyncService) UpdateStore(ctx context.Context, id uint, input StoreInput) (*models.StoreDetail, error) {
	store, err := s.getStore(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != "" && input.Name != store.Name {
		if _, err := s.stores.GetByName(ctx, input.Name); err == nil {
			return nil, ErrDuplicateStoreName
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		store.Name = input.Name
	}
	if input.Platform != "" {
		if !models.ValidPlatform(input.Platform) {
			return nil, ErrInvalidPlatform
		}
		store.Platform = input.Platform
	}
	if input.BaseURL != "" {
		store.BaseURL = input.BaseURL
	}
	if input.SyncDirection != "" {
		if !models.ValidSyncDirection(input.SyncDirection) {
			return nil, fmt.Errorf("%w: unknown sync direction %q", ErrInvalidPlatform, input.SyncDirection)
		}
		store.SyncDirection = input.SyncDirection
	}
	if input.IsActive != nil {
		store.IsActive = *input.IsActive
	}
	if input.Notes != nil {
		store.Notes = *input.Notes
	}
	if input.CustomHeaders != nil {
		raw, err := json.Marshal(input.CustomHeaders)
		if err != nil {
			return nil, err
		}
		store.CustomHeaders = datatypes.JSON(raw)
	}
	if err := s.sealCredentials(store, input); err != nil {
		return nil, err
	}

	if err := s.stores.Update(ctx, store); err != nil {
		return nil, err
	}
	detail := store.Detail()
	return &detail, nil
}

// DeleteStore removes a connection and everything hanging off it
func (s *SyncService) DeleteStore(ctx context.Context, id uint) error {
	err := s.stores.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrStoreNotFound
	}
	return err
}

// ToggleStore flips a connection's active flag
func (s *SyncService) ToggleStore(ctx context.Context, id uint) (*models.StoreDetail, error) {
	store, err := s.getStore(ctx, id)
	if err != nil {
		return nil, err
	}
	store.IsActive = !store.IsActive
	if err := s.stores.Update(ctx, store); err != nil {
		return nil, err
	}
	detail := store.Detail()
	return &detail, nil
}

// sealCredentials encrypts any credentials present in the input into store
func (s *SyncService) sealCredentials(store *models.StoreConnection, input StoreInput) error {
	set := func(target *string, value *string) error {
		if value == nil {
			return nil
		}
		sealed, err := s.cipher.Encrypt(*value)
		if err != nil {
			return err
		}
		*target = sealed
		return nil
	}
	if err := set(&store.APIKey, input.APIKey); err != nil {
		return err
	}
	if err := set(&store.APISecret, input.APISecret); err != nil {
		return err
	}
	return set(&store.AccessToken, input.AccessToken)
}

func (s *SyncService) getStore(ctx context.Context, id uint) (*models.StoreConnection, error) {
	store, err := s.stores.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStoreNotFound
		}
		return nil, err
	}
	return store, nil
}

// adapterFor decrypts the store's credentials and builds its platform adapter
func (s *SyncService) adapterFor(store *models.StoreConnection) (clients.StoreAdapter, error) {
	apiKey, err := s.cipher.Decrypt(store.APIKey)
	if err != nil {
		return nil, err
	}
	apiSecret, err := s.cipher.Decrypt(store.APISecret)
	if err != nil {
		return nil, err
	}
	accessToken, err := s.cipher.Decrypt(store.AccessToken)
	if err != nil {
		return nil, err
	}

	var customHeaders map[string]interface{}
	if len(store.CustomHeaders) > 0 {
		if err := json.Unmarshal(store.CustomHeaders, &customHeaders); err != nil {
			return nil, fmt.Errorf("malformed custom_headers: %w", err)
		}
	}

	return s.newAdapter(store.Platform, clients.Config{
		BaseURL:       store.BaseURL,
		APIKey:        apiKey,
		APISecret:     apiSecret,
		AccessToken:   accessToken,
		CustomHeaders: customHeaders,
		Timeout:       s.timeout,
		RateLimit:     s.rateLimit,
	})
}

// --- Connection test ---

// Test checks reachability and credentials. Adapter failures come back as
// success:false, never as a request error; nothing but a log row is written.
func (s *SyncService) Test(ctx context.Context, storeID uint) (*TestResult, error) {
	store, err := s.getStore(ctx, storeID)
	if err != nil {
		return nil, err
	}

	result := &TestResult{StoreName: store.Name}
	adapter, err := s.adapterFor(store)
	if err != nil {
		result.Message = err.Error()
	} else {
		probe, err := adapter.TestConnection(ctx)
		if err != nil {
			result.Message = err.Error()
		} else {
			result.Success = probe.Success
			result.Message = probe.Message
			result.ProductCount = probe.ProductCount
		}
	}

	status := models.SyncLogSuccess
	if !result.Success {
		status = models.SyncLogError
	}
	s.writeLog(ctx, store.ID, "test", status, 0, map[string]interface{}{
		"message": result.Message,
	})
	return result, nil
}

// --- Pull reconciliation ---

// Pull pages through the remote catalog, refreshes mappings and enqueues one
// review item per newly-diverged field. Per-item failures are collected, not
// fatal; the run reports partial results.
func (s *SyncService) Pull(ctx context.Context, storeID uint) (*PullResult, error) {
	store, err := s.getStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if !store.IsActive {
		return nil, ErrStoreInactive
	}

	lockKey := "pull:" + strconv.FormatUint(uint64(store.ID), 10)
	if !s.pullLock.TryLock(lockKey) {
		return nil, ErrPullInProgress
	}
	defer s.pullLock.Unlock(lockKey)

	adapter, err := s.adapterFor(store)
	if err != nil {
		s.writeLog(ctx, store.ID, "pull", models.SyncLogError, 0, map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	result := &PullResult{}
	var itemErrors []string
	fetched := 0

	for page := 1; ; page++ {
		batch, err := adapter.FetchProducts(ctx, page, s.pageSize)
		if err != nil {
			itemErrors = append(itemErrors, fmt.Sprintf("page %d: %v", page, err))
			break
		}
		if len(batch) == 0 {
			break
		}
		fetched += len(batch)

		for _, remote := range batch {
			if err := s.reconcileRemote(ctx, store, remote, result); err != nil {
				itemErrors = append(itemErrors, fmt.Sprintf("%s: %v", remote.CanonicalURL, err))
			}
		}

		if len(batch) < s.pageSize {
			break
		}
	}

	now := time.Now().UTC()
	productCount := fetched
	if fetched == 0 && len(itemErrors) > 0 {
		// a failed first page says nothing about the catalog size
		productCount = store.ProductCount
	}
	if err := s.stores.SetLastSync(ctx, store.ID, now, productCount); err != nil {
		s.logger.WithError(err).Warn("Failed to stamp last sync")
	}

	status := models.SyncLogSuccess
	if len(itemErrors) > 0 {
		status = models.SyncLogPartial
	}
	s.writeLog(ctx, store.ID, "pull", status, fetched, map[string]interface{}{
		"new_mappings":    result.NewMappings,
		"new_queue_items": result.NewQueueItems,
		"errors":          itemErrors,
	})
	s.publisher.PublishSyncCompleted(store.ID, result.NewMappings, result.NewQueueItems)

	result.Message = fmt.Sprintf("Pulled %d products: %d new mappings, %d queue items",
		fetched, result.NewMappings, result.NewQueueItems)
	if len(itemErrors) > 0 {
		result.Message += fmt.Sprintf(" (%d errors)", len(itemErrors))
	}

	s.logger.WithFields(logrus.Fields{
		"store_id":        store.ID,
		"fetched":         fetched,
		"new_mappings":    result.NewMappings,
		"new_queue_items": result.NewQueueItems,
		"errors":          len(itemErrors),
	}).Info("Pull completed")
	return result, nil
}

// reconcileRemote refreshes one remote product's mapping and queues diffs
func (s *SyncService) reconcileRemote(ctx context.Context, store *models.StoreConnection, remote clients.RemoteProduct, result *PullResult) error {
	if remote.CanonicalURL == "" {
		return fmt.Errorf("remote product %s has no canonical URL", remote.RemoteID)
	}

	prev, err := s.sync.GetMappingByURL(ctx, store.ID, remote.CanonicalURL)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	// Keep an existing link; otherwise try to match a local record by SKU.
	var localID *uint
	var local *models.Product
	if prev != nil && prev.LocalProductID != nil {
		localID = prev.LocalProductID
	} else if remote.SKU != "" {
		match, err := s.products.FindBySKU(ctx, remote.SKU)
		if err == nil {
			localID = &match.ID
			local = match
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
	}
	if local == nil && localID != nil {
		match, err := s.products.GetByID(ctx, *localID)
		if err == nil {
			local = match
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
	}

	var rawData datatypes.JSON
	if remote.Raw != nil {
		if raw, err := json.Marshal(remote.Raw); err == nil {
			rawData = datatypes.JSON(raw)
		}
	}

	mapping := &models.ProductMapping{
		StoreID:         store.ID,
		RemoteProductID: remote.RemoteID,
		CanonicalURL:    remote.CanonicalURL,
		LocalProductID:  localID,
		RemoteName:      remote.Name,
		RemoteSKU:       remote.SKU,
		RemotePrice:     remote.Price,
		RemoteStock:     remote.Stock,
		RemoteStatus:    remote.Status,
		RemoteData:      rawData,
		SyncStatus:      models.MappingSynced,
		LastSyncedAt:    time.Now().UTC(),
	}
	if err := s.sync.UpsertMapping(ctx, mapping); err != nil {
		return err
	}
	if prev == nil {
		result.NewMappings++
	}
	if mapping.ID == 0 {
		// Upsert hit the conflict path; re-read for the row id.
		stored, err := s.sync.GetMappingByURL(ctx, store.ID, remote.CanonicalURL)
		if err != nil {
			return err
		}
		mapping = stored
		mapping.LocalProductID = localID
	}

	for _, field := range diffFields {
		localValue, remoteValue, differs := diffField(field, local, prev, remote)
		if !differs {
			continue
		}
		pending, err := s.sync.HasPendingQueueItem(ctx, mapping.ID, field)
		if err != nil {
			return err
		}
		if pending {
			continue
		}
		item := &models.SyncQueueItem{
			StoreID:      store.ID,
			MappingID:    &mapping.ID,
			Direction:    models.SyncPull,
			ProductName:  remote.Name,
			CanonicalURL: remote.CanonicalURL,
			Field:        field,
			LocalValue:   localValue,
			RemoteValue:  remoteValue,
			Status:       models.QueuePending,
		}
		if err := s.sync.CreateQueueItem(ctx, item); err != nil {
			return err
		}
		result.NewQueueItems++
	}
	return nil
}

// diffField compares one watched field. name and sku diff against the linked
// local record; price, stock and status against the previous remote snapshot,
// so only remote-side drift since the last pull is queued.
func diffField(field string, local *models.Product, prev *models.ProductMapping, remote clients.RemoteProduct) (localValue, remoteValue *string, differs bool) {
	switch field {
	case "name":
		if local == nil || local.ProductName == nil || remote.Name == "" {
			return nil, nil, false
		}
		if *local.ProductName == remote.Name {
			return nil, nil, false
		}
		return local.ProductName, strPtr(remote.Name), true
	case "sku":
		if local == nil || local.SKU == nil || remote.SKU == "" {
			return nil, nil, false
		}
		if *local.SKU == remote.SKU {
			return nil, nil, false
		}
		return local.SKU, strPtr(remote.SKU), true
	case "price":
		if prev == nil || prev.RemotePrice == nil || remote.Price == nil {
			return nil, nil, false
		}
		if *prev.RemotePrice == *remote.Price {
			return nil, nil, false
		}
		return strPtr(formatFloat(*prev.RemotePrice)), strPtr(formatFloat(*remote.Price)), true
	case "stock":
		if prev == nil || prev.RemoteStock == nil || remote.Stock == nil {
			return nil, nil, false
		}
		if *prev.RemoteStock == *remote.Stock {
			return nil, nil, false
		}
		return strPtr(strconv.Itoa(*prev.RemoteStock)), strPtr(strconv.Itoa(*remote.Stock)), true
	case "status":
		if prev == nil || prev.RemoteStatus == "" || remote.Status == "" {
			return nil, nil, false
		}
		if prev.RemoteStatus == remote.Status {
			return nil, nil, false
		}
		return strPtr(prev.RemoteStatus), strPtr(remote.Status), true
	}
	return nil, nil, false
}

func strPtr(s string) *string { return &s }

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// --- Review queue ---

// ListQueue pages the review queue
func (s *SyncService) ListQueue(ctx context.Context, opts repository.QueueListOptions) (*QueueListResult, error) {
	items, total, err := s.sync.ListQueue(ctx, opts)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.SyncQueueItem{}
	}
	return &QueueListResult{Items: items, Total: total}, nil
}

// Approve accepts the remote value: it is written into the local target and
// the item flips straight to applied, atomically.
func (s *SyncService) Approve(ctx context.Context, itemID uint) (*models.SyncQueueItem, error) {
	item, err := s.sync.GetQueueItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrQueueItemNotFound
		}
		return nil, err
	}
	if item.Status != models.QueuePending {
		return nil, ErrItemResolved
	}

	res := repository.QueueResolution{Status: models.QueueApplied}
	switch item.Field {
	case "name", "sku":
		if item.Mapping != nil && item.Mapping.LocalProductID != nil {
			res.ProductID = item.Mapping.LocalProductID
			res.ProductField = "product_name"
			if item.Field == "sku" {
				res.ProductField = "sku"
			}
			res.ProductValue = item.RemoteValue
		}
	case "price":
		res.MappingUpdates = map[string]interface{}{"remote_price": parseFloatPtr(item.RemoteValue)}
	case "stock":
		res.MappingUpdates = map[string]interface{}{"remote_stock": parseIntPtr(item.RemoteValue)}
	case "status":
		res.MappingUpdates = map[string]interface{}{"remote_status": derefOr(item.RemoteValue, "")}
	}

	if err := s.resolve(ctx, item, res, "approve"); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	return item, nil
}

// Reject dismisses the difference; the local value stays. Terminal.
func (s *SyncService) Reject(ctx context.Context, itemID uint) (*models.SyncQueueItem, error) {
	item, err := s.sync.GetQueueItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrQueueItemNotFound
		}
		return nil, err
	}
	if item.Status != models.QueuePending {
		return nil, ErrItemResolved
	}

	if err := s.resolve(ctx, item, repository.QueueResolution{Status: models.QueueRejected}, "reject"); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *SyncService) resolve(ctx context.Context, item *models.SyncQueueItem, res repository.QueueResolution, action string) error {
	if err := s.sync.ResolveQueueItem(ctx, item.ID, res); err != nil {
		if errors.Is(err, repository.ErrItemResolved) {
			return ErrItemResolved
		}
		return err
	}
	item.Status = res.Status
	now := time.Now().UTC()
	item.ResolvedAt = &now

	s.writeLog(ctx, item.StoreID, action, models.SyncLogSuccess, 1, map[string]interface{}{
		"item_id": item.ID,
		"field":   item.Field,
	})
	s.publisher.PublishQueueResolved(item.ID, string(res.Status))
	return nil
}

// BulkApprove approves every pending item of a store in queue order. Items
// resolve independently; one failure does not stop the rest.
func (s *SyncService) BulkApprove(ctx context.Context, storeID uint) (*BulkResult, error) {
	return s.bulk(ctx, storeID, "bulk_approve", func(id uint) (*models.SyncQueueItem, error) {
		return s.Approve(ctx, id)
	})
}

// BulkReject rejects every pending item of a store
func (s *SyncService) BulkReject(ctx context.Context, storeID uint) (*BulkResult, error) {
	return s.bulk(ctx, storeID, "bulk_reject", func(id uint) (*models.SyncQueueItem, error) {
		return s.Reject(ctx, id)
	})
}

func (s *SyncService) bulk(ctx context.Context, storeID uint, action string, fn func(id uint) (*models.SyncQueueItem, error)) (*BulkResult, error) {
	if _, err := s.getStore(ctx, storeID); err != nil {
		return nil, err
	}
	items, err := s.sync.ListPendingByStore(ctx, storeID)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{Results: make([]BulkItemResult, 0, len(items))}
	for _, item := range items {
		resolved, err := fn(item.ID)
		if err != nil {
			result.Failed++
			result.Results = append(result.Results, BulkItemResult{ID: item.ID, Status: "error", Error: err.Error()})
			continue
		}
		result.Processed++
		result.Results = append(result.Results, BulkItemResult{ID: item.ID, Status: string(resolved.Status)})
	}

	status := models.SyncLogSuccess
	if result.Failed > 0 {
		status = models.SyncLogPartial
	}
	s.writeLog(ctx, storeID, action, status, result.Processed, map[string]interface{}{
		"failed": result.Failed,
	})
	return result, nil
}

// ListMappings pages a store's mappings
func (s *SyncService) ListMappings(ctx context.Context, storeID uint, limit, offset int) (*MappingListResult, error) {
	if _, err := s.getStore(ctx, storeID); err != nil {
		return nil, err
	}
	mappings, total, err := s.sync.ListMappings(ctx, storeID, limit, offset)
	if err != nil {
		return nil, err
	}
	if mappings == nil {
		mappings = []models.ProductMapping{}
	}
	return &MappingListResult{Mappings: mappings, Total: total}, nil
}

// ListLogs returns a store's run history
func (s *SyncService) ListLogs(ctx context.Context, storeID uint, limit int) ([]models.SyncLog, error) {
	if _, err := s.getStore(ctx, storeID); err != nil {
		return nil, err
	}
	logs, err := s.sync.ListSyncLogs(ctx, storeID, limit)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []models.SyncLog{}
	}
	return logs, nil
}

func (s *SyncService) writeLog(ctx context.Context, storeID uint, action, status string, records int, details map[string]interface{}) {
	var payload datatypes.JSON
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			payload = datatypes.JSON(raw)
		}
	}
	log := &models.SyncLog{
		StoreID:         storeID,
		Action:          action,
		Status:          status,
		RecordsAffected: records,
		Details:         payload,
	}
	if err := s.sync.CreateSyncLog(ctx, log); err != nil {
		s.logger.WithError(err).WithField("action", action).Warn("Failed to write sync log")
	}
}

func parseFloatPtr(s *string) interface{} {
	if s == nil {
		return nil
	}
	f, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		return nil
	}
	return f
}

func parseIntPtr(s *string) interface{} {
	if s == nil {
		return nil
	}
	n, err := strconv.Atoi(*s)
	if err != nil {
		return nil
	}
	return n
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
