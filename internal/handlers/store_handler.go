package handlers

import (
	"context"
	"errors"
	"net/http"

	"catalog-harmonization-service/internal/repository"
	"catalog-harmonization-service/internal/services"
	"github.com/gin-gonic/gin"
)

// StoreHandler handles store connection, pull and review queue endpoints
type StoreHandler struct {
	service *services.SyncService
}

// NewStoreHandler creates a new store handler
func NewStoreHandler(service *services.SyncService) *StoreHandler {
	return &StoreHandler{service: service}
}

func (h *StoreHandler) storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrStoreNotFound):
		detail(c, http.StatusNotFound, "store not found")
	case errors.Is(err, services.ErrDuplicateStoreName):
		detail(c, http.StatusConflict, "a store with that name already exists")
	case errors.Is(err, services.ErrInvalidPlatform):
		detail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrStoreInactive):
		detail(c, http.StatusConflict, "store is inactive")
	case errors.Is(err, services.ErrPullInProgress):
		detail(c, http.StatusConflict, "a pull for this store is already running")
	case errors.Is(err, services.ErrQueueItemNotFound):
		detail(c, http.StatusNotFound, "queue item not found")
	case errors.Is(err, services.ErrItemResolved):
		detail(c, http.StatusConflict, "queue item is already resolved")
	default:
		detail(c, http.StatusInternalServerError, err.Error())
	}
}

// List returns all store connections
func (h *StoreHandler) List(c *gin.Context) {
	stores, err := h.service.ListStores(c.Request.Context())
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"stores": stores,
		"total":  len(stores),
	})
}

// Create registers a new store connection
func (h *StoreHandler) Create(c *gin.Context) {
	var input services.StoreInput
	if err := c.ShouldBindJSON(&input); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	store, err := h.service.CreateStore(c.Request.Context(), input)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, store)
}

// Get returns one store connection
func (h *StoreHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	store, err := h.service.GetStore(c.Request.Context(), id)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, store)
}

// Update edits a store connection; omitted credentials keep stored values
func (h *StoreHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input services.StoreInput
	if err := c.ShouldBindJSON(&input); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	store, err := h.service.UpdateStore(c.Request.Context(), id, input)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, store)
}

// Delete removes a store connection and its mappings, queue and logs
func (h *StoreHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteStore(c.Request.Context(), id); err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// Toggle flips a store's active flag
func (h *StoreHandler) Toggle(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	store, err := h.service.ToggleStore(c.Request.Context(), id)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, store)
}

// Test probes the platform with the stored credentials
func (h *StoreHandler) Test(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	result, err := h.service.Test(c.Request.Context(), id)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Pull runs one reconciliation pull against the platform
func (h *StoreHandler) Pull(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	result, err := h.service.Pull(c.Request.Context(), id)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Queue pages a store's review queue
func (h *StoreHandler) Queue(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if _, err := h.service.GetStore(c.Request.Context(), id); err != nil {
		h.storeError(c, err)
		return
	}

	result, err := h.service.ListQueue(c.Request.Context(), repository.QueueListOptions{
		StoreID: id,
		Status:  c.Query("status"),
		Limit:   queryInt(c, "limit", 100),
		Offset:  queryInt(c, "offset", 0),
	})
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Approve accepts the remote value for one queue item
func (h *StoreHandler) Approve(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	item, err := h.service.Approve(c.Request.Context(), id)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Reject dismisses one queue item
func (h *StoreHandler) Reject(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	item, err := h.service.Reject(c.Request.Context(), id)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// BulkApprove approves every pending item of a store
func (h *StoreHandler) BulkApprove(c *gin.Context) {
	h.bulkAction(c, h.service.BulkApprove)
}

// BulkReject rejects every pending item of a store
func (h *StoreHandler) BulkReject(c *gin.Context) {
	h.bulkAction(c, h.service.BulkReject)
}

func (h *StoreHandler) bulkAction(c *gin.Context, fn func(ctx context.Context, storeID uint) (*services.BulkResult, error)) {
	storeID := queryInt(c, "store_id", 0)
	if storeID <= 0 {
		detail(c, http.StatusBadRequest, "store_id is required")
		return
	}
	result, err := fn(c.Request.Context(), uint(storeID))
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Mappings pages a store's remote-to-local mappings
func (h *StoreHandler) Mappings(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	result, err := h.service.ListMappings(c.Request.Context(), id, queryInt(c, "limit", 100), queryInt(c, "offset", 0))
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Logs returns a store's run history
func (h *StoreHandler) Logs(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	logs, err := h.service.ListLogs(c.Request.Context(), id, queryInt(c, "limit", 50))
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"total": len(logs),
	})
}
