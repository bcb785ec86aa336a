package handlers

import (
	"errors"
	"net/http"

	"catalog-harmonization-service/internal/models"
	"catalog-harmonization-service/internal/repository"
	"catalog-harmonization-service/internal/services"
	"github.com/gin-gonic/gin"
)

// ProductHandler handles catalog read and edit endpoints
type ProductHandler struct {
	service *services.ProductService
}

// NewProductHandler creates a new product handler
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{service: service}
}

// List returns a catalog page
func (h *ProductHandler) List(c *gin.Context) {
	opts := repository.ProductListOptions{
		Search:           c.Query("search"),
		ValidationStatus: c.Query("validation_status"),
		Limit:            queryInt(c, "limit", 50),
		Offset:           queryInt(c, "offset", 0),
	}

	products, total, err := h.service.List(c.Request.Context(), opts)
	if err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"total":    total,
	})
}

// Get returns one record
func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	product, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			detail(c, http.StatusNotFound, "product not found")
			return
		}
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, product)
}

// Update edits a record's text fields. Unknown field names are rejected.
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var payload map[string]*string
	if err := c.ShouldBindJSON(&payload); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	for field := range payload {
		if !models.IsProductField(field) {
			detail(c, http.StatusBadRequest, "unknown field: "+field)
			return
		}
	}

	product, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			detail(c, http.StatusNotFound, "product not found")
			return
		}
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	for field, value := range payload {
		product.SetField(field, value)
	}

	if err := h.service.Update(c.Request.Context(), product); err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, product)
}

// Delete removes a record
func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			detail(c, http.StatusNotFound, "product not found")
			return
		}
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// Stats returns catalog aggregates
func (h *ProductHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, stats)
}
