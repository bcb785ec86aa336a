package handlers

import (
	"errors"
	"net/http"

	"catalog-harmonization-service/internal/repository"
	"catalog-harmonization-service/internal/services"
	"github.com/gin-gonic/gin"
)

// AuthorityHandler handles variation grouping and normalization rule endpoints
type AuthorityHandler struct {
	grouping *services.GroupingService
	rules    *services.RuleService
}

// NewAuthorityHandler creates a new authority handler
func NewAuthorityHandler(grouping *services.GroupingService, rules *services.RuleService) *AuthorityHandler {
	return &AuthorityHandler{grouping: grouping, rules: rules}
}

// Analyze groups near-duplicate values of one field
func (h *AuthorityHandler) Analyze(c *gin.Context) {
	field := c.Param("field")

	analysis, err := h.grouping.Analyze(c.Request.Context(), field)
	if err != nil {
		if errors.Is(err, services.ErrUnsupportedField) {
			detail(c, http.StatusBadRequest, "unsupported field: "+field)
			return
		}
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// SaveRules stores one canonical value with its variations
func (h *AuthorityHandler) SaveRules(c *gin.Context) {
	var input services.SaveRulesInput
	if err := c.ShouldBindJSON(&input); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := h.rules.SaveRules(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, services.ErrUnsupportedField) {
			detail(c, http.StatusBadRequest, "unsupported field: "+input.FieldName)
			return
		}
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rules_saved": saved,
		"field_name":  input.FieldName,
	})
}

// ApplyRules rewrites every record matching a stored rule for the field
func (h *AuthorityHandler) ApplyRules(c *gin.Context) {
	field := c.Query("field_name")
	if field == "" {
		detail(c, http.StatusBadRequest, "field_name is required")
		return
	}

	result, err := h.rules.ApplyRules(c.Request.Context(), field)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnsupportedField):
			detail(c, http.StatusBadRequest, "unsupported field: "+field)
		case errors.Is(err, services.ErrNoRules):
			detail(c, http.StatusBadRequest, "no rules defined for field: "+field)
		default:
			detail(c, http.StatusInternalServerError, err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListRules returns stored rules, optionally scoped to one field
func (h *AuthorityHandler) ListRules(c *gin.Context) {
	rules, err := h.rules.ListRules(c.Request.Context(), c.Query("field_name"))
	if err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rules": rules,
		"total": len(rules),
	})
}

// DeleteRule removes one rule
func (h *AuthorityHandler) DeleteRule(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.rules.DeleteRule(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			detail(c, http.StatusNotFound, "rule not found")
			return
		}
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
