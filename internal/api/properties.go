package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"homescope/server/internal/models"
)

// CreateProperty stores a single listing.
func (h *Handler) CreateProperty(c *gin.Context) {
	var property models.Property
	if err := c.ShouldBindJSON(&property); err != nil {
		h.badRequest(c, "Invalid request body", FieldError{Code: "ERR_INVALID_JSON", Message: err.Error()})
		return
	}

	if err := h.store.CreateProperty(c.Request.Context(), &property); err != nil {
		h.respondError(c, err, "Failed to create property")
		return
	}

	c.JSON(http.StatusCreated, property)
}

// GetProperty returns a single listing
func (h *Handler) GetProperty(c *gin.Context) {
	property, err := h.store.GetProperty(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to get property")
		return
	}
	c.JSON(http.StatusOK, property)
}

// ListProperties returns listings filtered by city and status
func (h *Handler) ListProperties(c *gin.Context) {
	filter := models.ListFilter{
		City:   c.Query("city"),
		Status: models.Status(c.Query("status")),
	}

	if filter.Status != "" && !filter.Status.IsValid() {
		h.badRequest(c, fmt.Sprintf("unknown status %q", filter.Status))
		return
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			h.badRequest(c, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	properties, err := h.store.ListProperties(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err, "Failed to get properties")
		return
	}

	c.JSON(http.StatusOK, properties)
}

// ImportProperties validates a batch of listings and queues it for upsert.
func (h *Handler) ImportProperties(c *gin.Context) {
	if h.importer == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Import is not enabled"})
		return
	}

	var properties []*models.Property
	if err := c.ShouldBindJSON(&properties); err != nil {
		h.badRequest(c, "Invalid request body", FieldError{Code: "ERR_INVALID_JSON", Message: err.Error()})
		return
	}
	if len(properties) == 0 {
		h.badRequest(c, "at least one property is required")
		return
	}

	var details []FieldError
	for i, p := range properties {
		if p == nil {
			details = append(details, FieldError{Field: fmt.Sprintf("[%d]", i), Code: "ERR_REQUIRED", Message: "property is null"})
			continue
		}
		if err := p.Validate(); err != nil {
			details = append(details, FieldError{Field: fmt.Sprintf("[%d]", i), Code: "ERR_INVALID_PROPERTY", Message: err.Error()})
			continue
		}
		p.EnsureID()
	}
	if len(details) > 0 {
		h.badRequest(c, "Invalid properties in import", details...)
		return
	}

	batches, err := h.importer.Submit(properties)
	if err != nil {
		h.respondError(c, err, "Failed to queue import")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"accepted": len(properties),
		"batches":  batches,
	}).Info("Queued property import")

	c.JSON(http.StatusAccepted, gin.H{
		"accepted": len(properties),
		"batches":  batches,
	})
}
