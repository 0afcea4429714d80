package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"homescope/server/internal/comparables"
	"homescope/server/internal/models"
	"homescope/server/internal/queue"
	"homescope/server/internal/storage"
)

// ErrorResponse is the envelope of every failed request.
type ErrorResponse struct {
	Error   string       `json:"error"`
	Details []FieldError `json:"details,omitempty"`
}

// statusFor maps an error to its HTTP status and client-facing message.
// Messages of unexpected errors are replaced by fallback so driver text
// never reaches clients.
func statusFor(err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, comparables.ErrInvalidReference), errors.Is(err, models.ErrInvalidProperty):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, "Property not found"
	case errors.Is(err, storage.ErrDuplicateKey):
		return http.StatusConflict, "Property already exists"
	case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrQueueClosed):
		return http.StatusServiceUnavailable, "Import queue is full, retry later"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Request timed out"
	default:
		return http.StatusInternalServerError, fallback
	}
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	status, message := statusFor(err, fallback)

	entry := h.logger.WithError(err).WithFields(logrus.Fields{
		"request_id": c.GetString(requestIDKey),
		"path":       c.Request.URL.Path,
		"status":     status,
	})
	if status >= http.StatusInternalServerError {
		entry.Error(fallback)
	} else {
		entry.Warn("Request rejected")
	}

	c.JSON(status, ErrorResponse{Error: message})
}

func (h *Handler) badRequest(c *gin.Context, message string, details ...FieldError) {
	h.logger.WithFields(logrus.Fields{
		"request_id": c.GetString(requestIDKey),
		"path":       c.Request.URL.Path,
	}).Warn(message)
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Details: details})
}
