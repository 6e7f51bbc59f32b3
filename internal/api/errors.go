package api

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/persistorai/trail/internal/httputil"
	"github.com/persistorai/trail/internal/metrics"
	"github.com/persistorai/trail/internal/models"
)

// Error code constants for standardized API responses.
const (
	ErrCodeInvalidRequest  = "invalid_request"
	ErrCodeInternalError   = "internal_error"
	ErrCodeValidationError = "validation_error"
	ErrCodePruneFailed     = "prune_failed"
	ErrCodeQueueFull       = "queue_full"
)

// respondError writes a standardized JSON error response, pulling the request
// ID from the Gin context (set by the request ID middleware).
func respondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()
	httputil.RespondError(c, status, code, message)
}

// isValidationError reports whether err is a request validation failure.
func isValidationError(err error) bool {
	return errors.Is(err, models.ErrMissingItemType) ||
		errors.Is(err, models.ErrMissingItemID) ||
		errors.Is(err, models.ErrInvalidEvent) ||
		errors.Is(err, models.ErrCreateWithObject)
}
