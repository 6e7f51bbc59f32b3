package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/trail/internal/middleware"
)

func ginLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		}
		if rid, exists := c.Get(middleware.RequestIDKey); exists {
			fields["request_id"] = rid
		}

		entry := log.WithFields(fields)

		switch c.FullPath() {
		case "/metrics", "/api/v1/health", "/api/v1/ready":
			entry.Debug("request")
		default:
			entry.Info("request")
		}
	}
}

// maxPaginationLimit caps the maximum number of items per page.
const maxPaginationLimit = 1000

// maxPaginationOffset caps the maximum offset for paginated queries.
const maxPaginationOffset = 100000

func parseInt(s string, fallback int) int {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return fallback
	}

	if v > maxPaginationLimit {
		return maxPaginationLimit
	}

	return v
}

func parseOffset(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0
	}

	if v > maxPaginationOffset {
		return maxPaginationOffset
	}

	return v
}

// validatePathID checks that a path parameter is non-empty and within length limits.
func validatePathID(name, id string) error {
	if id == "" {
		return fmt.Errorf("%s must not be empty", name)
	}

	if len(id) > 255 {
		return fmt.Errorf("%s exceeds maximum length of 255", name)
	}

	return nil
}

// itemParams reads and validates the :item_type and :item_id path parameters.
// On failure it writes a 400 and returns ok=false.
func itemParams(c *gin.Context) (itemType, itemID string, ok bool) {
	itemType, itemID = c.Param("item_type"), c.Param("item_id")

	for _, p := range [][2]string{{"item_type", itemType}, {"item_id", itemID}} {
		if err := validatePathID(p[0], p[1]); err != nil {
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

			return "", "", false
		}
	}

	return itemType, itemID, true
}
