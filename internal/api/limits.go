package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/persistorai/trail/internal/retention"
)

// limitsResponse is the effective configuration for one item type.
type limitsResponse struct {
	retention.Effective
	DeletionThreshold retention.Limit `json:"deletion_threshold"`
	Noop              bool            `json:"noop"`
}

// Limits handles GET /api/v1/limits/:item_type.
func (h *VersionHandler) Limits(c *gin.Context) {
	itemType := c.Param("item_type")
	if err := validatePathID("item_type", itemType); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	eff := h.svc.Limits(itemType)

	c.JSON(http.StatusOK, limitsResponse{
		Effective:         eff,
		DeletionThreshold: eff.DeletionThreshold(),
		Noop:              eff.Noop(),
	})
}
