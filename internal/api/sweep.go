package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SweepHandler serves retention sweep endpoints.
type SweepHandler struct {
	svc   VersionService
	queue SweepEnqueuer
	log   *logrus.Logger
}

// NewSweepHandler creates a SweepHandler.
func NewSweepHandler(svc VersionService, queue SweepEnqueuer, log *logrus.Logger) *SweepHandler {
	return &SweepHandler{svc: svc, queue: queue, log: log}
}

// Sweep handles POST /api/v1/sweep/:item_type. By default the sweep is
// queued and 202 is returned; with ?wait=true it runs inline and the totals
// are returned.
func (h *SweepHandler) Sweep(c *gin.Context) {
	itemType := c.Param("item_type")
	if err := validatePathID("item_type", itemType); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	if c.Query("wait") == "true" {
		res, err := h.svc.Sweep(c.Request.Context(), itemType)
		if err != nil {
			h.log.WithError(err).WithField("item_type", itemType).Error("sweeping")
			respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

			return
		}

		c.JSON(http.StatusOK, res)

		return
	}

	if !h.queue.Enqueue(itemType) {
		respondError(c, http.StatusServiceUnavailable, ErrCodeQueueFull, "sweep queue is full, retry later")

		return
	}

	c.JSON(http.StatusAccepted, gin.H{"item_type": itemType, "status": "queued"})
}
