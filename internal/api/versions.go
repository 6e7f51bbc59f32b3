package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/trail/internal/models"
)

// VersionHandler serves version recording and history endpoints.
type VersionHandler struct {
	svc VersionService
	log *logrus.Logger
}

// NewVersionHandler creates a VersionHandler.
func NewVersionHandler(svc VersionService, log *logrus.Logger) *VersionHandler {
	return &VersionHandler{svc: svc, log: log}
}

// recordResponse is the created version, plus the pruning error if the
// retention pass failed after the version was committed.
type recordResponse struct {
	*models.Version
	PruneError string `json:"prune_error,omitempty"`
}

// Record handles POST /api/v1/versions.
func (h *VersionHandler) Record(c *gin.Context) {
	var req models.CreateVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

		return
	}

	v, err := h.svc.Record(c.Request.Context(), req)
	if err != nil && !(v != nil && errors.Is(err, models.ErrPruneFailed)) {
		if isValidationError(err) {
			respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

			return
		}

		h.log.WithError(err).Error("recording version")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	resp := recordResponse{Version: v}
	if err != nil {
		resp.PruneError = err.Error()
	}

	c.JSON(http.StatusCreated, resp)
}

// List handles GET /api/v1/versions/:item_type/:item_id.
func (h *VersionHandler) List(c *gin.Context) {
	itemType, itemID, ok := itemParams(c)
	if !ok {
		return
	}

	limit := parseInt(c.DefaultQuery("limit", "50"), 50)
	offset := parseOffset(c.DefaultQuery("offset", "0"))

	versions, hasMore, err := h.svc.ListVersions(c.Request.Context(), itemType, itemID, limit, offset)
	if err != nil {
		h.log.WithError(err).Error("listing versions")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	if versions == nil {
		versions = []models.Version{}
	}

	c.JSON(http.StatusOK, gin.H{"versions": versions, "has_more": hasMore})
}

// Enforce handles POST /api/v1/versions/:item_type/:item_id/enforce.
func (h *VersionHandler) Enforce(c *gin.Context) {
	itemType, itemID, ok := itemParams(c)
	if !ok {
		return
	}

	res, err := h.svc.Enforce(c.Request.Context(), itemType, itemID)
	if err != nil {
		if isValidationError(err) {
			respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

			return
		}

		h.log.WithError(err).WithFields(logrus.Fields{"item_type": itemType, "item_id": itemID}).Error("enforcing retention")

		if errors.Is(err, models.ErrPruneFailed) {
			respondError(c, http.StatusInternalServerError, ErrCodePruneFailed, "retention enforcement failed")

			return
		}

		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	c.JSON(http.StatusOK, res)
}
