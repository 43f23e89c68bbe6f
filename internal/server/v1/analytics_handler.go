package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-relay/internal/analytics"
	"github.com/nulzo/model-relay/internal/server/validator"
	"github.com/nulzo/model-relay/pkg/api"
)

type AnalyticsHandler struct {
	service analytics.Service
}

func NewAnalyticsHandler(service analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

type usageQuery struct {
	Days int `form:"days" binding:"omitempty,min=1,max=365"`
}

type recentQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

// GetUsage returns daily request counts per exposed model.
func (h *AnalyticsHandler) GetUsage(c *gin.Context) {
	q := usageQuery{Days: analytics.DefaultDays}
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(api.BadRequest(validator.Message(err)))
		return
	}

	stats, err := h.service.GetUsageOverview(c.Request.Context(), q.Days)
	if err != nil {
		_ = c.Error(api.Internal("Failed to fetch usage", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"days":   q.Days,
		"data":   stats,
	})
}

// GetRecent returns the newest journal entries.
func (h *AnalyticsHandler) GetRecent(c *gin.Context) {
	var q recentQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(api.BadRequest(validator.Message(err)))
		return
	}

	logs, err := h.service.GetRecent(c.Request.Context(), q.Limit)
	if err != nil {
		_ = c.Error(api.Internal("Failed to fetch requests", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   logs,
	})
}
