package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-relay/internal/relay"
)

type HealthHandler struct {
	startTime time.Time
	tables    relay.TableSource
}

func NewHealthHandler(tables relay.TableSource) *HealthHandler {
	return &HealthHandler{
		startTime: time.Now(),
		tables:    tables,
	}
}

// Health reports uptime and the size of the loaded routing table.
func (h *HealthHandler) Health(c *gin.Context) {
	resp := gin.H{
		"status": "healthy",
		"uptime": time.Since(h.startTime).String(),
		"time":   time.Now().UTC().Format(time.RFC3339),
	}

	table := h.tables.Load()
	if table == nil {
		resp["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	resp["routes"] = table.Len()
	resp["multi_backend"] = table.Multi()
	c.JSON(http.StatusOK, resp)
}
