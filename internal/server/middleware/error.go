package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-relay/pkg/api"
	"go.uber.org/zap"
)

// ErrorHandler renders the last error pushed with c.Error as {"error": msg}.
// Responses a handler already wrote are left alone.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err

		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			if apiErr.Log != nil {
				logger.Error("Request failed",
					zap.Int("status", apiErr.Status),
					zap.String("message", apiErr.Message),
					zap.Error(apiErr.Log),
				)
			}
			c.AbortWithStatusJSON(apiErr.Status, apiErr)
			return
		}

		logger.Error("Unhandled error", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			api.Internal("Internal server error", err))
	}
}
