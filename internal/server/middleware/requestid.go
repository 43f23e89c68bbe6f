package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-relay/internal/requestid"
)

const ContextKeyRequestID = "request_id"

// RequestID reuses a caller supplied X-Request-ID or mints one, and echoes
// it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestid.Header)
		if id == "" || len(id) > 128 {
			id = requestid.New()
		}

		c.Set(ContextKeyRequestID, id)
		c.Request = c.Request.WithContext(requestid.With(c.Request.Context(), id))
		c.Header(requestid.Header, id)
		c.Next()
	}
}
