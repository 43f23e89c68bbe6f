package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-relay/internal/requestid"
)

// CORS lets browser based clients call the relay from any origin.
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization", "Accept", requestid.Header},
		ExposeHeaders:   []string{requestid.Header},
		MaxAge:          12 * time.Hour,
	})
}
