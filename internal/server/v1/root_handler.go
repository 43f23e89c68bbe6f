package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Root answers the probes OpenAI clients send before their first call.
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to the OpenAI API! Documentation is available at https://platform.openai.com/docs/api-reference",
	})
}

func Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "OpenAI API v1 endpoint",
		"endpoints": gin.H{
			"chat/completions": "/v1/chat/completions",
		},
	})
}
