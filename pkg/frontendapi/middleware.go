package frontendapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// requestID mints a request ID when the caller didn't send one and echoes
// it back on the response so client and server logs correlate.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set(requestIDHeader, id)
		c.Set("request_id", id)
		c.Next()
	}
}

// requireAPIToken enforces the Bearer token configured via api_token. An
// empty token disables auth entirely.
func (s *Server) requireAPIToken(c *gin.Context) {
	if s.apiToken == "" {
		c.Next()
		return
	}

	const prefix = "Bearer "
	auth := c.GetHeader("Authorization")
	if !strings.HasPrefix(auth, prefix) || strings.TrimPrefix(auth, prefix) != s.apiToken {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing API token"})
		return
	}
	c.Next()
}
