package auth

import (
	"log/slog"
	"mailbox/errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

const AccessKeyHeader = "X-Access-Key"

// RequireAccessKey rejects requests whose key, from the "key" query parameter
// or the X-Access-Key header, does not match the stored digest.
func RequireAccessKey(hash EncodedHash, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Query("key")
		if key == "" {
			key = c.GetHeader(AccessKeyHeader)
		}
		if !hash.Matches(key) {
			log.Warn("Access key rejected", "path", c.FullPath(), "client", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": errors.ErrUnauthorized.Error(),
			})
			return
		}
		c.Next()
	}
}
