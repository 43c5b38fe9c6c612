package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"portfolio-api/internal/apperrors"
	"portfolio-api/internal/logging"
)

const APIKeyHeader = "X-API-Key"

// RequireAPIKey rejects requests whose apiKey query parameter or X-API-Key
// header does not match key. An empty key rejects everything.
func RequireAPIKey(key string, logger *logging.ContextLogger) gin.HandlerFunc {
	expected := []byte(key)

	return func(c *gin.Context) {
		supplied := c.Query("apiKey")
		if supplied == "" {
			supplied = c.GetHeader(APIKeyHeader)
		}

		if len(expected) == 0 || subtle.ConstantTimeCompare([]byte(supplied), expected) != 1 {
			err := &apperrors.AuthError{Reason: "api key mismatch"}
			if supplied == "" {
				err.Reason = "api key missing"
			}
			logger.WarnWithTracing(c.Request.Context(), "Rejected admin request", logrus.Fields{
				"path":   c.FullPath(),
				"reason": err.Reason,
			})
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Next()
	}
}
