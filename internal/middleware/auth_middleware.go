package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "focusflow/backend/internal/errors"
	"focusflow/backend/internal/service"
)

const userIDContextKey = "userID"

// Auth validates the bearer token and stores the subject user ID on the
// request context for handlers to read through UserID.
func Auth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			writeError(c, apperrors.Unauthorized("missing or malformed authorization header"))
			return
		}

		userID, apiErr := authService.ParseToken(token)
		if apiErr != nil {
			writeError(c, apiErr)
			return
		}

		c.Set(userIDContextKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated user's ID, or "" outside an Auth-guarded
// route.
func UserID(c *gin.Context) string {
	value, ok := c.Get(userIDContextKey)
	if !ok {
		return ""
	}
	userID, _ := value.(string)
	return userID
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return token, token != ""
}

func writeError(c *gin.Context, apiErr *apperrors.APIError) {
	c.AbortWithStatusJSON(apiErr.Status, gin.H{
		"error": gin.H{
			"code":    apiErr.Code,
			"message": apiErr.Message,
			"details": apiErr.Details,
		},
	})
}
