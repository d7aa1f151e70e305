package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"survey-service/internal/models"
	"survey-service/internal/services"
)

// Context keys set by the auth middleware.
const (
	ContextUserID = "user_id"
	ContextRole   = "user_role"
)

// Auth validates the bearer token and loads the caller's identity into the
// request context.
func Auth(jwtService *services.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		claims, err := jwtService.ValidateAccessToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// RequireRole gates a route group to the given roles. Must run after Auth.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		role, exists := c.Get(ContextRole)
		if !exists || !allowed[role.(models.Role)] {
			requestID, _ := c.Get("request_id")
			rid, _ := requestID.(string)
			c.AbortWithStatusJSON(http.StatusForbidden, models.APIResponse{
				Success: false,
				Message: "Forbidden",
				Error: &models.APIError{
					Code:      "FORBIDDEN",
					Message:   "insufficient permissions",
					Retriable: false,
					RequestID: rid,
				},
			})
			return
		}
		c.Next()
	}
}

// UserID extracts the authenticated caller's id from the context.
func UserID(c *gin.Context) uuid.UUID {
	v, _ := c.Get(ContextUserID)
	id, _ := v.(uuid.UUID)
	return id
}

func abortUnauthorized(c *gin.Context, detail string) {
	requestID, _ := c.Get("request_id")
	rid, _ := requestID.(string)
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.APIResponse{
		Success: false,
		Message: "Unauthorized",
		Error: &models.APIError{
			Code:      "UNAUTHORIZED",
			Message:   detail,
			Retriable: false,
			RequestID: rid,
		},
	})
}
