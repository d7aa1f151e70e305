package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"survey-service/internal/models"
)

// APIVersionHeader carries the mobile client's contract version.
const APIVersionHeader = "X-API-Version"

// APIVersionGate rejects mobile clients below the minimum supported
// contract version with 426, telling them to upgrade before syncing. A
// missing header is treated as version 1 for backward compatibility.
func APIVersionGate(minVersion int) gin.HandlerFunc {
	return func(c *gin.Context) {
		version := 1
		if raw := c.GetHeader(APIVersionHeader); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				c.AbortWithStatusJSON(http.StatusBadRequest, models.APIResponse{
					Success: false,
					Message: "Invalid API version header",
					Error: &models.APIError{
						Code:      "INVALID_API_VERSION",
						Message:   "X-API-Version must be a positive integer",
						Retriable: false,
					},
				})
				return
			}
			version = parsed
		}

		if version < minVersion {
			c.AbortWithStatusJSON(http.StatusUpgradeRequired, models.APIResponse{
				Success: false,
				Message: "Client upgrade required",
				Error: &models.APIError{
					Code:      "UPGRADE_REQUIRED",
					Message:   "this app version is no longer supported; please update",
					Details:   "minimum supported API version is " + strconv.Itoa(minVersion),
					Retriable: false,
				},
			})
			return
		}
		c.Next()
	}
}
