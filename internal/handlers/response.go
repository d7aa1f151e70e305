package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"survey-service/internal/models"
	"survey-service/internal/services"
)

// pageParams reads page/limit query parameters with sane defaults.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, limit
}

// Success writes the standard success envelope.
func Success(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, models.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error writes the standard error envelope.
func Error(c *gin.Context, status int, code, message string, retriable bool) {
	requestID, _ := c.Get("request_id")
	rid, _ := requestID.(string)
	c.JSON(status, models.APIResponse{
		Success: false,
		Message: message,
		Error: &models.APIError{
			Code:      code,
			Message:   message,
			Retriable: retriable,
			RequestID: rid,
		},
	})
}

// BindError reports a malformed request body.
func BindError(c *gin.Context, err error) {
	requestID, _ := c.Get("request_id")
	rid, _ := requestID.(string)
	c.JSON(http.StatusBadRequest, models.APIResponse{
		Success: false,
		Message: "Invalid request",
		Error: &models.APIError{
			Code:      "VALIDATION_ERROR",
			Message:   "request body failed validation",
			Details:   err.Error(),
			Retriable: false,
			RequestID: rid,
		},
	})
}

// ServiceError maps service sentinel errors onto HTTP statuses. Unmapped
// errors become a retriable 500 without leaking internals.
func ServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrWhitelistNotFound),
		errors.Is(err, services.ErrCodeNotFound),
		errors.Is(err, services.ErrSurveyNotFound),
		errors.Is(err, services.ErrVersionNotFound),
		errors.Is(err, services.ErrAssignmentNotFound),
		errors.Is(err, services.ErrDocumentNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrResponseNotFound),
		errors.Is(err, services.ErrNoPublishedVer):
		Error(c, http.StatusNotFound, "NOT_FOUND", err.Error(), false)

	case errors.Is(err, services.ErrCodeAlreadyUsed),
		errors.Is(err, services.ErrCodeRevoked),
		errors.Is(err, services.ErrAssignmentExists),
		errors.Is(err, services.ErrVersionPublished),
		errors.Is(err, services.ErrDocumentConfirmed),
		errors.Is(err, services.ErrAccountExists):
		Error(c, http.StatusConflict, "CONFLICT", err.Error(), false)

	case errors.Is(err, services.ErrInvalidCode),
		errors.Is(err, services.ErrIdentifierMismatch):
		Error(c, http.StatusUnprocessableEntity, "ACTIVATION_FAILED", err.Error(), false)

	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrTokenRevoked):
		Error(c, http.StatusUnauthorized, "UNAUTHORIZED", err.Error(), false)

	case errors.Is(err, services.ErrAccountDisabled):
		Error(c, http.StatusForbidden, "ACCOUNT_DISABLED", err.Error(), false)

	case errors.Is(err, services.ErrAlreadyActivated),
		errors.Is(err, services.ErrResendNotEmail),
		errors.Is(err, services.ErrNotBrigadista),
		errors.Is(err, services.ErrInvalidQuestion),
		errors.Is(err, services.ErrDocumentTooLarge),
		errors.Is(err, services.ErrDocumentMimeType),
		errors.Is(err, services.ErrWhitelistImmutable),
		errors.Is(err, services.ErrWeakPassword):
		Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), false)

	default:
		Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred", true)
	}
}
