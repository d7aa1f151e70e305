package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"survey-service/internal/middleware"
	"survey-service/internal/services"
)

// NotificationHandler serves in-app notifications for polling clients.
type NotificationHandler struct {
	notificationService *services.NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// List handles GET /notifications
func (h *NotificationHandler) List(c *gin.Context) {
	page, limit := pageParams(c)
	notifications, pagination, err := h.notificationService.List(
		c.Request.Context(), middleware.UserID(c), c.Query("unread") == "true", page, limit)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "Notifications", gin.H{
		"items":      notifications,
		"pagination": pagination,
	})
}

// UnreadCount handles GET /notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	n, err := h.notificationService.UnreadCount(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "Unread count", gin.H{"unread": n})
}

// MarkRead handles POST /notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid notification id", false)
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), id, middleware.UserID(c)); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "Notification marked read", nil)
}

// MarkAllRead handles POST /notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.notificationService.MarkAllRead(c.Request.Context(), middleware.UserID(c)); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, "All notifications marked read", nil)
}
