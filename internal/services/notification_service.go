package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"survey-service/internal/models"
	"survey-service/internal/repository"
)

// NotificationService creates and serves in-app notifications. Creation is
// fire-and-forget: a failed insert is logged and never fails the action
// that triggered it.
type NotificationService struct {
	notificationRepo *repository.NotificationRepository
	logger           *logrus.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(notificationRepo *repository.NotificationRepository, logger *logrus.Logger) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		logger:           logger,
	}
}

// Notify creates one notification. A nil userID broadcasts to everyone.
func (s *NotificationService) Notify(ctx context.Context, userID *uuid.UUID, notifType, title, message string) {
	notification := &models.Notification{
		UserID:  userID,
		Type:    notifType,
		Title:   title,
		Message: message,
	}
	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		s.logger.WithError(err).WithField("type", notifType).Warn("Failed to create notification")
	}
}

// List returns a page of the user's notifications.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, limit int) ([]models.Notification, models.Pagination, error) {
	page, limit = normalizePage(page, limit)
	notifications, total, err := s.notificationRepo.ListForUser(ctx, userID, unreadOnly, page, limit)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, paginate(page, limit, total), nil
}

// MarkRead flips one notification.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.notificationRepo.MarkRead(ctx, id, userID); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead flips every unread notification visible to the user.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	if err := s.notificationRepo.MarkAllRead(ctx, userID); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

// UnreadCount returns the badge count.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.notificationRepo.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return n, nil
}
