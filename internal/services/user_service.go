package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"survey-service/internal/models"
	"survey-service/internal/repository"
)

// ErrUserNotFound is returned for unknown or soft-deleted users.
var ErrUserNotFound = errors.New("user not found")

// UserService handles admin user management. Destructive mutations land in
// the admin audit trail.
type UserService struct {
	userRepo  *repository.UserRepository
	auditRepo *repository.AuditRepository
	logger    *logrus.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo *repository.UserRepository, auditRepo *repository.AuditRepository, logger *logrus.Logger) *UserService {
	return &UserService{
		userRepo:  userRepo,
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// Get returns one user.
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.UserInfo, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	info := userInfo(user)
	return &info, nil
}

// List returns a role-filtered page of users.
func (s *UserService) List(ctx context.Context, role string, page, limit int) ([]models.UserInfo, models.Pagination, error) {
	page, limit = normalizePage(page, limit)
	users, total, err := s.userRepo.List(ctx, role, page, limit)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to list users: %w", err)
	}
	infos := make([]models.UserInfo, 0, len(users))
	for i := range users {
		infos = append(infos, userInfo(&users[i]))
	}
	return infos, paginate(page, limit, total), nil
}

// Update applies an admin mutation. Role changes and deactivations are
// audited; deactivation also bumps the token version so outstanding refresh
// tokens die with the account.
func (s *UserService) Update(ctx context.Context, id, actorID uuid.UUID, req *models.UpdateUserRequest) (*models.UserInfo, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	changes := map[string]interface{}{}
	if req.FullName != nil {
		user.FullName = *req.FullName
		changes["full_name"] = *req.FullName
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
		changes["phone"] = *req.Phone
	}
	if req.Role != nil && models.Role(*req.Role) != user.Role {
		changes["role"] = map[string]string{"from": string(user.Role), "to": *req.Role}
		user.Role = models.Role(*req.Role)
	}
	deactivated := false
	if req.IsActive != nil && *req.IsActive != user.IsActive {
		user.IsActive = *req.IsActive
		changes["is_active"] = *req.IsActive
		deactivated = !*req.IsActive
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if deactivated {
		if err := s.userRepo.IncrementTokenVersion(ctx, id); err != nil {
			s.logger.WithError(err).WithField("user_id", id).Error("Failed to invalidate tokens on deactivation")
		}
	}

	if len(changes) > 0 {
		s.recordAdmin(ctx, actorID, "user_updated", id, changes)
	}
	info := userInfo(user)
	return &info, nil
}

// Delete soft-deletes a user and invalidates their refresh tokens.
func (s *UserService) Delete(ctx context.Context, id, actorID uuid.UUID) error {
	if _, err := s.userRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	if err := s.userRepo.IncrementTokenVersion(ctx, id); err != nil {
		return fmt.Errorf("failed to invalidate tokens: %w", err)
	}
	if err := s.userRepo.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.recordAdmin(ctx, actorID, "user_deleted", id, nil)
	return nil
}

// ListAdminAudit returns a page of the admin action trail.
func (s *UserService) ListAdminAudit(ctx context.Context, actorID *uuid.UUID, action string, page, limit int) ([]models.AdminAuditLog, models.Pagination, error) {
	page, limit = normalizePage(page, limit)
	entries, total, err := s.auditRepo.ListAdmin(ctx, actorID, action, page, limit)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to list admin audit log: %w", err)
	}
	return entries, paginate(page, limit, total), nil
}

func (s *UserService) recordAdmin(ctx context.Context, actorID uuid.UUID, action string, targetID uuid.UUID, details map[string]interface{}) {
	entry := &models.AdminAuditLog{
		ActorID:    &actorID,
		Action:     action,
		TargetType: "user",
		TargetID:   &targetID,
	}
	if details != nil {
		entry.Details = mustJSON(details)
	}
	if err := s.auditRepo.RecordAdmin(ctx, entry); err != nil {
		s.logger.WithError(err).WithField("action", action).Error("Failed to write admin audit log")
	}
}
