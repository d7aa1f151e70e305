package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"survey-service/internal/models"
)

// AuditRepository persists the append-only activation and admin audit trails.
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *AuditRepository) WithTx(tx *gorm.DB) *AuditRepository {
	return &AuditRepository{db: tx}
}

// RecordActivation appends an activation audit event.
func (r *AuditRepository) RecordActivation(ctx context.Context, entry *models.ActivationAuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// RecordAdmin appends an admin action audit event.
func (r *AuditRepository) RecordAdmin(ctx context.Context, entry *models.AdminAuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ActivationFilter narrows an activation audit listing.
type ActivationFilter struct {
	EventType   string
	CodeID      *uuid.UUID
	WhitelistID *uuid.UUID
	Since       *time.Time
	Until       *time.Time
}

// ListActivation returns a page of activation audit events, newest first.
func (r *AuditRepository) ListActivation(ctx context.Context, f ActivationFilter, page, limit int) ([]models.ActivationAuditLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ActivationAuditLog{})

	if f.EventType != "" {
		query = query.Where("event_type = ?", f.EventType)
	}
	if f.CodeID != nil {
		query = query.Where("activation_code_id = ?", *f.CodeID)
	}
	if f.WhitelistID != nil {
		query = query.Where("whitelist_id = ?", *f.WhitelistID)
	}
	if f.Since != nil {
		query = query.Where("created_at >= ?", *f.Since)
	}
	if f.Until != nil {
		query = query.Where("created_at <= ?", *f.Until)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.ActivationAuditLog
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&entries).Error
	return entries, total, err
}

// ListAdmin returns a page of admin audit events, newest first.
func (r *AuditRepository) ListAdmin(ctx context.Context, actorID *uuid.UUID, action string, page, limit int) ([]models.AdminAuditLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AdminAuditLog{})

	if actorID != nil {
		query = query.Where("actor_id = ?", *actorID)
	}
	if action != "" {
		query = query.Where("action = ?", action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.AdminAuditLog
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&entries).Error
	return entries, total, err
}

// CountFailedSince counts failed activation attempts for abuse monitoring.
func (r *AuditRepository) CountFailedSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ActivationAuditLog{}).
		Where("event_type = ? AND created_at >= ?", models.EventActivationFailed, since).
		Count(&n).Error
	return n, err
}
