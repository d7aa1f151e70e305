package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"survey-service/internal/models"
)

// WhitelistRepository handles database operations for pre-authorized
// identity records.
type WhitelistRepository struct {
	db *gorm.DB
}

// NewWhitelistRepository creates a new whitelist repository
func NewWhitelistRepository(db *gorm.DB) *WhitelistRepository {
	return &WhitelistRepository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *WhitelistRepository) WithTx(tx *gorm.DB) *WhitelistRepository {
	return &WhitelistRepository{db: tx}
}

// Create creates a new whitelist entry
func (r *WhitelistRepository) Create(ctx context.Context, entry *models.WhitelistEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// GetByID retrieves a whitelist entry with its supervisor preloaded
func (r *WhitelistRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.WhitelistEntry, error) {
	var entry models.WhitelistEntry
	err := r.db.WithContext(ctx).
		Preload("AssignedSupervisor").
		First(&entry, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Update saves the full whitelist entry
func (r *WhitelistRepository) Update(ctx context.Context, entry *models.WhitelistEntry) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

// List returns a page of entries, optionally filtered by activation state
func (r *WhitelistRepository) List(ctx context.Context, activated *bool, page, limit int) ([]models.WhitelistEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.WhitelistEntry{})
	if activated != nil {
		query = query.Where("is_activated = ?", *activated)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.WhitelistEntry
	err := query.Preload("AssignedSupervisor").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&entries).Error
	return entries, total, err
}

// MarkActivated flips the activation fields. The caller runs this inside the
// redemption transaction.
func (r *WhitelistRepository) MarkActivated(ctx context.Context, id, userID uuid.UUID) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&models.WhitelistEntry{}).
		Where("id = ? AND is_activated = ?", id, false).
		Updates(map[string]interface{}{
			"is_activated":      true,
			"activated_at":      now,
			"activated_user_id": userID,
		}).Error
}

// Counts returns total and activated entry counts for the stats endpoint
func (r *WhitelistRepository) Counts(ctx context.Context) (total, activated int64, err error) {
	if err = r.db.WithContext(ctx).Model(&models.WhitelistEntry{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = r.db.WithContext(ctx).Model(&models.WhitelistEntry{}).
		Where("is_activated = ?", true).
		Count(&activated).Error
	return total, activated, err
}
