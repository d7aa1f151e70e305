package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"survey-service/internal/models"
)

// ActivationRepository handles database operations for activation codes.
type ActivationRepository struct {
	db *gorm.DB
}

// NewActivationRepository creates a new activation code repository
func NewActivationRepository(db *gorm.DB) *ActivationRepository {
	return &ActivationRepository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *ActivationRepository) WithTx(tx *gorm.DB) *ActivationRepository {
	return &ActivationRepository{db: tx}
}

// Create creates a new activation code
func (r *ActivationRepository) Create(ctx context.Context, code *models.ActivationCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

// GetByID retrieves a code with its whitelist entry preloaded
func (r *ActivationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ActivationCode, error) {
	var code models.ActivationCode
	err := r.db.WithContext(ctx).
		Preload("Whitelist").
		Preload("Whitelist.AssignedSupervisor").
		First(&code, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &code, nil
}

// ListUnused returns every code that has not been consumed or revoked,
// regardless of expiry or lock state. The validate flow scans this set so it
// can report the specific reason a found code is unusable.
func (r *ActivationRepository) ListUnused(ctx context.Context) ([]models.ActivationCode, error) {
	var codes []models.ActivationCode
	err := r.db.WithContext(ctx).
		Preload("Whitelist").
		Preload("Whitelist.AssignedSupervisor").
		Where("status IN ?", []models.CodeStatus{models.CodeStatusActive, models.CodeStatusLocked}).
		Find(&codes).Error
	return codes, err
}

// ListRedeemable returns only codes that can still complete an activation:
// unused, unrevoked, unexpired, and under the attempt threshold. The
// completion flow scans this stricter set.
func (r *ActivationRepository) ListRedeemable(ctx context.Context, now time.Time) ([]models.ActivationCode, error) {
	var codes []models.ActivationCode
	err := r.db.WithContext(ctx).
		Preload("Whitelist").
		Where("status = ? AND expires_at > ? AND activation_attempts < ?",
			models.CodeStatusActive, now, models.MaxActivationAttempts).
		Find(&codes).Error
	return codes, err
}

// List returns a page of codes filtered by derived status. Expired and
// locked are not stored states, so their filters are expressed over the raw
// columns with the same predicates DisplayStatus uses.
func (r *ActivationRepository) List(ctx context.Context, status string, whitelistID *uuid.UUID, page, limit int) ([]models.ActivationCode, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ActivationCode{})
	now := time.Now()

	switch models.CodeStatus(status) {
	case models.CodeStatusActive:
		query = query.Where("status = ? AND expires_at > ? AND activation_attempts < ?",
			models.CodeStatusActive, now, models.MaxActivationAttempts)
	case models.CodeStatusUsed:
		query = query.Where("status = ?", models.CodeStatusUsed)
	case models.CodeStatusExpired:
		query = query.Where("status = ? AND expires_at <= ? AND activation_attempts < ?",
			models.CodeStatusActive, now, models.MaxActivationAttempts)
	case models.CodeStatusLocked:
		query = query.Where("status IN ? OR (status = ? AND activation_attempts >= ?)",
			[]models.CodeStatus{models.CodeStatusLocked}, models.CodeStatusActive, models.MaxActivationAttempts)
	case models.CodeStatusRevoked:
		query = query.Where("status = ?", models.CodeStatusRevoked)
	}

	if whitelistID != nil {
		query = query.Where("whitelist_id = ?", *whitelistID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var codes []models.ActivationCode
	err := query.
		Preload("Whitelist").
		Preload("Whitelist.AssignedSupervisor").
		Order("generated_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&codes).Error
	return codes, total, err
}

// MarkUsed finalizes a code exactly once. The WHERE clause on status is the
// linearization point for concurrent redemptions: the second caller matches
// zero rows and must be reported as a redemption failure.
func (r *ActivationRepository) MarkUsed(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&models.ActivationCode{}).
		Where("id = ? AND status = ?", id, models.CodeStatusActive).
		Updates(map[string]interface{}{
			"status":          models.CodeStatusUsed,
			"is_used":         true,
			"used_at":         now,
			"used_by_user_id": userID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RecordFailedAttempt advances the lockout counter and stamps the attempt
// context. Flips the stored status to locked when the threshold is reached.
func (r *ActivationRepository) RecordFailedAttempt(ctx context.Context, code *models.ActivationCode, ip string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"activation_attempts": gorm.Expr("activation_attempts + ?", 1),
		"last_attempt_at":     now,
		"last_attempt_ip":     ip,
	}
	if err := r.db.WithContext(ctx).Model(code).Updates(updates).Error; err != nil {
		return err
	}
	code.ActivationAttempts++
	code.LastAttemptAt = &now
	code.LastAttemptIP = ip

	if code.ActivationAttempts >= models.MaxActivationAttempts && code.Status == models.CodeStatusActive {
		if err := r.db.WithContext(ctx).Model(code).
			Update("status", models.CodeStatusLocked).Error; err != nil {
			return err
		}
		code.Status = models.CodeStatusLocked
	}
	return nil
}

// Revoke permanently disables a code. Rejected at the service layer for used
// codes; the status guard here keeps a race from resurrecting one.
func (r *ActivationRepository) Revoke(ctx context.Context, id uuid.UUID, reason string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&models.ActivationCode{}).
		Where("id = ? AND status <> ?", id, models.CodeStatusUsed).
		Updates(map[string]interface{}{
			"status":        models.CodeStatusRevoked,
			"revoked_at":    now,
			"revoke_reason": reason,
		}).Error
}

// Extend pushes the expiry forward. Extending does not clear a lock.
func (r *ActivationRepository) Extend(ctx context.Context, id uuid.UUID, newExpiry time.Time) error {
	return r.db.WithContext(ctx).Model(&models.ActivationCode{}).
		Where("id = ?", id).
		Update("expires_at", newExpiry).Error
}

// StatusCounts aggregates codes by derived status for the stats endpoint.
func (r *ActivationRepository) StatusCounts(ctx context.Context) (map[models.CodeStatus]int64, int64, error) {
	now := time.Now()
	counts := make(map[models.CodeStatus]int64)

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.ActivationCode{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	type row struct {
		Status models.CodeStatus
		N      int64
	}
	var stored []row
	if err := r.db.WithContext(ctx).Model(&models.ActivationCode{}).
		Select("status, count(*) as n").
		Group("status").
		Scan(&stored).Error; err != nil {
		return nil, 0, err
	}
	for _, s := range stored {
		counts[s.Status] = s.N
	}

	// Split the stored-active bucket into derived active/locked/expired.
	var lockedByAttempts, expired int64
	if err := r.db.WithContext(ctx).Model(&models.ActivationCode{}).
		Where("status = ? AND activation_attempts >= ?", models.CodeStatusActive, models.MaxActivationAttempts).
		Count(&lockedByAttempts).Error; err != nil {
		return nil, 0, err
	}
	if err := r.db.WithContext(ctx).Model(&models.ActivationCode{}).
		Where("status = ? AND activation_attempts < ? AND expires_at <= ?",
			models.CodeStatusActive, models.MaxActivationAttempts, now).
		Count(&expired).Error; err != nil {
		return nil, 0, err
	}

	counts[models.CodeStatusLocked] += lockedByAttempts
	counts[models.CodeStatusExpired] = expired
	counts[models.CodeStatusActive] -= lockedByAttempts + expired
	if counts[models.CodeStatusActive] < 0 {
		counts[models.CodeStatusActive] = 0
	}
	return counts, total, nil
}

// ListNewlyExpired returns active codes that crossed their expiry after the
// given cutoff. Used by the scheduler to emit expiry audit events once.
func (r *ActivationRepository) ListNewlyExpired(ctx context.Context, since, now time.Time) ([]models.ActivationCode, error) {
	var codes []models.ActivationCode
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at > ? AND expires_at <= ?",
			models.CodeStatusActive, since, now).
		Find(&codes).Error
	return codes, err
}
