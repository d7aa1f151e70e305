package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"survey-service/internal/models"
)

// AssignmentRepository handles database operations for survey assignments.
type AssignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Create creates a new assignment
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

// GetByID retrieves an assignment by id
func (r *AssignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	var assignment models.Assignment
	err := r.db.WithContext(ctx).First(&assignment, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ExistsActive reports whether the user already holds an active assignment
// for the survey.
func (r *AssignmentRepository) ExistsActive(ctx context.Context, surveyID, userID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Assignment{}).
		Where("survey_id = ? AND user_id = ? AND status = ?",
			surveyID, userID, models.AssignmentActive).
		Count(&n).Error
	return n > 0, err
}

// ListActiveForUser returns the user's active assignments, survey preloaded.
func (r *AssignmentRepository) ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := r.db.WithContext(ctx).
		Preload("Survey").
		Where("user_id = ? AND status = ?", userID, models.AssignmentActive).
		Order("created_at DESC").
		Find(&assignments).Error
	return assignments, err
}

// ListBySurvey returns a page of assignments for one survey.
func (r *AssignmentRepository) ListBySurvey(ctx context.Context, surveyID uuid.UUID, page, limit int) ([]models.Assignment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Assignment{}).
		Where("survey_id = ?", surveyID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var assignments []models.Assignment
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&assignments).Error
	return assignments, total, err
}

// UpdateStatus flips an assignment between active and inactive.
func (r *AssignmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.AssignmentStatus) error {
	return r.db.WithContext(ctx).Model(&models.Assignment{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// SoftDelete removes an assignment from active listings.
func (r *AssignmentRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Assignment{}, "id = ?", id).Error
}
