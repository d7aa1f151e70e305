package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"survey-service/internal/models"
)

// ResponseRepository handles database operations for survey responses.
type ResponseRepository struct {
	db *gorm.DB
}

// NewResponseRepository creates a new response repository
func NewResponseRepository(db *gorm.DB) *ResponseRepository {
	return &ResponseRepository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *ResponseRepository) WithTx(tx *gorm.DB) *ResponseRepository {
	return &ResponseRepository{db: tx}
}

// Create persists a response together with its answers.
func (r *ResponseRepository) Create(ctx context.Context, response *models.SurveyResponse) error {
	return r.db.WithContext(ctx).Create(response).Error
}

// GetByClientID looks up a response by its device-generated identifier.
func (r *ResponseRepository) GetByClientID(ctx context.Context, clientID string) (*models.SurveyResponse, error) {
	var response models.SurveyResponse
	err := r.db.WithContext(ctx).First(&response, "client_id = ?", clientID).Error
	if err != nil {
		return nil, err
	}
	return &response, nil
}

// ExistsByClientID reports whether a client_id was already synced.
func (r *ResponseRepository) ExistsByClientID(ctx context.Context, clientID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.SurveyResponse{}).
		Where("client_id = ?", clientID).
		Count(&n).Error
	return n > 0, err
}

// ListByUser returns a page of a brigadista's synced responses, newest first.
func (r *ResponseRepository) ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.SurveyResponse, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SurveyResponse{}).
		Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var responses []models.SurveyResponse
	err := query.
		Preload("Answers").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&responses).Error
	return responses, total, err
}

