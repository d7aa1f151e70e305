package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"survey-service/internal/models"
)

// SurveyRepository handles database operations for surveys, versions and
// their question trees.
type SurveyRepository struct {
	db *gorm.DB
}

// NewSurveyRepository creates a new survey repository
func NewSurveyRepository(db *gorm.DB) *SurveyRepository {
	return &SurveyRepository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *SurveyRepository) WithTx(tx *gorm.DB) *SurveyRepository {
	return &SurveyRepository{db: tx}
}

// Create creates a survey together with any nested versions and questions.
func (r *SurveyRepository) Create(ctx context.Context, survey *models.Survey) error {
	return r.db.WithContext(ctx).Create(survey).Error
}

// GetByID retrieves a survey without its versions.
func (r *SurveyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Survey, error) {
	var survey models.Survey
	if err := r.db.WithContext(ctx).First(&survey, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &survey, nil
}

// GetVersion retrieves a specific survey version with its full question tree.
func (r *SurveyRepository) GetVersion(ctx context.Context, versionID uuid.UUID) (*models.SurveyVersion, error) {
	var version models.SurveyVersion
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		}).
		First(&version, "id = ?", versionID).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}

// LatestPublishedVersion returns the newest published version of a survey.
func (r *SurveyRepository) LatestPublishedVersion(ctx context.Context, surveyID uuid.UUID) (*models.SurveyVersion, error) {
	var version models.SurveyVersion
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		}).
		Where("survey_id = ? AND is_published = ?", surveyID, true).
		Order("version_number DESC").
		First(&version).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}

// NextVersionNumber computes the version number a new draft should take.
func (r *SurveyRepository) NextVersionNumber(ctx context.Context, surveyID uuid.UUID) (int, error) {
	var max int
	err := r.db.WithContext(ctx).Model(&models.SurveyVersion{}).
		Where("survey_id = ?", surveyID).
		Select("COALESCE(MAX(version_number), 0)").
		Scan(&max).Error
	return max + 1, err
}

// CreateVersion creates a new version with its question tree.
func (r *SurveyRepository) CreateVersion(ctx context.Context, version *models.SurveyVersion) error {
	return r.db.WithContext(ctx).Create(version).Error
}

// PublishVersion flips a version to published.
func (r *SurveyRepository) PublishVersion(ctx context.Context, versionID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.SurveyVersion{}).
		Where("id = ?", versionID).
		Update("is_published", true).Error
}

// Update persists survey metadata changes.
func (r *SurveyRepository) Update(ctx context.Context, survey *models.Survey) error {
	return r.db.WithContext(ctx).Save(survey).Error
}

// List returns a page of surveys, optionally restricted to those with at
// least one published version.
func (r *SurveyRepository) List(ctx context.Context, publishedOnly bool, page, limit int) ([]models.Survey, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Survey{})
	if publishedOnly {
		query = query.Where("id IN (?)",
			r.db.Model(&models.SurveyVersion{}).Select("survey_id").Where("is_published = ?", true))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var surveys []models.Survey
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&surveys).Error
	return surveys, total, err
}

// SoftDelete marks a survey deleted. Versions and historical responses
// survive for reporting.
func (r *SurveyRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Survey{}, "id = ?", id).Error
}
