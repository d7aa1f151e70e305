package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"survey-service/internal/models"
	"survey-service/internal/repository"
)

// Survey sentinel errors.
var (
	ErrSurveyNotFound   = errors.New("survey not found")
	ErrVersionNotFound  = errors.New("survey version not found")
	ErrVersionPublished = errors.New("version is already published")
	ErrNoPublishedVer   = errors.New("survey has no published version")
	ErrInvalidQuestion  = errors.New("invalid question definition")
)

// SurveyService handles survey templates and their versioned question trees.
// Published versions are immutable; changes always create a new version.
type SurveyService struct {
	surveyRepo *repository.SurveyRepository
	logger     *logrus.Logger
}

// NewSurveyService creates a new survey service
func NewSurveyService(surveyRepo *repository.SurveyRepository, logger *logrus.Logger) *SurveyService {
	return &SurveyService{surveyRepo: surveyRepo, logger: logger}
}

// Create creates a survey together with version 1 as an unpublished draft.
func (s *SurveyService) Create(ctx context.Context, req *models.CreateSurveyRequest, createdBy uuid.UUID) (*models.Survey, error) {
	questions, err := buildQuestions(req.Questions)
	if err != nil {
		return nil, err
	}

	survey := &models.Survey{
		Title:       req.Title,
		Description: req.Description,
		IsActive:    true,
		CreatedBy:   createdBy,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Versions: []models.SurveyVersion{{
			VersionNumber: 1,
			IsPublished:   false,
			Questions:     questions,
		}},
	}
	if err := s.surveyRepo.Create(ctx, survey); err != nil {
		return nil, fmt.Errorf("failed to create survey: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"survey_id": survey.ID,
		"questions": len(questions),
	}).Info("Survey created")
	return survey, nil
}

// Get returns a survey's metadata.
func (s *SurveyService) Get(ctx context.Context, id uuid.UUID) (*models.Survey, error) {
	survey, err := s.surveyRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSurveyNotFound
		}
		return nil, fmt.Errorf("failed to load survey: %w", err)
	}
	return survey, nil
}

// GetVersion returns one version with its full question tree.
func (s *SurveyService) GetVersion(ctx context.Context, versionID uuid.UUID) (*models.SurveyVersion, error) {
	version, err := s.surveyRepo.GetVersion(ctx, versionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("failed to load version: %w", err)
	}
	return version, nil
}

// CreateVersion appends a new draft version to a survey.
func (s *SurveyService) CreateVersion(ctx context.Context, surveyID uuid.UUID, req *models.CreateVersionRequest) (*models.SurveyVersion, error) {
	if _, err := s.Get(ctx, surveyID); err != nil {
		return nil, err
	}
	questions, err := buildQuestions(req.Questions)
	if err != nil {
		return nil, err
	}

	number, err := s.surveyRepo.NextVersionNumber(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute version number: %w", err)
	}

	version := &models.SurveyVersion{
		SurveyID:      surveyID,
		VersionNumber: number,
		IsPublished:   false,
		ChangeSummary: req.ChangeSummary,
		Questions:     questions,
	}
	if err := s.surveyRepo.CreateVersion(ctx, version); err != nil {
		return nil, fmt.Errorf("failed to create version: %w", err)
	}
	return version, nil
}

// Publish flips a draft version to published, freezing its content.
func (s *SurveyService) Publish(ctx context.Context, versionID uuid.UUID) (*models.SurveyVersion, error) {
	version, err := s.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if version.IsPublished {
		return nil, ErrVersionPublished
	}
	if err := s.surveyRepo.PublishVersion(ctx, versionID); err != nil {
		return nil, fmt.Errorf("failed to publish version: %w", err)
	}
	version.IsPublished = true

	s.logger.WithFields(logrus.Fields{
		"survey_id":  version.SurveyID,
		"version_id": version.ID,
		"version":    version.VersionNumber,
	}).Info("Survey version published")
	return version, nil
}

// LatestPublished returns the newest published version for a survey.
func (s *SurveyService) LatestPublished(ctx context.Context, surveyID uuid.UUID) (*models.SurveyVersion, error) {
	version, err := s.surveyRepo.LatestPublishedVersion(ctx, surveyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoPublishedVer
		}
		return nil, fmt.Errorf("failed to load published version: %w", err)
	}
	return version, nil
}

// List returns a page of surveys.
func (s *SurveyService) List(ctx context.Context, publishedOnly bool, page, limit int) ([]models.Survey, models.Pagination, error) {
	page, limit = normalizePage(page, limit)
	surveys, total, err := s.surveyRepo.List(ctx, publishedOnly, page, limit)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to list surveys: %w", err)
	}
	return surveys, paginate(page, limit, total), nil
}

// Delete soft-deletes a survey. Versions and responses stay for reporting.
func (s *SurveyService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.surveyRepo.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete survey: %w", err)
	}
	return nil
}

func buildQuestions(defs []models.QuestionCreate) ([]models.Question, error) {
	questions := make([]models.Question, 0, len(defs))
	for i, def := range defs {
		if !validQuestionType(def.QuestionType) {
			return nil, fmt.Errorf("%w: unknown question type %q", ErrInvalidQuestion, def.QuestionType)
		}

		q := models.Question{
			QuestionText: def.QuestionText,
			QuestionType: models.QuestionType(def.QuestionType),
			DisplayOrder: def.DisplayOrder,
			IsRequired:   def.IsRequired,
		}
		if q.DisplayOrder == 0 {
			q.DisplayOrder = i + 1
		}
		if def.ValidationRules != nil {
			if data, err := json.Marshal(def.ValidationRules); err == nil {
				q.ValidationRules = datatypes.JSON(data)
			}
		}

		needsOptions := def.QuestionType == string(models.QuestionSingleChoice) ||
			def.QuestionType == string(models.QuestionMultipleChoice)
		if needsOptions && len(def.Options) < 2 {
			return nil, fmt.Errorf("%w: choice question needs at least two options", ErrInvalidQuestion)
		}
		for j, opt := range def.Options {
			order := opt.DisplayOrder
			if order == 0 {
				order = j + 1
			}
			q.Options = append(q.Options, models.AnswerOption{
				OptionText:   opt.OptionText,
				DisplayOrder: order,
			})
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func validQuestionType(s string) bool {
	switch models.QuestionType(s) {
	case models.QuestionText, models.QuestionTextarea, models.QuestionEmail,
		models.QuestionPhone, models.QuestionNumber, models.QuestionScale,
		models.QuestionRating, models.QuestionSingleChoice, models.QuestionMultipleChoice,
		models.QuestionYesNo, models.QuestionDate, models.QuestionTime,
		models.QuestionDateTime, models.QuestionPhoto, models.QuestionFile,
		models.QuestionSignature, models.QuestionLocation, models.QuestionIDCardOCR:
		return true
	}
	return false
}
