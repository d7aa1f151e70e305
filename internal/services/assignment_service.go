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

// Assignment sentinel errors.
var (
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrAssignmentExists   = errors.New("user already has an active assignment for this survey")
	ErrNotBrigadista      = errors.New("assignments can only target brigadistas")
)

// AssignmentService links brigadistas to the surveys they may fill.
type AssignmentService struct {
	assignmentRepo *repository.AssignmentRepository
	surveyRepo     *repository.SurveyRepository
	userRepo       *repository.UserRepository
	notifier       *NotificationService
	logger         *logrus.Logger
}

// NewAssignmentService creates a new assignment service
func NewAssignmentService(
	assignmentRepo *repository.AssignmentRepository,
	surveyRepo *repository.SurveyRepository,
	userRepo *repository.UserRepository,
	notifier *NotificationService,
	logger *logrus.Logger,
) *AssignmentService {
	return &AssignmentService{
		assignmentRepo: assignmentRepo,
		surveyRepo:     surveyRepo,
		userRepo:       userRepo,
		notifier:       notifier,
		logger:         logger,
	}
}

// Create assigns a survey to a brigadista and notifies them.
func (s *AssignmentService) Create(ctx context.Context, req *models.CreateAssignmentRequest, assignedBy uuid.UUID) (*models.Assignment, error) {
	user, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.Role != models.RoleBrigadista {
		return nil, ErrNotBrigadista
	}

	survey, err := s.surveyRepo.GetByID(ctx, req.SurveyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSurveyNotFound
		}
		return nil, fmt.Errorf("failed to load survey: %w", err)
	}

	exists, err := s.assignmentRepo.ExistsActive(ctx, req.SurveyID, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing assignment: %w", err)
	}
	if exists {
		return nil, ErrAssignmentExists
	}

	assignment := &models.Assignment{
		UserID:     req.UserID,
		SurveyID:   req.SurveyID,
		AssignedBy: &assignedBy,
		Status:     models.AssignmentActive,
		Location:   req.Location,
		Notes:      req.Notes,
	}
	if err := s.assignmentRepo.Create(ctx, assignment); err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}

	s.notifier.Notify(ctx, &req.UserID, "assignment_created",
		"New survey assigned",
		fmt.Sprintf("You have been assigned the survey %q.", survey.Title))

	s.logger.WithFields(logrus.Fields{
		"assignment_id": assignment.ID,
		"survey_id":     req.SurveyID,
		"user_id":       req.UserID,
	}).Info("Assignment created")
	return assignment, nil
}

// UpdateStatus toggles an assignment between active and inactive.
func (s *AssignmentService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Assignment, error) {
	assignment, err := s.assignmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to load assignment: %w", err)
	}

	if err := s.assignmentRepo.UpdateStatus(ctx, id, models.AssignmentStatus(status)); err != nil {
		return nil, fmt.Errorf("failed to update assignment: %w", err)
	}
	assignment.Status = models.AssignmentStatus(status)
	return assignment, nil
}

// Delete soft-deletes an assignment.
func (s *AssignmentService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.assignmentRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return fmt.Errorf("failed to load assignment: %w", err)
	}
	if err := s.assignmentRepo.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	return nil
}

// ListBySurvey returns a page of assignments for one survey.
func (s *AssignmentService) ListBySurvey(ctx context.Context, surveyID uuid.UUID, page, limit int) ([]models.Assignment, models.Pagination, error) {
	page, limit = normalizePage(page, limit)
	assignments, total, err := s.assignmentRepo.ListBySurvey(ctx, surveyID, page, limit)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, paginate(page, limit, total), nil
}

// MySurveys returns the caller's active assignments paired with the latest
// published version of each survey. Surveys without a published version are
// skipped; the mobile client cannot render a draft.
func (s *AssignmentService) MySurveys(ctx context.Context, userID uuid.UUID) ([]models.AssignedSurvey, error) {
	assignments, err := s.assignmentRepo.ListActiveForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	out := make([]models.AssignedSurvey, 0, len(assignments))
	for _, a := range assignments {
		if a.Survey == nil {
			continue
		}
		version, err := s.surveyRepo.LatestPublishedVersion(ctx, a.SurveyID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to load published version: %w", err)
		}
		out = append(out, models.AssignedSurvey{
			AssignmentID:      a.ID,
			SurveyID:          a.SurveyID,
			SurveyTitle:       a.Survey.Title,
			SurveyDescription: a.Survey.Description,
			AssignmentStatus:  a.Status,
			AssignedLocation:  a.Location,
			LatestVersion:     version,
			AssignedAt:        a.CreatedAt,
		})
	}
	return out, nil
}
