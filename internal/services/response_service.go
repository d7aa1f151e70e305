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

	"survey-service/internal/metrics"
	"survey-service/internal/models"
	"survey-service/internal/repository"
)

// MaxBatchSize caps items per sync call. Enforced by request binding before
// any item is processed.
const MaxBatchSize = 50

// ErrResponseNotFound covers both a missing client_id and a response owned
// by someone else; callers cannot tell the two apart.
var ErrResponseNotFound = errors.New("response not found")

// ResponseService handles offline-first batch response ingestion.
type ResponseService struct {
	db             *gorm.DB
	responseRepo   *repository.ResponseRepository
	surveyRepo     *repository.SurveyRepository
	assignmentRepo *repository.AssignmentRepository
	documentRepo   *repository.DocumentRepository
	metrics        *metrics.Metrics
	logger         *logrus.Logger
}

// NewResponseService creates a new response service
func NewResponseService(
	db *gorm.DB,
	responseRepo *repository.ResponseRepository,
	surveyRepo *repository.SurveyRepository,
	assignmentRepo *repository.AssignmentRepository,
	documentRepo *repository.DocumentRepository,
	m *metrics.Metrics,
	logger *logrus.Logger,
) *ResponseService {
	return &ResponseService{
		db:             db,
		responseRepo:   responseRepo,
		surveyRepo:     surveyRepo,
		assignmentRepo: assignmentRepo,
		documentRepo:   documentRepo,
		metrics:        m,
		logger:         logger,
	}
}

// SubmitBatch ingests up to MaxBatchSize responses in one transaction with a
// savepoint per item: a failing item rolls back alone while the rest of the
// batch commits. A client_id that already exists counts as a success, since
// redelivery under flaky connectivity is the expected case, not an error.
func (s *ResponseService) SubmitBatch(ctx context.Context, userID uuid.UUID, req *models.BatchResponseRequest) (*models.BatchResponseResult, error) {
	result := &models.BatchResponseResult{
		Total:   len(req.Responses),
		Results: make([]models.BatchItemResult, 0, len(req.Responses)),
	}
	s.metrics.BatchSizes.Observe(float64(len(req.Responses)))

	// Duplicate client_ids inside one batch: first occurrence wins, the rest
	// report duplicate without touching the database.
	seen := make(map[string]bool, len(req.Responses))

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := s.responseRepo.WithTx(tx)

		for i := range req.Responses {
			item := &req.Responses[i]

			if seen[item.ClientID] {
				result.Duplicates++
				result.Successful++
				result.Results = append(result.Results, models.BatchItemResult{
					ClientID: item.ClientID,
					Status:   models.ItemDuplicate,
					Message:  "already synced",
				})
				s.metrics.BatchItems.WithLabelValues(models.ItemDuplicate).Inc()
				continue
			}
			seen[item.ClientID] = true

			exists, err := txRepo.ExistsByClientID(ctx, item.ClientID)
			if err != nil {
				return fmt.Errorf("failed to check client_id: %w", err)
			}
			if exists {
				result.Duplicates++
				result.Successful++
				result.Results = append(result.Results, models.BatchItemResult{
					ClientID: item.ClientID,
					Status:   models.ItemDuplicate,
					Message:  "already synced",
				})
				s.metrics.BatchItems.WithLabelValues(models.ItemDuplicate).Inc()
				continue
			}

			savepoint := fmt.Sprintf("sp_item_%d", i)
			tx.SavePoint(savepoint)

			if err := s.createResponse(ctx, txRepo, userID, item); err != nil {
				tx.RollbackTo(savepoint)
				result.Failed++
				result.Results = append(result.Results, models.BatchItemResult{
					ClientID: item.ClientID,
					Status:   models.ItemFailed,
					Message:  err.Error(),
				})
				s.metrics.BatchItems.WithLabelValues(models.ItemFailed).Inc()
				s.logger.WithError(err).WithFields(logrus.Fields{
					"client_id": item.ClientID,
					"user_id":   userID,
				}).Warn("Batch item rejected")
				continue
			}

			result.Successful++
			result.Results = append(result.Results, models.BatchItemResult{
				ClientID: item.ClientID,
				Status:   models.ItemSynced,
				Message:  "synced",
			})
			s.metrics.BatchItems.WithLabelValues(models.ItemSynced).Inc()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("batch sync failed: %w", err)
	}
	return result, nil
}

func (s *ResponseService) createResponse(ctx context.Context, repo *repository.ResponseRepository, userID uuid.UUID, item *models.ResponseCreate) error {
	version, err := s.surveyRepo.GetVersion(ctx, item.VersionID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("unknown survey version")
		}
		return fmt.Errorf("failed to load survey version: %w", err)
	}
	if !version.IsPublished {
		return fmt.Errorf("survey version is not published")
	}

	authorized, err := s.assignmentRepo.ExistsActive(ctx, version.SurveyID, userID)
	if err != nil {
		return fmt.Errorf("failed to check assignment: %w", err)
	}
	if !authorized {
		return fmt.Errorf("no active assignment for this survey")
	}

	if err := validateAnswers(version, item.Answers); err != nil {
		return err
	}

	var deviceInfo datatypes.JSON
	if item.DeviceInfo != nil {
		if data, err := json.Marshal(item.DeviceInfo); err == nil {
			deviceInfo = datatypes.JSON(data)
		}
	}

	response := &models.SurveyResponse{
		ClientID:    item.ClientID,
		VersionID:   item.VersionID,
		UserID:      userID,
		StartedAt:   item.StartedAt,
		CompletedAt: item.CompletedAt,
		Location:    item.Location,
		DeviceInfo:  deviceInfo,
	}
	for _, a := range item.Answers {
		response.Answers = append(response.Answers, models.QuestionAnswer{
			QuestionID:  a.QuestionID,
			AnswerValue: a.AnswerValue,
			MediaURL:    a.MediaURL,
			AnsweredAt:  a.AnsweredAt,
		})
	}
	return repo.Create(ctx, response)
}

// validateAnswers checks that every answer references a question in the
// version and that required questions are answered.
func validateAnswers(version *models.SurveyVersion, answers []models.AnswerCreate) error {
	known := make(map[uuid.UUID]*models.Question, len(version.Questions))
	for i := range version.Questions {
		known[version.Questions[i].ID] = &version.Questions[i]
	}

	answered := make(map[uuid.UUID]bool, len(answers))
	for _, a := range answers {
		if _, ok := known[a.QuestionID]; !ok {
			return fmt.Errorf("answer references unknown question %s", a.QuestionID)
		}
		if a.AnswerValue != "" || a.MediaURL != "" {
			answered[a.QuestionID] = true
		}
	}

	for id, q := range known {
		if q.IsRequired && !answered[id] {
			return fmt.Errorf("required question %s is unanswered", id)
		}
	}
	return nil
}

// ListMine returns a page of the caller's synced responses.
func (s *ResponseService) ListMine(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.SurveyResponse, models.Pagination, error) {
	page, limit = normalizePage(page, limit)
	responses, total, err := s.responseRepo.ListByUser(ctx, userID, page, limit)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to list responses: %w", err)
	}
	return responses, paginate(page, limit, total), nil
}

// GetMine returns one of the caller's synced responses by client id.
func (s *ResponseService) GetMine(ctx context.Context, userID uuid.UUID, clientID string) (*models.SurveyResponse, error) {
	response, err := s.responseRepo.GetByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResponseNotFound
		}
		return nil, fmt.Errorf("failed to load response: %w", err)
	}
	if response.UserID != userID {
		return nil, ErrResponseNotFound
	}
	return response, nil
}

// SyncStatus summarizes the caller's sync state for the mobile dashboard.
func (s *ResponseService) SyncStatus(ctx context.Context, userID uuid.UUID) (*models.SyncStatus, error) {
	assignments, err := s.assignmentRepo.ListActiveForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	responses, total, err := s.responseRepo.ListByUser(ctx, userID, 1, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to count responses: %w", err)
	}

	pending, err := s.documentRepo.CountPendingForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending uploads: %w", err)
	}

	status := &models.SyncStatus{
		UserID:          userID,
		SyncedResponses: total,
		PendingUploads:  pending,
		AssignedSurveys: int64(len(assignments)),
	}
	if len(responses) > 0 {
		status.LastSync = &responses[0].CreatedAt
	}
	return status, nil
}
