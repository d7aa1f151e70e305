package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"survey-service/internal/metrics"
	"survey-service/internal/models"
	"survey-service/internal/repository"
)

type batchFixture struct {
	svc        *ResponseService
	surveys    *SurveyService
	db         *gorm.DB
	brigadista *models.User
	version    *models.SurveyVersion
}

func newBatchFixture(t *testing.T) *batchFixture {
	t.Helper()
	db := testDB(t)
	logger := testLogger()

	surveyRepo := repository.NewSurveyRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	userRepo := repository.NewUserRepository(db)
	notifier := NewNotificationService(repository.NewNotificationRepository(db), logger)

	surveys := NewSurveyService(surveyRepo, logger)
	assignments := NewAssignmentService(assignmentRepo, surveyRepo, userRepo, notifier, logger)
	svc := NewResponseService(
		db,
		repository.NewResponseRepository(db),
		surveyRepo,
		assignmentRepo,
		repository.NewDocumentRepository(db),
		metrics.New(),
		logger,
	)

	admin := seedAdmin(t, db)

	hash, _ := HashPassword("brigadista-pw1")
	brigadista := &models.User{
		Email:          "bri@example.com",
		HashedPassword: hash,
		FullName:       "Brigadista",
		Role:           models.RoleBrigadista,
		IsActive:       true,
		TokenVersion:   1,
	}
	if err := db.Create(brigadista).Error; err != nil {
		t.Fatalf("failed to seed brigadista: %v", err)
	}

	ctx := context.Background()
	survey, err := surveys.Create(ctx, &models.CreateSurveyRequest{
		Title: "Household census",
		Questions: []models.QuestionCreate{
			{QuestionText: "Head of household name", QuestionType: "text", IsRequired: true},
			{QuestionText: "Number of residents", QuestionType: "number"},
		},
	}, admin.ID)
	if err != nil {
		t.Fatalf("failed to create survey: %v", err)
	}

	draftID := survey.Versions[0].ID
	if _, err := surveys.Publish(ctx, draftID); err != nil {
		t.Fatalf("failed to publish version: %v", err)
	}
	version, err := surveys.GetVersion(ctx, draftID)
	if err != nil {
		t.Fatalf("failed to reload version: %v", err)
	}

	if _, err := assignments.Create(ctx, &models.CreateAssignmentRequest{
		UserID:   brigadista.ID,
		SurveyID: survey.ID,
	}, admin.ID); err != nil {
		t.Fatalf("failed to create assignment: %v", err)
	}

	return &batchFixture{
		svc:        svc,
		surveys:    surveys,
		db:         db,
		brigadista: brigadista,
		version:    version,
	}
}

func (f *batchFixture) item(clientID string) models.ResponseCreate {
	answers := make([]models.AnswerCreate, 0, len(f.version.Questions))
	for _, q := range f.version.Questions {
		answers = append(answers, models.AnswerCreate{
			QuestionID:  q.ID,
			AnswerValue: "yes",
		})
	}
	return models.ResponseCreate{
		ClientID:  clientID,
		VersionID: f.version.ID,
		Answers:   answers,
	}
}

func TestSubmitBatchPartialFailure(t *testing.T) {
	f := newBatchFixture(t)
	ctx := context.Background()

	req := &models.BatchResponseRequest{}
	for i := 0; i < 49; i++ {
		req.Responses = append(req.Responses, f.item(fmt.Sprintf("device-1-%03d", i)))
	}
	bad := f.item("device-1-bad")
	bad.VersionID = uuid.New()
	req.Responses = append(req.Responses, bad)

	result, err := f.svc.SubmitBatch(ctx, f.brigadista.ID, req)
	if err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}
	if result.Successful != 49 || result.Failed != 1 {
		t.Fatalf("expected 49 synced and 1 failed, got %d/%d", result.Successful, result.Failed)
	}
	if len(result.Results) != 50 {
		t.Fatalf("expected 50 per-item results, got %d", len(result.Results))
	}

	last := result.Results[49]
	if last.ClientID != "device-1-bad" || last.Status != models.ItemFailed {
		t.Fatalf("unexpected failed item result %+v", last)
	}

	// The good items committed despite the failure.
	var count int64
	f.db.Model(&models.SurveyResponse{}).Count(&count)
	if count != 49 {
		t.Fatalf("expected 49 stored responses, got %d", count)
	}
}

func TestSubmitBatchDuplicateIsSuccess(t *testing.T) {
	f := newBatchFixture(t)
	ctx := context.Background()

	first, err := f.svc.SubmitBatch(ctx, f.brigadista.ID, &models.BatchResponseRequest{
		Responses: []models.ResponseCreate{f.item("device-2-001")},
	})
	if err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}
	if first.Successful != 1 || first.Duplicates != 0 {
		t.Fatalf("unexpected first result %+v", first)
	}

	// Redelivery of the same client_id, plus an in-batch duplicate.
	second, err := f.svc.SubmitBatch(ctx, f.brigadista.ID, &models.BatchResponseRequest{
		Responses: []models.ResponseCreate{
			f.item("device-2-001"),
			f.item("device-2-002"),
			f.item("device-2-002"),
		},
	})
	if err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}
	if second.Successful != 3 || second.Duplicates != 2 || second.Failed != 0 {
		t.Fatalf("unexpected second result %+v", second)
	}

	var count int64
	f.db.Model(&models.SurveyResponse{}).Count(&count)
	if count != 2 {
		t.Fatalf("expected 2 stored responses, got %d", count)
	}
}

func TestSubmitBatchRejectsUnassignedSurvey(t *testing.T) {
	f := newBatchFixture(t)
	ctx := context.Background()

	// A different brigadista with no assignment.
	hash, _ := HashPassword("other-pw-123")
	other := &models.User{
		Email:          "other@example.com",
		HashedPassword: hash,
		FullName:       "Other",
		Role:           models.RoleBrigadista,
		IsActive:       true,
		TokenVersion:   1,
	}
	if err := f.db.Create(other).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	result, err := f.svc.SubmitBatch(ctx, other.ID, &models.BatchResponseRequest{
		Responses: []models.ResponseCreate{f.item("device-3-001")},
	})
	if err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}
	if result.Failed != 1 || result.Successful != 0 {
		t.Fatalf("expected rejection, got %+v", result)
	}
}

func TestSubmitBatchRequiredQuestion(t *testing.T) {
	f := newBatchFixture(t)
	ctx := context.Background()

	item := f.item("device-4-001")
	item.Answers = item.Answers[1:] // drop the required first question

	result, err := f.svc.SubmitBatch(ctx, f.brigadista.ID, &models.BatchResponseRequest{
		Responses: []models.ResponseCreate{item},
	})
	if err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}
	if result.Failed != 1 {
		t.Fatalf("expected required-question rejection, got %+v", result)
	}
}

func TestSubmitBatchRejectsUnpublishedVersion(t *testing.T) {
	f := newBatchFixture(t)
	ctx := context.Background()

	draft, err := f.surveys.CreateVersion(ctx, f.version.SurveyID, &models.CreateVersionRequest{
		ChangeSummary: "reworded questions",
		Questions: []models.QuestionCreate{
			{QuestionText: "Name", QuestionType: "text"},
		},
	})
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}

	item := models.ResponseCreate{
		ClientID:  "device-5-001",
		VersionID: draft.ID,
	}
	result, err := f.svc.SubmitBatch(ctx, f.brigadista.ID, &models.BatchResponseRequest{
		Responses: []models.ResponseCreate{item},
	})
	if err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}
	if result.Failed != 1 {
		t.Fatalf("expected unpublished-version rejection, got %+v", result)
	}
}

func TestSyncStatus(t *testing.T) {
	f := newBatchFixture(t)
	ctx := context.Background()

	if _, err := f.svc.SubmitBatch(ctx, f.brigadista.ID, &models.BatchResponseRequest{
		Responses: []models.ResponseCreate{f.item("device-6-001"), f.item("device-6-002")},
	}); err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}

	status, err := f.svc.SyncStatus(ctx, f.brigadista.ID)
	if err != nil {
		t.Fatalf("SyncStatus: %v", err)
	}
	if status.SyncedResponses != 2 {
		t.Fatalf("expected 2 synced responses, got %d", status.SyncedResponses)
	}
	if status.AssignedSurveys != 1 {
		t.Fatalf("expected 1 assigned survey, got %d", status.AssignedSurveys)
	}
	if status.LastSync == nil {
		t.Fatal("expected last sync timestamp")
	}
}

func TestPublishIsFinal(t *testing.T) {
	f := newBatchFixture(t)
	ctx := context.Background()

	if _, err := f.surveys.Publish(ctx, f.version.ID); !errors.Is(err, ErrVersionPublished) {
		t.Fatalf("expected ErrVersionPublished, got %v", err)
	}
}
