package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"survey-service/internal/config"
	"survey-service/internal/metrics"
	"survey-service/internal/models"
	"survey-service/internal/repository"
)

type fakeStorage struct {
	presigned []string
	failInput bool
}

func (f *fakeStorage) PresignUpload(ctx context.Context, key, mimeType string, size int64) (string, time.Time, error) {
	if f.failInput {
		return "", time.Time{}, errors.New("storage unavailable")
	}
	f.presigned = append(f.presigned, key)
	return "https://storage.test/upload/" + key, time.Now().Add(15 * time.Minute), nil
}

func (f *fakeStorage) ObjectURL(key string) string {
	return "https://storage.test/" + key
}

func newDocumentFixture(t *testing.T) (*DocumentService, *fakeStorage, *models.User) {
	t.Helper()
	db := testDB(t)
	storage := &fakeStorage{}

	cfg := testConfig()
	cfg.Storage = config.StorageConfig{MaxUploadBytes: 10 << 20, PresignTTLMins: 15}

	svc := NewDocumentService(cfg, repository.NewDocumentRepository(db), storage, metrics.New(), testLogger())
	return svc, storage, seedAdmin(t, db)
}

func uploadReq(clientID string) *models.DocumentUploadRequest {
	return &models.DocumentUploadRequest{
		ClientID: clientID,
		FileName: "credential.jpg",
		FileSize: 512 << 10,
		MimeType: "image/jpeg",
		Metadata: models.DocumentMetadata{DocumentType: "photo"},
	}
}

func TestRequestUpload(t *testing.T) {
	svc, storage, user := newDocumentFixture(t)
	ctx := context.Background()

	resp, err := svc.RequestUpload(ctx, user.ID, uploadReq("device-7-001"))
	if err != nil {
		t.Fatalf("RequestUpload: %v", err)
	}
	if resp.UploadURL == "" || resp.DocumentID == "" {
		t.Fatalf("incomplete response %+v", resp)
	}
	if resp.OCRRequired {
		t.Fatal("photo uploads do not require OCR")
	}
	if len(storage.presigned) != 1 {
		t.Fatalf("expected one presign call, got %d", len(storage.presigned))
	}
}

func TestRequestUploadLimits(t *testing.T) {
	svc, _, user := newDocumentFixture(t)
	ctx := context.Background()

	big := uploadReq("device-7-002")
	big.FileSize = 11 << 20
	if _, err := svc.RequestUpload(ctx, user.ID, big); !errors.Is(err, ErrDocumentTooLarge) {
		t.Fatalf("expected ErrDocumentTooLarge, got %v", err)
	}

	exe := uploadReq("device-7-003")
	exe.MimeType = "application/x-msdownload"
	if _, err := svc.RequestUpload(ctx, user.ID, exe); !errors.Is(err, ErrDocumentMimeType) {
		t.Fatalf("expected ErrDocumentMimeType, got %v", err)
	}
}

func TestRequestUploadOCRAdvisory(t *testing.T) {
	svc, _, user := newDocumentFixture(t)
	ctx := context.Background()

	low := 0.42
	req := uploadReq("device-7-004")
	req.Metadata = models.DocumentMetadata{DocumentType: "id_card", OCRConfidence: &low}

	resp, err := svc.RequestUpload(ctx, user.ID, req)
	if err != nil {
		t.Fatalf("RequestUpload: %v", err)
	}
	if !resp.OCRRequired {
		t.Fatal("id_card uploads require OCR")
	}
	if !resp.LowConfidenceWarning {
		t.Fatal("expected low-confidence warning")
	}
}

func TestConfirmUploadOnce(t *testing.T) {
	svc, _, user := newDocumentFixture(t)
	ctx := context.Background()

	resp, err := svc.RequestUpload(ctx, user.ID, uploadReq("device-7-005"))
	if err != nil {
		t.Fatalf("RequestUpload: %v", err)
	}

	doc, err := svc.ConfirmUpload(ctx, user.ID, &models.DocumentConfirmRequest{DocumentID: resp.DocumentID})
	if err != nil {
		t.Fatalf("ConfirmUpload: %v", err)
	}
	if doc.Status != models.DocumentUploaded || doc.RemoteURL == "" {
		t.Fatalf("document not finalized: %+v", doc)
	}

	if _, err := svc.ConfirmUpload(ctx, user.ID, &models.DocumentConfirmRequest{DocumentID: resp.DocumentID}); !errors.Is(err, ErrDocumentConfirmed) {
		t.Fatalf("expected ErrDocumentConfirmed on second confirm, got %v", err)
	}
}

func TestConfirmUploadBackfillsAnswerMedia(t *testing.T) {
	db := testDB(t)
	storage := &fakeStorage{}
	cfg := testConfig()
	cfg.Storage = config.StorageConfig{MaxUploadBytes: 10 << 20, PresignTTLMins: 15}
	svc := NewDocumentService(cfg, repository.NewDocumentRepository(db), storage, metrics.New(), testLogger())
	user := seedAdmin(t, db)
	ctx := context.Background()

	// The response synced first, carrying a placeholder media reference.
	questionID := uuid.New()
	response := &models.SurveyResponse{
		ClientID:  "device-7-010",
		VersionID: uuid.New(),
		UserID:    user.ID,
		Answers: []models.QuestionAnswer{
			{QuestionID: questionID, MediaURL: "local://pending/credential.jpg"},
		},
	}
	if err := db.Create(response).Error; err != nil {
		t.Fatalf("failed to seed response: %v", err)
	}

	req := uploadReq("device-7-010")
	req.Metadata = models.DocumentMetadata{DocumentType: "photo", QuestionID: &questionID}
	up, err := svc.RequestUpload(ctx, user.ID, req)
	if err != nil {
		t.Fatalf("RequestUpload: %v", err)
	}

	doc, err := svc.ConfirmUpload(ctx, user.ID, &models.DocumentConfirmRequest{DocumentID: up.DocumentID})
	if err != nil {
		t.Fatalf("ConfirmUpload: %v", err)
	}
	if doc.RemoteURL == "" {
		t.Fatal("expected a remote URL on the confirmed document")
	}

	var answer models.QuestionAnswer
	if err := db.First(&answer, "question_id = ?", questionID).Error; err != nil {
		t.Fatalf("failed to load answer: %v", err)
	}
	if answer.MediaURL != doc.RemoteURL {
		t.Fatalf("answer media URL not back-filled: got %q, want %q", answer.MediaURL, doc.RemoteURL)
	}
}

func TestConfirmUploadOwnership(t *testing.T) {
	svc, _, user := newDocumentFixture(t)
	ctx := context.Background()

	resp, err := svc.RequestUpload(ctx, user.ID, uploadReq("device-7-006"))
	if err != nil {
		t.Fatalf("RequestUpload: %v", err)
	}

	// Another user cannot confirm, and must not learn the document exists.
	if _, err := svc.ConfirmUpload(ctx, uuid.New(), &models.DocumentConfirmRequest{DocumentID: resp.DocumentID}); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound for foreign user, got %v", err)
	}
}
