package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"survey-service/internal/config"
	"survey-service/internal/metrics"
	"survey-service/internal/models"
	"survey-service/internal/providers"
	"survey-service/internal/repository"
)

// Document sentinel errors.
var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrDocumentConfirmed = errors.New("document already confirmed")
	ErrDocumentTooLarge  = errors.New("file exceeds the upload size limit")
	ErrDocumentMimeType  = errors.New("unsupported file type")
)

var allowedMimeTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// DocumentService implements the two-phase direct upload: a presigned PUT
// URL is issued against object storage, the client uploads the bytes itself,
// then confirms. File content never transits this service.
type DocumentService struct {
	config       *config.Config
	documentRepo *repository.DocumentRepository
	storage      providers.StorageProvider
	metrics      *metrics.Metrics
	logger       *logrus.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(
	cfg *config.Config,
	documentRepo *repository.DocumentRepository,
	storage providers.StorageProvider,
	m *metrics.Metrics,
	logger *logrus.Logger,
) *DocumentService {
	return &DocumentService{
		config:       cfg,
		documentRepo: documentRepo,
		storage:      storage,
		metrics:      m,
		logger:       logger,
	}
}

// RequestUpload creates a pending document row and returns a presigned
// upload URL. An OCR confidence below the threshold raises an advisory
// warning; acceptance is never blocked on it.
func (s *DocumentService) RequestUpload(ctx context.Context, userID uuid.UUID, req *models.DocumentUploadRequest) (*models.DocumentUploadResponse, error) {
	if req.FileSize > s.config.Storage.MaxUploadBytes {
		return nil, ErrDocumentTooLarge
	}
	if !allowedMimeTypes[req.MimeType] {
		return nil, ErrDocumentMimeType
	}

	documentID := uuid.New().String()
	storageKey := fmt.Sprintf("responses/%s/%s%s", req.ClientID, documentID, path.Ext(req.FileName))

	uploadURL, expiresAt, err := s.storage.PresignUpload(ctx, storageKey, req.MimeType, req.FileSize)
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	doc := &models.Document{
		DocumentID:       documentID,
		UserID:           userID,
		ResponseClientID: req.ClientID,
		QuestionID:       req.Metadata.QuestionID,
		FileName:         req.FileName,
		FileSize:         req.FileSize,
		MimeType:         req.MimeType,
		DocumentType:     req.Metadata.DocumentType,
		StorageKey:       storageKey,
		OCRConfidence:    req.Metadata.OCRConfidence,
		Status:           models.DocumentPending,
	}
	if err := s.documentRepo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}
	s.metrics.DocumentUploads.WithLabelValues("requested").Inc()

	resp := &models.DocumentUploadResponse{
		DocumentID:           documentID,
		UploadURL:            uploadURL,
		ExpiresAt:            expiresAt,
		OCRRequired:          req.Metadata.DocumentType == "id_card",
		LowConfidenceWarning: doc.LowConfidence(),
	}
	if resp.LowConfidenceWarning {
		s.logger.WithFields(logrus.Fields{
			"document_id": documentID,
			"confidence":  *req.Metadata.OCRConfidence,
		}).Warn("Low OCR confidence on upload request")
	}
	return resp, nil
}

// ConfirmUpload finalizes a pending upload. The answer the document belongs
// to gets its media URL back-filled once the response has synced. Confirming
// twice returns the already-confirmed error without touching the row.
func (s *DocumentService) ConfirmUpload(ctx context.Context, userID uuid.UUID, req *models.DocumentConfirmRequest) (*models.Document, error) {
	doc, err := s.documentRepo.GetByDocumentID(ctx, req.DocumentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	if doc.UserID != userID {
		return nil, ErrDocumentNotFound
	}

	remoteURL := req.RemoteURL
	if remoteURL == "" {
		remoteURL = s.storage.ObjectURL(doc.StorageKey)
	}

	confirmed, err := s.documentRepo.Confirm(ctx, doc, remoteURL)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm document: %w", err)
	}
	if !confirmed {
		return nil, ErrDocumentConfirmed
	}
	s.metrics.DocumentUploads.WithLabelValues("confirmed").Inc()

	now := time.Now()
	doc.Status = models.DocumentUploaded
	doc.RemoteURL = remoteURL
	doc.ConfirmedAt = &now
	return doc, nil
}

// ListByResponse returns the documents attached to one synced response.
func (s *DocumentService) ListByResponse(ctx context.Context, responseClientID string) ([]models.Document, error) {
	docs, err := s.documentRepo.ListByResponse(ctx, responseClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}
