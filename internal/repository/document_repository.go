package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"survey-service/internal/models"
)

// DocumentRepository handles database operations for uploaded documents.
type DocumentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create creates a pending document row.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

// GetByDocumentID looks up a document by its client-facing identifier.
func (r *DocumentRepository) GetByDocumentID(ctx context.Context, documentID string) (*models.Document, error) {
	var doc models.Document
	err := r.db.WithContext(ctx).First(&doc, "document_id = ?", documentID).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Confirm transitions a pending document to uploaded and, in the same
// transaction, back-fills the media URL onto the matching answer when the
// response has already synced. Only pending rows match, so a repeated
// confirm is a no-op reported through the returned flag.
func (r *DocumentRepository) Confirm(ctx context.Context, doc *models.Document, remoteURL string) (bool, error) {
	confirmed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":       models.DocumentUploaded,
			"remote_url":   remoteURL,
			"confirmed_at": time.Now(),
		}
		if doc.OCRConfidence != nil {
			updates["ocr_confidence"] = *doc.OCRConfidence
		}
		res := tx.Model(&models.Document{}).
			Where("document_id = ? AND status = ?", doc.DocumentID, models.DocumentPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return nil
		}
		confirmed = true

		if doc.QuestionID == nil {
			return nil
		}
		responseIDs := tx.Model(&models.SurveyResponse{}).
			Select("id").
			Where("client_id = ?", doc.ResponseClientID)
		return tx.Model(&models.QuestionAnswer{}).
			Where("question_id = ? AND response_id IN (?)", *doc.QuestionID, responseIDs).
			Update("media_url", remoteURL).Error
	})
	return confirmed, err
}

// ListByResponse returns the documents attached to one response.
func (r *DocumentRepository) ListByResponse(ctx context.Context, responseClientID string) ([]models.Document, error) {
	var docs []models.Document
	err := r.db.WithContext(ctx).
		Where("response_client_id = ?", responseClientID).
		Order("created_at ASC").
		Find(&docs).Error
	return docs, err
}

// CountPendingForUser counts uploads the user started but never confirmed.
func (r *DocumentRepository) CountPendingForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Document{}).
		Where("user_id = ? AND status = ?", userID, models.DocumentPending).
		Count(&n).Error
	return n, err
}

// DeleteStalePending removes pending rows older than the cutoff. The
// scheduler calls this; the object itself was never uploaded.
func (r *DocumentRepository) DeleteStalePending(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.DocumentPending, before).
		Delete(&models.Document{})
	return res.RowsAffected, res.Error
}
