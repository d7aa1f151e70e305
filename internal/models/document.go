package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Document upload lifecycle states.
const (
	DocumentPending  = "pending"
	DocumentUploaded = "uploaded"
)

// OCR confidence below this is flagged as a low-confidence warning. The flag
// is advisory only; acceptance is never blocked on it.
const LowOCRConfidenceThreshold = 0.7

// Document tracks one file uploaded directly to object storage.
//
// Lifecycle:
//  1. POST /mobile/documents/upload  -> row created (pending), presigned URL issued
//  2. client PUTs the file to object storage
//  3. POST /mobile/documents/confirm -> row updated (uploaded), remote URL set
type Document struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	DocumentID       string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"document_id"`
	UserID           uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	ResponseClientID string     `gorm:"type:varchar(64);not null;index" json:"response_client_id"`
	QuestionID       *uuid.UUID `gorm:"type:uuid" json:"question_id,omitempty"`

	FileName     string `gorm:"type:varchar(255);not null" json:"file_name"`
	FileSize     int64  `gorm:"not null" json:"file_size"`
	MimeType     string `gorm:"type:varchar(100);not null" json:"mime_type"`
	DocumentType string `gorm:"type:varchar(50);not null" json:"document_type"`

	StorageKey string `gorm:"type:varchar(512)" json:"storage_key,omitempty"`
	RemoteURL  string `gorm:"type:text" json:"remote_url,omitempty"`

	OCRConfidence *float64 `json:"ocr_confidence,omitempty"`

	Status      string     `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

// TableName specifies the table name
func (Document) TableName() string {
	return "documents"
}

// BeforeCreate hook to generate UUID
func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// LowConfidence reports whether the OCR result should be flagged for review.
func (d *Document) LowConfidence() bool {
	return d.OCRConfidence != nil && *d.OCRConfidence < LowOCRConfidenceThreshold
}
