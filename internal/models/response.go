package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SurveyResponse is one filled-out survey, keyed for deduplication by the
// client-generated ClientID. The unique index is the invariant that makes
// batch sync idempotent; the application never takes a lock for it.
type SurveyResponse struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	ClientID    string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"client_id"`
	VersionID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"version_id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Location    string     `gorm:"type:varchar(255)" json:"location,omitempty"`
	DeviceInfo  datatypes.JSON `gorm:"type:jsonb" json:"device_info,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime;index" json:"created_at"`

	Answers []QuestionAnswer `gorm:"foreignKey:ResponseID;constraint:OnDelete:CASCADE" json:"answers,omitempty"`
}

// TableName specifies the table name
func (SurveyResponse) TableName() string {
	return "survey_responses"
}

// BeforeCreate hook to generate UUID
func (r *SurveyResponse) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// QuestionAnswer is one answer inside a response.
type QuestionAnswer struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	ResponseID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"response_id"`
	QuestionID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"question_id"`
	AnswerValue string     `gorm:"type:text" json:"answer_value,omitempty"`
	MediaURL    string     `gorm:"type:text" json:"media_url,omitempty"`
	AnsweredAt  *time.Time `json:"answered_at,omitempty"`
}

// TableName specifies the table name
func (QuestionAnswer) TableName() string {
	return "question_answers"
}

// BeforeCreate hook to generate UUID
func (a *QuestionAnswer) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
