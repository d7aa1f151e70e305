package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuestionType enumerates the question kinds the mobile client can render.
type QuestionType string

const (
	QuestionText           QuestionType = "text"
	QuestionTextarea       QuestionType = "textarea"
	QuestionEmail          QuestionType = "email"
	QuestionPhone          QuestionType = "phone"
	QuestionNumber         QuestionType = "number"
	QuestionScale          QuestionType = "scale"
	QuestionRating         QuestionType = "rating"
	QuestionSingleChoice   QuestionType = "single_choice"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionYesNo          QuestionType = "yes_no"
	QuestionDate           QuestionType = "date"
	QuestionTime           QuestionType = "time"
	QuestionDateTime       QuestionType = "datetime"
	QuestionPhoto          QuestionType = "photo"
	QuestionFile           QuestionType = "file"
	QuestionSignature      QuestionType = "signature"
	QuestionLocation       QuestionType = "location"
	QuestionIDCardOCR      QuestionType = "id_card_ocr"
)

// Survey is a survey template. Content is immutable once published;
// changes go through new SurveyVersion rows.
type Survey struct {
	ID          uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	Title       string         `gorm:"type:varchar(255);not null;index" json:"title"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	IsActive    bool           `gorm:"default:true;not null" json:"is_active"`
	CreatedBy   uuid.UUID      `gorm:"type:uuid;not null" json:"created_by"`
	StartsAt    *time.Time     `json:"starts_at,omitempty"`
	EndsAt      *time.Time     `json:"ends_at,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Versions []SurveyVersion `gorm:"foreignKey:SurveyID;constraint:OnDelete:CASCADE" json:"versions,omitempty"`
}

// TableName specifies the table name
func (Survey) TableName() string {
	return "surveys"
}

// BeforeCreate hook to generate UUID
func (s *Survey) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SurveyVersion is one immutable snapshot of a survey's questions.
// Responses always reference a version, never the survey directly.
type SurveyVersion struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	SurveyID      uuid.UUID `gorm:"type:uuid;not null;index" json:"survey_id"`
	VersionNumber int       `gorm:"not null" json:"version_number"`
	IsPublished   bool      `gorm:"default:false;not null;index" json:"is_published"`
	ChangeSummary string    `gorm:"type:text" json:"change_summary,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`

	Questions []Question `gorm:"foreignKey:VersionID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
}

// TableName specifies the table name
func (SurveyVersion) TableName() string {
	return "survey_versions"
}

// BeforeCreate hook to generate UUID
func (v *SurveyVersion) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// Question belongs to one survey version.
type Question struct {
	ID              uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	VersionID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"version_id"`
	QuestionText    string         `gorm:"type:text;not null" json:"question_text"`
	QuestionType    QuestionType   `gorm:"type:varchar(30);not null" json:"question_type"`
	DisplayOrder    int            `gorm:"not null" json:"display_order"`
	IsRequired      bool           `gorm:"default:false;not null" json:"is_required"`
	ValidationRules datatypes.JSON `gorm:"type:jsonb" json:"validation_rules,omitempty"`

	Options []AnswerOption `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"options,omitempty"`
}

// TableName specifies the table name
func (Question) TableName() string {
	return "questions"
}

// BeforeCreate hook to generate UUID
func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// AnswerOption is one selectable choice for choice-based questions.
type AnswerOption struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	QuestionID   uuid.UUID `gorm:"type:uuid;not null;index" json:"question_id"`
	OptionText   string    `gorm:"type:varchar(500);not null" json:"option_text"`
	DisplayOrder int       `gorm:"not null" json:"display_order"`
}

// TableName specifies the table name
func (AnswerOption) TableName() string {
	return "answer_options"
}

// BeforeCreate hook to generate UUID
func (o *AnswerOption) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
