package models

import (
	"time"

	"github.com/google/uuid"
)

// GenerateCodeRequest represents an admin request to issue an activation code
type GenerateCodeRequest struct {
	WhitelistID    uuid.UUID `json:"whitelist_id" binding:"required"`
	ExpiresInHours int       `json:"expires_in_hours" binding:"required,min=1,max=720"`
	SendEmail      bool      `json:"send_email"`
	CustomMessage  string    `json:"custom_message,omitempty"`
}

// ValidateCodeRequest represents a public request to check an activation code.
// Codes copied from an email may carry separators ("123 456", "123-456");
// they are stripped before verification.
type ValidateCodeRequest struct {
	Code string `json:"code" binding:"required,min=6,max=12"`
}

// CompleteActivationRequest represents a public request to redeem a code into an account
type CompleteActivationRequest struct {
	Code       string `json:"code" binding:"required,min=6,max=12"`
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required,min=8"`
	Phone      string `json:"phone,omitempty"`
	DeviceID   string `json:"device_id,omitempty"`
}

// RevokeCodeRequest represents an admin request to permanently disable a code
type RevokeCodeRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ExtendCodeRequest represents an admin request to push a code's expiry forward
type ExtendCodeRequest struct {
	AdditionalHours int `json:"additional_hours" binding:"required,min=1,max=720"`
}

// ResendCodeRequest represents an admin request to revoke-and-reissue a code by email
type ResendCodeRequest struct {
	CustomMessage string `json:"custom_message,omitempty"`
}

// CreateWhitelistRequest represents an admin request to pre-register an identity
type CreateWhitelistRequest struct {
	Identifier           string     `json:"identifier" binding:"required"`
	IdentifierType       string     `json:"identifier_type" binding:"required,oneof=email phone national_id"`
	FullName             string     `json:"full_name" binding:"required"`
	AssignedRole         string     `json:"assigned_role" binding:"required,oneof=admin encargado brigadista"`
	AssignedSupervisorID *uuid.UUID `json:"assigned_supervisor_id,omitempty"`
	Notes                string     `json:"notes,omitempty"`
}

// LoginRequest represents a password login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	DeviceID string `json:"device_id,omitempty"`
}

// RefreshRequest carries a refresh token for rotation
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// AnswerCreate is one answer inside a response submission
type AnswerCreate struct {
	QuestionID  uuid.UUID  `json:"question_id" binding:"required"`
	AnswerValue string     `json:"answer_value,omitempty"`
	MediaURL    string     `json:"media_url,omitempty"`
	AnsweredAt  *time.Time `json:"answered_at,omitempty"`
}

// ResponseCreate is one candidate survey response in a sync batch
type ResponseCreate struct {
	ClientID    string                 `json:"client_id" binding:"required,max=64"`
	VersionID   uuid.UUID              `json:"version_id" binding:"required"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	Location    string                 `json:"location,omitempty"`
	DeviceInfo  map[string]interface{} `json:"device_info,omitempty"`
	Answers     []AnswerCreate         `json:"answers"`
}

// BatchResponseRequest is the top-level batch sync payload. The 50-item cap
// is enforced before any item is processed.
type BatchResponseRequest struct {
	Responses []ResponseCreate `json:"responses" binding:"required,min=1,max=50,dive"`
}

// DocumentMetadata carries per-document context for an upload request
type DocumentMetadata struct {
	DocumentType  string     `json:"document_type" binding:"required,oneof=id_card receipt signature photo form"`
	QuestionID    *uuid.UUID `json:"question_id,omitempty"`
	OCRConfidence *float64   `json:"ocr_confidence,omitempty"`
	OCRText       string     `json:"ocr_text,omitempty"`
}

// DocumentUploadRequest asks for a presigned direct-upload URL
type DocumentUploadRequest struct {
	ClientID string           `json:"client_id" binding:"required"`
	FileName string           `json:"file_name" binding:"required"`
	FileSize int64            `json:"file_size" binding:"required,min=1"`
	MimeType string           `json:"mime_type" binding:"required"`
	Metadata DocumentMetadata `json:"metadata" binding:"required"`
}

// DocumentConfirmRequest finalizes a two-phase upload
type DocumentConfirmRequest struct {
	DocumentID string `json:"document_id" binding:"required"`
	RemoteURL  string `json:"remote_url,omitempty"`
}

// AnswerOptionCreate is one choice inside a question definition
type AnswerOptionCreate struct {
	OptionText   string `json:"option_text" binding:"required,max=500"`
	DisplayOrder int    `json:"display_order"`
}

// QuestionCreate is one question inside a survey version definition
type QuestionCreate struct {
	QuestionText    string                 `json:"question_text" binding:"required"`
	QuestionType    string                 `json:"question_type" binding:"required"`
	DisplayOrder    int                    `json:"display_order"`
	IsRequired      bool                   `json:"is_required"`
	ValidationRules map[string]interface{} `json:"validation_rules,omitempty"`
	Options         []AnswerOptionCreate   `json:"options,omitempty"`
}

// CreateSurveyRequest creates a survey with an initial draft version
type CreateSurveyRequest struct {
	Title       string           `json:"title" binding:"required,max=255"`
	Description string           `json:"description,omitempty"`
	StartsAt    *time.Time       `json:"starts_at,omitempty"`
	EndsAt      *time.Time       `json:"ends_at,omitempty"`
	Questions   []QuestionCreate `json:"questions" binding:"required,min=1,dive"`
}

// CreateVersionRequest adds a new draft version to an existing survey
type CreateVersionRequest struct {
	ChangeSummary string           `json:"change_summary,omitempty"`
	Questions     []QuestionCreate `json:"questions" binding:"required,min=1,dive"`
}

// CreateAssignmentRequest links a user to a survey
type CreateAssignmentRequest struct {
	UserID   uuid.UUID `json:"user_id" binding:"required"`
	SurveyID uuid.UUID `json:"survey_id" binding:"required"`
	Location string    `json:"location,omitempty"`
	Notes    string    `json:"notes,omitempty"`
}

// UpdateAssignmentStatusRequest toggles an assignment active/inactive
type UpdateAssignmentStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active inactive"`
}

// UpdateUserRequest is an admin mutation of a user record
type UpdateUserRequest struct {
	FullName *string `json:"full_name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Role     *string `json:"role,omitempty" binding:"omitempty,oneof=admin encargado brigadista"`
	IsActive *bool   `json:"is_active,omitempty"`
}
