package models

import (
	"time"

	"github.com/google/uuid"
)

// APIResponse is the standard API response wrapper
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError represents an error response. Retriable tells clients whether
// replaying the same request can ever succeed; RequestID echoes the
// correlation id for support lookups.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Retriable bool   `json:"retriable"`
	RequestID string `json:"request_id,omitempty"`
}

// WhitelistEntryInfo is the redacted whitelist preview shown to unauthenticated
// callers during validation. It deliberately omits the identifier itself.
type WhitelistEntryInfo struct {
	ID             uuid.UUID      `json:"id,omitempty"`
	Identifier     string         `json:"identifier,omitempty"`
	IdentifierType IdentifierType `json:"identifier_type,omitempty"`
	FullName       string         `json:"full_name"`
	AssignedRole   Role           `json:"assigned_role"`
	SupervisorName string         `json:"supervisor_name,omitempty"`
	Notes          string         `json:"notes,omitempty"`
}

// GenerateCodeResponse carries the plaintext code back to the admin. This is
// the only place the plaintext ever appears besides the outbound email.
type GenerateCodeResponse struct {
	Code           string             `json:"code"`
	CodeID         uuid.UUID          `json:"code_id"`
	WhitelistEntry WhitelistEntryInfo `json:"whitelist_entry"`
	ExpiresAt      time.Time          `json:"expires_at"`
	ExpiresInHours int                `json:"expires_in_hours"`
	EmailSent      bool               `json:"email_sent"`
	EmailStatus    string             `json:"email_status,omitempty"`
}

// ActivationRequirements tells the client what the completion step needs
type ActivationRequirements struct {
	MustProvideIdentifier    bool `json:"must_provide_identifier"`
	MustCreateStrongPassword bool `json:"must_create_strong_password"`
	PasswordMinLength        int  `json:"password_min_length"`
	MustAgreeToTerms         bool `json:"must_agree_to_terms"`
}

// ValidateCodeResponse is the public validation outcome
type ValidateCodeResponse struct {
	Valid          bool                    `json:"valid"`
	Error          string                  `json:"error,omitempty"`
	WhitelistEntry *WhitelistEntryInfo     `json:"whitelist_entry,omitempty"`
	ExpiresAt      *time.Time              `json:"expires_at,omitempty"`
	RemainingHours float64                 `json:"remaining_hours,omitempty"`
	Requirements   *ActivationRequirements `json:"activation_requirements,omitempty"`
}

// UserInfo is the public projection of a user record
type UserInfo struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone,omitempty"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// CompleteActivationResponse is returned on successful redemption
type CompleteActivationResponse struct {
	Success     bool     `json:"success"`
	UserID      uuid.UUID `json:"user_id"`
	AccessToken string   `json:"access_token"`
	User        UserInfo `json:"user"`
}

// ActivationCodeDetail is the admin view of one code
type ActivationCodeDetail struct {
	ID             uuid.UUID          `json:"id"`
	WhitelistID    uuid.UUID          `json:"whitelist_id"`
	WhitelistEntry WhitelistEntryInfo `json:"whitelist_entry"`
	Status         CodeStatus         `json:"status"`
	ExpiresAt      time.Time          `json:"expires_at"`
	IsUsed         bool               `json:"is_used"`
	UsedAt         *time.Time         `json:"used_at,omitempty"`
	FailedAttempts int                `json:"failed_attempts"`
	MaxAttempts    int                `json:"max_attempts"`
	RevokedAt      *time.Time         `json:"revoked_at,omitempty"`
	RevokeReason   string             `json:"revoke_reason,omitempty"`
	LastAttemptAt  *time.Time         `json:"last_attempt_at,omitempty"`
	GeneratedAt    time.Time          `json:"generated_at"`
}

// Pagination is the shared page envelope for list endpoints
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// ActivationCodeList is a paginated admin listing
type ActivationCodeList struct {
	Items      []ActivationCodeDetail `json:"items"`
	Pagination Pagination             `json:"pagination"`
}

// AuditLogList is a paginated audit trail listing
type AuditLogList struct {
	Items      []ActivationAuditLog `json:"items"`
	Pagination Pagination           `json:"pagination"`
}

// ActivationStats is the admin dashboard aggregate
type ActivationStats struct {
	TotalWhitelistEntries int64   `json:"total_whitelist_entries"`
	ActivatedUsers        int64   `json:"activated_users"`
	PendingActivations    int64   `json:"pending_activations"`
	ActivationRate        float64 `json:"activation_rate"`
	TotalCodesGenerated   int64   `json:"total_codes_generated"`
	ActiveCodes           int64   `json:"active_codes"`
	UsedCodes             int64   `json:"used_codes"`
	ExpiredCodes          int64   `json:"expired_codes"`
	LockedCodes           int64   `json:"locked_codes"`
	RevokedCodes          int64   `json:"revoked_codes"`
	FailedAttempts24h     int64   `json:"failed_attempts_last_24_hours"`
}

// LoginResponse is returned on successful password authentication
type LoginResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	User         UserInfo `json:"user"`
}

// RefreshResponse is returned on successful token rotation
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Per-item batch sync outcomes
const (
	ItemSynced    = "synced"
	ItemDuplicate = "duplicate"
	ItemFailed    = "failed"
)

// BatchItemResult is the per-client_id outcome of one batch item
type BatchItemResult struct {
	ClientID string `json:"client_id"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

// BatchResponseResult summarizes one batch sync call. Duplicates count as
// successful: redelivery under flaky connectivity is expected, not an error.
type BatchResponseResult struct {
	Total      int               `json:"total"`
	Successful int               `json:"successful"`
	Failed     int               `json:"failed"`
	Duplicates int               `json:"duplicates"`
	Results    []BatchItemResult `json:"results"`
}

// DocumentUploadResponse carries the presigned direct-upload credential
type DocumentUploadResponse struct {
	DocumentID            string    `json:"document_id"`
	UploadURL             string    `json:"upload_url"`
	ExpiresAt             time.Time `json:"expires_at"`
	OCRRequired           bool      `json:"ocr_required"`
	LowConfidenceWarning  bool      `json:"low_confidence_warning"`
}

// SyncStatus is the mobile sync dashboard projection
type SyncStatus struct {
	UserID          uuid.UUID  `json:"user_id"`
	SyncedResponses int64      `json:"synced_responses"`
	PendingUploads  int64      `json:"pending_uploads"`
	AssignedSurveys int64      `json:"assigned_surveys"`
	LastSync        *time.Time `json:"last_sync,omitempty"`
}

// AssignedSurvey pairs an assignment with the latest published version
type AssignedSurvey struct {
	AssignmentID      uuid.UUID        `json:"assignment_id"`
	SurveyID          uuid.UUID        `json:"survey_id"`
	SurveyTitle       string           `json:"survey_title"`
	SurveyDescription string           `json:"survey_description,omitempty"`
	AssignmentStatus  AssignmentStatus `json:"assignment_status"`
	AssignedLocation  string           `json:"assigned_location,omitempty"`
	LatestVersion     *SurveyVersion   `json:"latest_version"`
	AssignedAt        time.Time        `json:"assigned_at"`
}

// IDCheckResult is the outcome of a third-party national-ID lookup.
// Status "unreachable" means the upstream was down and the check is advisory.
type IDCheckResult struct {
	Identifier string `json:"identifier"`
	Status     string `json:"status"` // valid, invalid, unreachable
	Detail     string `json:"detail,omitempty"`
}
