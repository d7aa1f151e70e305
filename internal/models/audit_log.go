package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Activation audit event types. The set is closed; anything else is a bug.
const (
	EventCodeGenerated         = "code_generated"
	EventCodeExtended          = "code_extended"
	EventCodeValidationAttempt = "code_validation_attempt"
	EventCodeValidationSuccess = "code_validation_success"
	EventActivationAttempt     = "activation_attempt"
	EventActivationSuccess     = "activation_success"
	EventActivationFailed      = "activation_failed"
	EventCodeExpired           = "code_expired"
	EventCodeLocked            = "code_locked"
	EventCodeRevoked           = "code_revoked"
	EventEmailSent             = "email_sent"
	EventEmailResent           = "email_resent"
	EventRateLimitExceeded     = "rate_limit_exceeded"
)

// ActivationAuditLog is the append-only security trail for the activation
// flow. Rows are never updated or deleted.
type ActivationAuditLog struct {
	ID               uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	EventType        string         `gorm:"type:varchar(50);not null;index" json:"event_type"`
	ActivationCodeID *uuid.UUID     `gorm:"type:uuid;index" json:"activation_code_id,omitempty"`
	WhitelistID      *uuid.UUID     `gorm:"type:uuid;index" json:"whitelist_id,omitempty"`

	IdentifierAttempted string `gorm:"type:varchar(255)" json:"identifier_attempted,omitempty"`
	IPAddress           string `gorm:"type:varchar(45);not null;index" json:"ip_address"`
	UserAgent           string `gorm:"type:text" json:"user_agent,omitempty"`
	DeviceID            string `gorm:"type:varchar(255)" json:"device_id,omitempty"`

	Success       bool   `gorm:"not null;index" json:"success"`
	FailureReason string `gorm:"type:varchar(255)" json:"failure_reason,omitempty"`

	CreatedUserID *uuid.UUID     `gorm:"type:uuid" json:"created_user_id,omitempty"`
	Metadata      datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName specifies the table name
func (ActivationAuditLog) TableName() string {
	return "activation_audit_log"
}

// BeforeCreate hook to generate UUID
func (l *ActivationAuditLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// AdminAuditLog records destructive or sensitive admin actions: user
// deletion, role changes, status toggles, assignment removal. Append-only.
type AdminAuditLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	ActorID    *uuid.UUID     `gorm:"type:uuid;index" json:"actor_id,omitempty"`
	Action     string         `gorm:"type:varchar(80);not null;index" json:"action"`
	TargetType string         `gorm:"type:varchar(40)" json:"target_type,omitempty"`
	TargetID   *uuid.UUID     `gorm:"type:uuid;index" json:"target_id,omitempty"`
	Details    datatypes.JSON `gorm:"type:jsonb" json:"details,omitempty"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName specifies the table name
func (AdminAuditLog) TableName() string {
	return "admin_audit_log"
}

// BeforeCreate hook to generate UUID
func (l *AdminAuditLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
