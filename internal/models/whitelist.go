package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IdentifierType enumerates how a whitelist entry identifies its future user.
type IdentifierType string

const (
	IdentifierEmail      IdentifierType = "email"
	IdentifierPhone      IdentifierType = "phone"
	IdentifierNationalID IdentifierType = "national_id"
)

// ValidIdentifierType reports whether s is a known identifier type.
func ValidIdentifierType(s string) bool {
	switch IdentifierType(s) {
	case IdentifierEmail, IdentifierPhone, IdentifierNationalID:
		return true
	}
	return false
}

// WhitelistEntry pre-registers an identity that is permitted to redeem exactly
// one activation code into a live user account. The identifier and role become
// immutable once the entry is activated.
type WhitelistEntry struct {
	ID                   uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	Identifier           string         `gorm:"type:varchar(255);not null;index" json:"identifier"`
	IdentifierType       IdentifierType `gorm:"type:varchar(20);not null" json:"identifier_type"`
	FullName             string         `gorm:"type:varchar(255);not null" json:"full_name"`
	AssignedRole         Role           `gorm:"type:varchar(20);not null" json:"assigned_role"`
	AssignedSupervisorID *uuid.UUID     `gorm:"type:uuid;index" json:"assigned_supervisor_id,omitempty"`
	AssignedSupervisor   *User          `gorm:"foreignKey:AssignedSupervisorID" json:"-"`
	IsActivated          bool           `gorm:"default:false;not null;index" json:"is_activated"`
	ActivatedAt          *time.Time     `json:"activated_at,omitempty"`
	ActivatedUserID      *uuid.UUID     `gorm:"type:uuid" json:"activated_user_id,omitempty"`
	CreatedBy            *uuid.UUID     `gorm:"type:uuid" json:"created_by,omitempty"`
	Notes                string         `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt            time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"autoUpdateTime" json:"updated_at"`

	ActivationCodes []ActivationCode `gorm:"foreignKey:WhitelistID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name
func (WhitelistEntry) TableName() string {
	return "user_whitelist"
}

// BeforeCreate hook to generate UUID
func (w *WhitelistEntry) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
