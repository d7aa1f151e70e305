package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AssignmentStatus says whether the user is currently authorized to fill the
// survey. Inactive assignments stay around for history.
type AssignmentStatus string

const (
	AssignmentActive   AssignmentStatus = "active"
	AssignmentInactive AssignmentStatus = "inactive"
)

// Assignment links one user to one survey. A user may hold many assignments,
// each independently trackable.
type Assignment struct {
	ID         uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	UserID     uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	SurveyID   uuid.UUID        `gorm:"type:uuid;not null;index" json:"survey_id"`
	Survey     *Survey          `gorm:"foreignKey:SurveyID" json:"-"`
	AssignedBy *uuid.UUID       `gorm:"type:uuid;index" json:"assigned_by,omitempty"`
	Status     AssignmentStatus `gorm:"type:varchar(20);not null;default:active" json:"status"`
	Location   string           `gorm:"type:varchar(255)" json:"location,omitempty"`
	Notes      string           `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt  time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt   `gorm:"index" json:"-"`
}

// TableName specifies the table name
func (Assignment) TableName() string {
	return "assignments"
}

// BeforeCreate hook to generate UUID
func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
