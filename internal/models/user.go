package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role enumerates the three account roles in the platform.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleEncargado  Role = "encargado"
	RoleBrigadista Role = "brigadista"
)

// ValidRole reports whether s is one of the known roles.
func ValidRole(s string) bool {
	switch Role(s) {
	case RoleAdmin, RoleEncargado, RoleBrigadista:
		return true
	}
	return false
}

// User represents an account able to authenticate against the service.
// TokenVersion is a monotonic counter embedded in refresh tokens; bumping it
// invalidates every refresh token issued before the bump.
type User struct {
	ID             uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	Email          string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	HashedPassword string         `gorm:"type:varchar(60);not null" json:"-"`
	FullName       string         `gorm:"type:varchar(255);not null" json:"full_name"`
	Phone          string         `gorm:"type:varchar(30)" json:"phone,omitempty"`
	AvatarURL      string         `gorm:"type:text" json:"avatar_url,omitempty"`
	Role           Role           `gorm:"type:varchar(20);not null;default:brigadista;index" json:"role"`
	IsActive       bool           `gorm:"default:true;not null" json:"is_active"`
	TokenVersion   int            `gorm:"default:1;not null" json:"-"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}

// BeforeCreate hook to generate UUID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
