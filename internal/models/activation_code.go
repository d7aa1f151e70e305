package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Maximum identifier-mismatch attempts before a code locks.
const MaxActivationAttempts = 5

// CodeStatus is the lifecycle state of an activation code. The stored column
// only holds the explicit states; "locked" and "expired" are derived on read
// via DisplayStatus.
type CodeStatus string

const (
	CodeStatusActive  CodeStatus = "active"
	CodeStatusUsed    CodeStatus = "used"
	CodeStatusLocked  CodeStatus = "locked"
	CodeStatusExpired CodeStatus = "expired"
	CodeStatusRevoked CodeStatus = "revoked"
)

// ActivationCode is a short-lived, single-use credential bound to one
// whitelist entry. Only the bcrypt hash of the 6-digit code is persisted;
// the plaintext exists in the generation response and the outbound email.
type ActivationCode struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	CodeHash    string    `gorm:"type:varchar(60);not null" json:"-"`
	WhitelistID uuid.UUID `gorm:"type:uuid;not null;index" json:"whitelist_id"`
	Whitelist   *WhitelistEntry `gorm:"foreignKey:WhitelistID" json:"-"`

	Status       CodeStatus `gorm:"type:varchar(20);not null;default:active;index" json:"status"`
	ExpiresAt    time.Time  `gorm:"not null;index" json:"expires_at"`
	IsUsed       bool       `gorm:"default:false;not null;index" json:"is_used"`
	UsedAt       *time.Time `json:"used_at,omitempty"`
	UsedByUserID *uuid.UUID `gorm:"type:uuid" json:"used_by_user_id,omitempty"`

	ActivationAttempts int        `gorm:"default:0;not null" json:"activation_attempts"`
	LastAttemptAt      *time.Time `json:"last_attempt_at,omitempty"`
	LastAttemptIP      string     `gorm:"type:varchar(45)" json:"last_attempt_ip,omitempty"`

	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
	RevokeReason string     `gorm:"type:varchar(255)" json:"revoke_reason,omitempty"`

	GeneratedBy *uuid.UUID `gorm:"type:uuid" json:"generated_by,omitempty"`
	GeneratedAt time.Time  `gorm:"autoCreateTime;index" json:"generated_at"`
}

// TableName specifies the table name
func (ActivationCode) TableName() string {
	return "activation_codes"
}

// BeforeCreate hook to generate UUID
func (a *ActivationCode) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// IsExpired checks if the code has passed its expiry time.
func (a *ActivationCode) IsExpired() bool {
	return a.IsExpiredAt(time.Now())
}

// IsExpiredAt checks expiry against an explicit clock, for testability.
func (a *ActivationCode) IsExpiredAt(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

// IsLocked reports whether the code has reached the attempt threshold.
func (a *ActivationCode) IsLocked() bool {
	return a.Status == CodeStatusLocked || a.ActivationAttempts >= MaxActivationAttempts
}

// IsRedeemable reports whether the code may still complete an activation:
// not used, not revoked, not locked, not expired.
func (a *ActivationCode) IsRedeemable() bool {
	return a.IsRedeemableAt(time.Now())
}

// IsRedeemableAt is IsRedeemable against an explicit clock.
func (a *ActivationCode) IsRedeemableAt(now time.Time) bool {
	return a.Status == CodeStatusActive && !a.IsLocked() && !a.IsExpiredAt(now)
}

// DisplayStatus evaluates the derived lifecycle state as an ordered predicate
// list. Tie-break order: revoked > used > locked > expired > active. Every
// caller that reports a status must go through this so the ordering is agreed
// upon in exactly one place.
func (a *ActivationCode) DisplayStatus() CodeStatus {
	return a.DisplayStatusAt(time.Now())
}

// DisplayStatusAt is DisplayStatus against an explicit clock.
func (a *ActivationCode) DisplayStatusAt(now time.Time) CodeStatus {
	switch {
	case a.Status == CodeStatusRevoked:
		return CodeStatusRevoked
	case a.Status == CodeStatusUsed || a.IsUsed:
		return CodeStatusUsed
	case a.IsLocked():
		return CodeStatusLocked
	case a.IsExpiredAt(now):
		return CodeStatusExpired
	default:
		return CodeStatusActive
	}
}
