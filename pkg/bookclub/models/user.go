package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an account in the system
type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `json:"-"`
	Name         string         `gorm:"not null" json:"name"`
	AvatarURL    string         `json:"avatar_url,omitempty"`

	// Login throttling state. LockedUntil is only ever set while
	// FailedLoginAttempts has reached the lockout threshold.
	FailedLoginAttempts int        `gorm:"default:0" json:"-"`
	LockedUntil         *time.Time `json:"-"`

	// Relationships
	Memberships []ClubMembership `gorm:"foreignKey:UserID" json:"memberships,omitempty"`
}
