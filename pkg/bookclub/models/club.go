package models

import (
	"time"

	"gorm.io/gorm"
)

// ClubVisibility controls how users get into a club
type ClubVisibility string

const (
	// ClubVisibilityOpen lets any user join directly as a member
	ClubVisibilityOpen ClubVisibility = "open"
	// ClubVisibilityApproval routes all joins through a request that an
	// owner or admin must approve
	ClubVisibilityApproval ClubVisibility = "approval_required"
)

// Club represents a book club. Every club has exactly one owner at all
// times: OwnerID and the single membership with role owner move together
// (see ownership transfer).
type Club struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `json:"description"`
	Visibility  ClubVisibility `gorm:"type:varchar(20);default:'open'" json:"visibility"`
	OwnerID     uint           `gorm:"not null;index" json:"owner_id"`

	// Relationships
	Members []ClubMembership `gorm:"foreignKey:ClubID" json:"members,omitempty"`
	Events  []Event          `gorm:"foreignKey:ClubID" json:"events,omitempty"`
}
