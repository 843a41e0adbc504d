package models

import "time"

// JoinRequestStatus is the state of a request to join an approval-required club
type JoinRequestStatus string

const (
	JoinRequestPending  JoinRequestStatus = "pending"
	JoinRequestApproved JoinRequestStatus = "approved"
	JoinRequestRejected JoinRequestStatus = "rejected"
)

// ClubJoinRequest is a pending application to become a member of a club.
// At most one pending request exists per (user, club) pair; a request only
// ever moves pending -> approved or pending -> rejected.
type ClubJoinRequest struct {
	ID        uint              `gorm:"primarykey" json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	ClubID    uint              `gorm:"not null;index" json:"club_id"`
	UserID    uint              `gorm:"not null;index" json:"user_id"`
	Status    JoinRequestStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Club Club `gorm:"foreignKey:ClubID" json:"club,omitempty"`
}
