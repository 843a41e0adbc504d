package models

import "time"

// ClubRole represents a user's role within a specific club
type ClubRole string

const (
	ClubRoleOwner  ClubRole = "owner"
	ClubRoleAdmin  ClubRole = "admin"
	ClubRoleMember ClubRole = "member"
)

// Valid reports whether r is one of the three club roles
func (r ClubRole) Valid() bool {
	switch r {
	case ClubRoleOwner, ClubRoleAdmin, ClubRoleMember:
		return true
	}
	return false
}

// Rank orders the roles: member < admin < owner
func (r ClubRole) Rank() int {
	switch r {
	case ClubRoleOwner:
		return 3
	case ClubRoleAdmin:
		return 2
	case ClubRoleMember:
		return 1
	}
	return 0
}

// ClubMembership relates a user to a club with a role. A user has at most
// one membership per club. No soft delete: removal must free the
// (user_id, club_id) pair so the user can rejoin later.
type ClubMembership struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_club" json:"user_id"`
	ClubID    uint      `gorm:"not null;uniqueIndex:idx_user_club" json:"club_id"`
	Role      ClubRole  `gorm:"type:varchar(20);default:'member'" json:"role"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Club Club `gorm:"foreignKey:ClubID" json:"club,omitempty"`
}
