package clubs

import (
	"errors"

	"gorm.io/gorm"

	"github.com/bookclubhq/bookclub/pkg/bookclub/apperr"
	"github.com/bookclubhq/bookclub/pkg/bookclub/models"
)

// MembershipStore owns the persisted (club, user) -> role mapping. Every
// method takes the caller's database handle, so callers needing cross-row
// atomicity (ownership transfer, request approval) pass their transaction.
// The store itself does single-row work only.
type MembershipStore struct{}

// Get returns the membership for a user in a club, or NotFound
func (MembershipStore) Get(db *gorm.DB, clubID, userID uint) (*models.ClubMembership, error) {
	var m models.ClubMembership
	err := db.Where("club_id = ? AND user_id = ?", clubID, userID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("user %d is not a member of club %d", userID, clubID)
		}
		return nil, err
	}
	return &m, nil
}

// Add creates a membership, failing with Conflict when one already exists
func (MembershipStore) Add(db *gorm.DB, clubID, userID uint, role models.ClubRole) (*models.ClubMembership, error) {
	var existing models.ClubMembership
	if err := db.Where("club_id = ? AND user_id = ?", clubID, userID).First(&existing).Error; err == nil {
		return nil, apperr.Conflictf("user %d is already a member of club %d", userID, clubID)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	m := models.ClubMembership{ClubID: clubID, UserID: userID, Role: role}
	if err := db.Create(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// SetRole updates a membership's role. The owner's row is off limits: it
// only changes through an ownership transfer.
func (s MembershipStore) SetRole(db *gorm.DB, clubID, userID uint, role models.ClubRole) (*models.ClubMembership, error) {
	m, err := s.Get(db, clubID, userID)
	if err != nil {
		return nil, err
	}
	if m.Role == models.ClubRoleOwner {
		return nil, apperr.Forbiddenf("cannot change the role of the club owner")
	}
	m.Role = role
	if err := db.Model(&models.ClubMembership{}).Where("id = ?", m.ID).Update("role", role).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// Remove deletes a membership. Same owner protection as SetRole.
func (s MembershipStore) Remove(db *gorm.DB, clubID, userID uint) error {
	m, err := s.Get(db, clubID, userID)
	if err != nil {
		return err
	}
	if m.Role == models.ClubRoleOwner {
		return apperr.Forbiddenf("cannot remove the club owner")
	}
	return db.Delete(&models.ClubMembership{}, m.ID).Error
}

// Count returns the number of members in a club
func (MembershipStore) Count(db *gorm.DB, clubID uint) (int64, error) {
	var count int64
	err := db.Model(&models.ClubMembership{}).Where("club_id = ?", clubID).Count(&count).Error
	return count, err
}
