package clubs

import (
	"errors"

	"gorm.io/gorm"

	"github.com/bookclubhq/bookclub/pkg/bookclub/apperr"
	"github.com/bookclubhq/bookclub/pkg/bookclub/models"
)

// OwnershipTransfer atomically moves the owner role between two members.
// Three writes land in one transaction: the club's owner pointer, the
// outgoing owner demoted to admin, the incoming owner promoted. Partial
// application would break the single-owner invariant, so any failure
// rolls all three back.
type OwnershipTransfer struct {
	db          *gorm.DB
	memberships MembershipStore
}

// NewOwnershipTransfer creates the coordinator over the given database
func NewOwnershipTransfer(db *gorm.DB) *OwnershipTransfer {
	return &OwnershipTransfer{db: db}
}

// Transfer hands the club from the acting user to newOwnerID. Only the
// current owner may initiate, and the new owner must already be a member.
func (s *OwnershipTransfer) Transfer(clubID, newOwnerID, actorID uint) error {
	if newOwnerID == actorID {
		return apperr.InvalidStatef("new owner must differ from the current owner")
	}

	var outcome error
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var club models.Club
		if err := tx.First(&club, clubID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				outcome = apperr.NotFoundf("club %d not found", clubID)
				return nil
			}
			return err
		}
		if club.OwnerID != actorID {
			outcome = apperr.Forbiddenf("only the current owner can transfer ownership")
			return nil
		}

		incoming, err := s.memberships.Get(tx, clubID, newOwnerID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				outcome = apperr.NotFoundf("new owner is not a member of this club")
				return nil
			}
			return err
		}

		outgoing, err := s.memberships.Get(tx, clubID, actorID)
		if err != nil {
			return err
		}

		if err := tx.Model(&models.Club{}).Where("id = ?", club.ID).
			Update("owner_id", newOwnerID).Error; err != nil {
			return err
		}
		// Direct role writes: MembershipStore.SetRole refuses to touch the
		// owner row, which is exactly the row this swap must rewrite.
		if err := tx.Model(&models.ClubMembership{}).Where("id = ?", outgoing.ID).
			Update("role", models.ClubRoleAdmin).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.ClubMembership{}).Where("id = ?", incoming.ID).
			Update("role", models.ClubRoleOwner).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	return outcome
}
