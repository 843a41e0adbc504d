package clubs

import (
	"errors"

	"gorm.io/gorm"

	"github.com/bookclubhq/bookclub/pkg/bookclub/apperr"
	"github.com/bookclubhq/bookclub/pkg/bookclub/models"
)

// JoinRequests is the workflow for getting into an approval-required club.
// A request only moves pending -> approved or pending -> rejected, and at
// most one pending request exists per (user, club) pair.
type JoinRequests struct {
	db          *gorm.DB
	memberships MembershipStore
}

// NewJoinRequests creates the workflow over the given database
func NewJoinRequests(db *gorm.DB) *JoinRequests {
	return &JoinRequests{db: db}
}

// Request files a pending join request. Open clubs are joined directly
// instead, so requesting against one is an invalid state.
func (s *JoinRequests) Request(clubID, userID uint) (*models.ClubJoinRequest, error) {
	var created models.ClubJoinRequest
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
		if club.Visibility != models.ClubVisibilityApproval {
			outcome = apperr.InvalidStatef("club %d is open, join it directly", clubID)
			return nil
		}

		if _, err := s.memberships.Get(tx, clubID, userID); err == nil {
			outcome = apperr.Conflictf("user %d is already a member of club %d", userID, clubID)
			return nil
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}

		var pending models.ClubJoinRequest
		err := tx.Where("club_id = ? AND user_id = ? AND status = ?", clubID, userID, models.JoinRequestPending).
			First(&pending).Error
		if err == nil {
			outcome = apperr.Conflictf("a pending request already exists for user %d", userID)
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		created = models.ClubJoinRequest{ClubID: clubID, UserID: userID, Status: models.JoinRequestPending}
		return tx.Create(&created).Error
	})
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		return nil, outcome
	}
	return &created, nil
}

// ListPending returns the pending requests for a club, oldest first
func (s *JoinRequests) ListPending(clubID uint) ([]models.ClubJoinRequest, error) {
	var requests []models.ClubJoinRequest
	err := s.db.Preload("User").
		Where("club_id = ? AND status = ?", clubID, models.JoinRequestPending).
		Order("created_at asc").
		Find(&requests).Error
	return requests, err
}

// Approve marks a pending request approved and creates the membership in
// the same transaction. Approval is not idempotent: if the user got in
// through another path first (a concurrent approval, or a direct join
// after the club was opened up), the request flips to rejected and the
// caller sees Conflict, so the race is surfaced rather than swallowed.
//
// Domain outcomes are carried out of the transaction closure: the
// rejected flip on the race path has to commit, so the closure must not
// return an error for it.
func (s *JoinRequests) Approve(requestID, actorID uint) (*models.ClubJoinRequest, error) {
	var approved models.ClubJoinRequest
	var outcome error

	err := s.db.Transaction(func(tx *gorm.DB) error {
		req, actErr := s.loadPendingForActor(tx, requestID, actorID)
		if actErr != nil {
			outcome = actErr
			return nil
		}

		// Re-check membership inside the transaction: a concurrent approve
		// or direct join may have won.
		if _, err := s.memberships.Get(tx, req.ClubID, req.UserID); err == nil {
			if err := tx.Model(req).Update("status", models.JoinRequestRejected).Error; err != nil {
				return err
			}
			outcome = apperr.Conflictf("user %d is already a member of club %d", req.UserID, req.ClubID)
			return nil
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}

		if err := tx.Model(req).Update("status", models.JoinRequestApproved).Error; err != nil {
			return err
		}
		if _, err := s.memberships.Add(tx, req.ClubID, req.UserID, models.ClubRoleMember); err != nil {
			return err
		}
		req.Status = models.JoinRequestApproved
		approved = *req
		return nil
	})
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		return nil, outcome
	}
	return &approved, nil
}

// Reject marks a pending request rejected. No membership side effect.
func (s *JoinRequests) Reject(requestID, actorID uint) (*models.ClubJoinRequest, error) {
	var rejected models.ClubJoinRequest
	var outcome error

	err := s.db.Transaction(func(tx *gorm.DB) error {
		req, actErr := s.loadPendingForActor(tx, requestID, actorID)
		if actErr != nil {
			outcome = actErr
			return nil
		}
		if err := tx.Model(req).Update("status", models.JoinRequestRejected).Error; err != nil {
			return err
		}
		req.Status = models.JoinRequestRejected
		rejected = *req
		return nil
	})
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		return nil, outcome
	}
	return &rejected, nil
}

// loadPendingForActor loads a pending request and verifies the actor is
// owner or admin of its club. Non-pending requests read as NotFound so a
// resolved request cannot be replayed.
func (s *JoinRequests) loadPendingForActor(tx *gorm.DB, requestID, actorID uint) (*models.ClubJoinRequest, error) {
	var req models.ClubJoinRequest
	if err := tx.First(&req, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("join request %d not found", requestID)
		}
		return nil, err
	}
	if req.Status != models.JoinRequestPending {
		return nil, apperr.NotFoundf("join request %d is not pending", requestID)
	}

	actor, err := s.memberships.Get(tx, req.ClubID, actorID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Forbiddenf("user %d cannot manage requests for club %d", actorID, req.ClubID)
		}
		return nil, err
	}
	if !CanManageRequests(actor.Role) {
		return nil, apperr.Forbiddenf("user %d cannot manage requests for club %d", actorID, req.ClubID)
	}
	return &req, nil
}
