package events

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/bookclubhq/bookclub/pkg/bookclub/apperr"
	"github.com/bookclubhq/bookclub/pkg/bookclub/clubs"
	"github.com/bookclubhq/bookclub/pkg/bookclub/models"
)

// Registrations manages sign-up against a capacity-limited event.
//
// The capacity check uses insert-then-recount: the participation row is
// written first, then the registered count is taken inside the same
// transaction and the whole thing rolls back on overflow. Combined with
// the unique (event_id, user_id) index this keeps the registered count at
// or below the limit without SELECT ... FOR UPDATE, which sqlite does not
// speak. A bare count-then-insert would let two concurrent registrations
// both pass the check with one seat left.
type Registrations struct {
	db          *gorm.DB
	memberships clubs.MembershipStore
	now         func() time.Time
}

// NewRegistrations creates the manager over the given database
func NewRegistrations(db *gorm.DB) *Registrations {
	return &Registrations{db: db, now: time.Now}
}

// Register signs a club member up for a published, future event
func (s *Registrations) Register(eventID, userID uint) (*models.EventParticipant, error) {
	var registered models.EventParticipant
	var outcome error

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.First(&event, eventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				outcome = apperr.NotFoundf("event %d not found", eventID)
				return nil
			}
			return err
		}

		if _, err := s.memberships.Get(tx, event.ClubID, userID); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				outcome = apperr.Forbiddenf("only club members can register for this event")
				return nil
			}
			return err
		}

		if event.Status != models.EventStatusPublished {
			outcome = apperr.InvalidStatef("event is not open for registration")
			return nil
		}
		if !event.EventDatetime.After(s.now()) {
			outcome = apperr.InvalidStatef("event has already started")
			return nil
		}

		// A cancelled participation flips back instead of inserting a
		// second row; the unique index forbids duplicates.
		var existing models.EventParticipant
		err := tx.Where("event_id = ? AND user_id = ?", eventID, userID).First(&existing).Error
		switch {
		case err == nil && existing.Status == models.ParticipantRegistered:
			outcome = apperr.Conflictf("user %d is already registered", userID)
			return nil
		case err == nil:
			existing.Status = models.ParticipantRegistered
			existing.RegisteredAt = s.now()
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			registered = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			registered = models.EventParticipant{
				EventID:      eventID,
				UserID:       userID,
				Status:       models.ParticipantRegistered,
				RegisteredAt: s.now(),
			}
			if err := tx.Create(&registered).Error; err != nil {
				return err
			}
		default:
			return err
		}

		if event.MaxParticipants != nil {
			count, err := s.registeredCount(tx, eventID)
			if err != nil {
				return err
			}
			if count > int64(*event.MaxParticipants) {
				// Roll the insert back
				return apperr.ErrCapacityExceeded
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		return nil, outcome
	}
	return &registered, nil
}

// Cancel withdraws a registration before the event starts. The freed seat
// is immediately visible to concurrent registrations because the flip and
// their recount serialize on the store.
func (s *Registrations) Cancel(eventID, userID uint) error {
	var outcome error

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.First(&event, eventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				outcome = apperr.NotFoundf("event %d not found", eventID)
				return nil
			}
			return err
		}
		if !event.EventDatetime.After(s.now()) {
			outcome = apperr.InvalidStatef("event has already started")
			return nil
		}

		var participation models.EventParticipant
		err := tx.Where("event_id = ? AND user_id = ? AND status = ?", eventID, userID, models.ParticipantRegistered).
			First(&participation).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				outcome = apperr.NotFoundf("no registration for user %d", userID)
				return nil
			}
			return err
		}

		return tx.Model(&participation).Update("status", models.ParticipantCancelled).Error
	})
	if err != nil {
		return err
	}
	return outcome
}

// RegisteredCount returns the number of live registrations for an event
func (s *Registrations) RegisteredCount(eventID uint) (int64, error) {
	return s.registeredCount(s.db, eventID)
}

func (s *Registrations) registeredCount(tx *gorm.DB, eventID uint) (int64, error) {
	var count int64
	err := tx.Model(&models.EventParticipant{}).
		Where("event_id = ? AND status = ?", eventID, models.ParticipantRegistered).
		Count(&count).Error
	return count, err
}
