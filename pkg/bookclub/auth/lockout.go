package auth

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/bookclubhq/bookclub/pkg/bookclub/apperr"
	"github.com/bookclubhq/bookclub/pkg/bookclub/models"
)

const (
	// MaxFailedAttempts is the number of consecutive failures that locks an account
	MaxFailedAttempts = 5
	// LockDuration is how long an account stays locked after the threshold is hit
	LockDuration = 15 * time.Minute
)

// ErrInvalidCredential is returned for a wrong email/password combination.
// It deliberately does not say which of the two was wrong.
var ErrInvalidCredential = errors.New("invalid email or password")

// LockoutGuard wraps credential verification with a per-account
// failed-attempt counter and lock window. Every attempt reads and writes
// the counter inside one transaction, so rapid concurrent attempts
// serialize on the user row instead of incrementing from a stale read.
type LockoutGuard struct {
	db  *gorm.DB
	now func() time.Time
}

// NewLockoutGuard creates a guard over the given database
func NewLockoutGuard(db *gorm.DB) *LockoutGuard {
	return &LockoutGuard{db: db, now: time.Now}
}

// Authenticate verifies an email/password pair through the lockout state
// machine. A locked account is rejected before the password is even
// checked. The counter update commits even when the attempt fails, which
// is why domain outcomes are carried out of the transaction instead of
// returned from it (returning an error would roll the increment back).
func (g *LockoutGuard) Authenticate(email, password string) (*models.User, error) {
	var authed models.User
	var outcome error

	err := g.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("email = ?", email).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				outcome = ErrInvalidCredential
				return nil
			}
			return err
		}

		now := g.now()

		if user.LockedUntil != nil {
			if now.Before(*user.LockedUntil) {
				// Reject without evaluating the credential so response
				// timing does not reveal whether the lock has expired.
				outcome = apperr.ErrLocked
				return nil
			}
			// Lock window elapsed: reset before evaluating the credential
			user.FailedLoginAttempts = 0
			user.LockedUntil = nil
		}

		if !CheckPassword(password, user.PasswordHash) {
			user.FailedLoginAttempts++
			if user.FailedLoginAttempts >= MaxFailedAttempts {
				until := now.Add(LockDuration)
				user.LockedUntil = &until
			}
			if err := g.persistLockState(tx, &user); err != nil {
				return err
			}
			outcome = ErrInvalidCredential
			return nil
		}

		user.FailedLoginAttempts = 0
		user.LockedUntil = nil
		if err := g.persistLockState(tx, &user); err != nil {
			return err
		}
		authed = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		return nil, outcome
	}
	return &authed, nil
}

func (g *LockoutGuard) persistLockState(tx *gorm.DB, user *models.User) error {
	return tx.Model(&models.User{}).Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"failed_login_attempts": user.FailedLoginAttempts,
			"locked_until":          user.LockedUntil,
		}).Error
}
