package events

import (
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bookclubhq/bookclub/pkg/bookclub/apperr"
	"github.com/bookclubhq/bookclub/pkg/bookclub/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	models.AutoMigrate(db)
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	user := models.User{Email: email, PasswordHash: "x", Name: "Test User"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func createTestClub(t *testing.T, db *gorm.DB, owner models.User) models.Club {
	t.Helper()
	club := models.Club{Name: "Test Club", Visibility: models.ClubVisibilityOpen, OwnerID: owner.ID}
	if err := db.Create(&club).Error; err != nil {
		t.Fatalf("Failed to create test club: %v", err)
	}
	membership := models.ClubMembership{UserID: owner.ID, ClubID: club.ID, Role: models.ClubRoleOwner}
	if err := db.Create(&membership).Error; err != nil {
		t.Fatalf("Failed to create owner membership: %v", err)
	}
	return club
}

func addTestMember(t *testing.T, db *gorm.DB, club models.Club, user models.User) {
	t.Helper()
	membership := models.ClubMembership{UserID: user.ID, ClubID: club.ID, Role: models.ClubRoleMember}
	if err := db.Create(&membership).Error; err != nil {
		t.Fatalf("Failed to add test member: %v", err)
	}
}

func createTestEvent(t *testing.T, db *gorm.DB, club models.Club, organizer models.User, status models.EventStatus, maxParticipants *int) models.Event {
	t.Helper()
	event := models.Event{
		ClubID:          club.ID,
		Title:           "Chapter discussion",
		Description:     "Chapters 1-5",
		EventDatetime:   time.Now().Add(48 * time.Hour),
		MeetingURL:      "https://meet.example.com/room",
		OrganizerID:     organizer.ID,
		MaxParticipants: maxParticipants,
		Status:          status,
	}
	if err := db.Create(&event).Error; err != nil {
		t.Fatalf("Failed to create test event: %v", err)
	}
	return event
}

func intPtr(n int) *int { return &n }

func TestRegisterAndCount(t *testing.T) {
	db := setupTestDB(t)
	registrations := NewRegistrations(db)
	owner := createTestUser(t, db, "owner@example.com")
	member := createTestUser(t, db, "member@example.com")
	club := createTestClub(t, db, owner)
	addTestMember(t, db, club, member)
	event := createTestEvent(t, db, club, owner, models.EventStatusPublished, nil)

	p, err := registrations.Register(event.ID, member.ID)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if p.Status != models.ParticipantRegistered {
		t.Errorf("Expected status registered, got %s", p.Status)
	}

	count, err := registrations.RegisteredCount(event.ID)
	if err != nil {
		t.Fatalf("RegisteredCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected count 1, got %d", count)
	}
}

func TestRegisterNonMemberForbidden(t *testing.T) {
	db := setupTestDB(t)
	registrations := NewRegistrations(db)
	owner := createTestUser(t, db, "owner@example.com")
	outsider := createTestUser(t, db, "outsider@example.com")
	club := createTestClub(t, db, owner)
	event := createTestEvent(t, db, club, owner, models.EventStatusPublished, nil)

	_, err := registrations.Register(event.ID, outsider.ID)
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("Expected ErrForbidden, got %v", err)
	}
}

func TestRegisterDraftEventInvalid(t *testing.T) {
	db := setupTestDB(t)
	registrations := NewRegistrations(db)
	owner := createTestUser(t, db, "owner@example.com")
	club := createTestClub(t, db, owner)
	event := createTestEvent(t, db, club, owner, models.EventStatusDraft, nil)

	_, err := registrations.Register(event.ID, owner.ID)
	if !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState, got %v", err)
	}
}

func TestRegisterPastEventInvalid(t *testing.T) {
	db := setupTestDB(t)
	registrations := NewRegistrations(db)
	owner := createTestUser(t, db, "owner@example.com")
	club := createTestClub(t, db, owner)
	event := createTestEvent(t, db, club, owner, models.EventStatusPublished, nil)

	// Move the clock past the event
	registrations.now = func() time.Time { return event.EventDatetime.Add(time.Hour) }

	_, err := registrations.Register(event.ID, owner.ID)
	if !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState, got %v", err)
	}
}

func TestRegisterTwiceConflict(t *testing.T) {
	db := setupTestDB(t)
	registrations := NewRegistrations(db)
	owner := createTestUser(t, db, "owner@example.com")
	club := createTestClub(t, db, owner)
	event := createTestEvent(t, db, club, owner, models.EventStatusPublished, nil)

	if _, err := registrations.Register(event.ID, owner.ID); err != nil {
		t.Fatalf("First register failed: %v", err)
	}
	_, err := registrations.Register(event.ID, owner.ID)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("Expected ErrConflict, got %v", err)
	}
}

func TestRegisterUnknownEventNotFound(t *testing.T) {
	db := setupTestDB(t)
	registrations := NewRegistrations(db)
	user := createTestUser(t, db, "user@example.com")

	_, err := registrations.Register(12345, user.ID)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

// A full event rejects the next registration, a cancellation frees the
// seat, and the rejected user can then take it.
func TestCapacitySeatReleaseScenario(t *testing.T) {
	db := setupTestDB(t)
	registrations := NewRegistrations(db)
	owner := createTestUser(t, db, "owner@example.com")
	userX := createTestUser(t, db, "x@example.com")
	userY := createTestUser(t, db, "y@example.com")
	club := createTestClub(t, db, owner)
	addTestMember(t, db, club, userX)
	addTestMember(t, db, club, userY)
	event := createTestEvent(t, db, club, owner, models.EventStatusPublished, intPtr(1))

	if _, err := registrations.Register(event.ID, userX.ID); err != nil {
		t.Fatalf("X's registration failed: %v", err)
	}

	_, err := registrations.Register(event.ID, userY.ID)
	if !errors.Is(err, apperr.ErrCapacityExceeded) {
		t.Fatalf("Expected ErrCapacityExceeded, got %v", err)
	}

	// The overflow attempt must leave no row behind
	var count int64
	db.Model(&models.EventParticipant{}).Where("event_id = ? AND user_id = ?", event.ID, userY.ID).Count(&count)
	if count != 0 {
		t.Fatalf("Expected rolled back registration to leave no row, found %d", count)
	}
	if n, _ := registrations.RegisteredCount(event.ID); n != 1 {
		t.Fatalf("Expected registered count 1, got %d", n)
	}

	if err := registrations.Cancel(event.ID, userX.ID); err != nil {
		t.Fatalf("X's cancellation failed: %v", err)
	}

	if _, err := registrations.Register(event.ID, userY.ID); err != nil {
		t.Fatalf("Y's registration after the freed seat failed: %v", err)
	}
	if n, _ := registrations.RegisteredCount(event.ID); n != 1 {
		t.Errorf("Expected registered count 1, got %d", n)
	}
}

func TestReRegisterAfterCancelFlipsRow(t *testing.T) {
	db := setupTestDB(t)
	registrations := NewRegistrations(db)
	owner := createTestUser(t, db, "owner@example.com")
	club := createTestClub(t, db, owner)
	event := createTestEvent(t, db, club, owner, models.EventStatusPublished, nil)

	registrations.Register(event.ID, owner.ID)
	registrations.Cancel(event.ID, owner.ID)
	if _, err := registrations.Register(event.ID, owner.ID); err != nil {
		t.Fatalf("Re-registration failed: %v", err)
	}

	// One row, flipped back, not a duplicate
	var count int64
	db.Model(&models.EventParticipant{}).Where("event_id = ? AND user_id = ?", event.ID, owner.ID).Count(&count)
	if count != 1 {
		t.Errorf("Expected a single participation row, got %d", count)
	}
	var p models.EventParticipant
	db.Where("event_id = ? AND user_id = ?", event.ID, owner.ID).First(&p)
	if p.Status != models.ParticipantRegistered {
		t.Errorf("Expected status registered, got %s", p.Status)
	}
}

func TestCancelWithoutRegistrationNotFound(t *testing.T) {
	db := setupTestDB(t)
	registrations := NewRegistrations(db)
	owner := createTestUser(t, db, "owner@example.com")
	club := createTestClub(t, db, owner)
	event := createTestEvent(t, db, club, owner, models.EventStatusPublished, nil)

	err := registrations.Cancel(event.ID, owner.ID)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestCancelAfterStartInvalid(t *testing.T) {
	db := setupTestDB(t)
	registrations := NewRegistrations(db)
	owner := createTestUser(t, db, "owner@example.com")
	club := createTestClub(t, db, owner)
	event := createTestEvent(t, db, club, owner, models.EventStatusPublished, nil)

	registrations.Register(event.ID, owner.ID)
	registrations.now = func() time.Time { return event.EventDatetime.Add(time.Hour) }

	err := registrations.Cancel(event.ID, owner.ID)
	if !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState, got %v", err)
	}
}
