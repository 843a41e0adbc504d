package models

import (
	"time"

	"gorm.io/gorm"
)

// EventStatus is the lifecycle state of a club event
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusCompleted EventStatus = "completed"
	EventStatusCancelled EventStatus = "cancelled"
)

// ParticipantStatus is the state of a user's registration for an event
type ParticipantStatus string

const (
	ParticipantRegistered ParticipantStatus = "registered"
	ParticipantCancelled  ParticipantStatus = "cancelled"
)

// Event represents a scheduled club meeting. MaxParticipants of nil means
// unbounded; when set, the count of registered participants never exceeds it.
type Event struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	ClubID          uint           `gorm:"not null;index" json:"club_id"`
	Title           string         `gorm:"not null" json:"title"`
	Description     string         `json:"description"`
	EventDatetime   time.Time      `gorm:"index" json:"event_datetime"`
	MeetingURL      string         `json:"meeting_url"`
	OrganizerID     uint           `gorm:"not null" json:"organizer_id"`
	MaxParticipants *int           `json:"max_participants"`
	Status          EventStatus    `gorm:"type:varchar(20);default:'draft';index" json:"status"`

	// Relationships
	Club         Club               `gorm:"foreignKey:ClubID" json:"club,omitempty"`
	Organizer    User               `gorm:"foreignKey:OrganizerID" json:"organizer,omitempty"`
	Participants []EventParticipant `gorm:"foreignKey:EventID" json:"participants,omitempty"`
}

// EventParticipant relates a user to an event. Cancellation flips the
// status rather than deleting the row, so re-registering reuses it.
type EventParticipant struct {
	ID           uint              `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	EventID      uint              `gorm:"not null;uniqueIndex:idx_event_user" json:"event_id"`
	UserID       uint              `gorm:"not null;uniqueIndex:idx_event_user" json:"user_id"`
	Status       ParticipantStatus `gorm:"type:varchar(20);default:'registered'" json:"status"`
	RegisteredAt time.Time         `json:"registered_at"`

	// Relationships
	Event Event `gorm:"foreignKey:EventID" json:"event,omitempty"`
	User  User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
