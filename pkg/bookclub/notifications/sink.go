// Package notifications carries best-effort fan-out after committed state
// changes. Sinks are fire-and-forget: a delivery failure is logged and
// dropped, never surfaced to the caller of the state-changing operation.
package notifications

import (
	"context"
	"time"
)

// Kind identifies a notification event. The kind doubles as the AMQP
// routing key.
type Kind string

const (
	KindJoinRequestApproved  Kind = "club.join_request.approved"
	KindJoinRequestRejected  Kind = "club.join_request.rejected"
	KindMemberRemoved        Kind = "club.member.removed"
	KindRoleChanged          Kind = "club.member.role_changed"
	KindOwnershipTransferred Kind = "club.ownership.transferred"
	KindEventCreated         Kind = "event.created"
	KindEventPublished       Kind = "event.published"
)

// One payload struct per kind, with explicit fields. The sink stays
// generic; consumers switch on the envelope kind to decode.

// JoinRequestResolved is the payload for approved and rejected requests
type JoinRequestResolved struct {
	RequestID uint `json:"request_id"`
	ClubID    uint `json:"club_id"`
	UserID    uint `json:"user_id"`
}

// MemberRemoved is emitted when a member is removed from a club
type MemberRemoved struct {
	ClubID  uint `json:"club_id"`
	UserID  uint `json:"user_id"`
	ActorID uint `json:"actor_id"`
}

// RoleChanged is emitted when a member's role changes
type RoleChanged struct {
	ClubID  uint   `json:"club_id"`
	UserID  uint   `json:"user_id"`
	Role    string `json:"role"`
	ActorID uint   `json:"actor_id"`
}

// OwnershipTransferred is emitted after the owner swap commits
type OwnershipTransferred struct {
	ClubID     uint `json:"club_id"`
	OldOwnerID uint `json:"old_owner_id"`
	NewOwnerID uint `json:"new_owner_id"`
}

// EventChanged is the payload for event created/published notifications
type EventChanged struct {
	EventID uint   `json:"event_id"`
	ClubID  uint   `json:"club_id"`
	Title   string `json:"title"`
}

// Envelope wraps a payload with its kind for the wire
type Envelope struct {
	Kind      Kind        `json:"kind"`
	EmittedAt time.Time   `json:"emitted_at"`
	Payload   interface{} `json:"payload"`
}

// Sink receives notification events. Emit must not block the caller on
// broker trouble and must never return delivery errors into the
// state-changing path; implementations log and drop.
type Sink interface {
	Emit(ctx context.Context, kind Kind, payload interface{})
	Close() error
}
