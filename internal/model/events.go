package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	// Membership events
	EventMemberJoined     EventType = "member_joined"
	EventMemberLeft       EventType = "member_left"
	EventShareCodeRotated EventType = "share_code_rotated"

	// Soul core events
	EventCoreAdded    EventType = "core_added"
	EventCoreObtained EventType = "core_obtained"
	EventCoreUnlocked EventType = "core_unlocked"
)

// Event is emitted after a list mutation commits
type Event struct {
	Type      EventType
	Timestamp time.Time
	ListID    ListID
	PlayerID  PlayerID // The player who triggered the change
	Payload   any      // Type-specific data
}

// MemberPayload contains data for member joined/left events
type MemberPayload struct {
	PlayerID      PlayerID
	CharacterID   CharacterID
	CharacterName string
	Role          MemberRole
}

// CorePayload contains data for soul core events
type CorePayload struct {
	CreatureID CreatureID
	State      CoreState
	ObtainedBy *CharacterRef
}
