package model

import "strings"

// CharacterChoice selects the character a player acts with.
// It is either ByCharacterID or ByNewCharacterName.
type CharacterChoice interface {
	isCharacterChoice()
}

// ByCharacterID picks one of the player's already registered characters
type ByCharacterID struct {
	ID CharacterID
}

// ByNewCharacterName registers a character by its in-game name first
type ByNewCharacterName struct {
	Name string
}

func (ByCharacterID) isCharacterChoice()      {}
func (ByNewCharacterName) isCharacterChoice() {}

// ValidateCharacterChoice rejects empty or unset choices
func ValidateCharacterChoice(choice CharacterChoice) error {
	switch c := choice.(type) {
	case ByCharacterID:
		if strings.TrimSpace(string(c.ID)) == "" {
			return NewValidationError("character_id", "is required")
		}
	case ByNewCharacterName:
		if strings.TrimSpace(c.Name) == "" {
			return NewValidationError("character_name", "is required")
		}
	default:
		return NewValidationError("character", "either character_id or character_name is required")
	}
	return nil
}

const (
	MaxListNameLength        = 100
	MaxListDescriptionLength = 500
)

// CreateListRequest holds everything needed to create a list
type CreateListRequest struct {
	Name        string
	Description string
	World       string
	Character   CharacterChoice
}

// Validate checks the request shape before it reaches the list manager
func (r CreateListRequest) Validate() error {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return NewValidationError("name", "is required")
	}
	if len(name) > MaxListNameLength {
		return NewValidationError("name", "is too long")
	}
	if len(r.Description) > MaxListDescriptionLength {
		return NewValidationError("description", "is too long")
	}
	return ValidateCharacterChoice(r.Character)
}

// JoinRequest is a visitor's request to join a list through its share code
type JoinRequest struct {
	ShareCode   ShareCode
	DisplayName string // used only when a new anonymous player is created
	Character   CharacterChoice
}

// Validate checks the request shape before it reaches the join protocol
func (r JoinRequest) Validate() error {
	if strings.TrimSpace(string(r.ShareCode)) == "" {
		return NewValidationError("share_code", "is required")
	}
	return ValidateCharacterChoice(r.Character)
}
