package request

import (
	"strings"

	"github.com/mcoot/soulpit/internal/model"
)

// CreateAnonymousRequest is the request body for creating an anonymous player
type CreateAnonymousRequest struct {
	Username string `json:"username"`
}

// RegisterRequest is the request body for registering a player.
// The caller's X-Session-Token, if any, is merged into the new account.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username          string `json:"username"`
	Password          string `json:"password"`
	MergeSessionToken string `json:"merge_session_token,omitempty"`
}

// SetMainCharacterRequest selects the player's main character; empty clears it
type SetMainCharacterRequest struct {
	CharacterID string `json:"character_id"`
}

// RegisterCharacterRequest is the request body for registering a character
type RegisterCharacterRequest struct {
	Name  string `json:"name"`
	World string `json:"world,omitempty"`
}

// CharacterSelection picks an existing character or names a new one
type CharacterSelection struct {
	CharacterID   string `json:"character_id,omitempty"`
	CharacterName string `json:"character_name,omitempty"`
}

// Choice converts the selection into a model.CharacterChoice.
// Setting both fields is rejected; setting neither is left to model validation.
func (s CharacterSelection) Choice() (model.CharacterChoice, error) {
	id := strings.TrimSpace(s.CharacterID)
	name := strings.TrimSpace(s.CharacterName)
	switch {
	case id != "" && name != "":
		return nil, model.NewValidationError("character", "set either character_id or character_name, not both")
	case id != "":
		return model.ByCharacterID{ID: model.CharacterID(id)}, nil
	case name != "":
		return model.ByNewCharacterName{Name: name}, nil
	default:
		return nil, nil
	}
}

// CreateListRequest is the request body for creating a list
type CreateListRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	World       string `json:"world,omitempty"`
	CharacterSelection
}

// JoinRequest is the request body for joining a list by share code
type JoinRequest struct {
	DisplayName string `json:"display_name,omitempty"`
	CharacterSelection
}

// AddCoreRequest is the request body for tracking a creature
type AddCoreRequest struct {
	CreatureID string `json:"creature_id"`
}

// ObtainCoreRequest names the member character credited with a core
type ObtainCoreRequest struct {
	CharacterID string `json:"character_id"`
}

// CreatureRequest names a creature in a character's collection
type CreatureRequest struct {
	CreatureID string `json:"creature_id"`
}
