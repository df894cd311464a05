package sse

import (
	"encoding/json"
	"time"

	"github.com/mcoot/soulpit/internal/model"
)

type eventMessage struct {
	Type      model.EventType `json:"type"`
	ListID    model.ListID    `json:"list_id"`
	PlayerID  model.PlayerID  `json:"player_id"`
	Timestamp time.Time       `json:"timestamp"`
	Member    *memberData     `json:"member,omitempty"`
	Core      *coreData       `json:"core,omitempty"`
}

type memberData struct {
	PlayerID      model.PlayerID    `json:"player_id"`
	CharacterID   model.CharacterID `json:"character_id"`
	CharacterName string            `json:"character_name"`
	Role          model.MemberRole  `json:"role"`
}

type coreData struct {
	CreatureID     model.CreatureID  `json:"creature_id"`
	State          model.CoreState   `json:"state"`
	ObtainedByID   model.CharacterID `json:"obtained_by_id,omitempty"`
	ObtainedByName string            `json:"obtained_by_name,omitempty"`
}

// encodeEvent renders a list event as the JSON carried in an SSE data field
func encodeEvent(event model.Event) ([]byte, error) {
	msg := eventMessage{
		Type:      event.Type,
		ListID:    event.ListID,
		PlayerID:  event.PlayerID,
		Timestamp: event.Timestamp,
	}
	switch p := event.Payload.(type) {
	case model.MemberPayload:
		msg.Member = &memberData{
			PlayerID:      p.PlayerID,
			CharacterID:   p.CharacterID,
			CharacterName: p.CharacterName,
			Role:          p.Role,
		}
	case model.CorePayload:
		msg.Core = &coreData{CreatureID: p.CreatureID, State: p.State}
		if p.ObtainedBy != nil {
			msg.Core.ObtainedByID = p.ObtainedBy.ID
			msg.Core.ObtainedByName = p.ObtainedBy.Name
		}
	}
	return json.Marshal(msg)
}
