package model

import "time"

// PlayerID uniquely identifies a player across the system
type PlayerID string

// Player is either an anonymous visitor backed by a session token or a
// registered player backed by a credential. Never both at once.
type Player struct {
	ID              PlayerID
	Username        string
	SessionToken    string        // set only while anonymous
	Characters      []CharacterID // creation order
	MainCharacterID CharacterID   // empty until explicitly chosen
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsAnonymous reports whether the player is still backed by a session token
func (p *Player) IsAnonymous() bool {
	return p.SessionToken != ""
}

// OwnsCharacter reports whether id is one of the player's characters
func (p *Player) OwnsCharacter(id CharacterID) bool {
	for _, c := range p.Characters {
		if c == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the player
func (p *Player) Clone() *Player {
	cp := *p
	cp.Characters = append([]CharacterID(nil), p.Characters...)
	return &cp
}

// Credential holds the login data of a registered player.
// Stored separately so password hashes never travel with the player record.
type Credential struct {
	PlayerID     PlayerID
	Username     string // login subject, unique
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UsernameKey returns the uniqueness key for a login username
func UsernameKey(username string) string {
	return fold(username)
}
