package model

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// CharacterID uniquely identifies a registered game character
type CharacterID string

// Character is an in-game character owned by a player
type Character struct {
	ID        CharacterID
	PlayerID  PlayerID
	Name      string
	World     string
	Level     int
	Vocation  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CharacterInfo is the canonical data returned by the game character lookup
type CharacterInfo struct {
	Name     string
	World    string
	Level    int
	Vocation string
}

// fold case-folds s. Casers carry state, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// NameKey returns the case-insensitive comparison key of a single name
func NameKey(name string) string {
	return fold(name)
}

// CharacterNameKey returns the uniqueness key for a character name within a world.
// Game names are case-insensitive, so "Rook Sample" and "rook sample" collide.
func CharacterNameKey(world, name string) string {
	return fold(world) + "/" + fold(name)
}

// SameWorld compares two world names case-insensitively
func SameWorld(a, b string) bool {
	return fold(a) == fold(b)
}
