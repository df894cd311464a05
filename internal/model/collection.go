package model

import (
	"slices"
	"time"
)

// Collection is the set of soul cores a character has unlocked in game,
// independent of any list, together with the creatures suggested to it
// after a list it belongs to unlocked them. A creature is never both
// unlocked and suggested.
type Collection struct {
	CharacterID CharacterID
	Unlocked    []CreatureID
	Suggested   []CreatureID
	UpdatedAt   time.Time
}

// NewCollection returns an empty collection for a character
func NewCollection(id CharacterID) *Collection {
	return &Collection{CharacterID: id}
}

// Has reports whether the creature is unlocked
func (c *Collection) Has(id CreatureID) bool {
	return slices.Contains(c.Unlocked, id)
}

// IsSuggested reports whether the creature awaits a decision
func (c *Collection) IsSuggested(id CreatureID) bool {
	return slices.Contains(c.Suggested, id)
}

// Add unlocks a creature, settling any pending suggestion for it.
// It reports false when the creature was already unlocked.
func (c *Collection) Add(id CreatureID, at time.Time) bool {
	if c.Has(id) {
		return false
	}
	c.Suggested = remove(c.Suggested, id)
	c.Unlocked = append(c.Unlocked, id)
	c.UpdatedAt = at
	return true
}

// Remove drops an unlocked creature. It reports false when it was not unlocked.
func (c *Collection) Remove(id CreatureID, at time.Time) bool {
	if !c.Has(id) {
		return false
	}
	c.Unlocked = remove(c.Unlocked, id)
	c.UpdatedAt = at
	return true
}

// Suggest queues a creature for the owner to confirm. Creatures already
// unlocked or already suggested are left alone and report false.
func (c *Collection) Suggest(id CreatureID, at time.Time) bool {
	if c.Has(id) || c.IsSuggested(id) {
		return false
	}
	c.Suggested = append(c.Suggested, id)
	c.UpdatedAt = at
	return true
}

// Accept turns a suggestion into an unlocked creature
func (c *Collection) Accept(id CreatureID, at time.Time) error {
	if !c.IsSuggested(id) {
		return ErrSuggestionNotFound
	}
	c.Add(id, at)
	return nil
}

// Dismiss discards a suggestion without unlocking the creature
func (c *Collection) Dismiss(id CreatureID, at time.Time) error {
	if !c.IsSuggested(id) {
		return ErrSuggestionNotFound
	}
	c.Suggested = remove(c.Suggested, id)
	c.UpdatedAt = at
	return nil
}

// Clone returns a deep copy of the collection
func (c *Collection) Clone() *Collection {
	cp := *c
	cp.Unlocked = slices.Clone(c.Unlocked)
	cp.Suggested = slices.Clone(c.Suggested)
	return &cp
}

func remove(ids []CreatureID, id CreatureID) []CreatureID {
	return slices.DeleteFunc(ids, func(x CreatureID) bool { return x == id })
}

// CollectionScore ranks one character by the size of its collection
type CollectionScore struct {
	CharacterID CharacterID
	Name        string
	World       string
	Count       int
}
