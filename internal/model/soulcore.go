package model

import (
	"sort"
	"time"
)

// SoulCoreID uniquely identifies a tracked soul core
type SoulCoreID string

// CoreState is the progression state of a soul core
type CoreState string

const (
	CoreMissing  CoreState = "missing"
	CoreObtained CoreState = "obtained"
	CoreUnlocked CoreState = "unlocked"
)

// CharacterRef attributes a soul core to the character that obtained it
type CharacterRef struct {
	ID   CharacterID
	Name string
}

// SoulCore is one creature's collectible tracked by a list
type SoulCore struct {
	ID         SoulCoreID
	ListID     ListID
	CreatureID CreatureID
	State      CoreState
	ObtainedBy *CharacterRef // set on obtain, kept through unlock
	AddedBy    PlayerID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Obtain moves the core from missing to obtained and records who obtained it
func (c *SoulCore) Obtain(by CharacterRef, at time.Time) error {
	if c.State != CoreMissing {
		return transitionError(c.State, CoreObtained)
	}
	c.State = CoreObtained
	c.ObtainedBy = &by
	c.UpdatedAt = at
	return nil
}

// Unlock moves the core from obtained to unlocked. Attribution is left untouched.
func (c *SoulCore) Unlock(at time.Time) error {
	if c.State != CoreObtained {
		return transitionError(c.State, CoreUnlocked)
	}
	c.State = CoreUnlocked
	c.UpdatedAt = at
	return nil
}

func (c SoulCore) clone() SoulCore {
	if c.ObtainedBy != nil {
		ref := *c.ObtainedBy
		c.ObtainedBy = &ref
	}
	return c
}

// CharacterProgress is one character's share of the obtained cores
type CharacterProgress struct {
	CharacterID   CharacterID
	CharacterName string
	Obtained      int
}

// Summary aggregates a list's progress
type Summary struct {
	TotalTracked  int
	ObtainedCount int // cores with an attribution, whether or not unlocked since
	UnlockedCount int
	PerCharacter  []CharacterProgress
}

// Summarize derives the progress summary from the list's cores.
// Members without any obtained core are reported with a zero count.
func Summarize(l *List) Summary {
	s := Summary{TotalTracked: len(l.SoulCores)}

	counts := make(map[CharacterID]*CharacterProgress)
	var order []CharacterID
	track := func(id CharacterID, name string) *CharacterProgress {
		if p, ok := counts[id]; ok {
			return p
		}
		p := &CharacterProgress{CharacterID: id, CharacterName: name}
		counts[id] = p
		order = append(order, id)
		return p
	}

	for _, m := range l.Members {
		track(m.CharacterID, m.CharacterName)
	}
	for _, c := range l.SoulCores {
		if c.ObtainedBy != nil {
			s.ObtainedCount++
			track(c.ObtainedBy.ID, c.ObtainedBy.Name).Obtained++
		}
		if c.State == CoreUnlocked {
			s.UnlockedCount++
		}
	}

	s.PerCharacter = make([]CharacterProgress, 0, len(order))
	for _, id := range order {
		s.PerCharacter = append(s.PerCharacter, *counts[id])
	}
	sort.SliceStable(s.PerCharacter, func(i, j int) bool {
		return s.PerCharacter[i].Obtained > s.PerCharacter[j].Obtained
	})
	return s
}
