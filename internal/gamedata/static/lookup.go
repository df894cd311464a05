// Package static is an in-memory character lookup for development and tests.
package static

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcoot/soulpit/internal/model"
)

// Lookup serves character details from a fixed set
type Lookup struct {
	mu         sync.RWMutex
	characters map[string]model.CharacterInfo
	delay      time.Duration
	calls      atomic.Int64
}

// New creates a Lookup that knows the given characters
func New(characters ...model.CharacterInfo) *Lookup {
	l := &Lookup{characters: make(map[string]model.CharacterInfo)}
	for _, c := range characters {
		l.Add(c)
	}
	return l
}

// Add registers or replaces a character
func (l *Lookup) Add(info model.CharacterInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.characters[model.NameKey(info.Name)] = info
}

// SetDelay makes every lookup wait before answering
func (l *Lookup) SetDelay(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.delay = d
}

// Calls returns how many lookups were made
func (l *Lookup) Calls() int {
	return int(l.calls.Load())
}

// Lookup returns the stored details for name, matched case-insensitively
func (l *Lookup) Lookup(ctx context.Context, name string) (model.CharacterInfo, error) {
	l.calls.Add(1)

	l.mu.RLock()
	delay := l.delay
	info, ok := l.characters[model.NameKey(name)]
	l.mu.RUnlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return model.CharacterInfo{}, ctx.Err()
		case <-timer.C:
		}
	}

	if !ok {
		return model.CharacterInfo{}, fmt.Errorf("%w: %s", model.ErrCharacterNotFound, name)
	}
	return info, nil
}

// Sample returns a small roster spread over two worlds
func Sample() *Lookup {
	return New(
		model.CharacterInfo{Name: "Rook Sample", World: "Antica", Level: 8, Vocation: "None"},
		model.CharacterInfo{Name: "Knight Sample", World: "Antica", Level: 120, Vocation: "Elite Knight"},
		model.CharacterInfo{Name: "Druid Sample", World: "Antica", Level: 95, Vocation: "Elder Druid"},
		model.CharacterInfo{Name: "Paladin Sample", World: "Antica", Level: 210, Vocation: "Royal Paladin"},
		model.CharacterInfo{Name: "Sorcerer Sample", World: "Antica", Level: 150, Vocation: "Master Sorcerer"},
		model.CharacterInfo{Name: "Monk Sample", World: "Antica", Level: 60, Vocation: "Exalted Monk"},
		model.CharacterInfo{Name: "Wanderer Sample", World: "Secura", Level: 45, Vocation: "Knight"},
	)
}
