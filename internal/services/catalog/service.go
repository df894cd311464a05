package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/mcoot/soulpit/internal/model"
	"github.com/mcoot/soulpit/internal/storage"
)

//go:embed creatures.yaml
var defaultCatalog []byte

// Service provides the read-only creature catalog
type Service struct {
	storage storage.Storage

	mu        sync.RWMutex
	byID      map[model.CreatureID]model.Creature
	creatures []model.Creature
	loaded    bool
}

// New creates a new catalog Service
func New(storage storage.Storage) *Service {
	return &Service{
		storage: storage,
		byID:    make(map[model.CreatureID]model.Creature),
	}
}

type catalogFile struct {
	Creatures []model.Creature `yaml:"creatures"`
}

// Parse decodes a YAML creature catalog
func Parse(data []byte) ([]model.Creature, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse creature catalog: %w", err)
	}
	return file.Creatures, nil
}

// LoadDefault loads the catalog bundled with the binary and saves it to storage
func (s *Service) LoadDefault(ctx context.Context) error {
	creatures, err := Parse(defaultCatalog)
	if err != nil {
		return err
	}
	return s.loadAndSave(ctx, creatures)
}

// LoadFromFile loads a YAML catalog from disk and saves it to storage
func (s *Service) LoadFromFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	creatures, err := Parse(data)
	if err != nil {
		return err
	}
	return s.loadAndSave(ctx, creatures)
}

// LoadFromStorage loads a catalog saved by an earlier run
func (s *Service) LoadFromStorage(ctx context.Context) error {
	creatures, err := s.storage.GetCreatures(ctx)
	if err != nil {
		return err
	}
	if len(creatures) == 0 {
		return model.ErrCatalogNotLoaded
	}
	return s.LoadCreatures(creatures)
}

// LoadCreatures replaces the catalog in memory (useful for testing)
func (s *Service) LoadCreatures(creatures []model.Creature) error {
	byID := make(map[model.CreatureID]model.Creature, len(creatures))
	ordered := make([]model.Creature, 0, len(creatures))
	for i, c := range creatures {
		c.ID = model.CreatureID(strings.TrimSpace(string(c.ID)))
		if c.ID == "" {
			return fmt.Errorf("creature %d has no id", i)
		}
		if _, dup := byID[c.ID]; dup {
			return fmt.Errorf("creature %s listed twice", c.ID)
		}
		byID[c.ID] = c
		ordered = append(ordered, c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = byID
	s.creatures = ordered
	s.loaded = true
	return nil
}

func (s *Service) loadAndSave(ctx context.Context, creatures []model.Creature) error {
	if err := s.LoadCreatures(creatures); err != nil {
		return err
	}
	return s.storage.SaveCreatures(ctx, s.All())
}

// IsValid reports whether the creature exists in the catalog
func (s *Service) IsValid(id model.CreatureID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[id]
	return ok
}

// Get returns a creature by ID
func (s *Service) Get(id model.CreatureID) (model.Creature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return model.Creature{}, model.ErrCatalogNotLoaded
	}
	c, ok := s.byID[id]
	if !ok {
		return model.Creature{}, model.NewValidationError("creature_id", fmt.Sprintf("unknown creature %q", id))
	}
	return c, nil
}

// All returns every creature in catalog order
func (s *Service) All() []model.Creature {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Creature(nil), s.creatures...)
}

// IsLoaded returns whether the catalog has been loaded
func (s *Service) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Count returns the number of creatures in the catalog
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.creatures)
}
