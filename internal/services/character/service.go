// Package character registers players' game characters after checking them
// against the external character lookup.
package character

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mcoot/soulpit/internal/dependencies/clock"
	"github.com/mcoot/soulpit/internal/dependencies/random"
	"github.com/mcoot/soulpit/internal/model"
	"github.com/mcoot/soulpit/internal/storage"
)

// Lookup resolves a character name to its canonical details.
// Unknown names fail with model.ErrCharacterNotFound.
type Lookup interface {
	Lookup(ctx context.Context, name string) (model.CharacterInfo, error)
}

// Config holds configuration for the character registry
type Config struct {
	LookupTimeout time.Duration
	NamePolicy    NamePolicy
}

// DefaultConfig returns default registry configuration
func DefaultConfig() Config {
	return Config{
		LookupTimeout: 5 * time.Second,
		NamePolicy:    DefaultNamePolicy,
	}
}

// Service manages registered characters
type Service struct {
	storage storage.Storage
	lookup  Lookup
	clock   clock.Clock
	random  random.Random
	config  Config
	logger  *slog.Logger
	flight  singleflight.Group
}

// New creates a new character Service
func New(storage storage.Storage, lookup Lookup, clock clock.Clock, random random.Random, cfg Config, logger *slog.Logger) *Service {
	if cfg.LookupTimeout == 0 {
		cfg.LookupTimeout = DefaultConfig().LookupTimeout
	}
	if cfg.NamePolicy == (NamePolicy{}) {
		cfg.NamePolicy = DefaultNamePolicy
	}
	return &Service{
		storage: storage,
		lookup:  lookup,
		clock:   clock,
		random:  random,
		config:  cfg,
		logger:  logger,
	}
}

type registerOptions struct {
	world string
}

// RegisterOption adjusts a single registration
type RegisterOption func(*registerOptions)

// WithWorld requires the character to live on world
func WithWorld(world string) RegisterOption {
	return func(o *registerOptions) {
		o.world = strings.TrimSpace(world)
	}
}

// RegisterCharacter verifies name with the external lookup and records it for
// the player. Registering a character the player already owns returns the
// existing record.
func (s *Service) RegisterCharacter(ctx context.Context, playerID model.PlayerID, name string, opts ...RegisterOption) (*model.Character, error) {
	info, err := s.Verify(ctx, name, opts...)
	if err != nil {
		return nil, err
	}
	return s.Record(ctx, playerID, info)
}

// Verify checks name against the naming policy and the external lookup and
// returns its canonical details. Nothing is stored.
func (s *Service) Verify(ctx context.Context, name string, opts ...RegisterOption) (model.CharacterInfo, error) {
	var o registerOptions
	for _, opt := range opts {
		opt(&o)
	}

	name = strings.TrimSpace(name)
	if err := s.config.NamePolicy.Validate(name); err != nil {
		return model.CharacterInfo{}, err
	}

	info, err := s.fetch(ctx, name)
	if err != nil {
		return model.CharacterInfo{}, err
	}
	if o.world != "" && !model.SameWorld(o.world, info.World) {
		return model.CharacterInfo{}, fmt.Errorf("%w: %s lives on %s, not %s", model.ErrWorldMismatch, info.Name, info.World, o.world)
	}
	return info, nil
}

// CheckAvailable fails when info is already registered to someone other than
// playerID. An empty playerID matches no one.
func (s *Service) CheckAvailable(ctx context.Context, playerID model.PlayerID, info model.CharacterInfo) error {
	existing, err := s.storage.GetCharacterByName(ctx, info.World, info.Name)
	if errors.Is(err, model.ErrCharacterNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if playerID == "" || existing.PlayerID != playerID {
		return ownedElsewhere(existing.Name)
	}
	return nil
}

// Record stores a verified character for the player, or returns the stored
// one when the player already owns it.
func (s *Service) Record(ctx context.Context, playerID model.PlayerID, info model.CharacterInfo) (*model.Character, error) {
	if existing, err := s.owned(ctx, playerID, info); err == nil || !errors.Is(err, model.ErrCharacterNotFound) {
		return existing, err
	}

	now := s.clock.Now()
	character := &model.Character{
		ID:        model.CharacterID(s.random.UUID()),
		PlayerID:  playerID,
		Name:      info.Name,
		World:     info.World,
		Level:     info.Level,
		Vocation:  info.Vocation,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.storage.CreateCharacter(ctx, character); err != nil {
		if errors.Is(err, model.ErrCharacterExists) {
			// lost a race with another registration of the same name
			return s.owned(ctx, playerID, info)
		}
		return nil, err
	}

	s.logger.Info("character registered",
		slog.String("character_id", string(character.ID)),
		slog.String("player_id", string(playerID)),
		slog.String("world", character.World),
	)
	return character, nil
}

// owned returns the stored character matching info if playerID owns it
func (s *Service) owned(ctx context.Context, playerID model.PlayerID, info model.CharacterInfo) (*model.Character, error) {
	existing, err := s.storage.GetCharacterByName(ctx, info.World, info.Name)
	if err != nil {
		return nil, err
	}
	if existing.PlayerID != playerID {
		return nil, ownedElsewhere(existing.Name)
	}
	return existing, nil
}

// ownedElsewhere reports a name another player registered first. The first
// registration holds the name until that player removes the character.
func ownedElsewhere(name string) error {
	return fmt.Errorf("%w: %w: %s", model.ErrUnauthorized, model.ErrCharacterOwned, name)
}

// fetch performs the external lookup. Concurrent lookups of the same name
// share a single upstream call bounded by LookupTimeout.
func (s *Service) fetch(ctx context.Context, name string) (model.CharacterInfo, error) {
	ch := s.flight.DoChan(model.NameKey(name), func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.LookupTimeout)
		defer cancel()
		return s.lookup.Lookup(lctx, name)
	})

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return model.CharacterInfo{}, fmt.Errorf("%w: %s", model.ErrLookupTimeout, name)
		}
		return model.CharacterInfo{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			if errors.Is(res.Err, context.DeadlineExceeded) {
				return model.CharacterInfo{}, fmt.Errorf("%w: %s", model.ErrLookupTimeout, name)
			}
			return model.CharacterInfo{}, res.Err
		}
		return res.Val.(model.CharacterInfo), nil
	}
}

// RemoveCharacter deletes one of the player's characters. Characters backing
// a list membership cannot be removed.
func (s *Service) RemoveCharacter(ctx context.Context, playerID model.PlayerID, id model.CharacterID) error {
	character, err := s.storage.GetCharacter(ctx, id)
	if err != nil {
		return err
	}
	if character.PlayerID != playerID {
		return model.ErrUnauthorized
	}
	if err := s.storage.DeleteCharacter(ctx, id); err != nil {
		return err
	}

	s.logger.Info("character removed",
		slog.String("character_id", string(id)),
		slog.String("player_id", string(playerID)),
	)
	return nil
}

// SyncCharacter refreshes level and vocation from the external lookup
func (s *Service) SyncCharacter(ctx context.Context, id model.CharacterID) (*model.Character, error) {
	character, err := s.storage.GetCharacter(ctx, id)
	if err != nil {
		return nil, err
	}
	info, err := s.fetch(ctx, character.Name)
	if err != nil {
		return nil, err
	}
	return s.storage.UpdateCharacter(ctx, id, func(c *model.Character) error {
		c.Level = info.Level
		c.Vocation = info.Vocation
		c.UpdatedAt = s.clock.Now()
		return nil
	})
}

// SetMainCharacter marks one of the player's characters as their main.
// An empty id clears the designation.
func (s *Service) SetMainCharacter(ctx context.Context, playerID model.PlayerID, id model.CharacterID) (*model.Player, error) {
	return s.storage.UpdatePlayer(ctx, playerID, func(p *model.Player) error {
		if id != "" && !p.OwnsCharacter(id) {
			return model.ErrUnauthorized
		}
		p.MainCharacterID = id
		p.UpdatedAt = s.clock.Now()
		return nil
	})
}

// ListCharacters returns the player's characters in registration order
func (s *Service) ListCharacters(ctx context.Context, playerID model.PlayerID) ([]*model.Character, error) {
	return s.storage.ListCharactersByPlayer(ctx, playerID)
}

// GetCharacter retrieves a character by ID
func (s *Service) GetCharacter(ctx context.Context, id model.CharacterID) (*model.Character, error) {
	return s.storage.GetCharacter(ctx, id)
}
