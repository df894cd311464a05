// Package collection keeps each character's own record of unlocked soul
// cores. Unlocks on a shared list turn into suggestions for the other member
// characters, which their owners accept or dismiss.
package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/mcoot/soulpit/internal/dependencies/clock"
	"github.com/mcoot/soulpit/internal/model"
	"github.com/mcoot/soulpit/internal/storage"
)

const (
	// HighscorePageSize is the number of characters on one highscore page
	HighscorePageSize = 20
	// HighscoreMaxPages bounds how deep the highscores can be paged
	HighscoreMaxPages = 50
)

// Catalog tells which creatures can be collected
type Catalog interface {
	Get(id model.CreatureID) (model.Creature, error)
}

// Pending is one character's open suggestions
type Pending struct {
	Character *model.Character
	Creatures []model.CreatureID
}

// Highscores is one page of the collection ranking
type Highscores struct {
	Scores       []model.CollectionScore
	Page         int
	TotalPages   int
	TotalRecords int
	PageSize     int
}

// Service manages character collections
type Service struct {
	storage storage.Storage
	catalog Catalog
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a new collection Service
func New(storage storage.Storage, catalog Catalog, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		catalog: catalog,
		clock:   clock,
		logger:  logger,
	}
}

// Get returns a character's collection. Collections are visible to every player.
func (s *Service) Get(ctx context.Context, characterID model.CharacterID) (*model.Collection, error) {
	return s.storage.GetCollection(ctx, characterID)
}

// Add records a creature as unlocked by one of the player's characters.
// Adding a creature that is already unlocked changes nothing.
func (s *Service) Add(ctx context.Context, playerID model.PlayerID, characterID model.CharacterID, creatureID model.CreatureID) (*model.Collection, error) {
	if _, err := s.catalog.Get(creatureID); err != nil {
		return nil, err
	}
	if err := s.checkOwner(ctx, playerID, characterID); err != nil {
		return nil, err
	}
	return s.update(ctx, characterID, "collection entry added", creatureID, func(c *model.Collection) error {
		c.Add(creatureID, s.clock.Now())
		return nil
	})
}

// Remove drops a creature from one of the player's characters
func (s *Service) Remove(ctx context.Context, playerID model.PlayerID, characterID model.CharacterID, creatureID model.CreatureID) (*model.Collection, error) {
	if err := s.checkOwner(ctx, playerID, characterID); err != nil {
		return nil, err
	}
	return s.update(ctx, characterID, "collection entry removed", creatureID, func(c *model.Collection) error {
		if !c.Remove(creatureID, s.clock.Now()) {
			return fmt.Errorf("%w: %s is not in the collection", model.ErrCoreNotFound, creatureID)
		}
		return nil
	})
}

// Suggestions lists the creatures waiting for the owner's decision
func (s *Service) Suggestions(ctx context.Context, playerID model.PlayerID, characterID model.CharacterID) ([]model.CreatureID, error) {
	if err := s.checkOwner(ctx, playerID, characterID); err != nil {
		return nil, err
	}
	c, err := s.storage.GetCollection(ctx, characterID)
	if err != nil {
		return nil, err
	}
	return c.Suggested, nil
}

// Accept moves a suggested creature into the collection
func (s *Service) Accept(ctx context.Context, playerID model.PlayerID, characterID model.CharacterID, creatureID model.CreatureID) (*model.Collection, error) {
	if err := s.checkOwner(ctx, playerID, characterID); err != nil {
		return nil, err
	}
	return s.update(ctx, characterID, "suggestion accepted", creatureID, func(c *model.Collection) error {
		return c.Accept(creatureID, s.clock.Now())
	})
}

// Dismiss discards a suggestion
func (s *Service) Dismiss(ctx context.Context, playerID model.PlayerID, characterID model.CharacterID, creatureID model.CreatureID) (*model.Collection, error) {
	if err := s.checkOwner(ctx, playerID, characterID); err != nil {
		return nil, err
	}
	return s.update(ctx, characterID, "suggestion dismissed", creatureID, func(c *model.Collection) error {
		return c.Dismiss(creatureID, s.clock.Now())
	})
}

// Pending returns the open suggestions across the player's characters,
// skipping characters with none
func (s *Service) Pending(ctx context.Context, playerID model.PlayerID) ([]Pending, error) {
	chars, err := s.storage.ListCharactersByPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	var result []Pending
	for _, ch := range chars {
		c, err := s.storage.GetCollection(ctx, ch.ID)
		if errors.Is(err, model.ErrCharacterNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(c.Suggested) > 0 {
			result = append(result, Pending{Character: ch, Creatures: c.Suggested})
		}
	}
	return result, nil
}

// SuggestUnlocked offers a creature unlocked on l to every member character
// that has not unlocked it yet. Every member is attempted; the failures are
// returned together.
func (s *Service) SuggestUnlocked(ctx context.Context, l *model.List, creatureID model.CreatureID) error {
	var (
		errs    []error
		created int
	)
	for _, m := range l.Members {
		var added bool
		_, err := s.storage.UpdateCollection(ctx, m.CharacterID, func(c *model.Collection) error {
			added = c.Suggest(creatureID, s.clock.Now())
			return nil
		})
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("suggest to %s: %w", m.CharacterID, err))
		case added:
			created++
		}
	}

	s.logger.Info("suggestions created",
		slog.String("list_id", string(l.ID)),
		slog.String("creature_id", string(creatureID)),
		slog.Int("count", created),
	)
	return errors.Join(errs...)
}

// Highscores returns one page of characters ranked by collection size.
// Pages count from 1 and stop at HighscoreMaxPages.
func (s *Service) Highscores(ctx context.Context, page int) (*Highscores, error) {
	if page < 1 || page > HighscoreMaxPages {
		return nil, model.NewValidationError("page", "must be between 1 and "+strconv.Itoa(HighscoreMaxPages))
	}
	scores, total, err := s.storage.TopCollections(ctx, HighscorePageSize, (page-1)*HighscorePageSize)
	if err != nil {
		return nil, err
	}
	pages := (total + HighscorePageSize - 1) / HighscorePageSize
	return &Highscores{
		Scores:       scores,
		Page:         page,
		TotalPages:   min(pages, HighscoreMaxPages),
		TotalRecords: total,
		PageSize:     HighscorePageSize,
	}, nil
}

func (s *Service) checkOwner(ctx context.Context, playerID model.PlayerID, characterID model.CharacterID) error {
	ch, err := s.storage.GetCharacter(ctx, characterID)
	if err != nil {
		return err
	}
	if ch.PlayerID != playerID {
		return model.ErrUnauthorized
	}
	return nil
}

func (s *Service) update(ctx context.Context, characterID model.CharacterID, msg string, creatureID model.CreatureID, fn storage.CollectionUpdateFunc) (*model.Collection, error) {
	c, err := s.storage.UpdateCollection(ctx, characterID, fn)
	if err != nil {
		return nil, err
	}
	s.logger.Info(msg,
		slog.String("character_id", string(characterID)),
		slog.String("creature_id", string(creatureID)),
	)
	return c, nil
}
