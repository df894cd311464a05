// Package ledger tracks soul-core progress on a list. Every transition runs
// inside the list's atomic update, so concurrent changes to the same core
// are decided by the state each update observes.
package ledger

import (
	"context"
	"log/slog"

	"github.com/mcoot/soulpit/internal/dependencies/clock"
	"github.com/mcoot/soulpit/internal/dependencies/events"
	"github.com/mcoot/soulpit/internal/dependencies/random"
	"github.com/mcoot/soulpit/internal/model"
	"github.com/mcoot/soulpit/internal/storage"
)

// Catalog tells which creatures can be tracked
type Catalog interface {
	Get(id model.CreatureID) (model.Creature, error)
}

// Suggester hears about every unlocked core together with the list it
// was unlocked on
type Suggester interface {
	SuggestUnlocked(ctx context.Context, l *model.List, creatureID model.CreatureID) error
}

// Service records soul-core transitions
type Service struct {
	storage   storage.Storage
	catalog   Catalog
	clock     clock.Clock
	random    random.Random
	publisher events.Publisher
	suggester Suggester
	logger    *slog.Logger
}

// New creates a new ledger Service. The suggester may be nil.
func New(storage storage.Storage, catalog Catalog, clock clock.Clock, random random.Random, publisher events.Publisher, suggester Suggester, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		storage:   storage,
		catalog:   catalog,
		clock:     clock,
		random:    random,
		publisher: publisher,
		suggester: suggester,
		logger:    logger,
	}
}

// AddCore starts tracking a creature's soul core as missing
func (s *Service) AddCore(ctx context.Context, listID model.ListID, playerID model.PlayerID, creatureID model.CreatureID) (*model.SoulCore, error) {
	if _, err := s.catalog.Get(creatureID); err != nil {
		return nil, err
	}

	core := s.newCore(listID, playerID, creatureID)
	_, err := s.storage.UpdateList(ctx, listID, func(l *model.List) error {
		if !l.IsMember(playerID) {
			return model.ErrUnauthorized
		}
		if l.Core(creatureID) != nil {
			return model.ErrDuplicateCore
		}
		l.SoulCores = append(l.SoulCores, core)
		l.UpdatedAt = core.CreatedAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("soul core added",
		slog.String("list_id", string(listID)),
		slog.String("creature_id", string(creatureID)),
	)
	s.publish(ctx, model.EventCoreAdded, listID, playerID, &core)
	return &core, nil
}

// MarkObtained moves a core from missing to obtained, attributing it to one
// of the list's member characters. An untracked creature counts as missing.
func (s *Service) MarkObtained(ctx context.Context, listID model.ListID, playerID model.PlayerID, creatureID model.CreatureID, characterID model.CharacterID) (*model.SoulCore, error) {
	if _, err := s.catalog.Get(creatureID); err != nil {
		return nil, err
	}

	fresh := s.newCore(listID, playerID, creatureID)
	var result model.SoulCore
	_, err := s.storage.UpdateList(ctx, listID, func(l *model.List) error {
		if !l.IsMember(playerID) {
			return model.ErrUnauthorized
		}
		m := l.MemberByCharacter(characterID)
		if m == nil {
			return model.NewValidationError("character_id", "must hold a membership on the list")
		}

		core := l.Core(creatureID)
		if core == nil {
			l.SoulCores = append(l.SoulCores, fresh)
			core = &l.SoulCores[len(l.SoulCores)-1]
		}
		now := s.clock.Now()
		if err := core.Obtain(model.CharacterRef{ID: m.CharacterID, Name: m.CharacterName}, now); err != nil {
			return err
		}
		l.UpdatedAt = now
		result = *core
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("soul core obtained",
		slog.String("list_id", string(listID)),
		slog.String("creature_id", string(creatureID)),
		slog.String("character_id", string(characterID)),
	)
	s.publish(ctx, model.EventCoreObtained, listID, playerID, &result)
	return &result, nil
}

// MarkUnlocked moves a core from obtained to unlocked, keeping its attribution.
// Member characters that have not unlocked the creature get it suggested;
// a failure there is logged and does not undo the unlock.
func (s *Service) MarkUnlocked(ctx context.Context, listID model.ListID, playerID model.PlayerID, creatureID model.CreatureID) (*model.SoulCore, error) {
	var result model.SoulCore
	updated, err := s.storage.UpdateList(ctx, listID, func(l *model.List) error {
		if !l.IsMember(playerID) {
			return model.ErrUnauthorized
		}
		core := l.Core(creatureID)
		if core == nil {
			// untracked cores are missing, which cannot unlock
			missing := model.SoulCore{State: model.CoreMissing}
			return missing.Unlock(s.clock.Now())
		}
		now := s.clock.Now()
		if err := core.Unlock(now); err != nil {
			return err
		}
		l.UpdatedAt = now
		result = *core
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("soul core unlocked",
		slog.String("list_id", string(listID)),
		slog.String("creature_id", string(creatureID)),
	)
	s.publish(ctx, model.EventCoreUnlocked, listID, playerID, &result)

	if s.suggester != nil {
		if err := s.suggester.SuggestUnlocked(ctx, updated, creatureID); err != nil {
			s.logger.Warn("failed to suggest unlocked core",
				slog.String("list_id", string(listID)),
				slog.String("creature_id", string(creatureID)),
				slog.Any("error", err),
			)
		}
	}
	return &result, nil
}

// Summary recomputes the list's progress for a member
func (s *Service) Summary(ctx context.Context, listID model.ListID, playerID model.PlayerID) (model.Summary, error) {
	l, err := s.storage.GetList(ctx, listID)
	if err != nil {
		return model.Summary{}, err
	}
	if !l.IsMember(playerID) {
		return model.Summary{}, model.ErrUnauthorized
	}
	return model.Summarize(l), nil
}

func (s *Service) newCore(listID model.ListID, playerID model.PlayerID, creatureID model.CreatureID) model.SoulCore {
	now := s.clock.Now()
	return model.SoulCore{
		ID:         model.SoulCoreID(s.random.UUID()),
		ListID:     listID,
		CreatureID: creatureID,
		State:      model.CoreMissing,
		AddedBy:    playerID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (s *Service) publish(ctx context.Context, t model.EventType, listID model.ListID, playerID model.PlayerID, core *model.SoulCore) {
	s.publisher.Publish(ctx, model.Event{
		Type:      t,
		Timestamp: s.clock.Now(),
		ListID:    listID,
		PlayerID:  playerID,
		Payload: model.CorePayload{
			CreatureID: core.CreatureID,
			State:      core.State,
			ObtainedBy: core.ObtainedBy,
		},
	})
}
