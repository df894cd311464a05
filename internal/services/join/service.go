// Package join handles a visitor following a list's share code: it resolves
// or creates the visitor's identity and character, then joins the list.
package join

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/soulpit/internal/model"
	"github.com/mcoot/soulpit/internal/services/character"
	"github.com/mcoot/soulpit/internal/services/identity"
	"github.com/mcoot/soulpit/internal/services/list"
)

// Result describes a completed join
type Result struct {
	Player *model.Player
	// SessionToken is set when the join created a new anonymous player.
	// The caller must hand it back to the visitor.
	SessionToken string
	Membership   *model.Membership
	Snapshot     list.Snapshot
}

// Service runs the share-code join flow
type Service struct {
	resolver   *identity.Resolver
	lists      *list.Controller
	characters *character.Service
	logger     *slog.Logger
}

// New creates a new join Service
func New(resolver *identity.Resolver, lists *list.Controller, characters *character.Service, logger *slog.Logger) *Service {
	return &Service{
		resolver:   resolver,
		lists:      lists,
		characters: characters,
		logger:     logger,
	}
}

// Join adds the caller to the list behind req.ShareCode. A caller without an
// identity gets a new anonymous player, created only once every check that
// does not depend on the player has passed. Nothing is stored for a rejected
// request apart from races with concurrent joins.
func (s *Service) Join(ctx context.Context, creds identity.Credentials, req model.JoinRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	player, err := s.resolver.Resolve(ctx, creds)
	if err != nil && !errors.Is(err, model.ErrNoIdentity) {
		return nil, err
	}

	target, err := s.lists.GetByShareCode(ctx, string(req.ShareCode))
	if err != nil {
		return nil, err
	}

	// Same order as list.CheckJoin, ahead of any lookup or registration
	switch {
	case target.IsFull():
		return nil, model.ErrListFull
	case player != nil && target.IsMember(player.ID):
		return nil, model.ErrAlreadyMember
	}

	var verified *model.CharacterInfo
	switch choice := req.Character.(type) {
	case model.ByCharacterID:
		if player == nil {
			return nil, fmt.Errorf("%w: an existing character needs an identity", model.ErrUnauthorized)
		}
	case model.ByNewCharacterName:
		info, err := s.characters.Verify(ctx, choice.Name, character.WithWorld(target.World))
		if err != nil {
			return nil, err
		}
		var owner model.PlayerID
		if player != nil {
			owner = player.ID
		}
		if err := s.characters.CheckAvailable(ctx, owner, info); err != nil {
			return nil, err
		}
		verified = &info
	}

	result := &Result{}
	if player == nil {
		player, err = s.resolver.CreateAnonymous(ctx, req.DisplayName)
		if err != nil {
			return nil, err
		}
		result.SessionToken = player.SessionToken
	}

	var ch *model.Character
	if verified != nil {
		ch, err = s.characters.Record(ctx, player.ID, *verified)
	} else {
		ch, err = s.lists.ResolveCharacter(ctx, player.ID, req.Character, target.World)
	}
	if err != nil {
		return nil, err
	}

	updated, membership, err := s.lists.JoinList(ctx, string(req.ShareCode), player.ID, ch.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("joined via share code",
		slog.String("list_id", string(updated.ID)),
		slog.String("player_id", string(player.ID)),
		slog.Bool("new_player", result.SessionToken != ""),
	)

	result.Player = player
	result.Membership = membership
	result.Snapshot = list.SnapshotOf(updated)
	return result, nil
}
