package list

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mcoot/soulpit/internal/dependencies/clock"
	"github.com/mcoot/soulpit/internal/dependencies/events"
	"github.com/mcoot/soulpit/internal/dependencies/random"
	"github.com/mcoot/soulpit/internal/model"
	"github.com/mcoot/soulpit/internal/services/character"
	"github.com/mcoot/soulpit/internal/storage"
)

const (
	// ShareCodeLength is the length of generated share codes
	ShareCodeLength = 8
	// ShareCodeAlphabet is the characters used in share codes (avoid confusing chars)
	ShareCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// maxShareCodeAttempts bounds retries after share code collisions
	maxShareCodeAttempts = 8
)

// ErrShareCodeExhausted is returned when no free share code was found
var ErrShareCodeExhausted = errors.New("could not allocate a unique share code")

// Snapshot is a list together with its derived progress summary
type Snapshot struct {
	List    *model.List
	Summary model.Summary
}

// SnapshotOf builds the snapshot of a list
func SnapshotOf(l *model.List) Snapshot {
	return Snapshot{List: l, Summary: model.Summarize(l)}
}

// Controller manages lists and their memberships
type Controller struct {
	storage    storage.Storage
	characters *character.Service
	clock      clock.Clock
	random     random.Random
	publisher  events.Publisher
	logger     *slog.Logger
}

// NewController creates a new list Controller
func NewController(
	storage storage.Storage,
	characters *character.Service,
	clock clock.Clock,
	random random.Random,
	publisher events.Publisher,
	logger *slog.Logger,
) *Controller {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Controller{
		storage:    storage,
		characters: characters,
		clock:      clock,
		random:     random,
		publisher:  publisher,
		logger:     logger,
	}
}

// NormalizeShareCode strips whitespace and upper-cases a user supplied code
func NormalizeShareCode(code string) model.ShareCode {
	return model.ShareCode(strings.ToUpper(strings.TrimSpace(code)))
}

// ResolveCharacter returns the character a request refers to. Existing
// characters must belong to the player; new names are registered for it,
// restricted to world when one is given.
func (c *Controller) ResolveCharacter(ctx context.Context, playerID model.PlayerID, choice model.CharacterChoice, world string) (*model.Character, error) {
	switch ch := choice.(type) {
	case model.ByCharacterID:
		existing, err := c.storage.GetCharacter(ctx, ch.ID)
		if err != nil {
			return nil, err
		}
		if existing.PlayerID != playerID {
			return nil, fmt.Errorf("%w: character %s belongs to another player", model.ErrUnauthorized, ch.ID)
		}
		return existing, nil
	case model.ByNewCharacterName:
		var opts []character.RegisterOption
		if world != "" {
			opts = append(opts, character.WithWorld(world))
		}
		return c.characters.RegisterCharacter(ctx, playerID, ch.Name, opts...)
	default:
		return nil, model.ValidateCharacterChoice(choice)
	}
}

// CreateList creates a list owned by ownerID, with the chosen character as its only member
func (c *Controller) CreateList(ctx context.Context, ownerID model.PlayerID, req model.CreateListRequest) (*model.List, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	world := strings.TrimSpace(req.World)

	owner, err := c.ResolveCharacter(ctx, ownerID, req.Character, world)
	if err != nil {
		return nil, err
	}
	if world != "" && !model.SameWorld(world, owner.World) {
		return nil, fmt.Errorf("%w: %s lives on %s, not %s", model.ErrWorldMismatch, owner.Name, owner.World, world)
	}

	now := c.clock.Now()
	list := &model.List{
		ID:          model.ListID(c.random.UUID()),
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		World:       world,
		OwnerID:     ownerID,
		Members: []model.Membership{
			{
				PlayerID:      ownerID,
				CharacterID:   owner.ID,
				CharacterName: owner.Name,
				World:         owner.World,
				Role:          model.RoleOwner,
				JoinedAt:      now,
			},
		},
		SoulCores: []model.SoulCore{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Generate unique share code
	for attempt := 0; ; attempt++ {
		if attempt == maxShareCodeAttempts {
			return nil, ErrShareCodeExhausted
		}
		list.ShareCode = c.newShareCode()
		err := c.storage.CreateList(ctx, list)
		if err == nil {
			break
		}
		if !errors.Is(err, model.ErrShareCodeTaken) {
			return nil, err
		}
	}

	c.logger.Info("list created",
		slog.String("list_id", string(list.ID)),
		slog.String("owner_id", string(ownerID)),
	)
	return list, nil
}

func (c *Controller) newShareCode() model.ShareCode {
	return model.ShareCode(c.random.String(ShareCodeLength, ShareCodeAlphabet))
}

// GetList retrieves a list. Only members may read it.
func (c *Controller) GetList(ctx context.Context, listID model.ListID, playerID model.PlayerID) (*model.List, error) {
	list, err := c.storage.GetList(ctx, listID)
	if err != nil {
		return nil, err
	}
	if !list.IsMember(playerID) {
		return nil, model.ErrUnauthorized
	}
	return list, nil
}

// GetByShareCode retrieves the list behind a share code.
// Unknown codes fail with ErrInvalidShareCode.
func (c *Controller) GetByShareCode(ctx context.Context, code string) (*model.List, error) {
	normalized := NormalizeShareCode(code)
	if normalized == "" {
		return nil, model.ErrInvalidShareCode
	}
	list, err := c.storage.GetListByShareCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, model.ErrListNotFound) {
			return nil, model.ErrInvalidShareCode
		}
		return nil, err
	}
	return list, nil
}

// PreviewByShareCode returns what a visitor may see before joining
func (c *Controller) PreviewByShareCode(ctx context.Context, code string) (model.ListPreview, error) {
	list, err := c.GetByShareCode(ctx, code)
	if err != nil {
		return model.ListPreview{}, err
	}
	return model.PreviewOf(list), nil
}

// ListsForPlayer returns every list the player is a member of
func (c *Controller) ListsForPlayer(ctx context.Context, playerID model.PlayerID) ([]*model.List, error) {
	return c.storage.ListListsForPlayer(ctx, playerID)
}

// JoinList adds the player's character to the list behind code. The
// membership checks and the insert run in one atomic update, in the order
// ListFull, AlreadyMember, CharacterAlreadyMember, WorldMismatch.
func (c *Controller) JoinList(ctx context.Context, code string, playerID model.PlayerID, characterID model.CharacterID) (*model.List, *model.Membership, error) {
	list, err := c.GetByShareCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	ch, err := c.storage.GetCharacter(ctx, characterID)
	if err != nil {
		return nil, nil, err
	}
	if ch.PlayerID != playerID {
		return nil, nil, fmt.Errorf("%w: character %s belongs to another player", model.ErrUnauthorized, characterID)
	}

	membership := model.Membership{
		PlayerID:      playerID,
		CharacterID:   ch.ID,
		CharacterName: ch.Name,
		World:         ch.World,
		Role:          model.RoleMember,
		JoinedAt:      c.clock.Now(),
	}

	updated, err := c.storage.UpdateList(ctx, list.ID, func(l *model.List) error {
		if l.ShareCode != list.ShareCode {
			// rotated since we resolved it
			return model.ErrInvalidShareCode
		}
		if err := CheckJoin(l, playerID, ch); err != nil {
			return err
		}
		l.Members = append(l.Members, membership)
		l.UpdatedAt = membership.JoinedAt
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	c.logger.Info("member joined",
		slog.String("list_id", string(updated.ID)),
		slog.String("player_id", string(playerID)),
		slog.String("character_id", string(ch.ID)),
	)
	c.publish(ctx, model.EventMemberJoined, updated.ID, playerID, memberPayload(membership))
	return updated, updated.GetMember(playerID), nil
}

// CheckJoin evaluates the membership rules for ch joining l, in order
func CheckJoin(l *model.List, playerID model.PlayerID, ch *model.Character) error {
	switch {
	case l.IsFull():
		return model.ErrListFull
	case l.IsMember(playerID):
		return model.ErrAlreadyMember
	case l.MemberByCharacter(ch.ID) != nil:
		return model.ErrCharacterAlreadyMember
	case !l.AcceptsWorld(ch.World):
		return fmt.Errorf("%w: %s lives on %s, list is for %s", model.ErrWorldMismatch, ch.Name, ch.World, l.World)
	}
	return nil
}

// RotateShareCode replaces the list's share code. The previous code stops
// working as soon as the update commits.
func (c *Controller) RotateShareCode(ctx context.Context, listID model.ListID, requester model.PlayerID) (*model.List, error) {
	for attempt := 0; attempt < maxShareCodeAttempts; attempt++ {
		code := c.newShareCode()
		updated, err := c.storage.UpdateList(ctx, listID, func(l *model.List) error {
			if l.OwnerID != requester {
				return model.ErrUnauthorized
			}
			l.ShareCode = code
			l.UpdatedAt = c.clock.Now()
			return nil
		})
		if errors.Is(err, model.ErrShareCodeTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}

		c.logger.Info("share code rotated", slog.String("list_id", string(listID)))
		c.publish(ctx, model.EventShareCodeRotated, listID, requester, nil)
		return updated, nil
	}
	return nil, ErrShareCodeExhausted
}

// LeaveList removes the player's own membership. The owner cannot leave.
func (c *Controller) LeaveList(ctx context.Context, listID model.ListID, playerID model.PlayerID) error {
	var removed model.Membership
	_, err := c.storage.UpdateList(ctx, listID, func(l *model.List) error {
		m, err := removeMember(l, playerID)
		if err != nil {
			return err
		}
		removed = m
		l.UpdatedAt = c.clock.Now()
		return nil
	})
	if err != nil {
		return err
	}

	c.logger.Info("member left",
		slog.String("list_id", string(listID)),
		slog.String("player_id", string(playerID)),
	)
	c.publish(ctx, model.EventMemberLeft, listID, playerID, memberPayload(removed))
	return nil
}

// RemoveMember lets the owner remove another member
func (c *Controller) RemoveMember(ctx context.Context, listID model.ListID, requester, target model.PlayerID) error {
	var removed model.Membership
	_, err := c.storage.UpdateList(ctx, listID, func(l *model.List) error {
		if l.OwnerID != requester {
			return model.ErrUnauthorized
		}
		m, err := removeMember(l, target)
		if err != nil {
			return err
		}
		removed = m
		l.UpdatedAt = c.clock.Now()
		return nil
	})
	if err != nil {
		return err
	}

	c.logger.Info("member removed",
		slog.String("list_id", string(listID)),
		slog.String("player_id", string(target)),
		slog.String("removed_by", string(requester)),
	)
	c.publish(ctx, model.EventMemberLeft, listID, requester, memberPayload(removed))
	return nil
}

func removeMember(l *model.List, playerID model.PlayerID) (model.Membership, error) {
	for i, m := range l.Members {
		if m.PlayerID != playerID {
			continue
		}
		if m.IsOwner() {
			return model.Membership{}, model.ErrOwnerCannotLeave
		}
		l.Members = append(l.Members[:i], l.Members[i+1:]...)
		return m, nil
	}
	return model.Membership{}, model.ErrNotMember
}

func memberPayload(m model.Membership) model.MemberPayload {
	return model.MemberPayload{
		PlayerID:      m.PlayerID,
		CharacterID:   m.CharacterID,
		CharacterName: m.CharacterName,
		Role:          m.Role,
	}
}

func (c *Controller) publish(ctx context.Context, t model.EventType, listID model.ListID, playerID model.PlayerID, payload any) {
	c.publisher.Publish(ctx, model.Event{
		Type:      t,
		Timestamp: c.clock.Now(),
		ListID:    listID,
		PlayerID:  playerID,
		Payload:   payload,
	})
}
