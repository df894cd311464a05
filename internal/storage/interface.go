package storage

import (
	"context"

	"github.com/mcoot/soulpit/internal/model"
)

// PlayerUpdateFunc mutates a player inside an atomic update.
// Only MainCharacterID and UpdatedAt are persisted; identity fields change
// through MergeCredential and character lists through the character operations.
type PlayerUpdateFunc func(p *model.Player) error

// CharacterUpdateFunc mutates a character inside an atomic update.
// Only Level, Vocation and UpdatedAt are persisted.
type CharacterUpdateFunc func(c *model.Character) error

// CollectionUpdateFunc mutates a character's collection inside an atomic update
type CollectionUpdateFunc func(c *model.Collection) error

// ListUpdateFunc mutates a list inside an atomic update. Returning an error
// aborts the update and the error is returned unchanged to the caller.
// The function may be called more than once when a backend retries on conflict,
// so it must only depend on the list it is given.
type ListUpdateFunc func(l *model.List) error

// Storage defines the interface for data persistence.
//
// Every method is safe for concurrent use. Returned values are copies;
// mutating them has no effect on stored state.
type Storage interface {
	// Player operations
	CreatePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	GetPlayerBySessionToken(ctx context.Context, token string) (*model.Player, error)
	UpdatePlayer(ctx context.Context, id model.PlayerID, fn PlayerUpdateFunc) (*model.Player, error)

	// Credential operations

	// CreateRegisteredPlayer inserts a player together with its credential.
	// Fails with ErrCredentialTaken when the username is registered.
	CreateRegisteredPlayer(ctx context.Context, player *model.Player, cred *model.Credential) error
	// MergeCredential attaches a credential to an anonymous player in place,
	// clearing its session token. Fails with ErrCredentialTaken when the
	// username is registered and ErrNotAnonymous when the player already has one.
	MergeCredential(ctx context.Context, playerID model.PlayerID, cred *model.Credential) (*model.Player, error)
	GetCredentialByUsername(ctx context.Context, username string) (*model.Credential, error)

	// Character operations

	// CreateCharacter inserts a character and appends it to its owner's
	// character list. Fails with ErrCharacterExists when the name is taken in that world.
	CreateCharacter(ctx context.Context, character *model.Character) error
	GetCharacter(ctx context.Context, id model.CharacterID) (*model.Character, error)
	GetCharacterByName(ctx context.Context, world, name string) (*model.Character, error)
	ListCharactersByPlayer(ctx context.Context, playerID model.PlayerID) ([]*model.Character, error)
	UpdateCharacter(ctx context.Context, id model.CharacterID, fn CharacterUpdateFunc) (*model.Character, error)
	// DeleteCharacter fails with ErrCharacterInUse while any membership references it.
	// The character's collection goes with it.
	DeleteCharacter(ctx context.Context, id model.CharacterID) error

	// Collection operations

	// GetCollection returns the character's collection, empty when nothing was
	// recorded yet. Fails with ErrCharacterNotFound for unknown characters.
	GetCollection(ctx context.Context, id model.CharacterID) (*model.Collection, error)
	UpdateCollection(ctx context.Context, id model.CharacterID, fn CollectionUpdateFunc) (*model.Collection, error)
	// TopCollections ranks characters with at least one unlocked creature by
	// count, highest first, ties broken by character ID. It also returns the
	// number of ranked characters.
	TopCollections(ctx context.Context, limit, offset int) ([]model.CollectionScore, int, error)

	// List operations

	// CreateList fails with ErrShareCodeTaken when the share code is in use
	CreateList(ctx context.Context, list *model.List) error
	GetList(ctx context.Context, id model.ListID) (*model.List, error)
	GetListByShareCode(ctx context.Context, code model.ShareCode) (*model.List, error)
	// UpdateList applies fn to the current list and persists the result atomically.
	// A changed share code replaces the old index entry in the same transaction.
	// Characters of added memberships must still exist (ErrCharacterNotFound).
	// The result must satisfy model.List.CheckInvariants (ErrIntegrity).
	UpdateList(ctx context.Context, id model.ListID, fn ListUpdateFunc) (*model.List, error)
	ListListsForPlayer(ctx context.Context, playerID model.PlayerID) ([]*model.List, error)

	// Creature catalog operations
	GetCreatures(ctx context.Context) ([]model.Creature, error)
	SaveCreatures(ctx context.Context, creatures []model.Creature) error
}
