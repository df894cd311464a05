package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/mcoot/soulpit/internal/dependencies/clock"
	"github.com/mcoot/soulpit/internal/dependencies/random"
	"github.com/mcoot/soulpit/internal/model"
	"github.com/mcoot/soulpit/internal/storage"
)

const (
	DefaultAnonymousName = "Adventurer"
	MaxUsernameLength    = 32
)

// Credentials are the identity tokens a request carries. Both may be set.
type Credentials struct {
	BearerToken  string
	SessionToken string
}

// IsEmpty reports whether the request carries no identity at all
func (c Credentials) IsEmpty() bool {
	return c.BearerToken == "" && c.SessionToken == ""
}

// CredentialVerifier validates bearer credentials issued to registered players
type CredentialVerifier interface {
	VerifyBearer(ctx context.Context, token string) (model.PlayerID, error)
}

// Resolver maps request credentials to players. It never creates players
// implicitly; CreateAnonymous is the only creation path.
type Resolver struct {
	storage  storage.Storage
	verifier CredentialVerifier
	clock    clock.Clock
	random   random.Random
	logger   *slog.Logger
}

// New creates a new identity Resolver
func New(storage storage.Storage, verifier CredentialVerifier, clock clock.Clock, random random.Random, logger *slog.Logger) *Resolver {
	return &Resolver{
		storage:  storage,
		verifier: verifier,
		clock:    clock,
		random:   random,
		logger:   logger,
	}
}

// Resolve returns the player behind the credentials.
// A valid bearer credential always wins over a session token; an invalid one
// fails with ErrUnauthorized rather than falling back to the session.
func (r *Resolver) Resolve(ctx context.Context, creds Credentials) (*model.Player, error) {
	if creds.BearerToken != "" {
		playerID, err := r.verifier.VerifyBearer(ctx, creds.BearerToken)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrUnauthorized, err)
		}
		player, err := r.storage.GetPlayer(ctx, playerID)
		if errors.Is(err, model.ErrPlayerNotFound) {
			return nil, fmt.Errorf("%w: bearer subject no longer exists", model.ErrUnauthorized)
		}
		return player, err
	}

	if creds.SessionToken != "" {
		player, err := r.storage.GetPlayerBySessionToken(ctx, creds.SessionToken)
		if errors.Is(err, model.ErrPlayerNotFound) {
			return nil, model.ErrNoIdentity
		}
		return player, err
	}

	return nil, model.ErrNoIdentity
}

// CreateAnonymous creates a player backed by a fresh opaque session token
func (r *Resolver) CreateAnonymous(ctx context.Context, username string) (*model.Player, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		username = DefaultAnonymousName
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return nil, model.NewValidationError("username", "is too long")
	}

	now := r.clock.Now()
	player := &model.Player{
		ID:           model.PlayerID(r.random.UUID()),
		Username:     username,
		SessionToken: r.random.UUID(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := r.storage.CreatePlayer(ctx, player); err != nil {
		return nil, err
	}

	r.logger.Info("anonymous player created", slog.String("player_id", string(player.ID)))
	return player, nil
}

// Merge converts an anonymous player into a registered one in place.
// The player keeps its ID, characters and memberships.
func (r *Resolver) Merge(ctx context.Context, anonymousID model.PlayerID, cred *model.Credential) (*model.Player, error) {
	player, err := r.storage.MergeCredential(ctx, anonymousID, cred)
	switch {
	case errors.Is(err, model.ErrCredentialTaken), errors.Is(err, model.ErrNotAnonymous):
		return nil, fmt.Errorf("%w: %v", model.ErrIdentityConflict, err)
	case err != nil:
		return nil, err
	}

	r.logger.Info("anonymous player merged",
		slog.String("player_id", string(player.ID)),
		slog.String("username", player.Username),
	)
	return player, nil
}
