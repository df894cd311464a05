package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/soulpit/internal/dependencies/clock"
	"github.com/mcoot/soulpit/internal/dependencies/random"
	"github.com/mcoot/soulpit/internal/model"
	"github.com/mcoot/soulpit/internal/services/identity"
	"github.com/mcoot/soulpit/internal/storage"
)

const MinPasswordLength = 8

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_\-]{3,32}$`)

// Session is the result of a successful register or login
type Session struct {
	Token     string
	ExpiresAt time.Time
	Player    *model.Player
	Merged    bool // an anonymous player was converted in place
}

// Config holds configuration for the auth service
type Config struct {
	JWTSecret  string
	Issuer     string
	TokenTTL   time.Duration
	BcryptCost int
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		Issuer:     "soulpit",
		TokenTTL:   7 * 24 * time.Hour,
		BcryptCost: bcrypt.DefaultCost,
	}
}

// Service registers and logs in players
type Service struct {
	storage  storage.Storage
	resolver *identity.Resolver
	tokens   *Tokens
	clock    clock.Clock
	random   random.Random
	cost     int
	logger   *slog.Logger
}

// New creates a new auth Service
func New(storage storage.Storage, resolver *identity.Resolver, tokens *Tokens, clock clock.Clock, random random.Random, cfg Config, logger *slog.Logger) *Service {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = DefaultConfig().BcryptCost
	}
	return &Service{
		storage:  storage,
		resolver: resolver,
		tokens:   tokens,
		clock:    clock,
		random:   random,
		cost:     cfg.BcryptCost,
		logger:   logger,
	}
}

// RegisterRequest creates a credential. With a SessionToken the anonymous
// player behind it is converted in place instead of creating a new player.
type RegisterRequest struct {
	Username     string
	Password     string
	SessionToken string
}

// Register creates a registered player, or merges the caller's anonymous player
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	username := strings.TrimSpace(req.Username)
	if !usernamePattern.MatchString(username) {
		return nil, model.NewValidationError("username", "must be 3-32 letters, digits, '_' or '-'")
	}
	if len(req.Password) < MinPasswordLength {
		return nil, model.NewValidationError("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	cred := &model.Credential{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if req.SessionToken != "" {
		anon, err := s.storage.GetPlayerBySessionToken(ctx, req.SessionToken)
		switch {
		case err == nil:
			cred.PlayerID = anon.ID
			player, err := s.resolver.Merge(ctx, anon.ID, cred)
			if err != nil {
				return nil, err
			}
			return s.session(player, true)
		case !errors.Is(err, model.ErrPlayerNotFound):
			return nil, err
		}
		// unknown session token: register a fresh player
	}

	player := &model.Player{
		ID:        model.PlayerID(s.random.UUID()),
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}
	cred.PlayerID = player.ID
	if err := s.storage.CreateRegisteredPlayer(ctx, player, cred); err != nil {
		if errors.Is(err, model.ErrCredentialTaken) {
			return nil, fmt.Errorf("%w: username %q is registered", model.ErrIdentityConflict, username)
		}
		return nil, err
	}

	s.logger.Info("player registered", slog.String("player_id", string(player.ID)))
	return s.session(player, false)
}

// LoginRequest authenticates a registered player. MergeSessionToken asks for
// the anonymous player behind it to be converted into this account.
type LoginRequest struct {
	Username          string
	Password          string
	MergeSessionToken string
}

// Login authenticates a registered player and issues a bearer token.
// A MergeSessionToken that still resolves to an anonymous player always fails
// with ErrIdentityConflict, since the credential is bound to a registered
// player already. An unknown or already merged token is ignored.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	cred, err := s.storage.GetCredentialByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, model.ErrPlayerNotFound) {
			return nil, model.ErrUnauthorized
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(req.Password)); err != nil {
		return nil, model.ErrUnauthorized
	}

	if req.MergeSessionToken != "" {
		// A registered player never keeps a session token, so any anonymous
		// player behind it is someone other than the credential's player.
		_, err := s.storage.GetPlayerBySessionToken(ctx, req.MergeSessionToken)
		switch {
		case err == nil:
			return nil, fmt.Errorf("%w: session belongs to another player", model.ErrIdentityConflict)
		case !errors.Is(err, model.ErrPlayerNotFound):
			return nil, err
		}
	}

	player, err := s.storage.GetPlayer(ctx, cred.PlayerID)
	if err != nil {
		return nil, err
	}
	return s.session(player, false)
}

func (s *Service) session(player *model.Player, merged bool) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(player.ID)
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:     token,
		ExpiresAt: expiresAt,
		Player:    player,
		Merged:    merged,
	}, nil
}
