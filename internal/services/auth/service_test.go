package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/soulpit/internal/dependencies/mocks"
	"github.com/mcoot/soulpit/internal/model"
	"github.com/mcoot/soulpit/internal/services/identity"
	"github.com/mcoot/soulpit/internal/storage/memory"
	"github.com/mcoot/soulpit/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage  *memory.Storage
	clock    *mocks.MockClock
	random   *mocks.MockRandom
	tokens   *Tokens
	resolver *identity.Resolver
	service  *Service
	ctx      context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()

	cfg := DefaultConfig()
	cfg.JWTSecret = "test-secret"
	cfg.BcryptCost = bcrypt.MinCost

	s.tokens = NewTokens(cfg, s.clock, s.random)
	s.resolver = identity.New(s.storage, s.tokens, s.clock, s.random, testutil.NopLogger())
	s.service = New(s.storage, s.resolver, s.tokens, s.clock, s.random, cfg, testutil.NopLogger())
	s.ctx = context.Background()
}

// Register tests

func (s *ServiceSuite) TestRegisterCreatesPlayerAndToken() {
	session, err := s.service.Register(s.ctx, RegisterRequest{Username: "alice", Password: "password123"})
	s.Require().NoError(err)

	s.NotEmpty(session.Token)
	s.False(session.Merged)
	s.False(session.Player.IsAnonymous())
	s.Equal("alice", session.Player.Username)

	p, err := s.resolver.Resolve(s.ctx, identity.Credentials{BearerToken: session.Token})
	s.Require().NoError(err)
	s.Equal(session.Player.ID, p.ID)
}

func (s *ServiceSuite) TestRegisterValidation() {
	_, err := s.service.Register(s.ctx, RegisterRequest{Username: "al", Password: "password123"})
	s.ErrorIs(err, model.ErrValidation)

	_, err = s.service.Register(s.ctx, RegisterRequest{Username: "alice", Password: "short"})
	s.ErrorIs(err, model.ErrValidation)
}

func (s *ServiceSuite) TestRegisterDuplicateUsernameIsConflict() {
	_, err := s.service.Register(s.ctx, RegisterRequest{Username: "alice", Password: "password123"})
	s.Require().NoError(err)

	_, err = s.service.Register(s.ctx, RegisterRequest{Username: "ALICE", Password: "password123"})
	s.ErrorIs(err, model.ErrIdentityConflict)
}

func (s *ServiceSuite) TestRegisterWithSessionMergesAnonymousPlayer() {
	anon, err := s.resolver.CreateAnonymous(s.ctx, "Alice")
	s.Require().NoError(err)
	s.Require().NoError(s.storage.CreateCharacter(s.ctx, &model.Character{
		ID: "char-1", PlayerID: anon.ID, Name: "Rook Sample", World: "Antica",
	}))

	session, err := s.service.Register(s.ctx, RegisterRequest{
		Username: "alice", Password: "password123", SessionToken: anon.SessionToken,
	})
	s.Require().NoError(err)
	s.True(session.Merged)
	s.Equal(anon.ID, session.Player.ID)
	s.Equal([]model.CharacterID{"char-1"}, session.Player.Characters)

	_, err = s.resolver.Resolve(s.ctx, identity.Credentials{SessionToken: anon.SessionToken})
	s.ErrorIs(err, model.ErrNoIdentity)
}

func (s *ServiceSuite) TestRegisterWithSessionConflict() {
	_, err := s.service.Register(s.ctx, RegisterRequest{Username: "alice", Password: "password123"})
	s.Require().NoError(err)
	anon, err := s.resolver.CreateAnonymous(s.ctx, "Alice")
	s.Require().NoError(err)

	_, err = s.service.Register(s.ctx, RegisterRequest{
		Username: "alice", Password: "password123", SessionToken: anon.SessionToken,
	})
	s.ErrorIs(err, model.ErrIdentityConflict)
}

func (s *ServiceSuite) TestRegisterWithUnknownSessionCreatesFreshPlayer() {
	session, err := s.service.Register(s.ctx, RegisterRequest{
		Username: "alice", Password: "password123", SessionToken: "stale",
	})
	s.Require().NoError(err)
	s.False(session.Merged)
}

// Login tests

func (s *ServiceSuite) TestLoginSucceeds() {
	reg, err := s.service.Register(s.ctx, RegisterRequest{Username: "alice", Password: "password123"})
	s.Require().NoError(err)

	session, err := s.service.Login(s.ctx, LoginRequest{Username: "Alice", Password: "password123"})
	s.Require().NoError(err)
	s.Equal(reg.Player.ID, session.Player.ID)
	s.NotEmpty(session.Token)
}

func (s *ServiceSuite) TestLoginWrongPassword() {
	_, err := s.service.Register(s.ctx, RegisterRequest{Username: "alice", Password: "password123"})
	s.Require().NoError(err)

	_, err = s.service.Login(s.ctx, LoginRequest{Username: "alice", Password: "wrong-password"})
	s.ErrorIs(err, model.ErrUnauthorized)
}

func (s *ServiceSuite) TestLoginUnknownUser() {
	_, err := s.service.Login(s.ctx, LoginRequest{Username: "nobody", Password: "password123"})
	s.ErrorIs(err, model.ErrUnauthorized)
}

func (s *ServiceSuite) TestLoginMergingAnotherPlayersSessionIsConflict() {
	_, err := s.service.Register(s.ctx, RegisterRequest{Username: "alice", Password: "password123"})
	s.Require().NoError(err)
	anon, err := s.resolver.CreateAnonymous(s.ctx, "Visitor")
	s.Require().NoError(err)

	_, err = s.service.Login(s.ctx, LoginRequest{
		Username: "alice", Password: "password123", MergeSessionToken: anon.SessionToken,
	})
	s.ErrorIs(err, model.ErrIdentityConflict)
}

func (s *ServiceSuite) TestLoginWithAlreadyMergedSessionSucceeds() {
	anon, err := s.resolver.CreateAnonymous(s.ctx, "Visitor")
	s.Require().NoError(err)
	registered, err := s.service.Register(s.ctx, RegisterRequest{
		Username: "alice", Password: "password123", SessionToken: anon.SessionToken,
	})
	s.Require().NoError(err)
	s.Require().True(registered.Merged)

	// the token was retired by the merge
	session, err := s.service.Login(s.ctx, LoginRequest{
		Username: "alice", Password: "password123", MergeSessionToken: anon.SessionToken,
	})
	s.Require().NoError(err)
	s.Equal(anon.ID, session.Player.ID)
	s.False(session.Merged)
}

// Token tests

func (s *ServiceSuite) TestTokenExpires() {
	session, err := s.service.Register(s.ctx, RegisterRequest{Username: "alice", Password: "password123"})
	s.Require().NoError(err)

	s.clock.Advance(DefaultConfig().TokenTTL + time.Minute)

	_, err = s.tokens.VerifyBearer(s.ctx, session.Token)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *ServiceSuite) TestTokenSignedWithOtherSecretIsRejected() {
	other := NewTokens(Config{JWTSecret: "other-secret"}, s.clock, s.random)
	token, _, err := other.Issue("player-1")
	s.Require().NoError(err)

	_, err = s.tokens.VerifyBearer(s.ctx, token)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *ServiceSuite) TestTokensWithoutSecret() {
	unset := NewTokens(Config{}, s.clock, s.random)
	_, _, err := unset.Issue("player-1")
	s.ErrorIs(err, ErrNotConfigured)
}
