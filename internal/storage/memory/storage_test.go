package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/soulpit/internal/model"
	"github.com/mcoot/soulpit/internal/storage"
	"github.com/mcoot/soulpit/internal/storage/storagetest"
)

func TestStorageSuite(t *testing.T) {
	suite.Run(t, &storagetest.Suite{
		NewStorage: func(t *testing.T) storage.Storage { return New() },
	})
}

type IsolationSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestIsolationSuite(t *testing.T) {
	suite.Run(t, new(IsolationSuite))
}

func (s *IsolationSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
}

func (s *IsolationSuite) TestReturnedPlayerIsACopy() {
	s.Require().NoError(s.storage.CreatePlayer(s.ctx, &model.Player{ID: "player-1", SessionToken: "tok"}))

	got, err := s.storage.GetPlayer(s.ctx, "player-1")
	s.Require().NoError(err)
	got.Characters = append(got.Characters, "char-x")
	got.SessionToken = ""

	again, err := s.storage.GetPlayer(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Empty(again.Characters)
	s.True(again.IsAnonymous())
}

func (s *IsolationSuite) TestReturnedListIsACopy() {
	s.Require().NoError(s.storage.CreatePlayer(s.ctx, &model.Player{ID: "player-1", SessionToken: "tok"}))
	s.Require().NoError(s.storage.CreateCharacter(s.ctx, &model.Character{ID: "char-1", PlayerID: "player-1", Name: "Rook Sample", World: "Antica"}))
	s.Require().NoError(s.storage.CreateList(s.ctx, &model.List{
		ID: "list-1", OwnerID: "player-1", ShareCode: "CODE0001",
		Members: []model.Membership{{PlayerID: "player-1", CharacterID: "char-1", Role: model.RoleOwner}},
	}))

	got, err := s.storage.GetList(s.ctx, "list-1")
	s.Require().NoError(err)
	got.Members[0].Role = model.RoleMember
	got.SoulCores = append(got.SoulCores, model.SoulCore{CreatureID: "rat"})

	again, err := s.storage.GetList(s.ctx, "list-1")
	s.Require().NoError(err)
	s.Equal(model.RoleOwner, again.Members[0].Role)
	s.Empty(again.SoulCores)
}
