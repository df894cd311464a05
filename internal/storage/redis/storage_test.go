package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/soulpit/internal/model"
	"github.com/mcoot/soulpit/internal/storage"
	"github.com/mcoot/soulpit/internal/storage/storagetest"
)

func newTestStorage(t *testing.T) (*Storage, *miniredis.Miniredis) {
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	cfg := DefaultConfig()
	cfg.MaxTxRetries = 100
	s := NewWithClient(client, cfg)
	t.Cleanup(func() { _ = s.Close() })
	return s, mini
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, &storagetest.Suite{
		NewStorage: func(t *testing.T) storage.Storage {
			s, _ := newTestStorage(t)
			return s
		},
	})
}

type KeysSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestKeysSuite(t *testing.T) {
	suite.Run(t, new(KeysSuite))
}

func (s *KeysSuite) SetupTest() {
	s.storage, s.mini = newTestStorage(s.T())
	s.ctx = context.Background()
}

func (s *KeysSuite) seedList() {
	s.Require().NoError(s.storage.CreatePlayer(s.ctx, &model.Player{ID: "player-1", SessionToken: "tok"}))
	s.Require().NoError(s.storage.CreateCharacter(s.ctx, &model.Character{ID: "char-1", PlayerID: "player-1", Name: "Rook Sample", World: "Antica"}))
	s.Require().NoError(s.storage.CreateList(s.ctx, &model.List{
		ID: "list-1", OwnerID: "player-1", ShareCode: "CODE0001",
		Members: []model.Membership{{PlayerID: "player-1", CharacterID: "char-1", Role: model.RoleOwner}},
	}))
}

func (s *KeysSuite) TestIndexesAreWritten() {
	s.seedList()

	s.True(s.mini.Exists("soulpit:idx:session:tok"))
	s.True(s.mini.Exists("soulpit:idx:character_name:antica/rook sample"))
	s.True(s.mini.Exists("soulpit:idx:share_code:CODE0001"))

	members, err := s.mini.SMembers("soulpit:idx:player_lists:player-1")
	s.Require().NoError(err)
	s.Equal([]string{"list-1"}, members)
	members, err = s.mini.SMembers("soulpit:idx:character_lists:char-1")
	s.Require().NoError(err)
	s.Equal([]string{"list-1"}, members)
}

func (s *KeysSuite) TestRotationSwapsShareCodeIndex() {
	s.seedList()

	_, err := s.storage.UpdateList(s.ctx, "list-1", func(l *model.List) error {
		l.ShareCode = "CODE0002"
		return nil
	})
	s.Require().NoError(err)

	s.False(s.mini.Exists("soulpit:idx:share_code:CODE0001"))
	id, err := s.mini.Get("soulpit:idx:share_code:CODE0002")
	s.Require().NoError(err)
	s.Equal("list-1", id)
}

func (s *KeysSuite) TestMergeRemovesSessionIndex() {
	s.Require().NoError(s.storage.CreatePlayer(s.ctx, &model.Player{ID: "player-1", SessionToken: "tok"}))

	_, err := s.storage.MergeCredential(s.ctx, "player-1", &model.Credential{Username: "Alice", PasswordHash: "hash"})
	s.Require().NoError(err)

	s.False(s.mini.Exists("soulpit:idx:session:tok"))
	s.True(s.mini.Exists("soulpit:credential:alice"))
}
