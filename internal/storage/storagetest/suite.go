// Package storagetest holds the behaviour every storage backend must share.
// Backend packages run Suite against a fresh instance per test.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/soulpit/internal/model"
	"github.com/mcoot/soulpit/internal/storage"
)

// Suite is the storage conformance suite
type Suite struct {
	suite.Suite

	// NewStorage returns an empty storage; cleanup is registered on t
	NewStorage func(t *testing.T) storage.Storage

	store storage.Storage
	ctx   context.Context
	now   time.Time
}

func (s *Suite) SetupTest() {
	s.store = s.NewStorage(s.T())
	s.ctx = context.Background()
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

// Fixtures

func (s *Suite) anonymous(id model.PlayerID) *model.Player {
	p := &model.Player{
		ID:           id,
		Username:     string(id),
		SessionToken: "session-" + string(id),
		CreatedAt:    s.now,
		UpdatedAt:    s.now,
	}
	s.Require().NoError(s.store.CreatePlayer(s.ctx, p))
	return p
}

func (s *Suite) character(owner model.PlayerID, id model.CharacterID, name, world string) *model.Character {
	c := &model.Character{
		ID:        id,
		PlayerID:  owner,
		Name:      name,
		World:     world,
		Level:     100,
		Vocation:  "Knight",
		CreatedAt: s.now,
		UpdatedAt: s.now,
	}
	s.Require().NoError(s.store.CreateCharacter(s.ctx, c))
	return c
}

func (s *Suite) list(id model.ListID, code model.ShareCode, owner *model.Character) *model.List {
	l := &model.List{
		ID:        id,
		Name:      "Hunt " + string(id),
		World:     owner.World,
		OwnerID:   owner.PlayerID,
		ShareCode: code,
		Members: []model.Membership{{
			PlayerID:      owner.PlayerID,
			CharacterID:   owner.ID,
			CharacterName: owner.Name,
			World:         owner.World,
			Role:          model.RoleOwner,
			JoinedAt:      s.now,
		}},
		CreatedAt: s.now,
		UpdatedAt: s.now,
	}
	s.Require().NoError(s.store.CreateList(s.ctx, l))
	return l
}

func join(c *model.Character, at time.Time) storage.ListUpdateFunc {
	return func(l *model.List) error {
		if l.IsFull() {
			return model.ErrListFull
		}
		l.Members = append(l.Members, model.Membership{
			PlayerID:      c.PlayerID,
			CharacterID:   c.ID,
			CharacterName: c.Name,
			World:         c.World,
			Role:          model.RoleMember,
			JoinedAt:      at,
		})
		return nil
	}
}

// Player tests

func (s *Suite) TestCreateAndGetPlayer() {
	p := s.anonymous("player-1")

	got, err := s.store.GetPlayer(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.ID, got.ID)
	s.Equal(p.SessionToken, got.SessionToken)
	s.True(got.IsAnonymous())
	s.True(got.CreatedAt.Equal(s.now))
}

func (s *Suite) TestGetPlayerNotFound() {
	_, err := s.store.GetPlayer(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestGetPlayerBySessionToken() {
	p := s.anonymous("player-1")

	got, err := s.store.GetPlayerBySessionToken(s.ctx, p.SessionToken)
	s.Require().NoError(err)
	s.Equal(p.ID, got.ID)

	_, err = s.store.GetPlayerBySessionToken(s.ctx, "unknown")
	s.ErrorIs(err, model.ErrPlayerNotFound)
	_, err = s.store.GetPlayerBySessionToken(s.ctx, "")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestCreatePlayerDuplicateSessionToken() {
	s.anonymous("player-1")

	err := s.store.CreatePlayer(s.ctx, &model.Player{ID: "player-2", SessionToken: "session-player-1"})
	s.ErrorIs(err, model.ErrSessionTokenUsed)
}

func (s *Suite) TestUpdatePlayerPersistsMainCharacterOnly() {
	p := s.anonymous("player-1")
	c := s.character(p.ID, "char-1", "Rook Sample", "Antica")

	later := s.now.Add(time.Minute)
	updated, err := s.store.UpdatePlayer(s.ctx, p.ID, func(p *model.Player) error {
		p.MainCharacterID = c.ID
		p.UpdatedAt = later
		p.SessionToken = "ignored"
		return nil
	})
	s.Require().NoError(err)
	s.Equal(c.ID, updated.MainCharacterID)

	got, err := s.store.GetPlayer(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(c.ID, got.MainCharacterID)
	s.Equal(p.SessionToken, got.SessionToken)
	s.True(got.UpdatedAt.Equal(later))
}

func (s *Suite) TestUpdatePlayerFuncErrorAborts() {
	p := s.anonymous("player-1")
	boom := errors.New("boom")

	_, err := s.store.UpdatePlayer(s.ctx, p.ID, func(p *model.Player) error {
		p.MainCharacterID = "char-x"
		return boom
	})
	s.ErrorIs(err, boom)

	got, err := s.store.GetPlayer(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Empty(got.MainCharacterID)
}

// Credential tests

func (s *Suite) TestCreateRegisteredPlayer() {
	p := &model.Player{ID: "player-1", Username: "Alice", CreatedAt: s.now, UpdatedAt: s.now}
	cred := &model.Credential{PlayerID: p.ID, Username: "Alice", PasswordHash: "hash", CreatedAt: s.now, UpdatedAt: s.now}
	s.Require().NoError(s.store.CreateRegisteredPlayer(s.ctx, p, cred))

	got, err := s.store.GetCredentialByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(p.ID, got.PlayerID)
	s.Equal("hash", got.PasswordHash)

	player, err := s.store.GetPlayer(s.ctx, p.ID)
	s.Require().NoError(err)
	s.False(player.IsAnonymous())
	s.Equal("Alice", player.Username)
}

func (s *Suite) TestCreateRegisteredPlayerUsernameTaken() {
	p := &model.Player{ID: "player-1", Username: "Alice", CreatedAt: s.now, UpdatedAt: s.now}
	s.Require().NoError(s.store.CreateRegisteredPlayer(s.ctx, p,
		&model.Credential{PlayerID: p.ID, Username: "Alice", PasswordHash: "hash"}))

	other := &model.Player{ID: "player-2", Username: "ALICE", CreatedAt: s.now, UpdatedAt: s.now}
	err := s.store.CreateRegisteredPlayer(s.ctx, other,
		&model.Credential{PlayerID: other.ID, Username: "ALICE", PasswordHash: "hash"})
	s.ErrorIs(err, model.ErrCredentialTaken)

	_, err = s.store.GetPlayer(s.ctx, other.ID)
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestGetCredentialNotFound() {
	_, err := s.store.GetCredentialByUsername(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestMergeCredentialPreservesCharactersAndMemberships() {
	p := s.anonymous("player-1")
	c := s.character(p.ID, "char-1", "Rook Sample", "Antica")
	l := s.list("list-1", "CODE0001", c)

	merged, err := s.store.MergeCredential(s.ctx, p.ID, &model.Credential{
		Username: "Alice", PasswordHash: "hash", CreatedAt: s.now, UpdatedAt: s.now,
	})
	s.Require().NoError(err)
	s.Equal(p.ID, merged.ID)
	s.False(merged.IsAnonymous())
	s.Equal("Alice", merged.Username)
	s.Equal([]model.CharacterID{c.ID}, merged.Characters)

	_, err = s.store.GetPlayerBySessionToken(s.ctx, p.SessionToken)
	s.ErrorIs(err, model.ErrPlayerNotFound)

	cred, err := s.store.GetCredentialByUsername(s.ctx, "Alice")
	s.Require().NoError(err)
	s.Equal(p.ID, cred.PlayerID)

	got, err := s.store.GetList(s.ctx, l.ID)
	s.Require().NoError(err)
	s.True(got.IsMember(p.ID))
}

func (s *Suite) TestMergeCredentialUsernameTaken() {
	owner := &model.Player{ID: "player-1", Username: "Alice", CreatedAt: s.now, UpdatedAt: s.now}
	s.Require().NoError(s.store.CreateRegisteredPlayer(s.ctx, owner,
		&model.Credential{PlayerID: owner.ID, Username: "Alice", PasswordHash: "hash"}))
	anon := s.anonymous("player-2")

	_, err := s.store.MergeCredential(s.ctx, anon.ID, &model.Credential{Username: "alice", PasswordHash: "x"})
	s.ErrorIs(err, model.ErrCredentialTaken)

	got, err := s.store.GetPlayer(s.ctx, anon.ID)
	s.Require().NoError(err)
	s.True(got.IsAnonymous())
}

func (s *Suite) TestMergeCredentialNotAnonymous() {
	p := &model.Player{ID: "player-1", Username: "Alice", CreatedAt: s.now, UpdatedAt: s.now}
	s.Require().NoError(s.store.CreateRegisteredPlayer(s.ctx, p,
		&model.Credential{PlayerID: p.ID, Username: "Alice", PasswordHash: "hash"}))

	_, err := s.store.MergeCredential(s.ctx, p.ID, &model.Credential{Username: "Other", PasswordHash: "x"})
	s.ErrorIs(err, model.ErrNotAnonymous)
}

// Character tests

func (s *Suite) TestCreateCharacterAppendsToPlayer() {
	p := s.anonymous("player-1")
	first := s.character(p.ID, "char-1", "Rook Sample", "Antica")
	second := s.character(p.ID, "char-2", "Knight Sample", "Antica")

	got, err := s.store.GetPlayer(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal([]model.CharacterID{first.ID, second.ID}, got.Characters)

	chars, err := s.store.ListCharactersByPlayer(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Require().Len(chars, 2)
	s.Equal("Rook Sample", chars[0].Name)
	s.Equal("Knight Sample", chars[1].Name)
}

func (s *Suite) TestCreateCharacterNameUniquePerWorld() {
	p := s.anonymous("player-1")
	s.character(p.ID, "char-1", "Rook Sample", "Antica")

	err := s.store.CreateCharacter(s.ctx, &model.Character{
		ID: "char-2", PlayerID: p.ID, Name: "rook sample", World: "antica",
	})
	s.ErrorIs(err, model.ErrCharacterExists)

	s.character(p.ID, "char-3", "Rook Sample", "Secura")
}

func (s *Suite) TestCreateCharacterUnknownOwner() {
	err := s.store.CreateCharacter(s.ctx, &model.Character{ID: "char-1", PlayerID: "ghost", Name: "Rook Sample", World: "Antica"})
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestGetCharacterByNameIsCaseInsensitive() {
	p := s.anonymous("player-1")
	c := s.character(p.ID, "char-1", "Rook Sample", "Antica")

	got, err := s.store.GetCharacterByName(s.ctx, "ANTICA", "rook SAMPLE")
	s.Require().NoError(err)
	s.Equal(c.ID, got.ID)
	s.Equal("Rook Sample", got.Name)

	_, err = s.store.GetCharacterByName(s.ctx, "Secura", "Rook Sample")
	s.ErrorIs(err, model.ErrCharacterNotFound)
}

func (s *Suite) TestUpdateCharacterPersistsLevelAndVocationOnly() {
	p := s.anonymous("player-1")
	c := s.character(p.ID, "char-1", "Rook Sample", "Antica")

	_, err := s.store.UpdateCharacter(s.ctx, c.ID, func(c *model.Character) error {
		c.Level = 250
		c.Vocation = "Elite Knight"
		c.Name = "Renamed"
		return nil
	})
	s.Require().NoError(err)

	got, err := s.store.GetCharacter(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(250, got.Level)
	s.Equal("Elite Knight", got.Vocation)
	s.Equal("Rook Sample", got.Name)
}

func (s *Suite) TestDeleteCharacterInUse() {
	p := s.anonymous("player-1")
	c := s.character(p.ID, "char-1", "Rook Sample", "Antica")
	s.list("list-1", "CODE0001", c)

	err := s.store.DeleteCharacter(s.ctx, c.ID)
	s.ErrorIs(err, model.ErrCharacterInUse)

	_, err = s.store.GetCharacter(s.ctx, c.ID)
	s.NoError(err)
}

func (s *Suite) TestDeleteCharacterClearsPlayerReferences() {
	p := s.anonymous("player-1")
	c := s.character(p.ID, "char-1", "Rook Sample", "Antica")
	_, err := s.store.UpdatePlayer(s.ctx, p.ID, func(p *model.Player) error {
		p.MainCharacterID = c.ID
		return nil
	})
	s.Require().NoError(err)

	s.Require().NoError(s.store.DeleteCharacter(s.ctx, c.ID))

	got, err := s.store.GetPlayer(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Empty(got.Characters)
	s.Empty(got.MainCharacterID)

	_, err = s.store.GetCharacterByName(s.ctx, "Antica", "Rook Sample")
	s.ErrorIs(err, model.ErrCharacterNotFound)

	// the name is free again
	s.character(p.ID, "char-2", "Rook Sample", "Antica")
}

func (s *Suite) TestDeleteCharacterAfterLeaving() {
	owner := s.anonymous("player-1")
	ownerChar := s.character(owner.ID, "char-1", "Rook Sample", "Antica")
	l := s.list("list-1", "CODE0001", ownerChar)
	member := s.anonymous("player-2")
	memberChar := s.character(member.ID, "char-2", "Knight Sample", "Antica")
	_, err := s.store.UpdateList(s.ctx, l.ID, join(memberChar, s.now))
	s.Require().NoError(err)

	s.ErrorIs(s.store.DeleteCharacter(s.ctx, memberChar.ID), model.ErrCharacterInUse)

	_, err = s.store.UpdateList(s.ctx, l.ID, func(l *model.List) error {
		l.Members = l.Members[:1]
		return nil
	})
	s.Require().NoError(err)
	s.NoError(s.store.DeleteCharacter(s.ctx, memberChar.ID))
}

// Collection tests

func (s *Suite) collect(id model.CharacterID, unlocked ...model.CreatureID) {
	_, err := s.store.UpdateCollection(s.ctx, id, func(c *model.Collection) error {
		for _, creature := range unlocked {
			c.Add(creature, s.now)
		}
		return nil
	})
	s.Require().NoError(err)
}

func (s *Suite) TestGetCollectionStartsEmpty() {
	p := s.anonymous("player-1")
	c := s.character(p.ID, "char-1", "Rook Sample", "Antica")

	got, err := s.store.GetCollection(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(c.ID, got.CharacterID)
	s.Empty(got.Unlocked)
	s.Empty(got.Suggested)
}

func (s *Suite) TestGetCollectionUnknownCharacter() {
	_, err := s.store.GetCollection(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrCharacterNotFound)

	_, err = s.store.UpdateCollection(s.ctx, "nonexistent", func(*model.Collection) error { return nil })
	s.ErrorIs(err, model.ErrCharacterNotFound)
}

func (s *Suite) TestUpdateCollectionPersistsBothSets() {
	p := s.anonymous("player-1")
	c := s.character(p.ID, "char-1", "Rook Sample", "Antica")

	updated, err := s.store.UpdateCollection(s.ctx, c.ID, func(col *model.Collection) error {
		col.Add("dragon", s.now)
		col.Add("rat", s.now)
		col.Suggest("cyclops", s.now)
		col.Suggest("rat", s.now)
		return nil
	})
	s.Require().NoError(err)
	s.Equal([]model.CreatureID{"dragon", "rat"}, updated.Unlocked)

	got, err := s.store.GetCollection(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal([]model.CreatureID{"dragon", "rat"}, got.Unlocked)
	s.Equal([]model.CreatureID{"cyclops"}, got.Suggested)
	s.True(got.UpdatedAt.Equal(s.now))
}

func (s *Suite) TestUpdateCollectionFuncErrorAborts() {
	p := s.anonymous("player-1")
	c := s.character(p.ID, "char-1", "Rook Sample", "Antica")
	s.collect(c.ID, "dragon")

	boom := errors.New("boom")
	_, err := s.store.UpdateCollection(s.ctx, c.ID, func(col *model.Collection) error {
		col.Remove("dragon", s.now)
		return boom
	})
	s.ErrorIs(err, boom)

	got, err := s.store.GetCollection(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal([]model.CreatureID{"dragon"}, got.Unlocked)
}

func (s *Suite) TestDeleteCharacterDropsCollection() {
	p := s.anonymous("player-1")
	c := s.character(p.ID, "char-1", "Rook Sample", "Antica")
	s.collect(c.ID, "dragon")

	s.Require().NoError(s.store.DeleteCharacter(s.ctx, c.ID))
	_, err := s.store.GetCollection(s.ctx, c.ID)
	s.ErrorIs(err, model.ErrCharacterNotFound)

	scores, total, err := s.store.TopCollections(s.ctx, 10, 0)
	s.Require().NoError(err)
	s.Empty(scores)
	s.Zero(total)

	// a character registered again under the same ID starts over
	s.character(p.ID, c.ID, "Rook Sample", "Antica")
	got, err := s.store.GetCollection(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Empty(got.Unlocked)
}

func (s *Suite) TestTopCollectionsRanksByCount() {
	p := s.anonymous("player-1")
	a := s.character(p.ID, "char-a", "Rook Sample", "Antica")
	b := s.character(p.ID, "char-b", "Knight Sample", "Antica")
	c := s.character(p.ID, "char-c", "Druid Sample", "Secura")
	d := s.character(p.ID, "char-d", "Paladin Sample", "Antica")
	s.collect(b.ID, "rat", "dragon")
	s.collect(a.ID, "rat", "cyclops")
	s.collect(c.ID, "rat", "dragon", "cyclops")
	_, err := s.store.UpdateCollection(s.ctx, d.ID, func(col *model.Collection) error {
		col.Suggest("rat", s.now)
		return nil
	})
	s.Require().NoError(err)

	scores, total, err := s.store.TopCollections(s.ctx, 10, 0)
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Equal([]model.CollectionScore{
		{CharacterID: c.ID, Name: "Druid Sample", World: "Secura", Count: 3},
		{CharacterID: a.ID, Name: "Rook Sample", World: "Antica", Count: 2},
		{CharacterID: b.ID, Name: "Knight Sample", World: "Antica", Count: 2},
	}, scores)

	scores, total, err = s.store.TopCollections(s.ctx, 1, 1)
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Require().Len(scores, 1)
	s.Equal(a.ID, scores[0].CharacterID)

	scores, total, err = s.store.TopCollections(s.ctx, 10, 5)
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Empty(scores)
}

func (s *Suite) TestTopCollectionsDropsEmptiedCollection() {
	p := s.anonymous("player-1")
	c := s.character(p.ID, "char-1", "Rook Sample", "Antica")
	s.collect(c.ID, "rat")

	_, err := s.store.UpdateCollection(s.ctx, c.ID, func(col *model.Collection) error {
		col.Remove("rat", s.now)
		return nil
	})
	s.Require().NoError(err)

	scores, total, err := s.store.TopCollections(s.ctx, 10, 0)
	s.Require().NoError(err)
	s.Empty(scores)
	s.Zero(total)
}

// List tests

func (s *Suite) TestCreateAndGetList() {
	p := s.anonymous("player-1")
	c := s.character(p.ID, "char-1", "Rook Sample", "Antica")
	l := s.list("list-1", "CODE0001", c)

	got, err := s.store.GetList(s.ctx, l.ID)
	s.Require().NoError(err)
	s.Equal(l.Name, got.Name)
	s.Equal(l.ShareCode, got.ShareCode)
	s.Require().Len(got.Members, 1)
	s.Equal(model.RoleOwner, got.Members[0].Role)

	byCode, err := s.store.GetListByShareCode(s.ctx, "CODE0001")
	s.Require().NoError(err)
	s.Equal(l.ID, byCode.ID)
}

func (s *Suite) TestGetListNotFound() {
	_, err := s.store.GetList(s.ctx, "missing")
	s.ErrorIs(err, model.ErrListNotFound)
	_, err = s.store.GetListByShareCode(s.ctx, "NOPE")
	s.ErrorIs(err, model.ErrListNotFound)
}

func (s *Suite) TestCreateListShareCodeTaken() {
	p := s.anonymous("player-1")
	c := s.character(p.ID, "char-1", "Rook Sample", "Antica")
	s.list("list-1", "CODE0001", c)

	dup := &model.List{
		ID: "list-2", Name: "Other", OwnerID: p.ID, ShareCode: "CODE0001",
		Members:   []model.Membership{{PlayerID: p.ID, CharacterID: c.ID, Role: model.RoleOwner}},
		CreatedAt: s.now, UpdatedAt: s.now,
	}
	s.ErrorIs(s.store.CreateList(s.ctx, dup), model.ErrShareCodeTaken)
}

func (s *Suite) TestCreateListRejectsBrokenInvariants() {
	p := s.anonymous("player-1")
	c := s.character(p.ID, "char-1", "Rook Sample", "Antica")

	noOwner := &model.List{
		ID: "list-1", Name: "Broken", OwnerID: p.ID, ShareCode: "CODE0001",
		Members: []model.Membership{{PlayerID: p.ID, CharacterID: c.ID, Role: model.RoleMember}},
	}
	s.ErrorIs(s.store.CreateList(s.ctx, noOwner), model.ErrIntegrity)
}

func (s *Suite) TestUpdateListRotatesShareCode() {
	p := s.anonymous("player-1")
	c := s.character(p.ID, "char-1", "Rook Sample", "Antica")
	l := s.list("list-1", "CODE0001", c)

	_, err := s.store.UpdateList(s.ctx, l.ID, func(l *model.List) error {
		l.ShareCode = "CODE0002"
		return nil
	})
	s.Require().NoError(err)

	_, err = s.store.GetListByShareCode(s.ctx, "CODE0001")
	s.ErrorIs(err, model.ErrListNotFound)
	got, err := s.store.GetListByShareCode(s.ctx, "CODE0002")
	s.Require().NoError(err)
	s.Equal(l.ID, got.ID)
}

func (s *Suite) TestUpdateListRotateToTakenCode() {
	p := s.anonymous("player-1")
	c := s.character(p.ID, "char-1", "Rook Sample", "Antica")
	c2 := s.character(p.ID, "char-2", "Knight Sample", "Antica")
	l := s.list("list-1", "CODE0001", c)
	s.list("list-2", "CODE0002", c2)

	_, err := s.store.UpdateList(s.ctx, l.ID, func(l *model.List) error {
		l.ShareCode = "CODE0002"
		return nil
	})
	s.ErrorIs(err, model.ErrShareCodeTaken)

	got, err := s.store.GetListByShareCode(s.ctx, "CODE0001")
	s.Require().NoError(err)
	s.Equal(l.ID, got.ID)
}

func (s *Suite) TestUpdateListFuncErrorLeavesListUnchanged() {
	p := s.anonymous("player-1")
	c := s.character(p.ID, "char-1", "Rook Sample", "Antica")
	l := s.list("list-1", "CODE0001", c)

	_, err := s.store.UpdateList(s.ctx, l.ID, func(l *model.List) error {
		l.Name = "Changed"
		return model.ErrDuplicateCore
	})
	s.ErrorIs(err, model.ErrDuplicateCore)

	got, err := s.store.GetList(s.ctx, l.ID)
	s.Require().NoError(err)
	s.Equal(l.Name, got.Name)
}

func (s *Suite) TestUpdateListRejectsDuplicateCharacter() {
	p := s.anonymous("player-1")
	c := s.character(p.ID, "char-1", "Rook Sample", "Antica")
	l := s.list("list-1", "CODE0001", c)
	other := s.anonymous("player-2")

	_, err := s.store.UpdateList(s.ctx, l.ID, func(l *model.List) error {
		l.Members = append(l.Members, model.Membership{PlayerID: other.ID, CharacterID: c.ID, Role: model.RoleMember})
		return nil
	})
	s.ErrorIs(err, model.ErrIntegrity)
}

func (s *Suite) TestUpdateListRequiresExistingCharacter() {
	p := s.anonymous("player-1")
	c := s.character(p.ID, "char-1", "Rook Sample", "Antica")
	l := s.list("list-1", "CODE0001", c)
	other := s.anonymous("player-2")

	_, err := s.store.UpdateList(s.ctx, l.ID, join(&model.Character{ID: "ghost", PlayerID: other.ID, Name: "Ghost"}, s.now))
	s.ErrorIs(err, model.ErrCharacterNotFound)
}

func (s *Suite) TestUpdateListPersistsSoulCores() {
	p := s.anonymous("player-1")
	c := s.character(p.ID, "char-1", "Rook Sample", "Antica")
	l := s.list("list-1", "CODE0001", c)

	_, err := s.store.UpdateList(s.ctx, l.ID, func(l *model.List) error {
		core := model.SoulCore{ID: "core-1", ListID: l.ID, CreatureID: "rat", State: model.CoreMissing, AddedBy: p.ID, CreatedAt: s.now, UpdatedAt: s.now}
		if err := core.Obtain(model.CharacterRef{ID: c.ID, Name: c.Name}, s.now); err != nil {
			return err
		}
		l.SoulCores = append(l.SoulCores, core,
			model.SoulCore{ID: "core-2", ListID: l.ID, CreatureID: "dragon", State: model.CoreMissing, AddedBy: p.ID, CreatedAt: s.now, UpdatedAt: s.now})
		return nil
	})
	s.Require().NoError(err)

	got, err := s.store.GetList(s.ctx, l.ID)
	s.Require().NoError(err)
	s.Require().Len(got.SoulCores, 2)
	rat := got.Core("rat")
	s.Require().NotNil(rat)
	s.Equal(model.CoreObtained, rat.State)
	s.Require().NotNil(rat.ObtainedBy)
	s.Equal(c.ID, rat.ObtainedBy.ID)
	s.Equal("Rook Sample", rat.ObtainedBy.Name)
	s.Nil(got.Core("dragon").ObtainedBy)
}

func (s *Suite) TestListListsForPlayer() {
	owner := s.anonymous("player-1")
	c1 := s.character(owner.ID, "char-1", "Rook Sample", "Antica")
	c2 := s.character(owner.ID, "char-2", "Knight Sample", "Antica")
	first := s.list("list-1", "CODE0001", c1)
	s.now = s.now.Add(time.Minute)
	second := s.list("list-2", "CODE0002", c2)

	member := s.anonymous("player-2")
	mc := s.character(member.ID, "char-3", "Druid Sample", "Antica")
	_, err := s.store.UpdateList(s.ctx, second.ID, join(mc, s.now))
	s.Require().NoError(err)

	lists, err := s.store.ListListsForPlayer(s.ctx, owner.ID)
	s.Require().NoError(err)
	s.Require().Len(lists, 2)
	s.Equal(first.ID, lists[0].ID)
	s.Equal(second.ID, lists[1].ID)

	lists, err = s.store.ListListsForPlayer(s.ctx, member.ID)
	s.Require().NoError(err)
	s.Require().Len(lists, 1)
	s.Equal(second.ID, lists[0].ID)

	_, err = s.store.UpdateList(s.ctx, second.ID, func(l *model.List) error {
		l.Members = l.Members[:1]
		return nil
	})
	s.Require().NoError(err)
	lists, err = s.store.ListListsForPlayer(s.ctx, member.ID)
	s.Require().NoError(err)
	s.Empty(lists)
}

func (s *Suite) TestConcurrentJoinsRespectCapacity() {
	owner := s.anonymous("owner")
	oc := s.character(owner.ID, "char-owner", "Owner Sample", "Antica")
	l := s.list("list-1", "CODE0001", oc)

	const joiners = 10
	chars := make([]*model.Character, joiners)
	for i := range chars {
		p := s.anonymous(model.PlayerID(fmt.Sprintf("player-%d", i)))
		chars[i] = s.character(p.ID, model.CharacterID(fmt.Sprintf("char-%d", i)), fmt.Sprintf("Joiner %c", 'A'+i), "Antica")
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		full      int
	)
	for _, c := range chars {
		wg.Add(1)
		go func(c *model.Character) {
			defer wg.Done()
			_, err := s.store.UpdateList(s.ctx, l.ID, join(c, s.now))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, model.ErrListFull):
				full++
			default:
				s.Failf("unexpected error", "%v", err)
			}
		}(c)
	}
	wg.Wait()

	s.Equal(model.MaxMembers-1, succeeded)
	s.Equal(joiners-(model.MaxMembers-1), full)

	got, err := s.store.GetList(s.ctx, l.ID)
	s.Require().NoError(err)
	s.Len(got.Members, model.MaxMembers)
	s.NoError(got.CheckInvariants())
}

// Creature tests

func (s *Suite) TestSaveAndGetCreatures() {
	creatures, err := s.store.GetCreatures(s.ctx)
	s.Require().NoError(err)
	s.Empty(creatures)

	want := []model.Creature{
		{ID: "rat", Name: "Rat", PluralName: "Rats"},
		{ID: "dragon", Name: "Dragon", PluralName: "Dragons"},
	}
	s.Require().NoError(s.store.SaveCreatures(s.ctx, want))

	creatures, err = s.store.GetCreatures(s.ctx)
	s.Require().NoError(err)
	s.Equal(want, creatures)
}
