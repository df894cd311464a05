package factory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/soulpit/internal/model"
	"github.com/mcoot/soulpit/internal/services/auth"
	"github.com/mcoot/soulpit/internal/services/identity"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

func (s *IntegrationSuite) TearDownTest() {
	s.NoError(s.app.Close())
}

func (s *IntegrationSuite) anonymous(name string) *model.Player {
	p, err := s.app.Resolver.CreateAnonymous(s.ctx, name)
	s.Require().NoError(err)
	return p
}

// createList makes an anonymous owner with a freshly registered character
func (s *IntegrationSuite) createList(world, ownerCharacter string) (*model.Player, *model.List) {
	owner := s.anonymous("Owner")
	l, err := s.app.Lists.CreateList(s.ctx, owner.ID, model.CreateListRequest{
		Name:      "Soul Hunt",
		World:     world,
		Character: model.ByNewCharacterName{Name: ownerCharacter},
	})
	s.Require().NoError(err)
	return owner, l
}

func (s *IntegrationSuite) joinAs(code model.ShareCode, characterName string) (*model.Player, error) {
	res, err := s.app.Join.Join(s.ctx, identity.Credentials{}, model.JoinRequest{
		ShareCode: code,
		Character: model.ByNewCharacterName{Name: characterName},
	})
	if err != nil {
		return nil, err
	}
	return res.Player, nil
}

// Test: a core is tracked, obtained by the owner's character, then unlocked
func (s *IntegrationSuite) TestSoulCoreLifecycle() {
	owner, l := s.createList("Antica", "Rook sample")
	s.Require().Len(l.Members, 1)
	rook := l.Members[0]
	s.Equal("Rook Sample", rook.CharacterName)
	s.Equal("Antica", rook.World)

	_, err := s.app.Ledger.AddCore(s.ctx, l.ID, owner.ID, "rat")
	s.Require().NoError(err)

	core, err := s.app.Ledger.MarkObtained(s.ctx, l.ID, owner.ID, "rat", rook.CharacterID)
	s.Require().NoError(err)
	s.Equal(model.CoreObtained, core.State)
	s.Require().NotNil(core.ObtainedBy)
	s.Equal("Rook Sample", core.ObtainedBy.Name)

	_, err = s.app.Ledger.MarkObtained(s.ctx, l.ID, owner.ID, "rat", rook.CharacterID)
	s.ErrorIs(err, model.ErrInvalidTransition)

	core, err = s.app.Ledger.MarkUnlocked(s.ctx, l.ID, owner.ID, "rat")
	s.Require().NoError(err)
	s.Equal(model.CoreUnlocked, core.State)
	s.Equal("Rook Sample", core.ObtainedBy.Name)

	summary, err := s.app.Ledger.Summary(s.ctx, l.ID, owner.ID)
	s.Require().NoError(err)
	s.Equal(1, summary.TotalTracked)
	s.Equal(1, summary.ObtainedCount)
	s.Equal(1, summary.UnlockedCount)
	s.Require().Len(summary.PerCharacter, 1)
	s.Equal(1, summary.PerCharacter[0].Obtained)
}

// Test: the last seat rejects another world, and a full list reports ListFull first
func (s *IntegrationSuite) TestWorldMismatchAndCapacity() {
	_, l := s.createList("Antica", "Rook Sample")
	for _, name := range []string{"Knight Sample", "Druid Sample", "Paladin Sample"} {
		_, err := s.joinAs(l.ShareCode, name)
		s.Require().NoError(err, name)
	}

	_, err := s.joinAs(l.ShareCode, "Wanderer Sample")
	s.ErrorIs(err, model.ErrWorldMismatch)

	_, err = s.joinAs(l.ShareCode, "Sorcerer Sample")
	s.Require().NoError(err)

	calls := s.app.StaticLookup.Calls()
	_, err = s.joinAs(l.ShareCode, "Monk Sample")
	s.ErrorIs(err, model.ErrListFull)
	s.Equal(calls, s.app.StaticLookup.Calls(), "a full list is rejected before any lookup")

	stored, err := s.app.Storage.GetList(s.ctx, l.ID)
	s.Require().NoError(err)
	s.Len(stored.Members, model.MaxMembers)
}

// Test: two players race for the last seat
func (s *IntegrationSuite) TestConcurrentJoinsForLastSeat() {
	_, l := s.createList("Antica", "Rook Sample")
	for _, name := range []string{"Knight Sample", "Druid Sample", "Paladin Sample"} {
		_, err := s.joinAs(l.ShareCode, name)
		s.Require().NoError(err)
	}

	type joiner struct {
		player    *model.Player
		character *model.Character
	}
	var joiners []joiner
	for _, name := range []string{"Sorcerer Sample", "Monk Sample"} {
		p := s.anonymous("Racer")
		ch, err := s.app.Characters.RegisterCharacter(s.ctx, p.ID, name)
		s.Require().NoError(err)
		joiners = append(joiners, joiner{player: p, character: ch})
	}

	var wg sync.WaitGroup
	errs := make([]error, len(joiners))
	for i, j := range joiners {
		i, j := i, j
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, errs[i] = s.app.Lists.JoinList(s.ctx, string(l.ShareCode), j.player.ID, j.character.ID)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, model.ErrListFull)
	}
	s.Equal(1, succeeded)

	stored, err := s.app.Storage.GetList(s.ctx, l.ID)
	s.Require().NoError(err)
	s.Len(stored.Members, model.MaxMembers)
}

// Test: registering from an anonymous session keeps the player's memberships
func (s *IntegrationSuite) TestRegisterMergesAnonymousMemberships() {
	_, l := s.createList("", "Rook Sample")

	res, err := s.app.Join.Join(s.ctx, identity.Credentials{}, model.JoinRequest{
		ShareCode:   l.ShareCode,
		DisplayName: "Visitor",
		Character:   model.ByNewCharacterName{Name: "Wanderer Sample"},
	})
	s.Require().NoError(err)
	s.Require().NotEmpty(res.SessionToken)
	visitor := res.Player

	session, err := s.app.Auth.Register(s.ctx, auth.RegisterRequest{
		Username:     "wanderer",
		Password:     "correct horse",
		SessionToken: res.SessionToken,
	})
	s.Require().NoError(err)
	s.True(session.Merged)
	s.Equal(visitor.ID, session.Player.ID)
	s.False(session.Player.IsAnonymous())

	// the old session no longer resolves; the bearer token does
	_, err = s.app.Resolver.Resolve(s.ctx, identity.Credentials{SessionToken: res.SessionToken})
	s.ErrorIs(err, model.ErrNoIdentity)
	player, err := s.app.Resolver.Resolve(s.ctx, identity.Credentials{BearerToken: session.Token})
	s.Require().NoError(err)
	s.Equal(visitor.ID, player.ID)
	s.Len(player.Characters, 1)

	lists, err := s.app.Lists.ListsForPlayer(s.ctx, player.ID)
	s.Require().NoError(err)
	s.Require().Len(lists, 1)
	s.Equal(l.ID, lists[0].ID)
}

// Test: a rotated share code stops working immediately
func (s *IntegrationSuite) TestRotatedShareCode() {
	owner, l := s.createList("Antica", "Rook Sample")

	rotated, err := s.app.Lists.RotateShareCode(s.ctx, l.ID, owner.ID)
	s.Require().NoError(err)
	s.NotEqual(l.ShareCode, rotated.ShareCode)

	_, err = s.joinAs(l.ShareCode, "Knight Sample")
	s.ErrorIs(err, model.ErrInvalidShareCode)

	_, err = s.joinAs(rotated.ShareCode, "Knight Sample")
	s.NoError(err)
}

// Test: a member obtains a core for their own character and is credited
func (s *IntegrationSuite) TestMemberAttribution() {
	owner, l := s.createList("Antica", "Rook Sample")
	member, err := s.joinAs(l.ShareCode, "Knight Sample")
	s.Require().NoError(err)

	stored, err := s.app.Storage.GetList(s.ctx, l.ID)
	s.Require().NoError(err)
	knight := stored.GetMember(member.ID)
	s.Require().NotNil(knight)

	for _, creature := range []model.CreatureID{"rat", "troll"} {
		_, err := s.app.Ledger.MarkObtained(s.ctx, l.ID, member.ID, creature, knight.CharacterID)
		s.Require().NoError(err)
	}

	summary, err := s.app.Ledger.Summary(s.ctx, l.ID, owner.ID)
	s.Require().NoError(err)
	s.Equal(2, summary.ObtainedCount)
	s.Require().Len(summary.PerCharacter, 2)
	s.Equal("Knight Sample", summary.PerCharacter[0].CharacterName)
	s.Equal(2, summary.PerCharacter[0].Obtained)
	s.Equal(0, summary.PerCharacter[1].Obtained)
}
