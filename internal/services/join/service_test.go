package join

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/soulpit/internal/dependencies/mocks"
	"github.com/mcoot/soulpit/internal/gamedata/static"
	"github.com/mcoot/soulpit/internal/model"
	"github.com/mcoot/soulpit/internal/services/character"
	"github.com/mcoot/soulpit/internal/services/identity"
	"github.com/mcoot/soulpit/internal/services/list"
	"github.com/mcoot/soulpit/internal/storage/memory"
	"github.com/mcoot/soulpit/internal/testutil"
)

type rejectAll struct{}

func (rejectAll) VerifyBearer(context.Context, string) (model.PlayerID, error) {
	return "", fmt.Errorf("bad token")
}

type ServiceSuite struct {
	suite.Suite
	storage  *memory.Storage
	lookup   *static.Lookup
	clock    *mocks.MockClock
	random   *mocks.MockRandom
	resolver *identity.Resolver
	lists    *list.Controller
	service  *Service
	ctx      context.Context

	owner *model.Player
	list  *model.List
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	logger := testutil.NopLogger()
	s.lookup = static.Sample()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.ctx = context.Background()

	s.resolver = identity.New(s.storage, rejectAll{}, s.clock, s.random, logger)
	characters := character.New(s.storage, s.lookup, s.clock, s.random, character.DefaultConfig(), logger)
	s.lists = list.NewController(s.storage, characters, s.clock, s.random, nil, logger)
	s.service = New(s.resolver, s.lists, characters, logger)

	var err error
	s.owner, err = s.resolver.CreateAnonymous(s.ctx, "Owner")
	s.Require().NoError(err)
	s.list, err = s.lists.CreateList(s.ctx, s.owner.ID, model.CreateListRequest{
		Name:      "Soul Hunt",
		World:     "Antica",
		Character: model.ByNewCharacterName{Name: "Rook Sample"},
	})
	s.Require().NoError(err)
}

func (s *ServiceSuite) code() model.ShareCode {
	return s.list.ShareCode
}

func (s *ServiceSuite) TestAnonymousVisitorJoinsWithNewCharacter() {
	s.random.QueueUUID("visitor", "visitor-session")

	res, err := s.service.Join(s.ctx, identity.Credentials{}, model.JoinRequest{
		ShareCode:   s.code(),
		DisplayName: "Visitor",
		Character:   model.ByNewCharacterName{Name: "Knight sample"},
	})
	s.Require().NoError(err)

	s.Equal(model.PlayerID("visitor"), res.Player.ID)
	s.Equal("visitor-session", res.SessionToken)
	s.Equal(model.RoleMember, res.Membership.Role)
	s.Equal("Knight Sample", res.Membership.CharacterName)
	s.Len(res.Snapshot.List.Members, 2)
	s.Equal(0, res.Snapshot.Summary.TotalTracked)
	s.Len(res.Snapshot.Summary.PerCharacter, 2)

	again, err := s.resolver.Resolve(s.ctx, identity.Credentials{SessionToken: res.SessionToken})
	s.Require().NoError(err)
	s.Equal(res.Player.ID, again.ID)
}

func (s *ServiceSuite) TestInvalidShareCodeCreatesNoPlayer() {
	s.random.QueueUUID("visitor", "visitor-session")

	_, err := s.service.Join(s.ctx, identity.Credentials{}, model.JoinRequest{
		ShareCode: "WRONG234",
		Character: model.ByNewCharacterName{Name: "Knight Sample"},
	})
	s.ErrorIs(err, model.ErrInvalidShareCode)

	_, err = s.storage.GetPlayer(s.ctx, "visitor")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *ServiceSuite) TestExistingCharacterWithoutIdentityIsUnauthorized() {
	s.random.QueueUUID("visitor")

	_, err := s.service.Join(s.ctx, identity.Credentials{}, model.JoinRequest{
		ShareCode: s.code(),
		Character: model.ByCharacterID{ID: s.list.Members[0].CharacterID},
	})
	s.ErrorIs(err, model.ErrUnauthorized)

	_, err = s.storage.GetPlayer(s.ctx, "visitor")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *ServiceSuite) TestSessionPlayerJoinsWithExistingCharacter() {
	member, err := s.resolver.CreateAnonymous(s.ctx, "Member")
	s.Require().NoError(err)
	s.Require().NoError(s.storage.CreateCharacter(s.ctx, &model.Character{
		ID: "druid", PlayerID: member.ID, Name: "Druid Sample", World: "Antica",
	}))

	res, err := s.service.Join(s.ctx, identity.Credentials{SessionToken: member.SessionToken}, model.JoinRequest{
		ShareCode: s.code(),
		Character: model.ByCharacterID{ID: "druid"},
	})
	s.Require().NoError(err)
	s.Empty(res.SessionToken)
	s.Equal(member.ID, res.Player.ID)
	s.Equal(model.CharacterID("druid"), res.Membership.CharacterID)
}

func (s *ServiceSuite) TestInvalidBearerNeverFallsBackToSession() {
	member, err := s.resolver.CreateAnonymous(s.ctx, "Member")
	s.Require().NoError(err)

	_, err = s.service.Join(s.ctx, identity.Credentials{BearerToken: "forged", SessionToken: member.SessionToken}, model.JoinRequest{
		ShareCode: s.code(),
		Character: model.ByNewCharacterName{Name: "Knight Sample"},
	})
	s.ErrorIs(err, model.ErrUnauthorized)
}

func (s *ServiceSuite) TestNewCharacterFromOtherWorldIsNotRegistered() {
	_, err := s.service.Join(s.ctx, identity.Credentials{}, model.JoinRequest{
		ShareCode: s.code(),
		Character: model.ByNewCharacterName{Name: "Wanderer Sample"},
	})
	s.ErrorIs(err, model.ErrWorldMismatch)

	_, err = s.storage.GetCharacterByName(s.ctx, "Secura", "Wanderer Sample")
	s.ErrorIs(err, model.ErrCharacterNotFound)
}

func (s *ServiceSuite) TestFullListReportsFullForNewCharacter() {
	for _, name := range []string{"Knight Sample", "Druid Sample", "Paladin Sample", "Sorcerer Sample"} {
		_, err := s.service.Join(s.ctx, identity.Credentials{}, model.JoinRequest{
			ShareCode: s.code(),
			Character: model.ByNewCharacterName{Name: name},
		})
		s.Require().NoError(err)
	}
	calls := s.lookup.Calls()

	_, err := s.service.Join(s.ctx, identity.Credentials{}, model.JoinRequest{
		ShareCode: s.code(),
		Character: model.ByNewCharacterName{Name: "Wanderer Sample"},
	})
	s.ErrorIs(err, model.ErrListFull)
	s.Equal(calls, s.lookup.Calls())
}

func (s *ServiceSuite) TestJoinRequestValidation() {
	_, err := s.service.Join(s.ctx, identity.Credentials{}, model.JoinRequest{ShareCode: s.code()})
	s.ErrorIs(err, model.ErrValidation)

	_, err = s.service.Join(s.ctx, identity.Credentials{}, model.JoinRequest{Character: model.ByNewCharacterName{Name: "Knight Sample"}})
	s.ErrorIs(err, model.ErrValidation)
}

func (s *ServiceSuite) TestFailedLookupCreatesNoPlayer() {
	for _, name := range []string{"Nobody Here", "Wanderer Sample", "nobody"} {
		s.random.QueueUUID("orphan", "orphan-session")

		_, err := s.service.Join(s.ctx, identity.Credentials{}, model.JoinRequest{
			ShareCode: s.code(),
			Character: model.ByNewCharacterName{Name: name},
		})
		s.Require().Error(err, name)

		_, err = s.storage.GetPlayer(s.ctx, "orphan")
		s.ErrorIs(err, model.ErrPlayerNotFound, name)
		s.random.Reset()
	}
}

func (s *ServiceSuite) TestLookupTimeoutCreatesNoPlayer() {
	s.lookup.SetDelay(time.Second)
	s.random.QueueUUID("orphan", "orphan-session")

	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Millisecond)
	defer cancel()
	_, err := s.service.Join(ctx, identity.Credentials{}, model.JoinRequest{
		ShareCode: s.code(),
		Character: model.ByNewCharacterName{Name: "Knight Sample"},
	})
	s.ErrorIs(err, model.ErrLookupTimeout)

	_, err = s.storage.GetPlayer(s.ctx, "orphan")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *ServiceSuite) TestNameOwnedByAnotherPlayerCreatesNoPlayer() {
	_, err := s.service.Join(s.ctx, identity.Credentials{}, model.JoinRequest{
		ShareCode: s.code(),
		Character: model.ByNewCharacterName{Name: "Knight Sample"},
	})
	s.Require().NoError(err)
	other := s.createOtherList()
	s.random.QueueUUID("orphan", "orphan-session")

	_, err = s.service.Join(s.ctx, identity.Credentials{}, model.JoinRequest{
		ShareCode: other.ShareCode,
		Character: model.ByNewCharacterName{Name: "Knight Sample"},
	})
	s.ErrorIs(err, model.ErrCharacterOwned)
	s.ErrorIs(err, model.ErrUnauthorized)

	_, err = s.storage.GetPlayer(s.ctx, "orphan")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *ServiceSuite) TestMemberJoiningAgainIsAlreadyMember() {
	owner := identity.Credentials{SessionToken: s.owner.SessionToken}

	for _, name := range []string{"Wanderer Sample", "Druid Sample"} {
		calls := s.lookup.Calls()
		_, err := s.service.Join(s.ctx, owner, model.JoinRequest{
			ShareCode: s.code(),
			Character: model.ByNewCharacterName{Name: name},
		})
		s.ErrorIs(err, model.ErrAlreadyMember, name)
		s.Equal(calls, s.lookup.Calls(), name)
	}

	p, err := s.storage.GetPlayer(s.ctx, s.owner.ID)
	s.Require().NoError(err)
	s.Len(p.Characters, 1)
}

func (s *ServiceSuite) TestMemberJoiningWithOwnCharacterIsAlreadyMember() {
	_, err := s.service.Join(s.ctx, identity.Credentials{SessionToken: s.owner.SessionToken}, model.JoinRequest{
		ShareCode: s.code(),
		Character: model.ByCharacterID{ID: s.list.Members[0].CharacterID},
	})
	s.ErrorIs(err, model.ErrAlreadyMember)
}

// createOtherList makes a second Antica list owned by a fresh player
func (s *ServiceSuite) createOtherList() *model.List {
	owner, err := s.resolver.CreateAnonymous(s.ctx, "Other")
	s.Require().NoError(err)
	l, err := s.lists.CreateList(s.ctx, owner.ID, model.CreateListRequest{
		Name:      "Second Hunt",
		World:     "Antica",
		Character: model.ByNewCharacterName{Name: "Paladin Sample"},
	})
	s.Require().NoError(err)
	return l
}
