package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/soulpit/internal/model"
	"github.com/mcoot/soulpit/internal/storage/memory"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.service = New(s.storage)
	s.ctx = context.Background()
}

func (s *ServiceSuite) TestIsNotLoadedByDefault() {
	s.False(s.service.IsLoaded())
	s.Equal(0, s.service.Count())
	_, err := s.service.Get("rat")
	s.ErrorIs(err, model.ErrCatalogNotLoaded)
}

func (s *ServiceSuite) TestLoadDefault() {
	s.Require().NoError(s.service.LoadDefault(s.ctx))

	s.True(s.service.IsLoaded())
	s.True(s.service.IsValid("rat"))
	s.True(s.service.IsValid("dragon"))
	s.False(s.service.IsValid("unicorn"))

	rat, err := s.service.Get("rat")
	s.Require().NoError(err)
	s.Equal("Rat", rat.Name)
	s.Equal("Rats", rat.PluralName)

	stored, err := s.storage.GetCreatures(s.ctx)
	s.Require().NoError(err)
	s.Len(stored, s.service.Count())
}

func (s *ServiceSuite) TestGetUnknownCreatureIsValidationError() {
	s.Require().NoError(s.service.LoadCreatures([]model.Creature{{ID: "rat", Name: "Rat"}}))

	_, err := s.service.Get("unicorn")
	s.ErrorIs(err, model.ErrValidation)
}

func (s *ServiceSuite) TestLoadCreaturesRejectsDuplicates() {
	err := s.service.LoadCreatures([]model.Creature{{ID: "rat"}, {ID: "rat"}})
	s.Error(err)
	s.False(s.service.IsLoaded())
}

func (s *ServiceSuite) TestLoadCreaturesRejectsMissingID() {
	s.Error(s.service.LoadCreatures([]model.Creature{{Name: "Nameless"}}))
}

func (s *ServiceSuite) TestAllKeepsFileOrder() {
	s.Require().NoError(s.service.LoadCreatures([]model.Creature{
		{ID: "troll", Name: "Troll"},
		{ID: "rat", Name: "Rat"},
	}))

	all := s.service.All()
	s.Require().Len(all, 2)
	s.Equal(model.CreatureID("troll"), all[0].ID)
	s.Equal(model.CreatureID("rat"), all[1].ID)
}

func (s *ServiceSuite) TestLoadFromFile() {
	path := filepath.Join(s.T().TempDir(), "creatures.yaml")
	content := "creatures:\n  - id: rotworm\n    name: Rotworm\n    plural_name: Rotworms\n"
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o600))

	s.Require().NoError(s.service.LoadFromFile(s.ctx, path))
	s.Equal(1, s.service.Count())
	s.True(s.service.IsValid("rotworm"))
}

func (s *ServiceSuite) TestLoadFromFileMissing() {
	s.Error(s.service.LoadFromFile(s.ctx, filepath.Join(s.T().TempDir(), "missing.yaml")))
}

func (s *ServiceSuite) TestLoadFromStorage() {
	s.Require().NoError(s.storage.SaveCreatures(s.ctx, []model.Creature{{ID: "rat", Name: "Rat"}}))

	s.Require().NoError(s.service.LoadFromStorage(s.ctx))
	s.True(s.service.IsValid("rat"))
}

func (s *ServiceSuite) TestLoadFromEmptyStorage() {
	s.ErrorIs(s.service.LoadFromStorage(s.ctx), model.ErrCatalogNotLoaded)
}

func (s *ServiceSuite) TestParseInvalidYAML() {
	_, err := Parse([]byte("creatures: [unterminated"))
	s.Error(err)
}
