package memory

import (
	"context"
	"sync"

	"github.com/mcoot/soulpit/internal/model"
	"github.com/mcoot/soulpit/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// A single lock guards every map, so each method is one atomic step.
type Storage struct {
	mu sync.RWMutex

	players        map[model.PlayerID]*model.Player
	sessionIndex   map[string]model.PlayerID
	credentials    map[string]*model.Credential // by username key
	characters     map[model.CharacterID]*model.Character
	characterNames map[string]model.CharacterID // by CharacterNameKey
	lists          map[model.ListID]*model.List
	shareCodes     map[model.ShareCode]model.ListID
	collections    map[model.CharacterID]*model.Collection
	creatures      []model.Creature
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:        make(map[model.PlayerID]*model.Player),
		sessionIndex:   make(map[string]model.PlayerID),
		credentials:    make(map[string]*model.Credential),
		characters:     make(map[model.CharacterID]*model.Character),
		characterNames: make(map[string]model.CharacterID),
		lists:          make(map[model.ListID]*model.List),
		shareCodes:     make(map[model.ShareCode]model.ListID),
		collections:    make(map[model.CharacterID]*model.Collection),
	}
}

var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.players[player.ID]; exists {
		return model.ErrIntegrity
	}
	if player.SessionToken != "" {
		if _, used := s.sessionIndex[player.SessionToken]; used {
			return model.ErrSessionTokenUsed
		}
		s.sessionIndex[player.SessionToken] = player.ID
	}
	s.players[player.ID] = player.Clone()
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return player.Clone(), nil
}

func (s *Storage) GetPlayerBySessionToken(ctx context.Context, token string) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.sessionIndex[token]
	if !ok || token == "" {
		return nil, model.ErrPlayerNotFound
	}
	return s.players[id].Clone(), nil
}

func (s *Storage) UpdatePlayer(ctx context.Context, id model.PlayerID, fn storage.PlayerUpdateFunc) (*model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	updated := current.Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}
	current.MainCharacterID = updated.MainCharacterID
	current.UpdatedAt = updated.UpdatedAt
	return current.Clone(), nil
}

// Credential operations

func (s *Storage) CreateRegisteredPlayer(ctx context.Context, player *model.Player, cred *model.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := model.UsernameKey(cred.Username)
	if _, taken := s.credentials[key]; taken {
		return model.ErrCredentialTaken
	}
	if _, exists := s.players[player.ID]; exists {
		return model.ErrIntegrity
	}
	p := player.Clone()
	p.SessionToken = ""
	s.players[p.ID] = p
	c := *cred
	c.PlayerID = p.ID
	s.credentials[key] = &c
	return nil
}

func (s *Storage) MergeCredential(ctx context.Context, playerID model.PlayerID, cred *model.Credential) (*model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	player, ok := s.players[playerID]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	key := model.UsernameKey(cred.Username)
	if existing, taken := s.credentials[key]; taken {
		if existing.PlayerID == playerID {
			return nil, model.ErrNotAnonymous
		}
		return nil, model.ErrCredentialTaken
	}
	if !player.IsAnonymous() {
		return nil, model.ErrNotAnonymous
	}

	delete(s.sessionIndex, player.SessionToken)
	player.SessionToken = ""
	player.Username = cred.Username
	player.UpdatedAt = cred.CreatedAt
	c := *cred
	c.PlayerID = playerID
	s.credentials[key] = &c
	return player.Clone(), nil
}

func (s *Storage) GetCredentialByUsername(ctx context.Context, username string) (*model.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.credentials[model.UsernameKey(username)]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	c := *cred
	return &c, nil
}

// Character operations

func (s *Storage) CreateCharacter(ctx context.Context, character *model.Character) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := model.CharacterNameKey(character.World, character.Name)
	if _, taken := s.characterNames[key]; taken {
		return model.ErrCharacterExists
	}
	owner, ok := s.players[character.PlayerID]
	if !ok {
		return model.ErrPlayerNotFound
	}
	c := *character
	s.characters[c.ID] = &c
	s.characterNames[key] = c.ID
	owner.Characters = append(owner.Characters, c.ID)
	return nil
}

func (s *Storage) GetCharacter(ctx context.Context, id model.CharacterID) (*model.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.characters[id]
	if !ok {
		return nil, model.ErrCharacterNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Storage) GetCharacterByName(ctx context.Context, world, name string) (*model.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.characterNames[model.CharacterNameKey(world, name)]
	if !ok {
		return nil, model.ErrCharacterNotFound
	}
	cp := *s.characters[id]
	return &cp, nil
}

func (s *Storage) ListCharactersByPlayer(ctx context.Context, playerID model.PlayerID) ([]*model.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[playerID]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	result := make([]*model.Character, 0, len(player.Characters))
	for _, id := range player.Characters {
		if c, ok := s.characters[id]; ok {
			cp := *c
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *Storage) UpdateCharacter(ctx context.Context, id model.CharacterID, fn storage.CharacterUpdateFunc) (*model.Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.characters[id]
	if !ok {
		return nil, model.ErrCharacterNotFound
	}
	updated := *current
	if err := fn(&updated); err != nil {
		return nil, err
	}
	current.Level = updated.Level
	current.Vocation = updated.Vocation
	current.UpdatedAt = updated.UpdatedAt
	cp := *current
	return &cp, nil
}

func (s *Storage) DeleteCharacter(ctx context.Context, id model.CharacterID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.characters[id]
	if !ok {
		return model.ErrCharacterNotFound
	}
	for _, l := range s.lists {
		if l.MemberByCharacter(id) != nil {
			return model.ErrCharacterInUse
		}
	}

	delete(s.characters, id)
	delete(s.characterNames, model.CharacterNameKey(c.World, c.Name))
	delete(s.collections, id)
	if owner, ok := s.players[c.PlayerID]; ok {
		kept := owner.Characters[:0]
		for _, cid := range owner.Characters {
			if cid != id {
				kept = append(kept, cid)
			}
		}
		owner.Characters = kept
		if owner.MainCharacterID == id {
			owner.MainCharacterID = ""
		}
	}
	return nil
}

// Collection operations

func (s *Storage) GetCollection(ctx context.Context, id model.CharacterID) (*model.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.characters[id]; !ok {
		return nil, model.ErrCharacterNotFound
	}
	if c, ok := s.collections[id]; ok {
		return c.Clone(), nil
	}
	return model.NewCollection(id), nil
}

func (s *Storage) UpdateCollection(ctx context.Context, id model.CharacterID, fn storage.CollectionUpdateFunc) (*model.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.characters[id]; !ok {
		return nil, model.ErrCharacterNotFound
	}
	current, ok := s.collections[id]
	if !ok {
		current = model.NewCollection(id)
	}
	updated := current.Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}
	updated.CharacterID = id
	s.collections[id] = updated
	return updated.Clone(), nil
}

func (s *Storage) TopCollections(ctx context.Context, limit, offset int) ([]model.CollectionScore, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var scores []model.CollectionScore
	for id, c := range s.collections {
		if len(c.Unlocked) == 0 {
			continue
		}
		ch := s.characters[id]
		scores = append(scores, model.CollectionScore{
			CharacterID: id,
			Name:        ch.Name,
			World:       ch.World,
			Count:       len(c.Unlocked),
		})
	}
	storage.SortScores(scores)
	return storage.Page(scores, limit, offset), len(scores), nil
}

// List operations

func (s *Storage) CreateList(ctx context.Context, list *model.List) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.shareCodes[list.ShareCode]; taken {
		return model.ErrShareCodeTaken
	}
	if _, exists := s.lists[list.ID]; exists {
		return model.ErrIntegrity
	}
	if err := list.CheckInvariants(); err != nil {
		return err
	}
	for _, cid := range list.CharacterIDs() {
		if _, ok := s.characters[cid]; !ok {
			return model.ErrCharacterNotFound
		}
	}
	s.lists[list.ID] = list.Clone()
	s.shareCodes[list.ShareCode] = list.ID
	return nil
}

func (s *Storage) GetList(ctx context.Context, id model.ListID) (*model.List, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lists[id]
	if !ok {
		return nil, model.ErrListNotFound
	}
	return l.Clone(), nil
}

func (s *Storage) GetListByShareCode(ctx context.Context, code model.ShareCode) (*model.List, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.shareCodes[code]
	if !ok {
		return nil, model.ErrListNotFound
	}
	return s.lists[id].Clone(), nil
}

func (s *Storage) UpdateList(ctx context.Context, id model.ListID, fn storage.ListUpdateFunc) (*model.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.lists[id]
	if !ok {
		return nil, model.ErrListNotFound
	}

	updated := current.Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}
	if err := storage.CheckUpdatedList(current, updated); err != nil {
		return nil, err
	}
	if updated.ShareCode != current.ShareCode {
		if _, taken := s.shareCodes[updated.ShareCode]; taken {
			return nil, model.ErrShareCodeTaken
		}
	}
	for _, cid := range storage.DiffMemberships(current, updated).AddedCharacters {
		if _, ok := s.characters[cid]; !ok {
			return nil, model.ErrCharacterNotFound
		}
	}

	if updated.ShareCode != current.ShareCode {
		delete(s.shareCodes, current.ShareCode)
		s.shareCodes[updated.ShareCode] = id
	}
	s.lists[id] = updated
	return updated.Clone(), nil
}

func (s *Storage) ListListsForPlayer(ctx context.Context, playerID model.PlayerID) ([]*model.List, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*model.List
	for _, l := range s.lists {
		if l.IsMember(playerID) {
			result = append(result, l.Clone())
		}
	}
	storage.SortLists(result)
	return result, nil
}

// Creature catalog operations

func (s *Storage) GetCreatures(ctx context.Context) ([]model.Creature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Creature(nil), s.creatures...), nil
}

func (s *Storage) SaveCreatures(ctx context.Context, creatures []model.Creature) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creatures = append([]model.Creature(nil), creatures...)
	return nil
}
