package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/soulpit/internal/model"
	"github.com/mcoot/soulpit/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
// Multi-key changes run as WATCH/MULTI transactions that are retried
// up to Config.MaxTxRetries times when a watched key changes.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	if cfg.MaxTxRetries <= 0 {
		cfg.MaxTxRetries = DefaultConfig().MaxTxRetries
	}
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

var _ storage.Storage = (*Storage)(nil)

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// getJSON loads and decodes a JSON value, returning notFound when the key is absent
func getJSON(ctx context.Context, g getter, key string, v any, notFound error) error {
	data, err := g.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return notFound
		}
		return err
	}
	return json.Unmarshal(data, v)
}

func exists(ctx context.Context, tx *redis.Tx, key string) (bool, error) {
	n, err := tx.Exists(ctx, key).Result()
	return n > 0, err
}

// transact runs fn in an optimistic transaction over keys, re-running it
// from scratch when another client modified a watched key first
func (s *Storage) transact(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for attempt := 0; attempt < s.cfg.MaxTxRetries; attempt++ {
		err := s.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return model.ErrTxConflict
}

// Player operations

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}

	keys := []string{playerKey(player.ID)}
	if player.SessionToken != "" {
		keys = append(keys, sessionIndexKey(player.SessionToken))
	}
	return s.transact(ctx, func(tx *redis.Tx) error {
		if found, err := exists(ctx, tx, playerKey(player.ID)); err != nil {
			return err
		} else if found {
			return model.ErrIntegrity
		}
		if player.SessionToken != "" {
			if used, err := exists(ctx, tx, sessionIndexKey(player.SessionToken)); err != nil {
				return err
			} else if used {
				return model.ErrSessionTokenUsed
			}
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, playerKey(player.ID), data, 0)
			if player.SessionToken != "" {
				pipe.Set(ctx, sessionIndexKey(player.SessionToken), string(player.ID), 0)
			}
			return nil
		})
		return err
	}, keys...)
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	var player model.Player
	if err := getJSON(ctx, s.client, playerKey(id), &player, model.ErrPlayerNotFound); err != nil {
		return nil, err
	}
	return &player, nil
}

func (s *Storage) GetPlayerBySessionToken(ctx context.Context, token string) (*model.Player, error) {
	if token == "" {
		return nil, model.ErrPlayerNotFound
	}
	id, err := s.client.Get(ctx, sessionIndexKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}
	return s.GetPlayer(ctx, model.PlayerID(id))
}

func (s *Storage) UpdatePlayer(ctx context.Context, id model.PlayerID, fn storage.PlayerUpdateFunc) (*model.Player, error) {
	var result *model.Player
	err := s.transact(ctx, func(tx *redis.Tx) error {
		var current model.Player
		if err := getJSON(ctx, tx, playerKey(id), &current, model.ErrPlayerNotFound); err != nil {
			return err
		}
		updated := current.Clone()
		if err := fn(updated); err != nil {
			return err
		}
		current.MainCharacterID = updated.MainCharacterID
		current.UpdatedAt = updated.UpdatedAt
		data, err := json.Marshal(&current)
		if err != nil {
			return err
		}
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, playerKey(id), data, 0)
			return nil
		}); err != nil {
			return err
		}
		result = &current
		return nil
	}, playerKey(id))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Credential operations

func (s *Storage) CreateRegisteredPlayer(ctx context.Context, player *model.Player, cred *model.Credential) error {
	p := player.Clone()
	p.SessionToken = ""
	playerData, err := json.Marshal(p)
	if err != nil {
		return err
	}
	c := *cred
	c.PlayerID = p.ID
	credData, err := json.Marshal(&c)
	if err != nil {
		return err
	}

	return s.transact(ctx, func(tx *redis.Tx) error {
		if taken, err := exists(ctx, tx, credentialKey(cred.Username)); err != nil {
			return err
		} else if taken {
			return model.ErrCredentialTaken
		}
		if found, err := exists(ctx, tx, playerKey(p.ID)); err != nil {
			return err
		} else if found {
			return model.ErrIntegrity
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, playerKey(p.ID), playerData, 0)
			pipe.Set(ctx, credentialKey(cred.Username), credData, 0)
			return nil
		})
		return err
	}, credentialKey(cred.Username), playerKey(p.ID))
}

func (s *Storage) MergeCredential(ctx context.Context, playerID model.PlayerID, cred *model.Credential) (*model.Player, error) {
	var result *model.Player
	err := s.transact(ctx, func(tx *redis.Tx) error {
		var existing model.Credential
		err := getJSON(ctx, tx, credentialKey(cred.Username), &existing, model.ErrPlayerNotFound)
		switch {
		case err == nil && existing.PlayerID == playerID:
			return model.ErrNotAnonymous
		case err == nil:
			return model.ErrCredentialTaken
		case !errors.Is(err, model.ErrPlayerNotFound):
			return err
		}

		var player model.Player
		if err := getJSON(ctx, tx, playerKey(playerID), &player, model.ErrPlayerNotFound); err != nil {
			return err
		}
		if !player.IsAnonymous() {
			return model.ErrNotAnonymous
		}

		oldToken := player.SessionToken
		player.SessionToken = ""
		player.Username = cred.Username
		player.UpdatedAt = cred.CreatedAt
		c := *cred
		c.PlayerID = playerID

		playerData, err := json.Marshal(&player)
		if err != nil {
			return err
		}
		credData, err := json.Marshal(&c)
		if err != nil {
			return err
		}
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, sessionIndexKey(oldToken))
			pipe.Set(ctx, playerKey(playerID), playerData, 0)
			pipe.Set(ctx, credentialKey(cred.Username), credData, 0)
			return nil
		}); err != nil {
			return err
		}
		result = &player
		return nil
	}, credentialKey(cred.Username), playerKey(playerID))
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Storage) GetCredentialByUsername(ctx context.Context, username string) (*model.Credential, error) {
	var cred model.Credential
	if err := getJSON(ctx, s.client, credentialKey(username), &cred, model.ErrPlayerNotFound); err != nil {
		return nil, err
	}
	return &cred, nil
}

// Character operations

func (s *Storage) CreateCharacter(ctx context.Context, character *model.Character) error {
	data, err := json.Marshal(character)
	if err != nil {
		return err
	}
	nameKey := characterNameIndexKey(character.World, character.Name)

	return s.transact(ctx, func(tx *redis.Tx) error {
		if taken, err := exists(ctx, tx, nameKey); err != nil {
			return err
		} else if taken {
			return model.ErrCharacterExists
		}
		var owner model.Player
		if err := getJSON(ctx, tx, playerKey(character.PlayerID), &owner, model.ErrPlayerNotFound); err != nil {
			return err
		}
		owner.Characters = append(owner.Characters, character.ID)
		ownerData, err := json.Marshal(&owner)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, characterKey(character.ID), data, 0)
			pipe.Set(ctx, nameKey, string(character.ID), 0)
			pipe.Set(ctx, playerKey(owner.ID), ownerData, 0)
			return nil
		})
		return err
	}, nameKey, playerKey(character.PlayerID))
}

func (s *Storage) GetCharacter(ctx context.Context, id model.CharacterID) (*model.Character, error) {
	var c model.Character
	if err := getJSON(ctx, s.client, characterKey(id), &c, model.ErrCharacterNotFound); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Storage) GetCharacterByName(ctx context.Context, world, name string) (*model.Character, error) {
	id, err := s.client.Get(ctx, characterNameIndexKey(world, name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrCharacterNotFound
		}
		return nil, err
	}
	return s.GetCharacter(ctx, model.CharacterID(id))
}

func (s *Storage) ListCharactersByPlayer(ctx context.Context, playerID model.PlayerID) ([]*model.Character, error) {
	player, err := s.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	result := make([]*model.Character, 0, len(player.Characters))
	for _, id := range player.Characters {
		c, err := s.GetCharacter(ctx, id)
		if errors.Is(err, model.ErrCharacterNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, nil
}

func (s *Storage) UpdateCharacter(ctx context.Context, id model.CharacterID, fn storage.CharacterUpdateFunc) (*model.Character, error) {
	var result *model.Character
	err := s.transact(ctx, func(tx *redis.Tx) error {
		var current model.Character
		if err := getJSON(ctx, tx, characterKey(id), &current, model.ErrCharacterNotFound); err != nil {
			return err
		}
		updated := current
		if err := fn(&updated); err != nil {
			return err
		}
		current.Level = updated.Level
		current.Vocation = updated.Vocation
		current.UpdatedAt = updated.UpdatedAt
		data, err := json.Marshal(&current)
		if err != nil {
			return err
		}
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, characterKey(id), data, 0)
			return nil
		}); err != nil {
			return err
		}
		result = &current
		return nil
	}, characterKey(id))
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Storage) DeleteCharacter(ctx context.Context, id model.CharacterID) error {
	return s.transact(ctx, func(tx *redis.Tx) error {
		var c model.Character
		if err := getJSON(ctx, tx, characterKey(id), &c, model.ErrCharacterNotFound); err != nil {
			return err
		}
		inUse, err := tx.SCard(ctx, characterListsIndexKey(id)).Result()
		if err != nil {
			return err
		}
		if inUse > 0 {
			return model.ErrCharacterInUse
		}

		if err := tx.Watch(ctx, playerKey(c.PlayerID)).Err(); err != nil {
			return err
		}
		var owner model.Player
		ownerErr := getJSON(ctx, tx, playerKey(c.PlayerID), &owner, model.ErrPlayerNotFound)
		if ownerErr != nil && !errors.Is(ownerErr, model.ErrPlayerNotFound) {
			return ownerErr
		}
		var ownerData []byte
		if ownerErr == nil {
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
			if ownerData, err = json.Marshal(&owner); err != nil {
				return err
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, characterKey(id), characterNameIndexKey(c.World, c.Name), collectionKey(id))
			pipe.ZRem(ctx, highscoresKey(), string(id))
			if ownerData != nil {
				pipe.Set(ctx, playerKey(owner.ID), ownerData, 0)
			}
			return nil
		})
		return err
	}, characterKey(id), characterListsIndexKey(id))
}

// Collection operations

func (s *Storage) GetCollection(ctx context.Context, id model.CharacterID) (*model.Collection, error) {
	if _, err := s.GetCharacter(ctx, id); err != nil {
		return nil, err
	}
	// an absent key leaves the collection empty
	c := model.NewCollection(id)
	if err := getJSON(ctx, s.client, collectionKey(id), c, nil); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Storage) UpdateCollection(ctx context.Context, id model.CharacterID, fn storage.CollectionUpdateFunc) (*model.Collection, error) {
	var result *model.Collection
	err := s.transact(ctx, func(tx *redis.Tx) error {
		if found, err := exists(ctx, tx, characterKey(id)); err != nil {
			return err
		} else if !found {
			return model.ErrCharacterNotFound
		}
		current := model.NewCollection(id)
		if err := getJSON(ctx, tx, collectionKey(id), current, nil); err != nil {
			return err
		}
		updated := current.Clone()
		if err := fn(updated); err != nil {
			return err
		}
		updated.CharacterID = id
		data, err := json.Marshal(updated)
		if err != nil {
			return err
		}
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, collectionKey(id), data, 0)
			if n := len(updated.Unlocked); n > 0 {
				pipe.ZAdd(ctx, highscoresKey(), redis.Z{Score: float64(-n), Member: string(id)})
			} else {
				pipe.ZRem(ctx, highscoresKey(), string(id))
			}
			return nil
		}); err != nil {
			return err
		}
		result = updated
		return nil
	}, characterKey(id), collectionKey(id))
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Storage) TopCollections(ctx context.Context, limit, offset int) ([]model.CollectionScore, int, error) {
	total, err := s.client.ZCard(ctx, highscoresKey()).Result()
	if err != nil {
		return nil, 0, err
	}
	if limit <= 0 || int64(offset) >= total {
		return nil, int(total), nil
	}
	entries, err := s.client.ZRangeWithScores(ctx, highscoresKey(), int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, 0, err
	}
	scores := make([]model.CollectionScore, 0, len(entries))
	for _, e := range entries {
		id := model.CharacterID(e.Member.(string))
		c, err := s.GetCharacter(ctx, id)
		if errors.Is(err, model.ErrCharacterNotFound) {
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		scores = append(scores, model.CollectionScore{
			CharacterID: id,
			Name:        c.Name,
			World:       c.World,
			Count:       int(-e.Score),
		})
	}
	return scores, int(total), nil
}

// List operations

func (s *Storage) CreateList(ctx context.Context, list *model.List) error {
	if err := list.CheckInvariants(); err != nil {
		return err
	}
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}

	return s.transact(ctx, func(tx *redis.Tx) error {
		if taken, err := exists(ctx, tx, shareCodeIndexKey(list.ShareCode)); err != nil {
			return err
		} else if taken {
			return model.ErrShareCodeTaken
		}
		if found, err := exists(ctx, tx, listKey(list.ID)); err != nil {
			return err
		} else if found {
			return model.ErrIntegrity
		}
		if err := requireCharacters(ctx, tx, list.CharacterIDs()); err != nil {
			return err
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, listKey(list.ID), data, 0)
			pipe.Set(ctx, shareCodeIndexKey(list.ShareCode), string(list.ID), 0)
			for _, m := range list.Members {
				pipe.SAdd(ctx, playerListsIndexKey(m.PlayerID), string(list.ID))
				pipe.SAdd(ctx, characterListsIndexKey(m.CharacterID), string(list.ID))
			}
			return nil
		})
		return err
	}, shareCodeIndexKey(list.ShareCode), listKey(list.ID))
}

// requireCharacters watches the given characters and fails if any is gone,
// so a concurrent delete aborts either the delete or this transaction
func requireCharacters(ctx context.Context, tx *redis.Tx, ids []model.CharacterID) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = characterKey(id)
	}
	if err := tx.Watch(ctx, keys...).Err(); err != nil {
		return err
	}
	n, err := tx.Exists(ctx, keys...).Result()
	if err != nil {
		return err
	}
	if int(n) != len(keys) {
		return model.ErrCharacterNotFound
	}
	return nil
}

func (s *Storage) GetList(ctx context.Context, id model.ListID) (*model.List, error) {
	var l model.List
	if err := getJSON(ctx, s.client, listKey(id), &l, model.ErrListNotFound); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Storage) GetListByShareCode(ctx context.Context, code model.ShareCode) (*model.List, error) {
	id, err := s.client.Get(ctx, shareCodeIndexKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrListNotFound
		}
		return nil, err
	}
	return s.GetList(ctx, model.ListID(id))
}

func (s *Storage) UpdateList(ctx context.Context, id model.ListID, fn storage.ListUpdateFunc) (*model.List, error) {
	var result *model.List
	err := s.transact(ctx, func(tx *redis.Tx) error {
		var current model.List
		if err := getJSON(ctx, tx, listKey(id), &current, model.ErrListNotFound); err != nil {
			return err
		}
		updated := current.Clone()
		if err := fn(updated); err != nil {
			return err
		}
		if err := storage.CheckUpdatedList(&current, updated); err != nil {
			return err
		}

		codeChanged := updated.ShareCode != current.ShareCode
		if codeChanged {
			if err := tx.Watch(ctx, shareCodeIndexKey(updated.ShareCode)).Err(); err != nil {
				return err
			}
			if taken, err := exists(ctx, tx, shareCodeIndexKey(updated.ShareCode)); err != nil {
				return err
			} else if taken {
				return model.ErrShareCodeTaken
			}
		}
		diff := storage.DiffMemberships(&current, updated)
		if err := requireCharacters(ctx, tx, diff.AddedCharacters); err != nil {
			return err
		}

		data, err := json.Marshal(updated)
		if err != nil {
			return err
		}
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, listKey(id), data, 0)
			if codeChanged {
				pipe.Del(ctx, shareCodeIndexKey(current.ShareCode))
				pipe.Set(ctx, shareCodeIndexKey(updated.ShareCode), string(id), 0)
			}
			for _, p := range diff.AddedPlayers {
				pipe.SAdd(ctx, playerListsIndexKey(p), string(id))
			}
			for _, p := range diff.RemovedPlayers {
				pipe.SRem(ctx, playerListsIndexKey(p), string(id))
			}
			for _, c := range diff.AddedCharacters {
				pipe.SAdd(ctx, characterListsIndexKey(c), string(id))
			}
			for _, c := range diff.RemovedCharacters {
				pipe.SRem(ctx, characterListsIndexKey(c), string(id))
			}
			return nil
		}); err != nil {
			return err
		}
		result = updated
		return nil
	}, listKey(id))
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Storage) ListListsForPlayer(ctx context.Context, playerID model.PlayerID) ([]*model.List, error) {
	ids, err := s.client.SMembers(ctx, playerListsIndexKey(playerID)).Result()
	if err != nil {
		return nil, err
	}
	lists := make([]*model.List, 0, len(ids))
	for _, id := range ids {
		l, err := s.GetList(ctx, model.ListID(id))
		if errors.Is(err, model.ErrListNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		lists = append(lists, l)
	}
	storage.SortLists(lists)
	return lists, nil
}

// Creature catalog operations

func (s *Storage) GetCreatures(ctx context.Context) ([]model.Creature, error) {
	var creatures []model.Creature
	err := getJSON(ctx, s.client, creaturesKey(), &creatures, nil)
	if err != nil {
		return nil, err
	}
	return creatures, nil
}

func (s *Storage) SaveCreatures(ctx context.Context, creatures []model.Creature) error {
	data, err := json.Marshal(creatures)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, creaturesKey(), data, 0).Err()
}
