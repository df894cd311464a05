package redis

import (
	"fmt"

	"github.com/mcoot/soulpit/internal/model"
)

// Key prefix for all soul pit data
const keyPrefix = "soulpit"

// playerKey returns the Redis key for a Player
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// sessionIndexKey returns the Redis key for the session token -> player_id index
func sessionIndexKey(token string) string {
	return fmt.Sprintf("%s:idx:session:%s", keyPrefix, token)
}

// credentialKey returns the Redis key for a Credential, indexed by folded username
func credentialKey(username string) string {
	return fmt.Sprintf("%s:credential:%s", keyPrefix, model.UsernameKey(username))
}

// characterKey returns the Redis key for a Character
func characterKey(id model.CharacterID) string {
	return fmt.Sprintf("%s:character:%s", keyPrefix, id)
}

// characterNameIndexKey returns the Redis key for the world/name -> character_id index
func characterNameIndexKey(world, name string) string {
	return fmt.Sprintf("%s:idx:character_name:%s", keyPrefix, model.CharacterNameKey(world, name))
}

// characterListsIndexKey returns the Redis key for the SET of lists a character is a member of
func characterListsIndexKey(id model.CharacterID) string {
	return fmt.Sprintf("%s:idx:character_lists:%s", keyPrefix, id)
}

// collectionKey returns the Redis key for a character's Collection
func collectionKey(id model.CharacterID) string {
	return fmt.Sprintf("%s:collection:%s", keyPrefix, id)
}

// highscoresKey returns the Redis key for the ZSET ranking characters by
// collection size. Scores are negated counts, so ascending order puts the
// largest collection first and breaks ties by character ID.
func highscoresKey() string {
	return fmt.Sprintf("%s:idx:highscores", keyPrefix)
}

// listKey returns the Redis key for a List
func listKey(id model.ListID) string {
	return fmt.Sprintf("%s:list:%s", keyPrefix, id)
}

// shareCodeIndexKey returns the Redis key for the share code -> list_id index
func shareCodeIndexKey(code model.ShareCode) string {
	return fmt.Sprintf("%s:idx:share_code:%s", keyPrefix, code)
}

// playerListsIndexKey returns the Redis key for the SET of lists a player is a member of
func playerListsIndexKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:idx:player_lists:%s", keyPrefix, id)
}

// creaturesKey returns the Redis key for the creature catalog
func creaturesKey() string {
	return fmt.Sprintf("%s:creatures", keyPrefix)
}
