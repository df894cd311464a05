// Package sqlite provides a SQLite-backed storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/mcoot/soulpit/internal/model"
	"github.com/mcoot/soulpit/internal/storage"
	"github.com/mcoot/soulpit/internal/storage/sqlite/migrations"
)

// Store persists soul pit state in SQLite.
// Writes run in BEGIN IMMEDIATE transactions, so concurrent writers queue
// on the database lock instead of failing on upgrade.
type Store struct {
	db *sql.DB
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// Open opens a SQLite store and applies embedded migrations
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the SQLite handle
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var _ storage.Storage = (*Store)(nil)

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// constraintViolation reports whether err is a UNIQUE or PRIMARY KEY
// violation on the given table.column
func constraintViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
		default:
			return false
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") && strings.Contains(message, column)
}

// integrity wraps an unexpected constraint failure
func integrity(op string, err error) error {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code()&0xff == sqlite3lib.SQLITE_CONSTRAINT {
		return fmt.Errorf("%w: %s: %v", model.ErrIntegrity, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Player operations

const playerColumns = `id, username, COALESCE(session_token, ''), main_character_id, created_at, updated_at`

func nullableToken(token string) any {
	if token == "" {
		return nil
	}
	return token
}

func (s *Store) CreatePlayer(ctx context.Context, player *model.Player) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO players (id, username, session_token, main_character_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(player.ID), player.Username, nullableToken(player.SessionToken),
		string(player.MainCharacterID), toNanos(player.CreatedAt), toNanos(player.UpdatedAt),
	)
	if constraintViolation(err, "players.session_token") {
		return model.ErrSessionTokenUsed
	}
	if err != nil {
		return integrity("create player", err)
	}
	return nil
}

func loadPlayer(ctx context.Context, q queryer, where string, arg any) (*model.Player, error) {
	var (
		p                    model.Player
		id, main             string
		createdAt, updatedAt int64
	)
	err := q.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE `+where, arg).
		Scan(&id, &p.Username, &p.SessionToken, &main, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get player: %w", err)
	}
	p.ID = model.PlayerID(id)
	p.MainCharacterID = model.CharacterID(main)
	p.CreatedAt = fromNanos(createdAt)
	p.UpdatedAt = fromNanos(updatedAt)

	rows, err := q.QueryContext(ctx, `SELECT id FROM characters WHERE player_id = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("list player characters: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cid string
		if err := rows.Scan(&cid); err != nil {
			return nil, fmt.Errorf("scan player character: %w", err)
		}
		p.Characters = append(p.Characters, model.CharacterID(cid))
	}
	return &p, rows.Err()
}

func (s *Store) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return loadPlayer(ctx, s.db, "id = ?", string(id))
}

func (s *Store) GetPlayerBySessionToken(ctx context.Context, token string) (*model.Player, error) {
	if token == "" {
		return nil, model.ErrPlayerNotFound
	}
	return loadPlayer(ctx, s.db, "session_token = ?", token)
}

func (s *Store) UpdatePlayer(ctx context.Context, id model.PlayerID, fn storage.PlayerUpdateFunc) (*model.Player, error) {
	var result *model.Player
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		p, err := loadPlayer(ctx, tx, "id = ?", string(id))
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE players SET main_character_id = ?, updated_at = ? WHERE id = ?`,
			string(p.MainCharacterID), toNanos(p.UpdatedAt), string(id),
		); err != nil {
			return fmt.Errorf("update player: %w", err)
		}
		result, err = loadPlayer(ctx, tx, "id = ?", string(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Credential operations

func insertCredential(ctx context.Context, tx *sql.Tx, playerID model.PlayerID, cred *model.Credential) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO credentials (username_key, player_id, username, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		model.UsernameKey(cred.Username), string(playerID), cred.Username, cred.PasswordHash,
		toNanos(cred.CreatedAt), toNanos(cred.UpdatedAt),
	)
	if constraintViolation(err, "credentials.username_key") {
		return model.ErrCredentialTaken
	}
	if constraintViolation(err, "credentials.player_id") {
		return model.ErrNotAnonymous
	}
	if err != nil {
		return integrity("insert credential", err)
	}
	return nil
}

func (s *Store) CreateRegisteredPlayer(ctx context.Context, player *model.Player, cred *model.Credential) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO players (id, username, session_token, main_character_id, created_at, updated_at)
			 VALUES (?, ?, NULL, ?, ?, ?)`,
			string(player.ID), player.Username, string(player.MainCharacterID),
			toNanos(player.CreatedAt), toNanos(player.UpdatedAt),
		); err != nil {
			return integrity("create player", err)
		}
		return insertCredential(ctx, tx, player.ID, cred)
	})
}

func (s *Store) MergeCredential(ctx context.Context, playerID model.PlayerID, cred *model.Credential) (*model.Player, error) {
	var result *model.Player
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		p, err := loadPlayer(ctx, tx, "id = ?", string(playerID))
		if err != nil {
			return err
		}
		var owner string
		err = tx.QueryRowContext(ctx,
			`SELECT player_id FROM credentials WHERE username_key = ?`, model.UsernameKey(cred.Username),
		).Scan(&owner)
		switch {
		case err == nil && owner == string(playerID):
			return model.ErrNotAnonymous
		case err == nil:
			return model.ErrCredentialTaken
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("check credential: %w", err)
		}
		if err := insertCredential(ctx, tx, playerID, cred); err != nil {
			return err
		}
		if !p.IsAnonymous() {
			return model.ErrNotAnonymous
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE players SET session_token = NULL, username = ?, updated_at = ? WHERE id = ?`,
			cred.Username, toNanos(cred.CreatedAt), string(playerID),
		); err != nil {
			return fmt.Errorf("merge player: %w", err)
		}
		result, err = loadPlayer(ctx, tx, "id = ?", string(playerID))
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) GetCredentialByUsername(ctx context.Context, username string) (*model.Credential, error) {
	var (
		c                    model.Credential
		playerID             string
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT player_id, username, password_hash, created_at, updated_at FROM credentials WHERE username_key = ?`,
		model.UsernameKey(username),
	).Scan(&playerID, &c.Username, &c.PasswordHash, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}
	c.PlayerID = model.PlayerID(playerID)
	c.CreatedAt = fromNanos(createdAt)
	c.UpdatedAt = fromNanos(updatedAt)
	return &c, nil
}

// Character operations

const characterColumns = `id, player_id, name, world, level, vocation, created_at, updated_at`

func scanCharacter(row interface{ Scan(...any) error }) (*model.Character, error) {
	var (
		c                    model.Character
		id, playerID         string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&id, &playerID, &c.Name, &c.World, &c.Level, &c.Vocation, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.ID = model.CharacterID(id)
	c.PlayerID = model.PlayerID(playerID)
	c.CreatedAt = fromNanos(createdAt)
	c.UpdatedAt = fromNanos(updatedAt)
	return &c, nil
}

func loadCharacter(ctx context.Context, q queryer, where string, arg any) (*model.Character, error) {
	c, err := scanCharacter(q.QueryRowContext(ctx, `SELECT `+characterColumns+` FROM characters WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrCharacterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get character: %w", err)
	}
	return c, nil
}

func (s *Store) CreateCharacter(ctx context.Context, character *model.Character) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := loadPlayer(ctx, tx, "id = ?", string(character.PlayerID)); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO characters (id, player_id, name, world, name_key, level, vocation, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(character.ID), string(character.PlayerID), character.Name, character.World,
			model.CharacterNameKey(character.World, character.Name), character.Level, character.Vocation,
			toNanos(character.CreatedAt), toNanos(character.UpdatedAt),
		)
		if constraintViolation(err, "characters.name_key") {
			return model.ErrCharacterExists
		}
		if err != nil {
			return integrity("create character", err)
		}
		return nil
	})
}

func (s *Store) GetCharacter(ctx context.Context, id model.CharacterID) (*model.Character, error) {
	return loadCharacter(ctx, s.db, "id = ?", string(id))
}

func (s *Store) GetCharacterByName(ctx context.Context, world, name string) (*model.Character, error) {
	return loadCharacter(ctx, s.db, "name_key = ?", model.CharacterNameKey(world, name))
}

func (s *Store) ListCharactersByPlayer(ctx context.Context, playerID model.PlayerID) ([]*model.Character, error) {
	if _, err := loadPlayer(ctx, s.db, "id = ?", string(playerID)); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE player_id = ? ORDER BY rowid`, string(playerID))
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	defer rows.Close()
	var result []*model.Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan character: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *Store) UpdateCharacter(ctx context.Context, id model.CharacterID, fn storage.CharacterUpdateFunc) (*model.Character, error) {
	var result *model.Character
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		c, err := loadCharacter(ctx, tx, "id = ?", string(id))
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE characters SET level = ?, vocation = ?, updated_at = ? WHERE id = ?`,
			c.Level, c.Vocation, toNanos(c.UpdatedAt), string(id),
		); err != nil {
			return fmt.Errorf("update character: %w", err)
		}
		result, err = loadCharacter(ctx, tx, "id = ?", string(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) DeleteCharacter(ctx context.Context, id model.CharacterID) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		c, err := loadCharacter(ctx, tx, "id = ?", string(id))
		if err != nil {
			return err
		}
		var refs int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM memberships WHERE character_id = ?`, string(id),
		).Scan(&refs); err != nil {
			return fmt.Errorf("count memberships: %w", err)
		}
		if refs > 0 {
			return model.ErrCharacterInUse
		}
		if err := deleteCollection(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM characters WHERE id = ?`, string(id)); err != nil {
			return integrity("delete character", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE players SET main_character_id = '' WHERE id = ? AND main_character_id = ?`,
			string(c.PlayerID), string(id),
		); err != nil {
			return fmt.Errorf("clear main character: %w", err)
		}
		return nil
	})
}

// Collection operations

func loadCollection(ctx context.Context, q queryer, id model.CharacterID) (*model.Collection, error) {
	if _, err := loadCharacter(ctx, q, "id = ?", string(id)); err != nil {
		return nil, err
	}
	c := model.NewCollection(id)
	var updatedAt int64
	err := q.QueryRowContext(ctx,
		`SELECT updated_at FROM collections WHERE character_id = ?`, string(id),
	).Scan(&updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}
	c.UpdatedAt = fromNanos(updatedAt)

	rows, err := q.QueryContext(ctx,
		`SELECT creature_id, kind FROM collection_creatures WHERE character_id = ? ORDER BY position`, string(id))
	if err != nil {
		return nil, fmt.Errorf("list collection creatures: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var creatureID, kind string
		if err := rows.Scan(&creatureID, &kind); err != nil {
			return nil, fmt.Errorf("scan collection creature: %w", err)
		}
		if kind == "unlocked" {
			c.Unlocked = append(c.Unlocked, model.CreatureID(creatureID))
		} else {
			c.Suggested = append(c.Suggested, model.CreatureID(creatureID))
		}
	}
	return c, rows.Err()
}

func deleteCollection(ctx context.Context, tx *sql.Tx, id model.CharacterID) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM collection_creatures WHERE character_id = ?`, string(id)); err != nil {
		return fmt.Errorf("clear collection creatures: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE character_id = ?`, string(id)); err != nil {
		return fmt.Errorf("clear collection: %w", err)
	}
	return nil
}

func writeCollection(ctx context.Context, tx *sql.Tx, c *model.Collection) error {
	if err := deleteCollection(ctx, tx, c.CharacterID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO collections (character_id, unlocked_count, updated_at) VALUES (?, ?, ?)`,
		string(c.CharacterID), len(c.Unlocked), toNanos(c.UpdatedAt),
	); err != nil {
		return integrity("insert collection", err)
	}
	position := 0
	insert := func(ids []model.CreatureID, kind string) error {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO collection_creatures (character_id, creature_id, kind, position) VALUES (?, ?, ?, ?)`,
				string(c.CharacterID), string(id), kind, position,
			); err != nil {
				return integrity("insert collection creature", err)
			}
			position++
		}
		return nil
	}
	if err := insert(c.Unlocked, "unlocked"); err != nil {
		return err
	}
	return insert(c.Suggested, "suggested")
}

func (s *Store) GetCollection(ctx context.Context, id model.CharacterID) (*model.Collection, error) {
	return loadCollection(ctx, s.db, id)
}

func (s *Store) UpdateCollection(ctx context.Context, id model.CharacterID, fn storage.CollectionUpdateFunc) (*model.Collection, error) {
	var result *model.Collection
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		current, err := loadCollection(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(current); err != nil {
			return err
		}
		current.CharacterID = id
		if err := writeCollection(ctx, tx, current); err != nil {
			return err
		}
		result = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) TopCollections(ctx context.Context, limit, offset int) ([]model.CollectionScore, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM collections WHERE unlocked_count > 0`,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count collections: %w", err)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.name, c.world, k.unlocked_count
		 FROM collections k JOIN characters c ON c.id = k.character_id
		 WHERE k.unlocked_count > 0
		 ORDER BY k.unlocked_count DESC, k.character_id
		 LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("rank collections: %w", err)
	}
	defer rows.Close()
	var scores []model.CollectionScore
	for rows.Next() {
		var (
			score model.CollectionScore
			id    string
		)
		if err := rows.Scan(&id, &score.Name, &score.World, &score.Count); err != nil {
			return nil, 0, fmt.Errorf("scan score: %w", err)
		}
		score.CharacterID = model.CharacterID(id)
		scores = append(scores, score)
	}
	return scores, total, rows.Err()
}

// List operations

func loadList(ctx context.Context, q queryer, where string, arg any) (*model.List, error) {
	var (
		l                    model.List
		id, ownerID, code    string
		createdAt, updatedAt int64
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, name, description, world, owner_id, share_code, created_at, updated_at FROM lists WHERE `+where, arg,
	).Scan(&id, &l.Name, &l.Description, &l.World, &ownerID, &code, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrListNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get list: %w", err)
	}
	l.ID = model.ListID(id)
	l.OwnerID = model.PlayerID(ownerID)
	l.ShareCode = model.ShareCode(code)
	l.CreatedAt = fromNanos(createdAt)
	l.UpdatedAt = fromNanos(updatedAt)

	if l.Members, err = loadMembers(ctx, q, l.ID); err != nil {
		return nil, err
	}
	if l.SoulCores, err = loadCores(ctx, q, l.ID); err != nil {
		return nil, err
	}
	return &l, nil
}

func loadMembers(ctx context.Context, q queryer, listID model.ListID) ([]model.Membership, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT player_id, character_id, character_name, world, role, joined_at
		 FROM memberships WHERE list_id = ? ORDER BY position`, string(listID))
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()
	var members []model.Membership
	for rows.Next() {
		var (
			m                           model.Membership
			playerID, characterID, role string
			joinedAt                    int64
		)
		if err := rows.Scan(&playerID, &characterID, &m.CharacterName, &m.World, &role, &joinedAt); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		m.PlayerID = model.PlayerID(playerID)
		m.CharacterID = model.CharacterID(characterID)
		m.Role = model.MemberRole(role)
		m.JoinedAt = fromNanos(joinedAt)
		members = append(members, m)
	}
	return members, rows.Err()
}

func loadCores(ctx context.Context, q queryer, listID model.ListID) ([]model.SoulCore, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, creature_id, state, obtained_by_id, obtained_by_name, added_by, created_at, updated_at
		 FROM soul_cores WHERE list_id = ? ORDER BY position`, string(listID))
	if err != nil {
		return nil, fmt.Errorf("list soul cores: %w", err)
	}
	defer rows.Close()
	var cores []model.SoulCore
	for rows.Next() {
		var (
			c                                            model.SoulCore
			id, creatureID, state, byID, byName, addedBy string
			createdAt, updatedAt                         int64
		)
		if err := rows.Scan(&id, &creatureID, &state, &byID, &byName, &addedBy, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan soul core: %w", err)
		}
		c.ID = model.SoulCoreID(id)
		c.ListID = listID
		c.CreatureID = model.CreatureID(creatureID)
		c.State = model.CoreState(state)
		if byID != "" {
			c.ObtainedBy = &model.CharacterRef{ID: model.CharacterID(byID), Name: byName}
		}
		c.AddedBy = model.PlayerID(addedBy)
		c.CreatedAt = fromNanos(createdAt)
		c.UpdatedAt = fromNanos(updatedAt)
		cores = append(cores, c)
	}
	return cores, rows.Err()
}

// writeChildren replaces the memberships and soul cores of a list
func writeChildren(ctx context.Context, tx *sql.Tx, l *model.List) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM memberships WHERE list_id = ?`, string(l.ID)); err != nil {
		return fmt.Errorf("clear memberships: %w", err)
	}
	for i, m := range l.Members {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO memberships (list_id, player_id, character_id, character_name, world, role, position, joined_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			string(l.ID), string(m.PlayerID), string(m.CharacterID), m.CharacterName, m.World,
			string(m.Role), i, toNanos(m.JoinedAt),
		); err != nil {
			return integrity("insert membership", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM soul_cores WHERE list_id = ?`, string(l.ID)); err != nil {
		return fmt.Errorf("clear soul cores: %w", err)
	}
	for i, c := range l.SoulCores {
		var byID, byName string
		if c.ObtainedBy != nil {
			byID, byName = string(c.ObtainedBy.ID), c.ObtainedBy.Name
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO soul_cores (id, list_id, creature_id, state, obtained_by_id, obtained_by_name, added_by, position, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(c.ID), string(l.ID), string(c.CreatureID), string(c.State), byID, byName,
			string(c.AddedBy), i, toNanos(c.CreatedAt), toNanos(c.UpdatedAt),
		); err != nil {
			return integrity("insert soul core", err)
		}
	}
	return nil
}

func requireCharacters(ctx context.Context, tx *sql.Tx, ids []model.CharacterID) error {
	for _, id := range ids {
		if _, err := loadCharacter(ctx, tx, "id = ?", string(id)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) CreateList(ctx context.Context, list *model.List) error {
	if err := list.CheckInvariants(); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := requireCharacters(ctx, tx, list.CharacterIDs()); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO lists (id, name, description, world, owner_id, share_code, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			string(list.ID), list.Name, list.Description, list.World, string(list.OwnerID),
			string(list.ShareCode), toNanos(list.CreatedAt), toNanos(list.UpdatedAt),
		)
		if constraintViolation(err, "lists.share_code") {
			return model.ErrShareCodeTaken
		}
		if err != nil {
			return integrity("create list", err)
		}
		return writeChildren(ctx, tx, list)
	})
}

func (s *Store) GetList(ctx context.Context, id model.ListID) (*model.List, error) {
	return loadList(ctx, s.db, "id = ?", string(id))
}

func (s *Store) GetListByShareCode(ctx context.Context, code model.ShareCode) (*model.List, error) {
	return loadList(ctx, s.db, "share_code = ?", string(code))
}

func (s *Store) UpdateList(ctx context.Context, id model.ListID, fn storage.ListUpdateFunc) (*model.List, error) {
	var result *model.List
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		current, err := loadList(ctx, tx, "id = ?", string(id))
		if err != nil {
			return err
		}
		updated := current.Clone()
		if err := fn(updated); err != nil {
			return err
		}
		if err := storage.CheckUpdatedList(current, updated); err != nil {
			return err
		}
		if err := requireCharacters(ctx, tx, storage.DiffMemberships(current, updated).AddedCharacters); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE lists SET name = ?, description = ?, world = ?, share_code = ?, updated_at = ? WHERE id = ?`,
			updated.Name, updated.Description, updated.World, string(updated.ShareCode),
			toNanos(updated.UpdatedAt), string(id),
		)
		if constraintViolation(err, "lists.share_code") {
			return model.ErrShareCodeTaken
		}
		if err != nil {
			return integrity("update list", err)
		}
		if err := writeChildren(ctx, tx, updated); err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) ListListsForPlayer(ctx context.Context, playerID model.PlayerID) ([]*model.List, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT list_id FROM memberships WHERE player_id = ?`, string(playerID))
	if err != nil {
		return nil, fmt.Errorf("list player lists: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan list id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lists := make([]*model.List, 0, len(ids))
	for _, id := range ids {
		l, err := loadList(ctx, s.db, "id = ?", id)
		if err != nil {
			return nil, err
		}
		lists = append(lists, l)
	}
	storage.SortLists(lists)
	return lists, nil
}

// Creature catalog operations

func (s *Store) GetCreatures(ctx context.Context) ([]model.Creature, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, plural_name FROM creatures ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list creatures: %w", err)
	}
	defer rows.Close()
	var creatures []model.Creature
	for rows.Next() {
		var c model.Creature
		var id string
		if err := rows.Scan(&id, &c.Name, &c.PluralName); err != nil {
			return nil, fmt.Errorf("scan creature: %w", err)
		}
		c.ID = model.CreatureID(id)
		creatures = append(creatures, c)
	}
	return creatures, rows.Err()
}

func (s *Store) SaveCreatures(ctx context.Context, creatures []model.Creature) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM creatures`); err != nil {
			return fmt.Errorf("clear creatures: %w", err)
		}
		for i, c := range creatures {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO creatures (id, name, plural_name, position) VALUES (?, ?, ?, ?)`,
				string(c.ID), c.Name, c.PluralName, i,
			); err != nil {
				return integrity("insert creature", err)
			}
		}
		return nil
	})
}
