package response

import (
	"time"

	"github.com/mcoot/soulpit/internal/model"
	"github.com/mcoot/soulpit/internal/services/auth"
	"github.com/mcoot/soulpit/internal/services/collection"
	"github.com/mcoot/soulpit/internal/services/join"
	"github.com/mcoot/soulpit/internal/services/list"
)

// Player represents a player in API responses
type Player struct {
	ID              string   `json:"id"`
	Username        string   `json:"username"`
	IsAnonymous     bool     `json:"is_anonymous"`
	Characters      []string `json:"characters"`
	MainCharacterID string   `json:"main_character_id,omitempty"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	chars := make([]string, 0, len(p.Characters))
	for _, c := range p.Characters {
		chars = append(chars, string(c))
	}
	return Player{
		ID:              string(p.ID),
		Username:        p.Username,
		IsAnonymous:     p.IsAnonymous(),
		Characters:      chars,
		MainCharacterID: string(p.MainCharacterID),
	}
}

// AnonymousResponse is returned when an anonymous player is created
type AnonymousResponse struct {
	Player       Player `json:"player"`
	SessionToken string `json:"session_token"`
}

// AuthResponse is the response for register and login
type AuthResponse struct {
	Player    Player    `json:"player"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Merged    bool      `json:"merged"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Player:    PlayerFromModel(s.Player),
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
		Merged:    s.Merged,
	}
}

// Character represents a game character
type Character struct {
	ID        string    `json:"id"`
	PlayerID  string    `json:"player_id"`
	Name      string    `json:"name"`
	World     string    `json:"world"`
	Level     int       `json:"level"`
	Vocation  string    `json:"vocation"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CharacterFromModel converts model.Character
func CharacterFromModel(c *model.Character) Character {
	return Character{
		ID:        string(c.ID),
		PlayerID:  string(c.PlayerID),
		Name:      c.Name,
		World:     c.World,
		Level:     c.Level,
		Vocation:  c.Vocation,
		UpdatedAt: c.UpdatedAt,
	}
}

// CharactersFromModel converts a slice of characters
func CharactersFromModel(cs []*model.Character) []Character {
	out := make([]Character, 0, len(cs))
	for _, c := range cs {
		out = append(out, CharacterFromModel(c))
	}
	return out
}

// Membership represents a list member
type Membership struct {
	PlayerID      string    `json:"player_id"`
	CharacterID   string    `json:"character_id"`
	CharacterName string    `json:"character_name"`
	World         string    `json:"world"`
	Role          string    `json:"role"`
	IsOwner       bool      `json:"is_owner"`
	JoinedAt      time.Time `json:"joined_at"`
}

// MembershipFromModel converts model.Membership
func MembershipFromModel(m model.Membership) Membership {
	return Membership{
		PlayerID:      string(m.PlayerID),
		CharacterID:   string(m.CharacterID),
		CharacterName: m.CharacterName,
		World:         m.World,
		Role:          string(m.Role),
		IsOwner:       m.IsOwner(),
		JoinedAt:      m.JoinedAt,
	}
}

// CharacterRef attributes a soul core
type CharacterRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SoulCore represents a tracked creature's soul core
type SoulCore struct {
	ID         string        `json:"id"`
	CreatureID string        `json:"creature_id"`
	State      string        `json:"state"`
	ObtainedBy *CharacterRef `json:"obtained_by,omitempty"`
	AddedBy    string        `json:"added_by"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// SoulCoreFromModel converts model.SoulCore
func SoulCoreFromModel(c *model.SoulCore) SoulCore {
	sc := SoulCore{
		ID:         string(c.ID),
		CreatureID: string(c.CreatureID),
		State:      string(c.State),
		AddedBy:    string(c.AddedBy),
		UpdatedAt:  c.UpdatedAt,
	}
	if c.ObtainedBy != nil {
		sc.ObtainedBy = &CharacterRef{ID: string(c.ObtainedBy.ID), Name: c.ObtainedBy.Name}
	}
	return sc
}

// CharacterProgress is one character's obtained count
type CharacterProgress struct {
	CharacterID   string `json:"character_id"`
	CharacterName string `json:"character_name"`
	Obtained      int    `json:"obtained"`
}

// Summary represents a list's progress
type Summary struct {
	TotalTracked  int                 `json:"total_tracked"`
	ObtainedCount int                 `json:"obtained_count"`
	UnlockedCount int                 `json:"unlocked_count"`
	PerCharacter  []CharacterProgress `json:"per_character"`
}

// SummaryFromModel converts model.Summary
func SummaryFromModel(s model.Summary) Summary {
	per := make([]CharacterProgress, 0, len(s.PerCharacter))
	for _, p := range s.PerCharacter {
		per = append(per, CharacterProgress{
			CharacterID:   string(p.CharacterID),
			CharacterName: p.CharacterName,
			Obtained:      p.Obtained,
		})
	}
	return Summary{
		TotalTracked:  s.TotalTracked,
		ObtainedCount: s.ObtainedCount,
		UnlockedCount: s.UnlockedCount,
		PerCharacter:  per,
	}
}

// List represents a soul-core list as seen by its members
type List struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	World       string       `json:"world,omitempty"`
	OwnerID     string       `json:"owner_id"`
	ShareCode   string       `json:"share_code"`
	Members     []Membership `json:"members"`
	SoulCores   []SoulCore   `json:"soul_cores"`
	Summary     Summary      `json:"summary"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// ListFromSnapshot converts a list and its summary
func ListFromSnapshot(snap list.Snapshot) List {
	l := snap.List
	members := make([]Membership, 0, len(l.Members))
	for _, m := range l.Members {
		members = append(members, MembershipFromModel(m))
	}
	cores := make([]SoulCore, 0, len(l.SoulCores))
	for i := range l.SoulCores {
		cores = append(cores, SoulCoreFromModel(&l.SoulCores[i]))
	}
	return List{
		ID:          string(l.ID),
		Name:        l.Name,
		Description: l.Description,
		World:       l.World,
		OwnerID:     string(l.OwnerID),
		ShareCode:   string(l.ShareCode),
		Members:     members,
		SoulCores:   cores,
		Summary:     SummaryFromModel(snap.Summary),
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

// ListFromModel converts a list, deriving its summary
func ListFromModel(l *model.List) List {
	return ListFromSnapshot(list.SnapshotOf(l))
}

// ListItem is the short form used when listing a player's lists
type ListItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	World       string `json:"world,omitempty"`
	IsOwner     bool   `json:"is_owner"`
	MemberCount int    `json:"member_count"`
	CoreCount   int    `json:"core_count"`
}

// ListItemsFromModel converts the lists a player belongs to
func ListItemsFromModel(lists []*model.List, playerID model.PlayerID) []ListItem {
	out := make([]ListItem, 0, len(lists))
	for _, l := range lists {
		out = append(out, ListItem{
			ID:          string(l.ID),
			Name:        l.Name,
			World:       l.World,
			IsOwner:     l.OwnerID == playerID,
			MemberCount: len(l.Members),
			CoreCount:   len(l.SoulCores),
		})
	}
	return out
}

// Preview is what a share code reveals before joining
type Preview struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	World       string `json:"world,omitempty"`
	OwnerName   string `json:"owner_name"`
	MemberCount int    `json:"member_count"`
	Capacity    int    `json:"capacity"`
	IsFull      bool   `json:"is_full"`
}

// PreviewFromModel converts model.ListPreview
func PreviewFromModel(p model.ListPreview) Preview {
	return Preview{
		ID:          string(p.ID),
		Name:        p.Name,
		Description: p.Description,
		World:       p.World,
		OwnerName:   p.OwnerName,
		MemberCount: p.MemberCount,
		Capacity:    p.Capacity,
		IsFull:      p.MemberCount >= p.Capacity,
	}
}

// JoinResponse is returned after following a share code.
// SessionToken is only present when the join created a new anonymous player.
type JoinResponse struct {
	Player       Player     `json:"player"`
	SessionToken string     `json:"session_token,omitempty"`
	Membership   Membership `json:"membership"`
	List         List       `json:"list"`
}

// JoinResponseFromResult converts a join.Result
func JoinResponseFromResult(r *join.Result) JoinResponse {
	return JoinResponse{
		Player:       PlayerFromModel(r.Player),
		SessionToken: r.SessionToken,
		Membership:   MembershipFromModel(*r.Membership),
		List:         ListFromSnapshot(r.Snapshot),
	}
}

// Creature represents a catalog entry
type Creature struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PluralName string `json:"plural_name,omitempty"`
}

// CreaturesFromModel converts the catalog
func CreaturesFromModel(cs []model.Creature) []Creature {
	out := make([]Creature, 0, len(cs))
	for _, c := range cs {
		out = append(out, Creature{ID: string(c.ID), Name: c.Name, PluralName: c.PluralName})
	}
	return out
}

func creatureIDs(ids []model.CreatureID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}

// SoulCoreCollection represents a character's unlocked soul cores. Suggestions are
// only shown to the character's owner.
type SoulCoreCollection struct {
	CharacterID string    `json:"character_id"`
	Unlocked    []string  `json:"unlocked"`
	Suggested   []string  `json:"suggested,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

// CollectionFromModel converts model.Collection
func CollectionFromModel(c *model.Collection, owner bool) SoulCoreCollection {
	out := SoulCoreCollection{
		CharacterID: string(c.CharacterID),
		Unlocked:    creatureIDs(c.Unlocked),
		UpdatedAt:   c.UpdatedAt,
	}
	if owner {
		out.Suggested = creatureIDs(c.Suggested)
	}
	return out
}

// Suggestions lists the creatures suggested to one character
type Suggestions struct {
	Character Character `json:"character"`
	Creatures []string  `json:"creatures"`
}

// SuggestionsFromPending converts the open suggestions of a player
func SuggestionsFromPending(pending []collection.Pending) []Suggestions {
	out := make([]Suggestions, 0, len(pending))
	for _, p := range pending {
		out = append(out, Suggestions{
			Character: CharacterFromModel(p.Character),
			Creatures: creatureIDs(p.Creatures),
		})
	}
	return out
}

// Score is one highscore entry
type Score struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	World     string `json:"world"`
	CoreCount int    `json:"core_count"`
}

// Pagination describes the page of a paged response
type Pagination struct {
	CurrentPage  int `json:"current_page"`
	TotalPages   int `json:"total_pages"`
	TotalRecords int `json:"total_records"`
	PageSize     int `json:"page_size"`
}

// Highscores is one page of the collection ranking
type Highscores struct {
	Characters []Score    `json:"characters"`
	Pagination Pagination `json:"pagination"`
}

// HighscoresFromService converts a highscore page
func HighscoresFromService(h *collection.Highscores) Highscores {
	scores := make([]Score, 0, len(h.Scores))
	for _, s := range h.Scores {
		scores = append(scores, Score{
			ID:        string(s.CharacterID),
			Name:      s.Name,
			World:     s.World,
			CoreCount: s.Count,
		})
	}
	return Highscores{
		Characters: scores,
		Pagination: Pagination{
			CurrentPage:  h.Page,
			TotalPages:   h.TotalPages,
			TotalRecords: h.TotalRecords,
			PageSize:     h.PageSize,
		},
	}
}
