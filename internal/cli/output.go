package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Player:
		o.printPlayer(v)
	case AnonymousResult:
		o.printPlayer(v.Player)
		fmt.Printf("Session token: %s\n", v.SessionToken)
	case AuthResult:
		o.printAuthResult(v)
	case Character:
		o.printCharacter(v)
	case Items[Character]:
		for _, c := range v.Items {
			o.printCharacter(c)
		}
	case List:
		o.printList(v)
	case Items[ListItem]:
		o.printListItems(v.Items)
	case Preview:
		o.printPreview(v)
	case JoinResult:
		o.printJoinResult(v)
	case SoulCore:
		o.printSoulCore(v)
	case Summary:
		o.printSummary(v)
	case Collection:
		o.printCollection(v)
	case Items[string]:
		for _, id := range v.Items {
			fmt.Println(id)
		}
	case Items[Suggestions]:
		for _, sg := range v.Items {
			fmt.Printf("%s (%s): %s\n", sg.Character.Name, sg.Character.ID, strings.Join(sg.Creatures, ", "))
		}
	case Highscores:
		o.printHighscores(v)
	case Items[Creature]:
		for _, c := range v.Items {
			fmt.Printf("%-24s %s\n", c.ID, c.Name)
		}
	case HealthResult:
		fmt.Printf("%s: %s\n", v.Server, v.Status)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Items is the envelope the API wraps collections in
type Items[T any] struct {
	Items []T `json:"items"`
}

// Player response type (matches API)
type Player struct {
	ID              string   `json:"id"`
	Username        string   `json:"username"`
	IsAnonymous     bool     `json:"is_anonymous"`
	Characters      []string `json:"characters"`
	MainCharacterID string   `json:"main_character_id,omitempty"`
}

// AnonymousResult is returned when an anonymous player is created
type AnonymousResult struct {
	Player       Player `json:"player"`
	SessionToken string `json:"session_token"`
}

// AuthResult is returned by register and login
type AuthResult struct {
	Player    Player    `json:"player"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Merged    bool      `json:"merged"`
}

// Character response type
type Character struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	World    string `json:"world"`
	Level    int    `json:"level"`
	Vocation string `json:"vocation"`
}

// Membership response type
type Membership struct {
	PlayerID      string `json:"player_id"`
	CharacterID   string `json:"character_id"`
	CharacterName string `json:"character_name"`
	World         string `json:"world"`
	IsOwner       bool   `json:"is_owner"`
}

// CharacterRef response type
type CharacterRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SoulCore response type
type SoulCore struct {
	CreatureID string        `json:"creature_id"`
	State      string        `json:"state"`
	ObtainedBy *CharacterRef `json:"obtained_by,omitempty"`
}

// CharacterProgress response type
type CharacterProgress struct {
	CharacterID   string `json:"character_id"`
	CharacterName string `json:"character_name"`
	Obtained      int    `json:"obtained"`
}

// Summary response type
type Summary struct {
	TotalTracked  int                 `json:"total_tracked"`
	ObtainedCount int                 `json:"obtained_count"`
	UnlockedCount int                 `json:"unlocked_count"`
	PerCharacter  []CharacterProgress `json:"per_character"`
}

// List response type
type List struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	World       string       `json:"world,omitempty"`
	ShareCode   string       `json:"share_code"`
	Members     []Membership `json:"members"`
	SoulCores   []SoulCore   `json:"soul_cores"`
	Summary     Summary      `json:"summary"`
}

// ListItem response type
type ListItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	World       string `json:"world,omitempty"`
	IsOwner     bool   `json:"is_owner"`
	MemberCount int    `json:"member_count"`
	CoreCount   int    `json:"core_count"`
}

// Preview response type
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

// JoinResult response type
type JoinResult struct {
	Player       Player     `json:"player"`
	SessionToken string     `json:"session_token,omitempty"`
	Membership   Membership `json:"membership"`
	List         List       `json:"list"`
}

// Creature response type
type Creature struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Collection response type
type Collection struct {
	CharacterID string    `json:"character_id"`
	Unlocked    []string  `json:"unlocked"`
	Suggested   []string  `json:"suggested,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

// Suggestions response type
type Suggestions struct {
	Character Character `json:"character"`
	Creatures []string  `json:"creatures"`
}

// Score response type
type Score struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	World     string `json:"world"`
	CoreCount int    `json:"core_count"`
}

// Pagination response type
type Pagination struct {
	CurrentPage  int `json:"current_page"`
	TotalPages   int `json:"total_pages"`
	TotalRecords int `json:"total_records"`
	PageSize     int `json:"page_size"`
}

// Highscores response type
type Highscores struct {
	Characters []Score    `json:"characters"`
	Pagination Pagination `json:"pagination"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
	// Server is filled in locally, not by the API
	Server string `json:"server,omitempty"`
}

func (o *Output) printPlayer(p Player) {
	anonStr := "no"
	if p.IsAnonymous {
		anonStr = "yes"
	}
	fmt.Printf("Player: %s (%s)\n", p.Username, p.ID)
	fmt.Printf("Anonymous: %s\n", anonStr)
	if p.MainCharacterID != "" {
		fmt.Printf("Main character: %s\n", p.MainCharacterID)
	}
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printPlayer(a.Player)
	if a.Merged {
		fmt.Println("Anonymous progress merged into this account")
	}
	fmt.Printf("Token: %s\n", a.Token)
	fmt.Printf("Expires: %s\n", a.ExpiresAt.Format(time.RFC3339))
}

func (o *Output) printCharacter(c Character) {
	fmt.Printf("%s - level %d %s on %s (%s)\n", c.Name, c.Level, c.Vocation, c.World, c.ID)
}

func (o *Output) printList(l List) {
	fmt.Printf("List: %s (%s)\n", l.Name, l.ID)
	if l.World != "" {
		fmt.Printf("World: %s\n", l.World)
	}
	fmt.Printf("Share code: %s\n", l.ShareCode)
	fmt.Printf("Members (%d):\n", len(l.Members))
	for _, m := range l.Members {
		ownerStr := ""
		if m.IsOwner {
			ownerStr = " [owner]"
		}
		fmt.Printf("  - %s (%s)%s\n", m.CharacterName, m.World, ownerStr)
	}
	fmt.Printf("Soul cores (%d):\n", len(l.SoulCores))
	for _, c := range l.SoulCores {
		o.printSoulCoreLine(c)
	}
}

func (o *Output) printListItems(items []ListItem) {
	for _, l := range items {
		ownerStr := ""
		if l.IsOwner {
			ownerStr = " [owner]"
		}
		fmt.Printf("%s  %s - %d members, %d cores%s\n", l.ID, l.Name, l.MemberCount, l.CoreCount, ownerStr)
	}
}

func (o *Output) printPreview(p Preview) {
	fmt.Printf("List: %s\n", p.Name)
	if p.Description != "" {
		fmt.Printf("  %s\n", p.Description)
	}
	fmt.Printf("Owner: %s\n", p.OwnerName)
	if p.World != "" {
		fmt.Printf("World: %s\n", p.World)
	}
	fmt.Printf("Members: %d/%d\n", p.MemberCount, p.Capacity)
	if p.IsFull {
		fmt.Println("This list is full")
	}
}

func (o *Output) printJoinResult(j JoinResult) {
	fmt.Printf("Joined %s as %s\n", j.List.Name, j.Membership.CharacterName)
	if j.SessionToken != "" {
		fmt.Printf("New anonymous player %s, session token: %s\n", j.Player.ID, j.SessionToken)
	}
}

func (o *Output) printSoulCore(c SoulCore) {
	o.printSoulCoreLine(c)
}

func (o *Output) printSoulCoreLine(c SoulCore) {
	if c.ObtainedBy != nil {
		fmt.Printf("  %-24s %-9s by %s\n", c.CreatureID, c.State, c.ObtainedBy.Name)
		return
	}
	fmt.Printf("  %-24s %s\n", c.CreatureID, c.State)
}

func (o *Output) printSummary(s Summary) {
	fmt.Printf("Tracked: %d\n", s.TotalTracked)
	fmt.Printf("Obtained: %d\n", s.ObtainedCount)
	fmt.Printf("Unlocked: %d\n", s.UnlockedCount)
	for _, p := range s.PerCharacter {
		fmt.Printf("  %s: %d\n", p.CharacterName, p.Obtained)
	}
}

func (o *Output) printCollection(c Collection) {
	fmt.Printf("Character: %s\n", c.CharacterID)
	fmt.Printf("Unlocked (%d):\n", len(c.Unlocked))
	for _, id := range c.Unlocked {
		fmt.Printf("  %s\n", id)
	}
	if len(c.Suggested) > 0 {
		fmt.Printf("Suggested: %s\n", strings.Join(c.Suggested, ", "))
	}
}

func (o *Output) printHighscores(h Highscores) {
	rank := (h.Pagination.CurrentPage-1)*h.Pagination.PageSize + 1
	for i, s := range h.Characters {
		fmt.Printf("%4d. %-24s %-12s %d\n", rank+i, s.Name, s.World, s.CoreCount)
	}
	fmt.Printf("Page %d of %d (%d characters)\n", h.Pagination.CurrentPage, h.Pagination.TotalPages, h.Pagination.TotalRecords)
}
