package model

import "time"

// ListID uniquely identifies a soul-core list
type ListID string

// ShareCode is the opaque token that lets a visitor join a list
type ShareCode string

// MaxMembers is the membership capacity of every list
const MaxMembers = 5

// MemberRole distinguishes the list owner from everyone else
type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleMember MemberRole = "member"
)

// Membership links one of a player's characters to a list
type Membership struct {
	PlayerID      PlayerID
	CharacterID   CharacterID
	CharacterName string
	World         string
	Role          MemberRole
	JoinedAt      time.Time
}

// IsOwner derives the owner flag from the role
func (m Membership) IsOwner() bool {
	return m.Role == RoleOwner
}

// List is a shared soul-core checklist. Members and cores are part of the
// aggregate so that a single atomic update covers every membership check.
type List struct {
	ID          ListID
	Name        string
	Description string
	World       string // empty means any world may join
	OwnerID     PlayerID
	ShareCode   ShareCode
	Members     []Membership
	SoulCores   []SoulCore
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Owner returns the owning membership, or nil if the list is malformed
func (l *List) Owner() *Membership {
	for i := range l.Members {
		if l.Members[i].Role == RoleOwner {
			return &l.Members[i]
		}
	}
	return nil
}

// GetMember returns the membership of the given player, or nil
func (l *List) GetMember(playerID PlayerID) *Membership {
	for i := range l.Members {
		if l.Members[i].PlayerID == playerID {
			return &l.Members[i]
		}
	}
	return nil
}

// MemberByCharacter returns the membership backed by the given character, or nil
func (l *List) MemberByCharacter(characterID CharacterID) *Membership {
	for i := range l.Members {
		if l.Members[i].CharacterID == characterID {
			return &l.Members[i]
		}
	}
	return nil
}

// IsMember reports whether the player currently holds a membership
func (l *List) IsMember(playerID PlayerID) bool {
	return l.GetMember(playerID) != nil
}

// IsFull reports whether the list reached its capacity
func (l *List) IsFull() bool {
	return len(l.Members) >= MaxMembers
}

// AcceptsWorld reports whether a character from world may join
func (l *List) AcceptsWorld(world string) bool {
	return l.World == "" || SameWorld(l.World, world)
}

// Core returns the soul core tracked for a creature, or nil
func (l *List) Core(creatureID CreatureID) *SoulCore {
	for i := range l.SoulCores {
		if l.SoulCores[i].CreatureID == creatureID {
			return &l.SoulCores[i]
		}
	}
	return nil
}

// CharacterIDs returns the characters backing the current memberships
func (l *List) CharacterIDs() []CharacterID {
	ids := make([]CharacterID, 0, len(l.Members))
	for _, m := range l.Members {
		ids = append(ids, m.CharacterID)
	}
	return ids
}

// Clone returns a deep copy of the list
func (l *List) Clone() *List {
	cp := *l
	cp.Members = append([]Membership(nil), l.Members...)
	cp.SoulCores = make([]SoulCore, len(l.SoulCores))
	for i, c := range l.SoulCores {
		cp.SoulCores[i] = c.clone()
	}
	return &cp
}

// CheckInvariants verifies the membership rules that every persisted list must satisfy.
// Services check each rule before mutating; a failure here means a bug, not user error.
func (l *List) CheckInvariants() error {
	if len(l.Members) > MaxMembers {
		return integrityf("list %s has %d members", l.ID, len(l.Members))
	}
	owners := 0
	players := make(map[PlayerID]struct{}, len(l.Members))
	characters := make(map[CharacterID]struct{}, len(l.Members))
	for _, m := range l.Members {
		if m.Role == RoleOwner {
			owners++
			if m.PlayerID != l.OwnerID {
				return integrityf("list %s owner membership does not match owner %s", l.ID, l.OwnerID)
			}
		}
		if _, dup := players[m.PlayerID]; dup {
			return integrityf("list %s has player %s twice", l.ID, m.PlayerID)
		}
		players[m.PlayerID] = struct{}{}
		if _, dup := characters[m.CharacterID]; dup {
			return integrityf("list %s has character %s twice", l.ID, m.CharacterID)
		}
		characters[m.CharacterID] = struct{}{}
	}
	if owners != 1 {
		return integrityf("list %s has %d owners", l.ID, owners)
	}
	creatures := make(map[CreatureID]struct{}, len(l.SoulCores))
	for _, c := range l.SoulCores {
		if _, dup := creatures[c.CreatureID]; dup {
			return integrityf("list %s tracks creature %s twice", l.ID, c.CreatureID)
		}
		creatures[c.CreatureID] = struct{}{}
	}
	return nil
}

// ListPreview is what a visitor holding a share code may see before joining
type ListPreview struct {
	ID          ListID
	Name        string
	Description string
	World       string
	OwnerName   string
	MemberCount int
	Capacity    int
}

// PreviewOf builds the public preview of a list
func PreviewOf(l *List) ListPreview {
	p := ListPreview{
		ID:          l.ID,
		Name:        l.Name,
		Description: l.Description,
		World:       l.World,
		MemberCount: len(l.Members),
		Capacity:    MaxMembers,
	}
	if owner := l.Owner(); owner != nil {
		p.OwnerName = owner.CharacterName
	}
	return p
}
