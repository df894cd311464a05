package storage

import (
	"fmt"
	"sort"

	"github.com/mcoot/soulpit/internal/model"
)

// MembershipDiff describes how an update changed a list's memberships
type MembershipDiff struct {
	AddedPlayers      []model.PlayerID
	RemovedPlayers    []model.PlayerID
	AddedCharacters   []model.CharacterID
	RemovedCharacters []model.CharacterID
}

// DiffMemberships compares the memberships of a list before and after an update
func DiffMemberships(before, after *model.List) MembershipDiff {
	var d MembershipDiff
	for _, m := range after.Members {
		if before.GetMember(m.PlayerID) == nil {
			d.AddedPlayers = append(d.AddedPlayers, m.PlayerID)
		}
		if before.MemberByCharacter(m.CharacterID) == nil {
			d.AddedCharacters = append(d.AddedCharacters, m.CharacterID)
		}
	}
	for _, m := range before.Members {
		if after.GetMember(m.PlayerID) == nil {
			d.RemovedPlayers = append(d.RemovedPlayers, m.PlayerID)
		}
		if after.MemberByCharacter(m.CharacterID) == nil {
			d.RemovedCharacters = append(d.RemovedCharacters, m.CharacterID)
		}
	}
	return d
}

// CheckUpdatedList validates a list produced by a ListUpdateFunc against the
// stored version. Backends call it before persisting.
func CheckUpdatedList(before, after *model.List) error {
	if after.ID != before.ID {
		return fmt.Errorf("%w: list id changed from %s to %s", model.ErrIntegrity, before.ID, after.ID)
	}
	if after.OwnerID != before.OwnerID {
		return fmt.Errorf("%w: list %s owner changed", model.ErrIntegrity, before.ID)
	}
	if after.ShareCode == "" {
		return fmt.Errorf("%w: list %s has no share code", model.ErrIntegrity, before.ID)
	}
	return after.CheckInvariants()
}

// SortLists orders lists by creation time, oldest first
func SortLists(lists []*model.List) {
	sort.Slice(lists, func(i, j int) bool {
		if lists[i].CreatedAt.Equal(lists[j].CreatedAt) {
			return lists[i].ID < lists[j].ID
		}
		return lists[i].CreatedAt.Before(lists[j].CreatedAt)
	})
}

// SortScores orders highscore entries by count, highest first, then by character ID
func SortScores(scores []model.CollectionScore) {
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Count == scores[j].Count {
			return scores[i].CharacterID < scores[j].CharacterID
		}
		return scores[i].Count > scores[j].Count
	})
}

// Page returns the window [offset, offset+limit) of items, clamped to its bounds
func Page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := len(items)
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
