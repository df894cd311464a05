package character

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/mcoot/soulpit/internal/model"
)

// NamePolicy describes which character names are worth looking up
type NamePolicy struct {
	MinLength int
	MaxLength int
}

// DefaultNamePolicy mirrors the game's own naming rules
var DefaultNamePolicy = NamePolicy{MinLength: 3, MaxLength: 20}

// Words start with a letter and hold letters, apostrophes or hyphens.
// The first word must be capitalized and words are separated by single spaces.
var namePattern = regexp.MustCompile(`^[A-Z][A-Za-z'\-]*( [A-Za-z][A-Za-z'\-]*)*$`)

// Validate reports a ValidationError for names the game could not have issued
func (p NamePolicy) Validate(name string) error {
	n := utf8.RuneCountInString(name)
	if n < p.MinLength || n > p.MaxLength {
		return model.NewValidationError("character_name", fmt.Sprintf("must be %d-%d characters", p.MinLength, p.MaxLength))
	}
	if !namePattern.MatchString(name) {
		return model.NewValidationError("character_name", "must start with an uppercase letter and contain only letters, single spaces, ' or -")
	}
	return nil
}
