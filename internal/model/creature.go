package model

// CreatureID identifies a creature in the catalog
type CreatureID string

// Creature is a read-only catalog entry whose soul core can be tracked
type Creature struct {
	ID         CreatureID `yaml:"id"`
	Name       string     `yaml:"name"`
	PluralName string     `yaml:"plural_name"`
}
