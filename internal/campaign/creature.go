package campaign

import "time"

type CreatureType string

const (
	CreatureBeast      CreatureType = "beast"
	CreatureHumanoid   CreatureType = "humanoid"
	CreatureDragon     CreatureType = "dragon"
	CreatureUndead     CreatureType = "undead"
	CreatureElemental  CreatureType = "elemental"
	CreatureFiend      CreatureType = "fiend"
	CreatureCelestial  CreatureType = "celestial"
	CreatureAberration CreatureType = "aberration"
)

type CreatureSize string

const (
	SizeTiny       CreatureSize = "tiny"
	SizeSmall      CreatureSize = "small"
	SizeMedium     CreatureSize = "medium"
	SizeLarge      CreatureSize = "large"
	SizeHuge       CreatureSize = "huge"
	SizeGargantuan CreatureSize = "gargantuan"
)

// Creature is a stat block template. Seed entries have IsCustom=false and no
// timestamps; user-authored entries carry both.
type Creature struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Type             CreatureType      `json:"type"`
	Size             CreatureSize      `json:"size"`
	Alignment        string            `json:"alignment"`
	AC               int               `json:"ac"`
	HP               int               `json:"hp"`
	Speed            string            `json:"speed"`
	Stats            CharacterStats    `json:"stats"`
	Skills           []string          `json:"skills"`
	Senses           []string          `json:"senses"`
	Languages        []string          `json:"languages"`
	Challenge        float64           `json:"challenge"`
	XP               int               `json:"xp"`
	Abilities        []CreatureAbility `json:"abilities"`
	Actions          []CreatureAction  `json:"actions"`
	LegendaryActions []LegendaryAction `json:"legendaryActions,omitempty"`
	Description      string            `json:"description"`
	IsCustom         bool              `json:"isCustom"`
	CreatedAt        *time.Time        `json:"createdAt,omitempty"`
	UpdatedAt        *time.Time        `json:"updatedAt,omitempty"`
}

type CreatureAbility struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"` // innate|spell|feature
}

type CreatureAction struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"` // action|bonus|reaction
	AttackBonus *int   `json:"attackBonus,omitempty"`
	Damage      string `json:"damage,omitempty"`
}

type LegendaryAction struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Cost        int    `json:"cost"`
}
