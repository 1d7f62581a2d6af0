package campaign

import "time"

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// ItemKind classifies inventory and loot entries.
type ItemKind string

const (
	KindWeapon ItemKind = "weapon"
	KindArmor  ItemKind = "armor"
	KindPotion ItemKind = "potion"
	KindScroll ItemKind = "scroll"
	KindGem    ItemKind = "gem"
	KindCoin   ItemKind = "coin"
	KindOther  ItemKind = "other"
)

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

type Character struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Race       string             `json:"race"`
	Class      string             `json:"class"`
	Level      int                `json:"level"`
	Gender     Gender             `json:"gender"`
	Alignment  string             `json:"alignment"`
	Background string             `json:"background"`
	Stats      CharacterStats     `json:"stats"`
	Skills     CharacterSkills    `json:"skills"`
	Equipment  Equipment          `json:"equipment"`
	Inventory  []InventoryItem    `json:"inventory"`
	Spells     []Spell            `json:"spells"`
	Features   []CharacterFeature `json:"features"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

// CharacterStats are the six ability scores. Creatures reuse the same shape.
type CharacterStats struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Constitution int `json:"constitution"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Charisma     int `json:"charisma"`
}

// Modifier returns the standard ability modifier for a score.
func Modifier(score int) int {
	d := score - 10
	if d < 0 {
		// floor division for negatives
		return (d - 1) / 2
	}
	return d / 2
}

type SkillProficiency struct {
	Proficient bool `json:"proficient"`
	Bonus      int  `json:"bonus"`
}

// CharacterSkills is keyed by skill name.
type CharacterSkills map[string]SkillProficiency

type Equipment struct {
	Armor       *InventoryItem  `json:"armor"`
	Weapon      *InventoryItem  `json:"weapon"`
	Shield      *InventoryItem  `json:"shield"`
	Accessories []InventoryItem `json:"accessories"`
}

type InventoryItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Type        ItemKind `json:"type"`
	Rarity      Rarity   `json:"rarity"`
	Value       float64  `json:"value"`
	Weight      float64  `json:"weight"`
	Quantity    int      `json:"quantity"`
	Properties  []string `json:"properties,omitempty"`
}

type Spell struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Level       int    `json:"level"`
	School      string `json:"school"`
	CastingTime string `json:"castingTime"`
	Range       string `json:"range"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
	Prepared    bool   `json:"prepared"`
}

type FeatureType string

const (
	FeatureRacial FeatureType = "racial"
	FeatureClass  FeatureType = "class"
	FeatureFeat   FeatureType = "feat"
)

type CharacterFeature struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Type        FeatureType `json:"type"`
	Uses        *int        `json:"uses,omitempty"`
	MaxUses     *int        `json:"maxUses,omitempty"`
}
