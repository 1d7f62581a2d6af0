package campaign

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownItemType is returned when a map item carries a type tag with no
// known payload shape.
var ErrUnknownItemType = errors.New("campaign: unknown map item type")

// ItemType tags the payload carried in MapItem.Data.
type ItemType string

const (
	ItemTerrain  ItemType = "terrain"
	ItemBuilding ItemType = "building"
	ItemCreature ItemType = "creature"
	ItemPlayer   ItemType = "player"
	ItemLoot     ItemType = "loot"
)

// MapItem is a positioned placeable on a layer. Data is kept raw so documents
// with extra payload fields survive a load/save cycle untouched; use Payload to
// get the typed view.
type MapItem struct {
	ID       string          `json:"id"`
	Type     ItemType        `json:"type"`
	Position Position        `json:"position"`
	Size     Size            `json:"size"`
	Rotation float64         `json:"rotation"`
	Data     json.RawMessage `json:"data"`
}

type TerrainData struct {
	TerrainType string `json:"terrainType"` // grass|stone|water|sand|forest|mountain
	Texture     string `json:"texture,omitempty"`
}

type Room struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Position    Position `json:"position"`
	Size        Size     `json:"size"`
	Description string   `json:"description"`
	Connections []string `json:"connections"` // ids of connected rooms
}

type BuildingData struct {
	BuildingType string `json:"buildingType"` // house|castle|dungeon|camp|ruins
	Name         string `json:"name"`
	Description  string `json:"description"`
	Rooms        []Room `json:"rooms,omitempty"`
}

type CreatureTokenData struct {
	CreatureID string   `json:"creatureId"`
	Name       string   `json:"name"`
	HP         int      `json:"hp"`
	MaxHP      int      `json:"maxHp"`
	AC         int      `json:"ac"`
	Speed      int      `json:"speed"`
	Initiative *int     `json:"initiative,omitempty"`
	Conditions []string `json:"conditions"`
}

type PlayerTokenData struct {
	CharacterID string          `json:"characterId"`
	Name        string          `json:"name"`
	HP          int             `json:"hp"`
	MaxHP       int             `json:"maxHp"`
	AC          int             `json:"ac"`
	Speed       int             `json:"speed"`
	Initiative  *int            `json:"initiative,omitempty"`
	Conditions  []string        `json:"conditions"`
	Inventory   []InventoryItem `json:"inventory"`
}

type LootData struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Value       float64  `json:"value"`
	Rarity      Rarity   `json:"rarity"`
	Type        ItemKind `json:"type"`
}

// NewMapItem builds an item whose Data is the JSON encoding of payload.
func NewMapItem(id string, typ ItemType, pos Position, size Size, rotation float64, payload any) (MapItem, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return MapItem{}, fmt.Errorf("campaign: encode %s payload: %w", typ, err)
	}
	return MapItem{
		ID:       id,
		Type:     typ,
		Position: pos,
		Size:     size,
		Rotation: rotation,
		Data:     raw,
	}, nil
}

// Payload decodes Data into the struct matching the item's type and returns it
// by value (TerrainData, BuildingData, CreatureTokenData, PlayerTokenData or
// LootData).
func (it MapItem) Payload() (any, error) {
	switch it.Type {
	case ItemTerrain:
		return decodePayload[TerrainData](it)
	case ItemBuilding:
		return decodePayload[BuildingData](it)
	case ItemCreature:
		return decodePayload[CreatureTokenData](it)
	case ItemPlayer:
		return decodePayload[PlayerTokenData](it)
	case ItemLoot:
		return decodePayload[LootData](it)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownItemType, it.Type)
	}
}

func decodePayload[T any](it MapItem) (T, error) {
	var out T
	if len(it.Data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(it.Data, &out); err != nil {
		return out, fmt.Errorf("campaign: decode %s payload of item %q: %w", it.Type, it.ID, err)
	}
	return out, nil
}
