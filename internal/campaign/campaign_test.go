package campaign

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAppData(t *testing.T) {
	d := DefaultAppData()

	assert.Empty(t, d.Maps)
	assert.Empty(t, d.Characters)
	assert.Empty(t, d.Creatures)
	assert.Empty(t, d.CustomCreatures)
	assert.Empty(t, d.GameSessions)

	assert.Equal(t, ThemeDark, d.Settings.Theme)
	assert.Equal(t, LanguageRU, d.Settings.Language)
	assert.Equal(t, MapSize{Width: 22, Height: 28}, d.Settings.DefaultMapSize)
	assert.Equal(t, 50, d.Settings.DefaultCellSize)
	assert.True(t, d.Settings.AutoSave)

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"maps": [], "characters": [], "creatures": [], "customCreatures": [], "gameSessions": [],
		"settings": {"theme":"dark","language":"ru","defaultMapSize":{"width":22,"height":28},"defaultCellSize":50,"autoSave":true}
	}`, string(raw))
}

func TestNormalizeFillsNilCollections(t *testing.T) {
	var d AppData
	d.Normalize()

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"maps":[]`)
	assert.Contains(t, string(raw), `"gameSessions":[]`)
}

func TestMapItemPayload(t *testing.T) {
	roll := 14
	item, err := NewMapItem("tok-1", ItemCreature, Position{X: 3, Y: 4}, Size{Width: 1, Height: 1}, 90,
		CreatureTokenData{CreatureID: "goblin", Name: "Goblin", HP: 7, MaxHP: 7, AC: 15, Speed: 30, Initiative: &roll})
	require.NoError(t, err)

	got, err := item.Payload()
	require.NoError(t, err)
	tok, ok := got.(CreatureTokenData)
	require.True(t, ok, "payload type %T", got)
	assert.Equal(t, "goblin", tok.CreatureID)
	require.NotNil(t, tok.Initiative)
	assert.Equal(t, 14, *tok.Initiative)
}

func TestMapItemPayloadFromClientJSON(t *testing.T) {
	raw := `{"id":"b1","type":"building","position":{"x":1,"y":2},"size":{"width":4,"height":3},"rotation":0,
		"data":{"buildingType":"castle","name":"Keep","description":"old","rooms":[{"id":"r1","name":"Hall","position":{"x":0,"y":0},"size":{"width":2,"height":2},"description":"","connections":["r2"]}]}}`
	var item MapItem
	require.NoError(t, json.Unmarshal([]byte(raw), &item))

	got, err := item.Payload()
	require.NoError(t, err)
	b := got.(BuildingData)
	assert.Equal(t, "castle", b.BuildingType)
	require.Len(t, b.Rooms, 1)
	assert.Equal(t, []string{"r2"}, b.Rooms[0].Connections)
}

func TestMapItemPayloadUnknownType(t *testing.T) {
	item := MapItem{ID: "x", Type: "portal", Data: json.RawMessage(`{}`)}
	_, err := item.Payload()
	assert.True(t, errors.Is(err, ErrUnknownItemType))
}

func TestItemCount(t *testing.T) {
	m := GameMap{Layers: []MapLayer{
		{ID: "a", Items: []MapItem{{ID: "1"}, {ID: "2"}}},
		{ID: "b", Items: []MapItem{{ID: "3"}}},
	}}
	assert.Equal(t, 3, m.ItemCount())
}

func TestModifier(t *testing.T) {
	cases := map[int]int{1: -5, 8: -1, 9: -1, 10: 0, 11: 0, 14: 2, 23: 6}
	for score, want := range cases {
		assert.Equal(t, want, Modifier(score), "score %d", score)
	}
}

func TestInventoryValueIsExact(t *testing.T) {
	items := []InventoryItem{
		{ID: "c", Type: KindCoin, Value: 0.1, Weight: 0.02, Quantity: 3},
		{ID: "p", Type: KindPotion, Value: 50, Weight: 0.5, Quantity: 2},
		{ID: "g", Type: KindGem, Value: 0.2, Weight: 0, Quantity: 0},
	}
	tot := InventoryValue(items)

	assert.Equal(t, 6, tot.Items)
	assert.True(t, tot.Value.Equal(decimal.RequireFromString("100.5")), "value = %s", tot.Value)
	assert.True(t, tot.Weight.Equal(decimal.RequireFromString("1.06")), "weight = %s", tot.Weight)
}

func TestCharacterWealthIncludesEquipment(t *testing.T) {
	sword := InventoryItem{ID: "w", Type: KindWeapon, Value: 15, Weight: 3, Quantity: 1}
	c := Character{
		Inventory: []InventoryItem{{ID: "gp", Type: KindCoin, Value: 1, Weight: 0.02, Quantity: 10}},
		Equipment: Equipment{Weapon: &sword, Accessories: []InventoryItem{{ID: "ring", Value: 100, Quantity: 1}}},
	}
	tot := c.Wealth()
	assert.True(t, tot.Value.Equal(decimal.NewFromInt(125)), "value = %s", tot.Value)
	assert.Equal(t, 12, tot.Items)
}

func TestParseLanguage(t *testing.T) {
	for in, want := range map[string]Language{"ru": LanguageRU, "ru-RU": LanguageRU, "en": LanguageEN, "en-GB": LanguageEN} {
		got, err := ParseLanguage(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"de", "", "not a tag!"} {
		_, err := ParseLanguage(in)
		assert.Error(t, err, in)
	}
}
