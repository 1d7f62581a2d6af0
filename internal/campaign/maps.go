// Package campaign holds the campaign document model shared by the store, the
// desktop bindings and the HTTP API. Field names follow the JSON written by the
// web client so existing backups load unchanged.
package campaign

import "time"

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CellType is the grid shape of a map.
type CellType string

const (
	CellSquare  CellType = "square"
	CellHexagon CellType = "hexagon"
)

// LayerType groups map items for rendering and locking.
type LayerType string

const (
	LayerTerrain   LayerType = "terrain"
	LayerObjects   LayerType = "objects"
	LayerCreatures LayerType = "creatures"
	LayerPlayers   LayerType = "players"
)

// GameMap is a gridded battle or world map. Width and Height are in cells,
// CellSize in pixels.
type GameMap struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Width           int        `json:"width"`
	Height          int        `json:"height"`
	CellSize        int        `json:"cellSize"`
	CellType        CellType   `json:"cellType"`
	BackgroundColor string     `json:"backgroundColor"`
	GridColor       string     `json:"gridColor"`
	Layers          []MapLayer `json:"layers"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type MapLayer struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Type    LayerType `json:"type"`
	Visible bool      `json:"visible"`
	Locked  bool      `json:"locked"`
	Items   []MapItem `json:"items"`
}

// ItemCount returns the number of placed items across all layers.
func (m GameMap) ItemCount() int {
	n := 0
	for _, l := range m.Layers {
		n += len(l.Items)
	}
	return n
}
