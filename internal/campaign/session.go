package campaign

import "time"

// SessionStatus is the lifecycle state of an encounter.
type SessionStatus string

const (
	StatusPreparation SessionStatus = "preparation"
	StatusActive      SessionStatus = "active"
	StatusPaused      SessionStatus = "paused"
	StatusFinished    SessionStatus = "finished"
)

// GameSession is a live encounter on a map. Players and Creatures are
// denormalized snapshots; MapID and CurrentTurn are not checked against
// anything.
type GameSession struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	MapID       string            `json:"mapId"`
	Players     []SessionPlayer   `json:"players"`
	Creatures   []SessionCreature `json:"creatures"`
	CurrentTurn int               `json:"currentTurn"`
	Round       int               `json:"round"`
	Status      SessionStatus     `json:"status"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

type SessionPlayer struct {
	CharacterID string   `json:"characterId"`
	Position    Position `json:"position"`
	HP          int      `json:"hp"`
	Conditions  []string `json:"conditions"`
	Initiative  int      `json:"initiative"`
	TurnOrder   int      `json:"turnOrder"`
	Type        string   `json:"type"` // always "player"
	Name        string   `json:"name"`
	MaxHP       int      `json:"maxHp"`
	AC          int      `json:"ac"`
	Speed       string   `json:"speed"`
}

type SessionCreature struct {
	CreatureID string   `json:"creatureId"`
	Position   Position `json:"position"`
	HP         int      `json:"hp"`
	Conditions []string `json:"conditions"`
	Initiative int      `json:"initiative"`
	TurnOrder  int      `json:"turnOrder"`
	Type       string   `json:"type"` // always "creature"
	Name       string   `json:"name"`
	MaxHP      int      `json:"maxHp"`
	AC         int      `json:"ac"`
	Speed      string   `json:"speed"`
}
