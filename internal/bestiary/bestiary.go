// Package bestiary ships the built-in creature stat blocks.
package bestiary

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/MJE43/dnd-master-desktop/internal/campaign"
)

//go:embed creatures.json
var creaturesJSON []byte

// BaseCreatures decodes the built-in creatures. Each call returns a fresh
// slice, so callers may modify it.
func BaseCreatures() []campaign.Creature {
	var out []campaign.Creature
	if err := json.Unmarshal(creaturesJSON, &out); err != nil {
		// The file is compiled in; a decode failure is a build defect.
		panic(fmt.Sprintf("bestiary: decode embedded creatures: %v", err))
	}
	return out
}
