package appstore

import (
	"github.com/MJE43/dnd-master-desktop/internal/bestiary"
	"github.com/MJE43/dnd-master-desktop/internal/metrics"
)

// InitializeBaseData fills the built-in bestiary when it is empty and reports
// whether it did. It does not persist; the next mutation or Save writes it.
func (s *Store) InitializeBaseData() bool {
	s.mu.Lock()
	if len(s.data.Creatures) > 0 {
		s.mu.Unlock()
		return false
	}
	s.data.Creatures = bestiary.BaseCreatures()
	s.mu.Unlock()

	metrics.RecordMutation(CollectionCreatures, OpSeed)
	s.emit(CollectionCreatures, OpSeed, "")
	return true
}
