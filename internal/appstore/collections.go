package appstore

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"github.com/MJE43/dnd-master-desktop/internal/campaign"
	"github.com/MJE43/dnd-master-desktop/internal/metrics"
)

// collection binds one entity list of the document to its id and timestamp
// fields so the CRUD paths below are written once.
type collection[T any] struct {
	name  string
	items func(*campaign.AppData) *[]T
	id    func(*T) *string
	// stamp fills zero timestamps on add; touch sets updatedAt on update.
	stamp func(*T, time.Time)
	touch func(*T, time.Time)
}

var mapsColl = collection[campaign.GameMap]{
	name:  CollectionMaps,
	items: func(d *campaign.AppData) *[]campaign.GameMap { return &d.Maps },
	id:    func(m *campaign.GameMap) *string { return &m.ID },
	stamp: func(m *campaign.GameMap, now time.Time) {
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		if m.UpdatedAt.IsZero() {
			m.UpdatedAt = now
		}
	},
	touch: func(m *campaign.GameMap, now time.Time) { m.UpdatedAt = now },
}

var charactersColl = collection[campaign.Character]{
	name:  CollectionCharacters,
	items: func(d *campaign.AppData) *[]campaign.Character { return &d.Characters },
	id:    func(c *campaign.Character) *string { return &c.ID },
	stamp: func(c *campaign.Character, now time.Time) {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		if c.UpdatedAt.IsZero() {
			c.UpdatedAt = now
		}
	},
	touch: func(c *campaign.Character, now time.Time) { c.UpdatedAt = now },
}

var customCreaturesColl = collection[campaign.Creature]{
	name:  CollectionCustomCreatures,
	items: func(d *campaign.AppData) *[]campaign.Creature { return &d.CustomCreatures },
	id:    func(c *campaign.Creature) *string { return &c.ID },
	stamp: func(c *campaign.Creature, now time.Time) {
		c.IsCustom = true
		if c.CreatedAt == nil {
			t := now
			c.CreatedAt = &t
		}
		if c.UpdatedAt == nil {
			t := now
			c.UpdatedAt = &t
		}
	},
	touch: func(c *campaign.Creature, now time.Time) {
		t := now
		c.UpdatedAt = &t
	},
}

var sessionsColl = collection[campaign.GameSession]{
	name:  CollectionGameSessions,
	items: func(d *campaign.AppData) *[]campaign.GameSession { return &d.GameSessions },
	id:    func(g *campaign.GameSession) *string { return &g.ID },
	stamp: func(g *campaign.GameSession, now time.Time) {
		if g.CreatedAt.IsZero() {
			g.CreatedAt = now
		}
		if g.UpdatedAt.IsZero() {
			g.UpdatedAt = now
		}
	},
	touch: func(g *campaign.GameSession, now time.Time) { g.UpdatedAt = now },
}

func list[T any](s *Store, c collection[T]) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(*c.items(&s.data))
}

func indexOf[T any](items []T, c collection[T], id string) int {
	for i := range items {
		if *c.id(&items[i]) == id {
			return i
		}
	}
	return -1
}

func get[T any](s *Store, c collection[T], id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := *c.items(&s.data)
	if i := indexOf(items, c, id); i >= 0 {
		return items[i], true
	}
	var zero T
	return zero, false
}

func add[T any](ctx context.Context, s *Store, c collection[T], v T) (T, error) {
	s.mu.Lock()
	if *c.id(&v) == "" {
		*c.id(&v) = s.newID()
	}
	c.stamp(&v, s.now())
	items := c.items(&s.data)
	*items = append(*items, v)
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	metrics.RecordMutation(c.name, OpAdd)
	s.emit(c.name, OpAdd, *c.id(&v))
	return v, err
}

// update merges patch into the entity with the given id. found is false (and
// nothing is persisted) when no entity has that id.
func update[T any](ctx context.Context, s *Store, c collection[T], id string, patch json.RawMessage) (T, bool, error) {
	var zero T
	s.mu.Lock()
	items := c.items(&s.data)
	i := indexOf(*items, c, id)
	if i < 0 {
		s.mu.Unlock()
		return zero, false, nil
	}
	next, err := mergePatch((*items)[i], patch)
	if err != nil {
		s.mu.Unlock()
		return zero, true, err
	}
	c.touch(&next, s.now())
	(*items)[i] = next
	err = s.persistLocked(ctx)
	s.mu.Unlock()

	metrics.RecordMutation(c.name, OpUpdate)
	s.emit(c.name, OpUpdate, id)
	return next, true, err
}

// remove drops every entity with the given id and persists even when none
// matched.
func remove[T any](ctx context.Context, s *Store, c collection[T], id string) error {
	s.mu.Lock()
	items := c.items(&s.data)
	kept := make([]T, 0, len(*items))
	for i := range *items {
		if *c.id(&(*items)[i]) != id {
			kept = append(kept, (*items)[i])
		}
	}
	*items = kept
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	metrics.RecordMutation(c.name, OpDelete)
	s.emit(c.name, OpDelete, id)
	return err
}

// Maps

func (s *Store) Maps() []campaign.GameMap { return list(s, mapsColl) }

func (s *Store) GetMapByID(id string) (campaign.GameMap, bool) { return get(s, mapsColl, id) }

// AddMap appends m, assigning an id and timestamps when they are unset, and
// returns the stored value. The returned error reports a failed persist; the
// map is kept in memory either way.
func (s *Store) AddMap(ctx context.Context, m campaign.GameMap) (campaign.GameMap, error) {
	return add(ctx, s, mapsColl, m)
}

// UpdateMap shallow-merges patch (a JSON object) into the map and bumps
// updatedAt. Unknown ids are a no-op.
func (s *Store) UpdateMap(ctx context.Context, id string, patch json.RawMessage) (campaign.GameMap, bool, error) {
	return update(ctx, s, mapsColl, id, patch)
}

func (s *Store) DeleteMap(ctx context.Context, id string) error { return remove(ctx, s, mapsColl, id) }

// Characters

func (s *Store) Characters() []campaign.Character { return list(s, charactersColl) }

func (s *Store) GetCharacterByID(id string) (campaign.Character, bool) {
	return get(s, charactersColl, id)
}

func (s *Store) AddCharacter(ctx context.Context, c campaign.Character) (campaign.Character, error) {
	return add(ctx, s, charactersColl, c)
}

func (s *Store) UpdateCharacter(ctx context.Context, id string, patch json.RawMessage) (campaign.Character, bool, error) {
	return update(ctx, s, charactersColl, id, patch)
}

func (s *Store) DeleteCharacter(ctx context.Context, id string) error {
	return remove(ctx, s, charactersColl, id)
}

// Creatures

// Creatures returns the built-in bestiary entries.
func (s *Store) Creatures() []campaign.Creature {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.data.Creatures)
}

func (s *Store) CustomCreatures() []campaign.Creature { return list(s, customCreaturesColl) }

// AllCreatures returns built-in creatures followed by custom ones.
func (s *Store) AllCreatures() []campaign.Creature {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]campaign.Creature, 0, len(s.data.Creatures)+len(s.data.CustomCreatures))
	out = append(out, s.data.Creatures...)
	return append(out, s.data.CustomCreatures...)
}

// GetCreatureByID searches built-in creatures first, then custom ones.
func (s *Store) GetCreatureByID(id string) (campaign.Creature, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, list := range [][]campaign.Creature{s.data.Creatures, s.data.CustomCreatures} {
		for _, c := range list {
			if c.ID == id {
				return c, true
			}
		}
	}
	return campaign.Creature{}, false
}

// AddCustomCreature appends c to the custom bestiary; IsCustom is forced on.
func (s *Store) AddCustomCreature(ctx context.Context, c campaign.Creature) (campaign.Creature, error) {
	return add(ctx, s, customCreaturesColl, c)
}

func (s *Store) UpdateCustomCreature(ctx context.Context, id string, patch json.RawMessage) (campaign.Creature, bool, error) {
	return update(ctx, s, customCreaturesColl, id, patch)
}

func (s *Store) DeleteCustomCreature(ctx context.Context, id string) error {
	return remove(ctx, s, customCreaturesColl, id)
}

// Game sessions

func (s *Store) GameSessions() []campaign.GameSession { return list(s, sessionsColl) }

func (s *Store) GetGameSessionByID(id string) (campaign.GameSession, bool) {
	return get(s, sessionsColl, id)
}

func (s *Store) AddGameSession(ctx context.Context, g campaign.GameSession) (campaign.GameSession, error) {
	return add(ctx, s, sessionsColl, g)
}

func (s *Store) UpdateGameSession(ctx context.Context, id string, patch json.RawMessage) (campaign.GameSession, bool, error) {
	return update(ctx, s, sessionsColl, id, patch)
}

func (s *Store) DeleteGameSession(ctx context.Context, id string) error {
	return remove(ctx, s, sessionsColl, id)
}

// Settings

// UpdateSettings shallow-merges patch into the settings and persists. The
// autosave flag is read after the merge, so turning it off skips this write.
func (s *Store) UpdateSettings(ctx context.Context, patch json.RawMessage) (campaign.AppSettings, error) {
	s.mu.Lock()
	next, err := mergePatch(s.data.Settings, patch)
	if err != nil {
		s.mu.Unlock()
		return campaign.AppSettings{}, err
	}
	s.data.Settings = next
	err = s.persistLocked(ctx)
	s.mu.Unlock()

	metrics.RecordMutation(CollectionSettings, OpUpdate)
	s.emit(CollectionSettings, OpUpdate, "")
	return next, err
}
