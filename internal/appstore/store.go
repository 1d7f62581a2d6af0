// Package appstore owns the in-memory campaign document. Every mutation is
// followed by a persist to the local storage slot when autosave is enabled,
// and is announced to subscribers.
package appstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/MJE43/dnd-master-desktop/internal/campaign"
)

// DefaultKey is the storage slot the document is written under.
const DefaultKey = "dnd-master-data"

// Storage is the persistent key-value slot. kvstore.Store and kvstore.Memory
// implement it.
type Storage interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
}

// Collection names used in change events and metrics.
const (
	CollectionMaps            = "maps"
	CollectionCharacters      = "characters"
	CollectionCreatures       = "creatures"
	CollectionCustomCreatures = "customCreatures"
	CollectionGameSessions    = "gameSessions"
	CollectionSettings        = "settings"
	CollectionDocument        = "document"
)

// Operations used in change events and metrics.
const (
	OpAdd    = "add"
	OpUpdate = "update"
	OpDelete = "delete"
	OpLoad   = "load"
	OpImport = "import"
	OpSeed   = "seed"
)

// Change describes one applied mutation.
type Change struct {
	Collection string    `json:"collection"`
	Op         string    `json:"op"`
	ID         string    `json:"id,omitempty"`
	At         time.Time `json:"at"`
}

// Store holds the campaign document and writes it through to Storage.
type Store struct {
	mu      sync.RWMutex
	data    campaign.AppData
	storage Storage
	key     string
	loadErr error // set while the saved document could not be read

	now   func() time.Time
	newID func() string
	log   logrus.FieldLogger

	subMu   sync.Mutex
	subs    map[int]func(Change)
	nextSub int
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the storage slot name.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithClock sets the time source for createdAt/updatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) { s.log = l }
}

// New returns a store holding the default document. Call Load to pick up a
// previously saved document.
func New(storage Storage, opts ...Option) *Store {
	s := &Store{
		data:    campaign.DefaultAppData(),
		storage: storage,
		key:     DefaultKey,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
		log:     logrus.StandardLogger(),
		subs:    make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("component", "appstore")
	return s
}

// Key returns the storage slot name.
func (s *Store) Key() string { return s.key }

// Data returns a copy of the whole document. Nested slices are shared with the
// store and must be treated as read-only.
func (s *Store) Data() campaign.AppData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := s.data
	d.Maps = slices.Clone(d.Maps)
	d.Characters = slices.Clone(d.Characters)
	d.Creatures = slices.Clone(d.Creatures)
	d.CustomCreatures = slices.Clone(d.CustomCreatures)
	d.GameSessions = slices.Clone(d.GameSessions)
	return d
}

func (s *Store) Settings() campaign.AppSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Settings
}

func (s *Store) Counts() campaign.Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Counts()
}

// Subscribe registers fn to be called after every applied change. fn runs on
// the mutating goroutine after the store lock is released. The returned func
// removes the subscription.
func (s *Store) Subscribe(fn func(Change)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) emit(collection, op, id string) {
	c := Change{Collection: collection, Op: op, ID: id, At: s.now()}

	s.subMu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}
