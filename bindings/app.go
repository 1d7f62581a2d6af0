// Package bindings exposes the campaign store to the desktop UI. Every
// exported method on App is callable from the frontend.
package bindings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/MJE43/dnd-master-desktop/internal/appstore"
	"github.com/MJE43/dnd-master-desktop/internal/backup"
	"github.com/MJE43/dnd-master-desktop/internal/campaign"
)

// ChangedEvent is emitted to the frontend after every store change.
const ChangedEvent = "app:changed"

// Runtime is the slice of the Wails runtime App uses.
type Runtime interface {
	EventsEmit(ctx context.Context, name string, data ...any)
	SaveFileDialog(ctx context.Context, opts runtime.SaveDialogOptions) (string, error)
	OpenFileDialog(ctx context.Context, opts runtime.OpenDialogOptions) (string, error)
}

type wailsRuntime struct{}

func (wailsRuntime) EventsEmit(ctx context.Context, name string, data ...any) {
	runtime.EventsEmit(ctx, name, data...)
}

func (wailsRuntime) SaveFileDialog(ctx context.Context, opts runtime.SaveDialogOptions) (string, error) {
	return runtime.SaveFileDialog(ctx, opts)
}

func (wailsRuntime) OpenFileDialog(ctx context.Context, opts runtime.OpenDialogOptions) (string, error) {
	return runtime.OpenFileDialog(ctx, opts)
}

// APIInfo tells the settings screen how to reach the loopback API.
type APIInfo struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	Token   string `json:"token"`
}

type App struct {
	ctx   context.Context
	store *appstore.Store
	rt    Runtime
	log   logrus.FieldLogger
	now   func() time.Time

	seedBestiary bool
	api          APIInfo
	unsub        func()
}

type Option func(*App)

func WithRuntime(rt Runtime) Option { return func(a *App) { a.rt = rt } }

func WithLogger(l logrus.FieldLogger) Option { return func(a *App) { a.log = l } }

func WithClock(now func() time.Time) Option { return func(a *App) { a.now = now } }

// WithSeedBestiary controls whether Startup fills an empty bestiary.
func WithSeedBestiary(on bool) Option { return func(a *App) { a.seedBestiary = on } }

func New(store *appstore.Store, opts ...Option) *App {
	a := &App{
		store:        store,
		rt:           wailsRuntime{},
		log:          logrus.StandardLogger(),
		now:          time.Now,
		seedBestiary: true,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.WithField("component", "bindings")
	return a
}

// Startup loads the saved document, seeds the bestiary and starts forwarding
// store changes to the frontend.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx
	if err := a.store.Load(ctx); err != nil {
		a.log.WithError(err).Error("load document")
	}
	if a.seedBestiary && a.store.InitializeBaseData() {
		a.log.Info("bestiary seeded")
	}
	a.unsub = a.store.Subscribe(func(c appstore.Change) {
		a.rt.EventsEmit(a.ctx, ChangedEvent, c)
	})
}

func (a *App) Shutdown() {
	if a.unsub != nil {
		a.unsub()
		a.unsub = nil
	}
}

// SetAPIInfo updates what APIInfo reports, once the server has bound.
func (a *App) SetAPIInfo(info APIInfo) { a.api = info }

func (a *App) APIInfo() APIInfo { return a.api }

// StorageError describes why the saved document could not be read, or is
// empty when it loaded. While it is set every change fails instead of
// overwriting the saved document.
func (a *App) StorageError() string {
	if err := a.store.Ready(); err != nil {
		return err.Error()
	}
	return ""
}

// ReloadData retries reading the saved document.
func (a *App) ReloadData() error { return a.store.Load(a.callCtx()) }

func (a *App) callCtx() context.Context {
	if a.ctx != nil {
		return a.ctx
	}
	return context.Background()
}

func patchJSON(patch map[string]any) (json.RawMessage, error) {
	raw, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("bindings: encode patch: %w", err)
	}
	return raw, nil
}

// found converts a (value, ok) lookup into a pointer the frontend sees as
// null when missing.
func found[T any](v T, ok bool) *T {
	if !ok {
		return nil
	}
	return &v
}

// ---- document ----

func (a *App) GetData() campaign.AppData { return a.store.Data() }

func (a *App) GetCounts() campaign.Counts { return a.store.Counts() }

func (a *App) GetSettings() campaign.AppSettings { return a.store.Settings() }

func (a *App) UpdateSettings(patch map[string]any) (campaign.AppSettings, error) {
	raw, err := patchJSON(patch)
	if err != nil {
		return campaign.AppSettings{}, err
	}
	return a.store.UpdateSettings(a.callCtx(), raw)
}

// SaveToStorage writes the document now; it is a no-op with autosave off.
func (a *App) SaveToStorage() error { return a.store.Save(a.callCtx()) }

func (a *App) LoadFromStorage() error { return a.store.Load(a.callCtx()) }

func (a *App) InitializeBaseData() bool { return a.store.InitializeBaseData() }

// ---- maps ----

func (a *App) GetMaps() []campaign.GameMap { return a.store.Maps() }

func (a *App) GetMapByID(id string) *campaign.GameMap {
	return found(a.store.GetMapByID(id))
}

func (a *App) AddMap(m campaign.GameMap) (campaign.GameMap, error) {
	return a.store.AddMap(a.callCtx(), m)
}

func (a *App) UpdateMap(id string, patch map[string]any) (*campaign.GameMap, error) {
	raw, err := patchJSON(patch)
	if err != nil {
		return nil, err
	}
	m, ok, err := a.store.UpdateMap(a.callCtx(), id, raw)
	if err != nil {
		return nil, err
	}
	return found(m, ok), nil
}

func (a *App) DeleteMap(id string) error { return a.store.DeleteMap(a.callCtx(), id) }

// ---- characters ----

func (a *App) GetCharacters() []campaign.Character { return a.store.Characters() }

func (a *App) GetCharacterByID(id string) *campaign.Character {
	return found(a.store.GetCharacterByID(id))
}

func (a *App) AddCharacter(c campaign.Character) (campaign.Character, error) {
	return a.store.AddCharacter(a.callCtx(), c)
}

func (a *App) UpdateCharacter(id string, patch map[string]any) (*campaign.Character, error) {
	raw, err := patchJSON(patch)
	if err != nil {
		return nil, err
	}
	c, ok, err := a.store.UpdateCharacter(a.callCtx(), id, raw)
	if err != nil {
		return nil, err
	}
	return found(c, ok), nil
}

func (a *App) DeleteCharacter(id string) error { return a.store.DeleteCharacter(a.callCtx(), id) }

// GetCharacterWealth returns inventory and equipment totals, or nil for an
// unknown character.
func (a *App) GetCharacterWealth(id string) *campaign.Totals {
	c, ok := a.store.GetCharacterByID(id)
	if !ok {
		return nil
	}
	t := c.Wealth()
	return &t
}

// ---- creatures ----

func (a *App) GetCreatures() []campaign.Creature { return a.store.Creatures() }

func (a *App) GetCustomCreatures() []campaign.Creature { return a.store.CustomCreatures() }

func (a *App) GetAllCreatures() []campaign.Creature { return a.store.AllCreatures() }

func (a *App) GetCreatureByID(id string) *campaign.Creature {
	return found(a.store.GetCreatureByID(id))
}

func (a *App) AddCustomCreature(c campaign.Creature) (campaign.Creature, error) {
	return a.store.AddCustomCreature(a.callCtx(), c)
}

func (a *App) UpdateCustomCreature(id string, patch map[string]any) (*campaign.Creature, error) {
	raw, err := patchJSON(patch)
	if err != nil {
		return nil, err
	}
	c, ok, err := a.store.UpdateCustomCreature(a.callCtx(), id, raw)
	if err != nil {
		return nil, err
	}
	return found(c, ok), nil
}

func (a *App) DeleteCustomCreature(id string) error {
	return a.store.DeleteCustomCreature(a.callCtx(), id)
}

// ---- sessions ----

func (a *App) GetGameSessions() []campaign.GameSession { return a.store.GameSessions() }

func (a *App) GetGameSessionByID(id string) *campaign.GameSession {
	return found(a.store.GetGameSessionByID(id))
}

func (a *App) AddGameSession(g campaign.GameSession) (campaign.GameSession, error) {
	return a.store.AddGameSession(a.callCtx(), g)
}

func (a *App) UpdateGameSession(id string, patch map[string]any) (*campaign.GameSession, error) {
	raw, err := patchJSON(patch)
	if err != nil {
		return nil, err
	}
	g, ok, err := a.store.UpdateGameSession(a.callCtx(), id, raw)
	if err != nil {
		return nil, err
	}
	return found(g, ok), nil
}

func (a *App) DeleteGameSession(id string) error {
	return a.store.DeleteGameSession(a.callCtx(), id)
}

// ---- backup files ----

var jsonFilter = []runtime.FileFilter{{DisplayName: "JSON (*.json)", Pattern: "*.json"}}

// ExportData asks for a destination and writes the export there. It returns
// the chosen path, or "" when the dialog was cancelled.
func (a *App) ExportData() (string, error) {
	path, err := a.rt.SaveFileDialog(a.callCtx(), runtime.SaveDialogOptions{
		Title:           "Export campaign data",
		DefaultFilename: backup.Filename(a.now()),
		Filters:         jsonFilter,
	})
	if err != nil {
		return "", fmt.Errorf("bindings: save dialog: %w", err)
	}
	if path == "" {
		return "", nil
	}
	if err := a.ExportToFile(path); err != nil {
		return "", err
	}
	return path, nil
}

// ImportData asks for a backup file and imports it. It reports false when the
// dialog was cancelled.
func (a *App) ImportData() (bool, error) {
	path, err := a.rt.OpenFileDialog(a.callCtx(), runtime.OpenDialogOptions{
		Title:   "Import campaign data",
		Filters: jsonFilter,
	})
	if err != nil {
		return false, fmt.Errorf("bindings: open dialog: %w", err)
	}
	if path == "" {
		return false, nil
	}
	if err := a.ImportFromFile(path); err != nil {
		return false, err
	}
	return true, nil
}

// ExportToFile writes the pretty-printed document to path.
func (a *App) ExportToFile(path string) error {
	var buf bytes.Buffer
	if err := a.store.Export(&buf); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("bindings: export: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("bindings: export: %w", err)
	}
	a.log.WithField("path", path).Info("exported")
	return nil
}

// ImportFromFile replaces the document with the one in path. A file that
// cannot be opened is reported as appstore.ErrFileRead.
func (a *App) ImportFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", appstore.ErrFileRead, err)
	}
	defer f.Close()
	if err := a.store.Import(a.callCtx(), f); err != nil {
		return err
	}
	a.log.WithField("path", path).Info("imported")
	return nil
}
