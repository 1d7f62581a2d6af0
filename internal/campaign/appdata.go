package campaign

import (
	"fmt"

	"golang.org/x/text/language"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

type Language string

const (
	LanguageRU Language = "ru"
	LanguageEN Language = "en"
)

type MapSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type AppSettings struct {
	Theme           Theme    `json:"theme"`
	Language        Language `json:"language"`
	DefaultMapSize  MapSize  `json:"defaultMapSize"`
	DefaultCellSize int      `json:"defaultCellSize"`
	AutoSave        bool     `json:"autoSave"`
}

// AppData is the single root document persisted to storage and written to
// backup files.
type AppData struct {
	Maps            []GameMap     `json:"maps"`
	Characters      []Character   `json:"characters"`
	Creatures       []Creature    `json:"creatures"`
	CustomCreatures []Creature    `json:"customCreatures"`
	GameSessions    []GameSession `json:"gameSessions"`
	Settings        AppSettings   `json:"settings"`
}

// DefaultSettings returns the settings of a fresh install.
func DefaultSettings() AppSettings {
	return AppSettings{
		Theme:           ThemeDark,
		Language:        LanguageRU,
		DefaultMapSize:  MapSize{Width: 22, Height: 28},
		DefaultCellSize: 50,
		AutoSave:        true,
	}
}

// DefaultAppData returns an empty document with default settings.
func DefaultAppData() AppData {
	return AppData{
		Maps:            []GameMap{},
		Characters:      []Character{},
		Creatures:       []Creature{},
		CustomCreatures: []Creature{},
		GameSessions:    []GameSession{},
		Settings:        DefaultSettings(),
	}
}

// Normalize replaces nil collections with empty ones so they encode as [].
func (d *AppData) Normalize() {
	if d.Maps == nil {
		d.Maps = []GameMap{}
	}
	if d.Characters == nil {
		d.Characters = []Character{}
	}
	if d.Creatures == nil {
		d.Creatures = []Creature{}
	}
	if d.CustomCreatures == nil {
		d.CustomCreatures = []Creature{}
	}
	if d.GameSessions == nil {
		d.GameSessions = []GameSession{}
	}
}

// Counts is a per-collection summary used by the home screen and health checks.
type Counts struct {
	Maps            int `json:"maps"`
	Characters      int `json:"characters"`
	Creatures       int `json:"creatures"`
	CustomCreatures int `json:"customCreatures"`
	GameSessions    int `json:"gameSessions"`
}

func (d AppData) Counts() Counts {
	return Counts{
		Maps:            len(d.Maps),
		Characters:      len(d.Characters),
		Creatures:       len(d.Creatures),
		CustomCreatures: len(d.CustomCreatures),
		GameSessions:    len(d.GameSessions),
	}
}

var (
	supportedLanguages = []language.Tag{language.Russian, language.English}
	languageMatcher    = language.NewMatcher(supportedLanguages)
)

// ParseLanguage maps a BCP 47 tag such as "en-GB" onto a supported UI
// language. Tags that match neither language with at least high confidence
// are rejected.
func ParseLanguage(s string) (Language, error) {
	tag, err := language.Parse(s)
	if err != nil {
		return "", fmt.Errorf("campaign: language %q: %w", s, err)
	}
	_, idx, conf := languageMatcher.Match(tag)
	if conf < language.High {
		return "", fmt.Errorf("campaign: language %q is not supported", s)
	}
	if idx == 0 {
		return LanguageRU, nil
	}
	return LanguageEN, nil
}
