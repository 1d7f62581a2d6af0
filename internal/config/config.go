// Package config reads process configuration from the environment, with an
// optional .env file loaded first.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// AppDirName is the per-user data directory name.
const AppDirName = "dnd-master-desktop"

type Config struct {
	DataDir    string `env:"DND_MASTER_DATA_DIR"`
	DBName     string `env:"DND_MASTER_DB"          envDefault:"dnd-master.db"`
	StorageKey string `env:"DND_MASTER_STORAGE_KEY" envDefault:"dnd-master-data"`
	LogLevel   string `env:"DND_MASTER_LOG_LEVEL"   envDefault:"info"`

	SeedBestiary bool `env:"DND_MASTER_SEED_BESTIARY" envDefault:"true"`

	HTTPEnabled bool   `env:"DND_MASTER_HTTP_ENABLED" envDefault:"true"`
	HTTPPort    int    `env:"DND_MASTER_HTTP_PORT"    envDefault:"17889"`
	APIToken    string `env:"DND_MASTER_API_TOKEN"`

	KeyringService string `env:"DND_MASTER_KEYRING_SERVICE" envDefault:"dnd-master-desktop"`

	// BackupSchedule is a cron expression; empty disables scheduled backups.
	BackupSchedule string `env:"DND_MASTER_BACKUP_SCHEDULE"`
	BackupKeep     int    `env:"DND_MASTER_BACKUP_KEEP"     envDefault:"7"`
}

// Load reads envFile when it exists (a missing file is fine) and then parses
// the environment. Variables already set in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir()
	}
	if cfg.HTTPPort < 0 || cfg.HTTPPort > 65535 {
		return Config{}, fmt.Errorf("config: DND_MASTER_HTTP_PORT out of range: %d", cfg.HTTPPort)
	}
	return cfg, nil
}

// DBPath returns the SQLite file path inside the data dir unless DBName is
// already absolute.
func (c Config) DBPath() string {
	if filepath.IsAbs(c.DBName) {
		return c.DBName
	}
	return filepath.Join(c.DataDir, c.DBName)
}

func (c Config) BackupDir() string { return filepath.Join(c.DataDir, "backups") }

func (c Config) SecretsFallbackPath() string { return filepath.Join(c.DataDir, "secrets.json") }

// DefaultDataDir returns an OS-appropriate writable directory.
func DefaultDataDir() string {
	if d, err := os.UserConfigDir(); err == nil && d != "" {
		return filepath.Join(d, AppDirName)
	}
	if h, err := os.UserHomeDir(); err == nil && h != "" {
		return filepath.Join(h, "."+AppDirName)
	}
	return "."
}
