package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server   ServerSettings   `json:"server"`
	Jellyfin JellyfinSettings `json:"jellyfin"`
	TMDB     TMDBSettings     `json:"tmdb"`
	Database DatabaseSettings `json:"database"`
	Sync     SyncSettings     `json:"sync"`
	Log      LogConfig        `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	PIN  string `json:"pin"`
}

// JellyfinSettings configures the media server the watchlist reconciles
// against. Username is optional: when empty, watched state aggregates over
// all server users.
type JellyfinSettings struct {
	BaseURL  string `json:"baseUrl"`
	APIKey   string `json:"apiKey"`
	Username string `json:"username,omitempty"`
}

type TMDBSettings struct {
	APIKey   string `json:"apiKey"`
	Language string `json:"language"`
}

// DatabaseSettings defines where the watchlist SQLite database lives.
type DatabaseSettings struct {
	Path string `json:"path"`
}

// SyncSettings controls the reconciliation scheduler. The first pass fires
// StartupDelaySeconds after process start; subsequent passes every
// IntervalMinutes. SnapshotTimeoutSeconds bounds the library snapshot fetch
// so an unresponsive server cannot wedge the sync gate.
type SyncSettings struct {
	IntervalMinutes        int `json:"intervalMinutes"`
	StartupDelaySeconds    int `json:"startupDelaySeconds"`
	SnapshotTimeoutSeconds int `json:"snapshotTimeoutSeconds"`
}

// LogConfig represents file logging configuration with rotation.
type LogConfig struct {
	File       string `json:"file"`
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

// DefaultSettings returns the configuration written on first start.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{
			Host: "0.0.0.0",
			Port: 8484,
		},
		TMDB: TMDBSettings{
			Language: "en-US",
		},
		Database: DatabaseSettings{
			Path: filepath.Join("cache", "watchlist.db"),
		},
		Sync: SyncSettings{
			IntervalMinutes:        5,
			StartupDelaySeconds:    10,
			SnapshotTimeoutSeconds: 60,
		},
		Log: LogConfig{
			File:       filepath.Join("cache", "logs", "reelist.log"),
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
		},
	}
}

// Manager loads and persists settings to a JSON file.
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// EnsureDir ensures the parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads settings from disk or creates defaults if missing. Fields added
// after a config file was written are backfilled with their defaults.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}

	f, err := os.Open(m.path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()

	var s Settings
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return Settings{}, err
	}

	// Backfill defaults for configs that predate newer settings.
	defaults := DefaultSettings()
	if s.Server.Port == 0 {
		s.Server.Port = defaults.Server.Port
	}
	if strings.TrimSpace(s.Database.Path) == "" {
		s.Database.Path = defaults.Database.Path
	}
	if s.Sync.IntervalMinutes <= 0 {
		s.Sync.IntervalMinutes = defaults.Sync.IntervalMinutes
	}
	if s.Sync.StartupDelaySeconds < 0 {
		s.Sync.StartupDelaySeconds = defaults.Sync.StartupDelaySeconds
	}
	if s.Sync.SnapshotTimeoutSeconds <= 0 {
		s.Sync.SnapshotTimeoutSeconds = defaults.Sync.SnapshotTimeoutSeconds
	}
	if strings.TrimSpace(s.TMDB.Language) == "" {
		s.TMDB.Language = defaults.TMDB.Language
	}

	return s, nil
}

// Save writes settings to disk atomically.
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}

	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, m.path)
}
