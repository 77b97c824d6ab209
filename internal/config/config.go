// Package config handles the persistent client configuration at
// ~/.reels/config.json, with environment overrides loaded from a .env
// file when present.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Config is the persistent application configuration.
type Config struct {
	// ServerURL is the content/interaction API base URL.
	ServerURL string `json:"server_url"`

	// ViewerID identifies this viewer to the interaction API. Generated
	// on first run.
	ViewerID string `json:"viewer_id"`

	// PageSize is the number of items requested per feed page.
	PageSize int `json:"page_size"`

	// DBPath is the SQLite database location. Empty means the default
	// under ~/.reels.
	DBPath string `json:"db_path,omitempty"`

	// Feed filter defaults, passed through to the content API opaquely.
	Filter FilterConfig `json:"filter"`

	// UI preferences.
	UI UIConfig `json:"ui"`
}

// FilterConfig holds opaque feed filter defaults.
type FilterConfig struct {
	Owner    string `json:"owner,omitempty"`
	Featured bool   `json:"featured,omitempty"`
	Category string `json:"category,omitempty"`
}

// UIConfig holds UI preferences.
type UIConfig struct {
	Muted        bool    `json:"muted"`
	PlaybackRate float64 `json:"playback_rate"`
	Haptics      bool    `json:"haptics"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ServerURL: "http://localhost:8787",
		ViewerID:  uuid.NewString(),
		PageSize:  10,
		UI: UIConfig{
			Muted:        false,
			PlaybackRate: 1.0,
			Haptics:      true,
		},
	}
}

// Path returns the config file location.
func Path() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".reels", "config.json")
}

// DefaultDBPath returns the default SQLite location.
func DefaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".reels", "reels.db")
}

// Load reads config from disk, or returns defaults. A .env file in the
// working directory and REELS_* environment variables override the file.
func Load() (*Config, error) {
	// Best-effort: a missing .env is not an error.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	data, err := os.ReadFile(Path())
	if err == nil {
		var onDisk Config
		if jsonErr := json.Unmarshal(data, &onDisk); jsonErr == nil {
			cfg = &onDisk
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	cfg.applyEnv()

	if cfg.ViewerID == "" {
		cfg.ViewerID = uuid.NewString()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	if cfg.UI.PlaybackRate <= 0 {
		cfg.UI.PlaybackRate = 1.0
	}
	return cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := Path()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

func (c *Config) applyEnv() {
	if v := os.Getenv("REELS_SERVER"); v != "" {
		c.ServerURL = v
	}
	if v := os.Getenv("REELS_VIEWER_ID"); v != "" {
		c.ViewerID = v
	}
	if v := os.Getenv("REELS_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.PageSize = n
		}
	}
	if v := os.Getenv("REELS_DB"); v != "" {
		c.DBPath = v
	}
}
