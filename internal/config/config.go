// Package config handles streampanel configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Config is the root configuration structure for streampanel.
type Config struct {
	Global   GlobalConfig   `yaml:"global" mapstructure:"global"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
	Panel    PanelConfig    `yaml:"panel" mapstructure:"panel"`
	TUI      TUIConfig      `yaml:"tui" mapstructure:"tui"`
}

// GlobalConfig locates streampanel's files.
type GlobalConfig struct {
	// DataDir is where streampanel stores its data (default: ~/.local/share/streampanel).
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// ConfigDir is where config files are stored (default: ~/.config/streampanel).
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	// Path overrides <data_dir>/streampanel.db.
	Path string `yaml:"path" mapstructure:"path"`

	// BusyTimeoutMs is how long to wait for a locked database.
	BusyTimeoutMs int `yaml:"busy_timeout_ms" mapstructure:"busy_timeout_ms"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	// Level: debug, info, warn or error.
	Level string `yaml:"level" mapstructure:"level"`

	// Format: console or json.
	Format string `yaml:"format" mapstructure:"format"`

	// File receives the logs while the panel owns the terminal
	// (default: <data_dir>/streampanel.log).
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller annotates entries with file:line.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// PanelConfig controls the stream panel.
type PanelConfig struct {
	// User is the username (or email) of the person running the panel.
	User string `yaml:"user" mapstructure:"user"`

	// DefaultStream is opened when no stream was remembered.
	DefaultStream string `yaml:"default_stream" mapstructure:"default_stream"`

	// OffBottomThreshold is how many rows above the bottom still count as
	// "at the bottom" for auto-scroll.
	OffBottomThreshold int `yaml:"off_bottom_threshold" mapstructure:"off_bottom_threshold"`

	// PollInterval is how often new posts are fetched.
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`

	// SuggestionLimit caps the rendered mention candidates (0 = no cap).
	SuggestionLimit int `yaml:"suggestion_limit" mapstructure:"suggestion_limit"`

	// Notifications enables desktop notifications for mentions.
	Notifications bool `yaml:"notifications" mapstructure:"notifications"`
}

// TUIConfig controls rendering.
type TUIConfig struct {
	// Theme is one of knownThemes.
	Theme string `yaml:"theme" mapstructure:"theme"`
}

var knownThemes = []string{"default", "high-contrast"}

// DefaultConfig returns the built-in values, rooted at the user's home.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Global: GlobalConfig{
			DataDir:   filepath.Join(home, ".local", "share", "streampanel"),
			ConfigDir: filepath.Join(home, ".config", "streampanel"),
		},
		Database: DatabaseConfig{
			Path:          "", // DataDir/streampanel.db
			BusyTimeoutMs: 5000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Panel: PanelConfig{
			DefaultStream:      "general",
			OffBottomThreshold: 100,
			PollInterval:       2 * time.Second,
			SuggestionLimit:    8,
			Notifications:      true,
		},
		TUI: TUIConfig{
			Theme: "default",
		},
	}
}

// Validate reports the first out-of-range value.
func (c *Config) Validate() error {
	if c.Database.BusyTimeoutMs < 0 {
		return fmt.Errorf("database.busy_timeout_ms must not be negative")
	}
	if c.Panel.OffBottomThreshold < 1 {
		return fmt.Errorf("panel.off_bottom_threshold must be positive")
	}
	if c.Panel.PollInterval < 100*time.Millisecond {
		return fmt.Errorf("panel.poll_interval must be at least 100ms")
	}
	if c.Panel.SuggestionLimit < 0 {
		return fmt.Errorf("panel.suggestion_limit must not be negative")
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json")
	}
	if slices.Contains(knownThemes, strings.ToLower(strings.TrimSpace(c.TUI.Theme))) {
		return nil
	}
	return fmt.Errorf("tui.theme must be one of %s", strings.Join(knownThemes, ", "))
}

// EnsureDirectories creates the data directory and the database's parent.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Global.DataDir, filepath.Dir(c.DatabasePath())} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath resolves database.path against the data directory.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.Global.DataDir, "streampanel.db")
}

// LogPath returns the log file path.
func (c *Config) LogPath() string {
	if c.Logging.File != "" {
		return c.Logging.File
	}
	return filepath.Join(c.Global.DataDir, "streampanel.log")
}

// StatePath returns the path of the persisted panel state (drafts, last stream).
func (c *Config) StatePath() string {
	return filepath.Join(c.Global.DataDir, "panel-state.json")
}
