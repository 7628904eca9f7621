package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STREAMPANEL"

// Loader reads configuration with precedence
// defaults < config file < STREAMPANEL_* env < Set (flags).
type Loader struct {
	v          *viper.Viper
	configFile string
}

func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// SetConfigFile loads path instead of searching the config directories.
// An explicit file must exist.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
}

// Set overrides a key, e.g. from a CLI flag.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

func (l *Loader) Load() (*Config, error) {
	for key, value := range defaults(DefaultConfig()) {
		l.v.SetDefault(key, value)
		// Unmarshal only sees env values for keys bound up front.
		_ = l.v.BindEnv(key, EnvVar(key))
	}

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName("config")
		l.v.SetConfigType("yaml")
		for _, dir := range searchDirs() {
			l.v.AddConfigPath(dir)
		}
	}
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	for _, path := range []*string{&cfg.Global.DataDir, &cfg.Global.ConfigDir, &cfg.Database.Path, &cfg.Logging.File} {
		*path = expandTilde(*path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from path.
func LoadFromFile(path string) (*Config, error) {
	loader := NewLoader()
	loader.SetConfigFile(path)
	return loader.Load()
}

// LoadDefault loads configuration from the default search paths.
func LoadDefault() (*Config, error) {
	return NewLoader().Load()
}

// searchDirs lists where config.yaml is looked for, first match wins.
func searchDirs() []string {
	var dirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, "streampanel"))
	}
	if home, _ := os.UserHomeDir(); home != "" {
		dirs = append(dirs, filepath.Join(home, ".config", "streampanel"))
	}
	return append(dirs, ".")
}

func defaults(cfg *Config) map[string]any {
	return map[string]any{
		"global.data_dir":            cfg.Global.DataDir,
		"global.config_dir":          cfg.Global.ConfigDir,
		"database.path":              cfg.Database.Path,
		"database.busy_timeout_ms":   cfg.Database.BusyTimeoutMs,
		"logging.level":              cfg.Logging.Level,
		"logging.format":             cfg.Logging.Format,
		"logging.file":               cfg.Logging.File,
		"logging.enable_caller":      cfg.Logging.EnableCaller,
		"panel.user":                 cfg.Panel.User,
		"panel.default_stream":       cfg.Panel.DefaultStream,
		"panel.off_bottom_threshold": cfg.Panel.OffBottomThreshold,
		"panel.poll_interval":        cfg.Panel.PollInterval,
		"panel.suggestion_limit":     cfg.Panel.SuggestionLimit,
		"panel.notifications":        cfg.Panel.Notifications,
		"tui.theme":                  cfg.TUI.Theme,
	}
}

// Keys lists every config key, sorted. Each can be set through EnvVar(key).
func Keys() []string {
	all := defaults(DefaultConfig())
	keys := make([]string, 0, len(all))
	for key := range all {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// EnvVar returns the environment variable bound to key:
// panel.user -> STREAMPANEL_PANEL_USER.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func expandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}
