package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appName        = "focus"
	configFileName = "config.yaml"

	// EnvDBPath overrides the database location.
	EnvDBPath = "FOCUS_DB"
)

// Config is the process-level configuration. User preferences edited in the
// UI live in the database settings table instead.
type Config struct {
	// Dir is the directory the file was loaded from; logs go below it.
	Dir          string
	DBPath       string
	Debug        bool
	PollInterval time.Duration
	MaxAttempts  int
	Notify       Notifications
}

type Notifications struct {
	Enabled bool
	TrayDir string
	Bell    bool
}

type yamlConfig struct {
	DBPath              string            `yaml:"db_path,omitempty"`
	Debug               bool              `yaml:"debug"`
	PollIntervalSeconds int               `yaml:"poll_interval_seconds,omitempty"`
	MaxAttempts         int               `yaml:"max_attempts,omitempty"`
	Notifications       yamlNotifications `yaml:"notifications"`
}

type yamlNotifications struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	TrayDir string `yaml:"tray_dir,omitempty"`
	Bell    *bool  `yaml:"bell,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default(dir string) Config {
	return Config{
		Dir:          dir,
		DBPath:       filepath.Join(dir, "focus.db"),
		PollInterval: 5 * time.Second,
		MaxAttempts:  5,
		Notify: Notifications{
			Enabled: true,
			Bell:    true,
		},
	}
}

// DefaultDir returns <UserConfigDir>/focus.
func DefaultDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName), nil
}

// Load reads <dir>/config.yaml. A missing file yields the defaults; the
// FOCUS_DB environment variable takes precedence over db_path.
func Load(dir string) (Config, error) {
	cfg := Default(dir)

	rawData, err := os.ReadFile(filepath.Join(dir, configFileName))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config file: %w", err)
	default:
		var fileData yamlConfig
		if err := yaml.Unmarshal(rawData, &fileData); err != nil {
			return cfg, fmt.Errorf("parse config yaml: %w", err)
		}
		applyYamlConfig(&cfg, fileData)
	}

	if env := os.Getenv(EnvDBPath); env != "" {
		cfg.DBPath = env
	}
	return cfg, nil
}

// Save writes cfg to <cfg.Dir>/config.yaml.
func Save(cfg Config) error {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	enabled, bell := cfg.Notify.Enabled, cfg.Notify.Bell
	fileData := yamlConfig{
		DBPath:              cfg.DBPath,
		Debug:               cfg.Debug,
		PollIntervalSeconds: int(cfg.PollInterval / time.Second),
		MaxAttempts:         cfg.MaxAttempts,
		Notifications: yamlNotifications{
			Enabled: &enabled,
			TrayDir: cfg.Notify.TrayDir,
			Bell:    &bell,
		},
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal config yaml: %w", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Dir, configFileName), serialized, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func applyYamlConfig(cfg *Config, fileData yamlConfig) {
	if fileData.DBPath != "" {
		cfg.DBPath = fileData.DBPath
	}
	if fileData.PollIntervalSeconds > 0 {
		cfg.PollInterval = time.Duration(fileData.PollIntervalSeconds) * time.Second
	}
	if fileData.MaxAttempts > 0 {
		cfg.MaxAttempts = fileData.MaxAttempts
	}
	if fileData.Notifications.Enabled != nil {
		cfg.Notify.Enabled = *fileData.Notifications.Enabled
	}
	if fileData.Notifications.Bell != nil {
		cfg.Notify.Bell = *fileData.Notifications.Bell
	}
	cfg.Notify.TrayDir = fileData.Notifications.TrayDir
	cfg.Debug = fileData.Debug
}
