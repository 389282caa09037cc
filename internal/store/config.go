package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL     = "http://localhost:5555/api"
	DefaultDebounceMs = 300
	DefaultFormat     = "table"
	DefaultGlyphs     = "unicode"
)

type Config struct {
	// APIURL is the base URL every API path is appended to (including the /api prefix).
	APIURL string `json:"apiUrl" yaml:"apiUrl" mapstructure:"apiUrl"`

	// DebounceMs is the quiet period before a filter change triggers a reload.
	DebounceMs int `json:"debounceMs" yaml:"debounceMs" mapstructure:"debounceMs"`

	// Format is the default CLI output format (json|table).
	Format string `json:"format" yaml:"format" mapstructure:"format"`

	TUI TUIConfig `json:"tui" yaml:"tui" mapstructure:"tui"`
}

type TUIConfig struct {
	// Glyphs selects the glyph set ("unicode" or "ascii").
	Glyphs string `json:"glyphs" yaml:"glyphs" mapstructure:"glyphs"`
}

func DefaultConfig() *Config {
	return &Config{
		APIURL:     DefaultAPIURL,
		DebounceMs: DefaultDebounceMs,
		Format:     DefaultFormat,
		TUI:        TUIConfig{Glyphs: DefaultGlyphs},
	}
}

// Debounce returns DebounceMs as a duration (0 disables debouncing).
func (c *Config) Debounce() time.Duration {
	if c == nil || c.DebounceMs < 0 {
		return 0
	}
	return time.Duration(c.DebounceMs) * time.Millisecond
}

func (s Store) ConfigPath() string {
	return filepath.Join(s.Dir, "config.yaml")
}

// LoadConfig merges defaults, config.yaml and FLOW_* environment variables (in that order).
// A missing file is not an error.
func (s Store) LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	def := DefaultConfig()
	v.SetDefault("apiUrl", def.APIURL)
	v.SetDefault("debounceMs", def.DebounceMs)
	v.SetDefault("format", def.Format)
	v.SetDefault("tui.glyphs", def.TUI.Glyphs)

	_ = v.BindEnv("apiUrl", "FLOW_API_URL")
	_ = v.BindEnv("debounceMs", "FLOW_DEBOUNCE_MS")
	_ = v.BindEnv("format", "FLOW_FORMAT")
	_ = v.BindEnv("tui.glyphs", "FLOW_GLYPHS")

	path := s.ConfigPath()
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	return &cfg, nil
}

// readFileConfig returns defaults overlaid with config.yaml, ignoring the environment,
// so SetConfigValue never persists values that came from FLOW_* variables.
func (s Store) readFileConfig() (*Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(s.ConfigPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s Store) SaveConfig(cfg *Config) error {
	if err := s.Ensure(); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	path := s.ConfigPath()

	// Best-effort: keep the previous file around for recovery.
	if prev, err := os.ReadFile(path); err == nil && len(prev) > 0 {
		_ = atomicWriteFile(s.Dir, "config.yaml.bak.*.tmp", path+".bak", prev, 0o644)
	}
	return atomicWriteFile(s.Dir, "config.yaml.*.tmp", path, b, 0o600)
}

// ConfigKeys lists the keys accepted by SetConfigValue.
func ConfigKeys() []string {
	keys := []string{"apiUrl", "debounceMs", "format", "tui.glyphs"}
	sort.Strings(keys)
	return keys
}

// SetConfigValue validates and persists a single key in config.yaml.
func (s Store) SetConfigValue(key, value string) error {
	cfg, err := s.readFileConfig()
	if err != nil {
		return err
	}
	value = strings.TrimSpace(value)
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "apiurl":
		if value == "" {
			return errors.New("apiUrl must not be empty")
		}
		if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
			return fmt.Errorf("apiUrl must start with http:// or https:// (got %q)", value)
		}
		cfg.APIURL = strings.TrimRight(value, "/")
	case "debouncems":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("debounceMs must be a non-negative integer (got %q)", value)
		}
		cfg.DebounceMs = n
	case "format":
		switch value {
		case "json", "table":
		default:
			return fmt.Errorf("format must be json or table (got %q)", value)
		}
		cfg.Format = value
	case "tui.glyphs":
		switch value {
		case "unicode", "ascii":
		default:
			return fmt.Errorf("tui.glyphs must be unicode or ascii (got %q)", value)
		}
		cfg.TUI.Glyphs = value
	default:
		return fmt.Errorf("unknown config key %q (want one of: %s)", key, strings.Join(ConfigKeys(), ", "))
	}
	return s.SaveConfig(cfg)
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}
