package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// MaxPageSize is the largest page the API serves; larger limits are capped by the server.
const MaxPageSize = 100

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Client   ClientConfig   `toml:"client"`
	UI       UIConfig       `toml:"ui"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP API server settings.
type ServerConfig struct {
	Host       string   `toml:"host"`
	Port       int      `toml:"port"`
	SessionTTL Duration `toml:"session_ttl"`
	LogLevel   string   `toml:"log_level"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ClientConfig contains API client settings used by the TUI and CLI commands.
type ClientConfig struct {
	BaseURL   string   `toml:"base_url"`
	RateLimit float64  `toml:"rate_limit"`
	Burst     int      `toml:"burst"`
	Timeout   Duration `toml:"timeout"`
	TokenPath string   `toml:"token_path"`
}

// UIConfig contains terminal UI settings for pagination and scroll sampling.
type UIConfig struct {
	PageSize          int    `toml:"page_size"`
	ScrollThreshold   int    `toml:"scroll_threshold"`
	ScrollRateLimitMS int    `toml:"scroll_rate_limit_ms"`
	LogPath           string `toml:"log_path"`
}

// ScrollRateLimit returns the scroll sampler window as a [time.Duration].
func (u UIConfig) ScrollRateLimit() time.Duration {
	return time.Duration(u.ScrollRateLimitMS) * time.Millisecond
}

// Duration wraps [time.Duration] so it can be written as a string ("10s") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, string(text), err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadConfigOrDefault loads path if it exists and falls back to [DefaultConfig] when it does not.
func LoadConfigOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate checks the values that the pagination and scroll layers depend on.
func (c *Config) Validate() error {
	if c.UI.PageSize <= 0 {
		return fmt.Errorf("%w: ui.page_size must be positive, got %d", ErrInvalidConfig, c.UI.PageSize)
	}
	if c.UI.PageSize > MaxPageSize {
		return fmt.Errorf("%w: ui.page_size must be at most %d, got %d", ErrInvalidConfig, MaxPageSize, c.UI.PageSize)
	}
	if c.UI.ScrollThreshold < 0 {
		return fmt.Errorf("%w: ui.scroll_threshold must not be negative", ErrInvalidConfig)
	}
	if c.UI.ScrollRateLimitMS <= 0 {
		return fmt.Errorf("%w: ui.scroll_rate_limit_ms must be positive", ErrInvalidConfig)
	}
	if c.Client.RateLimit <= 0 {
		return fmt.Errorf("%w: client.rate_limit must be positive", ErrInvalidConfig)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: config file already exists at %s", ErrAlreadyExists, path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ExpandPath replaces a leading "~" with the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
