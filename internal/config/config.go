package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"whiterabbit/internal/eventbus"
)

// Environment variables that override file values
const (
	EnvAPIURL = "WHITERABBIT_API_URL"
	EnvAPIKey = "WHITERABBIT_API_KEY"
	EnvListen = "WHITERABBIT_LISTEN"
)

// Config represents the application configuration
type Config struct {
	Version int             `toml:"version"`
	API     APISettings     `toml:"api"`
	Gateway GatewaySettings `toml:"gateway"`
	Search  SearchSettings  `toml:"search"`
	Log     LogSettings     `toml:"log"`
	UI      UISettings      `toml:"ui"`
}

// APISettings points at the backend API
type APISettings struct {
	BaseURL string   `toml:"base_url"`
	APIKey  string   `toml:"api_key,omitempty"`
	Timeout Duration `toml:"timeout"`
}

// GatewaySettings configures the HTTP gateway
type GatewaySettings struct {
	Listen          string   `toml:"listen"`
	UpstreamTimeout Duration `toml:"upstream_timeout"`
	RateLimit       float64  `toml:"rate_limit"` // requests per second, 0 disables
	Burst           int      `toml:"burst"`
	AllowedOrigin   string   `toml:"allowed_origin,omitempty"`
}

// SearchSettings tunes the search store
type SearchSettings struct {
	Debounce Duration `toml:"debounce"`
	Limit    int      `toml:"limit"`
}

// LogSettings configures logging
type LogSettings struct {
	Level string `toml:"level"`
	File  string `toml:"file,omitempty"`
}

// UISettings represents UI-related configuration
type UISettings struct {
	Voice      string `toml:"voice"`
	ShowScores bool   `toml:"show_scores"`
}

// Duration is a time.Duration that reads and writes as "300ms" in TOML
type Duration time.Duration

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// ConfigService handles configuration management
type ConfigService interface {
	Load() (*Config, error)
	Save(config *Config) error
	LoadFromPath(path string) (*Config, error)
	SaveToPath(config *Config, path string) error
	Path() string
}

// configService is the concrete implementation
type configService struct {
	bus      eventbus.EventBus
	filePath string
}

// DefaultPath returns ~/.config/whiterabbit/config.toml, falling back to
// the home directory and finally the working directory.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir, err = os.UserHomeDir()
		if err != nil {
			configDir = "."
		}
		configDir = filepath.Join(configDir, ".config")
	}
	return filepath.Join(configDir, "whiterabbit", "config.toml")
}

// NewConfigService creates a config service for path ("" means DefaultPath).
// bus may be nil.
func NewConfigService(path string, bus eventbus.EventBus) ConfigService {
	if path == "" {
		path = DefaultPath()
	}
	return &configService{
		bus:      bus,
		filePath: path,
	}
}

func (cs *configService) Path() string {
	return cs.filePath
}

// Load loads the configuration from the service's file. A missing file
// yields DefaultConfig. Environment overrides are applied either way.
func (cs *configService) Load() (*Config, error) {
	var cfg *Config
	if _, err := os.Stat(cs.filePath); os.IsNotExist(err) {
		cfg = DefaultConfig()
	} else {
		loaded, err := cs.LoadFromPath(cs.filePath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cfg.ApplyEnv()

	if cs.bus != nil {
		cs.bus.Publish(eventbus.ConfigLoadedEvent{
			Path:    cs.filePath,
			BaseURL: cfg.API.BaseURL,
		})
	}

	return cfg, nil
}

// Save saves the configuration to the service's file
func (cs *configService) Save(config *Config) error {
	if err := cs.SaveToPath(config, cs.filePath); err != nil {
		return err
	}

	if cs.bus != nil {
		cs.bus.Publish(eventbus.ConfigSavedEvent{Path: cs.filePath})
	}

	return nil
}

// LoadFromPath loads configuration from a specific path. Fields absent
// from the file keep their default values.
func (cs *configService) LoadFromPath(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveToPath saves configuration to a specific path
func (cs *configService) SaveToPath(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// the file may hold an API key
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides file values with environment variables
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.API.APIKey = v
	}
	if v := os.Getenv(EnvListen); v != "" {
		c.Gateway.Listen = v
	}
}

// Validate rejects values the rest of the program cannot work with
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must be set")
	}
	if c.Search.Limit < 1 || c.Search.Limit > 100 {
		return fmt.Errorf("search.limit must be between 1 and 100, got %d", c.Search.Limit)
	}
	if c.Search.Debounce < 0 {
		return fmt.Errorf("search.debounce must not be negative")
	}
	if c.Gateway.UpstreamTimeout <= 0 {
		return fmt.Errorf("gateway.upstream_timeout must be positive")
	}
	return nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		API: APISettings{
			BaseURL: "http://localhost:8000",
			Timeout: Duration(10 * time.Second),
		},
		Gateway: GatewaySettings{
			Listen:          "127.0.0.1:3000",
			UpstreamTimeout: Duration(5 * time.Second),
			RateLimit:       20,
			Burst:           40,
		},
		Search: SearchSettings{
			Debounce: Duration(300 * time.Millisecond),
			Limit:    10,
		},
		Log: LogSettings{
			Level: "info",
		},
		UI: UISettings{
			Voice:      "default",
			ShowScores: false,
		},
	}
}
