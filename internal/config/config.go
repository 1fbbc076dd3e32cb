package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all gearforge configuration.
type Config struct {
	Debug bool `yaml:"debug"`

	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Web       WebConfig       `yaml:"web"`
	Logging   LoggingConfig   `yaml:"logging"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
}

// ServerConfig configures the REST backend.
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// StorageConfig configures persistence.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// WebConfig configures the server-rendered front-end.
type WebConfig struct {
	Port                string `yaml:"port"`
	APIBaseURL          string `yaml:"api_base_url"`
	RequestTimeout      string `yaml:"request_timeout"`
	NotificationTimeout string `yaml:"notification_timeout"`
	StaticDir           string `yaml:"static_dir"` // empty serves the embedded assets
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// OptimizerConfig tunes the build search.
type OptimizerConfig struct {
	Workers         int `yaml:"workers"`
	MaxCombinations int `yaml:"max_combinations"`

	// SetBonuses maps set name -> required pieces -> attribute bonus
	SetBonuses map[string]map[int]map[string]float64 `yaml:"set_bonuses"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Debug: false,
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           "5000",
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		},
		Storage: StorageConfig{
			DatabasePath: "./gearforge.db",
		},
		Web: WebConfig{
			Port:                "8080",
			APIBaseURL:          "http://localhost:5000",
			RequestTimeout:      "30s",
			NotificationTimeout: "3s",
			StaticDir:           "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Optimizer: OptimizerConfig{
			Workers:         4,
			MaxCombinations: 500000,
		},
	}
}

// Load loads configuration from a YAML file, then applies .env and
// environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	// .env never overrides variables already present in the environment
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("DEBUG"); v != "" {
		c.Debug = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.Storage.DatabasePath = v
	}
	if v := os.Getenv("WEB_PORT"); v != "" {
		c.Web.Port = v
	}
	if v := os.Getenv("API_BASE_URL"); v != "" {
		c.Web.APIBaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("OPTIMIZER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Optimizer.Workers = n
		}
	}
}

// ValidLogLevels lists the accepted logging levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port not configured")
	}
	if c.Storage.DatabasePath == "" {
		return fmt.Errorf("database path not configured")
	}

	validLevel := false
	for _, l := range ValidLogLevels {
		if strings.EqualFold(c.Logging.Level, l) {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}

	for set, tiers := range c.Optimizer.SetBonuses {
		for pieces := range tiers {
			if pieces < 1 || pieces > 5 {
				return fmt.Errorf("set bonus %s: piece count %d out of range", set, pieces)
			}
		}
	}
	return nil
}

// Addr returns the backend listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// GetRequestTimeout returns the client request timeout as a duration.
func (c *Config) GetRequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.Web.RequestTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetNotificationTimeout returns how long notifications stay visible.
func (c *Config) GetNotificationTimeout() time.Duration {
	d, err := time.ParseDuration(c.Web.NotificationTimeout)
	if err != nil {
		return 3 * time.Second
	}
	return d
}
