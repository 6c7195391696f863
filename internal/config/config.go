package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Gallery GalleryConfig `mapstructure:"gallery"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds CRM API configuration
type ServerConfig struct {
	URL     string        `mapstructure:"url"`     // API base URL, e.g. http://localhost:8000/api/v1
	Token   string        `mapstructure:"token"`   // Bearer token issued by /login
	Timeout time.Duration `mapstructure:"timeout"` // Per-request timeout
	UserID  int           `mapstructure:"user_id"` // Agent id for authored notes (0 = read from token)
}

// GalleryConfig holds photo gallery tuning
type GalleryConfig struct {
	Concurrency int `mapstructure:"concurrency"` // Parallel image downloads (0 = unbounded)
}

// CacheConfig holds session cache configuration
type CacheConfig struct {
	Dir string `mapstructure:"dir"` // Empty = memory only
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:     "http://localhost:8000/api/v1",
			Timeout: 60 * time.Second,
		},
		Gallery: GalleryConfig{
			Concurrency: 6,
		},
		Cache: CacheConfig{
			Dir: defaultCachePath(),
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "estate", "estate.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "estate", "estate.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "estate")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "estate")
	}
}

// defaultCachePath returns the default cache directory path for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "estate", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "estate", "cache")
	}
}

// LoadConfig loads configuration from the default locations and environment
func LoadConfig() (*Config, error) {
	return load(defaultConfigPath(), ".")
}

// LoadConfigFrom loads configuration from a single directory and environment
func LoadConfigFrom(dir string) (*Config, error) {
	return load(dir)
}

func load(paths ...string) (*Config, error) {
	cfg := DefaultConfig()
	v := newViper(cfg)

	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// newViper builds a viper instance seeded with defaults so every key is
// known to AutomaticEnv (ESTATE_SERVER_TOKEN, ESTATE_GALLERY_CONCURRENCY, ...)
func newViper(defaults *Config) *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetDefault("server.url", defaults.Server.URL)
	v.SetDefault("server.token", defaults.Server.Token)
	v.SetDefault("server.timeout", defaults.Server.Timeout)
	v.SetDefault("server.user_id", defaults.Server.UserID)
	v.SetDefault("gallery.concurrency", defaults.Gallery.Concurrency)
	v.SetDefault("cache.dir", defaults.Cache.Dir)
	v.SetDefault("logging.file", defaults.Logging.File)
	v.SetDefault("logging.level", defaults.Logging.Level)

	// Environment variable overrides
	v.SetEnvPrefix("ESTATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// SaveConfig writes cfg to dir/config.yaml
func SaveConfig(cfg *Config, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.Set("server.url", cfg.Server.URL)
	v.Set("server.token", cfg.Server.Token)
	v.Set("server.timeout", cfg.Server.Timeout.String())
	v.Set("server.user_id", cfg.Server.UserID)
	v.Set("gallery.concurrency", cfg.Gallery.Concurrency)
	v.Set("cache.dir", cfg.Cache.Dir)
	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.level", cfg.Logging.Level)

	configFile := filepath.Join(dir, "config.yaml")
	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveToken stores a freshly issued token in the default config file
func SaveToken(cfg *Config, token string) error {
	cfg.Server.Token = token
	return SaveConfig(cfg, defaultConfigPath())
}

// IsConfigured returns true if the server URL and token are set
func (c *Config) IsConfigured() bool {
	return c.Server.URL != "" && c.Server.Token != ""
}
