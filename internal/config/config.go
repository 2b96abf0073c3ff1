// Package config provides YAML-based configuration management for the tracker backend.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// AppConfig represents the root configuration structure
type AppConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
	Web     WebConfig     `yaml:"web"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port             int    `yaml:"port" validate:"gt=0,lte=65535"`
	BindAddress      string `yaml:"bindAddress"`
	EnableCORS       bool   `yaml:"enableCORS"`
	AllowOrigins     string `yaml:"allowOrigins"`
	ReadTimeout      int    `yaml:"readTimeoutSeconds" validate:"gte=0"`
	WriteTimeout     int    `yaml:"writeTimeoutSeconds" validate:"gte=0"`
	IdleTimeout      int    `yaml:"idleTimeoutSeconds" validate:"gte=0"`
	BodyLimit        string `yaml:"bodyLimit"`
	RequestTimeoutMs int    `yaml:"requestTimeoutMs" validate:"gt=0"`
}

// StorageConfig selects and locates the position store backend
type StorageConfig struct {
	Backend         string `yaml:"backend" validate:"oneof=memory duckdb pebble"`
	DataDirectory   string `yaml:"dataDirectory"`
	DuckDBFile      string `yaml:"duckdbFile"`
	PebbleDirectory string `yaml:"pebbleDirectory"`
}

// LoggingConfig controls the structured logger
type LoggingConfig struct {
	Level                string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format               string `yaml:"format" validate:"omitempty,oneof=json text"`
	EnableRequestLogging bool   `yaml:"enableRequestLogging"`
}

// WebConfig controls the embedded map page
type WebConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:             5004,
			BindAddress:      "0.0.0.0",
			EnableCORS:       true,
			AllowOrigins:     "*",
			ReadTimeout:      10,
			WriteTimeout:     10,
			IdleTimeout:      60,
			BodyLimit:        "64K",
			RequestTimeoutMs: 2000,
		},
		Storage: StorageConfig{
			Backend:         "memory",
			DataDirectory:   "./data",
			DuckDBFile:      "./data/positions.duckdb",
			PebbleDirectory: "./data/positions.pebble",
		},
		Logging: LoggingConfig{
			Level:                "info",
			Format:               "json",
			EnableRequestLogging: true,
		},
		Web: WebConfig{
			Enabled: true,
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(configPath string) (*AppConfig, error) {
	// If file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		config.applyEnvironmentOverrides()
		config.resolvePaths(filepath.Dir(configPath))
		if err := config.Validate(); err != nil {
			return nil, err
		}
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration against its struct constraints
func (c *AppConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Save saves the configuration to a YAML file
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Location tracker configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if backend := os.Getenv("STORAGE_BACKEND"); backend != "" {
		c.Storage.Backend = strings.ToLower(backend)
	}

	// DATA_DIR relocates every storage path under the new directory
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
		c.Storage.DuckDBFile = filepath.Join(dataDir, "positions.duckdb")
		c.Storage.PebbleDirectory = filepath.Join(dataDir, "positions.pebble")
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Logging.Level = strings.ToLower(level)
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}
	if !filepath.IsAbs(c.Storage.DuckDBFile) {
		c.Storage.DuckDBFile = filepath.Join(configDir, c.Storage.DuckDBFile)
	}
	if !filepath.IsAbs(c.Storage.PebbleDirectory) {
		c.Storage.PebbleDirectory = filepath.Join(configDir, c.Storage.PebbleDirectory)
	}
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// RequestTimeout bounds every registry call made by an HTTP handler
func (c *AppConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutMs) * time.Millisecond
}

// EnsureDirectories creates the data directory used by durable backends,
// plus the parent of the DuckDB file
func (c *AppConfig) EnsureDirectories() error {
	if c.Storage.Backend == "memory" {
		return nil
	}
	dirs := []string{c.Storage.DataDirectory}
	if c.Storage.Backend == "duckdb" {
		dirs = append(dirs, filepath.Dir(c.Storage.DuckDBFile))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
