package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/cmdq/internal/queue"
)

// Defaults returns the built-in configuration used when no config file is
// present. The tool must run usefully with zero configuration.
func Defaults() *Config {
	historyPath := "cmdq-history.db"
	if home, err := os.UserHomeDir(); err == nil {
		historyPath = filepath.Join(home, ".local", "state", "cmdq", "history.db")
	}

	return &Config{
		Service: ServiceConfig{
			Name:      "cmdq",
			LogLevel:  "warn",
			LogFormat: "text",
		},
		Queue: QueueConfig{
			Capacity: queue.DefaultCapacity,
		},
		History: HistoryConfig{
			Path: historyPath,
		},
		API: APIConfig{
			Enabled: false,
			Listen:  "127.0.0.1:8575",
		},
	}
}

// Load reads and parses configuration from a file, applies defaults,
// verifies the checksum manifest if one exists, and validates the result.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}
	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", absPath, err)
	}

	applyDefaults(&cfg)

	// Integrity check only applies once the config has been locked.
	if err := VerifyLock(absPath); err != nil {
		return nil, err
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Discover finds the config file by checking standard locations.
// Priority order: $CMDQ_CONFIG, ~/.config/cmdq/config.yaml, ./config.yaml.
// An empty result with nil error means "no config, use Defaults()".
func Discover() (string, error) {
	if path := os.Getenv("CMDQ_CONFIG"); path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("$CMDQ_CONFIG points to %s but it is not readable: %w", path, err)
		}
		return path, nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		userConfig := filepath.Join(home, ".config", "cmdq", "config.yaml")
		if _, err := os.Stat(userConfig); err == nil {
			return userConfig, nil
		}
	}

	if _, err := os.Stat("./config.yaml"); err == nil {
		return "./config.yaml", nil
	}

	return "", nil
}

func applyDefaults(cfg *Config) {
	defaults := Defaults()

	if cfg.Service.Name == "" {
		cfg.Service.Name = defaults.Service.Name
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = defaults.Service.LogLevel
	}
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = defaults.Service.LogFormat
	}
	if cfg.Queue.Capacity == 0 {
		cfg.Queue.Capacity = defaults.Queue.Capacity
	}
	if cfg.History.Path == "" {
		cfg.History.Path = defaults.History.Path
	}
	if cfg.API.Listen == "" {
		cfg.API.Listen = defaults.API.Listen
	}
}

func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Service.LogLevel] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[cfg.Service.LogFormat] {
		return fmt.Errorf("service.log_format must be one of: text, json (got %q)", cfg.Service.LogFormat)
	}

	if cfg.Queue.Capacity < 1 {
		return fmt.Errorf("queue.capacity must be at least 1 (got %d)", cfg.Queue.Capacity)
	}

	if cfg.History.Path == "" {
		return fmt.Errorf("history.path is required")
	}

	if cfg.API.Enabled && cfg.API.Listen == "" {
		return fmt.Errorf("api.listen is required when api.enabled is true")
	}

	return nil
}
