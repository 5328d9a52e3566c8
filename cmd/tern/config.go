package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/goccy/go-yaml"
)

// Config holds the CLI's settings: a .tern.yaml file provides the base,
// TERN_* environment variables override it.
type Config struct {
	History     bool   `yaml:"history"`
	HistoryPath string `yaml:"history_path"`
	Retention   int    `yaml:"retention"`
	Indent      int    `yaml:"indent"`
}

func defaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		History:     true,
		HistoryPath: filepath.Join(home, ".tern", "history.db"),
		Retention:   200,
		Indent:      0,
	}
}

// LoadConfig reads the config file (explicit path, or ./.tern.yaml when it
// exists) and applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		if _, err := os.Stat(".tern.yaml"); err == nil {
			path = ".tern.yaml"
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", path, err)
		}
	}

	if v := os.Getenv("TERN_HISTORY"); v != "" {
		cfg.History = v != "off" && v != "0" && v != "false"
	}
	if v := os.Getenv("TERN_HISTORY_PATH"); v != "" {
		cfg.HistoryPath = v
	}
	if v := os.Getenv("TERN_RETENTION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Retention = n
		}
	}

	return cfg, nil
}
