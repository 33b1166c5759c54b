package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultConfigName       = "config.json"
	defaultDatabaseFile     = "client.db"
	defaultLogFile          = "craftcloud.log"
	defaultAPIURL           = "http://localhost:8000/api"
	defaultHeartbeatSeconds = 3
	defaultLogLevel         = "info"

	envAPIURL = "CRAFTCLOUD_API_URL"
	envDev    = "CRAFTCLOUD_DEV"
)

type Config struct {
	APIURL           string `json:"api_url"`
	DatabasePath     string `json:"database_path"`
	LogPath          string `json:"log_path"`
	LogLevel         string `json:"log_level"`
	HeartbeatSeconds int    `json:"heartbeat_seconds"`
}

func IsDev() bool {
	v := strings.ToLower(os.Getenv(envDev))
	return v == "1" || v == "true"
}

// Dir is the per-user directory holding the config file and database.
func Dir() (string, error) {
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	appName := "craftcloud"
	if IsDev() {
		appName = "craftcloud-dev"
	}
	return filepath.Join(userConfigDir, appName), nil
}

// LoadConfig reads config.json from configDir, writing a default one on
// first run. CRAFTCLOUD_API_URL overrides the stored API URL.
func LoadConfig(configDir string) (*Config, error) {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, err
	}

	configPath := filepath.Join(configDir, defaultConfigName)

	var cfg *Config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg, err = createDefaultConfig(configPath, configDir)
		if err != nil {
			return nil, err
		}
	} else {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg = &Config{}
		if err := json.Unmarshal(file, cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyDefaults(configDir)
	if v := os.Getenv(envAPIURL); v != "" {
		cfg.APIURL = v
	}
	return cfg, nil
}

func (c *Config) applyDefaults(configDir string) {
	if c.APIURL == "" {
		c.APIURL = defaultAPIURL
	}
	if c.DatabasePath == "" {
		c.DatabasePath = filepath.Join(configDir, defaultDatabaseFile)
	}
	if c.LogPath == "" {
		c.LogPath = filepath.Join(configDir, defaultLogFile)
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.HeartbeatSeconds <= 0 {
		c.HeartbeatSeconds = defaultHeartbeatSeconds
	}
}

func createDefaultConfig(configPath, configDir string) (*Config, error) {
	cfg := Config{}
	cfg.applyDefaults(configDir)

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatSeconds) * time.Second
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
