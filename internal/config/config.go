// Package config loads application configuration from a YAML file and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ErrMissingCredentials is returned when the Telegram API credentials are
// absent from the environment.
var ErrMissingCredentials = errors.New("TG_API_ID and TG_API_HASH must be set")

// Config holds all application configuration.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Download DownloadConfig `yaml:"download"`
	Filters  FilterConfig   `yaml:"filters"`
	Logging  LoggingConfig  `yaml:"logging"`

	// credentials come from the environment only, never from the file
	APIID   int    `yaml:"-"`
	APIHash string `yaml:"-"`
}

// TelegramConfig controls the client session and fetch behavior.
type TelegramConfig struct {
	SessionDB  string  `yaml:"session_db"`  // sqlite session store path
	BatchSize  int     `yaml:"batch_size"`  // concurrent downloads per group
	MaxRetries int     `yaml:"max_retries"` // connect attempts before giving up
	RequestRPS float64 `yaml:"request_rps"` // api rate limit
}

// DownloadConfig controls where and how files are written.
type DownloadConfig struct {
	OutputDir         string `yaml:"output_directory"`
	StateFile         string `yaml:"state_file"` // download ledger path
	PreserveMetadata  bool   `yaml:"preserve_metadata"`
	OrganizeByChannel bool   `yaml:"organize_by_channel"`
	OrganizeByDate    bool   `yaml:"organize_by_date"`
	TransferTimeoutS  int    `yaml:"transfer_timeout_seconds"`
}

// FilterConfig narrows which files are downloaded.
type FilterConfig struct {
	MinFileSizeKB      int64    `yaml:"min_file_size_kb"`
	MaxFileSizeMB      int64    `yaml:"max_file_size_mb"`
	AllowedExtensions  []string `yaml:"allowed_extensions"`
	ExcludedExtensions []string `yaml:"excluded_extensions"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{
			SessionDB:  "session.db",
			BatchSize:  5,
			MaxRetries: 3,
			RequestRPS: 2.0,
		},
		Download: DownloadConfig{
			OutputDir:         "downloads",
			StateFile:         "download_state.json",
			PreserveMetadata:  true,
			OrganizeByChannel: true,
			TransferTimeoutS:  600,
		},
		Filters: FilterConfig{
			MaxFileSizeMB:      1000,
			ExcludedExtensions: []string{".exe", ".bat", ".sh"},
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "tgmedia.log",
		},
	}
}

// Load reads the YAML config at path, creating it with defaults when it
// does not exist, then applies environment overrides. A broken config
// file is an error; a missing one is not.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// write defaults so the user has something to edit
		if out, merr := yaml.Marshal(cfg); merr == nil {
			_ = os.WriteFile(path, out, 0644)
		}
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.APIID = getEnvInt("TG_API_ID", 0)
	cfg.APIHash = getEnv("TG_API_HASH", "")
	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.File = getEnv("LOG_FILE", cfg.Logging.File)

	if cfg.Telegram.BatchSize <= 0 {
		cfg.Telegram.BatchSize = 5
	}

	return cfg, nil
}

// ValidateCredentials checks that the Telegram API credentials are present.
func (c *Config) ValidateCredentials() error {
	if c.APIID == 0 || c.APIHash == "" {
		return ErrMissingCredentials
	}
	return nil
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
