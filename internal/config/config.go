package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the checkpoint configuration
type Config struct {
	// Remote service configuration
	ServerURL  string `mapstructure:"server_url"`
	APITimeout int    `mapstructure:"api_timeout"` // seconds

	// Local fallback store configuration
	DatabasePath  string `mapstructure:"database_path"`
	EncryptionKey string `mapstructure:"encryption_key"` // hex, optional
	FullSync      bool   `mapstructure:"full_sync"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:     "http://localhost:3000",
		APITimeout:    10,
		DatabasePath:  "./checkpoint.db",
		EncryptionKey: "",
		FullSync:      false,
		LogLevel:      "info",
		LogFile:       "",
	}
}

// Load loads configuration from file and environment variables
func Load(configFile string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()

	setDefaults(v, cfg)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/laptop-checkpoint")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".laptop-checkpoint"))
		}
	}

	v.SetEnvPrefix("CHECKPOINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server_url", cfg.ServerURL)
	v.SetDefault("api_timeout", cfg.APITimeout)
	v.SetDefault("database_path", cfg.DatabasePath)
	v.SetDefault("encryption_key", cfg.EncryptionKey)
	v.SetDefault("full_sync", cfg.FullSync)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_file", cfg.LogFile)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}

	if c.APITimeout <= 0 {
		return fmt.Errorf("api_timeout must be positive")
	}

	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}

	if _, err := c.EncryptionKeyBytes(); err != nil {
		return err
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}

	return nil
}

// Timeout returns the remote read timeout
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.APITimeout) * time.Second
}

// EncryptionKeyBytes decodes the configured key. An empty key disables encryption.
func (c *Config) EncryptionKeyBytes() ([]byte, error) {
	if c.EncryptionKey == "" {
		return nil, nil
	}

	key, err := hex.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption_key must be hex encoded: %w", err)
	}

	switch len(key) {
	case 16, 24, 32:
		return key, nil
	default:
		return nil, fmt.Errorf("encryption_key must decode to 16, 24 or 32 bytes, got %d", len(key))
	}
}
