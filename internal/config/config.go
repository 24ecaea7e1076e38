// Package config provides configuration management for Portico.
//
// This package handles loading configuration from multiple sources:
//   - YAML configuration files
//   - Environment variables (with PORTICO_ prefix)
//   - .env files
//   - Default values
//
// # Configuration Sources Priority
//
// Configuration is loaded in the following order (later sources override earlier ones):
//  1. Default values (hardcoded)
//  2. Configuration files (./config.yaml, ~/.portico/config.yaml, /etc/portico/config.yaml)
//  3. .env files
//  4. Environment variables (PORTICO_ prefix)
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Cloud API: %s\n", cfg.Cloud.APIURL)
//
// # Environment Variables
//
// Use the PORTICO_ prefix and underscores for nested keys:
//   - PORTICO_CLOUD_SECRET_KEY=...
//   - PORTICO_PORTABLE_INSTALLS_DIR=/opt/portico/portable
//   - PORTICO_LOGGING_LEVEL=debug
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure for Portico.
type Config struct {
	// Cloud contains control plane access settings
	Cloud CloudConfig `mapstructure:"cloud" yaml:"cloud"`

	// Portable contains the local install and instance directories
	Portable PortableConfig `mapstructure:"portable" yaml:"portable"`

	// Logging contains logging settings
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// CloudConfig contains control plane access settings.
type CloudConfig struct {
	// APIURL is the base URL of the control plane API
	APIURL string `mapstructure:"api_url" yaml:"api_url"`

	// SecretKey authenticates API requests. Usually supplied through the
	// environment or the secret key file written by "cloud login".
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key,omitempty"`

	// SecretKeyFile is where "cloud login" stores the key
	SecretKeyFile string `mapstructure:"secret_key_file" yaml:"secret_key_file"`

	// RequestRate caps API requests per second
	RequestRate float64 `mapstructure:"request_rate" yaml:"request_rate"`

	// RequestTimeout bounds a single API request
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`

	// ProbeConcurrency is the number of instances probed in parallel by "cloud status"
	ProbeConcurrency int `mapstructure:"probe_concurrency" yaml:"probe_concurrency"`
}

// PortableConfig locates locally installed server versions and instances.
type PortableConfig struct {
	// InstallsDir holds one subdirectory per installed specific version
	InstallsDir string `mapstructure:"installs_dir" yaml:"installs_dir"`

	// DataDir holds one subdirectory per local instance
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error)
	Level string `mapstructure:"level" yaml:"level"`

	// Format is the log format (json, text)
	Format string `mapstructure:"format" yaml:"format"`

	// Output is stdout, stderr or a file path
	Output string `mapstructure:"output" yaml:"output"`
}

// Load reads configuration from a file and environment variables.
// If cfgFile is empty, it searches for config.yaml in standard locations.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (PORTICO_ prefix)
//  2. .env file
//  3. Configuration file
//  4. Default values
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.portico")
		v.AddConfigPath("/etc/portico")
	}

	if err := v.ReadInConfig(); err != nil {
		if cfgFile != "" {
			// A missing explicit file falls back to defaults
			if !isFileNotFoundError(err) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		} else {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.MergeInConfig() // Ignore error if .env file doesn't exist

	v.SetEnvPrefix("PORTICO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dataRoot := filepath.Join(home, ".local", "share", "portico")

	v.SetDefault("cloud.api_url", "https://api.portico.cloud/v1/")
	v.SetDefault("cloud.secret_key", "")
	v.SetDefault("cloud.secret_key_file", filepath.Join(home, ".portico", "secret_key"))
	v.SetDefault("cloud.request_rate", 10.0)
	v.SetDefault("cloud.request_timeout", "30s")
	v.SetDefault("cloud.probe_concurrency", 4)

	v.SetDefault("portable.installs_dir", filepath.Join(dataRoot, "portable"))
	v.SetDefault("portable.data_dir", filepath.Join(dataRoot, "data"))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
}

func validate(cfg *Config) error {
	u, err := url.Parse(cfg.Cloud.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("cloud api_url must be an absolute http(s) URL, got %q", cfg.Cloud.APIURL)
	}

	if cfg.Cloud.RequestRate <= 0 {
		return fmt.Errorf("cloud request_rate must be positive, got %v", cfg.Cloud.RequestRate)
	}

	if cfg.Cloud.ProbeConcurrency < 1 {
		return fmt.Errorf("cloud probe_concurrency must be at least 1, got %d", cfg.Cloud.ProbeConcurrency)
	}

	if cfg.Portable.InstallsDir == "" {
		return fmt.Errorf("portable installs_dir is required")
	}

	if cfg.Portable.DataDir == "" {
		return fmt.Errorf("portable data_dir is required")
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %q", cfg.Logging.Level)
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid logging format: %q", cfg.Logging.Format)
	}

	return nil
}

// ReadSecretKey returns the configured secret key, falling back to the key
// file. A missing file yields an empty key, not an error.
func (c *CloudConfig) ReadSecretKey() (string, error) {
	if c.SecretKey != "" {
		return c.SecretKey, nil
	}
	if c.SecretKeyFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.SecretKeyFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("reading secret key file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// WriteSecretKey stores key in the secret key file, readable by the owner only,
// and makes it the key ReadSecretKey returns from c.
func (c *CloudConfig) WriteSecretKey(key string) error {
	if c.SecretKeyFile == "" {
		return fmt.Errorf("cloud secret_key_file is not configured")
	}
	if err := os.MkdirAll(filepath.Dir(c.SecretKeyFile), 0o700); err != nil {
		return fmt.Errorf("creating secret key directory: %w", err)
	}
	if err := os.WriteFile(c.SecretKeyFile, []byte(key+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing secret key file: %w", err)
	}
	c.SecretKey = key
	return nil
}

// isFileNotFoundError checks if an error is a file not found error.
func isFileNotFoundError(err error) bool {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return errors.Is(pathErr, os.ErrNotExist)
	}
	return false
}
