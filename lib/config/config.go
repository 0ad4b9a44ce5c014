// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the config file when --config is absent.
const EnvironmentVariable = "HUBKEY_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for workstations and test Hubs.
	Development Environment = "development"
	// Production is for unattended use against a production Hub.
	Production Environment = "production"
)

// Log formats.
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// Config is the hubkey configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	Paths  PathsConfig  `yaml:"paths"`
	Device DeviceConfig `yaml:"device"`
	Hub    HubConfig    `yaml:"hub"`
	Log    LogConfig    `yaml:"log"`

	// Per-environment overrides, applied after the base config.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Device *DeviceConfig `yaml:"device,omitempty"`
	Hub    *HubConfig    `yaml:"hub,omitempty"`
	Log    *LogConfig    `yaml:"log,omitempty"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for hubkey state.
	// Default: ${HOME}/.local/share/hubkey
	Root string `yaml:"root"`
}

// DeviceConfig configures this device's identity.
type DeviceConfig struct {
	// KeyFile holds the sealed device key.
	// Default: ${HUBKEY_ROOT}/device.key
	KeyFile string `yaml:"key_file"`

	// WorkFactor is the scrypt log2 cost used when sealing a new key.
	// Default: 18
	WorkFactor int `yaml:"work_factor"`
}

// HubConfig overrides what the vault config says about Hub.
type HubConfig struct {
	// DevicesResourceURL replaces the vault's devicesResourceUrl.
	DevicesResourceURL string `yaml:"devices_resource_url"`

	// ConfigFile is a JSONC file replacing the vault's whole hub header.
	ConfigFile string `yaml:"config_file"`

	// RequestTimeout bounds each Hub request.
	// Default: 30s
	RequestTimeout string `yaml:"request_timeout"`
}

// LogConfig configures diagnostics on stderr.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level"`

	// Format is auto (text on a terminal, JSON otherwise), text, or json.
	Format string `yaml:"format"`
}

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".local", "share", "hubkey")

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root: defaultRoot,
		},
		Device: DeviceConfig{
			KeyFile:    filepath.Join(defaultRoot, "device.key"),
			WorkFactor: 18,
		},
		Hub: HubConfig{
			RequestTimeout: "30s",
		},
		Log: LogConfig{
			Level:  "info",
			Format: FormatAuto,
		},
	}
}

// Load loads configuration from the file named by HUBKEY_CONFIG, or
// returns Default when it is unset.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		cfg := Default()
		cfg.applyEnvironmentOverrides()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// loadFile merges a YAML file into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &ConfigOverrides{
				Log: &LogConfig{Level: "info", Format: FormatJSON},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Device != nil {
		if overrides.Device.KeyFile != "" {
			c.Device.KeyFile = overrides.Device.KeyFile
		}
		if overrides.Device.WorkFactor != 0 {
			c.Device.WorkFactor = overrides.Device.WorkFactor
		}
	}

	if overrides.Hub != nil {
		if overrides.Hub.DevicesResourceURL != "" {
			c.Hub.DevicesResourceURL = overrides.Hub.DevicesResourceURL
		}
		if overrides.Hub.ConfigFile != "" {
			c.Hub.ConfigFile = overrides.Hub.ConfigFile
		}
		if overrides.Hub.RequestTimeout != "" {
			c.Hub.RequestTimeout = overrides.Hub.RequestTimeout
		}
	}

	if overrides.Log != nil {
		if overrides.Log.Level != "" {
			c.Log.Level = overrides.Log.Level
		}
		if overrides.Log.Format != "" {
			c.Log.Format = overrides.Log.Format
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HUBKEY_ROOT": c.Paths.Root,
		"HOME":        os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["HUBKEY_ROOT"] = c.Paths.Root // Update for dependent paths.

	c.Device.KeyFile = expandVars(c.Device.KeyFile, vars)
	c.Hub.ConfigFile = expandVars(c.Hub.ConfigFile, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns. vars take
// precedence over the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Device.KeyFile == "" {
		errs = append(errs, fmt.Errorf("device.key_file is required"))
	}
	if c.Device.WorkFactor < 10 || c.Device.WorkFactor > 22 {
		errs = append(errs, fmt.Errorf("device.work_factor must be between 10 and 22, got %d", c.Device.WorkFactor))
	}

	if c.Hub.DevicesResourceURL != "" {
		parsed, err := url.Parse(c.Hub.DevicesResourceURL)
		if err != nil || !parsed.IsAbs() || parsed.Host == "" {
			errs = append(errs, fmt.Errorf("hub.devices_resource_url must be an absolute URL, got %q", c.Hub.DevicesResourceURL))
		}
	}
	if _, err := c.RequestTimeout(); err != nil {
		errs = append(errs, err)
	}

	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	formats := []string{FormatAuto, FormatText, FormatJSON}
	if !slices.Contains(formats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", formats))
	}

	return errors.Join(errs...)
}

// RequestTimeout returns hub.request_timeout as a duration.
func (c *Config) RequestTimeout() (time.Duration, error) {
	timeout, err := time.ParseDuration(c.Hub.RequestTimeout)
	if err != nil {
		return 0, fmt.Errorf("hub.request_timeout: %w", err)
	}
	if timeout <= 0 {
		return 0, fmt.Errorf("hub.request_timeout must be positive, got %s", timeout)
	}
	return timeout, nil
}

// LogLevel returns log.level as a slog level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// EnsurePaths creates the directories the config points at.
func (c *Config) EnsurePaths() error {
	for _, path := range []string{c.Paths.Root, filepath.Dir(c.Device.KeyFile)} {
		if path == "" || path == "." {
			continue
		}
		if err := os.MkdirAll(path, 0o700); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}
