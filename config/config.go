// Package config provides YAML configuration parsing for osufeed.
//
// This package enables running osufeed as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	executable: ${TOSU_PATH:-C:\tools\tosu\tosu.exe}
//	auto_start: true
//	auto_restart: true
//
//	port: 24050
//	update_interval: 500ms
//	reconnect_interval: 1s
//	max_reconnects: 10
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// minUpdateInterval keeps the heartbeat from busy-spinning; the feed
// itself pushes frames, the interval only paces staleness checks.
const minUpdateInterval = 10 * time.Millisecond

// minReconnectInterval is the smallest allowed backoff base. Anything
// shorter hammers a companion that is still coming up.
const minReconnectInterval = 100 * time.Millisecond

// Config is the root configuration structure for osufeed.
//
// It maps directly to the YAML configuration file structure. Use [Load]
// or [Parse] to create a Config from YAML. Fields left unset keep their
// zero value and the Manager's own defaults apply; see [Options].
type Config struct {
	// Executable is the companion process to launch and supervise.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	Executable string `yaml:"executable"`

	// Args are extra command line arguments for the companion.
	// Values support environment variable substitution.
	Args []string `yaml:"args"`

	// AutoStart launches the companion process on Start.
	// Requires Executable to be set.
	AutoStart bool `yaml:"auto_start"`

	// AutoRestart relaunches the companion when it dies or the feed is
	// lost for good.
	AutoRestart bool `yaml:"auto_restart"`

	// Host is the address the companion's feed listens on.
	Host string `yaml:"host"`

	// Port is the companion's feed port.
	Port int `yaml:"port"`

	// FeedPath is the WebSocket endpoint path, e.g. "/websocket/v2".
	FeedPath string `yaml:"feed_path"`

	// UpdateInterval is the heartbeat interval for staleness checks.
	// Accepts duration strings like "500ms", "1s".
	UpdateInterval Duration `yaml:"update_interval"`

	// ReconnectInterval is the base delay of the linear reconnect
	// backoff.
	ReconnectInterval Duration `yaml:"reconnect_interval"`

	// MaxReconnects bounds one reconnect sequence. An explicit 0
	// disables reconnecting, which is why absence must be told apart
	// from zero here.
	MaxReconnects *int `yaml:"max_reconnects"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		// submatches[2] is ":-..." (non-empty if default syntax was used)
		// submatches[3] is the actual default value (may be empty for ${VAR:-})
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in the executable path and args.
// Values are range-checked here so a bad file fails with YAML-level
// field names; unset fields stay zero and pick up Manager defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Executable != "" {
		expanded, err := expandEnvVars(c.Executable)
		if err != nil {
			return fmt.Errorf("executable: %w", err)
		}
		c.Executable = expanded
	}

	for i, arg := range c.Args {
		expanded, err := expandEnvVars(arg)
		if err != nil {
			return fmt.Errorf("args[%d]: %w", i, err)
		}
		c.Args[i] = expanded
	}

	if c.AutoStart && c.Executable == "" {
		return errors.New("auto_start requires an executable")
	}
	if len(c.Args) > 0 && c.Executable == "" {
		return errors.New("args require an executable")
	}

	if c.Port != 0 && (c.Port < 1 || c.Port > 65535) {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if c.FeedPath != "" && !strings.HasPrefix(c.FeedPath, "/") {
		return fmt.Errorf("feed_path must start with '/', got %q", c.FeedPath)
	}

	if c.UpdateInterval != 0 && c.UpdateInterval.Duration() < minUpdateInterval {
		return fmt.Errorf("update_interval must be at least %s, got %s",
			minUpdateInterval, c.UpdateInterval.Duration())
	}

	if c.ReconnectInterval != 0 && c.ReconnectInterval.Duration() < minReconnectInterval {
		return fmt.Errorf("reconnect_interval must be at least %s, got %s",
			minReconnectInterval, c.ReconnectInterval.Duration())
	}

	if c.MaxReconnects != nil && *c.MaxReconnects < 0 {
		return fmt.Errorf("max_reconnects cannot be negative, got %d", *c.MaxReconnects)
	}

	return nil
}
