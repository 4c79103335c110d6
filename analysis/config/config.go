// Package config loads analysis settings from a yaml file. Command
// line flags take precedence over file settings; the file is meant for
// checked-in per-project defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config mirrors the yaml analysis configuration. A field left out of
// the file keeps its zero value and the corresponding flag default
// applies.
type Config struct {
	sourceFile string

	// Budget bounds the number of exploration steps per function.
	Budget uint `yaml:"budget"`

	// Function restricts the analysis to functions whose qualified
	// name contains the given string.
	Function string `yaml:"function"`

	// Checks names the checks to run. Empty means all registered
	// checks.
	Checks []string `yaml:"checks"`

	// IncludeTests also analyzes test packages.
	IncludeTests bool `yaml:"include-tests"`

	// NoColorize disables colorized reporting.
	NoColorize bool `yaml:"no-colorize"`
}

// SourceFile returns the path the configuration was loaded from.
func (c *Config) SourceFile() string {
	return c.sourceFile
}

// EnabledCheck reports whether a check name is enabled by the
// configuration.
func (c *Config) EnabledCheck(name string) bool {
	if len(c.Checks) == 0 {
		return true
	}
	for _, n := range c.Checks {
		if n == name {
			return true
		}
	}
	return false
}

// Load reads and parses a yaml configuration file.
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	cfg := &Config{sourceFile: filename}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not parse config file %s: %w", filename, err)
	}
	return cfg, nil
}
