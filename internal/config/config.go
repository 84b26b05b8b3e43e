package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Dir is the name of the project and user state directories.
const Dir = ".vflow"

// Config is the top-level configuration structure.
type Config struct {
	DefaultPipeline string        `yaml:"default_pipeline"`
	LogLevel        string        `yaml:"log_level"`
	RunsDir         string        `yaml:"runs_dir"`
	Timeout         string        `yaml:"timeout"`
	Shell           ShellConfig   `yaml:"shell"`
	Display         DisplayConfig `yaml:"display"`
}

// ShellConfig selects the interpreter used by shell-backed steps. Command
// strings are appended after Args.
type ShellConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

type DisplayConfig struct {
	Verbose bool `yaml:"verbose"`
}

// Validate checks that required fields are present and values parse.
func (c *Config) Validate() error {
	if c.DefaultPipeline == "" {
		return fmt.Errorf("default_pipeline is required")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}
	if c.Shell.Command == "" {
		return fmt.Errorf("shell.command is required")
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// TimeoutDuration returns the run timeout; zero means none.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" || c.Timeout == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("timeout %q: %w", c.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("timeout %q is negative", c.Timeout)
	}
	return d, nil
}

// RunsPath returns the directory run records are written to.
func (c *Config) RunsPath() string {
	if c.RunsDir != "" {
		return c.RunsDir
	}
	return filepath.Join(Dir, "runs")
}

// Load resolves config from project → user → defaults.
func Load() (*Config, error) {
	cfg := Defaults()

	// user-level config
	home, err := os.UserHomeDir()
	if err == nil {
		userPath := filepath.Join(home, Dir, "config.yaml")
		if err := mergeFile(cfg, userPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading user config: %w", err)
		}
	}

	// project-level config (highest priority)
	projectPath := filepath.Join(Dir, "config.yaml")
	if err := mergeFile(cfg, projectPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	return cfg, nil
}

// mergeFile overlays the keys set in path onto dst. Unknown keys are
// rejected so that typos do not silently fall back to defaults.
func mergeFile(dst *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Defaults returns the built-in configuration used when no file sets a key.
func Defaults() *Config {
	return &Config{
		DefaultPipeline: "default",
		LogLevel:        "info",
		Timeout:         "0",
		Shell: ShellConfig{
			Command: "sh",
			Args:    []string{"-c"},
		},
	}
}
