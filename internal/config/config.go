// Package config loads the toolbox CLI settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/skosovsky/toolbox"
)

// Config is the on-disk configuration. Missing keys keep their Defaults values.
type Config struct {
	Registry RegistryConfig `yaml:"registry"`
	Log      LogConfig      `yaml:"log"`
}

// RegistryConfig maps onto toolbox registry options.
type RegistryConfig struct {
	MaxConcurrency  int           `yaml:"max_concurrency"`
	DefaultTimeout  time.Duration `yaml:"default_timeout"`
	RecoverPanics   bool          `yaml:"recover_panics"`
	GenerateCallIDs bool          `yaml:"generate_call_ids"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	ToolCalls bool   `yaml:"tool_calls"`
}

// Defaults returns the configuration used when no file is given.
func Defaults() *Config {
	return &Config{
		Registry: RegistryConfig{
			RecoverPanics:   true,
			GenerateCallIDs: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over Defaults. An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports settings that cannot be applied.
func (c *Config) Validate() error {
	if c.Registry.MaxConcurrency < 0 {
		return fmt.Errorf("registry.max_concurrency must not be negative, got %d", c.Registry.MaxConcurrency)
	}
	if c.Registry.DefaultTimeout < 0 {
		return fmt.Errorf("registry.default_timeout must not be negative, got %s", c.Registry.DefaultTimeout)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// RegistryOptions converts the registry section into toolbox options.
func (c *Config) RegistryOptions() []toolbox.RegistryOption {
	opts := []toolbox.RegistryOption{
		toolbox.WithRecoverPanics(c.Registry.RecoverPanics),
	}
	if c.Registry.MaxConcurrency > 0 {
		opts = append(opts, toolbox.WithMaxConcurrency(c.Registry.MaxConcurrency))
	}
	if c.Registry.DefaultTimeout > 0 {
		opts = append(opts, toolbox.WithDefaultTimeout(c.Registry.DefaultTimeout))
	}
	if c.Registry.GenerateCallIDs {
		opts = append(opts, toolbox.WithGeneratedCallIDs())
	}
	return opts
}

// Logger builds a logger writing to w with the configured level and format.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
