// Package config loads the pshelper configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/0x6d61/pshelper/internal/engine"
	"github.com/0x6d61/pshelper/internal/fingerprint"
	"github.com/0x6d61/pshelper/internal/logger"
	"github.com/0x6d61/pshelper/internal/status"
)

// FileName is the name of the config file inside the config directory.
const FileName = "config.yaml"

// Config is the top-level pshelper configuration, loaded from config.yaml.
type Config struct {
	Collection      string    `yaml:"collection"`
	Workers         int       `yaml:"workers"`
	MaxOpsPerSecond float64   `yaml:"max_ops_per_second"`
	AutoApprove     bool      `yaml:"auto_approve"`
	Resync          bool      `yaml:"resync"`
	Catalog         string    `yaml:"catalog"`
	MetaFile        string    `yaml:"meta_file"`
	SortBy          string    `yaml:"sort_by"`
	Log             LogConfig `yaml:"log"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{Resync: true}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// LoadOrDefault loads path, or the default config file when path is empty.
// A missing default file yields Default(); a missing explicit path is an
// error.
func LoadOrDefault(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}
	cfg, err := Load(path)
	if err != nil && !explicit && errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Parse unmarshals YAML bytes into a validated Config. Keys that are absent
// keep their default values.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{Resync: true}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.MetaFile == "" {
		c.MetaFile = fingerprint.DefaultFileName
	}
	if c.SortBy == "" {
		c.SortBy = status.FieldID.ShortName()
	}
	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
	if c.Catalog == "" {
		if dir, err := ConfigDir(); err == nil {
			c.Catalog = filepath.Join(dir, "catalog.db")
		}
	}
	if c.Collection != "" {
		c.Collection = expandHome(c.Collection)
	}
	c.Catalog = expandHome(c.Catalog)
	c.Log.File = expandHome(c.Log.File)
}

// validate checks that all fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Workers < 0 {
		errs = append(errs, "workers must not be negative")
	}
	if c.MaxOpsPerSecond < 0 {
		errs = append(errs, "max_ops_per_second must not be negative")
	}
	if strings.ContainsAny(c.MetaFile, `/\`) {
		errs = append(errs, "meta_file must be a file name, not a path")
	}
	if _, err := status.ParseField(c.SortBy); err != nil {
		errs = append(errs, fmt.Sprintf("sort_by: unknown field %q", c.SortBy))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Sprintf("log.level: unknown level %q", c.Log.Level))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SortField returns the parsed sort_by value.
func (c *Config) SortField() status.Field {
	f, err := status.ParseField(c.SortBy)
	if err != nil {
		return status.FieldID
	}
	return f
}

// ScanConfig converts the config into engine settings.
func (c *Config) ScanConfig() *engine.ScanConfig {
	return &engine.ScanConfig{
		Workers:         c.Workers,
		MaxOpsPerSecond: c.MaxOpsPerSecond,
		AutoApprove:     c.AutoApprove,
		Resync:          c.Resync,
		SortBy:          c.SortField(),
		RecordName:      c.MetaFile,
	}
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
