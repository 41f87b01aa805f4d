// Package config holds the engine configuration: defaults, an optional
// YAML file, and environment overrides, validated with explicit ranges.
// There is no process-wide mutable config state — callers load a Config
// once and pass it into the engine's entry points.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/steveyegge/faultline/internal/fingerprint"
	"github.com/steveyegge/faultline/internal/types"
)

// Config holds configuration for the failure-history engine
type Config struct {
	// StoreDir is the directory holding one store document per
	// category.
	// Default: ".faultline"
	StoreDir string `yaml:"store_dir"`

	// RetentionMonths is how long an entry survives without being
	// observed again (months approximated as 30 days). Chosen to cover
	// a full release cycle plus buffer, so a bug that reappears after
	// one release away still carries its history.
	// Default: 9, Range: 1-36
	RetentionMonths int `yaml:"retention_months"`

	// MaxFrames is the number of leading meaningful stack frames used
	// for fingerprinting.
	// Default: 5, Range: 1-50
	MaxFrames int `yaml:"max_frames"`

	// SkipPrefixes overrides the frame prefixes dropped as
	// non-diagnostic runtime layers. Empty means the built-in list.
	SkipPrefixes []string `yaml:"skip_prefixes"`

	// LockHolder names this process in the store lock file, so a
	// blocked invocation can report who is holding the store.
	// Default: "faultline"
	LockHolder string `yaml:"lock_holder"`
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() Config {
	return Config{
		StoreDir:        ".faultline",
		RetentionMonths: 9,
		MaxFrames:       fingerprint.DefaultConfig().MaxFrames,
		SkipPrefixes:    fingerprint.DefaultConfig().SkipPrefixes,
		LockHolder:      "faultline",
	}
}

// Load builds the effective configuration: defaults, then the YAML
// file at path (skipped when path is empty or the file is absent),
// then FAULTLINE_* environment overrides, then validation.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyFile overlays values from a YAML config file. A missing file is
// not an error; a present but malformed file is.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays FAULTLINE_* environment variables.
func (c *Config) applyEnv() error {
	if v := os.Getenv("FAULTLINE_STORE_DIR"); v != "" {
		c.StoreDir = v
	}
	if v := os.Getenv("FAULTLINE_RETENTION_MONTHS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid FAULTLINE_RETENTION_MONTHS: %q is not an integer", v)
		}
		c.RetentionMonths = n
	}
	if v := os.Getenv("FAULTLINE_MAX_FRAMES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid FAULTLINE_MAX_FRAMES: %q is not an integer", v)
		}
		c.MaxFrames = n
	}
	if v := os.Getenv("FAULTLINE_LOCK_HOLDER"); v != "" {
		c.LockHolder = v
	}
	return nil
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.StoreDir == "" {
		return fmt.Errorf("store_dir is required")
	}
	if c.RetentionMonths < 1 {
		return fmt.Errorf("retention_months must be positive (got %d)", c.RetentionMonths)
	}
	if c.RetentionMonths > 36 {
		return fmt.Errorf("retention_months too large (got %d, max 36)", c.RetentionMonths)
	}
	if c.LockHolder == "" {
		return fmt.Errorf("lock_holder is required")
	}
	return c.Fingerprint().Validate()
}

// Fingerprint returns the normalization configuration slice of the
// engine config.
func (c Config) Fingerprint() fingerprint.Config {
	fp := fingerprint.DefaultConfig()
	fp.MaxFrames = c.MaxFrames
	if len(c.SkipPrefixes) > 0 {
		fp.SkipPrefixes = c.SkipPrefixes
	}
	return fp
}

// StorePath returns the store document path for a category.
func (c Config) StorePath(category types.Category) string {
	return filepath.Join(c.StoreDir, string(category)+"-history.json")
}
