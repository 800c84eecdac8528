// Package config provides YAML-based configuration loading for pixelwatch.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultTileBaseURL is the upstream tile backend's URL template, with
// {x} and {y} substituted for a tile's coordinates.
const DefaultTileBaseURL = "https://backend.wplace.live/files/s0/tiles/{x}/{y}.png"

// DefaultMinHottestBucket is the minimum tile count for the queue's
// hottest temperature bucket.
const DefaultMinHottestBucket = 5

// DefaultCadenceSeconds is the nominal seconds between cycle starts:
// 30*(1+sqrt(5)), chosen to be dissonant with a known upstream 30-second
// period. Tests override it to avoid multi-minute sleeps.
const DefaultCadenceSeconds = 97.08

// Config is the top-level pixelwatch configuration, loaded from
// pixelwatch.yaml under the nest root. The nest root itself is a flag/env
// concern, not part of this file — see Nest in nest.go.
type Config struct {
	TileBaseURL      string  `yaml:"tile_base_url"`
	MinHottestBucket int     `yaml:"min_hottest_bucket"`
	CadenceSeconds   float64 `yaml:"cadence_seconds"`
}

// Load reads a YAML config file from path and returns a validated Config.
// A missing file is not an error: it returns the all-defaults Config, since
// pixelwatch.yaml is optional.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Parse(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.TileBaseURL == "" {
		c.TileBaseURL = DefaultTileBaseURL
	}
	if c.MinHottestBucket == 0 {
		c.MinHottestBucket = DefaultMinHottestBucket
	}
	if c.CadenceSeconds == 0 {
		c.CadenceSeconds = DefaultCadenceSeconds
	}
}

func (c *Config) validate() error {
	var errs []string
	if !strings.Contains(c.TileBaseURL, "{x}") || !strings.Contains(c.TileBaseURL, "{y}") {
		errs = append(errs, "tile_base_url must contain {x} and {y} placeholders")
	}
	if c.MinHottestBucket < 1 {
		errs = append(errs, "min_hottest_bucket must be at least 1")
	}
	if c.CadenceSeconds <= 0 {
		errs = append(errs, "cadence_seconds must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
