// Package config handles blasttool configuration loading and management.
package config

import (
	"fmt"

	"github.com/Faultbox/shatter/pkg/authoring"
	"github.com/Faultbox/shatter/pkg/hull"
)

// Adjacency modes.
const (
	AdjacencyTags     = "tags"
	AdjacencyGeometry = "geometry"
)

// Config holds all blasttool settings.
type Config struct {
	Authoring AuthoringConfig `yaml:"authoring"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AuthoringConfig holds the asset pipeline settings.
type AuthoringConfig struct {
	Workers       int     `yaml:"workers"`        // hull workers, 0 = one per CPU
	HullEpsilon   float64 `yaml:"hull_epsilon"`   // coplanarity tolerance in normalized space
	WeldTolerance float32 `yaml:"weld_tolerance"` // vertex snapping for geometric adjacency
	Adjacency     string  `yaml:"adjacency"`      // "tags" or "geometry"
	BBoxFallback  bool    `yaml:"bbox_fallback"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Authoring: AuthoringConfig{
			Workers:       0,
			HullEpsilon:   hull.DefaultEpsilon,
			WeldTolerance: authoring.DefaultWeldTolerance,
			Adjacency:     AdjacencyTags,
			BBoxFallback:  true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports settings no session can run with.
func (c *Config) Validate() error {
	a := c.Authoring
	if a.Workers < 0 {
		return fmt.Errorf("authoring.workers must not be negative, got %d", a.Workers)
	}
	if a.HullEpsilon < 0 {
		return fmt.Errorf("authoring.hull_epsilon must not be negative, got %g", a.HullEpsilon)
	}
	if a.WeldTolerance < 0 {
		return fmt.Errorf("authoring.weld_tolerance must not be negative, got %g", a.WeldTolerance)
	}
	switch a.Adjacency {
	case AdjacencyTags, AdjacencyGeometry:
	default:
		return fmt.Errorf("authoring.adjacency must be %q or %q, got %q", AdjacencyTags, AdjacencyGeometry, a.Adjacency)
	}
	return nil
}

// SessionOptions converts the authoring section into session options.
func (c *Config) SessionOptions() (authoring.Options, error) {
	if err := c.Validate(); err != nil {
		return authoring.Options{}, err
	}
	opts := authoring.DefaultOptions()
	opts.Workers = c.Authoring.Workers
	opts.HullEpsilon = c.Authoring.HullEpsilon
	opts.BBoxFallback = c.Authoring.BBoxFallback
	if c.Authoring.Adjacency == AdjacencyGeometry {
		opts.Adjacency = authoring.GeometricAdjacency{Weld: c.Authoring.WeldTolerance}
	}
	return opts, nil
}
