// Package config loads engine settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/candemir/geopact/internal/clock"
	"github.com/candemir/geopact/internal/tracker"
)

// Config holds the tunable settings. Defaults match the production
// values the dwell tracker was designed around.
type Config struct {
	// DBPath overrides the default SQLite location.
	DBPath string `env:"GEOPACT_DB"`

	// GracePeriod is how long an apparent geofence exit must persist
	// before a dwell session ends.
	GracePeriod time.Duration `env:"GEOPACT_GRACE_PERIOD" envDefault:"3m"`

	// AccuracyThreshold is the worst sample accuracy (meters,
	// inclusive) allowed to trigger an exit decision.
	AccuracyThreshold float64 `env:"GEOPACT_ACCURACY_THRESHOLD" envDefault:"50"`

	// ClockOffset shifts the effective time, for exercising day and
	// week boundaries during development.
	ClockOffset time.Duration `env:"GEOPACT_CLOCK_OFFSET" envDefault:"0"`
}

// Load parses the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Tracker returns the dwell tracker settings.
func (c Config) Tracker() tracker.Config {
	return tracker.Config{
		GracePeriod:       c.GracePeriod,
		AccuracyThreshold: c.AccuracyThreshold,
	}
}

// Clock returns the effective clock: the system clock, shifted when a
// development offset is configured.
func (c Config) Clock() clock.Clock {
	return clock.Offset(clock.System(), c.ClockOffset)
}
