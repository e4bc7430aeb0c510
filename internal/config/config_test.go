package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GracePeriod != 3*time.Minute {
		t.Errorf("grace period = %v, want 3m", cfg.GracePeriod)
	}
	if cfg.AccuracyThreshold != 50 {
		t.Errorf("accuracy threshold = %v, want 50", cfg.AccuracyThreshold)
	}
	if cfg.ClockOffset != 0 {
		t.Errorf("clock offset = %v, want 0", cfg.ClockOffset)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GEOPACT_GRACE_PERIOD", "90s")
	t.Setenv("GEOPACT_ACCURACY_THRESHOLD", "25")
	t.Setenv("GEOPACT_CLOCK_OFFSET", "48h")
	t.Setenv("GEOPACT_DB", "/tmp/geopact-test.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GracePeriod != 90*time.Second {
		t.Errorf("grace period = %v, want 90s", cfg.GracePeriod)
	}
	tc := cfg.Tracker()
	if tc.AccuracyThreshold != 25 {
		t.Errorf("tracker accuracy = %v, want 25", tc.AccuracyThreshold)
	}
	if cfg.DBPath != "/tmp/geopact-test.db" {
		t.Errorf("db path = %q", cfg.DBPath)
	}
}

func TestClockOffsetApplied(t *testing.T) {
	t.Setenv("GEOPACT_CLOCK_OFFSET", "24h")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	shifted := cfg.Clock().Now()
	if d := time.Until(shifted); d < 23*time.Hour {
		t.Errorf("offset clock only %v ahead, want ~24h", d)
	}
}
