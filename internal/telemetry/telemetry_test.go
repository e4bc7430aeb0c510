package telemetry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/candemir/geopact/internal/clock"
)

func TestEmitterCapture(t *testing.T) {
	var buf strings.Builder
	fake := clock.NewFake(time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC))
	e := NewEmitter(&buf, fake)

	e.Capture(context.Background(), "tracker.stop", errors.New("row store closed"))

	got := buf.String()
	if !strings.Contains(got, "tracker.stop") || !strings.Contains(got, "row store closed") {
		t.Errorf("captured line = %q", got)
	}
	if !strings.HasPrefix(got, "2026-03-01T10:30:00Z") {
		t.Errorf("missing timestamp prefix: %q", got)
	}
}

func TestEmitterNilSafety(t *testing.T) {
	var e *Emitter
	// Must not panic.
	e.Capture(context.Background(), "x", errors.New("boom"))

	var buf strings.Builder
	live := NewEmitter(&buf, nil)
	live.Capture(context.Background(), "x", nil)
	if buf.Len() != 0 {
		t.Errorf("nil error should not be written, got %q", buf.String())
	}
}
