package alarm

import (
	"context"
	"fmt"

	"github.com/candemir/geopact/internal/geo"
	"github.com/candemir/geopact/internal/telemetry"
)

// FireFunc is invoked once per firing alarm. The watcher does not
// render or notify; the layer above decides what a firing means.
type FireFunc func(a *Alarm)

// Watcher checks incoming location samples against armed alarms and
// tracks containment so an alarm fires on the entry transition, not
// on every sample inside the fence.
type Watcher struct {
	registry Registry
	sink     telemetry.Sink
	fire     FireFunc
	inside   map[string]bool
}

// NewWatcher creates a Watcher. A nil sink falls back to a no-op.
func NewWatcher(registry Registry, fire FireFunc, sink telemetry.Sink) *Watcher {
	if sink == nil {
		sink = telemetry.Nop{}
	}
	return &Watcher{
		registry: registry,
		sink:     sink,
		fire:     fire,
		inside:   make(map[string]bool),
	}
}

// ProcessSample evaluates one location sample against every armed
// alarm. Firing a one-shot alarm disarms it; a disarm failure is
// captured and the firing still happens.
func (w *Watcher) ProcessSample(ctx context.Context, p geo.Point) error {
	alarms, err := w.registry.ListArmed(ctx)
	if err != nil {
		return fmt.Errorf("list armed alarms: %w", err)
	}

	for _, a := range alarms {
		contains := a.Fence().Contains(p)
		wasInside := w.inside[a.ID]
		w.inside[a.ID] = contains

		if !contains || wasInside {
			continue
		}

		if a.OneShot {
			if err := w.registry.Disarm(ctx, a.ID); err != nil {
				w.sink.Capture(ctx, "alarm.disarm", err)
			}
		}
		if w.fire != nil {
			w.fire(a)
		}
	}
	return nil
}

// Reset forgets all containment state, e.g. after a long gap in
// samples.
func (w *Watcher) Reset() {
	w.inside = make(map[string]bool)
}
