// Package tracker implements the dwell tracker: a per-challenge
// geofence entry/exit detector with a jitter filter and an exit grace
// period. It consumes location samples and reports dwell sessions to
// a narrow sink; it knows nothing about goals, combos, or weeks.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/candemir/geopact/internal/challenge"
	"github.com/candemir/geopact/internal/clock"
	"github.com/candemir/geopact/internal/geo"
	"github.com/candemir/geopact/internal/telemetry"
)

// Sample is one location update. Accuracy is optional; a missing
// value is treated as trustworthy.
type Sample struct {
	Lat      float64
	Lon      float64
	Accuracy *float64 // meters, lower is better
}

// Point returns the sample's coordinate.
func (s Sample) Point() geo.Point {
	return geo.Point{Lat: s.Lat, Lon: s.Lon}
}

// SessionSink receives dwell session boundaries. The progress engine
// implements it via a thin adapter.
type SessionSink interface {
	// SessionStarted is called the instant a geofence is entered. The
	// returned record id is handed back on completion.
	SessionStarted(ctx context.Context, challengeID string, at time.Time) (recordID string, err error)

	// SessionEnded is called when an exit is confirmed, with the full
	// dwell duration measured from the original entry.
	SessionEnded(ctx context.Context, challengeID, recordID string, dwell time.Duration) error
}

// Config holds the tracker's filter settings.
type Config struct {
	// GracePeriod is how long an apparent exit must persist before
	// the session ends.
	GracePeriod time.Duration
	// AccuracyThreshold is the worst accuracy (meters, inclusive)
	// allowed to trigger an exit decision.
	AccuracyThreshold float64
}

// DefaultConfig returns the production filter settings.
func DefaultConfig() Config {
	return Config{
		GracePeriod:       3 * time.Minute,
		AccuracyThreshold: 50,
	}
}

// session is the per-challenge transient state. It is owned by the
// tracker and never persisted; the engine mirrors the entry into a
// visit record for crash recovery.
type session struct {
	fence     geo.Fence
	inside    bool
	enteredAt time.Time
	recordID  string
	grace     *time.Timer
}

// Tracker watches any number of challenges against one serialized
// stream of location samples.
type Tracker struct {
	sink  SessionSink
	tele  telemetry.Sink
	clock clock.Clock
	cfg   Config

	mu       sync.Mutex
	sessions map[string]*session

	// afterFunc is swapped out by tests to fire grace timers manually.
	afterFunc func(d time.Duration, f func()) *time.Timer
}

// New creates a Tracker. A nil clock falls back to the system clock
// and a nil telemetry sink to a no-op.
func New(sink SessionSink, c clock.Clock, tele telemetry.Sink, cfg Config) *Tracker {
	if c == nil {
		c = clock.System()
	}
	if tele == nil {
		tele = telemetry.Nop{}
	}
	return &Tracker{
		sink:      sink,
		tele:      tele,
		clock:     c,
		cfg:       cfg,
		sessions:  make(map[string]*session),
		afterFunc: time.AfterFunc,
	}
}

// StartTracking begins tracking a challenge. Repeated calls for an
// already-tracked id are no-ops.
func (t *Tracker) StartTracking(c *challenge.Challenge) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ensureLocked(c)
}

func (t *Tracker) ensureLocked(c *challenge.Challenge) *session {
	if st, ok := t.sessions[c.ID]; ok {
		return st
	}
	st := &session{fence: c.Fence()}
	t.sessions[c.ID] = st
	return st
}

// StopTracking cancels any pending grace timer and discards the
// challenge's state. Calling it for an untracked id is safe. The
// cancellation is synchronous: once StopTracking returns, the grace
// timer can no longer end a session.
func (t *Tracker) StopTracking(challengeID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.sessions[challengeID]; ok {
		if st.grace != nil {
			st.grace.Stop()
		}
		delete(t.sessions, challengeID)
	}
}

// StopAll clears every tracked challenge and cancels every pending
// timer. Used on teardown.
func (t *Tracker) StopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, st := range t.sessions {
		if st.grace != nil {
			st.grace.Stop()
		}
		delete(t.sessions, id)
	}
}

// IsInside reports the current containment state for a challenge.
func (t *Tracker) IsInside(challengeID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.sessions[challengeID]
	return ok && st.inside
}

// ProcessSample evaluates one location sample against every active
// challenge, auto-starting tracking for ids not yet tracked. It never
// rejects a sample: low-accuracy positions are simply excluded from
// exit evaluation. Persistence failures from session starts are
// joined and returned; evaluation continues for the other challenges.
func (t *Tracker) ProcessSample(ctx context.Context, s Sample, active []*challenge.Challenge) error {
	p := s.Point()
	trustworthy := s.Accuracy == nil || *s.Accuracy <= t.cfg.AccuracyThreshold

	var errs []error
	for _, c := range active {
		if err := t.processOne(ctx, c, p, trustworthy); err != nil {
			errs = append(errs, fmt.Errorf("challenge %s: %w", c.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (t *Tracker) processOne(ctx context.Context, c *challenge.Challenge, p geo.Point, trustworthy bool) error {
	t.mu.Lock()
	st := t.ensureLocked(c)
	inside := st.fence.Contains(p)

	if st.inside {
		if inside {
			// Still here. An inside reading of any accuracy confirms
			// continued presence and cancels a pending exit.
			if st.grace != nil {
				st.grace.Stop()
				st.grace = nil
			}
			t.mu.Unlock()
			return nil
		}
		// Apparent exit. Only a trustworthy reading may start the
		// countdown, and a countdown already running is left alone.
		if trustworthy && st.grace == nil {
			st.grace = t.afterFunc(t.cfg.GracePeriod, func() { t.confirmExit(c.ID, st) })
		}
		t.mu.Unlock()
		return nil
	}

	if !inside {
		t.mu.Unlock()
		return nil
	}

	// Entry: record the instant and persist the session start before
	// anything else can go wrong.
	now := t.clock.Now()
	st.inside = true
	st.enteredAt = now
	st.recordID = ""
	t.mu.Unlock()

	recordID, err := t.sink.SessionStarted(ctx, c.ID, now)
	if err != nil {
		// Roll the entry back so the next inside sample retries it; a
		// session with no backing record would otherwise dwell forever
		// unrecorded.
		t.mu.Lock()
		if cur, ok := t.sessions[c.ID]; ok && cur == st {
			st.inside = false
			st.enteredAt = time.Time{}
		}
		t.mu.Unlock()
		return err
	}

	t.mu.Lock()
	if cur, ok := t.sessions[c.ID]; ok && cur == st {
		st.recordID = recordID
	}
	t.mu.Unlock()
	return nil
}

// confirmExit runs when a grace timer fires without being cancelled.
// The session ends with a dwell measured from the original entry.
func (t *Tracker) confirmExit(challengeID string, st *session) {
	t.mu.Lock()
	cur, ok := t.sessions[challengeID]
	if !ok || cur != st || st.grace == nil || !st.inside {
		// Tracking stopped or the session was superseded after the
		// timer was scheduled.
		t.mu.Unlock()
		return
	}
	dwell := t.clock.Now().Sub(st.enteredAt)
	recordID := st.recordID
	st.inside = false
	st.grace = nil
	st.recordID = ""
	t.mu.Unlock()

	ctx := context.Background()
	if err := t.sink.SessionEnded(ctx, challengeID, recordID, dwell); err != nil {
		t.tele.Capture(ctx, "tracker.sessionEnded", err)
	}
}
