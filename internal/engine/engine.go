// Package engine owns challenge progress: it decides whether a
// completed dwell or manual check-in counts toward the weekly goal,
// and runs the weekly combo/chance/graduation rollover.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/candemir/geopact/internal/challenge"
	"github.com/candemir/geopact/internal/clock"
	"github.com/candemir/geopact/internal/store"
	"github.com/candemir/geopact/internal/telemetry"
)

// comboBonusInterval: every Nth consecutive completed week banks a
// bonus chance.
const comboBonusInterval = 3

// dateFormat keys the one-counted-visit-per-day rule.
const dateFormat = "2006-01-02"

// ErrInactive is returned by AdvanceWeek for graduated challenges.
var ErrInactive = errors.New("challenge is not active")

// Storage is the slice of the row store the engine needs.
type Storage interface {
	Transact(ctx context.Context, fn func(r store.Repos) error) error
	Challenges() store.ChallengeRepo
	Visits() store.VisitRepo
}

// Engine is the challenge progress engine. Mutations for the same
// challenge id are serialized; different challenges proceed
// independently.
type Engine struct {
	storage Storage
	clock   clock.Clock
	sink    telemetry.Sink

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an Engine. A nil clock falls back to the system clock
// and a nil sink to a no-op.
func New(storage Storage, c clock.Clock, sink telemetry.Sink) *Engine {
	if c == nil {
		c = clock.System()
	}
	if sink == nil {
		sink = telemetry.Nop{}
	}
	return &Engine{
		storage: storage,
		clock:   c,
		sink:    sink,
		locks:   make(map[string]*sync.Mutex),
	}
}

// lock returns the per-challenge mutex, creating it on first use.
func (e *Engine) lock(id string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.locks[id]
	if !ok {
		m = &sync.Mutex{}
		e.locks[id] = m
	}
	return m
}

// Forget drops the serialization mutex of a challenge that no longer
// exists, so the registry does not grow without bound as challenges
// are deleted. A later call for the same id allocates a fresh mutex.
func (e *Engine) Forget(challengeID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.locks, challengeID)
}

// RecordVisit records a direct check-in (no prior dwell session) with
// an optional dwell duration. Eligibility rules run in a fixed order;
// the first failing one wins. The visit record and the challenge
// tally update commit in one transaction.
func (e *Engine) RecordVisit(ctx context.Context, challengeID string, dwell *time.Duration) (VisitOutcome, error) {
	m := e.lock(challengeID)
	m.Lock()
	defer m.Unlock()

	now := e.clock.Now()
	var out VisitOutcome

	err := e.storage.Transact(ctx, func(r store.Repos) error {
		c, err := r.Challenges.Get(ctx, challengeID)
		if errors.Is(err, store.ErrNotFound) {
			out = VisitOutcome{Reason: ReasonInactive}
			return nil
		}
		if err != nil {
			return err
		}
		if c.Status != challenge.StatusActive {
			out = VisitOutcome{Reason: ReasonInactive}
			return nil
		}

		day := challenge.WeekdayOf(now)

		if !c.AllowsDay(day) {
			out = VisitOutcome{Reason: ReasonWrongDay}
			return r.Visits.Create(ctx, closedRecord(c, now, day, nil, false))
		}

		if !dwellSatisfied(c, dwell) {
			out = VisitOutcome{Reason: ReasonDwellTimeNotMet}
			return r.Visits.Create(ctx, closedRecord(c, now, day, dwell, false))
		}

		counted, err := r.Visits.CountedOnDate(ctx, c.ID, now.Format(dateFormat))
		if err != nil {
			return err
		}
		if counted > 0 {
			// The earlier counted visit already wrote its record;
			// a duplicate check-in writes nothing.
			out = VisitOutcome{Reason: ReasonAlreadyCountedToday}
			return nil
		}

		if err := r.Visits.Create(ctx, closedRecord(c, now, day, dwell, true)); err != nil {
			return err
		}
		week, err := e.countAndCheckGoal(ctx, r, c, now)
		if err != nil {
			return err
		}
		out = VisitOutcome{Counted: true, Week: week}
		return nil
	})
	if err != nil {
		return VisitOutcome{}, fmt.Errorf("record visit: %w", err)
	}
	return out, nil
}

// StartSession persists the entry of a dwell session as an uncounted
// open visit record, so a crash mid-dwell still leaves the start on
// disk. Returns the record id the tracker hands back on completion.
func (e *Engine) StartSession(ctx context.Context, challengeID string, at time.Time) (string, error) {
	m := e.lock(challengeID)
	m.Lock()
	defer m.Unlock()

	c, err := e.storage.Challenges().Get(ctx, challengeID)
	if err != nil {
		return "", fmt.Errorf("start session: %w", err)
	}

	rec := &challenge.VisitRecord{
		ID:          uuid.NewString(),
		ChallengeID: c.ID,
		EnteredAt:   at,
		Day:         challenge.WeekdayOf(at),
		Week:        c.CurrentWeek,
	}
	if err := e.storage.Visits().Create(ctx, rec); err != nil {
		return "", fmt.Errorf("start session: %w", err)
	}
	return rec.ID, nil
}

// CompleteSession finishes the dwell session's eagerly written record
// with the computed duration, re-evaluating eligibility against that
// same record. If every rule passes the record flips to counted and
// the weekly tally advances; no second record is created.
func (e *Engine) CompleteSession(ctx context.Context, challengeID, recordID string, dwell time.Duration) (VisitOutcome, error) {
	m := e.lock(challengeID)
	m.Lock()
	defer m.Unlock()

	now := e.clock.Now()
	mins := int(dwell.Minutes())
	var out VisitOutcome

	err := e.storage.Transact(ctx, func(r store.Repos) error {
		c, err := r.Challenges.Get(ctx, challengeID)
		if errors.Is(err, store.ErrNotFound) {
			out = VisitOutcome{Reason: ReasonInactive}
			return nil
		}
		if err != nil {
			return err
		}
		rec, err := r.Visits.Get(ctx, recordID)
		if err != nil {
			return err
		}

		if c.Status != challenge.StatusActive {
			out = VisitOutcome{Reason: ReasonInactive}
			return r.Visits.Finish(ctx, rec.ID, now, mins, false)
		}

		if !c.AllowsDay(rec.Day) {
			out = VisitOutcome{Reason: ReasonWrongDay}
			return r.Visits.Finish(ctx, rec.ID, now, mins, false)
		}

		if !dwellSatisfied(c, &dwell) {
			out = VisitOutcome{Reason: ReasonDwellTimeNotMet}
			return r.Visits.Finish(ctx, rec.ID, now, mins, false)
		}

		counted, err := r.Visits.CountedOnDate(ctx, c.ID, rec.EnteredAt.Format(dateFormat))
		if err != nil {
			return err
		}
		if counted > 0 {
			out = VisitOutcome{Reason: ReasonAlreadyCountedToday}
			return r.Visits.Finish(ctx, rec.ID, now, mins, false)
		}

		if err := r.Visits.Finish(ctx, rec.ID, now, mins, true); err != nil {
			return err
		}
		week, err := e.countAndCheckGoal(ctx, r, c, now)
		if err != nil {
			return err
		}
		out = VisitOutcome{Counted: true, Week: week}
		return nil
	})
	if err != nil {
		return VisitOutcome{}, fmt.Errorf("complete session: %w", err)
	}
	return out, nil
}

// AdvanceWeek rolls a challenge whose week elapsed without reaching
// the goal: a banked chance soft-passes the week, otherwise the combo
// resets. Called by the external weekly scheduler; weeks whose goal
// was met advanced already, at the moment the goal was reached.
func (e *Engine) AdvanceWeek(ctx context.Context, challengeID string) (WeekOutcome, error) {
	m := e.lock(challengeID)
	m.Lock()
	defer m.Unlock()

	now := e.clock.Now()
	var out WeekOutcome

	err := e.storage.Transact(ctx, func(r store.Repos) error {
		c, err := r.Challenges.Get(ctx, challengeID)
		if err != nil {
			return err
		}
		if c.Status != challenge.StatusActive {
			return ErrInactive
		}

		p := challenge.Patch{}
		if c.Chances > 0 {
			chances := c.Chances - 1
			p.Chances = &chances
			out.ChanceUsed = true
		} else {
			combo := 0
			p.Combo = &combo
			out.ComboChange = -c.Combo
		}

		e.applyWeekAdvance(c, &p, &out, now)
		return r.Challenges.Update(ctx, c.ID, p)
	})
	if err != nil {
		return WeekOutcome{}, fmt.Errorf("advance week: %w", err)
	}
	return out, nil
}

// countAndCheckGoal increments the weekly tally and, when it reaches
// the goal, runs the success rollover: combo up, every third combo
// banks a chance, week advances.
func (e *Engine) countAndCheckGoal(ctx context.Context, r store.Repos, c *challenge.Challenge, now time.Time) (*WeekOutcome, error) {
	visits := c.WeeklyVisits + 1
	p := challenge.Patch{WeeklyVisits: &visits}

	if visits < c.WeeklyGoal {
		return nil, r.Challenges.Update(ctx, c.ID, p)
	}

	out := WeekOutcome{Completed: true, ComboChange: 1}
	combo := c.Combo + 1
	p.Combo = &combo
	if combo%comboBonusInterval == 0 {
		chances := c.Chances + 1
		p.Chances = &chances
		out.BonusChance = true
	}

	e.applyWeekAdvance(c, &p, &out, now)
	if err := r.Challenges.Update(ctx, c.ID, p); err != nil {
		return nil, err
	}
	return &out, nil
}

// applyWeekAdvance is the shared tail for success, soft pass, and
// fail: advance the week index, or wrap to week 1 in repeat mode, or
// graduate.
func (e *Engine) applyWeekAdvance(c *challenge.Challenge, p *challenge.Patch, out *WeekOutcome, now time.Time) {
	zero := 0
	next := c.CurrentWeek + 1

	switch {
	case next <= c.DurationWeeks:
		p.CurrentWeek = &next
		p.WeeklyVisits = &zero
	case c.Repeat:
		// A fresh program instance; combo and chances carry over.
		one := 1
		p.CurrentWeek = &one
		p.WeeklyVisits = &zero
	default:
		graduated := challenge.StatusGraduated
		p.Status = &graduated
		p.GraduatedAt = &now
		out.Graduated = true
	}
}

// RecoverOpenSessions closes visit records left without an exit by a
// crashed process, marking them uncounted. Returns how many records
// were swept; individual failures are captured and skipped so startup
// never blocks on a bad row.
func (e *Engine) RecoverOpenSessions(ctx context.Context) (int, error) {
	open, err := e.storage.Visits().ListOpen(ctx)
	if err != nil {
		return 0, fmt.Errorf("recover sessions: %w", err)
	}

	now := e.clock.Now()
	swept := 0
	for _, rec := range open {
		if err := e.storage.Visits().Finish(ctx, rec.ID, now, 0, false); err != nil {
			e.sink.Capture(ctx, "engine.recover", err)
			continue
		}
		swept++
	}
	return swept, nil
}

// dwellSatisfied checks the challenge's minimum dwell requirement
// against an optional duration.
func dwellSatisfied(c *challenge.Challenge, dwell *time.Duration) bool {
	if c.MinDwellMins <= 0 {
		return true
	}
	if dwell == nil {
		return false
	}
	return *dwell >= time.Duration(c.MinDwellMins)*time.Minute
}

// closedRecord builds an already-finished visit record for the direct
// check-in path, where entry and exit coincide.
func closedRecord(c *challenge.Challenge, now time.Time, day challenge.Weekday, dwell *time.Duration, counted bool) *challenge.VisitRecord {
	rec := &challenge.VisitRecord{
		ID:          uuid.NewString(),
		ChallengeID: c.ID,
		EnteredAt:   now,
		ExitedAt:    &now,
		Counted:     counted,
		Day:         day,
		Week:        c.CurrentWeek,
	}
	if dwell != nil {
		mins := int(dwell.Minutes())
		rec.DwellMins = &mins
	}
	return rec
}
