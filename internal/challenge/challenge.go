// Package challenge defines the domain types for place-visit
// challenges: the challenge itself, its append-only visit records, and
// the partial-update patch consumed by the persistence layer.
package challenge

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/candemir/geopact/internal/geo"
)

// Status is the challenge lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusGraduated Status = "graduated"
)

// DefaultRadiusMeters is the geofence radius applied when none is given.
const DefaultRadiusMeters = 200.0

const (
	MinWeeklyGoal    = 1
	MaxWeeklyGoal    = 7
	MinDurationWeeks = 1
	MaxDurationWeeks = 8
)

var (
	ErrWeeklyGoalRange   = errors.New("weekly goal must be between 1 and 7")
	ErrDurationRange     = errors.New("duration must be between 1 and 8 weeks")
	ErrRadiusRange       = errors.New("radius must be positive")
	ErrDayCountMismatch  = errors.New("day set length must equal the weekly goal")
	ErrInvalidWeekday    = errors.New("invalid weekday code")
	ErrMinDwellNegative  = errors.New("minimum dwell time must not be negative")
	ErrPlaceNameRequired = errors.New("place name is required")
)

// Challenge is a user's commitment to visit a place on a schedule.
type Challenge struct {
	ID            string
	Name          string // optional display name
	PlaceName     string
	Lat           float64
	Lon           float64
	Radius        float64 // meters
	WeeklyGoal    int     // counted visits required per week, 1-7
	DaySpecific   bool
	Days          []Weekday // required length == WeeklyGoal when DaySpecific
	DurationWeeks int       // 1-8
	Repeat        bool      // restart at week 1 instead of graduating
	MinDwellMins  int       // 0 = no dwell requirement
	CurrentWeek   int       // 1-based
	WeeklyVisits  int
	Combo         int // consecutive completed weeks
	Chances       int // banked forgiveness tokens
	Status        Status
	CreatedAt     time.Time
	GraduatedAt   *time.Time
}

// Fence returns the challenge's geofence.
func (c *Challenge) Fence() geo.Fence {
	return geo.Fence{Center: geo.Point{Lat: c.Lat, Lon: c.Lon}, Radius: c.Radius}
}

// AllowsDay reports whether visits on day are eligible. Challenges
// without a day restriction allow every day.
func (c *Challenge) AllowsDay(day Weekday) bool {
	if !c.DaySpecific {
		return true
	}
	for _, d := range c.Days {
		if d == day {
			return true
		}
	}
	return false
}

// Params carries the user-supplied fields for a new challenge.
type Params struct {
	Name          string
	PlaceName     string
	Lat           float64
	Lon           float64
	Radius        float64 // 0 = DefaultRadiusMeters
	WeeklyGoal    int
	Days          []Weekday // non-empty enables day-specific mode
	DurationWeeks int
	Repeat        bool
	MinDwellMins  int
	Chances       int // starting chance balance, usually 0
}

// New validates p and builds a fresh active challenge at week 1.
// Invariant violations are rejected here, at creation time, so visit
// recording never has to revalidate the schedule shape.
func New(p Params, now time.Time) (*Challenge, error) {
	if p.PlaceName == "" {
		return nil, ErrPlaceNameRequired
	}
	if p.WeeklyGoal < MinWeeklyGoal || p.WeeklyGoal > MaxWeeklyGoal {
		return nil, ErrWeeklyGoalRange
	}
	if p.DurationWeeks < MinDurationWeeks || p.DurationWeeks > MaxDurationWeeks {
		return nil, ErrDurationRange
	}
	if p.MinDwellMins < 0 {
		return nil, ErrMinDwellNegative
	}

	radius := p.Radius
	if radius == 0 {
		radius = DefaultRadiusMeters
	}
	if radius < 0 {
		return nil, ErrRadiusRange
	}

	daySpecific := len(p.Days) > 0
	if daySpecific {
		if len(p.Days) != p.WeeklyGoal {
			return nil, fmt.Errorf("%w: %d days for goal %d", ErrDayCountMismatch, len(p.Days), p.WeeklyGoal)
		}
		for _, d := range p.Days {
			if !d.Valid() {
				return nil, fmt.Errorf("%w: %q", ErrInvalidWeekday, d)
			}
		}
	}

	return &Challenge{
		ID:            uuid.NewString(),
		Name:          p.Name,
		PlaceName:     p.PlaceName,
		Lat:           p.Lat,
		Lon:           p.Lon,
		Radius:        radius,
		WeeklyGoal:    p.WeeklyGoal,
		DaySpecific:   daySpecific,
		Days:          p.Days,
		DurationWeeks: p.DurationWeeks,
		Repeat:        p.Repeat,
		MinDwellMins:  p.MinDwellMins,
		CurrentWeek:   1,
		Chances:       p.Chances,
		Status:        StatusActive,
		CreatedAt:     now,
	}, nil
}

// Patch is a partial update for a challenge row. Nil fields are left
// untouched by the store.
type Patch struct {
	CurrentWeek  *int
	WeeklyVisits *int
	Combo        *int
	Chances      *int
	Status       *Status
	GraduatedAt  *time.Time
}

// IsZero reports whether the patch changes nothing.
func (p Patch) IsZero() bool {
	return p.CurrentWeek == nil && p.WeeklyVisits == nil && p.Combo == nil &&
		p.Chances == nil && p.Status == nil && p.GraduatedAt == nil
}
