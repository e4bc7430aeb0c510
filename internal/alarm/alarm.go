// Package alarm implements arrival alarms: one-shot or repeating
// geofenced reminders that fire the moment a location sample lands
// inside the alarm's fence.
package alarm

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/candemir/geopact/internal/geo"
)

// Alarm is a geofenced arrival reminder.
type Alarm struct {
	ID        string
	Label     string
	Lat       float64
	Lon       float64
	Radius    float64 // meters
	OneShot   bool    // disarm after the first firing
	Armed     bool
	CreatedAt time.Time
}

// Fence returns the alarm's geofence.
func (a *Alarm) Fence() geo.Fence {
	return geo.Fence{Center: geo.Point{Lat: a.Lat, Lon: a.Lon}, Radius: a.Radius}
}

// New builds an armed alarm. A zero radius falls back to 200 m, the
// same default the challenges use.
func New(label string, lat, lon, radius float64, oneShot bool, now time.Time) *Alarm {
	if radius <= 0 {
		radius = 200
	}
	return &Alarm{
		ID:        uuid.NewString(),
		Label:     label,
		Lat:       lat,
		Lon:       lon,
		Radius:    radius,
		OneShot:   oneShot,
		Armed:     true,
		CreatedAt: now,
	}
}

// Registry is the slice of persistence the watcher needs.
type Registry interface {
	ListArmed(ctx context.Context) ([]*Alarm, error)
	Disarm(ctx context.Context, id string) error
}
