// Package clock abstracts the time source so business logic can be
// tested against simulated day and week boundaries, and so a
// development build can shift the perceived date without touching the
// code that asks for "now".
package clock

import (
	"sync"
	"time"
)

// Clock supplies the effective current time.
type Clock interface {
	Now() time.Time
}

// systemClock reads the real system clock.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System returns a Clock backed by the real system clock.
func System() Clock { return systemClock{} }

// offsetClock shifts every reading of the wrapped clock by a fixed
// duration. Used by the development date-offset feature.
type offsetClock struct {
	base   Clock
	offset time.Duration
}

func (c offsetClock) Now() time.Time { return c.base.Now().Add(c.offset) }

// Offset wraps base so that Now reports base time shifted by d.
func Offset(base Clock, d time.Duration) Clock {
	if d == 0 {
		return base
	}
	return offsetClock{base: base, offset: d}
}

// Fake is a manually controlled Clock for tests.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake returns a Fake frozen at t.
func NewFake(t time.Time) *Fake {
	return &Fake{now: t}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set moves the fake clock to t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

// Advance moves the fake clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
