// Package telemetry provides the capture-error sink used for
// non-fatal issues. Capturing never returns an error and never blocks
// the caller.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/candemir/geopact/internal/clock"
)

// Sink receives non-fatal errors with the operation that produced them.
type Sink interface {
	Capture(ctx context.Context, op string, err error)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Capture(context.Context, string, error) {}

// Emitter writes captured errors as single lines to a destination.
type Emitter struct {
	mu    sync.Mutex
	out   io.Writer
	clock clock.Clock
}

// NewEmitter creates an Emitter writing to out. A nil clock falls back
// to the system clock.
func NewEmitter(out io.Writer, c clock.Clock) *Emitter {
	if c == nil {
		c = clock.System()
	}
	return &Emitter{out: out, clock: c}
}

// Capture records err against op. It is a no-op when the emitter, the
// destination, or the error is nil, and swallows write failures.
func (e *Emitter) Capture(_ context.Context, op string, err error) {
	if e == nil || e.out == nil || err == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprintf(e.out, "%s %s: %v\n", e.clock.Now().UTC().Format(time.RFC3339), op, err)
}
