package engine

import (
	"context"
	"time"
)

// SessionHandler adapts the engine to the dwell tracker's session
// callbacks. OnOutcome, when set, receives the result of every
// completed session so the layer above can react (toast, celebration)
// without the tracker learning anything about outcomes.
type SessionHandler struct {
	Engine    *Engine
	OnOutcome func(challengeID string, out VisitOutcome)
}

func (h *SessionHandler) SessionStarted(ctx context.Context, challengeID string, at time.Time) (string, error) {
	return h.Engine.StartSession(ctx, challengeID, at)
}

func (h *SessionHandler) SessionEnded(ctx context.Context, challengeID, recordID string, dwell time.Duration) error {
	out, err := h.Engine.CompleteSession(ctx, challengeID, recordID, dwell)
	if err != nil {
		return err
	}
	if h.OnOutcome != nil {
		h.OnOutcome(challengeID, out)
	}
	return nil
}
