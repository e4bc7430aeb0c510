package challenge

import "time"

// VisitRecord is one geofence dwell episode, appended when the dwell
// session starts (so a crash mid-dwell still leaves the entry on disk)
// and finished once, on exit. Counted is decided at eligibility time
// and only ever changes in one direction: an eagerly written uncounted
// session record may flip to counted when its completed dwell passes
// all the rules.
type VisitRecord struct {
	ID          string
	ChallengeID string
	EnteredAt   time.Time
	ExitedAt    *time.Time
	DwellMins   *int
	Counted     bool
	Day         Weekday // day-of-week at entry
	Week        int     // challenge week index at entry
}
