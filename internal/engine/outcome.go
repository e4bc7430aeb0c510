package engine

// Reason explains why a visit was not counted. Eligibility rejections
// are expected outcomes, communicated as values rather than errors.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonInactive            Reason = "INACTIVE"
	ReasonWrongDay            Reason = "WRONG_DAY"
	ReasonDwellTimeNotMet     Reason = "DWELL_TIME_NOT_MET"
	ReasonAlreadyCountedToday Reason = "ALREADY_COUNTED_TODAY"
)

// VisitOutcome is the synchronous result of a visit-recording call.
type VisitOutcome struct {
	Counted bool
	Reason  Reason
	// Week is set when the counted visit completed the weekly goal.
	Week *WeekOutcome
}

// WeekOutcome describes a weekly rollover.
//
// ComboChange is a delta, not an absolute value: +1 on a completed
// week, 0 on a chance-consuming soft pass, and the negative of the
// prior combo when a missed week resets it.
type WeekOutcome struct {
	Completed   bool
	ComboChange int
	ChanceUsed  bool
	BonusChance bool
	Graduated   bool
}
