package challenge

import (
	"fmt"
	"time"
)

// Weekday is the engine's canonical day-of-week code. Storage and the
// engine speak three-letter codes; numeric indexes exist only at the
// UI boundary via the conversion helpers below.
type Weekday string

const (
	Sunday    Weekday = "SUN"
	Monday    Weekday = "MON"
	Tuesday   Weekday = "TUE"
	Wednesday Weekday = "WED"
	Thursday  Weekday = "THU"
	Friday    Weekday = "FRI"
	Saturday  Weekday = "SAT"
)

var weekdayOrder = []Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// WeekdayOf returns the code for t's day of week.
func WeekdayOf(t time.Time) Weekday {
	return weekdayOrder[int(t.Weekday())]
}

// WeekdayFromIndex converts a 0-6 index (Sunday = 0) to a code.
func WeekdayFromIndex(i int) (Weekday, error) {
	if i < 0 || i > 6 {
		return "", fmt.Errorf("weekday index out of range: %d", i)
	}
	return weekdayOrder[i], nil
}

// Index returns the 0-6 index (Sunday = 0) for the code.
func (w Weekday) Index() (int, error) {
	for i, d := range weekdayOrder {
		if d == w {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday code: %q", w)
}

// Valid reports whether w is one of the seven codes.
func (w Weekday) Valid() bool {
	_, err := w.Index()
	return err == nil
}
