package clock

import (
	"testing"
	"time"
)

func TestOffsetShiftsReading(t *testing.T) {
	base := NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	c := Offset(base, 48*time.Hour)

	want := time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)
	if got := c.Now(); !got.Equal(want) {
		t.Errorf("offset Now = %v, want %v", got, want)
	}
}

func TestOffsetZeroReturnsBase(t *testing.T) {
	base := System()
	if Offset(base, 0) != base {
		t.Error("zero offset should return the base clock unchanged")
	}
}

func TestFakeAdvance(t *testing.T) {
	f := NewFake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	f.Advance(90 * time.Minute)

	want := time.Date(2026, 3, 1, 1, 30, 0, 0, time.UTC)
	if got := f.Now(); !got.Equal(want) {
		t.Errorf("after Advance Now = %v, want %v", got, want)
	}

	f.Set(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	if got := f.Now(); got.Month() != time.April {
		t.Errorf("after Set Now = %v, want April", got)
	}
}
