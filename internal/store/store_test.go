package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/candemir/geopact/internal/alarm"
	"github.com/candemir/geopact/internal/challenge"
)

var storeNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testChallenge(t *testing.T, place string) *challenge.Challenge {
	t.Helper()
	c, err := challenge.New(challenge.Params{
		PlaceName:     place,
		Lat:           40.0,
		Lon:           29.0,
		WeeklyGoal:    3,
		DurationWeeks: 4,
		Days:          []challenge.Weekday{challenge.Monday, challenge.Wednesday, challenge.Friday},
	}, storeNow)
	if err != nil {
		t.Fatalf("new challenge: %v", err)
	}
	return c
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases,
		// so journal_mode is only meaningful with file-based DBs.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestChallengeRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	c := testChallenge(t, "City Gym")

	if err := s.Challenges().Create(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.Challenges().Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PlaceName != "City Gym" || got.WeeklyGoal != 3 || !got.DaySpecific {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if len(got.Days) != 3 || got.Days[1] != challenge.Wednesday {
		t.Errorf("days = %v", got.Days)
	}
	if !got.CreatedAt.Equal(storeNow) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, storeNow)
	}
	if got.GraduatedAt != nil {
		t.Error("graduated_at should be nil for a fresh challenge")
	}
}

func TestChallengeGetNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Challenges().Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestChallengePatchUpdate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	c := testChallenge(t, "City Gym")
	if err := s.Challenges().Create(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}

	week, visits, combo := 2, 0, 5
	graduated := challenge.StatusGraduated
	gradAt := storeNow.AddDate(0, 0, 28)
	err := s.Challenges().Update(ctx, c.ID, challenge.Patch{
		CurrentWeek:  &week,
		WeeklyVisits: &visits,
		Combo:        &combo,
		Status:       &graduated,
		GraduatedAt:  &gradAt,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.Challenges().Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CurrentWeek != 2 || got.Combo != 5 || got.Status != challenge.StatusGraduated {
		t.Errorf("patched challenge = %+v", got)
	}
	if got.GraduatedAt == nil || !got.GraduatedAt.Equal(gradAt) {
		t.Errorf("graduated_at = %v, want %v", got.GraduatedAt, gradAt)
	}
	// Untouched fields survive.
	if got.PlaceName != "City Gym" || got.WeeklyGoal != 3 {
		t.Errorf("unpatched fields changed: %+v", got)
	}

	// Zero patch is a no-op, even for missing rows.
	if err := s.Challenges().Update(ctx, "missing", challenge.Patch{}); err != nil {
		t.Errorf("zero patch: %v", err)
	}
	if err := s.Challenges().Update(ctx, "missing", challenge.Patch{Combo: &combo}); !errors.Is(err, ErrNotFound) {
		t.Errorf("patch missing row err = %v, want ErrNotFound", err)
	}
}

func TestActiveChallengeLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < MaxActiveChallenges; i++ {
		c := testChallenge(t, fmt.Sprintf("Place %d", i))
		if err := s.Challenges().Create(ctx, c); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	over := testChallenge(t, "One Too Many")
	if err := s.Challenges().Create(ctx, over); !errors.Is(err, ErrChallengeLimit) {
		t.Errorf("err = %v, want ErrChallengeLimit", err)
	}

	// Graduating one frees a slot.
	list, err := s.Challenges().List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	graduated := challenge.StatusGraduated
	if err := s.Challenges().Update(ctx, list[0].ID, challenge.Patch{Status: &graduated}); err != nil {
		t.Fatalf("graduate: %v", err)
	}
	if err := s.Challenges().Create(ctx, over); err != nil {
		t.Errorf("create after freeing a slot: %v", err)
	}
}

func TestChallengeLimitGuardIsAtomic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < MaxActiveChallenges; i++ {
		c := testChallenge(t, fmt.Sprintf("Place %d", i))
		if err := s.Challenges().Create(ctx, c); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	// The cap guard travels with the insert statement, so it holds on
	// the transaction path too and the rejected row never lands.
	over := testChallenge(t, "One Too Many")
	err := s.Transact(ctx, func(r Repos) error {
		return r.Challenges.Create(ctx, over)
	})
	if !errors.Is(err, ErrChallengeLimit) {
		t.Fatalf("err = %v, want ErrChallengeLimit", err)
	}
	if _, err := s.Challenges().Get(ctx, over.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("rejected challenge persisted: %v", err)
	}
}

func TestDeleteCascadesVisits(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	c := testChallenge(t, "City Gym")
	if err := s.Challenges().Create(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}

	rec := &challenge.VisitRecord{
		ID:          "v1",
		ChallengeID: c.ID,
		EnteredAt:   storeNow,
		Day:         challenge.Monday,
		Week:        1,
	}
	if err := s.Visits().Create(ctx, rec); err != nil {
		t.Fatalf("create visit: %v", err)
	}

	if err := s.Challenges().Delete(ctx, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Visits().Get(ctx, "v1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("visit survived cascade: %v", err)
	}
	if err := s.Challenges().Delete(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestVisitFinishAndCountedOnDate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	c := testChallenge(t, "City Gym")
	if err := s.Challenges().Create(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}

	rec := &challenge.VisitRecord{
		ID:          "v1",
		ChallengeID: c.ID,
		EnteredAt:   storeNow,
		Day:         challenge.Monday,
		Week:        1,
	}
	if err := s.Visits().Create(ctx, rec); err != nil {
		t.Fatalf("create visit: %v", err)
	}

	// Open and uncounted: not visible to the daily-cap query.
	n, err := s.Visits().CountedOnDate(ctx, c.ID, "2026-03-02")
	if err != nil || n != 0 {
		t.Fatalf("counted = %d, %v; want 0", n, err)
	}

	exit := storeNow.Add(40 * time.Minute)
	if err := s.Visits().Finish(ctx, "v1", exit, 40, true); err != nil {
		t.Fatalf("finish: %v", err)
	}

	n, err = s.Visits().CountedOnDate(ctx, c.ID, "2026-03-02")
	if err != nil || n != 1 {
		t.Fatalf("counted = %d, %v; want 1", n, err)
	}
	// A different date sees nothing.
	n, err = s.Visits().CountedOnDate(ctx, c.ID, "2026-03-03")
	if err != nil || n != 0 {
		t.Fatalf("counted other day = %d, %v; want 0", n, err)
	}

	got, err := s.Visits().Get(ctx, "v1")
	if err != nil {
		t.Fatalf("get visit: %v", err)
	}
	if got.ExitedAt == nil || !got.ExitedAt.Equal(exit) || got.DwellMins == nil || *got.DwellMins != 40 || !got.Counted {
		t.Errorf("finished visit = %+v", got)
	}

	if err := s.Visits().Finish(ctx, "missing", exit, 0, false); !errors.Is(err, ErrNotFound) {
		t.Errorf("finish missing err = %v, want ErrNotFound", err)
	}
}

func TestListOpenVisits(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	c := testChallenge(t, "City Gym")
	if err := s.Challenges().Create(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}

	for i, id := range []string{"open-1", "open-2"} {
		rec := &challenge.VisitRecord{
			ID:          id,
			ChallengeID: c.ID,
			EnteredAt:   storeNow.Add(time.Duration(i) * time.Hour),
			Day:         challenge.Monday,
			Week:        1,
		}
		if err := s.Visits().Create(ctx, rec); err != nil {
			t.Fatalf("create visit: %v", err)
		}
	}
	if err := s.Visits().Finish(ctx, "open-2", storeNow.Add(3*time.Hour), 120, false); err != nil {
		t.Fatalf("finish: %v", err)
	}

	open, err := s.Visits().ListOpen(ctx)
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(open) != 1 || open[0].ID != "open-1" {
		t.Errorf("open visits = %v", open)
	}
}

func TestTransactRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	c := testChallenge(t, "City Gym")
	if err := s.Challenges().Create(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}

	boom := errors.New("boom")
	err := s.Transact(ctx, func(r Repos) error {
		rec := &challenge.VisitRecord{
			ID:          "v1",
			ChallengeID: c.ID,
			EnteredAt:   storeNow,
			Day:         challenge.Monday,
			Week:        1,
		}
		if err := r.Visits.Create(ctx, rec); err != nil {
			return err
		}
		one := 1
		if err := r.Challenges.Update(ctx, c.ID, challenge.Patch{WeeklyVisits: &one}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("transact err = %v, want boom", err)
	}

	// Neither write survived.
	if _, err := s.Visits().Get(ctx, "v1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("visit survived rollback: %v", err)
	}
	got, err := s.Challenges().Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.WeeklyVisits != 0 {
		t.Errorf("weekly_visits = %d after rollback, want 0", got.WeeklyVisits)
	}
}

func TestAlarmRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := alarm.New("Pick up keys", 40.0, 29.0, 150, true, storeNow)
	if err := s.Alarms().Create(ctx, a); err != nil {
		t.Fatalf("create alarm: %v", err)
	}

	armed, err := s.Alarms().ListArmed(ctx)
	if err != nil || len(armed) != 1 {
		t.Fatalf("armed = %v, %v; want 1", armed, err)
	}
	if armed[0].Label != "Pick up keys" || !armed[0].OneShot {
		t.Errorf("alarm = %+v", armed[0])
	}

	if err := s.Alarms().Disarm(ctx, a.ID); err != nil {
		t.Fatalf("disarm: %v", err)
	}
	armed, err = s.Alarms().ListArmed(ctx)
	if err != nil || len(armed) != 0 {
		t.Fatalf("armed after disarm = %v, %v; want none", armed, err)
	}
	all, err := s.Alarms().List(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("all alarms = %v, %v; want 1", all, err)
	}

	if err := s.Alarms().Delete(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Alarms().Delete(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}
