package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/candemir/geopact/internal/challenge"
)

// timeFormat is the canonical timestamp encoding for all rows.
const timeFormat = time.RFC3339Nano

// ChallengeRepo manages challenge rows.
type ChallengeRepo interface {
	// Create inserts a new challenge, enforcing the active-challenge
	// cap. Returns ErrChallengeLimit when the cap is reached.
	Create(ctx context.Context, c *challenge.Challenge) error

	// Get fetches a challenge by id. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*challenge.Challenge, error)

	// Update applies a partial update to a challenge row. A zero
	// patch is a no-op. Returns ErrNotFound if the row is absent.
	Update(ctx context.Context, id string, p challenge.Patch) error

	// List returns all challenges, active first, newest first within
	// each status.
	List(ctx context.Context) ([]*challenge.Challenge, error)

	// Delete removes a challenge and, via the schema's cascade, its
	// visit records. Returns ErrNotFound if the row is absent.
	Delete(ctx context.Context, id string) error

	// CountActive returns the number of active challenges.
	CountActive(ctx context.Context) (int, error)
}

type challengeRepo struct {
	q querier
}

const challengeColumns = `id, name, place_name, lat, lon, radius, weekly_goal,
	day_specific, days, duration_weeks, repeat_mode, min_dwell_mins,
	current_week, weekly_visits, combo, chances, status, created_at, graduated_at`

func (r *challengeRepo) Create(ctx context.Context, c *challenge.Challenge) error {
	days := make([]string, len(c.Days))
	for i, d := range c.Days {
		days[i] = string(d)
	}

	var graduatedAt any
	if c.GraduatedAt != nil {
		graduatedAt = c.GraduatedAt.Format(timeFormat)
	}

	// The cap check is part of the insert itself, so two concurrent
	// creates cannot both slip under the limit.
	res, err := r.q.ExecContext(ctx, `INSERT INTO challenges (`+challengeColumns+`)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		WHERE (SELECT COUNT(*) FROM challenges WHERE status = ?) < ?`,
		c.ID, c.Name, c.PlaceName, c.Lat, c.Lon, c.Radius, c.WeeklyGoal,
		boolToInt(c.DaySpecific), strings.Join(days, ","), c.DurationWeeks,
		boolToInt(c.Repeat), c.MinDwellMins, c.CurrentWeek, c.WeeklyVisits,
		c.Combo, c.Chances, string(c.Status), c.CreatedAt.Format(timeFormat), graduatedAt,
		string(challenge.StatusActive), MaxActiveChallenges)
	if err != nil {
		return fmt.Errorf("insert challenge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert challenge: %w", err)
	}
	if n == 0 {
		return ErrChallengeLimit
	}
	return nil
}

func (r *challengeRepo) Get(ctx context.Context, id string) (*challenge.Challenge, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = ?`, id)
	c, err := scanChallenge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get challenge: %w", err)
	}
	return c, nil
}

func (r *challengeRepo) Update(ctx context.Context, id string, p challenge.Patch) error {
	if p.IsZero() {
		return nil
	}

	var sets []string
	var args []any
	if p.CurrentWeek != nil {
		sets = append(sets, "current_week = ?")
		args = append(args, *p.CurrentWeek)
	}
	if p.WeeklyVisits != nil {
		sets = append(sets, "weekly_visits = ?")
		args = append(args, *p.WeeklyVisits)
	}
	if p.Combo != nil {
		sets = append(sets, "combo = ?")
		args = append(args, *p.Combo)
	}
	if p.Chances != nil {
		sets = append(sets, "chances = ?")
		args = append(args, *p.Chances)
	}
	if p.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*p.Status))
	}
	if p.GraduatedAt != nil {
		sets = append(sets, "graduated_at = ?")
		args = append(args, p.GraduatedAt.Format(timeFormat))
	}
	args = append(args, id)

	res, err := r.q.ExecContext(ctx,
		"UPDATE challenges SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update challenge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update challenge: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *challengeRepo) List(ctx context.Context) ([]*challenge.Challenge, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+challengeColumns+` FROM challenges
		ORDER BY status ASC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	defer rows.Close()

	var out []*challenge.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan challenge: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *challengeRepo) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM challenges WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete challenge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete challenge: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *challengeRepo) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM challenges WHERE status = ?`, string(challenge.StatusActive)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active: %w", err)
	}
	return n, nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanChallenge(s scanner) (*challenge.Challenge, error) {
	var (
		c           challenge.Challenge
		daySpecific int
		repeat      int
		days        string
		status      string
		createdAt   string
		graduatedAt sql.NullString
	)
	err := s.Scan(&c.ID, &c.Name, &c.PlaceName, &c.Lat, &c.Lon, &c.Radius,
		&c.WeeklyGoal, &daySpecific, &days, &c.DurationWeeks, &repeat,
		&c.MinDwellMins, &c.CurrentWeek, &c.WeeklyVisits, &c.Combo, &c.Chances,
		&status, &createdAt, &graduatedAt)
	if err != nil {
		return nil, err
	}

	c.DaySpecific = daySpecific != 0
	c.Repeat = repeat != 0
	c.Status = challenge.Status(status)
	if days != "" {
		for _, d := range strings.Split(days, ",") {
			c.Days = append(c.Days, challenge.Weekday(d))
		}
	}
	if c.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if graduatedAt.Valid {
		t, err := time.Parse(timeFormat, graduatedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse graduated_at: %w", err)
		}
		c.GraduatedAt = &t
	}
	return &c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
