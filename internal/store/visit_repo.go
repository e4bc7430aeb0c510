package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/candemir/geopact/internal/challenge"
)

// VisitRepo manages the append-only visit record log.
type VisitRepo interface {
	// Create appends a visit record. The record is written as-is: the
	// session-start path inserts it uncounted with no exit, the
	// direct check-in path inserts it already finished.
	Create(ctx context.Context, v *challenge.VisitRecord) error

	// Get fetches a record by id. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*challenge.VisitRecord, error)

	// Finish sets the exit timestamp, dwell minutes, and counted flag
	// of an open record. It is the only permitted mutation of a visit
	// record. Returns ErrNotFound if the row is absent.
	Finish(ctx context.Context, id string, exitedAt time.Time, dwellMins int, counted bool) error

	// CountedOnDate returns how many counted records the challenge
	// has on the given calendar date (format 2006-01-02, in the
	// engine's effective-clock terms).
	CountedOnDate(ctx context.Context, challengeID, date string) (int, error)

	// ListForChallenge returns the challenge's records, newest first.
	ListForChallenge(ctx context.Context, challengeID string) ([]*challenge.VisitRecord, error)

	// ListOpen returns records with no exit timestamp, oldest first.
	// Used by the crash-recovery sweep.
	ListOpen(ctx context.Context) ([]*challenge.VisitRecord, error)
}

type visitRepo struct {
	q querier
}

const visitColumns = `id, challenge_id, entered_at, exited_at, dwell_mins, counted, day, week`

func (r *visitRepo) Create(ctx context.Context, v *challenge.VisitRecord) error {
	var exitedAt, dwell any
	if v.ExitedAt != nil {
		exitedAt = v.ExitedAt.Format(timeFormat)
	}
	if v.DwellMins != nil {
		dwell = *v.DwellMins
	}
	_, err := r.q.ExecContext(ctx, `INSERT INTO visits (`+visitColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.ChallengeID, v.EnteredAt.Format(timeFormat), exitedAt, dwell,
		boolToInt(v.Counted), string(v.Day), v.Week)
	if err != nil {
		return fmt.Errorf("insert visit: %w", err)
	}
	return nil
}

func (r *visitRepo) Get(ctx context.Context, id string) (*challenge.VisitRecord, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+visitColumns+` FROM visits WHERE id = ?`, id)
	v, err := scanVisit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get visit: %w", err)
	}
	return v, nil
}

func (r *visitRepo) Finish(ctx context.Context, id string, exitedAt time.Time, dwellMins int, counted bool) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE visits SET exited_at = ?, dwell_mins = ?, counted = ? WHERE id = ?`,
		exitedAt.Format(timeFormat), dwellMins, boolToInt(counted), id)
	if err != nil {
		return fmt.Errorf("finish visit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish visit: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *visitRepo) CountedOnDate(ctx context.Context, challengeID, date string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM visits
		WHERE challenge_id = ? AND counted = 1 AND substr(entered_at, 1, 10) = ?`,
		challengeID, date).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counted on date: %w", err)
	}
	return n, nil
}

func (r *visitRepo) ListForChallenge(ctx context.Context, challengeID string) ([]*challenge.VisitRecord, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+visitColumns+` FROM visits
		WHERE challenge_id = ? ORDER BY entered_at DESC`, challengeID)
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	defer rows.Close()
	return collectVisits(rows)
}

func (r *visitRepo) ListOpen(ctx context.Context) ([]*challenge.VisitRecord, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+visitColumns+` FROM visits
		WHERE exited_at IS NULL ORDER BY entered_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list open visits: %w", err)
	}
	defer rows.Close()
	return collectVisits(rows)
}

func collectVisits(rows *sql.Rows) ([]*challenge.VisitRecord, error) {
	var out []*challenge.VisitRecord
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan visit: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanVisit(s scanner) (*challenge.VisitRecord, error) {
	var (
		v         challenge.VisitRecord
		enteredAt string
		exitedAt  sql.NullString
		dwell     sql.NullInt64
		counted   int
		day       string
	)
	err := s.Scan(&v.ID, &v.ChallengeID, &enteredAt, &exitedAt, &dwell, &counted, &day, &v.Week)
	if err != nil {
		return nil, err
	}

	v.Counted = counted != 0
	v.Day = challenge.Weekday(day)
	if v.EnteredAt, err = time.Parse(timeFormat, enteredAt); err != nil {
		return nil, fmt.Errorf("parse entered_at: %w", err)
	}
	if exitedAt.Valid {
		t, err := time.Parse(timeFormat, exitedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse exited_at: %w", err)
		}
		v.ExitedAt = &t
	}
	if dwell.Valid {
		d := int(dwell.Int64)
		v.DwellMins = &d
	}
	return &v, nil
}
