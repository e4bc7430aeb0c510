package store

import (
	"context"
	"fmt"
	"time"

	"github.com/candemir/geopact/internal/alarm"
)

// AlarmRepo manages arrival alarm rows. It satisfies alarm.Registry.
type AlarmRepo interface {
	Create(ctx context.Context, a *alarm.Alarm) error
	List(ctx context.Context) ([]*alarm.Alarm, error)
	ListArmed(ctx context.Context) ([]*alarm.Alarm, error)
	Disarm(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type alarmRepo struct {
	q querier
}

const alarmColumns = `id, label, lat, lon, radius, one_shot, armed, created_at`

func (r *alarmRepo) Create(ctx context.Context, a *alarm.Alarm) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO alarms (`+alarmColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Label, a.Lat, a.Lon, a.Radius, boolToInt(a.OneShot),
		boolToInt(a.Armed), a.CreatedAt.Format(timeFormat))
	if err != nil {
		return fmt.Errorf("insert alarm: %w", err)
	}
	return nil
}

func (r *alarmRepo) List(ctx context.Context) ([]*alarm.Alarm, error) {
	return r.list(ctx, `SELECT `+alarmColumns+` FROM alarms ORDER BY created_at DESC`)
}

func (r *alarmRepo) ListArmed(ctx context.Context) ([]*alarm.Alarm, error) {
	return r.list(ctx, `SELECT `+alarmColumns+` FROM alarms WHERE armed = 1 ORDER BY created_at DESC`)
}

func (r *alarmRepo) list(ctx context.Context, query string) ([]*alarm.Alarm, error) {
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list alarms: %w", err)
	}
	defer rows.Close()

	var out []*alarm.Alarm
	for rows.Next() {
		a, err := scanAlarm(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alarm: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *alarmRepo) Disarm(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE alarms SET armed = 0 WHERE id = ?`, id)
}

func (r *alarmRepo) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, `DELETE FROM alarms WHERE id = ?`, id)
}

func (r *alarmRepo) exec(ctx context.Context, query, id string) error {
	res, err := r.q.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("alarm update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("alarm update: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAlarm(s scanner) (*alarm.Alarm, error) {
	var (
		a         alarm.Alarm
		oneShot   int
		armed     int
		createdAt string
	)
	err := s.Scan(&a.ID, &a.Label, &a.Lat, &a.Lon, &a.Radius, &oneShot, &armed, &createdAt)
	if err != nil {
		return nil, err
	}
	a.OneShot = oneShot != 0
	a.Armed = armed != 0
	if a.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &a, nil
}
