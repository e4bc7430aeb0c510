// Package store persists challenges, visit records, and arrival
// alarms in SQLite. It is the row-store collaborator of the progress
// engine: the engine only sees the repository interfaces and the
// Transact boundary.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrChallengeLimit is returned when creating a challenge would
	// exceed the active-challenge cap.
	ErrChallengeLimit = errors.New("active challenge limit reached")
)

// MaxActiveChallenges caps how many challenges may be active at once.
const MaxActiveChallenges = 5

// Store holds the database handle and provides access to repositories.
type Store struct {
	db *sql.DB
}

// Open creates a new Store connected to the SQLite database at dsn.
// It applies recommended pragmas and creates the schema.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Challenges returns a ChallengeRepo backed by this store.
func (s *Store) Challenges() ChallengeRepo {
	return &challengeRepo{q: s.db}
}

// Visits returns a VisitRepo backed by this store.
func (s *Store) Visits() VisitRepo {
	return &visitRepo{q: s.db}
}

// Alarms returns an AlarmRepo backed by this store.
func (s *Store) Alarms() AlarmRepo {
	return &alarmRepo{q: s.db}
}

// Repos bundles the repositories bound to one querier, so a
// transaction hands out a consistent view.
type Repos struct {
	Challenges ChallengeRepo
	Visits     VisitRepo
}

// Transact runs fn inside a single transaction. The repositories
// passed to fn share the transaction; a returned error rolls
// everything back, so a visit record and its challenge tally update
// land together or not at all.
func (s *Store) Transact(ctx context.Context, fn func(r Repos) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	r := Repos{
		Challenges: &challengeRepo{q: tx},
		Visits:     &visitRepo{q: tx},
	}
	if err := fn(r); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// applyPragmas configures SQLite for single-user app performance.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS challenges (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL DEFAULT '',
	place_name     TEXT NOT NULL,
	lat            REAL NOT NULL,
	lon            REAL NOT NULL,
	radius         REAL NOT NULL,
	weekly_goal    INTEGER NOT NULL,
	day_specific   INTEGER NOT NULL DEFAULT 0,
	days           TEXT NOT NULL DEFAULT '',
	duration_weeks INTEGER NOT NULL,
	repeat_mode    INTEGER NOT NULL DEFAULT 0,
	min_dwell_mins INTEGER NOT NULL DEFAULT 0,
	current_week   INTEGER NOT NULL DEFAULT 1,
	weekly_visits  INTEGER NOT NULL DEFAULT 0,
	combo          INTEGER NOT NULL DEFAULT 0,
	chances        INTEGER NOT NULL DEFAULT 0,
	status         TEXT NOT NULL DEFAULT 'active',
	created_at     TEXT NOT NULL,
	graduated_at   TEXT
);

CREATE TABLE IF NOT EXISTS visits (
	id           TEXT PRIMARY KEY,
	challenge_id TEXT NOT NULL REFERENCES challenges(id) ON DELETE CASCADE,
	entered_at   TEXT NOT NULL,
	exited_at    TEXT,
	dwell_mins   INTEGER,
	counted      INTEGER NOT NULL DEFAULT 0,
	day          TEXT NOT NULL,
	week         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_visits_challenge ON visits(challenge_id);
CREATE INDEX IF NOT EXISTS idx_visits_entered ON visits(challenge_id, entered_at);

CREATE TABLE IF NOT EXISTS alarms (
	id         TEXT PRIMARY KEY,
	label      TEXT NOT NULL,
	lat        REAL NOT NULL,
	lon        REAL NOT NULL,
	radius     REAL NOT NULL,
	one_shot   INTEGER NOT NULL DEFAULT 1,
	armed      INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL
);
`

// DefaultDBPath resolves the database file path in priority order:
// 1. GEOPACT_DB environment variable
// 2. $XDG_DATA_HOME/geopact/geopact.db
// 3. ~/.local/share/geopact/geopact.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("GEOPACT_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "geopact", "geopact.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
