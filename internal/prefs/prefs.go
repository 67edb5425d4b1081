// Package prefs persists the user's magnifier preferences in SQLite.
package prefs

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/chromalens/platform/internal/dichromacy"
	apperrors "github.com/chromalens/platform/internal/errors"
)

// Preference keys
const (
	keyMagnifierActive = "magnifier_active"
	keyCurrentFilter   = "current_filter"
)

const schema = `
CREATE TABLE IF NOT EXISTS preferences (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);
`

// Prefs is the persisted state.
type Prefs struct {
	MagnifierActive bool
	CurrentFilter   dichromacy.Filter
}

// Defaults are the first-run preferences.
func Defaults() Prefs {
	return Prefs{MagnifierActive: false, CurrentFilter: dichromacy.Protanopia}
}

// Store reads and writes Prefs.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if needed) the preference database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperrors.Wrapf(err, apperrors.CodeConfigInvalid, "create prefs directory %s", dir)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "open prefs database")
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "connect prefs database")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "create prefs schema")
	}
	return &Store{db: db}, nil
}

// Load returns the stored preferences, falling back to Defaults for missing keys.
func (s *Store) Load(ctx context.Context) (Prefs, error) {
	p := Defaults()
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM preferences")
	if err != nil {
		return p, apperrors.Wrap(err, apperrors.CodeUnavailable, "load preferences")
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Defaults(), apperrors.Wrap(err, apperrors.CodeInternal, "scan preference")
		}
		switch key {
		case keyMagnifierActive:
			if b, err := strconv.ParseBool(value); err == nil {
				p.MagnifierActive = b
			}
		case keyCurrentFilter:
			p.CurrentFilter = dichromacy.ParseFilter(value)
		}
	}
	if err := rows.Err(); err != nil {
		return Defaults(), apperrors.Wrap(err, apperrors.CodeInternal, "read preferences")
	}
	return p, nil
}

// Save writes every preference in one transaction.
func (s *Store) Save(ctx context.Context, p Prefs) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeUnavailable, "begin prefs transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO preferences (key, value, updated_at)
VALUES (?, ?, strftime('%s', 'now'))
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "prepare prefs upsert")
	}
	defer stmt.Close()

	values := map[string]string{
		keyMagnifierActive: strconv.FormatBool(p.MagnifierActive),
		keyCurrentFilter:   p.CurrentFilter.String(),
	}
	for k, v := range values {
		if _, err := stmt.ExecContext(ctx, k, v); err != nil {
			return apperrors.Wrapf(err, apperrors.CodeInternal, "save preference %s", k)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "commit preferences")
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
