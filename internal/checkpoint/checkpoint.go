// Package checkpoint persists the set of completed row keys for a batch
// run in SQLite, so a crashed run can resume without re-resolving rows
// regardless of how much of the output file survived.
package checkpoint

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Store is a durable completed-row-key set keyed by run.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) a checkpoint database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "checkpoint: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "checkpoint: exec %s", pragma)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS enriched_rows (
	run_key      TEXT NOT NULL,
	row_key      TEXT NOT NULL,
	status       TEXT NOT NULL,
	completed_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (run_key, row_key)
);
`

func (s *Store) migrate() error {
	_, err := s.db.Exec(migration)
	return eris.Wrap(err, "checkpoint: migrate")
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Mark records a row as completed with its terminal status. Idempotent.
func (s *Store) Mark(ctx context.Context, runKey, rowKey, status string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO enriched_rows (run_key, row_key, status, completed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (run_key, row_key) DO UPDATE SET
			status = excluded.status,
			completed_at = excluded.completed_at`,
		runKey, rowKey, status, time.Now().UTC(),
	)
	return eris.Wrap(err, "checkpoint: mark")
}

// Done reports whether a row was already completed in this run.
func (s *Store) Done(ctx context.Context, runKey, rowKey string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM enriched_rows WHERE run_key = ? AND row_key = ?`,
		runKey, rowKey,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrap(err, "checkpoint: lookup")
	}
	return true, nil
}

// Completed returns the full completed-key set for a run. Loaded once at
// batch start so the hot path never hits the database per row.
func (s *Store) Completed(ctx context.Context, runKey string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT row_key FROM enriched_rows WHERE run_key = ?`, runKey)
	if err != nil {
		return nil, eris.Wrap(err, "checkpoint: list completed")
	}
	defer rows.Close() //nolint:errcheck

	done := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, eris.Wrap(err, "checkpoint: scan row key")
		}
		done[key] = true
	}
	return done, eris.Wrap(rows.Err(), "checkpoint: iterate")
}
