package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/nertrie/pkg/nertrie/grammar"
	"github.com/cognicore/nertrie/pkg/nertrie/internalerr"
	"github.com/cognicore/nertrie/pkg/nertrie/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS rules (
	grammar TEXT NOT NULL,
	position INTEGER NOT NULL,
	entity_id TEXT NOT NULL,
	forms TEXT NOT NULL,
	line INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY(grammar, position)
);

CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	grammar TEXT NOT NULL,
	options TEXT,
	started_at TEXT NOT NULL,
	finished_at TEXT,
	docs INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_matches (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	doc_id TEXT NOT NULL,
	start_offset INTEGER NOT NULL,
	end_offset INTEGER NOT NULL,
	text TEXT,
	ids TEXT NOT NULL,
	PRIMARY KEY(run_id, seq),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_run_matches_doc ON run_matches(run_id, doc_id);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// UpsertRules replaces the stored rules of a grammar, keeping their order.
func (s *sqliteStore) UpsertRules(ctx context.Context, grammarName string, rules []grammar.Rule) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rules WHERE grammar = ?`, grammarName); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO rules (grammar, position, entity_id, forms, line)
VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range rules {
		forms, err := json.Marshal(r.Forms)
		if err != nil {
			return fmt.Errorf("encode forms of %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, grammarName, i, r.ID, string(forms), r.Line); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Rules returns the stored rules of a grammar in their original order.
func (s *sqliteStore) Rules(ctx context.Context, grammarName string) ([]grammar.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT entity_id, forms, line FROM rules
WHERE grammar = ?
ORDER BY position`, grammarName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []grammar.Rule
	for rows.Next() {
		var (
			r     grammar.Rule
			forms string
		)
		if err := rows.Scan(&r.ID, &forms, &r.Line); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(forms), &r.Forms); err != nil {
			return nil, fmt.Errorf("decode forms of %s: %w", r.ID, err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("grammar %q: %w", grammarName, internalerr.ErrNotFound)
	}
	return rules, nil
}

// Grammars lists the names of stored grammars.
func (s *sqliteStore) Grammars(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT grammar FROM rules ORDER BY grammar`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// SaveRun inserts a run and its matches. Saving a run id twice replaces it.
func (s *sqliteStore) SaveRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return errors.New("run without id")
	}
	opts, err := json.Marshal(r.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const stmt = `
INSERT INTO runs (id, grammar, options, started_at, finished_at, docs)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	grammar=excluded.grammar,
	options=excluded.options,
	started_at=excluded.started_at,
	finished_at=excluded.finished_at,
	docs=excluded.docs
`
	_, err = tx.ExecContext(ctx, stmt,
		r.ID,
		r.Grammar,
		string(opts),
		formatTime(r.StartedAt),
		formatTime(r.FinishedAt),
		r.Docs,
	)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_matches WHERE run_id = ?`, r.ID); err != nil {
		return err
	}
	ins, err := tx.PrepareContext(ctx, `
INSERT INTO run_matches (run_id, seq, doc_id, start_offset, end_offset, text, ids)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer ins.Close()

	for i, m := range r.Matches {
		ids, err := json.Marshal(m.IDs)
		if err != nil {
			return err
		}
		if _, err := ins.ExecContext(ctx, r.ID, i, m.DocID, m.Start, m.End, m.Text, string(ids)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetRun loads a run with all of its matches.
func (s *sqliteStore) GetRun(ctx context.Context, id string) (store.Run, error) {
	var (
		r        store.Run
		opts     sql.NullString
		started  string
		finished sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, grammar, options, started_at, finished_at, docs
FROM runs WHERE id = ?`, id).Scan(&r.ID, &r.Grammar, &opts, &started, &finished, &r.Docs)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	if err != nil {
		return store.Run{}, err
	}
	if err := decodeRun(&r, opts, started, finished); err != nil {
		return store.Run{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT doc_id, start_offset, end_offset, text, ids
FROM run_matches WHERE run_id = ?
ORDER BY seq`, id)
	if err != nil {
		return store.Run{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m    store.Match
			text sql.NullString
			ids  string
		)
		if err := rows.Scan(&m.DocID, &m.Start, &m.End, &text, &ids); err != nil {
			return store.Run{}, err
		}
		m.Text = text.String
		if err := json.Unmarshal([]byte(ids), &m.IDs); err != nil {
			return store.Run{}, fmt.Errorf("decode ids: %w", err)
		}
		r.Matches = append(r.Matches, m)
	}
	if err := rows.Err(); err != nil {
		return store.Run{}, err
	}
	r.MatchCount = len(r.Matches)
	return r, nil
}

// ListRuns returns the most recent runs first, without their matches.
func (s *sqliteStore) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT r.id, r.grammar, r.options, r.started_at, r.finished_at, r.docs,
	(SELECT COUNT(*) FROM run_matches m WHERE m.run_id = r.id)
FROM runs r
ORDER BY r.started_at DESC, r.id DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []store.Run
	for rows.Next() {
		var (
			r        store.Run
			opts     sql.NullString
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Grammar, &opts, &started, &finished, &r.Docs, &r.MatchCount); err != nil {
			return nil, err
		}
		if err := decodeRun(&r, opts, started, finished); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func decodeRun(r *store.Run, opts sql.NullString, started string, finished sql.NullString) error {
	if opts.Valid && opts.String != "" && opts.String != "null" {
		if err := json.Unmarshal([]byte(opts.String), &r.Options); err != nil {
			return fmt.Errorf("decode options of run %s: %w", r.ID, err)
		}
	}
	var err error
	if r.StartedAt, err = parseTime(started); err != nil {
		return err
	}
	if finished.Valid {
		if r.FinishedAt, err = parseTime(finished.String); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
