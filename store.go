package sitekit

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database holding the build history and the form
// submissions received by the preview server.
type Store struct {
	db *sql.DB
}

// BuildSummary is one row of the build history.
type BuildSummary struct {
	BuildID   string
	Site      string
	StartedAt time.Time
	Accepted  int
	Rejected  int
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	// Pragmas go in the DSN so every pooled connection gets them. WAL lets
	// the admin pages read while a rebuild writes; busy_timeout makes
	// writers wait instead of failing with SQLITE_BUSY.
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS builds (
    id TEXT PRIMARY KEY,
    site TEXT NOT NULL,
    started_at TEXT NOT NULL,
    accepted INTEGER NOT NULL,
    rejected INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS build_pages (
    build_id TEXT NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    page TEXT NOT NULL,
    report TEXT NOT NULL,
    PRIMARY KEY (build_id, position)
);
CREATE TABLE IF NOT EXISTS submissions (
    id TEXT PRIMARY KEY,
    site TEXT NOT NULL,
    page TEXT NOT NULL,
    section TEXT NOT NULL,
    handler TEXT NOT NULL,
    fields TEXT NOT NULL,
    received_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS builds_site_started ON builds (site, started_at DESC);
CREATE INDEX IF NOT EXISTS submissions_site_received ON submissions (site, received_at DESC);
`)
	return err
}

// SaveBuild records a build report and its per-page entries in one
// transaction.
func (s *Store) SaveBuild(ctx context.Context, r Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO builds (id, site, started_at, accepted, rejected) VALUES (?, ?, ?, ?, ?)`,
		r.BuildID, r.Site, r.StartedAt.UTC().Format(time.RFC3339Nano), r.Accepted, r.Rejected); err != nil {
		return err
	}
	for i, p := range r.Pages {
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO build_pages (build_id, position, page, report) VALUES (?, ?, ?, ?)`,
			r.BuildID, i, p.Page, string(data)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListBuilds returns the most recent builds of site, newest first. An empty
// site lists every site.
func (s *Store) ListBuilds(ctx context.Context, site string, limit int) ([]BuildSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows *sql.Rows
	var err error
	if site == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT id, site, started_at, accepted, rejected FROM builds ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT id, site, started_at, accepted, rejected FROM builds WHERE site = ? ORDER BY started_at DESC, id DESC LIMIT ?`, site, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var builds []BuildSummary
	for rows.Next() {
		var b BuildSummary
		var started string
		if err := rows.Scan(&b.BuildID, &b.Site, &started, &b.Accepted, &b.Rejected); err != nil {
			return nil, err
		}
		b.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		builds = append(builds, b)
	}
	return builds, rows.Err()
}

// GetBuild returns the full report of one build. It returns sql.ErrNoRows
// when the build is unknown.
func (s *Store) GetBuild(ctx context.Context, id string) (Report, error) {
	var r Report
	var started string
	err := s.db.QueryRowContext(ctx, `SELECT id, site, started_at, accepted, rejected FROM builds WHERE id = ?`, id).
		Scan(&r.BuildID, &r.Site, &started, &r.Accepted, &r.Rejected)
	if err != nil {
		return Report{}, err
	}
	r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)

	rows, err := s.db.QueryContext(ctx, `SELECT report FROM build_pages WHERE build_id = ? ORDER BY position`, id)
	if err != nil {
		return Report{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return Report{}, err
		}
		var p PageReport
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return Report{}, err
		}
		r.Pages = append(r.Pages, p)
	}
	return r, rows.Err()
}

// PruneBuilds keeps the newest keep builds of site and deletes the rest.
func (s *Store) PruneBuilds(ctx context.Context, site string, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
DELETE FROM builds WHERE site = ? AND id NOT IN (
    SELECT id FROM builds WHERE site = ? ORDER BY started_at DESC, id DESC LIMIT ?
)`, site, site, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SaveSubmission records one form submission.
func (s *Store) SaveSubmission(ctx context.Context, sub Submission) error {
	fields, err := json.Marshal(sub.Fields)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO submissions (id, site, page, section, handler, fields, received_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.Site, sub.Page, sub.Section, sub.Handler, string(fields), sub.ReceivedAt.UTC().Format(time.RFC3339Nano))
	return err
}

// ListSubmissions returns the submissions of site, newest first. An empty
// handler lists every handler.
func (s *Store) ListSubmissions(ctx context.Context, site, handler string) ([]Submission, error) {
	query := `SELECT id, site, page, section, handler, fields, received_at FROM submissions WHERE site = ?`
	args := []any{site}
	if handler != "" {
		query += ` AND handler = ?`
		args = append(args, handler)
	}
	query += ` ORDER BY received_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Submission
	for rows.Next() {
		var sub Submission
		var fields, received string
		if err := rows.Scan(&sub.ID, &sub.Site, &sub.Page, &sub.Section, &sub.Handler, &fields, &received); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(fields), &sub.Fields); err != nil {
			return nil, err
		}
		sub.ReceivedAt, _ = time.Parse(time.RFC3339Nano, received)
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// DeleteSubmission removes one submission by ID.
func (s *Store) DeleteSubmission(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM submissions WHERE id = ?`, id)
	return err
}
