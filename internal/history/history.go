// Package history stores past scans in a SQLite database so that each run can
// flag the findings that are new since the previous one.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// FileName is the database file name inside the data directory.
const FileName = "history.db"

// Scan is one recorded run.
type Scan struct {
	ID         string
	StartedAt  time.Time
	Roots      []string
	Threshold  int64
	TotalBytes int64
	Findings   int
	Warnings   int
}

// Finding is one path reported by a scan.
type Finding struct {
	Path    string
	Size    int64
	Dir     bool
	ModTime time.Time
}

// Store wraps the history database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS scans (
    id TEXT PRIMARY KEY,
    started_at INTEGER NOT NULL,
    roots TEXT NOT NULL,
    threshold INTEGER NOT NULL,
    total_bytes INTEGER NOT NULL,
    findings INTEGER NOT NULL,
    warnings INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS findings (
    scan_id TEXT NOT NULL,
    path TEXT NOT NULL,
    size INTEGER NOT NULL,
    is_dir INTEGER NOT NULL DEFAULT 0,
    modified_at INTEGER NOT NULL,
    PRIMARY KEY (scan_id, path),
    FOREIGN KEY (scan_id) REFERENCES scans(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_scans_started_at ON scans(started_at);
`

// Open opens (and migrates) the database at path, creating its directory.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db}

	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()

		return nil, err
	}

	return store, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, pragma := range []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA busy_timeout=5000;`,
		`PRAGMA foreign_keys=ON;`,
	} {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("configuring history database: %w", err)
		}
	}

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating history schema: %w", err)
	}

	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

// Save records a scan and its findings in one transaction.
func (s *Store) Save(ctx context.Context, scan Scan, findings []Finding) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO scans (id, started_at, roots, threshold, total_bytes, findings, warnings)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		scan.ID, scan.StartedAt.UnixNano(), strings.Join(scan.Roots, "\n"),
		scan.Threshold, scan.TotalBytes, len(findings), scan.Warnings,
	)
	if err != nil {
		return fmt.Errorf("inserting scan %s: %w", scan.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO findings (scan_id, path, size, is_dir, modified_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing findings insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range findings {
		if _, err := stmt.ExecContext(ctx, scan.ID, f.Path, f.Size, f.Dir, f.ModTime.UnixNano()); err != nil {
			return fmt.Errorf("inserting finding %q: %w", f.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing scan %s: %w", scan.ID, err)
	}

	return nil
}

// Latest returns the most recent scan, or nil if none was recorded.
func (s *Store) Latest(ctx context.Context) (*Scan, error) {
	scans, err := s.List(ctx, 1)
	if err != nil {
		return nil, err
	}

	if len(scans) == 0 {
		return nil, nil //nolint:nilnil // No previous scan is not an error
	}

	return &scans[0], nil
}

// List returns up to limit scans, newest first. A limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Scan, error) {
	query := `SELECT id, started_at, roots, threshold, total_bytes, findings, warnings
              FROM scans ORDER BY started_at DESC, id DESC`
	args := []any{}

	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing scans: %w", err)
	}
	defer rows.Close()

	var scans []Scan

	for rows.Next() {
		var (
			scan      Scan
			startedAt int64
			roots     string
		)

		if err := rows.Scan(&scan.ID, &startedAt, &roots, &scan.Threshold,
			&scan.TotalBytes, &scan.Findings, &scan.Warnings); err != nil {
			return nil, fmt.Errorf("reading scan: %w", err)
		}

		scan.StartedAt = time.Unix(0, startedAt)
		if roots != "" {
			scan.Roots = strings.Split(roots, "\n")
		}

		scans = append(scans, scan)
	}

	return scans, rows.Err()
}

// Findings returns the findings of a scan keyed by path.
func (s *Store) Findings(ctx context.Context, scanID string) (map[string]Finding, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, size, is_dir, modified_at FROM findings WHERE scan_id = ?`, scanID)
	if err != nil {
		return nil, fmt.Errorf("listing findings of %s: %w", scanID, err)
	}
	defer rows.Close()

	findings := make(map[string]Finding)

	for rows.Next() {
		var (
			f       Finding
			modTime int64
		)

		if err := rows.Scan(&f.Path, &f.Size, &f.Dir, &modTime); err != nil {
			return nil, fmt.Errorf("reading finding: %w", err)
		}

		f.ModTime = time.Unix(0, modTime)
		findings[f.Path] = f
	}

	return findings, rows.Err()
}

// Previous returns the findings of the latest scan, or nil if there is none.
func (s *Store) Previous(ctx context.Context) (map[string]Finding, error) {
	latest, err := s.Latest(ctx)
	if err != nil || latest == nil {
		return nil, err
	}

	return s.Findings(ctx, latest.ID)
}

// Prune deletes all but the newest keep scans and returns how many were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, errors.New("keep must be positive")
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM scans WHERE id NOT IN (
             SELECT id FROM scans ORDER BY started_at DESC, id DESC LIMIT ?
         )`, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning scans: %w", err)
	}

	return res.RowsAffected()
}
