package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/0x6d61/pshelper/internal/session"
)

// SQLiteStore implements Store using SQLite via modernc.org/sqlite (pure Go).
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		root          TEXT PRIMARY KEY,
		collection    TEXT NOT NULL,
		session_id    INTEGER NOT NULL,
		folder        TEXT NOT NULL,
		name          TEXT DEFAULT '',
		status        INTEGER NOT NULL DEFAULT 0,
		initialized   INTEGER NOT NULL DEFAULT 0,
		synchronized  INTEGER NOT NULL DEFAULT 0,
		ignored       INTEGER NOT NULL DEFAULT 0,
		snapshot_json TEXT NOT NULL,
		updated_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_collection ON sessions(collection);
	CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);

	CREATE TABLE IF NOT EXISTS scans (
		id          TEXT PRIMARY KEY,
		root        TEXT NOT NULL,
		started_at  DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		sessions    INTEGER DEFAULT 0,
		pending     INTEGER DEFAULT 0,
		converted   INTEGER DEFAULT 0,
		resynced    INTEGER DEFAULT 0,
		errors      INTEGER DEFAULT 0
	);
`

// Open opens (creating if needed) the catalog at dbPath. Use ":memory:" for
// testing.
func Open(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("catalog: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("catalog: open database: %w", err)
	}
	// Every pooled connection to ":memory:" would see its own database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Upsert stores snap, replacing any earlier snapshot of the same root.
func (s *SQLiteStore) Upsert(ctx context.Context, snap session.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("catalog: marshal snapshot: %w", err)
	}

	query := `
		INSERT INTO sessions (root, collection, session_id, folder, name, status,
			initialized, synchronized, ignored, snapshot_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(root) DO UPDATE SET
			collection    = excluded.collection,
			session_id    = excluded.session_id,
			folder        = excluded.folder,
			name          = excluded.name,
			status        = excluded.status,
			initialized   = excluded.initialized,
			synchronized  = excluded.synchronized,
			ignored       = excluded.ignored,
			snapshot_json = excluded.snapshot_json,
			updated_at    = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		snap.Root,
		filepath.Dir(snap.Root),
		int64(snap.ID),
		snap.Folder(),
		snap.Name,
		int(snap.Status),
		boolInt(snap.Initialized),
		boolInt(snap.Synchronized),
		boolInt(snap.Ignored),
		string(data),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("catalog: upsert %s: %w", snap.Root, err)
	}
	return nil
}

// Get returns the snapshot stored for root, or (nil, nil) if there is none.
func (s *SQLiteStore) Get(ctx context.Context, root string) (*session.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT snapshot_json FROM sessions WHERE root = ?`, root)

	var data string
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("catalog: scan row: %w", err)
	}
	snap, err := decodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func decodeSnapshot(data string) (session.Snapshot, error) {
	var snap session.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return snap, fmt.Errorf("catalog: unmarshal snapshot: %w", err)
	}
	return snap, nil
}

// List returns the snapshots matching q, sorted by q.SortBy.
func (s *SQLiteStore) List(ctx context.Context, q Query) ([]session.Snapshot, error) {
	var (
		where []string
		args  []any
	)
	if q.Collection != "" {
		where = append(where, "collection = ?")
		args = append(args, filepath.Clean(q.Collection))
	}
	if q.Status != nil {
		where = append(where, "status = ?")
		args = append(args, int(*q.Status))
	}
	if q.MinStatus != nil {
		where = append(where, "status >= ?")
		args = append(args, int(*q.MinStatus))
	}
	if q.Unsynced {
		where = append(where, "initialized = 1 AND synchronized = 0")
	}
	if !q.IncludeIgnored {
		where = append(where, "ignored = 0")
	}

	query := `SELECT snapshot_json FROM sessions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY root"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: list sessions: %w", err)
	}
	defer rows.Close()

	var snaps []session.Snapshot
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("catalog: scan snapshot row: %w", err)
		}
		snap, err := decodeSnapshot(data)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate rows: %w", err)
	}

	session.SortSnapshots(snaps, q.SortBy)
	if q.Limit > 0 && len(snaps) > q.Limit {
		snaps = snaps[:q.Limit]
	}
	return snaps, nil
}

// Delete removes the snapshot of root.
func (s *SQLiteStore) Delete(ctx context.Context, root string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE root = ?`, root); err != nil {
		return fmt.Errorf("catalog: delete %s: %w", root, err)
	}
	return nil
}

// Prune removes the snapshots of collection whose root is not in keep and
// returns how many were removed.
func (s *SQLiteStore) Prune(ctx context.Context, collection string, keep []string) (int64, error) {
	query := `DELETE FROM sessions WHERE collection = ?`
	args := []any{filepath.Clean(collection)}
	if len(keep) > 0 {
		query += ` AND root NOT IN (?` + strings.Repeat(", ?", len(keep)-1) + `)`
		for _, k := range keep {
			args = append(args, k)
		}
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("catalog: prune %s: %w", collection, err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("catalog: rows affected: %w", err)
	}
	return deleted, nil
}

// RecordScan stores a scan run. An empty ID is replaced by a new UUID.
func (s *SQLiteStore) RecordScan(ctx context.Context, rec *ScanRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	query := `
		INSERT INTO scans (id, root, started_at, finished_at, sessions, pending, converted, resynced, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			sessions    = excluded.sessions,
			pending     = excluded.pending,
			converted   = excluded.converted,
			resynced    = excluded.resynced,
			errors      = excluded.errors
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.Root,
		rec.StartedAt.UTC().Format(time.RFC3339),
		rec.FinishedAt.UTC().Format(time.RFC3339),
		rec.Sessions,
		rec.Pending,
		rec.Converted,
		rec.Resynced,
		rec.Errors,
	)
	if err != nil {
		return fmt.Errorf("catalog: record scan: %w", err)
	}
	return nil
}

// Scans returns the most recent scan runs, newest first. limit <= 0 returns
// all of them.
func (s *SQLiteStore) Scans(ctx context.Context, limit int) ([]ScanRecord, error) {
	query := `SELECT id, root, started_at, finished_at, sessions, pending, converted, resynced, errors
		FROM scans ORDER BY started_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: list scans: %w", err)
	}
	defer rows.Close()

	var out []ScanRecord
	for rows.Next() {
		var (
			rec               ScanRecord
			started, finished string
		)
		if err := rows.Scan(&rec.ID, &rec.Root, &started, &finished,
			&rec.Sessions, &rec.Pending, &rec.Converted, &rec.Resynced, &rec.Errors); err != nil {
			return nil, fmt.Errorf("catalog: scan scans row: %w", err)
		}
		if rec.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if rec.FinishedAt, err = parseTime(finished); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate rows: %w", err)
	}
	return out, nil
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		// Fall back to SQLite default format if RFC3339 fails.
		t, err = time.Parse("2006-01-02 15:04:05", v)
		if err != nil {
			return time.Time{}, fmt.Errorf("catalog: parse time %q: %w", v, err)
		}
	}
	return t, nil
}

// CleanupScans removes scan runs that started more than maxAge ago and
// returns how many were removed.
func (s *SQLiteStore) CleanupScans(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge).Format(time.RFC3339)

	result, err := s.db.ExecContext(ctx, `DELETE FROM scans WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("catalog: cleanup scans: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("catalog: rows affected: %w", err)
	}
	return deleted, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
