// Package store persists apply history to a SQLite database under
// hunkwright's data directory, so "patchctl history" and "patchctl undo"
// can look back past the current process.
package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hunkwright/hunkwright/internal/config"
	"github.com/hunkwright/hunkwright/internal/domain"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database for apply-session persistence.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the SQLite database in hunkwright's data
// directory.
func OpenStore() (*Store, error) {
	dir, err := config.DataDir()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	dsn := filepath.Join(dir, "hunkwright.db")

	db, err := sql.Open("sqlite", dsn+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewFromDB creates a Store from an existing *sql.DB and runs migrations.
// Useful for testing with an in-memory database.
func NewFromDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS apply_sessions (
			id TEXT PRIMARY KEY,
			target_path TEXT NOT NULL,
			diff_source TEXT NOT NULL DEFAULT '',
			strict INTEGER NOT NULL DEFAULT 1,
			skipped_hunks TEXT NOT NULL DEFAULT '',
			backup_requested INTEGER NOT NULL DEFAULT 0,
			checkpoint_path TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '',
			added_count INTEGER NOT NULL DEFAULT 0,
			removed_count INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);
		CREATE INDEX IF NOT EXISTS idx_apply_sessions_target ON apply_sessions(target_path);
		CREATE INDEX IF NOT EXISTS idx_apply_sessions_created ON apply_sessions(created_at DESC);
	`)
	return err
}

// ApplyRecord is one row of apply history: an domain.ApplySession plus the
// added/removed counts the caller passed to RecordApply.
type ApplyRecord struct {
	domain.ApplySession
	AddedCount   int
	RemovedCount int
	CreatedAt    time.Time
}

// RecordApply inserts one apply-history row.
func (s *Store) RecordApply(sess domain.ApplySession, addedCount, removedCount int) error {
	skipped := make([]string, len(sess.Skipped))
	for i, idx := range sess.Skipped {
		skipped[i] = strconv.Itoa(idx)
	}
	_, err := s.db.Exec(
		`INSERT INTO apply_sessions
		 (id, target_path, diff_source, strict, skipped_hunks, backup_requested, checkpoint_path, tags, added_count, removed_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime(?))`,
		sess.ID, sess.TargetPath, sess.DiffSource, boolToInt(sess.Strict),
		strings.Join(skipped, ","), boolToInt(sess.BackupRequested), sess.CheckpointPath, sess.Tags,
		addedCount, removedCount,
		time.Unix(sess.CreatedAtUnix, 0).UTC().Format(time.RFC3339),
	)
	return err
}

// GetApplyRecord retrieves one apply-history row by its full session ID.
func (s *Store) GetApplyRecord(id string) (*ApplyRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, target_path, diff_source, strict, skipped_hunks, backup_requested, checkpoint_path, tags, added_count, removed_count, created_at
		 FROM apply_sessions WHERE id = ?`, id)
	return scanApplyRecord(row)
}

// FindApplyRecordByPrefix matches an apply-history row by ID prefix,
// preferring the most recent match.
func (s *Store) FindApplyRecordByPrefix(prefix string) (*ApplyRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, target_path, diff_source, strict, skipped_hunks, backup_requested, checkpoint_path, tags, added_count, removed_count, created_at
		 FROM apply_sessions WHERE id LIKE ? || '%' ORDER BY created_at DESC LIMIT 1`, prefix)
	return scanApplyRecord(row)
}

// ListApplyRecords returns the most recent apply-history rows, optionally
// filtered to one target path (pass "" for all paths), up to limit.
func (s *Store) ListApplyRecords(targetPath string, limit int) ([]ApplyRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows *sql.Rows
	var err error
	if targetPath == "" {
		rows, err = s.db.Query(
			`SELECT id, target_path, diff_source, strict, skipped_hunks, backup_requested, checkpoint_path, tags, added_count, removed_count, created_at
			 FROM apply_sessions ORDER BY created_at DESC LIMIT ?`, limit)
	} else {
		rows, err = s.db.Query(
			`SELECT id, target_path, diff_source, strict, skipped_hunks, backup_requested, checkpoint_path, tags, added_count, removed_count, created_at
			 FROM apply_sessions WHERE target_path = ? ORDER BY created_at DESC LIMIT ?`, targetPath, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ApplyRecord
	for rows.Next() {
		rec, err := scanApplyRecordRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// DeleteApplyRecord removes one apply-history row.
func (s *Store) DeleteApplyRecord(id string) error {
	_, err := s.db.Exec(`DELETE FROM apply_sessions WHERE id = ?`, id)
	return err
}

// PruneOlderThan deletes every row beyond the most recent keep rows for
// targetPath and returns the checkpoint paths of the rows it removed, so the
// caller can clean up the matching backup directories.
func (s *Store) PruneOlderThan(targetPath string, keep int) ([]string, error) {
	if keep < 0 {
		keep = 0
	}
	rows, err := s.db.Query(
		`SELECT id, checkpoint_path FROM apply_sessions
		 WHERE target_path = ?
		 ORDER BY created_at DESC
		 LIMIT -1 OFFSET ?`, targetPath, keep)
	if err != nil {
		return nil, err
	}

	type stale struct{ id, checkpointPath string }
	var victims []stale
	for rows.Next() {
		var v stale
		if err := rows.Scan(&v.id, &v.checkpointPath); err != nil {
			rows.Close()
			return nil, err
		}
		victims = append(victims, v)
	}
	rows.Close()

	checkpoints := make([]string, 0, len(victims))
	for _, v := range victims {
		if _, err := s.db.Exec(`DELETE FROM apply_sessions WHERE id = ?`, v.id); err != nil {
			return checkpoints, err
		}
		checkpoints = append(checkpoints, v.checkpointPath)
	}
	return checkpoints, nil
}

// FormatRecordAge renders rec's CreatedAt as a human-friendly relative
// timestamp ("3 minutes ago") for "patchctl history" output.
func FormatRecordAge(rec ApplyRecord) string {
	return humanize.Time(rec.CreatedAt)
}

func scanApplyRecord(row *sql.Row) (*ApplyRecord, error) {
	var rec ApplyRecord
	var strictInt, backupInt int
	var skippedRaw, createdStr string
	if err := row.Scan(&rec.ID, &rec.TargetPath, &rec.DiffSource, &strictInt, &skippedRaw, &backupInt,
		&rec.CheckpointPath, &rec.Tags, &rec.AddedCount, &rec.RemovedCount, &createdStr); err != nil {
		return nil, err
	}
	fillApplyRecord(&rec, strictInt, backupInt, skippedRaw, createdStr)
	return &rec, nil
}

func scanApplyRecordRows(rows *sql.Rows) (*ApplyRecord, error) {
	var rec ApplyRecord
	var strictInt, backupInt int
	var skippedRaw, createdStr string
	if err := rows.Scan(&rec.ID, &rec.TargetPath, &rec.DiffSource, &strictInt, &skippedRaw, &backupInt,
		&rec.CheckpointPath, &rec.Tags, &rec.AddedCount, &rec.RemovedCount, &createdStr); err != nil {
		return nil, err
	}
	fillApplyRecord(&rec, strictInt, backupInt, skippedRaw, createdStr)
	return &rec, nil
}

func fillApplyRecord(rec *ApplyRecord, strictInt, backupInt int, skippedRaw, createdStr string) {
	rec.Strict = strictInt != 0
	rec.BackupRequested = backupInt != 0
	if skippedRaw != "" {
		for _, part := range strings.Split(skippedRaw, ",") {
			if n, err := strconv.Atoi(part); err == nil {
				rec.Skipped = append(rec.Skipped, n)
			}
		}
	}
	if t, err := parseAnyTime(createdStr); err == nil {
		rec.CreatedAt = t
		rec.CreatedAtUnix = t.Unix()
	}
}

func parseAnyTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
