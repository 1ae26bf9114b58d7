package store

import (
	"database/sql"
	"testing"

	"github.com/hunkwright/hunkwright/internal/domain"

	_ "modernc.org/sqlite"
)

// testStore returns a Store backed by an in-memory SQLite database.
func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	s, err := NewFromDB(db)
	if err != nil {
		db.Close()
		t.Fatalf("new store from db: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newSession(targetPath string, createdAtUnix int64) domain.ApplySession {
	sess := domain.NewApplySession(targetPath, "patch.diff", true, createdAtUnix)
	sess.BackupRequested = true
	sess.CheckpointPath = "/tmp/checkpoints/" + sess.ID
	sess.Tags = "manual,cli"
	return sess
}

func TestRecordAndGetApplyRecord(t *testing.T) {
	s := testStore(t)
	sess := newSession("main.go", 1000)
	sess.Skipped = []int{2, 5}

	if err := s.RecordApply(sess, 3, 1); err != nil {
		t.Fatalf("RecordApply: %v", err)
	}

	rec, err := s.GetApplyRecord(sess.ID)
	if err != nil {
		t.Fatalf("GetApplyRecord: %v", err)
	}
	if rec.TargetPath != "main.go" {
		t.Errorf("TargetPath = %q, want main.go", rec.TargetPath)
	}
	if !rec.Strict {
		t.Error("expected Strict true")
	}
	if rec.AddedCount != 3 || rec.RemovedCount != 1 {
		t.Errorf("counts = (%d,%d), want (3,1)", rec.AddedCount, rec.RemovedCount)
	}
	if len(rec.Skipped) != 2 || rec.Skipped[0] != 2 || rec.Skipped[1] != 5 {
		t.Errorf("Skipped = %v, want [2 5]", rec.Skipped)
	}
	if rec.CheckpointPath != sess.CheckpointPath {
		t.Errorf("CheckpointPath = %q, want %q", rec.CheckpointPath, sess.CheckpointPath)
	}
	if !rec.BackupRequested {
		t.Error("expected BackupRequested true")
	}
}

// A backed-up apply that created the target persists BackupRequested with
// no checkpoint path; undo relies on telling the two apart.
func TestRecordApply_backupOfCreatedFile(t *testing.T) {
	s := testStore(t)
	sess := domain.NewApplySession("new.go", "patch.diff", true, 1000)
	sess.BackupRequested = true

	if err := s.RecordApply(sess, 2, 0); err != nil {
		t.Fatalf("RecordApply: %v", err)
	}
	rec, err := s.GetApplyRecord(sess.ID)
	if err != nil {
		t.Fatalf("GetApplyRecord: %v", err)
	}
	if !rec.BackupRequested {
		t.Error("expected BackupRequested true")
	}
	if rec.CheckpointPath != "" {
		t.Errorf("CheckpointPath = %q, want empty", rec.CheckpointPath)
	}
}

func TestFindApplyRecordByPrefix(t *testing.T) {
	s := testStore(t)
	sess := newSession("a.go", 1000)

	if err := s.RecordApply(sess, 1, 0); err != nil {
		t.Fatalf("RecordApply: %v", err)
	}

	rec, err := s.FindApplyRecordByPrefix(sess.ID[:8])
	if err != nil {
		t.Fatalf("FindApplyRecordByPrefix: %v", err)
	}
	if rec.ID != sess.ID {
		t.Errorf("ID = %q, want %q", rec.ID, sess.ID)
	}
}

func TestFindApplyRecordByPrefix_noMatch(t *testing.T) {
	s := testStore(t)
	if _, err := s.FindApplyRecordByPrefix("zzzzzzzz"); err == nil {
		t.Fatal("expected error for unmatched prefix")
	}
}

func TestListApplyRecords_orderedMostRecentFirst(t *testing.T) {
	s := testStore(t)
	sess1 := newSession("a.go", 1000)
	sess2 := newSession("a.go", 2000)
	sess3 := newSession("b.go", 3000)

	for _, sess := range []domain.ApplySession{sess1, sess2, sess3} {
		if err := s.RecordApply(sess, 1, 0); err != nil {
			t.Fatalf("RecordApply: %v", err)
		}
	}

	all, err := s.ListApplyRecords("", 10)
	if err != nil {
		t.Fatalf("ListApplyRecords: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
	if all[0].ID != sess3.ID {
		t.Errorf("all[0].ID = %q, want most recent %q", all[0].ID, sess3.ID)
	}

	onlyA, err := s.ListApplyRecords("a.go", 10)
	if err != nil {
		t.Fatalf("ListApplyRecords(a.go): %v", err)
	}
	if len(onlyA) != 2 {
		t.Fatalf("len(onlyA) = %d, want 2", len(onlyA))
	}
	if onlyA[0].ID != sess2.ID {
		t.Errorf("onlyA[0].ID = %q, want most recent for a.go %q", onlyA[0].ID, sess2.ID)
	}
}

func TestListApplyRecords_limit(t *testing.T) {
	s := testStore(t)
	for i := 0; i < 5; i++ {
		sess := newSession("a.go", int64(1000+i))
		if err := s.RecordApply(sess, 1, 0); err != nil {
			t.Fatalf("RecordApply: %v", err)
		}
	}

	limited, err := s.ListApplyRecords("", 2)
	if err != nil {
		t.Fatalf("ListApplyRecords: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("len(limited) = %d, want 2", len(limited))
	}
}

func TestDeleteApplyRecord(t *testing.T) {
	s := testStore(t)
	sess := newSession("a.go", 1000)
	if err := s.RecordApply(sess, 1, 0); err != nil {
		t.Fatalf("RecordApply: %v", err)
	}

	if err := s.DeleteApplyRecord(sess.ID); err != nil {
		t.Fatalf("DeleteApplyRecord: %v", err)
	}
	if _, err := s.GetApplyRecord(sess.ID); err == nil {
		t.Fatal("expected error fetching a deleted record")
	}
}

func TestPruneOlderThan_keepsMostRecentAndReturnsCheckpoints(t *testing.T) {
	s := testStore(t)
	var sessions []domain.ApplySession
	for i := 0; i < 4; i++ {
		sess := newSession("a.go", int64(1000+i))
		sessions = append(sessions, sess)
		if err := s.RecordApply(sess, 1, 0); err != nil {
			t.Fatalf("RecordApply: %v", err)
		}
	}

	pruned, err := s.PruneOlderThan("a.go", 2)
	if err != nil {
		t.Fatalf("PruneOlderThan: %v", err)
	}
	if len(pruned) != 2 {
		t.Fatalf("len(pruned) = %d, want 2", len(pruned))
	}

	remaining, err := s.ListApplyRecords("a.go", 10)
	if err != nil {
		t.Fatalf("ListApplyRecords: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("len(remaining) = %d, want 2", len(remaining))
	}
	// The two oldest sessions (index 0 and 1) should be the ones pruned.
	wantPruned := map[string]bool{sessions[0].CheckpointPath: true, sessions[1].CheckpointPath: true}
	for _, cp := range pruned {
		if !wantPruned[cp] {
			t.Errorf("unexpected pruned checkpoint path %q", cp)
		}
	}
}

func TestPruneOlderThan_noRowsToPrune(t *testing.T) {
	s := testStore(t)
	sess := newSession("a.go", 1000)
	if err := s.RecordApply(sess, 1, 0); err != nil {
		t.Fatalf("RecordApply: %v", err)
	}

	pruned, err := s.PruneOlderThan("a.go", 10)
	if err != nil {
		t.Fatalf("PruneOlderThan: %v", err)
	}
	if len(pruned) != 0 {
		t.Errorf("expected no rows pruned, got %d", len(pruned))
	}
}

func TestFormatRecordAge(t *testing.T) {
	s := testStore(t)
	sess := newSession("a.go", 1000)
	if err := s.RecordApply(sess, 1, 0); err != nil {
		t.Fatalf("RecordApply: %v", err)
	}
	rec, err := s.GetApplyRecord(sess.ID)
	if err != nil {
		t.Fatalf("GetApplyRecord: %v", err)
	}
	if FormatRecordAge(*rec) == "" {
		t.Fatal("expected non-empty humanized age")
	}
}
