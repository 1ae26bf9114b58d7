// Package checkpoint snapshots a file's bytes before internal/fsapply
// overwrites it with an applied patch, and restores them on undo. The
// engine itself has no filesystem access (see internal/applier); a
// checkpoint is the caller layer's equivalent of the original's git stash,
// rebuilt as a plain-file backup since there is no working tree to stash.
package checkpoint

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hunkwright/hunkwright/internal/domain"
)

// Checkpoint records where a pre-apply copy of one file was saved.
type Checkpoint struct {
	SessionID  string
	TargetPath string // absolute path to the file that was backed up
	BackupPath string // absolute path to the stored copy
	Existed    bool   // false if TargetPath did not exist before the apply (pure creation)
}

// Create copies targetPath's current bytes into dir/<sessionID>/<basename>
// and returns a Checkpoint describing the backup. If targetPath does not
// exist, Existed is false and no backup file is written — restoring such a
// checkpoint means removing the file the apply created.
func Create(dir, sessionID, targetPath string) (Checkpoint, error) {
	abs, err := filepath.Abs(targetPath)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("checkpoint: resolving %s: %w", targetPath, err)
	}

	cp := Checkpoint{SessionID: sessionID, TargetPath: abs}

	src, err := os.Open(abs)
	if os.IsNotExist(err) {
		return cp, nil
	}
	if err != nil {
		return Checkpoint{}, fmt.Errorf("checkpoint: opening %s: %w", abs, err)
	}
	defer src.Close()

	sessionDir := filepath.Join(dir, sessionID)
	if err := os.MkdirAll(sessionDir, 0o700); err != nil {
		return Checkpoint{}, fmt.Errorf("checkpoint: creating %s: %w", sessionDir, err)
	}

	backupPath := filepath.Join(sessionDir, filepath.Base(abs))
	dst, err := os.OpenFile(backupPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("checkpoint: creating backup: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return Checkpoint{}, fmt.Errorf("checkpoint: copying backup: %w", err)
	}

	cp.BackupPath = backupPath
	cp.Existed = true
	return cp, nil
}

// Restore reinstates the state cp recorded: copies the backup back over
// TargetPath, or removes TargetPath if it did not exist pre-apply.
func (cp Checkpoint) Restore() error {
	if !cp.Existed {
		err := os.Remove(cp.TargetPath)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("checkpoint: removing %s: %w", cp.TargetPath, err)
		}
		return nil
	}

	src, err := os.Open(cp.BackupPath)
	if err != nil {
		return fmt.Errorf("checkpoint: opening backup %s: %w", cp.BackupPath, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(cp.TargetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("checkpoint: opening %s: %w", cp.TargetPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("checkpoint: restoring %s: %w", cp.TargetPath, err)
	}
	return nil
}

// NewSessionID is a thin alias over domain.NewUUID so callers that only
// need a checkpoint directory name don't have to import domain's apply
// session type.
func NewSessionID() string {
	return domain.NewUUID()
}

// Prune removes the backup directory for sessionID, once its ApplySession
// has aged out of history.Limit.
func Prune(dir, sessionID string) error {
	sessionDir := filepath.Join(dir, sessionID)
	err := os.RemoveAll(sessionDir)
	if err != nil {
		return fmt.Errorf("checkpoint: pruning %s: %w", sessionDir, err)
	}
	return nil
}
