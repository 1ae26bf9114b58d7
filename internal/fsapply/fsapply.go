// Package fsapply is the thin caller-side glue between the pure engine
// packages (diffparser, applier) and the filesystem: it reads a target
// file, normalizes its line endings, calls applier.Apply, optionally takes
// a checkpoint.Checkpoint before writing, and writes the result; BuildSession
// turns the outcome into a domain.ApplySession that the caller records in
// internal/store. This is where contracts.IOErrorCompat is
// actually constructed — the engine packages themselves never touch disk.
package fsapply

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	dmp "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/hunkwright/hunkwright/internal/applier"
	"github.com/hunkwright/hunkwright/internal/checkpoint"
	"github.com/hunkwright/hunkwright/internal/contracts"
	"github.com/hunkwright/hunkwright/internal/domain"
)

// Options configures one apply-to-file call.
type Options struct {
	Strict        bool
	FuzzyContext  int
	Backup        bool   // take a checkpoint before writing
	CheckpointDir string // required when Backup is true
	SessionID     string // required when Backup is true; identifies the checkpoint
	DryRun        bool   // never write to disk (patchctl preview)
	Diagnose      bool   // attach a nearest-miss explanation to CannotLocate errors
}

// Outcome is the result of one fsapply.ApplyToFile call: the engine's
// ApplyResult plus the checkpoint taken (if any) and whether anything was
// written to disk. BackupRequested is recorded separately from the
// checkpoint's BackupPath: a backup of a target that did not exist yet has
// no backup file at all, and an undo of that session means deleting the
// created file rather than copying bytes back.
type Outcome struct {
	Result          contracts.ApplyResult
	Checkpoint      checkpoint.Checkpoint
	BackupRequested bool
	Wrote           bool
}

// ReadNormalized reads path and normalizes CRLF/CR line endings to LF, per
// the engine's input assumption (spec §6). It requires the file to exist;
// ApplyToFile handles the created-by-patch case itself.
func ReadNormalized(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", &contracts.IOErrorCompat{Path: path, OSMessage: err.Error()}
	}
	return NormalizeNewlines(string(raw)), nil
}

// NormalizeNewlines replaces CRLF and lone CR with LF.
func NormalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s
}

// ApplyToFile reads targetPath, applies patch to its contents, and — unless
// opts.DryRun is set — writes the result back. It records no history; see
// BuildSession.
// A missing target is treated as empty original text, so a pure-insertion
// patch can create the file. It never writes to disk when applier.Apply
// returns an error.
func ApplyToFile(targetPath string, patch contracts.FilePatch, opts Options) (Outcome, error) {
	raw, err := os.ReadFile(targetPath)
	if err != nil && !os.IsNotExist(err) {
		return Outcome{}, &contracts.IOErrorCompat{Path: targetPath, OSMessage: err.Error()}
	}
	original := NormalizeNewlines(string(raw))

	result, err := applier.Apply(original, patch, applier.Options{
		Strict:       opts.Strict,
		FuzzyContext: opts.FuzzyContext,
	})
	if err != nil {
		if opts.Diagnose {
			if ae, ok := err.(*contracts.ApplyError); ok && ae.Reason == contracts.CannotLocate {
				ae.Detail = nearestMissDetail(original, patch, ae.HunkIndex)
			}
		}
		return Outcome{}, err
	}

	var out Outcome
	out.Result = result

	if opts.DryRun {
		return out, nil
	}

	if opts.Backup {
		cp, cpErr := checkpoint.Create(opts.CheckpointDir, opts.SessionID, targetPath)
		if cpErr != nil {
			return Outcome{}, cpErr
		}
		out.Checkpoint = cp
		out.BackupRequested = true
	}

	if err := writeFile(targetPath, result.Text); err != nil {
		return Outcome{}, err
	}
	out.Wrote = true
	return out, nil
}

// writeFile writes data to path, creating parent directories as needed, and
// wraps any OS error in contracts.IOErrorCompat.
func writeFile(path, data string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &contracts.IOErrorCompat{Path: path, OSMessage: err.Error()}
		}
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return &contracts.IOErrorCompat{Path: path, OSMessage: err.Error()}
	}
	return nil
}

// BuildSession assembles a domain.ApplySession describing one ApplyToFile
// call, for the caller to pass to store.RecordApply. BackupRequested and
// CheckpointPath are carried separately: a requested backup of a target
// that did not exist yet leaves CheckpointPath empty but still undoable.
func BuildSession(targetPath, diffSource string, strict bool, createdAtUnix int64, out Outcome) domain.ApplySession {
	sess := domain.NewApplySession(targetPath, diffSource, strict, createdAtUnix)
	sess.Skipped = out.Result.SkippedHunks
	sess.BackupRequested = out.BackupRequested
	sess.CheckpointPath = out.Checkpoint.BackupPath
	return sess
}

// nearestMissDetail builds a human-readable explanation of why a hunk could
// not be anchored: it diffs the hunk's expected context against the line at
// the header-derived guess index and reports a similarity ratio. This is a
// diagnostic string only — it never changes which anchor is chosen or
// whether the apply succeeds (spec §4.3 expansion).
func nearestMissDetail(original string, patch contracts.FilePatch, hunkIndex int) string {
	if hunkIndex < 0 || hunkIndex >= len(patch.Hunks) {
		return ""
	}
	hunk := patch.Hunks[hunkIndex]
	lines := strings.Split(strings.TrimSuffix(original, "\n"), "\n")
	guess := hunk.OldStart
	if guess < 0 {
		guess = 0
	}
	if guess >= len(lines) {
		guess = len(lines) - 1
	}
	if guess < 0 {
		return "target file is empty"
	}

	var expected bytes.Buffer
	for _, l := range hunk.ConsumingLines() {
		expected.WriteString(l.Text)
		expected.WriteByte('\n')
	}

	differ := dmp.New()
	diffs := differ.DiffMain(expected.String(), lines[guess]+"\n", false)
	ratio := similarityRatio(diffs)
	return fmt.Sprintf("nearest line %d is %.0f%% similar to expected context", guess, ratio*100)
}

// similarityRatio reports the fraction of all characters in the diff (equal,
// inserted, and deleted runs together) that fall in equal runs.
func similarityRatio(diffs []dmp.Diff) float64 {
	var equalChars, totalChars int
	for _, d := range diffs {
		n := len([]rune(d.Text))
		if d.Type == dmp.DiffEqual {
			equalChars += n
		}
		totalChars += n
	}
	if totalChars == 0 {
		return 1
	}
	return float64(equalChars) / float64(totalChars)
}
