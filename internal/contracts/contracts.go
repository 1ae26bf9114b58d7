// Package contracts holds the value types, invariant constants, and error
// taxonomy shared by the parser, applier, and navigation packages. Nothing
// in this package touches a file, a clock, or a goroutine.
package contracts

import "regexp"

// IndexBase is the base all line indices in this engine are expressed in.
// Every index the engine hands back to a caller is 0-based, even though the
// unified-diff wire format is 1-based.
const IndexBase = 0

// NewlinePolicy documents the line-ending convention the engine assumes for
// its own output. Callers normalize input before calling into the engine
// (see internal/fsapply).
const NewlinePolicy = "LF"

// SkipPrefixes lists line prefixes the parser advances past without
// interpreting. File-header lines ("--- ", "+++ ", "*** ") are handled
// structurally by the parser and are deliberately not in this list.
var SkipPrefixes = []string{
	"diff --git ",
	"index ",
	"new file mode ",
	"deleted file mode ",
	"rename from ",
	"rename to ",
	"similarity index ",
	"Binary files ",
}

// NoNewlineMarker is the line unified diffs emit to record that the
// preceding body line had no trailing newline in the original file.
const NoNewlineMarker = `\ No newline at end of file`

// UnifiedHunkHeaderRegex recognizes "@@ -l,s +l,s @@" headers. Either length
// group may be omitted (meaning a length of 1).
var UnifiedHunkHeaderRegex = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@.*$`)

// ContextHunkHeaderRegex recognizes classic context-diff hunk headers.
var ContextHunkHeaderRegex = regexp.MustCompile(`^\*\*\* (\d+),(\d+) \*\*\*\*$`)

// LineKind tags a HunkLine as context, addition, or removal.
type LineKind byte

const (
	// KindContext lines must already be present in the working copy.
	KindContext LineKind = ' '
	// KindAdd lines are inserted by the applier.
	KindAdd LineKind = '+'
	// KindRemove lines must be present and are deleted by the applier.
	KindRemove LineKind = '-'
)

// HunkLine is a single line inside a hunk body.
//
// A KindContext line with empty Text is blank-tolerant: it matches a run of
// zero or more blank lines in the working copy (see applier.findAnchor).
type HunkLine struct {
	Kind LineKind
	Text string // never includes a trailing newline
}

// IsConsuming reports whether this line must already exist in the working
// copy (context or removal), as opposed to a pure insertion.
func (h HunkLine) IsConsuming() bool {
	return h.Kind == KindContext || h.Kind == KindRemove
}

// Hunk is a single "@@ ... @@" region: header-reported spans plus its body.
//
// Header counts are recorded as read but are advisory — the applier treats
// the body as ground truth (spec open question, resolved in DESIGN.md).
type Hunk struct {
	OldStart int // 0-based, converted from the header's 1-based value
	OldLen   int
	NewStart int
	NewLen   int
	Lines    []HunkLine
}

// ConsumingLines returns the subsequence of Lines that must already be
// present in the working copy (kind ' ' or '-').
func (h Hunk) ConsumingLines() []HunkLine {
	out := make([]HunkLine, 0, len(h.Lines))
	for _, l := range h.Lines {
		if l.IsConsuming() {
			out = append(out, l)
		}
	}
	return out
}

// MinNeeded returns the minimum number of working-copy lines a valid anchor
// must have room for: removals plus non-blank context lines. Blank-tolerant
// context lines (kind ' ', empty text) can match zero lines, so they don't
// count.
func (h Hunk) MinNeeded() int {
	n := 0
	for _, l := range h.ConsumingLines() {
		if l.Kind == KindRemove || (l.Kind == KindContext && l.Text != "") {
			n++
		}
	}
	return n
}

// FilePatch is the set of hunks that apply to one file, in source order.
type FilePatch struct {
	OldPath string // cleaned: no a/ b/ prefix, no trailing timestamp
	NewPath string
	Hunks   []Hunk

	// NoNewlineOld/NoNewlineNew record whether a "\ No newline at end of
	// file" marker was seen for the corresponding side of this file's diff.
	NoNewlineOld bool
	NoNewlineNew bool
}

// Origin records where an output line came from: either a specific 0-based
// index into the original text, or Inserted, meaning the line is new. This
// is a tagged union rather than a nullable int (spec §9 design note) so a
// caller cannot read OriginalIndex without checking IsInserted first.
type Origin struct {
	originalIndex int
	inserted      bool
}

// FromOriginal builds an Origin pointing at a 0-based index in the original
// text.
func FromOriginal(index int) Origin {
	return Origin{originalIndex: index}
}

// Inserted is the sentinel Origin for a line that did not exist before the
// patch was applied.
var Inserted = Origin{inserted: true}

// IsInserted reports whether this line was newly added.
func (o Origin) IsInserted() bool {
	return o.inserted
}

// OriginalIndex returns the 0-based index into the original text that
// produced this line. It is only meaningful when IsInserted is false; it
// returns (0, false) otherwise.
func (o Origin) OriginalIndex() (int, bool) {
	if o.inserted {
		return 0, false
	}
	return o.originalIndex, true
}

// ApplyResult is the output of applying one FilePatch to one original text.
type ApplyResult struct {
	Text                   string
	AddedLines             []int    // sorted, unique, 0-based indices into Text
	RemovedOriginalIndices []int    // sorted, unique, 0-based indices into the original
	OriginMap              []Origin // len(OriginMap) == number of lines in Text
	SkippedHunks           []int    // hunk indices skipped under strict == false
}
