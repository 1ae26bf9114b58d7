// Package applier consumes original text and one contracts.FilePatch and
// produces a contracts.ApplyResult, with strict and fuzzy anchoring and a
// line-level origin map. Like diffparser, it performs no I/O.
package applier

import (
	"sort"
	"strings"

	"github.com/hunkwright/hunkwright/internal/contracts"
)

// DefaultFuzzyContext is the default ring-search radius used to recover a
// hunk whose header-derived guess has drifted. It is a tunable constant
// (Options.FuzzyContext), not hardcoded into the search itself, per the
// spec's open question about fuzzy_context width.
const DefaultFuzzyContext = 200

// Options configures a single Apply/Preview call.
type Options struct {
	// Strict controls failure policy, not whether fuzzy search runs: fuzzy
	// search always runs. When Strict is true (patchctl's default, from the
	// strict_default preference; the zero Options is non-strict), failure to
	// anchor any hunk raises an *contracts.ApplyError. When false, the
	// unanchored hunk is skipped (recorded in SkippedHunks) and later
	// hunks still apply using the bias accumulated from successful ones.
	Strict bool
	// FuzzyContext is the ring-search radius. Zero means DefaultFuzzyContext.
	FuzzyContext int
}

// Apply applies patch to original and returns the resulting text plus
// provenance. preview is an alias documenting read-only intent; the engine
// has no side effects in either case.
func Apply(original string, patch contracts.FilePatch, opts Options) (contracts.ApplyResult, error) {
	fuzzy := opts.FuzzyContext
	if fuzzy <= 0 {
		fuzzy = DefaultFuzzyContext
	}

	st := newState(original)

	for hunkIdx, hunk := range patch.Hunks {
		guess := clamp(hunk.OldStart+st.bias(), 0, len(st.lines))
		anchor := st.findAnchor(hunk, guess, fuzzy)

		if anchor < 0 {
			if opts.Strict {
				return contracts.ApplyResult{}, &contracts.ApplyError{HunkIndex: hunkIdx, Reason: contracts.CannotLocate}
			}
			st.skipped = append(st.skipped, hunkIdx)
			continue
		}

		if st.anchorOverlapsInsertion(hunk, anchor) {
			return contracts.ApplyResult{}, &contracts.ApplyError{HunkIndex: hunkIdx, Reason: contracts.Overlap}
		}

		if err := st.applyHunk(hunk, anchor, hunkIdx); err != nil {
			return contracts.ApplyResult{}, err
		}
	}

	return st.result(original, patch), nil
}

// Preview behaves identically to Apply; it exists only to make read-only
// intent explicit at call sites that must not be confused with a write.
func Preview(original string, patch contracts.FilePatch, opts Options) (contracts.ApplyResult, error) {
	return Apply(original, patch, opts)
}

// state holds the mutable working copy during application.
type state struct {
	lines      []string
	origin     []contracts.Origin
	added      []int
	removed    []int
	skipped    []int
	nOriginal  int
	netApplied int // net (insertions - removals) from hunks applied so far
}

func newState(original string) *state {
	lines, _ := splitPreservingNewline(original)
	origin := make([]contracts.Origin, len(lines))
	for i := range lines {
		origin[i] = contracts.FromOriginal(i)
	}
	return &state{lines: lines, origin: origin, nOriginal: len(lines)}
}

// bias recomputes the running guess-index offset from the net change in
// length so far, rather than maintaining an incremental counter (spec §9
// design note: simpler invariant, equivalent outcome).
func (s *state) bias() int {
	return s.netApplied
}

// findAnchor implements the guess -> strict -> fuzzy ring -> global scan
// search order described in spec §4.3.
func (s *state) findAnchor(hunk contracts.Hunk, guess, fuzzyContext int) int {
	consuming := hunk.ConsumingLines()
	if len(consuming) == 0 {
		return clamp(guess, 0, len(s.lines))
	}

	minNeeded := hunk.MinNeeded()
	maxStart := len(s.lines) - minNeeded
	if maxStart < 0 {
		maxStart = 0
	}
	guess = clamp(guess, 0, maxStart)

	if s.hunkMatchesAt(consuming, guess) {
		return guess
	}

	for r := 1; r <= fuzzyContext; r++ {
		if lo := guess - r; lo >= 0 && lo <= maxStart && s.hunkMatchesAt(consuming, lo) {
			return lo
		}
		if hi := guess + r; hi >= 0 && hi <= maxStart && s.hunkMatchesAt(consuming, hi) {
			return hi
		}
	}

	for start := 0; start <= maxStart; start++ {
		if s.hunkMatchesAt(consuming, start) {
			return start
		}
	}

	return -1
}

// hunkMatchesAt walks consuming from start, applying the blank-tolerant
// context rule, and reports whether the whole walk succeeds without
// overrunning s.lines.
func (s *state) hunkMatchesAt(consuming []contracts.HunkLine, start int) bool {
	cursor := start
	for _, line := range consuming {
		if line.Kind == contracts.KindContext && line.Text == "" {
			for cursor < len(s.lines) && s.lines[cursor] == "" {
				cursor++
			}
			continue
		}
		if cursor >= len(s.lines) || s.lines[cursor] != line.Text {
			return false
		}
		cursor++
	}
	return true
}

// anchorOverlapsInsertion reports whether applying hunk at anchor would
// touch a line that a previous hunk in this patch inserted.
func (s *state) anchorOverlapsInsertion(hunk contracts.Hunk, anchor int) bool {
	if anchor < len(s.origin) && s.origin[anchor].IsInserted() {
		return true
	}
	cursor := anchor
	for _, line := range hunk.Lines {
		switch {
		case line.Kind == contracts.KindContext && line.Text == "":
			for cursor < len(s.lines) && s.lines[cursor] == "" {
				if s.origin[cursor].IsInserted() {
					return true
				}
				cursor++
			}
		case line.Kind == contracts.KindContext:
			if cursor < len(s.origin) && s.origin[cursor].IsInserted() {
				return true
			}
			cursor++
		case line.Kind == contracts.KindRemove:
			if cursor < len(s.origin) && s.origin[cursor].IsInserted() {
				return true
			}
			cursor++
		case line.Kind == contracts.KindAdd:
			// insertions never overlap; they don't consume a cursor slot
			// in the pre-hunk working copy.
		}
	}
	return false
}

// applyHunk re-walks hunk from anchor, mutating s.lines/s.origin and
// recording added/removed indices.
func (s *state) applyHunk(hunk contracts.Hunk, anchor int, hunkIdx int) error {
	cursor := anchor
	for _, line := range hunk.Lines {
		switch line.Kind {
		case contracts.KindContext:
			if line.Text == "" {
				for cursor < len(s.lines) && s.lines[cursor] == "" {
					cursor++
				}
				continue
			}
			if cursor >= len(s.lines) || s.lines[cursor] != line.Text {
				return &contracts.ApplyError{HunkIndex: hunkIdx, Reason: contracts.ContextMismatch}
			}
			cursor++

		case contracts.KindRemove:
			if cursor >= len(s.lines) || s.lines[cursor] != line.Text {
				return &contracts.ApplyError{HunkIndex: hunkIdx, Reason: contracts.ContextMismatch}
			}
			if orig, ok := s.origin[cursor].OriginalIndex(); ok {
				s.removed = append(s.removed, orig)
			}
			s.lines = append(s.lines[:cursor], s.lines[cursor+1:]...)
			s.origin = append(s.origin[:cursor], s.origin[cursor+1:]...)
			s.netApplied--

		case contracts.KindAdd:
			s.lines = insertAt(s.lines, cursor, line.Text)
			s.origin = insertOrigin(s.origin, cursor, contracts.Inserted)
			s.added = append(s.added, cursor)
			cursor++
			s.netApplied++
		}
	}
	return nil
}

// result finalizes the working copy into a contracts.ApplyResult,
// reapplying the trailing-newline policy against the original text. A
// no-newline marker in the patch overrides the original's policy for the
// side it describes: NoNewlineNew forces the output to drop its trailing
// LF, and NoNewlineOld alone (old side lacked it, new side carries no
// marker) forces the output to gain one.
func (s *state) result(original string, patch contracts.FilePatch) contracts.ApplyResult {
	added := sortedUnique(s.added)
	removed := sortedUnique(s.removed)

	_, trailingNewline := splitPreservingNewline(original)
	if patch.NoNewlineNew {
		trailingNewline = false
	} else if patch.NoNewlineOld {
		trailingNewline = true
	}
	text := joinWithNewlinePolicy(s.lines, trailingNewline)

	return contracts.ApplyResult{
		Text:                   text,
		AddedLines:             added,
		RemovedOriginalIndices: removed,
		OriginMap:              append([]contracts.Origin(nil), s.origin...),
		SkippedHunks:           append([]int(nil), s.skipped...),
	}
}

// splitPreservingNewline splits text on LF into logical lines, dropping the
// single trailing empty element produced when text ends with LF, and
// reports whether text had a trailing newline.
func splitPreservingNewline(text string) ([]string, bool) {
	if text == "" {
		return []string{}, false
	}
	hadTrailing := strings.HasSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	if hadTrailing {
		lines = lines[:len(lines)-1]
	}
	return lines, hadTrailing
}

// joinWithNewlinePolicy joins lines with LF, appending a trailing LF iff
// trailingNewline is true.
func joinWithNewlinePolicy(lines []string, trailingNewline bool) string {
	text := strings.Join(lines, "\n")
	if trailingNewline && len(lines) > 0 {
		text += "\n"
	}
	return text
}

func insertAt(lines []string, idx int, text string) []string {
	lines = append(lines, "")
	copy(lines[idx+1:], lines[idx:])
	lines[idx] = text
	return lines
}

func insertOrigin(origins []contracts.Origin, idx int, o contracts.Origin) []contracts.Origin {
	origins = append(origins, contracts.Origin{})
	copy(origins[idx+1:], origins[idx:])
	origins[idx] = o
	return origins
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sortedUnique(in []int) []int {
	if len(in) == 0 {
		return []int{}
	}
	out := append([]int(nil), in...)
	sort.Ints(out)
	dedup := out[:1]
	for _, v := range out[1:] {
		if v != dedup[len(dedup)-1] {
			dedup = append(dedup, v)
		}
	}
	return dedup
}
