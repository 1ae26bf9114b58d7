// Package diffparser turns unified-diff (and context-diff header) text into
// an ordered list of contracts.FilePatch. Parsing is a single pass over
// 0-based lines; it performs no I/O and raises no side effects.
package diffparser

import (
	"sort"
	"strconv"
	"strings"

	"github.com/hunkwright/hunkwright/internal/contracts"
)

// Parse converts diff text into an ordered list of FilePatch, in the order
// their file headers appear. It fails fast on the first grammar violation.
func Parse(content string) ([]contracts.FilePatch, error) {
	p := &parser{lines: splitLines(content)}
	if err := p.run(nil); err != nil {
		return nil, err
	}
	return p.patches, nil
}

// Violation is a single (line_no, message) pair accumulated by Validate.
type Violation struct {
	LineNo  int
	Message string
}

// Validate walks the same grammar as Parse but accumulates every violation
// instead of stopping at the first one. It returns whether the input is
// fully valid and the violations sorted by line number.
func Validate(content string) (bool, []Violation) {
	var violations []Violation
	p := &parser{lines: splitLines(content)}
	_ = p.run(func(v Violation) { violations = append(violations, v) })
	sort.Slice(violations, func(i, j int) bool { return violations[i].LineNo < violations[j].LineNo })
	return len(violations) == 0, violations
}

// splitLines splits on LF and strips a stray trailing CR from each line,
// defensively tolerating CRLF input the caller failed to normalize. The
// empty element after a final LF is a terminator, not a line, and is
// dropped so it never becomes a blank context line.
func splitLines(content string) []string {
	raw := strings.Split(content, "\n")
	if len(raw) > 1 && raw[len(raw)-1] == "" {
		raw = raw[:len(raw)-1]
	}
	out := make([]string, len(raw))
	for i, l := range raw {
		out[i] = strings.TrimSuffix(l, "\r")
	}
	return out
}

type parser struct {
	lines   []string
	pos     int
	patches []contracts.FilePatch
}

// onViolation, when non-nil, turns what would be a fatal ParseError into an
// accumulated Violation so Validate can keep walking.
func (p *parser) run(onViolation func(Violation)) error {
	var current *contracts.FilePatch

	fail := func(lineNo int, message string) error {
		if onViolation != nil {
			onViolation(Violation{LineNo: lineNo, Message: message})
			return nil
		}
		return &contracts.ParseError{LineNo: lineNo, Message: message}
	}

	for p.pos < len(p.lines) {
		line := p.lines[p.pos]

		if skip := matchSkipPrefix(line); skip {
			p.pos++
			continue
		}

		if strings.HasPrefix(line, "--- ") {
			fp, consumed, ok := p.tryUnifiedHeader()
			if ok {
				p.flush(&current, fp)
				p.pos += consumed
				continue
			}
			p.pos++
			continue
		}

		if strings.HasPrefix(line, "*** ") && !contracts.ContextHunkHeaderRegex.MatchString(line) {
			fp, consumed, ok := p.tryContextHeader()
			if ok {
				p.flush(&current, fp)
				p.pos += consumed
				continue
			}
			p.pos++
			continue
		}

		if contracts.UnifiedHunkHeaderRegex.MatchString(line) || contracts.ContextHunkHeaderRegex.MatchString(line) {
			if current == nil {
				if err := fail(p.pos, "hunk before file header"); err != nil {
					return err
				}
				p.pos++
				continue
			}
			hunk, consumed, err := p.parseHunk(line, current)
			if err != nil {
				if pe, ok := err.(*contracts.ParseError); ok {
					if ferr := fail(pe.LineNo, pe.Message); ferr != nil {
						return ferr
					}
					p.pos += consumed
					continue
				}
				return err
			}
			current.Hunks = append(current.Hunks, hunk)
			p.pos += consumed
			continue
		}

		p.pos++
	}

	if current != nil {
		p.patches = append(p.patches, *current)
	}
	return nil
}

// flush appends the previously open FilePatch (if any) and opens a new one.
func (p *parser) flush(current **contracts.FilePatch, next contracts.FilePatch) {
	if *current != nil {
		p.patches = append(p.patches, **current)
	}
	*current = &next
}

func matchSkipPrefix(line string) bool {
	for _, prefix := range contracts.SkipPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// tryUnifiedHeader attempts to read a "--- old" / "+++ new" pair starting at
// p.pos. It returns the number of lines consumed on success: 2, plus any
// blank lines between the two headers.
func (p *parser) tryUnifiedHeader() (contracts.FilePatch, int, bool) {
	if p.pos+1 >= len(p.lines) {
		return contracts.FilePatch{}, 0, false
	}
	next := nextNonBlank(p.lines, p.pos+1)
	if next == -1 || !strings.HasPrefix(p.lines[next], "+++ ") {
		return contracts.FilePatch{}, 0, false
	}
	oldPath := cleanPath(strings.TrimPrefix(p.lines[p.pos], "--- "))
	newPath := cleanPath(strings.TrimPrefix(p.lines[next], "+++ "))
	return contracts.FilePatch{OldPath: oldPath, NewPath: newPath}, next - p.pos + 1, true
}

// tryContextHeader attempts to read a "*** old" / "--- new" pair (classic
// context-diff file header) starting at p.pos.
func (p *parser) tryContextHeader() (contracts.FilePatch, int, bool) {
	if p.pos+1 >= len(p.lines) {
		return contracts.FilePatch{}, 0, false
	}
	next := nextNonBlank(p.lines, p.pos+1)
	if next == -1 || !strings.HasPrefix(p.lines[next], "--- ") {
		return contracts.FilePatch{}, 0, false
	}
	oldPath := cleanPath(strings.TrimPrefix(p.lines[p.pos], "*** "))
	newPath := cleanPath(strings.TrimPrefix(p.lines[next], "--- "))
	return contracts.FilePatch{OldPath: oldPath, NewPath: newPath}, next - p.pos + 1, true
}

func nextNonBlank(lines []string, from int) int {
	for i := from; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "" {
			return i
		}
	}
	return -1
}

// cleanPath truncates at the first tab (a timestamp suffix) and strips an
// optional leading "a/" or "b/" prefix.
func cleanPath(raw string) string {
	if idx := strings.IndexByte(raw, '\t'); idx >= 0 {
		raw = raw[:idx]
	}
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "a/") || strings.HasPrefix(raw, "b/") {
		raw = raw[2:]
	}
	return raw
}

// parseHunk reads one hunk header and its body starting at p.pos. It
// returns the hunk and the number of lines consumed (header + body). A
// "\ No newline at end of file" marker updates fp's NoNewlineOld/New flags
// based on the kind of the line it immediately follows.
func (p *parser) parseHunk(header string, fp *contracts.FilePatch) (contracts.Hunk, int, error) {
	hunk, err := parseHunkHeader(header)
	if err != nil {
		return contracts.Hunk{}, 1, &contracts.ParseError{LineNo: p.pos, Message: err.Error()}
	}

	consumed := 1
	cursor := p.pos + 1
	for cursor < len(p.lines) {
		line := p.lines[cursor]
		if contracts.UnifiedHunkHeaderRegex.MatchString(line) ||
			contracts.ContextHunkHeaderRegex.MatchString(line) ||
			strings.HasPrefix(line, "--- ") ||
			strings.HasPrefix(line, "*** ") ||
			strings.HasPrefix(line, "diff --git ") {
			break
		}

		if line == "" {
			hunk.Lines = append(hunk.Lines, contracts.HunkLine{Kind: contracts.KindContext, Text: ""})
			cursor++
			consumed++
			continue
		}

		if strings.HasPrefix(line, `\`) {
			// "\ No newline at end of file" and similar backslash markers:
			// record which side they describe based on the preceding body
			// line, then emit no HunkLine for the marker itself.
			if fp != nil {
				if n := len(hunk.Lines); n > 0 && hunk.Lines[n-1].Kind == contracts.KindAdd {
					fp.NoNewlineNew = true
				} else {
					fp.NoNewlineOld = true
				}
			}
			cursor++
			consumed++
			continue
		}

		kind := contracts.LineKind(line[0])
		switch kind {
		case contracts.KindContext, contracts.KindAdd, contracts.KindRemove:
			hunk.Lines = append(hunk.Lines, contracts.HunkLine{Kind: kind, Text: line[1:]})
		default:
			return contracts.Hunk{}, consumed, &contracts.ParseError{LineNo: cursor, Message: "invalid hunk body line: " + line}
		}
		cursor++
		consumed++
	}

	return hunk, consumed, nil
}

// parseHunkHeader parses either grammar's header line into 0-based starts.
func parseHunkHeader(line string) (contracts.Hunk, error) {
	if m := contracts.UnifiedHunkHeaderRegex.FindStringSubmatch(line); m != nil {
		oldStart, err := strconv.Atoi(m[1])
		if err != nil {
			return contracts.Hunk{}, err
		}
		oldLen := 1
		if m[2] != "" {
			oldLen, err = strconv.Atoi(m[2])
			if err != nil {
				return contracts.Hunk{}, err
			}
		}
		newStart, err := strconv.Atoi(m[3])
		if err != nil {
			return contracts.Hunk{}, err
		}
		newLen := 1
		if m[4] != "" {
			newLen, err = strconv.Atoi(m[4])
			if err != nil {
				return contracts.Hunk{}, err
			}
		}
		return contracts.Hunk{
			OldStart: clampZeroBased(oldStart),
			OldLen:   oldLen,
			NewStart: clampZeroBased(newStart),
			NewLen:   newLen,
		}, nil
	}

	if m := contracts.ContextHunkHeaderRegex.FindStringSubmatch(line); m != nil {
		oldStart, err := strconv.Atoi(m[1])
		if err != nil {
			return contracts.Hunk{}, err
		}
		oldLen, err := strconv.Atoi(m[2])
		if err != nil {
			return contracts.Hunk{}, err
		}
		return contracts.Hunk{OldStart: clampZeroBased(oldStart), OldLen: oldLen}, nil
	}

	return contracts.Hunk{}, &contracts.ParseError{Message: "not a recognized hunk header: " + line}
}

// clampZeroBased converts a 1-based header start to 0-based, clamping at 0
// (a header may report 0 when a hunk is a pure insertion before line 1).
func clampZeroBased(headerStart int) int {
	if headerStart <= 0 {
		return 0
	}
	return headerStart - 1
}
