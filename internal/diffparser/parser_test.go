package diffparser

import (
	"strings"
	"testing"

	"github.com/hunkwright/hunkwright/internal/contracts"
)

// TestParse_S6_MultiFileOrdering matches spec §8 scenario S6.
func TestParse_S6_MultiFileOrdering(t *testing.T) {
	diff := strings.Join([]string{
		"--- a/a.txt",
		"+++ b/a.txt",
		"@@ -1,1 +1,1 @@",
		"-old",
		"+new",
		"--- a/b.txt",
		"+++ b/b.txt",
		"@@ -1,1 +1,1 @@",
		"-old2",
		"+new2",
		"",
	}, "\n")

	patches, err := Parse(diff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(patches) != 2 {
		t.Fatalf("len(patches) = %d, want 2", len(patches))
	}
	if patches[0].NewPath != "a.txt" || patches[1].NewPath != "b.txt" {
		t.Fatalf("unexpected path order: %q, %q", patches[0].NewPath, patches[1].NewPath)
	}
	if len(patches[0].Hunks) != 1 || len(patches[1].Hunks) != 1 {
		t.Fatalf("expected exactly one hunk per file")
	}
}

func TestParse_CleansPathsAndTimestamps(t *testing.T) {
	diff := strings.Join([]string{
		"--- a/old/name.go\t2024-01-01 00:00:00.000000000 +0000",
		"+++ b/new/name.go\t2024-01-02 00:00:00.000000000 +0000",
		"@@ -1 +1 @@",
		"-x",
		"+y",
		"",
	}, "\n")

	patches, err := Parse(diff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(patches) != 1 {
		t.Fatalf("len(patches) = %d, want 1", len(patches))
	}
	if patches[0].OldPath != "old/name.go" || patches[0].NewPath != "new/name.go" {
		t.Fatalf("got OldPath=%q NewPath=%q", patches[0].OldPath, patches[0].NewPath)
	}
}

func TestParse_SkipsGitPreamble(t *testing.T) {
	diff := strings.Join([]string{
		"diff --git a/f.txt b/f.txt",
		"index 1234567..89abcde 100644",
		"--- a/f.txt",
		"+++ b/f.txt",
		"@@ -1 +1 @@",
		"-a",
		"+b",
		"",
	}, "\n")

	patches, err := Parse(diff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(patches) != 1 || patches[0].NewPath != "f.txt" {
		t.Fatalf("got %+v", patches)
	}
}

func TestParse_SkipsRenameAndModeLines(t *testing.T) {
	diff := strings.Join([]string{
		"diff --git a/old.txt b/new.txt",
		"similarity index 100%",
		"rename from old.txt",
		"rename to new.txt",
		"new file mode 100644",
		"deleted file mode 100644",
		"Binary files a/x.png and b/x.png differ",
		"--- a/new.txt",
		"+++ b/new.txt",
		"@@ -1 +1 @@",
		"-a",
		"+b",
		"",
	}, "\n")

	patches, err := Parse(diff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(patches) != 1 {
		t.Fatalf("len(patches) = %d, want 1", len(patches))
	}
}

func TestParse_BlankContextLineBecomesEmptyContextHunkLine(t *testing.T) {
	diff := strings.Join([]string{
		"--- a/f.txt",
		"+++ b/f.txt",
		"@@ -1,3 +1,3 @@",
		" foo",
		"",
		"-bar",
		"+BAZ",
		"",
	}, "\n")

	patches, err := Parse(diff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := patches[0].Hunks[0].Lines
	if len(lines) != 4 {
		t.Fatalf("len(lines) = %d, want 4: %+v", len(lines), lines)
	}
	if lines[1].Kind != contracts.KindContext || lines[1].Text != "" {
		t.Fatalf("lines[1] = %+v, want blank-tolerant context", lines[1])
	}
}

func TestParse_NoNewlineMarkerSetsFlagAndEmitsNoLine(t *testing.T) {
	diff := strings.Join([]string{
		"--- a/f.txt",
		"+++ b/f.txt",
		"@@ -1,1 +1,1 @@",
		"-old",
		"\\ No newline at end of file",
		"+new",
		"\\ No newline at end of file",
		"",
	}, "\n")

	patches, err := Parse(diff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fp := patches[0]
	if !fp.NoNewlineOld || !fp.NoNewlineNew {
		t.Fatalf("NoNewlineOld=%v NoNewlineNew=%v, want both true", fp.NoNewlineOld, fp.NoNewlineNew)
	}
	if len(fp.Hunks[0].Lines) != 2 {
		t.Fatalf("marker lines leaked into hunk body: %+v", fp.Hunks[0].Lines)
	}
}

func TestParse_HunkBeforeFileHeaderFails(t *testing.T) {
	diff := "@@ -1,1 +1,1 @@\n-a\n+b\n"
	_, err := Parse(diff)
	pe, ok := err.(*contracts.ParseError)
	if !ok {
		t.Fatalf("expected *contracts.ParseError, got %T (%v)", err, err)
	}
	if pe.LineNo != 0 {
		t.Errorf("LineNo = %d, want 0", pe.LineNo)
	}
}

func TestParse_InvalidBodyLineFails(t *testing.T) {
	diff := strings.Join([]string{
		"--- a/f.txt",
		"+++ b/f.txt",
		"@@ -1,1 +1,1 @@",
		"!not a valid hunk line",
		"",
	}, "\n")
	_, err := Parse(diff)
	if _, ok := err.(*contracts.ParseError); !ok {
		t.Fatalf("expected *contracts.ParseError, got %T (%v)", err, err)
	}
}

func TestParse_ContextDiffHeaderRecognized(t *testing.T) {
	diff := strings.Join([]string{
		"*** a/old.txt",
		"--- b/new.txt",
		"*** 1,3 ****",
		" foo",
		"-bar",
		"+BAZ",
		"",
	}, "\n")

	patches, err := Parse(diff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(patches) != 1 || len(patches[0].Hunks) != 1 {
		t.Fatalf("got %+v", patches)
	}
	if patches[0].Hunks[0].OldStart != 0 || patches[0].Hunks[0].OldLen != 3 {
		t.Fatalf("got Hunk=%+v", patches[0].Hunks[0])
	}
}

func TestParse_MissingLengthDefaultsToOne(t *testing.T) {
	diff := strings.Join([]string{
		"--- a/f.txt",
		"+++ b/f.txt",
		"@@ -5 +5 @@",
		"-x",
		"+y",
		"",
	}, "\n")
	patches, err := Parse(diff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h := patches[0].Hunks[0]
	if h.OldStart != 4 || h.OldLen != 1 || h.NewStart != 4 || h.NewLen != 1 {
		t.Fatalf("got %+v, want OldStart=4 OldLen=1 NewStart=4 NewLen=1", h)
	}
}

func TestParse_HeaderZeroStartClampsToZero(t *testing.T) {
	diff := strings.Join([]string{
		"--- a/f.txt",
		"+++ b/f.txt",
		"@@ -0,0 +1,2 @@",
		"+a",
		"+b",
		"",
	}, "\n")
	patches, err := Parse(diff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if patches[0].Hunks[0].OldStart != 0 {
		t.Fatalf("OldStart = %d, want 0", patches[0].Hunks[0].OldStart)
	}
}

func TestParse_EmptyInputYieldsNoPatches(t *testing.T) {
	patches, err := Parse("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(patches) != 0 {
		t.Fatalf("len(patches) = %d, want 0", len(patches))
	}
}

func TestParse_StrayCRBeforeLFStripped(t *testing.T) {
	diff := "--- a/f.txt\r\n+++ b/f.txt\r\n@@ -1 +1 @@\r\n-x\r\n+y\r\n"
	patches, err := Parse(diff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if patches[0].Hunks[0].Lines[0].Text != "x" {
		t.Fatalf("expected stray CR to be stripped, got %q", patches[0].Hunks[0].Lines[0].Text)
	}
}

func TestParse_Determinism(t *testing.T) {
	diff := strings.Join([]string{
		"--- a/f.txt",
		"+++ b/f.txt",
		"@@ -1,2 +1,2 @@",
		" a",
		"-b",
		"+B",
		"",
	}, "\n")
	p1, err1 := Parse(diff)
	p2, err2 := Parse(diff)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v, %v", err1, err2)
	}
	if len(p1) != len(p2) || len(p1[0].Hunks) != len(p2[0].Hunks) {
		t.Fatalf("Parse is not deterministic")
	}
}

func TestValidate_AccumulatesSortedViolations(t *testing.T) {
	diff := strings.Join([]string{
		"@@ -1,1 +1,1 @@", // hunk before file header: violation at line 0
		"-a",
		"+b",
		"--- a/f.txt",
		"+++ b/f.txt",
		"@@ -1,1 +1,1 @@",
		"!bad line", // violation further down
		"",
	}, "\n")

	ok, violations := Validate(diff)
	if ok {
		t.Fatal("expected Validate to report invalid input")
	}
	if len(violations) != 2 {
		t.Fatalf("len(violations) = %d, want 2: %+v", len(violations), violations)
	}
	for i := 1; i < len(violations); i++ {
		if violations[i-1].LineNo > violations[i].LineNo {
			t.Fatalf("violations not sorted by LineNo: %+v", violations)
		}
	}
}

func TestValidate_ValidInputReturnsNoViolations(t *testing.T) {
	diff := strings.Join([]string{
		"--- a/f.txt",
		"+++ b/f.txt",
		"@@ -1,1 +1,1 @@",
		"-a",
		"+b",
		"",
	}, "\n")
	ok, violations := Validate(diff)
	if !ok || len(violations) != 0 {
		t.Fatalf("ok=%v violations=%+v, want true, []", ok, violations)
	}
}
