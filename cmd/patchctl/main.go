// Command patchctl is the command-line entry point for the patch engine:
// it applies, previews, validates, navigates, and reports on unified and
// context diffs, persists apply history, and can expose the same
// operations to agent harnesses over MCP.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hunkwright/hunkwright/internal/applier"
	"github.com/hunkwright/hunkwright/internal/checkpoint"
	"github.com/hunkwright/hunkwright/internal/config"
	"github.com/hunkwright/hunkwright/internal/contracts"
	"github.com/hunkwright/hunkwright/internal/diffparser"
	"github.com/hunkwright/hunkwright/internal/domain"
	"github.com/hunkwright/hunkwright/internal/fsapply"
	"github.com/hunkwright/hunkwright/internal/mcpserver"
	"github.com/hunkwright/hunkwright/internal/report"
	"github.com/hunkwright/hunkwright/internal/store"
	"github.com/hunkwright/hunkwright/internal/tui"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "patchctl:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		printHelp()
		return nil
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "help", "-h", "--help":
		printHelp()
		return nil
	case "apply":
		return runApply(rest)
	case "preview":
		return runPreview(rest)
	case "validate":
		return runValidate(rest)
	case "view":
		return runView(rest)
	case "report":
		return runReport(rest)
	case "history":
		return runHistory(rest)
	case "undo":
		return runUndo(rest)
	case "config":
		return runConfig(rest)
	case "mcp-serve":
		return runMCPServe()
	default:
		return fmt.Errorf("unknown command %q; run \"patchctl help\"", cmd)
	}
}

func printHelp() {
	fmt.Println("patchctl — apply and navigate unified/context diffs")
	fmt.Println()
	for _, g := range domain.CommandGroups {
		fmt.Printf("%s:\n", g.Label)
		for _, c := range domain.CommandHelp(false) {
			if c.Group != g.Key {
				continue
			}
			fmt.Printf("  %-12s %s\n", c.Name, c.Description)
		}
		fmt.Println()
	}
}

// flagSet is a tiny positional-plus-flags parser matching the CLI surface
// in SPEC_FULL.md §6 — no getopt-style bundling. Bool flags take the form
// "--name" or "--name=value"; string and int flags also accept
// "--name value".
type flagSet struct {
	bools    map[string]bool
	strings  map[string]string
	ints     map[string]int
	position []string
}

func parseFlags(args []string, boolFlags, stringFlags, intFlags map[string]bool) flagSet {
	fs := flagSet{bools: map[string]bool{}, strings: map[string]string{}, ints: map[string]int{}}
	for i := 0; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "--") {
			fs.position = append(fs.position, a)
			continue
		}
		name := strings.TrimPrefix(a, "--")
		var value string
		hasValue := false
		if eq := strings.Index(name, "="); eq >= 0 {
			value, name, hasValue = name[eq+1:], name[:eq], true
		}
		switch {
		case boolFlags[name]:
			if hasValue {
				b, _ := config.ParseBoolish(value)
				fs.bools[name] = b
			} else {
				fs.bools[name] = true
			}
		case stringFlags[name]:
			if !hasValue && i+1 < len(args) {
				i++
				value = args[i]
			}
			fs.strings[name] = value
		case intFlags[name]:
			if !hasValue && i+1 < len(args) {
				i++
				value = args[i]
			}
			n, _ := strconv.Atoi(value)
			fs.ints[name] = n
		}
	}
	return fs
}

func readDiff(path string) (string, error) {
	if path == "-" || path == "" {
		data, err := readAllStdin()
		if err != nil {
			return "", err
		}
		return fsapply.NormalizeNewlines(data), nil
	}
	text, err := fsapply.ReadNormalized(path)
	if err != nil {
		return "", err
	}
	return text, nil
}

func readAllStdin() (string, error) {
	var b strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			b.Write(buf[:n])
		}
		if err != nil {
			break
		}
	}
	return b.String(), nil
}

func selectPatch(diffText string, fileIndex int) (contracts.FilePatch, error) {
	patches, err := diffparser.Parse(diffText)
	if err != nil {
		return contracts.FilePatch{}, err
	}
	if len(patches) == 0 {
		return contracts.FilePatch{}, fmt.Errorf("diff contains no file sections")
	}
	if fileIndex < 0 || fileIndex >= len(patches) {
		return contracts.FilePatch{}, fmt.Errorf("file_index %d out of range (diff has %d file section(s))", fileIndex, len(patches))
	}
	return patches[fileIndex], nil
}

func runApply(args []string) error {
	fs := parseFlags(args,
		map[string]bool{"strict": true, "backup": true},
		map[string]bool{"root": true, "target": true},
		map[string]bool{"file-index": true, "fuzzy-context": true},
	)
	if len(fs.position) < 1 {
		return fmt.Errorf("usage: patchctl apply <patch-file> [--strict=true] [--backup] [--root DIR]")
	}
	diffPath := fs.position[0]

	prefs := config.LoadPreferences()
	strict := prefs.StrictDefault
	if v, ok := fs.bools["strict"]; ok {
		strict = v
	}
	backup := prefs.BackupOnApply
	if v, ok := fs.bools["backup"]; ok {
		backup = v
	}
	fuzzy := prefs.FuzzyContext
	if v, ok := fs.ints["fuzzy-context"]; ok {
		fuzzy = v
	}

	diffText, err := readDiff(diffPath)
	if err != nil {
		return err
	}
	patch, err := selectPatch(diffText, fs.ints["file-index"])
	if err != nil {
		return err
	}

	targetPath := fs.strings["target"]
	if targetPath == "" {
		targetPath = patch.NewPath
	}
	if root := fs.strings["root"]; root != "" {
		targetPath = filepath.Join(root, targetPath)
	}

	opts := fsapply.Options{Strict: strict, FuzzyContext: fuzzy, Backup: backup, Diagnose: true}
	sessionID := checkpoint.NewSessionID()
	if backup {
		dir, err := config.CheckpointDir()
		if err != nil {
			return err
		}
		opts.CheckpointDir = dir
		opts.SessionID = sessionID
	}

	out, err := fsapply.ApplyToFile(targetPath, patch, opts)
	if err != nil {
		return err
	}

	sess := fsapply.BuildSession(targetPath, diffPath, strict, time.Now().Unix(), out)
	sess.ID = sessionID

	if db, err := store.OpenStore(); err == nil {
		defer db.Close()
		_ = db.RecordApply(sess, len(out.Result.AddedLines), len(out.Result.RemovedOriginalIndices))
		pruneHistory(db, targetPath, prefs.HistoryLimit)
	}

	fmt.Printf("applied %s: +%d -%d", targetPath, len(out.Result.AddedLines), len(out.Result.RemovedOriginalIndices))
	if len(out.Result.SkippedHunks) > 0 {
		fmt.Printf(" (skipped hunks: %v)", out.Result.SkippedHunks)
	}
	fmt.Println()
	return nil
}

func runPreview(args []string) error {
	fs := parseFlags(args, map[string]bool{"strict": true}, map[string]bool{"target": true}, map[string]bool{"file-index": true, "fuzzy-context": true})
	if len(fs.position) < 1 {
		return fmt.Errorf("usage: patchctl preview <patch-file> [--target FILE]")
	}

	diffText, err := readDiff(fs.position[0])
	if err != nil {
		return err
	}
	patch, err := selectPatch(diffText, fs.ints["file-index"])
	if err != nil {
		return err
	}

	targetPath := fs.strings["target"]
	if targetPath == "" {
		targetPath = patch.NewPath
	}

	prefs := config.LoadPreferences()
	strict := prefs.StrictDefault
	if v, ok := fs.bools["strict"]; ok {
		strict = v
	}
	fuzzy := prefs.FuzzyContext
	if v, ok := fs.ints["fuzzy-context"]; ok {
		fuzzy = v
	}

	out, err := fsapply.ApplyToFile(targetPath, patch, fsapply.Options{Strict: strict, FuzzyContext: fuzzy, DryRun: true, Diagnose: true})
	if err != nil {
		return err
	}
	fmt.Print(out.Result.Text)
	return nil
}

func runValidate(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: patchctl validate <patch-file>")
	}
	diffText, err := readDiff(args[0])
	if err != nil {
		return err
	}
	ok, violations := diffparser.Validate(diffText)
	if ok {
		fmt.Println("valid")
		return nil
	}
	for _, v := range violations {
		fmt.Printf("line %d: %s\n", v.LineNo, v.Message)
	}
	return fmt.Errorf("%d violation(s)", len(violations))
}

func runView(args []string) error {
	fs := parseFlags(args, nil, map[string]bool{"target": true, "language": true}, map[string]bool{"file-index": true, "fuzzy-context": true})
	if len(fs.position) < 1 || fs.strings["target"] == "" {
		return fmt.Errorf("usage: patchctl view <patch-file> --target <source-file>")
	}

	diffText, err := readDiff(fs.position[0])
	if err != nil {
		return err
	}
	patch, err := selectPatch(diffText, fs.ints["file-index"])
	if err != nil {
		return err
	}

	prefs := config.LoadPreferences()
	fuzzy := prefs.FuzzyContext
	if v, ok := fs.ints["fuzzy-context"]; ok {
		fuzzy = v
	}

	original, err := fsapply.ReadNormalized(fs.strings["target"])
	if err != nil {
		return err
	}
	result, err := applier.Apply(original, patch, applier.Options{Strict: false, FuzzyContext: fuzzy})
	if err != nil {
		return err
	}

	m := tui.NewModel(fs.strings["target"], result, fs.strings["language"])
	logger := config.NewLogger()
	defer logger.Close()
	logger.Printf("view: opened %s", fs.strings["target"])

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func runReport(args []string) error {
	fs := parseFlags(args, map[string]bool{"qr": true}, map[string]bool{"target": true, "language": true, "out": true, "url": true}, map[string]bool{"file-index": true})
	if len(fs.position) < 1 || fs.strings["target"] == "" {
		return fmt.Errorf("usage: patchctl report <patch-file> --target <source-file> [--qr]")
	}

	diffText, err := readDiff(fs.position[0])
	if err != nil {
		return err
	}
	patch, err := selectPatch(diffText, fs.ints["file-index"])
	if err != nil {
		return err
	}

	prefs := config.LoadPreferences()
	original, err := fsapply.ReadNormalized(fs.strings["target"])
	if err != nil {
		return err
	}
	result, err := applier.Apply(original, patch, applier.Options{Strict: false, FuzzyContext: prefs.FuzzyContext})
	if err != nil {
		return err
	}

	html, err := report.Render(result, report.Options{
		Title:    fs.strings["target"],
		Language: fs.strings["language"],
		Theme:    prefs.ReportTheme,
	})
	if err != nil {
		return err
	}

	outPath := fs.strings["out"]
	if outPath == "" {
		outPath = fs.strings["target"] + ".report.html"
	}
	if err := os.WriteFile(outPath, []byte(html), 0o644); err != nil {
		return &contracts.IOErrorCompat{Path: outPath, OSMessage: err.Error()}
	}
	fmt.Printf("wrote %s\n", outPath)

	if fs.bools["qr"] || prefs.ReportQRShare {
		url := fs.strings["url"]
		if url == "" {
			url = "file://" + outPath
		}
		art, err := report.QRCodeASCII(url)
		if err != nil {
			return err
		}
		fmt.Println(art)
	}
	return nil
}

func runHistory(args []string) error {
	fs := parseFlags(args, nil, map[string]bool{"target": true}, map[string]bool{"limit": true})
	db, err := store.OpenStore()
	if err != nil {
		return err
	}
	defer db.Close()

	prefs := config.LoadPreferences()
	limit := prefs.HistoryLimit
	if v, ok := fs.ints["limit"]; ok {
		limit = v
	}

	records, err := db.ListApplyRecords(fs.strings["target"], limit)
	if err != nil {
		return err
	}
	for _, rec := range records {
		fmt.Printf("%s  %s  +%d -%d  %s\n", rec.ID[:8], rec.TargetPath, rec.AddedCount, rec.RemovedCount, store.FormatRecordAge(rec))
	}
	return nil
}

// pruneHistory drops apply-history rows for targetPath beyond the most
// recent keep entries and removes the checkpoint directories the dropped
// rows pointed at. Best-effort: a failed prune never fails the apply.
func pruneHistory(db *store.Store, targetPath string, keep int) {
	if keep <= 0 {
		return
	}
	stale, err := db.PruneOlderThan(targetPath, keep)
	if err != nil {
		return
	}
	dir, err := config.CheckpointDir()
	if err != nil {
		return
	}
	for _, backupPath := range stale {
		if backupPath == "" {
			continue
		}
		// backups live at <checkpoint-dir>/<sessionID>/<basename>
		sessionID := filepath.Base(filepath.Dir(backupPath))
		_ = checkpoint.Prune(dir, sessionID)
	}
}

func runUndo(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: patchctl undo <session-id-prefix>")
	}

	db, err := store.OpenStore()
	if err != nil {
		return err
	}
	defer db.Close()

	rec, err := db.FindApplyRecordByPrefix(args[0])
	if err != nil {
		return fmt.Errorf("no apply session matching %q", args[0])
	}
	if !rec.BackupRequested {
		return fmt.Errorf("session %s has no checkpoint; it was applied without --backup", rec.ID[:8])
	}

	// An empty CheckpointPath on a backed-up session means the apply created
	// the file: restoring is deleting it, not copying bytes back.
	cp := checkpoint.Checkpoint{
		SessionID:  rec.ID,
		TargetPath: rec.TargetPath,
		BackupPath: rec.CheckpointPath,
		Existed:    rec.CheckpointPath != "",
	}
	if err := cp.Restore(); err != nil {
		return err
	}
	_ = db.DeleteApplyRecord(rec.ID)

	if cp.Existed {
		fmt.Printf("restored %s from checkpoint %s\n", rec.TargetPath, rec.ID[:8])
	} else {
		fmt.Printf("removed %s (created by session %s)\n", rec.TargetPath, rec.ID[:8])
	}
	return nil
}

func runConfig(args []string) error {
	prefs := config.LoadPreferences()
	out, err := config.ExecuteConfigAction(&prefs, args)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func runMCPServe() error {
	server := mcpserver.NewServer()
	return server.Run(context.Background(), &mcpsdk.StdioTransport{})
}
