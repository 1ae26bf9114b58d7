package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultPreferences(t *testing.T) {
	p := DefaultPreferences()
	if p.FuzzyContext != 200 {
		t.Errorf("FuzzyContext = %d, want 200", p.FuzzyContext)
	}
	if !p.StrictDefault {
		t.Error("expected StrictDefault true")
	}
	if !p.BackupOnApply {
		t.Error("expected BackupOnApply true")
	}
	if p.ReportTheme != "github" {
		t.Errorf("ReportTheme = %q, want github", p.ReportTheme)
	}
}

func TestPreferences_GetSet_roundTrip(t *testing.T) {
	p := DefaultPreferences()

	tests := []struct {
		key   string
		value string
	}{
		{"fuzzy_context", "64"},
		{"strict_default", "false"},
		{"backup_on_apply", "false"},
		{"report.theme", "monokai"},
		{"report.qr_share", "true"},
		{"history.limit", "50"},
	}
	for _, tt := range tests {
		if err := p.Set(tt.key, tt.value); err != nil {
			t.Fatalf("Set(%q, %q) error: %v", tt.key, tt.value, err)
		}
		if got := p.Get(tt.key); got != tt.value {
			t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.value)
		}
	}
}

func TestPreferences_Set_unknownKey(t *testing.T) {
	p := DefaultPreferences()
	if err := p.Set("nonsense", "x"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestPreferences_Set_invalidFuzzyContext(t *testing.T) {
	p := DefaultPreferences()
	if err := p.Set("fuzzy_context", "-1"); err == nil {
		t.Fatal("expected error for negative fuzzy_context")
	}
	if err := p.Set("fuzzy_context", "not-a-number"); err == nil {
		t.Fatal("expected error for non-numeric fuzzy_context")
	}
}

func TestPreferences_Set_invalidBool(t *testing.T) {
	p := DefaultPreferences()
	if err := p.Set("strict_default", "maybe"); err == nil {
		t.Fatal("expected error for invalid boolean")
	}
}

func TestPreferences_Grouped(t *testing.T) {
	p := DefaultPreferences()
	groups := p.Grouped()
	if len(groups) != len(ConfigGroupDefs) {
		t.Fatalf("Grouped() returned %d groups, want %d", len(groups), len(ConfigGroupDefs))
	}
	names := map[string]bool{}
	for _, g := range groups {
		names[g.Name] = true
	}
	for _, want := range []string{"apply", "report", "history"} {
		if !names[want] {
			t.Errorf("missing group %q", want)
		}
	}
}

func TestPreferences_GroupByName_unknown(t *testing.T) {
	p := DefaultPreferences()
	if g := p.GroupByName("nonsense"); g != nil {
		t.Errorf("expected nil for unknown group, got %+v", g)
	}
}

func TestSaveLoadPreferences_roundTrip(t *testing.T) {
	old := configDirOverride
	defer func() { configDirOverride = old }()
	configDirOverride = t.TempDir()

	p := DefaultPreferences()
	p.FuzzyContext = 42
	p.ReportTheme = "dracula"

	if err := SavePreferences(p); err != nil {
		t.Fatalf("SavePreferences error: %v", err)
	}

	loaded := LoadPreferences()
	if loaded.FuzzyContext != 42 || loaded.ReportTheme != "dracula" {
		t.Errorf("LoadPreferences() = %+v, want FuzzyContext=42 ReportTheme=dracula", loaded)
	}
}

func TestSavePreferences_fileMode(t *testing.T) {
	old := configDirOverride
	defer func() { configDirOverride = old }()
	configDirOverride = t.TempDir()

	if err := SavePreferences(DefaultPreferences()); err != nil {
		t.Fatalf("SavePreferences error: %v", err)
	}
	info, err := os.Stat(filepath.Join(configDirOverride, "config.json"))
	if err != nil {
		t.Fatalf("stat config.json: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("config.json mode = %o, want 0600", info.Mode().Perm())
	}
}

func TestParseBoolish(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"true", true, false},
		{"on", true, false},
		{"yes", true, false},
		{"1", true, false},
		{"false", false, false},
		{"off", false, false},
		{"no", false, false},
		{"0", false, false},
		{"banana", false, true},
	}
	for _, tt := range tests {
		got, err := ParseBoolish(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseBoolish(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseBoolish(%q) unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseBoolish(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeValue_stripsControlCharsAndTrims(t *testing.T) {
	in := "  monokai\x00\x7f  "
	want := "monokai"
	if got := SanitizeValue(in); got != want {
		t.Errorf("SanitizeValue(%q) = %q, want %q", in, got, want)
	}
}

func TestAnnotateValue(t *testing.T) {
	if got := AnnotateValue(""); got != "(not set)" {
		t.Errorf("AnnotateValue(\"\") = %q", got)
	}
	if got := AnnotateValue("github"); got != "github" {
		t.Errorf("AnnotateValue(\"github\") = %q", got)
	}
}

func TestExecuteConfigAction_showAndSet(t *testing.T) {
	old := configDirOverride
	defer func() { configDirOverride = old }()
	configDirOverride = t.TempDir()

	p := DefaultPreferences()

	out, err := ExecuteConfigAction(&p, nil)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if out == "" {
		t.Fatal("expected non-empty show output")
	}

	out, err = ExecuteConfigAction(&p, []string{"set", "fuzzy_context", "99"})
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if p.FuzzyContext != 99 {
		t.Errorf("FuzzyContext = %d, want 99 after set", p.FuzzyContext)
	}
	if out == "" {
		t.Fatal("expected non-empty set confirmation")
	}
}

func TestExecuteConfigAction_unknownSubcommand(t *testing.T) {
	p := DefaultPreferences()
	if _, err := ExecuteConfigAction(&p, []string{"bogus"}); err == nil {
		t.Fatal("expected error for unknown subcommand")
	}
}

func TestExecuteConfigAction_reset(t *testing.T) {
	old := configDirOverride
	defer func() { configDirOverride = old }()
	configDirOverride = t.TempDir()

	p := DefaultPreferences()
	p.FuzzyContext = 5
	if _, err := ExecuteConfigAction(&p, []string{"reset"}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if p.FuzzyContext != 200 {
		t.Errorf("FuzzyContext = %d after reset, want 200", p.FuzzyContext)
	}
}

func TestFormatConfigGroups(t *testing.T) {
	groups := []ConfigGroup{{Name: "apply", Entries: []PrefEntry{{Key: "fuzzy_context", Value: "200"}}}}
	out := FormatConfigGroups(groups)
	if out == "" {
		t.Fatal("expected non-empty output")
	}
}
