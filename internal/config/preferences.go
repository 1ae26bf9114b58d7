package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// Preferences holds user-configurable apply/report/history settings.
// Persisted to ~/.config/hunkwright/config.json.
type Preferences struct {
	FuzzyContext  int    `json:"fuzzy_context"`
	StrictDefault bool   `json:"strict_default"`
	BackupOnApply bool   `json:"backup_on_apply"`
	ReportTheme   string `json:"report_theme,omitempty"`
	ReportQRShare bool   `json:"report_qr_share"`
	HistoryLimit  int    `json:"history_limit"`
}

// PrefEntry holds a single key-value preference entry for display.
type PrefEntry struct {
	Key   string
	Value string
}

// ConfigGroup holds a named group of preference entries for display.
type ConfigGroup struct {
	Name    string
	Entries []PrefEntry
}

// ConfigGroupDef defines a single group with a name and its keys.
type ConfigGroupDef struct {
	Name string
	Keys []string
}

// ConfigGroupDefs defines the preference key groupings and their display order.
var ConfigGroupDefs = []ConfigGroupDef{
	{
		Name: "apply",
		Keys: []string{"fuzzy_context", "strict_default", "backup_on_apply"},
	},
	{
		Name: "report",
		Keys: []string{"report.theme", "report.qr_share"},
	},
	{
		Name: "history",
		Keys: []string{"history.limit"},
	},
}

// ConfigGroupNames returns the list of valid group names.
func ConfigGroupNames() []string {
	names := make([]string, len(ConfigGroupDefs))
	for i, g := range ConfigGroupDefs {
		names[i] = g.Name
	}
	return names
}

// ValidConfigKeys returns all config keys accepted by Set().
func ValidConfigKeys() []string {
	var keys []string
	for _, g := range ConfigGroupDefs {
		keys = append(keys, g.Keys...)
	}
	return keys
}

// DefaultPreferences returns the default set of preferences. FuzzyContext
// mirrors applier.DefaultFuzzyContext; the two are kept independently
// constant (config has no dependency on applier). patchctl passes the value
// through unchanged, and the applier treats 0 as its own default.
func DefaultPreferences() Preferences {
	return Preferences{
		FuzzyContext:  200,
		StrictDefault: true,
		BackupOnApply: true,
		ReportTheme:   "github",
		ReportQRShare: false,
		HistoryLimit:  200,
	}
}

// LoadPreferences reads preferences from ~/.config/hunkwright/config.json.
func LoadPreferences() Preferences {
	dir := ConfigDir()
	if dir == "" {
		return DefaultPreferences()
	}

	configPath := filepath.Join(dir, "config.json")
	p := DefaultPreferences()

	if data, err := os.ReadFile(configPath); err == nil {
		data = stripBOM(data)
		if err := json.Unmarshal(data, &p); err != nil {
			fmt.Fprintf(os.Stderr, "config: parse %s: %v\n", configPath, err)
		}
		warnInsecurePermissions(configPath)
	}

	if sanitizePreferences(&p) {
		if err := SavePreferences(p); err != nil {
			fmt.Fprintf(os.Stderr, "config: save sanitized config: %v\n", err)
		}
	}

	return p
}

// SavePreferences writes preferences to ~/.config/hunkwright/config.json.
func SavePreferences(p Preferences) error {
	dir := ConfigDir()
	if dir == "" {
		return fmt.Errorf("could not determine config directory")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0o600)
}

// stripBOM removes a UTF-8 BOM prefix if present. Windows editors like
// Notepad may add a BOM which breaks JSON parsing.
func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

// warnInsecurePermissions prints a warning to stderr if the config file is
// readable by group or others. On Windows, file permission bits don't map
// to ACLs, so the check is skipped.
func warnInsecurePermissions(path string) {
	if runtime.GOOS == "windows" {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.Mode().Perm()&0o077 != 0 {
		fmt.Fprintf(os.Stderr, "WARNING: %s is readable by others (mode %o). Run: chmod 600 %s\n",
			path, info.Mode().Perm(), path)
	}
}

// Grouped returns all preferences organized into named groups.
func (p Preferences) Grouped() []ConfigGroup {
	all := p.entryMap()

	var groups []ConfigGroup
	for _, def := range ConfigGroupDefs {
		var entries []PrefEntry
		for _, key := range def.Keys {
			entries = append(entries, PrefEntry{Key: key, Value: AnnotateValue(all[key])})
		}
		groups = append(groups, ConfigGroup{Name: def.Name, Entries: entries})
	}
	return groups
}

// GroupByName returns entries for a single config group, or nil if not found.
func (p Preferences) GroupByName(name string) *ConfigGroup {
	for _, g := range p.Grouped() {
		if g.Name == name {
			return &g
		}
	}
	return nil
}

// entryMap returns all preference entries as a key->value map.
func (p Preferences) entryMap() map[string]string {
	m := make(map[string]string)
	for _, e := range p.All() {
		m[e.Key] = e.Value
	}
	return m
}

// All returns all preference entries as a flat list.
func (p Preferences) All() []PrefEntry {
	return []PrefEntry{
		{"fuzzy_context", strconv.Itoa(p.FuzzyContext)},
		{"strict_default", strconv.FormatBool(p.StrictDefault)},
		{"backup_on_apply", strconv.FormatBool(p.BackupOnApply)},
		{"report.theme", p.ReportTheme},
		{"report.qr_share", strconv.FormatBool(p.ReportQRShare)},
		{"history.limit", strconv.Itoa(p.HistoryLimit)},
	}
}

// Get returns the display value for a single preference key.
func (p Preferences) Get(key string) string {
	switch key {
	case "fuzzy_context":
		return strconv.Itoa(p.FuzzyContext)
	case "strict_default":
		return strconv.FormatBool(p.StrictDefault)
	case "backup_on_apply":
		return strconv.FormatBool(p.BackupOnApply)
	case "report.theme":
		return p.ReportTheme
	case "report.qr_share":
		return strconv.FormatBool(p.ReportQRShare)
	case "history.limit":
		return strconv.Itoa(p.HistoryLimit)
	default:
		return ""
	}
}

// Set updates a single preference key to the given value.
func (p *Preferences) Set(key, value string) error {
	value = SanitizeValue(value)
	switch key {
	case "fuzzy_context":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid fuzzy_context: %s (must be a non-negative integer)", value)
		}
		p.FuzzyContext = n
	case "strict_default":
		b, err := ParseBoolish(value)
		if err != nil {
			return err
		}
		p.StrictDefault = b
	case "backup_on_apply":
		b, err := ParseBoolish(value)
		if err != nil {
			return err
		}
		p.BackupOnApply = b
	case "report.theme":
		p.ReportTheme = value
	case "report.qr_share":
		b, err := ParseBoolish(value)
		if err != nil {
			return err
		}
		p.ReportQRShare = b
	case "history.limit":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid history.limit: %s (must be a non-negative integer)", value)
		}
		p.HistoryLimit = n
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

// SanitizeValue strips null bytes, ASCII control characters (< 32 except
// \n and \t), and DEL (0x7F) from a string value and trims surrounding
// whitespace.
func SanitizeValue(s string) string {
	return strings.Map(func(r rune) rune {
		if (r < 32 && r != '\n' && r != '\t') || r == 0x7F {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

// sanitizePreferences strips control characters from all string fields in
// an already-loaded Preferences struct. Returns true if any field was modified.
func sanitizePreferences(p *Preferences) bool {
	cleaned := SanitizeValue(p.ReportTheme)
	if cleaned != p.ReportTheme {
		p.ReportTheme = cleaned
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// AnnotateValue returns a display string for a config value, showing
// "(not set)" for empty strings.
func AnnotateValue(value string) string {
	if value == "" {
		return "(not set)"
	}
	return value
}

// ConfigFilePath returns the absolute path to config.json.
func ConfigFilePath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.json")
}

// ParseBoolish parses a boolean-like string value.
func ParseBoolish(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "on", "yes", "1":
		return true, nil
	case "false", "off", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value: %s (use true/false, on/off, yes/no)", s)
	}
}

// ---------------------------------------------------------------------------
// Config actions — adapter-agnostic business logic
// ---------------------------------------------------------------------------

// ExecuteConfigAction handles "patchctl config" subcommands and returns a
// plain-text response. The caller applies its own formatting.
func ExecuteConfigAction(prefs *Preferences, args []string) (string, error) {
	sub := "show"
	if len(args) > 0 {
		sub = strings.ToLower(args[0])
	}

	switch sub {
	case "show":
		return FormatConfigGroups(prefs.Grouped()), nil

	case "apply", "report", "history":
		group := prefs.GroupByName(sub)
		if group == nil {
			return "", fmt.Errorf("unknown config group: %s", sub)
		}
		return FormatConfigGroups([]ConfigGroup{*group}), nil

	case "set":
		if len(args) < 3 {
			return "", fmt.Errorf("usage: patchctl config set <key> <value>")
		}
		key := args[1]
		value := args[2]
		if err := prefs.Set(key, value); err != nil {
			return "", err
		}
		if err := SavePreferences(*prefs); err != nil {
			return "", fmt.Errorf("failed to save: %w", err)
		}
		return fmt.Sprintf("Set %s = %s", key, prefs.Get(key)), nil

	case "reset":
		*prefs = DefaultPreferences()
		if err := SavePreferences(*prefs); err != nil {
			return "", fmt.Errorf("failed to save: %w", err)
		}
		return "Preferences reset to defaults.", nil

	default:
		return "", fmt.Errorf("usage: patchctl config [show|apply|report|history|set <key> <value>|reset]")
	}
}

// FormatConfigGroups renders config groups as plain text (no ANSI styling).
func FormatConfigGroups(groups []ConfigGroup) string {
	var lines []string
	for i, g := range groups {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, strings.ToUpper(g.Name[:1])+g.Name[1:]+":")
		for _, e := range g.Entries {
			lines = append(lines, fmt.Sprintf("  %-20s %s", e.Key, e.Value))
		}
	}
	lines = append(lines, "")
	lines = append(lines, "  Use patchctl config set <key> <value> to change")
	return strings.Join(lines, "\n")
}
