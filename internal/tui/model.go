// Package tui is a terminal viewer over a single contracts.ApplyResult:
// syntax-highlighted lines, added/removed styling, and next/prev
// navigation driven directly by internal/navigation. It is the
// interactive counterpart of internal/report's static HTML rendering.
package tui

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hunkwright/hunkwright/internal/contracts"
	"github.com/hunkwright/hunkwright/internal/navigation"
)

// Model is the Bubble Tea model for "patchctl view". It holds one
// ApplyResult's derived navigation blocks and a scroll cursor; nothing
// about it touches disk or the engine packages beyond navigation.Analyze.
type Model struct {
	width, height int

	targetPath string
	lines      []string
	blockKind  map[int]navigation.BlockKind
	analyzer   *navigation.Analyzer

	cursor int // 0-based line currently centered/selected
	offset int // 0-based index of the first visible line

	language string
	skipped  []int

	spin  spinner.Model
	ready bool // becomes true once the first WindowSizeMsg sizes the viewport

	quitting bool
}

// NewModel builds a Model over result's text, ready to run with
// tea.NewProgram.
func NewModel(targetPath string, result contracts.ApplyResult, language string) Model {
	analyzer := navigation.Analyze(result)
	kind := make(map[int]navigation.BlockKind)
	for _, b := range analyzer.Blocks() {
		for i := b.Start; i <= b.End; i++ {
			if prev, ok := kind[i]; ok && prev == navigation.Added {
				continue // an added line stays marked added
			}
			kind[i] = b.Kind
		}
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = FooterStyle

	return Model{
		targetPath: targetPath,
		lines:      splitLines(result.Text),
		blockKind:  kind,
		analyzer:   analyzer,
		language:   language,
		skipped:    result.SkippedHunks,
		spin:       sp,
		height:     24,
		width:      80,
	}
}

func (m Model) Init() tea.Cmd {
	return m.spin.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case spinner.TickMsg:
		if m.ready {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "n", "down", "j":
			m.cursor = nextOr(m.analyzer.NextChange(m.cursor))
			m.follow()
		case "p", "up", "k":
			m.cursor = nextOr(m.analyzer.PrevChange(m.cursor))
			m.follow()
		case "g", "home":
			m.cursor = 0
			m.offset = 0
		case "G", "end":
			m.cursor = max(0, len(m.lines)-1)
			m.follow()
		case "pgdown", " ":
			m.scrollBy(m.bodyHeight())
		case "pgup":
			m.scrollBy(-m.bodyHeight())
		}
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(fmt.Sprintf(" %s ", m.targetPath)))
	if !m.ready {
		b.WriteString(" " + m.spin.View() + " sizing viewport")
	}
	b.WriteString("\n")

	end := min(len(m.lines), m.offset+m.bodyHeight())
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderLine(i))
		b.WriteString("\n")
	}

	b.WriteString(m.renderFooter())
	return b.String()
}

// bodyHeight is the number of source lines the viewport can show, leaving
// one row each for the header and footer.
func (m Model) bodyHeight() int {
	if m.height <= 2 {
		return 1
	}
	return m.height - 2
}

// follow adjusts offset so cursor stays within the visible body.
func (m *Model) follow() {
	body := m.bodyHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	} else if m.cursor >= m.offset+body {
		m.offset = m.cursor - body + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m *Model) scrollBy(delta int) {
	m.offset += delta
	if m.offset < 0 {
		m.offset = 0
	}
	maxOffset := max(0, len(m.lines)-m.bodyHeight())
	if m.offset > maxOffset {
		m.offset = maxOffset
	}
}

func (m Model) renderLine(i int) string {
	gutter := CodeGutterStyle.Render(fmt.Sprintf("%4d ", i+1))
	marker := " "
	style := lipgloss.NewStyle()

	if kind, ok := m.blockKind[i]; ok {
		switch kind {
		case navigation.Added:
			marker = "+"
			style = AddedLineStyle
		case navigation.Removed:
			marker = "-"
			style = RemovedLineStyle
		}
	}

	code := highlightLine(m.lines[i], m.language)
	row := fmt.Sprintf("%s%s %s", gutter, marker, code)
	if i == m.cursor {
		return CursorRowStyle.Render(row)
	}
	return style.Render(row)
}

func (m Model) renderFooter() string {
	blocks := m.analyzer.Blocks()
	status := fmt.Sprintf(" line %d/%d · %d change block(s)", m.cursor+1, max(1, len(m.lines)), len(blocks))
	if len(m.skipped) > 0 {
		status += fmt.Sprintf(" · %d hunk(s) skipped", len(m.skipped))
	}
	status += " · n/p next/prev change · q quit"
	return FooterStyle.Render(status)
}

// highlightLine renders one source line through chroma's terminal256
// formatter, falling back to plaintext if the language is unrecognized.
func highlightLine(line, language string) string {
	lang := language
	if lang == "" {
		lang = "plaintext"
	}
	var buf bytes.Buffer
	if err := quick.Highlight(&buf, line, lang, "terminal256", "dracula"); err != nil {
		buf.Reset()
		buf.WriteString(line)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func splitLines(text string) []string {
	trimmed := strings.TrimSuffix(text, "\n")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

// nextOr discards the ValidationError NextChange/PrevChange can only
// return for a negative cursor, which never happens here since m.cursor
// is always kept non-negative.
func nextOr(v int, _ error) int {
	return v
}
