package tui

import "github.com/charmbracelet/lipgloss"

var (
	HeaderStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	FooterStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	CodeGutterStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	AddedLineStyle   = lipgloss.NewStyle().Background(lipgloss.Color("22"))
	RemovedLineStyle = lipgloss.NewStyle().Background(lipgloss.Color("52"))
	CursorRowStyle   = lipgloss.NewStyle().Background(lipgloss.Color("237")).Bold(true)
)
