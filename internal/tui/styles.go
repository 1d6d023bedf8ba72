package tui

import "github.com/charmbracelet/lipgloss"

var (
	accentColor = lipgloss.Color("208")
	mutedColor  = lipgloss.Color("245")
	errorColor  = lipgloss.Color("196")

	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	clockStyle     = lipgloss.NewStyle().Bold(true)
	labelStyle     = lipgloss.NewStyle().Foreground(mutedColor).Width(16)
	statisticStyle = lipgloss.NewStyle().Bold(true)
	axisStyle      = lipgloss.NewStyle().Foreground(mutedColor)
	overrunStyle   = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(errorColor)
	noticeStyle    = lipgloss.NewStyle().Foreground(accentColor)
	placeholder    = lipgloss.NewStyle().Foreground(mutedColor).Italic(true).Padding(1, 0)
	frameStyle     = lipgloss.NewStyle().Padding(1, 2)
)
