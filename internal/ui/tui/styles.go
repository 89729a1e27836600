package tui

import "github.com/charmbracelet/lipgloss"

// Palette. The accent is the Arch Linux blue.
var (
	colorAccent = lipgloss.AdaptiveColor{Light: "#0f6fa3", Dark: "#1793d1"}
	colorOK     = lipgloss.AdaptiveColor{Light: "#15803d", Dark: "#22c55e"}
	colorFail   = lipgloss.AdaptiveColor{Light: "#b91c1c", Dark: "#ef4444"}
	colorWarn   = lipgloss.AdaptiveColor{Light: "#a16207", Dark: "#eab308"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#9ca3af", Dark: "#6b7280"}
	colorText   = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#f9fafb"}
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).MarginTop(1)

	readyStyle   = lipgloss.NewStyle().Foreground(colorOK)
	failedStyle  = lipgloss.NewStyle().Foreground(colorFail)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarn)
	dimStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	activeStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorText)

	progressBarFull  = lipgloss.NewStyle().Foreground(colorAccent)
	progressBarEmpty = lipgloss.NewStyle().Foreground(colorMuted)

	footerStyle = lipgloss.NewStyle().Foreground(colorMuted).MarginTop(1)
)

// Row markers stay ASCII so the dashboard renders on the bare Linux console.
const (
	checkMark = "[OK]"
	crossMark = "[!!]"
	spinner   = "[..]"
	pending   = "[  ]"
	warnMark  = "[??]"
	skipMark  = "[--]"
	undoMark  = "[<-]"
)

var spinnerFrames = []string{"[.  ]", "[.. ]", "[...]", "[ ..]", "[  .]", "[   ]"}
