package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/archer/internal/provisioning"
)

// styleFunc is a single-string styling function.
type styleFunc func(string) string

// sf wraps a lipgloss.Style into a styleFunc.
func sf(s lipgloss.Style) styleFunc {
	return func(str string) string { return s.Render(str) }
}

func renderView(m Model) string {
	var b strings.Builder

	renderHeader(&b, m)
	renderProgressBar(&b, m)
	renderStages(&b, m)

	if len(m.Errors) > 0 {
		renderErrors(&b, m)
	}

	renderFooter(&b, m)

	return b.String()
}

func renderHeader(b *strings.Builder, m Model) {
	b.WriteString(titleStyle.Render("archer: " + m.Title))

	status := " "
	switch {
	case m.Done:
		status += readyStyle.Render("Installed")
	case m.Err != nil:
		status += failedStyle.Render(fmt.Sprintf("Error: %v", m.Err))
	case m.Interrupted:
		status += warningStyle.Render("Interrupted, rolling back")
	default:
		if s, ok := m.activeStage(); ok {
			status += activeStyle.Render(currentSpinner(m.SpinnerFrame)+" ") + warningStyle.Render(s.Name)
		} else {
			status += dimStyle.Render("Starting...")
		}
	}
	b.WriteString(status)
	b.WriteString("\n")
}

func renderProgressBar(b *strings.Builder, m Model) {
	progress := calculateProgress(m)
	barWidth := 40
	if m.Width > 0 && m.Width < 80 {
		barWidth = m.Width - 30
		if barWidth < 10 {
			barWidth = 10
		}
	}
	filled := int(float64(barWidth) * progress)
	if filled > barWidth {
		filled = barWidth
	}

	bar := progressBarFull.Render(strings.Repeat("█", filled)) +
		progressBarEmpty.Render(strings.Repeat("░", barWidth-filled))

	pct := int(progress * 100)
	eta := ""
	if m.EstimatedRemaining > 0 {
		eta = fmt.Sprintf(" ETA %s", formatDuration(m.EstimatedRemaining))
	}
	if m.PerformanceScale != 0 && m.PerformanceScale != 1.0 {
		eta += fmt.Sprintf("  speed x%.2f", m.PerformanceScale)
	}

	fmt.Fprintf(b, "  %s %d%%%s\n", bar, pct, eta)
}

func renderStages(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Stages"))
	b.WriteString("\n")

	for _, s := range m.Stages {
		var icon string
		var style styleFunc
		switch {
		case s.Failed:
			icon = crossMark
			style = sf(failedStyle)
		case s.Done:
			icon = checkMark
			style = sf(readyStyle)
		case s.Active:
			icon = currentSpinner(m.SpinnerFrame)
			style = sf(activeStyle)
		default:
			icon = pending
			style = sf(dimStyle)
		}

		dur := ""
		switch {
		case s.Done:
			dur = formatDuration(s.Duration)
		case s.Active && !s.StartedAt.IsZero():
			dur = formatDuration(m.clock().Sub(s.StartedAt))
		}
		fmt.Fprintf(b, "    %s %-12s %s\n", style(icon), style(s.Name), dimStyle.Render(dur))

		// actions are listed for the stage in progress and for failed ones
		if !s.Active && !s.Failed {
			continue
		}
		for _, a := range s.Actions {
			aIcon, aStyle := actionIcon(a.State, m.SpinnerFrame)
			extra := ""
			if a.Attempt > 1 {
				extra = warningStyle.Render(fmt.Sprintf(" (attempt %d)", a.Attempt))
			}
			fmt.Fprintf(b, "      %s %s%s\n", aStyle(aIcon), aStyle(a.Description), extra)
		}
	}
}

func renderErrors(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Recent Errors"))
	b.WriteString("\n")

	// Show last 3 errors
	start := 0
	if len(m.Errors) > 3 {
		start = len(m.Errors) - 3
	}
	for _, msg := range m.Errors[start:] {
		fmt.Fprintf(b, "    %s %s\n", failedStyle.Render(crossMark), dimStyle.Render(msg))
	}
}

func renderFooter(b *strings.Builder, m Model) {
	elapsed := formatDuration(m.clock().Sub(m.StartTime))
	parts := []string{
		fmt.Sprintf("elapsed: %s", elapsed),
		fmt.Sprintf("actions: %d/%d", len(m.Finished), m.Total),
	}
	keys := "ctrl+c: abort"
	if m.Done || m.Err != nil {
		keys = "q: quit"
	}
	b.WriteString(footerStyle.Render(fmt.Sprintf("  %s  |  %s", strings.Join(parts, "  |  "), keys)))
	b.WriteString("\n")
}

// Helper functions

func statusIcon(ready bool) (string, styleFunc) {
	if ready {
		return checkMark, sf(readyStyle)
	}
	return crossMark, sf(failedStyle)
}

func actionIcon(state provisioning.ActionState, frame int) (string, styleFunc) {
	switch state {
	case provisioning.StateSucceeded:
		return checkMark, sf(readyStyle)
	case provisioning.StateFailed:
		return crossMark, sf(failedStyle)
	case provisioning.StateSkipped:
		return skipMark, sf(dimStyle)
	case provisioning.StateCompensated:
		return undoMark, sf(warningStyle)
	case provisioning.StateRunning:
		return currentSpinner(frame), sf(activeStyle)
	default:
		return pending, sf(dimStyle)
	}
}

func currentSpinner(frame int) string {
	if len(spinnerFrames) == 0 {
		return spinner
	}
	if frame < 0 {
		frame = -frame
	}
	return spinnerFrames[frame%len(spinnerFrames)]
}

func calculateProgress(m Model) float64 {
	if m.Done {
		return 1.0
	}
	if m.Total == 0 {
		return 0
	}
	progress := float64(len(m.Finished)) / float64(m.Total)
	if progress > 1.0 {
		progress = 1.0
	}
	return progress
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
