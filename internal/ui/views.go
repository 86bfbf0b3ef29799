package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// renderMixingView renders the in-progress view.
func renderMixingView(m Model) string {
	var b strings.Builder

	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")
	b.WriteString(renderStepList(m))
	b.WriteString("\n")
	b.WriteString(renderFooter(m))

	return b.String()
}

// renderHeader renders the application header.
func renderHeader(m Model) string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5F5FD7")).
		Render("Mixdown 🎚 - Adaptive Song Mixer")

	subtitle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Italic(true).
		Render(fmt.Sprintf("%s + %s",
			filepath.Base(m.VocalPath), filepath.Base(m.MusicPath)))

	return title + "\n" + subtitle
}

// renderStepList renders the pipeline steps with their status.
func renderStepList(m Model) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#5F5FD7")).
		Padding(0, 1).
		Width(48)

	var content strings.Builder
	for _, step := range m.Steps {
		content.WriteString(renderStep(step))
		content.WriteString("\n")
	}
	return box.Render(strings.TrimRight(content.String(), "\n"))
}

// renderStep renders a single pipeline step line.
func renderStep(step Step) string {
	switch step.Status {
	case StepDone:
		icon := lipgloss.NewStyle().Foreground(lipgloss.Color("#00AA00")).Render("✓")
		return fmt.Sprintf(" %s %-10s %.1fs", icon, step.Name, step.Elapsed.Seconds())
	case StepSkipped:
		icon := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")).Render("~")
		return fmt.Sprintf(" %s %-10s skipped", icon, step.Name)
	case StepRunning:
		icon := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")).Render("⚙")
		return fmt.Sprintf(" %s %-10s %.1fs", icon, step.Name, time.Since(step.StartTime).Seconds())
	default:
		icon := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render("○")
		return fmt.Sprintf(" %s %s", icon, step.Name)
	}
}

// renderFooter renders elapsed time and completion count.
func renderFooter(m Model) string {
	done := 0
	for _, s := range m.Steps {
		if s.Status == StepDone || s.Status == StepSkipped {
			done++
		}
	}
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	return style.Render(fmt.Sprintf("%d/%d steps · elapsed %.1fs · q to quit",
		done, len(m.Steps), time.Since(m.StartTime).Seconds()))
}

// renderCompletionSummary renders the final summary.
func renderCompletionSummary(m Model) string {
	var b strings.Builder

	if m.Err != nil {
		header := lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#D70000")).
			Render("✗ Mix failed")
		b.WriteString(header)
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf("   %v\n", m.Err))
		return b.String()
	}

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00AA00")).
		Render("✨ Mix complete!")
	b.WriteString(header)
	b.WriteString("\n\n")

	skipped := 0
	for _, s := range m.Steps {
		if s.Status == StepSkipped {
			skipped++
		}
	}

	b.WriteString(fmt.Sprintf(" Output:   %s\n", filepath.Base(m.OutputPath)))
	if m.Genre != "" {
		b.WriteString(fmt.Sprintf(" Genre:    %s\n", m.Genre))
	}
	b.WriteString(fmt.Sprintf(" Loudness: %.1f dB\n", m.LoudnessDB))
	b.WriteString(fmt.Sprintf(" Length:   %.1fs\n", m.DurationS))
	if skipped > 0 {
		b.WriteString(fmt.Sprintf(" Note:     %d stage(s) skipped - see the mix report\n", skipped))
	}
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", 48))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Total time: %.1fs\n", time.Since(m.StartTime).Seconds()))

	return b.String()
}
