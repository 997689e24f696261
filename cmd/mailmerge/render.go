package main

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/badgemerge/internal/core"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	accent  = lipgloss.Color("#2196F3")
	success = lipgloss.Color("#8BC34A")
	warning = lipgloss.Color("#FFC107")
	danger  = lipgloss.Color("#E53935")
	muted   = lipgloss.Color("#8A8F98")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	labelStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(success)
	warnStyle  = lipgloss.NewStyle().Foreground(warning)
	errorStyle = lipgloss.NewStyle().Foreground(danger)
	mutedStyle = lipgloss.NewStyle().Foreground(muted)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1)
)

// renderSummary formats a finished run for the terminal.
func renderSummary(res *core.RunResult) string {
	event := res.MainEvent
	if res.SubEvent != "" {
		event += " / " + res.SubEvent
	}
	output := res.OutputPath
	if output == "" {
		output = mutedStyle.Render(res.Filename + " (not written)")
	}

	lines := []string{
		titleStyle.Render("Mail merge complete"),
		"",
		row("Event", event),
		row("Rule set", res.RuleSet),
		row("Contacts", fmt.Sprintf("%d", res.Rows)),
		row("Columns", fmt.Sprintf("%d", len(res.Columns))),
		row("Workbook", output),
	}
	if res.StatsPath != "" {
		lines = append(lines, row("Report", res.StatsPath))
	}
	lines = append(lines, row("Took", fmt.Sprintf("%dms", res.DurationMs)))

	if len(res.Warnings) > 0 {
		lines = append(lines, "", warnStyle.Render(fmt.Sprintf("%d warnings", len(res.Warnings))))
		for _, w := range res.Warnings {
			lines = append(lines, warnStyle.Render("  ! ")+w)
		}
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func row(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-9s", label)) + " " + value
}

// renderMarkdown renders a report for the terminal. Non-terminals get the
// Markdown unchanged.
func renderMarkdown(md string, styled bool) (string, error) {
	if !styled {
		return md, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	return r.Render(md)
}
