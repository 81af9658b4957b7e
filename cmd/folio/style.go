package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/eringen/folio/syncer"
)

var (
	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("82"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))
)

// printReport writes a migration report as one line per collection.
func printReport(w io.Writer, r syncer.MigrationReport) {
	fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("Migration to %s", r.Backend)))
	for _, c := range r.Collections {
		line := fmt.Sprintf("  %-13s %s", c.Collection, okStyle.Render(fmt.Sprintf("%d copied", c.Copied)))
		if c.Skipped > 0 {
			line += "  " + warnStyle.Render(fmt.Sprintf("%d skipped", c.Skipped))
		}
		if c.Failed > 0 {
			line += "  " + failStyle.Render(fmt.Sprintf("%d failed", c.Failed))
		}
		fmt.Fprintln(w, line)
	}
	total := fmt.Sprintf("  %d copied, %d failed", r.Copied(), r.Failed())
	if r.Failed() > 0 {
		fmt.Fprintln(w, failStyle.Render(total))
		return
	}
	fmt.Fprintln(w, dimStyle.Render(total))
}
