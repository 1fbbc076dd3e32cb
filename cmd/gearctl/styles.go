package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/meur/gearforge/internal/resultview"
)

var (
	colorSuccess = lipgloss.Color("#3FA66A")
	colorDanger  = lipgloss.Color("#D05353")
	colorInfo    = lipgloss.Color("#4F86C6")
	colorAccent  = lipgloss.Color("#C9A227")
	colorMuted   = lipgloss.Color("#9AA0AA")
)

var (
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(colorDanger).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(colorInfo)
	titleStyle   = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	keyStyle     = lipgloss.NewStyle().Foreground(colorMuted).Width(10)

	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)
	exoticStyle = sectionStyle.BorderForeground(colorAccent)
)

func notifySuccess(w io.Writer, msg string) { fmt.Fprintln(w, successStyle.Render("✓ "+msg)) }
func notifyError(w io.Writer, msg string)   { fmt.Fprintln(w, errorStyle.Render("✗ "+msg)) }
func notifyInfo(w io.Writer, msg string)    { fmt.Fprintln(w, infoStyle.Render(msg)) }

// printDocument renders a parsed build result for the terminal
func printDocument(w io.Writer, doc resultview.Document) {
	for _, b := range doc.Blocks {
		if b.Status != nil {
			if b.Status.OK {
				notifySuccess(w, b.Status.Text)
			} else {
				notifyError(w, b.Status.Text)
			}
			continue
		}
		fmt.Fprintln(w, renderSection(b.Section))
	}
}

func renderSection(s *resultview.Section) string {
	var lines []string
	lines = append(lines, titleStyle.Render(s.Title))
	lines = append(lines, renderRows(s.Rows, "")...)

	for _, c := range s.Cards {
		head := c.Name
		if len(c.Tags) > 0 {
			head += " " + mutedStyle.Render("["+strings.Join(c.Tags, "] [")+"]")
		}
		lines = append(lines, head)
		lines = append(lines, renderRows(c.Rows, "  ")...)
		for _, g := range c.Groups {
			items := make([]string, 0, len(g.Rows))
			for _, r := range g.Rows {
				items = append(items, strings.TrimSpace(r.Key+" "+r.Value))
			}
			lines = append(lines, "  "+keyStyle.Render(g.Label)+" "+strings.Join(items, ", "))
		}
	}

	style := sectionStyle
	if s.Exotic {
		style = exoticStyle
	}
	return style.Render(strings.Join(lines, "\n"))
}

func renderRows(rows []resultview.Row, indent string) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, indent+keyStyle.Render(r.Key)+" "+r.Value)
	}
	return out
}
