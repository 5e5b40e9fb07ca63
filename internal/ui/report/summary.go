// # internal/ui/report/summary.go
package report

import (
	"acyclic/internal/data/history"
	"acyclic/internal/engine/breaker"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	cutStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)

	sectionStyle = lipgloss.NewStyle().MarginLeft(2)
)

// Summary is everything the terminal report shows about one build.
type Summary struct {
	Bundle  string
	BuildID string
	Modules int
	Edges   int
	Roots   int
	Order   []string
	Cuts    []breaker.Cut
	// Labels maps module id to a display path.
	Labels  map[string]string
	Diff    *history.PlanDiff
	Written []string
	Elapsed time.Duration
}

func (s Summary) label(id string) string {
	if l, ok := s.Labels[id]; ok && l != "" {
		return l
	}
	return id
}

// Render formats s for a terminal.
func Render(s Summary) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("acyclic: %s", s.Bundle)))
	b.WriteString("\n")
	b.WriteString(sectionStyle.Render(fmt.Sprintf("%d modules, %d edges, %d entry modules", s.Modules, s.Edges, s.Roots)))
	b.WriteString("\n\n")

	if len(s.Cuts) == 0 {
		b.WriteString(successStyle.Render("No circular dependencies."))
		b.WriteString("\n")
	} else {
		b.WriteString(cutStyle.Render(fmt.Sprintf("Banned %d edge(s):", len(s.Cuts))))
		b.WriteString("\n")
		for _, c := range s.Cuts {
			b.WriteString(sectionStyle.Render(fmt.Sprintf("%s -> %s", s.label(c.From), s.label(c.To))))
			b.WriteString("\n")
			if len(c.Cycle) > 0 {
				labels := make([]string, len(c.Cycle))
				for i, id := range c.Cycle {
					labels[i] = s.label(id)
				}
				b.WriteString(sectionStyle.Render(statusStyle.Render("  cycle: " + strings.Join(labels, " -> "))))
				b.WriteString("\n")
			}
		}

		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Hoisting order:"))
		b.WriteString("\n")
		for i, id := range s.Order {
			b.WriteString(sectionStyle.Render(fmt.Sprintf("%d. %s", i+1, s.label(id))))
			b.WriteString("\n")
		}
	}

	if s.Diff != nil {
		b.WriteString("\n")
		b.WriteString(renderDiff(*s.Diff, s.label))
	}

	if len(s.Written) > 0 {
		b.WriteString("\n")
		b.WriteString(statusStyle.Render("Wrote " + strings.Join(s.Written, ", ")))
		b.WriteString("\n")
	}
	if s.BuildID != "" || s.Elapsed > 0 {
		b.WriteString(statusStyle.Render(fmt.Sprintf("build %s in %s", s.BuildID, s.Elapsed.Round(time.Millisecond))))
		b.WriteString("\n")
	}
	return b.String()
}

func renderDiff(d history.PlanDiff, label func(string) string) string {
	if d.Empty() {
		return statusStyle.Render("Plan unchanged since the previous build.") + "\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Since the previous build:"))
	b.WriteString("\n")
	for _, e := range d.Added {
		b.WriteString(sectionStyle.Render(cutStyle.Render(fmt.Sprintf("+ %s -> %s", label(e.From), label(e.To)))))
		b.WriteString("\n")
	}
	for _, e := range d.Removed {
		b.WriteString(sectionStyle.Render(successStyle.Render(fmt.Sprintf("- %s -> %s", label(e.From), label(e.To)))))
		b.WriteString("\n")
	}
	if d.OrderChanged {
		b.WriteString(sectionStyle.Render("hoisting order changed"))
		b.WriteString("\n")
	}
	return b.String()
}
