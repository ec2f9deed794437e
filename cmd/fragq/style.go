package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	fq "github.com/timzifer/fragmented_queue"
	"github.com/timzifer/fragmented_queue/internal/store"
)

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205"))

	labelStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Width(16)

	featureStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("86"))
)

func renderSummary(path string, q *fq.Queue) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(path))
	b.WriteString("\n")

	row := func(label string, value any) {
		b.WriteString(labelStyle.Render(label))
		fmt.Fprintf(&b, "%v\n", value)
	}
	row("entries", q.Len())
	row("dimension", q.Dimension())
	row("total strength", q.TotalStrength())
	row("full", q.IsFull())

	summaries := q.FeatureSummaries()
	row("feature groups", len(summaries))
	for _, s := range summaries {
		line := fmt.Sprintf("  step %d  strength %g  group %d..%d", s.Index, s.Strength, s.Group[0], s.Group[len(s.Group)-1])
		b.WriteString(featureStyle.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

func renderRecords(pop string, records []store.Record) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s (%d queues)", pop, len(records))))
	b.WriteString("\n")
	for _, r := range records {
		fmt.Fprintf(&b, "%s  gen %-4d  len %-5d  dim %-4d  total %g\n",
			r.ID, r.Generation, r.Length, r.Dimension, r.TotalStrength)
	}
	return b.String()
}

func renderEvolution(pop string, generation uint64, members int, attempts, failures uint64, dropped int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(pop))
	b.WriteString("\n")
	row := func(label string, value any) {
		b.WriteString(labelStyle.Render(label))
		fmt.Fprintf(&b, "%v\n", value)
	}
	row("generation", generation)
	row("members", members)
	row("attempts", attempts)
	row("failures", failures)
	row("dropped", dropped)
	return b.String()
}

func renderPopulations(names []string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%d populations", len(names))))
	b.WriteString("\n")
	for _, name := range names {
		b.WriteString(featureStyle.Render("  " + name))
		b.WriteString("\n")
	}
	return b.String()
}
