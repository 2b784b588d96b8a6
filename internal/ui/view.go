package ui

import (
	"fmt"
	"strings"
)

func (m Model) viewHeader() string {
	done, total := 0, len(m.jobOrder)
	for _, id := range m.jobOrder {
		if m.jobs[id].done() {
			done++
		}
	}
	title := m.styles.Title.Render("genreel · video generation")
	sub := m.styles.Subtitle.Render(fmt.Sprintf("Jobs: %d/%d done • view: %s", done, total, m.view))
	return title + "\n" + sub
}

func (m Model) viewJobs() string {
	var b strings.Builder
	for i, id := range m.jobOrder {
		js := m.jobs[id]
		view := ViewCompact
		if m.view == ViewPlayer && i == m.selected {
			view = ViewPlayer
		}
		b.WriteString(m.viewJob(js, i == m.selected, view))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewJob(js *jobState, selected bool, view View) string {
	marker := "  "
	title := m.styles.JobTitle.Render(truncate(js.spec.Title, 48))
	if selected {
		marker = m.styles.Selected.Render("› ")
		title = m.styles.Selected.Render(truncate(js.spec.Title, 48))
	}
	if js.runs > 1 {
		title += m.styles.Faint.Render(fmt.Sprintf(" (run %d)", js.runs))
	}

	var body string
	if js.hasSnap {
		body = Render(view, js.snap, m.styles, m.barWidth())
	} else if js.result == nil {
		body = m.styles.Spinner.Render(js.spinner.View()) + " " + m.styles.Faint.Render("waiting for events")
	}

	lines := []string{marker + title}
	if body != "" {
		lines = append(lines, body)
	}
	if js.result != nil {
		lines = append(lines, Summarize(*js.result, m.styles))
	}
	if js.notice != "" {
		lines = append(lines, m.styles.Warning.Render(js.notice))
	}
	if n := len(js.logsRing); n > 0 && selected {
		lines = append(lines, m.styles.Faint.Render(js.logsRing[n-1]))
	}
	return m.styles.Box.Render(strings.Join(lines, "\n"))
}

func (m Model) viewFooter() string {
	return m.styles.Faint.Render("tab: select • v: view • d: download • n: start another • q: quit")
}

func (m Model) barWidth() int {
	if m.width <= 0 {
		return defaultPlayerWidth
	}
	return min(max(m.width-20, 10), 60)
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if n <= 0 || len(rs) <= n {
		return s
	}
	return string(rs[:n-1]) + "…"
}
