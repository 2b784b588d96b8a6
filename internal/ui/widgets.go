package ui

import (
	"fmt"
	"strings"

	bubblesprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"genreel/internal/pipeline"
	"genreel/internal/util/format"
	"genreel/internal/viewstate"
)

// View selects which widget renders a job.
type View int

const (
	ViewCompact View = iota
	ViewPlayer
)

func (v View) String() string {
	if v == ViewPlayer {
		return "player"
	}
	return "compact"
}

// Toggle switches between the two widgets.
func (v View) Toggle() View {
	if v == ViewPlayer {
		return ViewCompact
	}
	return ViewPlayer
}

// ParseView accepts "compact" or "player".
func ParseView(s string) (View, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "compact":
		return ViewCompact, nil
	case "player":
		return ViewPlayer, nil
	default:
		return ViewCompact, fmt.Errorf("invalid view %q (use compact or player)", s)
	}
}

const defaultPlayerWidth = 40

// Render draws snap with the selected widget.
func Render(v View, snap pipeline.Snapshot, st Styles, width int) string {
	if v == ViewPlayer {
		return RenderPlayer(snap, st, width)
	}
	return RenderCompact(snap, st)
}

// RenderCompact renders: [▓▓▓▒░░░] 4/7 🖼️ Images 40.0%  Creating visuals
func RenderCompact(snap pipeline.Snapshot, st Styles) string {
	vs := snap.State
	counter := st.Faint.Render(fmt.Sprintf("%d/%d", vs.CurrentStageIndex+1, len(vs.Stages)))
	line := fmt.Sprintf("[%s] %s %s %s", stageBar(vs, st), counter, stageLabel(vs, st), format.Percent(vs.DisplayPercent()))
	if badge := statusBadge(snap, st); badge != "" {
		line += "  " + badge
	}
	if vs.Message != "" && !vs.HasError {
		line += "  " + st.JobInfo.Render(vs.Message)
	}
	return line
}

// RenderPlayer renders the full player panel: playback when ready, otherwise the stage breakdown.
func RenderPlayer(snap pipeline.Snapshot, st Styles, width int) string {
	if width <= 0 {
		width = defaultPlayerWidth
	}
	vs := snap.State
	var b strings.Builder

	switch {
	case snap.Ready:
		b.WriteString(st.Success.Render("▶ Ready to play"))
		b.WriteString("\n")
		b.WriteString(st.JobInfo.Render(snap.VideoURL))
		b.WriteString("\n")
		b.WriteString(st.Faint.Render("d: download • n: start another"))
		b.WriteString("\n\n")
	default:
		b.WriteString(stageLabel(vs, st))
		if vs.CurrentStage.Description != "" {
			b.WriteString(st.Faint.Render(" · " + vs.CurrentStage.Description))
		}
		b.WriteString("\n")
		bar := bubblesprogress.New(
			bubblesprogress.WithDefaultGradient(),
			bubblesprogress.WithWidth(width),
			bubblesprogress.WithoutPercentage(),
		)
		b.WriteString(fmt.Sprintf("%s %s\n", bar.ViewAs(vs.DisplayPercent()/100), format.Percent(vs.DisplayPercent())))
		b.WriteString(st.Faint.Render("Overall " + format.Percent(vs.OverallPercent())))
		b.WriteString("\n\n")
	}

	nameWidth := 0
	for _, sp := range vs.Stages {
		nameWidth = max(nameWidth, lipgloss.Width(sp.Stage.DisplayName))
	}
	for i, sp := range vs.Stages {
		marker := st.Faint.Render("·")
		switch {
		case i == vs.CurrentStageIndex && vs.HasError:
			marker = st.Error.Render("✗")
		case sp.Percent >= 100:
			marker = st.Success.Render("✓")
		case i == vs.CurrentStageIndex:
			marker = st.Stage(sp.Stage).Render("▸")
		}
		name := fmt.Sprintf("%-*s", nameWidth, sp.Stage.DisplayName)
		if i == vs.CurrentStageIndex {
			name = st.Stage(sp.Stage).Render(name)
		}
		b.WriteString(fmt.Sprintf("%s %s %s %6s\n", marker, sp.Stage.Icon, name, format.Percent(format.ClampPercent(sp.Percent))))
	}

	if vs.Message != "" {
		b.WriteString("\n")
		b.WriteString(st.JobInfo.Render(vs.Message))
	}
	if vs.HasError {
		b.WriteString("\n")
		b.WriteString(st.Error.Render(errorText(vs)))
	} else if vs.Details != "" {
		b.WriteString("\n")
		b.WriteString(st.Faint.Render(vs.Details))
	}
	if vs.FormattedTimestamp != "" {
		b.WriteString("\n")
		b.WriteString(st.Faint.Render("Updated " + vs.FormattedTimestamp))
	}
	return st.Player.Render(strings.TrimRight(b.String(), "\n"))
}

// stageBar draws one cell per stage, colored with the stage color once it is finished.
func stageBar(vs viewstate.ViewState, st Styles) string {
	var b strings.Builder
	for i, sp := range vs.Stages {
		switch {
		case i == vs.CurrentStageIndex && vs.HasError:
			b.WriteString(st.Error.Render("▒"))
		case sp.Percent >= 100:
			b.WriteString(st.Stage(sp.Stage).Render("▓"))
		case i == vs.CurrentStageIndex:
			b.WriteString(st.Stage(sp.Stage).Render("▒"))
		default:
			b.WriteString(st.Faint.Render("░"))
		}
	}
	return b.String()
}

func stageLabel(vs viewstate.ViewState, st Styles) string {
	label := strings.TrimSpace(vs.CurrentStage.Icon + " " + vs.CurrentStage.DisplayName)
	return st.Stage(vs.CurrentStage).Render(label)
}

func statusBadge(snap pipeline.Snapshot, st Styles) string {
	vs := snap.State
	switch {
	case vs.HasError:
		return st.Error.Render("✗ " + errorText(vs))
	case snap.Ready:
		return st.Success.Render("▶ ready")
	case vs.OverallIsComplete:
		return st.Success.Render("✓ complete")
	}
	return ""
}

// errorText prefers the structured error over free-form details.
func errorText(vs viewstate.ViewState) string {
	switch {
	case vs.ErrorText != "":
		return vs.ErrorText
	case vs.Details != "":
		return vs.Details
	default:
		return "error"
	}
}

// Summarize describes how a job ended in one line.
func Summarize(r pipeline.Result, st Styles) string {
	var line string
	switch {
	case r.Err != nil:
		line = st.Error.Render("✗ " + r.Err.Error())
	case r.HasState && r.Final.HasError:
		line = st.Error.Render("✗ job reported an error: " + errorText(r.Final))
	case r.Ready:
		line = st.Success.Render("✓ ready for playback: " + r.VideoURL)
	case r.HasState && r.Final.OverallIsComplete:
		line = st.Success.Render("✓ complete, waiting for the video location")
	case r.HasState:
		line = st.Warning.Render(fmt.Sprintf("stream ended at %s %s", r.Final.CurrentStage.DisplayName, format.Percent(r.Final.DisplayPercent())))
	default:
		line = st.Warning.Render("stream ended without events")
	}
	if r.Rejected > 0 {
		line += st.Faint.Render(fmt.Sprintf(" (%d event(s) rejected)", r.Rejected))
	}
	return line
}
