package ui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"genreel/internal/pipeline"
)

// Run launches the TUI for the given jobs and blocks until the user quits.
// It returns the outcome of the latest run of every job.
func Run(ctx context.Context, opts Options) ([]pipeline.Result, error) {
	m := NewModel(ctx, opts)
	prog := tea.NewProgram(m, tea.WithContext(ctx))
	final, err := prog.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		m.cancel()
		return m.Results(), ctx.Err()
	}
	if err != nil {
		return nil, fmt.Errorf("tui: %w", err)
	}
	fm, ok := final.(Model)
	if !ok {
		return m.Results(), nil
	}
	fm.cancel()
	return fm.Results(), nil
}
