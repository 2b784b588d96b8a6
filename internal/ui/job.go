package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"

	"genreel/internal/pipeline"
	"genreel/internal/source"
)

// JobSpec names one job and how to open its event stream. Open is called again on restart.
type JobSpec struct {
	ID    string
	Title string
	Open  source.Opener
}

type jobState struct {
	spec JobSpec
	runs int

	job    *pipeline.Job
	cancel context.CancelFunc

	snap    pipeline.Snapshot
	hasSnap bool
	result  *pipeline.Result
	notice  string

	spinner spinner.Model

	// recent log lines, kept small
	logsRing []string
}

func newJobState(spec JobSpec, styles Styles) *jobState {
	if spec.Title == "" {
		spec.Title = spec.ID
	}
	sp := spinner.New()
	sp.Style = styles.Spinner
	return &jobState{spec: spec, spinner: sp}
}

func (js *jobState) sessionID() string {
	if js.job == nil {
		return ""
	}
	return js.job.ID()
}

func (js *jobState) done() bool {
	return js.result != nil
}

// reset clears everything tied to the previous run.
func (js *jobState) reset() {
	js.snap = pipeline.Snapshot{}
	js.hasSnap = false
	js.result = nil
	js.notice = ""
	js.logsRing = nil
}
