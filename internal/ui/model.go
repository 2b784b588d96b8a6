package ui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"genreel/internal/pipeline"
	"genreel/internal/session"
)

// ServiceFactory builds the pipeline service for one run of a job. The reporter feeds the TUI.
type ServiceFactory func(jobID string, rep pipeline.Reporter) *pipeline.Service

// Options configures the TUI.
type Options struct {
	Jobs    []JobSpec
	View    View
	Service ServiceFactory
	Width   int
}

type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	newService ServiceFactory

	// Jobs
	jobOrder []string
	jobs     map[string]*jobState
	selected int

	// UI
	view          View
	width, height int
	styles        Styles

	// Internal event channel used by reporter to feed tea messages
	eventCh chan tea.Msg
}

func NewModel(ctx context.Context, opts Options) Model {
	c, cancel := context.WithCancel(ctx)
	sty := DefaultStyles()

	jobs := make(map[string]*jobState, len(opts.Jobs))
	order := make([]string, 0, len(opts.Jobs))
	for _, spec := range opts.Jobs {
		jobs[spec.ID] = newJobState(spec, sty)
		order = append(order, spec.ID)
	}

	factory := opts.Service
	if factory == nil {
		factory = func(jobID string, rep pipeline.Reporter) *pipeline.Service {
			return pipeline.NewService(pipeline.WithJobID(jobID), pipeline.WithReporter(rep))
		}
	}

	return Model{
		ctx:        c,
		cancel:     cancel,
		newService: factory,
		jobs:       jobs,
		jobOrder:   order,
		view:       opts.View,
		width:      opts.Width,
		styles:     sty,
		eventCh:    make(chan tea.Msg, 256),
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.listenEventsCmd()}
	for _, id := range m.jobOrder {
		js := m.jobs[id]
		cmds = append(cmds, js.spinner.Tick, m.startJob(js))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case jobUpdateMsg:
		if js := m.jobFor(msg.S.JobID, msg.S.SessionID); js != nil {
			s := msg.S
			// a late update from the event loop must not hide an announced playback
			if js.snap.Ready {
				s.Ready = true
				if s.VideoURL == "" {
					s.VideoURL = js.snap.VideoURL
				}
			}
			js.snap = s
			js.hasSnap = true
		}
		return m, m.listenEventsCmd()

	case jobLogMsg:
		if js := m.jobFor(msg.L.JobID, msg.L.SessionID); js != nil {
			line := strings.TrimRight(msg.L.Line, "\r\n")
			if len(js.logsRing) >= 50 {
				js.logsRing = js.logsRing[1:]
			}
			js.logsRing = append(js.logsRing, line)
		}
		return m, m.listenEventsCmd()

	case jobResultMsg:
		if js := m.jobFor(msg.R.JobID, msg.R.SessionID); js != nil {
			r := msg.R
			js.result = &r
			if r.HasState && !js.hasSnap {
				js.snap = pipeline.Snapshot{JobID: r.JobID, SessionID: r.SessionID, State: r.Final, Ready: r.Ready, VideoURL: r.VideoURL}
				js.hasSnap = true
			}
		}
		return m, m.listenEventsCmd()

	case allDoneMsg:
		return m, tea.Quit
	}

	// Update per-job components (spinner)
	var cmds []tea.Cmd
	for _, id := range m.jobOrder {
		js := m.jobs[id]
		var c tea.Cmd
		js.spinner, c = js.spinner.Update(msg)
		if c != nil {
			cmds = append(cmds, c)
		}
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		for _, id := range m.jobOrder {
			if j := m.jobs[id].job; j != nil {
				j.Dispatch(session.IntentNavigateAway)
			}
		}
		m.cancel()
		return m, tea.Quit

	case "tab", "down", "right", "j":
		if n := len(m.jobOrder); n > 0 {
			m.selected = (m.selected + 1) % n
		}

	case "shift+tab", "up", "left", "k":
		if n := len(m.jobOrder); n > 0 {
			m.selected = (m.selected - 1 + n) % n
		}

	case "v":
		m.view = m.view.Toggle()

	case "d":
		js := m.current()
		if js == nil {
			break
		}
		if js.job == nil || !js.job.ReadyForPlayback() {
			js.notice = "video is not ready yet"
			break
		}
		js.job.Dispatch(session.IntentDownload)
		js.notice = "download requested: " + js.job.VideoLocation()

	case "n":
		js := m.current()
		if js == nil {
			break
		}
		if js.job != nil {
			js.job.Dispatch(session.IntentStartAnother)
		}
		return m, m.startJob(js)
	}
	return m, nil
}

func (m Model) current() *jobState {
	if len(m.jobOrder) == 0 {
		return nil
	}
	return m.jobs[m.jobOrder[m.selected]]
}

// jobFor ignores messages from a run that has since been restarted.
func (m Model) jobFor(jobID, sessionID string) *jobState {
	js, ok := m.jobs[jobID]
	if !ok || js.sessionID() != sessionID {
		return nil
	}
	return js
}

// startJob cancels any previous run of js and starts a new one with a fresh session.
func (m Model) startJob(js *jobState) tea.Cmd {
	if js.cancel != nil {
		js.cancel()
	}
	ctx, cancel := context.WithCancel(m.ctx)
	svc := m.newService(js.spec.ID, teaReporter{ch: m.eventCh, done: m.ctx.Done()})
	j := svc.NewJob()

	js.job, js.cancel = j, cancel
	js.runs++
	js.reset()

	id, open := js.spec.ID, js.spec.Open
	return func() tea.Msg {
		defer cancel()
		defer j.Close()
		if open == nil {
			return jobResultMsg{R: pipeline.Result{JobID: id, SessionID: j.ID(), Err: fmt.Errorf("no source for job %s", id)}}
		}
		src, err := open()
		if err != nil {
			return jobResultMsg{R: pipeline.Result{JobID: id, SessionID: j.ID(), Err: fmt.Errorf("open source: %w", err)}}
		}
		defer src.Close()
		// the result reaches the model through the reporter
		_, _ = svc.Run(ctx, j, src)
		return nil
	}
}

func (m Model) View() string {
	return m.viewHeader() + "\n\n" + m.viewJobs() + m.viewFooter()
}

func (m Model) listenEventsCmd() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
			return allDoneMsg{}
		case msg := <-m.eventCh:
			return msg
		}
	}
}

// Results returns the outcome of the latest run of every job, in order.
// Jobs still running when the program stopped report their last state without an error.
func (m Model) Results() []pipeline.Result {
	out := make([]pipeline.Result, 0, len(m.jobOrder))
	for _, id := range m.jobOrder {
		js := m.jobs[id]
		if js.result != nil {
			out = append(out, *js.result)
			continue
		}
		out = append(out, pipeline.Result{
			JobID:     id,
			SessionID: js.sessionID(),
			HasState:  js.hasSnap,
			Final:     js.snap.State,
			Ready:     js.snap.Ready,
			VideoURL:  js.snap.VideoURL,
		})
	}
	return out
}

type teaReporter struct {
	ch   chan tea.Msg
	done <-chan struct{}
}

func (r teaReporter) Update(s pipeline.Snapshot) {
	select {
	case r.ch <- jobUpdateMsg{S: s}:
	case <-r.done:
	}
}

func (r teaReporter) Log(l pipeline.LogLine) {
	select {
	case r.ch <- jobLogMsg{L: l}:
	default:
	}
}

func (r teaReporter) Result(res pipeline.Result) {
	select {
	case r.ch <- jobResultMsg{R: res}:
	case <-r.done:
	}
}
