package ui

import (
	"fmt"
	"io"
	"sync"

	"genreel/internal/pipeline"
)

// TextReporter prints widgets as plain lines for pipes and logs. It is safe for concurrent jobs.
type TextReporter struct {
	mu     sync.Mutex
	w      io.Writer
	view   View
	styles Styles
	width  int
	jobIDs bool
	last   map[string]string
}

// NewTextReporter writes to w. When jobIDs is set every line is prefixed with its job.
func NewTextReporter(w io.Writer, view View, jobIDs bool) *TextReporter {
	return &TextReporter{
		w:      w,
		view:   view,
		styles: DefaultStyles(),
		width:  defaultPlayerWidth,
		jobIDs: jobIDs,
		last:   make(map[string]string),
	}
}

func (r *TextReporter) Update(s pipeline.Snapshot) {
	out := Render(r.view, s, r.styles, r.width)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last[s.JobID] == out {
		return
	}
	r.last[s.JobID] = out
	if r.view == ViewPlayer {
		// multi-line panels get a header instead of a prefix
		if r.jobIDs {
			fmt.Fprintln(r.w, r.styles.Header.Render("== "+s.JobID+" =="))
		}
		fmt.Fprintln(r.w, out)
		return
	}
	r.println(s.JobID, out)
}

func (r *TextReporter) Log(l pipeline.LogLine) {
	st := r.styles.JobInfo
	prefix := ""
	if l.Severity == pipeline.SeverityWarn {
		st = r.styles.Warning
		prefix = "warning: "
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.println(l.JobID, st.Render(prefix+l.Line))
}

func (r *TextReporter) Result(res pipeline.Result) {
	line := Summarize(res, r.styles)
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.last, res.JobID)
	r.println(res.JobID, line)
}

func (r *TextReporter) println(jobID, s string) {
	if r.jobIDs {
		fmt.Fprintf(r.w, "[%s] %s\n", jobID, s)
		return
	}
	fmt.Fprintln(r.w, s)
}
