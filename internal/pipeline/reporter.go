package pipeline

import "genreel/internal/viewstate"

// Snapshot is the state handed to renderers after every accepted event and on the playback transition.
type Snapshot struct {
	JobID     string
	SessionID string
	State     viewstate.ViewState
	Ready     bool   // session switched to playback
	VideoURL  string // known delivered location, may be empty
}

// LogSeverity indicates how prominent a log line should be.
type LogSeverity int

const (
	SeverityInfo LogSeverity = iota
	SeverityWarn
)

// LogLine is a human-readable note associated with a job.
type LogLine struct {
	JobID     string
	SessionID string
	Severity  LogSeverity
	Line      string
}

// Result is emitted once per job when its stream ends.
type Result struct {
	JobID     string
	SessionID string
	Events    int  // accepted events
	Rejected  int  // events with unknown stages
	HasState  bool // at least one event was accepted
	Final     viewstate.ViewState
	Ready     bool
	VideoURL  string
	Err       error // stream or context error; a job-reported error is in Final.HasError
}

// Failed reports whether the job ended in an error, either reported by the job or by the stream.
func (r Result) Failed() bool {
	return r.Err != nil || (r.HasState && r.Final.HasError)
}

// Reporter is implemented by UIs or any observer interested in job progress.
// Update may be called from the session timer goroutine.
type Reporter interface {
	Update(s Snapshot)
	Log(l LogLine)
	Result(r Result)
}
