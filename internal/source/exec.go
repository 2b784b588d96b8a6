package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"genreel/internal/progress"
	"genreel/internal/util"
)

// stderrTailLines is how much runner stderr is kept for error messages.
const stderrTailLines = 5

// execSource runs a job runner and reads its stdout as JSON lines.
type execSource struct {
	spec  util.CmdSpec
	cmd   *exec.Cmd
	lines Source
	tail  *tailWriter

	waitOnce sync.Once
	waitErr  error
}

// Exec returns an opener that starts the runner described by spec on every open.
func Exec(spec util.CmdSpec) Opener {
	return func() (Source, error) {
		path, err := spec.Resolve()
		if err != nil {
			return nil, err
		}
		cmd := spec.Command(path)
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, err
		}
		tail := &tailWriter{max: stderrTailLines}
		cmd.Stderr = tail
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("start %s: %w", spec, err)
		}
		// the pipe is closed by Wait, not by the line reader
		return &execSource{spec: spec, cmd: cmd, lines: NewLineReader(io.NopCloser(stdout)), tail: tail}, nil
	}
}

func (s *execSource) Next(ctx context.Context) (progress.Event, error) {
	ev, err := s.lines.Next(ctx)
	if !errors.Is(err, io.EOF) {
		return ev, err
	}
	if werr := s.wait(); werr != nil {
		msg := fmt.Sprintf("%s: %v", s.spec, werr)
		if t := s.tail.String(); t != "" {
			msg += ": " + t
		}
		return progress.Event{}, errors.New(msg)
	}
	return progress.Event{}, io.EOF
}

// Close stops a runner that is still going.
func (s *execSource) Close() error {
	if s.cmd.ProcessState == nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.wait()
	return nil
}

func (s *execSource) wait() error {
	s.waitOnce.Do(func() { s.waitErr = s.cmd.Wait() })
	return s.waitErr
}

// tailWriter keeps the last max non-empty lines written to it.
type tailWriter struct {
	mu      sync.Mutex
	max     int
	lines   []string
	partial string
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	parts := strings.Split(w.partial+string(p), "\n")
	w.partial = parts[len(parts)-1]
	for _, l := range parts[:len(parts)-1] {
		if l = strings.TrimSpace(l); l != "" {
			w.lines = append(w.lines, l)
		}
	}
	if over := len(w.lines) - w.max; over > 0 {
		w.lines = w.lines[over:]
	}
	return len(p), nil
}

func (w *tailWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	lines := w.lines
	if p := strings.TrimSpace(w.partial); p != "" {
		lines = append(lines[:len(lines):len(lines)], p)
	}
	return strings.Join(lines, " | ")
}
