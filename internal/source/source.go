// Package source decodes progress event streams produced by the generation job.
package source

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"genreel/internal/clock"
	"genreel/internal/progress"
	"genreel/internal/util"
)

// Source yields events in arrival order and io.EOF at the end of the stream.
type Source interface {
	Next(ctx context.Context) (progress.Event, error)
	Close() error
}

// Opener creates a fresh Source; restarting a job opens its stream again.
type Opener func() (Source, error)

// ParseLine decodes one JSON line. Blank lines and '#' comments return ok=false with no error.
func ParseLine(line string) (ev progress.Event, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return progress.Event{}, false, nil
	}
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		return progress.Event{}, false, err
	}
	if ev.Stage == "" {
		return progress.Event{}, false, fmt.Errorf("missing stage")
	}
	return ev, true, nil
}

type lineReader struct {
	sc     *bufio.Scanner
	closer io.Closer
	line   int
}

// NewLineReader reads JSON lines from r. If r is an io.Closer it is closed by Close.
func NewLineReader(r io.Reader) Source {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	lr := &lineReader{sc: sc}
	if c, ok := r.(io.Closer); ok && r != os.Stdin {
		lr.closer = c
	}
	return lr
}

func (l *lineReader) Next(ctx context.Context) (progress.Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return progress.Event{}, err
		}
		if !l.sc.Scan() {
			if err := l.sc.Err(); err != nil {
				return progress.Event{}, err
			}
			return progress.Event{}, io.EOF
		}
		l.line++
		ev, ok, err := ParseLine(l.sc.Text())
		if err != nil {
			return progress.Event{}, fmt.Errorf("line %d: %w", l.line, err)
		}
		if ok {
			return ev, nil
		}
	}
}

func (l *lineReader) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

type sliceSource struct {
	events []progress.Event
	next   int
}

// NewSlice serves a fixed list of events.
func NewSlice(events ...progress.Event) Source {
	return &sliceSource{events: events}
}

func (s *sliceSource) Next(ctx context.Context) (progress.Event, error) {
	if err := ctx.Err(); err != nil {
		return progress.Event{}, err
	}
	if s.next >= len(s.events) {
		return progress.Event{}, io.EOF
	}
	ev := s.events[s.next]
	s.next++
	return ev, nil
}

func (s *sliceSource) Close() error { return nil }

// Open returns an opener for path: "-" is stdin, "exec:<command>" launches a job runner and reads
// its stdout, .yaml/.yml files are scripts replayed on c, anything else is read as JSON lines.
func Open(path string, c clock.Clock) Opener {
	return func() (Source, error) {
		if path == "-" {
			return NewLineReader(os.Stdin), nil
		}
		if spec, ok, err := util.ParseExec(path); ok {
			if err != nil {
				return nil, err
			}
			return Exec(spec)()
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			f, err := os.Open(path)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			sc, err := LoadScript(f)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			return sc.Source(c), nil
		default:
			f, err := os.Open(path)
			if err != nil {
				return nil, err
			}
			return NewLineReader(f), nil
		}
	}
}
