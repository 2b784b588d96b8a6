package source

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"genreel/internal/clock"
	"genreel/internal/progress"
)

//go:embed demo.yaml
var demoScript string

// Step is one scripted event, emitted After the previous one.
type Step struct {
	After          time.Duration `yaml:"after"`
	progress.Event `yaml:",inline"`
}

// Script is a recorded or hand-written job run.
type Script struct {
	Job      string `yaml:"job"`
	VideoURL string `yaml:"video_url"`
	Steps    []Step `yaml:"steps"`
}

// LoadScript decodes a YAML script.
func LoadScript(r io.Reader) (Script, error) {
	var sc Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return Script{}, errors.New("empty script")
		}
		return Script{}, fmt.Errorf("decode script: %w", err)
	}
	for i, st := range sc.Steps {
		if st.Stage == "" {
			return Script{}, fmt.Errorf("step %d: missing stage", i+1)
		}
		if st.After < 0 {
			return Script{}, fmt.Errorf("step %d: negative delay", i+1)
		}
	}
	return sc, nil
}

// Demo returns the built-in demo run.
func Demo() Script {
	sc, err := LoadScript(strings.NewReader(demoScript))
	if err != nil {
		panic(err)
	}
	return sc
}

// Speed returns a copy whose delays are divided by factor. Non-positive factors leave it unchanged.
func (s Script) Speed(factor float64) Script {
	if factor <= 0 || factor == 1 {
		return s
	}
	steps := make([]Step, len(s.Steps))
	for i, st := range s.Steps {
		st.After = time.Duration(float64(st.After) / factor)
		steps[i] = st
	}
	s.Steps = steps
	return s
}

// Source replays the script in time on c. Steps without a timestamp are stamped when emitted.
// The script's job ID fills steps without one; its video URL is attached to the final step.
func (s Script) Source(c clock.Clock) Source {
	events := make([]Step, len(s.Steps))
	for i, st := range s.Steps {
		if st.JobID == "" {
			st.JobID = s.Job
		}
		if i == len(s.Steps)-1 && st.VideoURL == "" {
			st.VideoURL = s.VideoURL
		}
		events[i] = st
	}
	return &scriptSource{steps: events, clock: c}
}

type scriptSource struct {
	steps []Step
	clock clock.Clock
	next  int
}

func (s *scriptSource) Next(ctx context.Context) (progress.Event, error) {
	if s.next >= len(s.steps) {
		return progress.Event{}, io.EOF
	}
	st := s.steps[s.next]
	if st.After > 0 {
		elapsed := make(chan struct{})
		t := s.clock.AfterFunc(st.After, func() { close(elapsed) })
		select {
		case <-elapsed:
		case <-ctx.Done():
			t.Stop()
			return progress.Event{}, ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return progress.Event{}, err
	}
	s.next++
	ev := st.Event
	if ev.Timestamp == nil {
		ev.Timestamp = progress.Float64Ptr(float64(s.clock.Now().UnixNano()) / float64(time.Second))
	}
	return ev, nil
}

func (s *scriptSource) Close() error { return nil }
