// Package pipeline drives one generation job from its event stream to its renderers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"genreel/internal/clock"
	"genreel/internal/logging"
	"genreel/internal/metrics"
	"genreel/internal/progress"
	"genreel/internal/session"
	"genreel/internal/source"
	"genreel/internal/viewstate"
)

// Service wires a source, a session, and a reporter for one job.
type Service struct {
	deriver   *viewstate.Deriver
	clock     clock.Clock
	grace     time.Duration
	videoURL  string
	hooks     session.Hooks
	reporter  Reporter
	metrics   *metrics.Recorder
	logger    zerolog.Logger
	jobID     string
	waitReady bool
}

// Option configures a Service.
type Option func(*Service)

// WithDeriver sets the deriver used by every session (catalog, locale, time zone).
func WithDeriver(d *viewstate.Deriver) Option {
	return func(s *Service) {
		s.deriver = d
	}
}

// WithClock injects the time source for the grace timer.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// WithGraceInterval sets the delay before playback.
func WithGraceInterval(d time.Duration) Option {
	return func(s *Service) {
		s.grace = d
	}
}

// WithVideoLocation supplies the delivered video location out of band.
func WithVideoLocation(url string) Option {
	return func(s *Service) {
		s.videoURL = url
	}
}

// WithHooks registers user intent handlers on each session.
func WithHooks(h session.Hooks) Option {
	return func(s *Service) {
		s.hooks = h
	}
}

// WithReporter attaches a progress reporter.
func WithReporter(rp Reporter) Option {
	return func(s *Service) {
		s.reporter = rp
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithJobID sets the job ID associated with reporter events.
func WithJobID(id string) Option {
	return func(s *Service) {
		s.jobID = id
	}
}

// WithWaitForReady controls whether RunJob waits for a pending playback transition after the stream ends.
func WithWaitForReady(wait bool) Option {
	return func(s *Service) {
		s.waitReady = wait
	}
}

// NewService constructs a Service, filling defaults for missing components.
func NewService(opts ...Option) *Service {
	s := &Service{
		grace:     session.DefaultGraceInterval,
		logger:    logging.WithComponent("pipeline"),
		waitReady: true,
	}
	for _, o := range opts {
		o(s)
	}
	if s.deriver == nil {
		s.deriver = viewstate.NewDeriver(nil)
	}
	if s.clock == nil {
		s.clock = clock.Real{}
	}
	if s.reporter == nil {
		s.reporter = nopReporter{}
	}
	s.logger = s.logger.With().Str("job", s.jobID).Logger()
	return s
}

// Job is a session together with the signal of its playback transition.
type Job struct {
	*session.Session
	ready   chan struct{}
	started time.Time
}

// Ready is closed when the session switches to playback.
func (j *Job) Ready() <-chan struct{} {
	return j.ready
}

// NewJob creates a fresh session for one run of the job. The caller closes it.
func (s *Service) NewJob() *Job {
	j := &Job{ready: make(chan struct{}), started: s.clock.Now()}
	j.Session = session.New(
		session.WithDeriver(s.deriver),
		session.WithClock(s.clock),
		session.WithGraceInterval(s.grace),
		session.WithVideoLocation(s.videoURL),
		session.WithHooks(s.hooks),
		session.WithLogger(logging.WithComponent("session").With().Str("job", s.jobID).Logger()),
		session.WithOnReady(func(r session.Ready) {
			s.metrics.Ready(r.At.Sub(j.started).Seconds())
			vs, _ := j.State()
			s.reporter.Update(Snapshot{
				JobID:     s.jobID,
				SessionID: r.SessionID,
				State:     vs,
				Ready:     true,
				VideoURL:  r.VideoURL,
			})
			close(j.ready)
		}),
	)
	return j
}

// RunJob runs src through a new session until the stream ends.
// It never prints; progress goes to the Reporter, which also receives a final Result.
func (s *Service) RunJob(ctx context.Context, src source.Source) (Result, error) {
	j := s.NewJob()
	defer j.Close()
	return s.Run(ctx, j, src)
}

// Run feeds src into an existing job. Rejected events are reported and skipped.
func (s *Service) Run(ctx context.Context, j *Job, src source.Source) (Result, error) {
	res := Result{JobID: s.jobID, SessionID: j.ID()}
	res.Err = s.consume(ctx, j, src, &res)
	s.finalize(j, &res)
	s.reporter.Result(res)
	return res, res.Err
}

func (s *Service) consume(ctx context.Context, j *Job, src source.Source, res *Result) error {
	for {
		ev, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read events: %w", err)
		}

		vs, err := j.Observe(ev)
		switch {
		case errors.Is(err, progress.ErrUnknownStage):
			res.Rejected++
			s.metrics.Rejected("unknown_stage")
			s.reporter.Log(LogLine{JobID: s.jobID, SessionID: j.ID(), Severity: SeverityWarn, Line: err.Error()})
			continue
		case err != nil:
			return err
		}

		res.Events++
		s.metrics.Event(string(vs.CurrentStage.Key), vs.Status().String())
		s.reporter.Update(Snapshot{
			JobID:     s.jobID,
			SessionID: j.ID(),
			State:     vs,
			Ready:     j.ReadyForPlayback(),
			VideoURL:  j.VideoLocation(),
		})
	}

	if s.waitReady && j.TransitionPending() {
		s.logger.Debug().Msg("stream ended, waiting for playback transition")
		select {
		case <-j.Ready():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Service) finalize(j *Job, res *Result) {
	res.Final, res.HasState = j.State()
	res.Ready = j.ReadyForPlayback()
	res.VideoURL = j.VideoLocation()

	ev := s.logger.Info()
	if res.Failed() {
		ev = s.logger.Warn()
	}
	ev.Int("events", res.Events).
		Int("rejected", res.Rejected).
		Bool("ready", res.Ready).
		AnErr("err", res.Err).
		Msg("job finished")
}

type nopReporter struct{}

func (nopReporter) Update(Snapshot) {}
func (nopReporter) Log(LogLine)     {}
func (nopReporter) Result(Result)   {}
