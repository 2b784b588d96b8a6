// Package session tracks one generation job as it is shown to the user: the latest derived state,
// the delivered video location, and the one-shot transition into playback.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"genreel/internal/clock"
	"genreel/internal/logging"
	"genreel/internal/progress"
	"genreel/internal/viewstate"
)

// DefaultGraceInterval is how long a finished job stays on the progress view before playback.
const DefaultGraceInterval = time.Second

// ErrClosed is returned by Observe after Close.
var ErrClosed = errors.New("session closed")

// Ready is passed to the OnReady callback when the session switches to playback.
type Ready struct {
	SessionID string
	VideoURL  string
	At        time.Time
}

// Session is safe for concurrent use; the grace timer fires on its own goroutine.
type Session struct {
	id      string
	deriver *viewstate.Deriver
	clock   clock.Clock
	grace   time.Duration
	onReady func(Ready)
	hooks   Hooks
	logger  zerolog.Logger

	mu       sync.Mutex
	state    viewstate.ViewState
	hasState bool
	videoURL string
	pending  clock.Timer
	gen      uint64
	ready    bool
	closed   bool
}

// Option configures a Session.
type Option func(*Session)

// WithID overrides the generated session ID.
func WithID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

// WithDeriver sets the deriver (and therefore the catalog and timestamp locale).
func WithDeriver(d *viewstate.Deriver) Option {
	return func(s *Session) {
		s.deriver = d
	}
}

// WithClock injects the time source used for the grace timer.
func WithClock(c clock.Clock) Option {
	return func(s *Session) {
		s.clock = c
	}
}

// WithGraceInterval sets the delay between a qualifying state and playback. Negative means zero.
func WithGraceInterval(d time.Duration) Option {
	return func(s *Session) {
		if d < 0 {
			d = 0
		}
		s.grace = d
	}
}

// WithOnReady registers the callback invoked exactly once when playback becomes available.
// It runs on the timer goroutine without the session lock held.
func WithOnReady(f func(Ready)) Option {
	return func(s *Session) {
		s.onReady = f
	}
}

// WithVideoLocation seeds the delivered video location.
func WithVideoLocation(url string) Option {
	return func(s *Session) {
		s.videoURL = url
	}
}

// WithHooks registers user intent handlers.
func WithHooks(h Hooks) Option {
	return func(s *Session) {
		s.hooks = h
	}
}

// WithLogger sets the logger; the session ID is attached to it.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// New creates a session for one job. A new job needs a new session.
func New(opts ...Option) *Session {
	s := &Session{
		grace:  DefaultGraceInterval,
		logger: logging.WithComponent("session"),
	}
	for _, o := range opts {
		o(s)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if s.deriver == nil {
		s.deriver = viewstate.NewDeriver(nil)
	}
	if s.clock == nil {
		s.clock = clock.Real{}
	}
	s.logger = s.logger.With().Str("session", s.id).Logger()
	return s
}

func (s *Session) ID() string {
	return s.id
}

// Observe derives ev and makes it the current state.
// Unknown stages are rejected: the previous state is kept and any pending transition is left alone.
func (s *Session) Observe(ev progress.Event) (viewstate.ViewState, error) {
	vs, err := s.deriver.Derive(ev)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return viewstate.ViewState{}, ErrClosed
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("stage", string(ev.Stage)).Msg("rejected progress event")
		return s.state, err
	}

	s.state = vs
	s.hasState = true
	if ev.VideoURL != "" {
		s.videoURL = ev.VideoURL
	}
	s.logger.Debug().
		Str("stage", string(vs.CurrentStage.Key)).
		Float64("percent", vs.Percent).
		Str("status", vs.Status().String()).
		Msg("observed")
	s.evaluateLocked()
	return vs, nil
}

// SetVideoLocation records where the finished video can be fetched and re-evaluates the transition.
func (s *Session) SetVideoLocation(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || url == "" {
		return
	}
	s.videoURL = url
	s.evaluateLocked()
}

func (s *Session) qualifiesLocked() bool {
	return s.hasState &&
		s.state.OverallIsComplete &&
		!s.state.HasError &&
		s.videoURL != ""
}

func (s *Session) evaluateLocked() {
	if s.ready {
		return
	}
	if !s.qualifiesLocked() {
		s.cancelLocked("disqualified")
		return
	}
	if s.pending != nil {
		return
	}
	s.gen++
	gen := s.gen
	s.pending = s.clock.AfterFunc(s.grace, func() { s.fire(gen) })
	s.logger.Debug().Dur("grace", s.grace).Msg("playback transition scheduled")
}

func (s *Session) cancelLocked(reason string) {
	if s.pending == nil {
		return
	}
	s.pending.Stop()
	s.pending = nil
	// invalidates a callback that already started but has not taken the lock yet
	s.gen++
	s.logger.Debug().Str("reason", reason).Msg("playback transition cancelled")
}

func (s *Session) fire(gen uint64) {
	s.mu.Lock()
	if s.closed || s.ready || gen != s.gen || !s.qualifiesLocked() {
		s.mu.Unlock()
		return
	}
	s.ready = true
	s.pending = nil
	r := Ready{SessionID: s.id, VideoURL: s.videoURL, At: s.clock.Now()}
	cb := s.onReady
	s.mu.Unlock()

	s.logger.Info().Str("video_url", r.VideoURL).Msg("ready for playback")
	if cb != nil {
		cb(r)
	}
}

// State returns the latest accepted state; ok is false before the first accepted event.
func (s *Session) State() (vs viewstate.ViewState, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.hasState
}

// ReadyForPlayback stays true once set, whatever later events report.
func (s *Session) ReadyForPlayback() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// TransitionPending reports whether the grace timer is armed.
func (s *Session) TransitionPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// VideoLocation returns the delivered video location, if known.
func (s *Session) VideoLocation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videoURL
}

// Close cancels any pending transition. It is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.cancelLocked("closed")
	s.closed = true
}
