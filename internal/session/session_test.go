package session

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"genreel/internal/clock"
	"genreel/internal/progress"
)

type readyRecorder struct {
	calls atomic.Int32
	last  atomic.Value
}

func (r *readyRecorder) onReady(rd Ready) {
	r.calls.Add(1)
	r.last.Store(rd)
}

func newTestSession(t *testing.T, opts ...Option) (*Session, *clock.Fake, *readyRecorder) {
	t.Helper()
	fc := clock.NewFake(time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC))
	rec := &readyRecorder{}
	base := []Option{
		WithID("test-session"),
		WithClock(fc),
		WithOnReady(rec.onReady),
		WithLogger(zerolog.Nop()),
	}
	s := New(append(base, opts...)...)
	t.Cleanup(s.Close)
	return s, fc, rec
}

func completed() progress.Event {
	return progress.Event{Stage: progress.StageCompleted, Percent: 100, Message: "Done"}
}

func TestSession_ScenarioC_FiresOnceAfterGrace(t *testing.T) {
	s, fc, rec := newTestSession(t, WithVideoLocation("https://cdn.example/v/42.mp4"))

	_, err := s.Observe(completed())
	require.NoError(t, err)
	assert.True(t, s.TransitionPending())
	assert.False(t, s.ReadyForPlayback(), "must wait for the grace interval")

	fc.Advance(999 * time.Millisecond)
	assert.False(t, s.ReadyForPlayback())

	fc.Advance(time.Millisecond)
	assert.True(t, s.ReadyForPlayback())
	assert.EqualValues(t, 1, rec.calls.Load())

	rd := rec.last.Load().(Ready)
	assert.Equal(t, "test-session", rd.SessionID)
	assert.Equal(t, "https://cdn.example/v/42.mp4", rd.VideoURL)
	assert.Equal(t, fc.Now(), rd.At)
}

func TestSession_MultipleQualifyingEventsFireOnce(t *testing.T) {
	s, fc, rec := newTestSession(t, WithVideoLocation("file:///tmp/out.mp4"))

	for i := 0; i < 3; i++ {
		_, err := s.Observe(completed())
		require.NoError(t, err)
		fc.Advance(400 * time.Millisecond)
	}
	assert.EqualValues(t, 1, rec.calls.Load(), "repeated qualifying events must not reschedule")

	_, err := s.Observe(completed())
	require.NoError(t, err)
	fc.Advance(5 * time.Second)
	assert.EqualValues(t, 1, rec.calls.Load())
	assert.Equal(t, 0, fc.Pending())
}

func TestSession_VideoURLFromEvent(t *testing.T) {
	s, fc, rec := newTestSession(t)

	ev := completed()
	ev.VideoURL = "https://cdn.example/v/7.mp4"
	_, err := s.Observe(ev)
	require.NoError(t, err)
	fc.Advance(time.Second)

	assert.True(t, s.ReadyForPlayback())
	assert.Equal(t, "https://cdn.example/v/7.mp4", s.VideoLocation())
	assert.EqualValues(t, 1, rec.calls.Load())
}

func TestSession_NoLocationNoTransition(t *testing.T) {
	s, fc, rec := newTestSession(t)

	_, err := s.Observe(completed())
	require.NoError(t, err)
	assert.False(t, s.TransitionPending())

	fc.Advance(10 * time.Second)
	assert.False(t, s.ReadyForPlayback())

	s.SetVideoLocation("https://cdn.example/late.mp4")
	assert.True(t, s.TransitionPending(), "late location arms the timer")
	fc.Advance(time.Second)
	assert.True(t, s.ReadyForPlayback())
	assert.EqualValues(t, 1, rec.calls.Load())
}

func TestSession_DisqualifyingEventCancels(t *testing.T) {
	tests := []struct {
		name string
		next progress.Event
	}{
		{name: "job reset", next: progress.Event{Stage: progress.StageInitializing, Percent: 0}},
		{name: "error reported", next: progress.Event{Stage: progress.StageCompleted, Percent: 100, Details: progress.StringPtr("Error: upload failed")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, fc, rec := newTestSession(t, WithVideoLocation("https://cdn.example/x.mp4"))

			_, err := s.Observe(completed())
			require.NoError(t, err)
			fc.Advance(500 * time.Millisecond)

			_, err = s.Observe(tt.next)
			require.NoError(t, err)
			assert.False(t, s.TransitionPending())

			fc.Advance(5 * time.Second)
			assert.False(t, s.ReadyForPlayback())
			assert.EqualValues(t, 0, rec.calls.Load())
		})
	}
}

func TestSession_ErrorWithFullProgressNeverQualifies(t *testing.T) {
	s, fc, rec := newTestSession(t, WithVideoLocation("https://cdn.example/x.mp4"))

	vs, err := s.Observe(progress.Event{Stage: progress.StageVideo, Percent: 100, Details: progress.StringPtr("Error: render failed")})
	require.NoError(t, err)
	assert.True(t, vs.HasError)
	assert.False(t, s.TransitionPending())

	fc.Advance(time.Minute)
	assert.EqualValues(t, 0, rec.calls.Load())

	// a manual retry resumes without recreating the session
	vs, err = s.Observe(completed())
	require.NoError(t, err)
	assert.False(t, vs.HasError)
	fc.Advance(time.Second)
	assert.True(t, s.ReadyForPlayback())
}

func TestSession_ReadyNeverUnfires(t *testing.T) {
	s, fc, _ := newTestSession(t, WithVideoLocation("https://cdn.example/x.mp4"))

	_, err := s.Observe(completed())
	require.NoError(t, err)
	fc.Advance(time.Second)
	require.True(t, s.ReadyForPlayback())

	vs, err := s.Observe(progress.Event{Stage: progress.StageScript, Percent: 10})
	require.NoError(t, err)
	assert.False(t, vs.OverallIsComplete)
	assert.True(t, s.ReadyForPlayback())
}

func TestSession_UnknownStageRejected(t *testing.T) {
	s, fc, rec := newTestSession(t, WithVideoLocation("https://cdn.example/x.mp4"))

	first, err := s.Observe(progress.Event{Stage: progress.StageVoice, Percent: 30})
	require.NoError(t, err)

	vs, err := s.Observe(progress.Event{Stage: "unknown_stage", Percent: 80})
	require.Error(t, err)
	assert.True(t, errors.Is(err, progress.ErrUnknownStage))
	assert.Equal(t, first, vs, "rejected event returns the previous state")

	cur, ok := s.State()
	require.True(t, ok)
	assert.Equal(t, progress.StageVoice, cur.CurrentStage.Key)

	// rejected events do not cancel a pending transition
	_, err = s.Observe(completed())
	require.NoError(t, err)
	_, err = s.Observe(progress.Event{Stage: "bogus"})
	require.Error(t, err)
	assert.True(t, s.TransitionPending())
	fc.Advance(time.Second)
	assert.EqualValues(t, 1, rec.calls.Load())
}

func TestSession_StateBeforeFirstEvent(t *testing.T) {
	s, _, _ := newTestSession(t)
	_, ok := s.State()
	assert.False(t, ok)
	assert.False(t, s.ReadyForPlayback())
}

func TestSession_CloseCancelsPending(t *testing.T) {
	s, fc, rec := newTestSession(t, WithVideoLocation("https://cdn.example/x.mp4"))

	_, err := s.Observe(completed())
	require.NoError(t, err)
	s.Close()
	s.Close()

	fc.Advance(time.Minute)
	assert.EqualValues(t, 0, rec.calls.Load())
	assert.Equal(t, 0, fc.Pending())

	_, err = s.Observe(completed())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSession_RealClockNoLeak(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	fired := make(chan Ready, 1)
	s := New(
		WithLogger(zerolog.Nop()),
		WithGraceInterval(10*time.Millisecond),
		WithVideoLocation("https://cdn.example/x.mp4"),
		WithOnReady(func(r Ready) { fired <- r }),
	)
	_, err := s.Observe(completed())
	require.NoError(t, err)

	select {
	case r := <-fired:
		assert.NotEmpty(t, r.SessionID)
	case <-time.After(2 * time.Second):
		t.Fatal("ready transition did not fire")
	}

	// a second session torn down before the grace interval never fires
	s2 := New(
		WithLogger(zerolog.Nop()),
		WithGraceInterval(time.Hour),
		WithVideoLocation("https://cdn.example/x.mp4"),
		WithOnReady(func(Ready) { t.Error("closed session fired") }),
	)
	_, err = s2.Observe(completed())
	require.NoError(t, err)
	s2.Close()
	s.Close()
}

func TestSession_Dispatch(t *testing.T) {
	got := make(chan string, 1)
	block := make(chan struct{})
	s, _, _ := newTestSession(t,
		WithVideoLocation("https://cdn.example/x.mp4"),
		WithHooks(Hooks{
			IntentDownload: func(url string) {
				<-block
				got <- url
			},
		}),
	)

	assert.True(t, s.Dispatch(IntentDownload), "dispatch returns without waiting for the handler")
	assert.False(t, s.Dispatch(IntentNavigateAway))

	close(block)
	select {
	case url := <-got:
		assert.Equal(t, "https://cdn.example/x.mp4", url)
	case <-time.After(2 * time.Second):
		t.Fatal("hook not invoked")
	}
}
