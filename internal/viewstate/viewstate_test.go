package viewstate

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"genreel/internal/progress"
)

func percents(vs ViewState) map[progress.StageKey]float64 {
	out := make(map[progress.StageKey]float64, len(vs.Stages))
	for _, s := range vs.Stages {
		out[s.Stage.Key] = s.Percent
	}
	return out
}

func TestDerive_ScenarioA_MidPipeline(t *testing.T) {
	d := NewDeriver(nil)
	vs, err := d.Derive(progress.Event{Stage: "script", Percent: 40, Message: "Writing..."})
	require.NoError(t, err)

	want := map[progress.StageKey]float64{
		progress.StageInitializing: 100,
		progress.StageTitle:        100,
		progress.StageScript:       40,
		progress.StageImages:       0,
		progress.StageVoice:        0,
		progress.StageVideo:        0,
		progress.StageCompleted:    0,
	}
	if diff := cmp.Diff(want, percents(vs)); diff != "" {
		t.Errorf("per-stage progress mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, vs.CurrentStageIndex)
	assert.False(t, vs.OverallIsComplete)
	assert.False(t, vs.HasError)
	assert.Equal(t, StatusRunning, vs.Status())
	assert.Equal(t, "Writing...", vs.Message)
}

func TestDerive_ScenarioB_ErrorWinsOverComplete(t *testing.T) {
	d := NewDeriver(nil)
	vs, err := d.Derive(progress.Event{
		Stage:   progress.StageVideo,
		Percent: 100,
		Details: progress.StringPtr("Error: render failed"),
	})
	require.NoError(t, err)

	assert.True(t, vs.OverallIsComplete)
	assert.True(t, vs.HasError)
	assert.Equal(t, StatusError, vs.Status())
	assert.Equal(t, "Error: render failed", vs.Details)
}

func TestDerive_ScenarioD_UnknownStageFails(t *testing.T) {
	d := NewDeriver(nil)
	vs, err := d.Derive(progress.Event{Stage: "unknown_stage", Percent: 50})

	require.Error(t, err)
	assert.True(t, errors.Is(err, progress.ErrUnknownStage))
	assert.Empty(t, vs.Stages)
}

func TestDerive_ScenarioE_MissingTimestamp(t *testing.T) {
	d := NewDeriver(nil)
	vs, err := d.Derive(progress.Event{Stage: progress.StageTitle, Percent: 10})
	require.NoError(t, err)
	assert.Equal(t, "", vs.FormattedTimestamp)
}

func TestDerive_FormattedTimestamp(t *testing.T) {
	ts := float64(time.Date(2026, 10, 18, 9, 30, 15, 0, time.UTC).Unix())
	tests := []struct {
		name   string
		locale language.Tag
		want   string
	}{
		{name: "en-US", locale: language.AmericanEnglish, want: "9:30:15 AM"},
		{name: "de", locale: language.German, want: "09:30:15"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDeriver(nil, WithLocale(tt.locale), WithLocation(time.UTC))
			vs, err := d.Derive(progress.Event{Stage: progress.StageVoice, Percent: 5, Timestamp: &ts})
			require.NoError(t, err)
			assert.Equal(t, tt.want, vs.FormattedTimestamp)
		})
	}
}

func TestDerive_PerStageInvariant(t *testing.T) {
	d := NewDeriver(nil)
	catalog := d.Catalog()
	for cur, desc := range catalog.All() {
		for _, pct := range []float64{0, 0.5, 33, 99.9, 100, -5, 180} {
			vs, err := d.Derive(progress.Event{Stage: desc.Key, Percent: pct})
			require.NoError(t, err)
			require.Len(t, vs.Stages, catalog.Len())

			for i, s := range vs.Stages {
				switch {
				case i < cur:
					assert.Equal(t, 100.0, s.Percent, "stage %s before %s", s.Stage.Key, desc.Key)
				case i == cur:
					assert.Equal(t, pct, s.Percent, "current stage %s keeps verbatim percent", desc.Key)
				default:
					assert.Equal(t, 0.0, s.Percent, "stage %s after %s", s.Stage.Key, desc.Key)
				}
			}
			assert.Equal(t, pct == 100, vs.OverallIsComplete)
		}
	}
}

func TestDerive_CompletionIndependentOfStage(t *testing.T) {
	d := NewDeriver(nil)
	vs, err := d.Derive(progress.Event{Stage: progress.StageTitle, Percent: 100})
	require.NoError(t, err)
	assert.True(t, vs.OverallIsComplete)
	assert.Equal(t, StatusComplete, vs.Status())

	vs, err = d.Derive(progress.Event{Stage: progress.StageCompleted, Percent: 99})
	require.NoError(t, err)
	assert.False(t, vs.OverallIsComplete)
}

func TestDerive_Idempotent(t *testing.T) {
	d := NewDeriver(nil, WithLocation(time.UTC))
	ev := progress.Event{
		Stage:     progress.StageImages,
		Percent:   61.5,
		Message:   "Painting scene 4",
		Details:   progress.StringPtr("scene 4/6"),
		Timestamp: progress.Float64Ptr(1760000000),
	}
	first, err := d.Derive(ev)
	require.NoError(t, err)
	second, err := d.Derive(ev)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Derive() not idempotent (-first +second):\n%s", diff)
	}
	first.Stages[0].Percent = -1
	assert.Equal(t, 100.0, second.Stages[0].Percent, "snapshots must not share the stages slice")
}

func TestDerive_StructuredErrorAndClearing(t *testing.T) {
	d := NewDeriver(nil)

	vs, err := d.Derive(progress.Event{Stage: progress.StageVoice, Percent: 20, Error: "tts quota exceeded"})
	require.NoError(t, err)
	assert.True(t, vs.HasError)
	assert.Equal(t, "tts quota exceeded", vs.ErrorText)

	vs, err = d.Derive(progress.Event{Stage: progress.StageVoice, Percent: 25, Details: progress.StringPtr("retrying")})
	require.NoError(t, err)
	assert.False(t, vs.HasError, "a later event without the marker clears the error")
}

func TestViewState_DisplayHelpers(t *testing.T) {
	d := NewDeriver(nil)

	vs, err := d.Derive(progress.Event{Stage: progress.StageScript, Percent: 140})
	require.NoError(t, err)
	assert.Equal(t, 140.0, vs.Percent)
	assert.Equal(t, 100.0, vs.DisplayPercent())
	// two finished stages plus the clamped current one, over seven stages
	assert.InDelta(t, 300.0/7.0, vs.OverallPercent(), 1e-9)

	vs, err = d.Derive(progress.Event{Stage: progress.StageInitializing, Percent: -10})
	require.NoError(t, err)
	assert.Equal(t, 0.0, vs.DisplayPercent())
	assert.Equal(t, 0.0, vs.OverallPercent())
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "running", StatusRunning.String())
	assert.Equal(t, "complete", StatusComplete.String())
	assert.Equal(t, "error", StatusError.String())
}
