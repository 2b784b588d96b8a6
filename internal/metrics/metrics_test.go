package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counts(t *testing.T) {
	r := New()
	r.Event("script", "running")
	r.Event("script", "running")
	r.Event("video", "error")
	r.Rejected("unknown_stage")
	r.Ready(3.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.events.WithLabelValues("script", "running")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.events.WithLabelValues("video", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.jobErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.rejected.WithLabelValues("unknown_stage")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.readyTransition))
}

func TestRecorder_NilSafe(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Event("script", "running")
		r.Rejected("x")
		r.Ready(1)
	})
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := New()
	r.Event("completed", "complete")

	path := filepath.Join(t.TempDir(), "genreel.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `genreel_progress_events_total{stage="completed",status="complete"} 1`)
}
