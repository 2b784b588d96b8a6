package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genreel/internal/clock"
	"genreel/internal/progress"
	"genreel/internal/util"
)

func writeRunner(t *testing.T, body string) string {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "runner.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestExec_ReadsRunnerStdout(t *testing.T) {
	runner := writeRunner(t, `echo '{"stage":"script","progress":40}'
echo 'chatter on stderr' >&2
echo '{"stage":"completed","progress":100,"videoUrl":"https://cdn.example/v.mp4"}'
`)
	src, err := Open(util.ExecPrefix+runner, clock.Real{})()
	require.NoError(t, err)
	defer src.Close()

	ctx := context.Background()
	ev, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, progress.StageScript, ev.Stage)

	ev, err = src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/v.mp4", ev.VideoURL)

	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestExec_FailedRunnerCarriesStderr(t *testing.T) {
	runner := writeRunner(t, `echo '{"stage":"voice","progress":10}'
echo 'voice model unavailable' >&2
exit 3
`)
	src, err := Exec(util.CmdSpec{Path: runner})()
	require.NoError(t, err)
	defer src.Close()

	_, err = src.Next(context.Background())
	require.NoError(t, err)
	_, err = src.Next(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
	assert.Contains(t, err.Error(), "exit status 3")
	assert.Contains(t, err.Error(), "voice model unavailable")
}

func TestExec_CloseStopsRunner(t *testing.T) {
	runner := writeRunner(t, "exec sleep 30\n")
	src, err := Exec(util.CmdSpec{Path: runner})()
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		_ = src.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not stop the runner")
	}
}

func TestExec_MissingRunner(t *testing.T) {
	_, err := Open(util.ExecPrefix+"genreel-no-such-runner", clock.Real{})()
	assert.ErrorContains(t, err, "could not find")

	_, err = Open(util.ExecPrefix+"   ", clock.Real{})()
	assert.ErrorContains(t, err, "empty command")
}

func TestTailWriter(t *testing.T) {
	w := &tailWriter{max: 2}
	_, _ = w.Write([]byte("one\ntwo\n"))
	_, _ = w.Write([]byte("thr"))
	_, _ = w.Write([]byte("ee\nfour"))
	assert.Equal(t, "two | three | four", w.String())
}
