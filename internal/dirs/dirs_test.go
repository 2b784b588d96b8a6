package dirs

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestXDGDirs(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG layout applies to linux only")
	}
	cfg := t.TempDir()
	state := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", cfg)
	t.Setenv("XDG_STATE_HOME", state)

	tests := []struct {
		name string
		fn   func() (string, error)
		want string
	}{
		{name: "config", fn: ConfigDir, want: filepath.Join(cfg, "genreel")},
		{name: "state", fn: StateDir, want: filepath.Join(state, "genreel")},
		{name: "logs", fn: LogDir, want: filepath.Join(state, "genreel", "logs")},
		{name: "log file", fn: DefaultLogFile, want: filepath.Join(state, "genreel", "logs", "genreel.log")},
	}
	for _, tt := range tests {
		got, err := tt.fn()
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestEnsureAll(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG layout applies to linux only")
	}
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(base, "cfg"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(base, "state"))

	if err := EnsureAll(); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	for _, p := range []string{filepath.Join(base, "cfg", "genreel"), filepath.Join(base, "state", "genreel", "logs")} {
		if fi, err := os.Stat(p); err != nil || !fi.IsDir() {
			t.Errorf("expected directory %s", p)
		}
	}
	if err := Ensure(""); err == nil {
		t.Error("Ensure(\"\") should fail")
	}
}
