package dirs

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "genreel"

// AppName returns the canonical application name for directory paths.
func AppName() string {
	return appName
}

// ConfigDir returns the app's configuration directory.
// - Linux: $XDG_CONFIG_HOME/genreel or ~/.config/genreel
// - macOS: ~/Library/Application Support/genreel
// - Windows: %AppData%/genreel (fallback to os.UserConfigDir)
func ConfigDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", AppName()), nil
	case "linux":
		xdg := os.Getenv("XDG_CONFIG_HOME")
		if xdg != "" {
			return filepath.Join(xdg, AppName()), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", AppName()), nil
	default:
		cfg, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(cfg, AppName()), nil
	}
}

// StateDir returns the app's state directory.
// - Linux: $XDG_STATE_HOME/genreel or ~/.local/state/genreel
// - macOS: ~/Library/Application Support/genreel/state
// - Windows: %LocalAppData%/genreel/state (fallback to ConfigDir/state)
func StateDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", AppName(), "state"), nil
	case "linux":
		xdg := os.Getenv("XDG_STATE_HOME")
		if xdg != "" {
			return filepath.Join(xdg, AppName()), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "state", AppName()), nil
	default:
		if la := os.Getenv("LOCALAPPDATA"); la != "" {
			return filepath.Join(la, AppName(), "state"), nil
		}
		cfg, err := ConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(cfg, "state"), nil
	}
}

// LogDir is where the TUI writes its log file so the screen stays clean.
func LogDir() (string, error) {
	s, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(s, "logs"), nil
}

// DefaultLogFile returns the rotating log file used while the TUI owns the terminal.
func DefaultLogFile() (string, error) {
	d, err := LogDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, AppName()+".log"), nil
}

// Ensure creates the directory if it doesn't exist.
func Ensure(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	return os.MkdirAll(path, 0o755)
}

// EnsureAll ensures the config and log dirs exist.
func EnsureAll() error {
	if p, err := ConfigDir(); err == nil {
		if err := Ensure(p); err != nil {
			return err
		}
	}
	if p, err := LogDir(); err == nil {
		if err := Ensure(p); err != nil {
			return err
		}
	}
	return nil
}
