package cmd

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"genreel/internal/config"
	"genreel/internal/logging"
	"genreel/internal/session"
)

const (
	ExitOK           = 0
	ExitCLIError     = 1
	ExitUnknownStage = 2
	ExitJobError     = 3
	ExitSourceError  = 4
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

type ctxKey string

const settingsKey ctxKey = "settings"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "genreel",
		Short: "Follow AI video generation jobs from the terminal",
		Long: "genreel turns the raw progress events of a video generation job into a live view: " +
			"which stage is running, how far along it is, whether the job reported an error, " +
			"and the moment the finished video is ready to play.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: rootPreRun,
	}

	// Persistent flags available to all subcommands, bound to config keys
	pf := root.PersistentFlags()
	pf.String("locale", "en-US", "Locale for timestamps (BCP 47, e.g. en-US, de-DE)")
	pf.String("timezone", "Local", "IANA time zone for timestamps")
	pf.Duration("grace", session.DefaultGraceInterval, "Delay between completion and playback")
	pf.String("view", "compact", "Widget: compact or player")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("log-file", "", "Write logs to a rotating file instead of stderr")

	// Subcommands
	root.AddCommand(newWatchCmd())
	root.AddCommand(newDemoCmd())
	root.AddCommand(newDeriveCmd())
	root.AddCommand(newStagesCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newCompletionCmd())

	return root
}

// rootPreRun resolves config (flag > env > file > default) and sets up logging once per invocation.
func rootPreRun(cmd *cobra.Command, _ []string) error {
	if err := config.Init(cmd.Root()); err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	s, err := config.Load()
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	if err := logging.Configure(logging.Config{
		Level:  s.LogLevel,
		Format: s.LogFormat,
		File:   s.LogFile,
		Output: cmd.ErrOrStderr(),
	}); err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	cmd.SetContext(context.WithValue(cmd.Context(), settingsKey, s))
	return nil
}

func settingsFrom(cmd *cobra.Command) config.Settings {
	if s, ok := cmd.Context().Value(settingsKey).(config.Settings); ok {
		return s
	}
	s, _ := config.Load()
	return s
}

// Execute runs the CLI with the provided context.
func Execute(ctx context.Context) error {
	defer logging.Close()
	root := newRootCmd()
	return root.ExecuteContext(ctx)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
