package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"genreel/internal/clock"
	"genreel/internal/config"
	"genreel/internal/dirs"
	"genreel/internal/logging"
	"genreel/internal/metrics"
	"genreel/internal/model"
	"genreel/internal/pipeline"
	"genreel/internal/session"
	"genreel/internal/source"
	"genreel/internal/ui"
	"genreel/internal/util"
	"genreel/internal/viewstate"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [files...|-|exec:command]",
		Short: "Follow generation jobs from JSON lines files, YAML scripts, job runners, or stdin",
		Long: "Each argument is one job. Files ending in .yaml or .yml are replayed as scripts, " +
			"anything else is read as one JSON event per line. Use - to read JSON lines from stdin, " +
			"or exec:<command> to launch a job runner and follow its stdout. " +
			"Restarting a job (n in the TUI) reopens its source.",
		Example: "  genreel watch runs/42.jsonl\n" +
			"  genreel watch --view player 'exec:python3 runner.py --prompt sunrise'\n" +
			"  job-runner | genreel watch -",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		PreRunE:       runPreRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := runInputsFrom(cmd, args)
			if err != nil {
				return err
			}
			return runExecute(cmd, in, jobSpecs(cmd, in.Sources, clock.Real{}))
		},
	}
	bindWatchFlags(cmd.Flags())
	return cmd
}

func bindWatchFlags(fs *pflag.FlagSet) {
	fs.Bool("no-ui", false, "Disable TUI; use plain textual output")
	fs.String("video-url", "", "Delivered video location, when the stream does not carry one")
	fs.String("metrics-file", "", "Write Prometheus metrics in textfile format when all jobs end")
}

const runInputsKey ctxKey = "runInputs"

func runPreRun(cmd *cobra.Command, args []string) error {
	in, err := assembleRunInputs(cmd, args)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	cmd.SetContext(context.WithValue(cmd.Context(), runInputsKey, in))
	return nil
}

// runInputsFrom returns the inputs stored by runPreRun, assembling them now if it did not run.
func runInputsFrom(cmd *cobra.Command, args []string) (model.WatchOptions, error) {
	if in, ok := cmd.Context().Value(runInputsKey).(model.WatchOptions); ok {
		return in, nil
	}
	in, err := assembleRunInputs(cmd, args)
	if err != nil {
		return model.WatchOptions{}, &ExitError{Code: ExitCLIError, Err: err}
	}
	return in, nil
}

func assembleRunInputs(cmd *cobra.Command, args []string) (model.WatchOptions, error) {
	s := settingsFrom(cmd)
	if _, err := ui.ParseView(s.View); err != nil {
		return model.WatchOptions{}, err
	}
	noUI, _ := cmd.Flags().GetBool("no-ui")
	videoURL, _ := cmd.Flags().GetString("video-url")
	metricsFile, _ := cmd.Flags().GetString("metrics-file")

	videoURL, err := util.NormalizeVideoURL(videoURL)
	if err != nil {
		return model.WatchOptions{}, err
	}

	stdin := 0
	for _, a := range args {
		if a == "-" {
			stdin++
		}
	}
	if stdin > 1 {
		return model.WatchOptions{}, errors.New("stdin (-) can only be watched once")
	}

	return model.WatchOptions{
		Sources:     args,
		View:        s.View,
		NoUI:        noUI,
		VideoURL:    videoURL,
		MetricsFile: metricsFile,
		Grace:       s.Grace,
		Locale:      s.Locale,
		Location:    s.Location,
	}, nil
}

func jobSpecs(cmd *cobra.Command, sources []string, c clock.Clock) []ui.JobSpec {
	specs := make([]ui.JobSpec, 0, len(sources))
	for i, path := range sources {
		spec := ui.JobSpec{ID: fmt.Sprintf("job-%d", i+1), Title: path, Open: source.Open(path, c)}
		if path == "-" {
			in := cmd.InOrStdin()
			spec.Title = "stdin"
			spec.Open = func() (source.Source, error) { return source.NewLineReader(in), nil }
		}
		specs = append(specs, spec)
	}
	return specs
}

func runExecute(cmd *cobra.Command, in model.WatchOptions, jobs []ui.JobSpec) error {
	ctx := cmd.Context()
	log := logging.WithComponent("cli")
	view, _ := ui.ParseView(in.View)

	rec := metrics.New()
	deriver := viewstate.NewDeriver(nil, viewstate.WithLocale(in.Locale), viewstate.WithLocation(in.Location))
	hooks := intentHooks()
	newService := func(jobID string, rep pipeline.Reporter) *pipeline.Service {
		return pipeline.NewService(
			pipeline.WithDeriver(deriver),
			pipeline.WithGraceInterval(in.Grace),
			pipeline.WithVideoLocation(in.VideoURL),
			pipeline.WithHooks(hooks),
			pipeline.WithReporter(rep),
			pipeline.WithMetrics(rec),
			pipeline.WithJobID(jobID),
		)
	}

	// TUI path (auto if TTY and not disabled); stdin carries events, so it cannot carry keys too
	useTUI := !in.NoUI && !in.ReadsStdin() && isTerminal(cmd.OutOrStdout())

	var (
		results []pipeline.Result
		err     error
	)
	if useTUI {
		if lerr := logToFile(settingsFrom(cmd)); lerr != nil {
			return &ExitError{Code: ExitCLIError, Err: lerr}
		}
		results, err = ui.Run(ctx, ui.Options{Jobs: jobs, View: view, Service: newService})
	} else {
		results, err = runText(ctx, cmd.OutOrStdout(), view, jobs, newService)
	}

	if in.MetricsFile != "" {
		if werr := rec.WriteTextfile(in.MetricsFile); werr != nil {
			log.Warn().Err(werr).Str("path", in.MetricsFile).Msg("failed to write metrics")
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	return exitFor(results)
}

// runText runs every job concurrently, printing widgets as plain lines.
func runText(ctx context.Context, w io.Writer, view ui.View, jobs []ui.JobSpec, newService ui.ServiceFactory) ([]pipeline.Result, error) {
	rep := ui.NewTextReporter(w, view, len(jobs) > 1)
	results := make([]pipeline.Result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			svc := newService(job.ID, rep)
			src, err := job.Open()
			if err != nil {
				results[i] = pipeline.Result{JobID: job.ID, Err: fmt.Errorf("open source: %w", err)}
				rep.Result(results[i])
				return nil
			}
			defer src.Close()
			// job failures are reported per job; only cancellation stops the others
			results[i], err = svc.RunJob(gctx, src)
			if errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	return results, g.Wait()
}

// exitFor maps job outcomes to the process exit code. Stream failures outrank job-reported errors.
func exitFor(results []pipeline.Result) error {
	var streamErrs, jobErrs []string
	for _, r := range results {
		switch {
		case r.Err != nil && !errors.Is(r.Err, context.Canceled):
			streamErrs = append(streamErrs, fmt.Sprintf("- %s: %v", r.JobID, r.Err))
		case r.HasState && r.Final.HasError:
			jobErrs = append(jobErrs, fmt.Sprintf("- %s: %s", r.JobID, jobErrorText(r)))
		}
	}
	if len(streamErrs) > 0 {
		return &ExitError{Code: ExitSourceError, Err: fmt.Errorf("%d job stream(s) failed:\n%s", len(streamErrs), strings.Join(streamErrs, "\n"))}
	}
	if len(jobErrs) > 0 {
		return &ExitError{Code: ExitJobError, Err: fmt.Errorf("%d job(s) reported an error:\n%s", len(jobErrs), strings.Join(jobErrs, "\n"))}
	}
	return nil
}

func jobErrorText(r pipeline.Result) string {
	if r.Final.ErrorText != "" {
		return r.Final.ErrorText
	}
	return r.Final.Details
}

// intentHooks records user intents. Acting on them belongs to whatever hosts genreel.
func intentHooks() session.Hooks {
	log := logging.WithComponent("cli")
	return session.Hooks{
		session.IntentDownload: func(url string) {
			log.Info().Str("video_url", url).Msg("download requested")
		},
		session.IntentNavigateAway: func(url string) {
			log.Info().Str("video_url", url).Msg("navigated away")
		},
		session.IntentStartAnother: func(string) {
			log.Info().Msg("start another job requested")
		},
	}
}

// logToFile moves logging off the terminal while the TUI owns it, unless a log file is already set.
func logToFile(s config.Settings) error {
	if s.LogFile != "" {
		return nil
	}
	path, err := dirs.DefaultLogFile()
	if err != nil {
		return err
	}
	return logging.Configure(logging.Config{Level: s.LogLevel, Format: "json", File: path})
}
