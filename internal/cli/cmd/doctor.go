package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"genreel/internal/config"
	"genreel/internal/dirs"
	"genreel/internal/util/format"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "doctor",
		Short:         "Show resolved configuration and terminal capabilities",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			s := settingsFrom(cmd)

			cfgDir, err := dirs.ConfigDir()
			if err != nil {
				cfgDir = "unavailable: " + err.Error()
			}
			cfgFile := config.ConfigFileUsed()
			if cfgFile == "" {
				cfgFile = "none (defaults, env, and flags only)"
			}
			logFile := s.LogFile
			if logFile == "" {
				logFile = "stderr"
			}
			tuiLog, err := dirs.DefaultLogFile()
			if err != nil {
				tuiLog = "unavailable: " + err.Error()
			}

			fmt.Fprintf(out, "Config dir:   %s\n", cfgDir)
			fmt.Fprintf(out, "Config file:  %s\n", cfgFile)
			fmt.Fprintf(out, "Env prefix:   %s_\n", config.EnvPrefix)
			fmt.Fprintf(out, "Log output:   %s (level %s)\n", logFile, s.LogLevel)
			fmt.Fprintf(out, "TUI log file: %s\n", tuiLog)
			fmt.Fprintf(out, "Stdout TTY:   %v\n", isTerminal(cmd.OutOrStdout()))
			fmt.Fprintf(out, "Stdin TTY:    %v\n", isTerminal(os.Stdin))
			fmt.Fprintf(out, "Locale:       %s (times like %s)\n", s.Locale, format.TimeLayout(s.Locale))
			fmt.Fprintf(out, "Timezone:     %s\n", s.Location)
			fmt.Fprintf(out, "Grace:        %s\n", s.Grace)
			fmt.Fprintf(out, "View:         %s\n", s.View)
			return nil
		},
	}
}
