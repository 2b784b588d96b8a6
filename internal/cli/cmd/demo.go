package cmd

import (
	"github.com/spf13/cobra"

	"genreel/internal/clock"
	"genreel/internal/source"
	"genreel/internal/ui"
)

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "demo",
		Short:         "Replay a built-in generation run",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PreRunE:       runPreRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := runInputsFrom(cmd, args)
			if err != nil {
				return err
			}
			speed, _ := cmd.Flags().GetFloat64("speed")
			script := source.Demo().Speed(speed)
			job := ui.JobSpec{
				ID:    script.Job,
				Title: "demo: " + script.Job,
				Open: func() (source.Source, error) {
					return script.Source(clock.Real{}), nil
				},
			}
			return runExecute(cmd, in, []ui.JobSpec{job})
		},
	}
	bindWatchFlags(cmd.Flags())
	cmd.Flags().Float64("speed", 1, "Replay speed multiplier")
	return cmd
}
