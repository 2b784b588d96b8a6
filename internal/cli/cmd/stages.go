package cmd

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"genreel/internal/progress"
)

func newStagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "stages",
		Short:         "List the pipeline stages in execution order",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for i, d := range progress.DefaultCatalog().All() {
				fmt.Fprintf(out, "%d. %s %-12s %-13s %s", i+1, d.Icon, d.DisplayName, d.Key, d.Description)
				if len(d.Aliases) > 0 {
					aliases := lo.Map(d.Aliases, func(a progress.StageKey, _ int) string { return string(a) })
					fmt.Fprintf(out, " (also: %s)", strings.Join(aliases, ", "))
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}
