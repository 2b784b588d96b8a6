package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"genreel/internal/progress"
	"genreel/internal/source"
	"genreel/internal/viewstate"
)

func newDeriveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "derive [json]",
		Short: "Derive the view state of one progress event",
		Long: "Reads one JSON progress event from the argument or stdin and prints the derived view state. " +
			"Exits with code 2 when the event names an unknown stage.",
		Example:       `  genreel derive '{"stage":"script","progress":40,"message":"Writing"}'`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			output = strings.ToLower(output)
			if output != "yaml" && output != "json" {
				return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("invalid --output: %q (valid: yaml|json)", output)}
			}

			raw, err := eventInput(cmd, args)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			ev, ok, err := source.ParseLine(raw)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("decode event: %w", err)}
			}
			if !ok {
				return &ExitError{Code: ExitCLIError, Err: errors.New("no event given")}
			}

			s := settingsFrom(cmd)
			vs, err := viewstate.NewDeriver(nil, viewstate.WithLocale(s.Locale), viewstate.WithLocation(s.Location)).Derive(ev)
			if errors.Is(err, progress.ErrUnknownStage) {
				return &ExitError{Code: ExitUnknownStage, Err: err}
			}
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			return writeViewState(cmd.OutOrStdout(), vs, output)
		},
	}
	cmd.Flags().StringP("output", "o", "yaml", "Output format: yaml or json")
	return cmd
}

func eventInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func writeViewState(w io.Writer, vs viewstate.ViewState, output string) error {
	if output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(vs)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(vs); err != nil {
		return err
	}
	return enc.Close()
}
