package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type ValidateArgs struct {
	*RootArgs
	ConfigArgs
}

func NewValidateArgs(rootArgs *RootArgs) *ValidateArgs {
	return &ValidateArgs{
		RootArgs: rootArgs,
	}
}

func NewValidateCmd(va *ValidateArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration without processing any file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return validate(cmd, va)
		},
	}
	va.ConfigArgs.AddFlags(cmd)

	return cmd
}

func validate(cmd *cobra.Command, va *ValidateArgs) error {
	path := va.Path()

	cfg, err := readConfig(cmd, path)
	if err != nil {
		return err
	}

	graph, err := cfg.Graph()
	if err != nil {
		return err //nolint:wrapcheck // Configuration errors are self-describing.
	}

	w := cmd.OutOrStdout()

	for _, name := range graph.Order() {
		rs := graph.Ruleset(name)
		mustN(fmt.Fprintf(w, "ruleset %s: input %s, %d rules\n", name, rs.Input, len(rs.Rules)))
	}

	return writeLine(w, fmt.Sprintf("%s is valid", path))
}

func writeLine(w io.Writer, s string) error {
	if _, err := fmt.Fprintln(w, s); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	return nil
}
