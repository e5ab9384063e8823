package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nilp0inter/monana/pkg/execs"
	"github.com/nilp0inter/monana/pkg/report"
)

type InspectArgs struct {
	*RootArgs
	ConfigArgs

	Output string
}

func NewInspectArgs(rootArgs *RootArgs) *InspectArgs {
	return &InspectArgs{
		RootArgs: rootArgs,
	}
}

func (ia *InspectArgs) AddFlags(cmd *cobra.Command) {
	ia.ConfigArgs.AddFlags(cmd)

	cmd.Flags().StringVarP(&ia.Output, "output", "o", string(report.FormatAuto),
		fmt.Sprintf("Output format, one of: %s", []string{
			string(report.FormatAuto), string(report.FormatTable), string(report.FormatJSON),
		}))
}

func NewInspectCmd(ia *InspectArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the attributes rules and templates see for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspect(cmd, ia, args[0])
		},
	}
	ia.AddFlags(cmd)

	return cmd
}

func inspect(cmd *cobra.Command, ia *InspectArgs, path string) error {
	format, err := report.ParseFormat(ia.Output)
	if err != nil {
		return fmt.Errorf("invalid argument: %w", err)
	}

	cfg, err := loadConfig(cmd, &ia.ConfigArgs)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	builder, err := cfg.NewBuilder(ctx, execs.NewExecutor())
	if err != nil {
		return err //nolint:wrapcheck // Configuration errors are self-describing.
	}

	mc, err := builder.Build(ctx, path)
	if err != nil {
		return fmt.Errorf("inspect %q: %w", path, err)
	}

	attrs, err := mc.Resolve()
	if err != nil {
		slog.Warn("could not checksum file", slog.String("path", path), slog.Any("err", err))
	}

	return report.WriteAttributes(cmd.OutOrStdout(), attrs, format) //nolint:wrapcheck // Already wrapped.
}
