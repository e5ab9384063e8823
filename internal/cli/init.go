package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nilp0inter/monana/api/v1beta1/configs"
)

type InitArgs struct {
	*RootArgs
	ConfigArgs

	Force bool
}

func NewInitArgs(rootArgs *RootArgs) *InitArgs {
	return &InitArgs{
		RootArgs: rootArgs,
	}
}

func NewInitCmd(ia *InitArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration and its JSON schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := ia.Path()

			wrote, err := configs.WriteDefault(path, ia.Force)
			if err != nil {
				return err //nolint:wrapcheck // Already wrapped.
			}

			if !wrote {
				return writeLine(cmd.OutOrStdout(), fmt.Sprintf("%s already exists, use --force to replace it", path))
			}

			return writeLine(cmd.OutOrStdout(), "wrote "+path)
		},
	}
	ia.ConfigArgs.AddFlags(cmd)
	cmd.Flags().BoolVarP(&ia.Force, "force", "f", false, "Replace an existing configuration, keeping a backup")

	return cmd
}
