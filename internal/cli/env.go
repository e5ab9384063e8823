package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var envReplacer = strings.NewReplacer("-", "_", ".", "_")

// bindEnvVars lets every flag of cmd and its subcommands default to a
// MONANA_<FLAG> environment variable, e.g. --metrics-addr reads
// $MONANA_METRICS_ADDR. Flags set on the command line still win. The
// variable name is appended to each flag's usage.
func bindEnvVars(cmd *cobra.Command) {
	bind := func(flag *pflag.Flag) {
		bindFlagToEnv(cmd, flag)
	}

	cmd.PersistentFlags().VisitAll(bind)
	cmd.LocalNonPersistentFlags().VisitAll(bind)

	for _, sub := range cmd.Commands() {
		bindEnvVars(sub)
	}
}

func bindFlagToEnv(cmd *cobra.Command, flag *pflag.Flag) {
	envName := flagToEnvName(flag.Name)

	if !strings.Contains(flag.Usage, envName) {
		flag.Usage = fmt.Sprintf("%s ($%s)", flag.Usage, envName)
	}

	envValue, ok := os.LookupEnv(envName)
	if !ok || flag.Changed {
		return
	}

	if err := flag.Value.Set(envValue); err != nil {
		slog.Warn("ignoring invalid environment variable",
			slog.String("command", cmd.Name()),
			slog.String("env", envName),
			slog.String("value", envValue),
			slog.Any("err", err),
		)
	}
}

func flagToEnvName(flagName string) string {
	return strings.ToUpper(cmdName + "_" + envReplacer.Replace(flagName))
}
