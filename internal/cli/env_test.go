package cli_test

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilp0inter/monana/internal/cli"
)

func findCmd(t *testing.T, root *cobra.Command, name string) *cobra.Command {
	t.Helper()

	cmd, _, err := root.Find([]string{name})
	require.NoError(t, err)
	require.Equal(t, name, cmd.Name())

	return cmd
}

func TestBindEnvVars(t *testing.T) {
	tests := []struct {
		env  map[string]string
		want map[string]string
		name string
		args []string
	}{
		{
			name: "environment fills unset flags",
			env:  map[string]string{"MONANA_LOG_LEVEL": "debug", "MONANA_OUTPUT": "json"},
			want: map[string]string{"log-level": "debug", "output": "json", "log-format": "text"},
		},
		{
			name: "arguments win over environment",
			env:  map[string]string{"MONANA_LOG_LEVEL": "debug", "MONANA_CONCURRENCY": "2"},
			args: []string{"--log-level", "error", "--concurrency", "8"},
			want: map[string]string{"log-level": "error", "concurrency": "8"},
		},
		{
			name: "repeatable flag",
			env:  map[string]string{"MONANA_RULESET": "sort,backup"},
			want: map[string]string{"ruleset": "[sort,backup]"},
		},
		{
			name: "defaults",
			want: map[string]string{"log-level": "info", "output": "auto", "dry-run": "false", "concurrency": "0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			run := findCmd(t, cli.NewRootCmd(), "run")
			require.NoError(t, run.ParseFlags(tt.args))

			for flag, want := range tt.want {
				f := run.Flags().Lookup(flag)
				require.NotNil(t, f, flag)
				assert.Equal(t, want, f.Value.String(), flag)
			}
		})
	}
}

func TestBindEnvVarsInvalidValue(t *testing.T) {
	t.Setenv("MONANA_DRY_RUN", "maybe")

	run := findCmd(t, cli.NewRootCmd(), "run")

	dryRun, err := run.Flags().GetBool("dry-run")
	require.NoError(t, err)
	assert.False(t, dryRun)
}

func TestEnvironmentVariableUsage(t *testing.T) {
	t.Parallel()

	root := cli.NewRootCmd()

	logLevel := root.PersistentFlags().Lookup("log-level")
	require.NotNil(t, logLevel)
	assert.Contains(t, logLevel.Usage, "$MONANA_LOG_LEVEL")

	tests := []struct {
		cmd  string
		flag string
		env  string
	}{
		{cmd: "run", flag: "metrics-addr", env: "$MONANA_METRICS_ADDR"},
		{cmd: "run", flag: "trace-endpoint", env: "$MONANA_TRACE_ENDPOINT"},
		{cmd: "inspect", flag: "config", env: "$MONANA_CONFIG"},
		{cmd: "init", flag: "force", env: "$MONANA_FORCE"},
	}

	for _, tt := range tests {
		f := findCmd(t, root, tt.cmd).Flags().Lookup(tt.flag)
		require.NotNil(t, f, tt.flag)
		assert.Contains(t, f.Usage, tt.env)
	}
}
