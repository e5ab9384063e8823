package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nilp0inter/monana/api/v1beta1/configs"
	"github.com/nilp0inter/monana/pkg/config"
)

// ConfigArgs holds the --config flag shared by commands that read a
// configuration file.
type ConfigArgs struct {
	ConfigPath string
}

func (ca *ConfigArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ca.ConfigPath, "config", "",
		fmt.Sprintf("Path to the %s configuration file (default %s)", cmdName, configs.GetPath()))

	err := cmd.MarkFlagFilename("config", "yaml", "yml")
	if err != nil {
		panic(fmt.Errorf("mark config flag: %w", err))
	}
}

// Path returns the configuration path, falling back to the default.
func (ca *ConfigArgs) Path() string {
	if ca.ConfigPath != "" {
		return ca.ConfigPath
	}

	return configs.GetPath()
}

// loadConfig reads, schema-validates and decodes the configuration. When
// no path was given and the default file does not exist yet, the default
// configuration is written there first.
func loadConfig(cmd *cobra.Command, ca *ConfigArgs) (*configs.Config, error) {
	path := ca.Path()

	if ca.ConfigPath == "" {
		_, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			if _, err := configs.WriteDefault(path, false); err != nil {
				return nil, err //nolint:wrapcheck // Already wrapped.
			}
		}
	}

	return readConfig(cmd, path)
}

func readConfig(cmd *cobra.Command, path string) (*configs.Config, error) {
	cl, err := config.NewLoaderFromFile(path, configs.New, configs.DefaultValidator,
		config.WithColor(isTerminal(cmd.ErrOrStderr())),
	)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cl.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", path, err)
	}

	cfg, err := cl.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", path, err)
	}

	slog.Debug("loaded configuration",
		slog.String("path", path),
		slog.Int("rulesets", len(cfg.Rulesets)),
		slog.Int("actions", len(cfg.Actions)),
	)

	return cfg, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && term.IsTerminal(int(f.Fd()))
}
