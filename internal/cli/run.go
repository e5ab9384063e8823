package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nilp0inter/monana/pkg/action"
	"github.com/nilp0inter/monana/pkg/execs"
	"github.com/nilp0inter/monana/pkg/log"
	"github.com/nilp0inter/monana/pkg/metrics"
	"github.com/nilp0inter/monana/pkg/pipeline"
	"github.com/nilp0inter/monana/pkg/report"
	"github.com/nilp0inter/monana/pkg/version"
)

const (
	cmdExamples = `  # Organize files with the cmdline rulesets of the default config:
  monana run ~/Downloads/*.jpg

  # Show where files would go without touching them:
  monana run --dry-run IMG_0001.jpg VID_0002.mp4

  # Run only the "sort" ruleset and whatever depends on it:
  monana run --ruleset sort ./incoming/*

  # Run the watch rulesets of a custom config as a daemon:
  monana run --config ./monana.yaml

  # Print the attributes available to rules for a file:
  monana inspect IMG_0001.jpg`

	shutdownTimeout = 5 * time.Second
)

// ErrFailedOutcomes is returned by run when at least one file failed.
var ErrFailedOutcomes = errors.New("some files failed")

type RunArgs struct {
	*RootArgs
	ConfigArgs

	Output        string
	MetricsAddr   string
	TraceEndpoint string
	Rulesets      []string
	Concurrency   int
	DryRun        bool
}

func NewRunArgs(rootArgs *RootArgs) *RunArgs {
	return &RunArgs{
		RootArgs: rootArgs,
	}
}

func (ra *RunArgs) AddFlags(cmd *cobra.Command) {
	ra.ConfigArgs.AddFlags(cmd)

	formats := make([]string, 0, len(report.Formats))
	for _, f := range report.Formats {
		formats = append(formats, string(f))
	}

	cmd.Flags().BoolVarP(&ra.DryRun, "dry-run", "n", false, "Resolve destinations without applying actions")
	cmd.Flags().StringSliceVarP(&ra.Rulesets, "ruleset", "r", nil, "Only run the named rulesets (repeatable)")
	cmd.Flags().StringVarP(&ra.Output, "output", "o", string(report.FormatAuto),
		fmt.Sprintf("Outcome report format, one of: %s", formats))
	cmd.Flags().IntVarP(&ra.Concurrency, "concurrency", "j", 0, "Files processed at once (default from config)")
	cmd.Flags().StringVar(&ra.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics at the specified address")
	cmd.Flags().StringVar(&ra.TraceEndpoint, "trace-endpoint", "", "Export traces to this OTLP gRPC endpoint")

	err := cmd.RegisterFlagCompletionFunc("output",
		cobra.FixedCompletions(formats, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}

	err = cmd.RegisterFlagCompletionFunc("ruleset", rulesetCompletion(ra))
	if err != nil {
		panic(err)
	}
}

func NewRunCmd(ra *RunArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run [files...]",
		Short:   "Process files through the configured rulesets",
		Example: cmdExamples,
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, ra, args)
		},
	}
	ra.AddFlags(cmd)

	return cmd
}

// Try to load config to get available ruleset names.
func rulesetCompletion(ra *RunArgs) cobra.CompletionFunc {
	return func(cmd *cobra.Command, _ []string, _ string) ([]cobra.Completion, cobra.ShellCompDirective) {
		cfg, err := readConfig(cmd, ra.Path())
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		names := make([]string, 0, len(cfg.Rulesets))
		for name := range cfg.Rulesets {
			names = append(names, name)
		}

		slices.Sort(names)

		completions := make([]cobra.Completion, 0, len(names))
		for _, name := range names {
			completions = append(completions, cobra.CompletionWithDesc(name, cfg.Rulesets[name].Input))
		}

		return completions, cobra.ShellCompDirectiveNoFileComp
	}
}

func run(cmd *cobra.Command, ra *RunArgs, files []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	format, err := report.ParseFormat(ra.Output)
	if err != nil {
		return fmt.Errorf("invalid argument: %w", err)
	}

	cfg, err := loadConfig(cmd, &ra.ConfigArgs)
	if err != nil {
		return err
	}

	graph, err := cfg.Graph()
	if err != nil {
		return err //nolint:wrapcheck // Configuration errors are self-describing.
	}

	debounce, poll, err := cfg.WatchTiming()
	if err != nil {
		return err //nolint:wrapcheck // Configuration errors are self-describing.
	}

	shutdownTracing, err := setupTracing(ctx, ra.TraceEndpoint)
	if err != nil {
		return err
	}

	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		shutdownTracing(sctx)
	}()

	ex := execs.NewExecutor()

	builder, err := cfg.NewBuilder(ctx, ex)
	if err != nil {
		return err //nolint:wrapcheck // Configuration errors are self-describing.
	}

	reporter := report.New(cmd.OutOrStdout(), format)
	sinks := pipeline.MultiSink{reporter}

	if ra.MetricsAddr != "" {
		recorder := metrics.NewRecorder()
		sinks = append(sinks, recorder)

		go func() {
			if err := recorder.Serve(ctx, ra.MetricsAddr); err != nil {
				slog.Error("metrics server failed", slog.Any("err", err))
			}
		}()
	}

	concurrency := cfg.Concurrency
	if ra.Concurrency > 0 {
		concurrency = ra.Concurrency
	}

	opts := []pipeline.ExecutorOpt{
		pipeline.WithConcurrency(concurrency),
		pipeline.WithDryRun(ra.DryRun),
		pipeline.WithSink(sinks),
		pipeline.WithWatchTiming(debounce, poll),
		pipeline.WithRulesets(ra.Rulesets...),
	}
	if !ra.DryRun {
		opts = append(opts, pipeline.WithDispatcher(action.NewExecutor(ex)))
	}

	pe, err := pipeline.NewExecutor(graph, builder, opts...)
	if err != nil {
		return err //nolint:wrapcheck // Configuration errors are self-describing.
	}

	logger := slog.Default().With(slog.String("run_id", pe.RunID()))
	ctx = log.NewContext(ctx, logger)

	logger.DebugContext(ctx, "starting run",
		slog.String("version", version.String()),
		slog.Any("files", files),
		slog.Any("rulesets", ra.Rulesets),
		slog.Int("concurrency", concurrency),
		slog.Bool("dry_run", ra.DryRun),
	)

	summary, runErr := pe.Run(ctx, files)

	if err := reporter.Flush(summary); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if runErr != nil {
		return fmt.Errorf("run: %w", runErr)
	}

	if summary.Errors > 0 {
		return fmt.Errorf("%w: %d of %d", ErrFailedOutcomes, summary.Errors, summary.Total())
	}

	return nil
}
