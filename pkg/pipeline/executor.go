package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/nilp0inter/monana/pkg/action"
	"github.com/nilp0inter/monana/pkg/log"
	"github.com/nilp0inter/monana/pkg/mediactx"
	"github.com/nilp0inter/monana/pkg/source"
	"github.com/nilp0inter/monana/pkg/template"
)

// ContextBuilder builds the media context of a file.
type ContextBuilder interface {
	Build(ctx context.Context, path string) (*mediactx.MediaContext, error)
}

// Executor runs files through a [Graph] of rulesets.
type Executor struct {
	graph      *Graph
	builder    ContextBuilder
	resolver   *template.Resolver
	dispatcher action.Dispatcher
	sink       OutcomeSink
	tracer     trace.Tracer
	selected   map[string]bool
	runID      string
	only       []string
	watch      source.WatchOptions

	concurrency int
	dryRun      bool
}

// ExecutorOpt configures an [Executor].
type ExecutorOpt func(*Executor)

// WithConcurrency bounds the number of files processed at once. It
// defaults to the number of CPUs.
func WithConcurrency(n int) ExecutorOpt {
	return func(e *Executor) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithDryRun resolves every destination without applying actions.
func WithDryRun(dryRun bool) ExecutorOpt {
	return func(e *Executor) {
		e.dryRun = dryRun
	}
}

// WithSink sets where outcomes are reported.
func WithSink(s OutcomeSink) ExecutorOpt {
	return func(e *Executor) {
		e.sink = s
	}
}

// WithDispatcher overrides the action dispatcher.
func WithDispatcher(d action.Dispatcher) ExecutorOpt {
	return func(e *Executor) {
		e.dispatcher = d
	}
}

// WithResolver overrides the destination resolver.
func WithResolver(r *template.Resolver) ExecutorOpt {
	return func(e *Executor) {
		e.resolver = r
	}
}

// WithWatchTiming sets the watch debounce and poll interval.
func WithWatchTiming(debounce, pollInterval time.Duration) ExecutorOpt {
	return func(e *Executor) {
		e.watch.Debounce = debounce
		e.watch.PollInterval = pollInterval
	}
}

// WithRulesets limits the run to the named rulesets, the rulesets they
// consume from and the rulesets consuming from them.
func WithRulesets(names ...string) ExecutorOpt {
	return func(e *Executor) {
		e.only = names
	}
}

// NewExecutor creates an [Executor].
func NewExecutor(graph *Graph, builder ContextBuilder, opts ...ExecutorOpt) (*Executor, error) {
	e := &Executor{
		graph:       graph,
		builder:     builder,
		concurrency: runtime.NumCPU(),
		tracer:      otel.Tracer("pipeline"),
		runID:       uuid.NewString(),
	}
	for _, opt := range opts {
		opt(e)
	}

	selected, err := graph.Select(e.only...)
	if err != nil {
		return nil, err
	}

	e.selected = selected

	if e.resolver == nil {
		e.resolver = template.NewResolver()
	}

	if e.dispatcher == nil {
		if e.dryRun {
			e.dispatcher = action.DryRun{}
		} else {
			e.dispatcher = action.NewExecutor(nil)
		}
	}

	return e, nil
}

// RunID identifies the outcomes of this executor.
func (e *Executor) RunID() string {
	return e.runID
}

// Run discovers files from every selected root input and processes them.
// files feeds cmdline inputs. One-shot inputs finish on their own; watch
// inputs run until ctx is done. Run returns once in-flight files finish.
// Per-file failures are reported as outcomes, not errors; the returned
// error only reports inputs that could not be read.
func (e *Executor) Run(ctx context.Context, files []string) (Summary, error) {
	counter := &summaryCounter{}
	sink := MultiSink{counter, e.sink}

	var (
		work      errgroup.Group
		producers errgroup.Group
	)

	work.SetLimit(e.concurrency)

	logger := log.WithContext(ctx).With(slog.String("run_id", e.runID))
	ctx = log.NewContext(ctx, logger)

	for _, group := range e.graph.Roots() {
		var active []*Ruleset

		for _, rs := range group {
			if e.selected[rs.Name] {
				active = append(active, rs)
			}
		}

		if len(active) == 0 {
			continue
		}

		var inflight sync.WaitGroup

		emit := func(ctx context.Context, path string) {
			inflight.Add(1)

			// Started files run to completion even on shutdown.
			fileCtx := context.WithoutCancel(ctx)

			work.Go(func() error {
				defer inflight.Done()

				e.processFile(fileCtx, active, path, sink)

				return nil
			})
		}

		input, opts := active[0].Input, active[0].Source

		switch input.Kind {
		case InputCmdline:
			if len(files) == 0 {
				continue
			}

			producers.Go(func() error {
				return source.Expand(ctx, files, opts, emit)
			})

		case InputPath:
			producers.Go(func() error {
				return source.Scan(ctx, input.Value, opts, emit)
			})

		case InputWatch:
			wopts := e.watch
			wopts.Options = opts
			wopts.Filter = active[0].Filter

			w, err := source.NewWatcher(input.Value, wopts)
			if err != nil {
				return counter.get(), fmt.Errorf("ruleset %q: %w", active[0].Name, err)
			}

			producers.Go(func() error {
				return w.Run(ctx, emit, inflight.Wait)
			})

		case InputRuleset:
		}
	}

	perr := producers.Wait()

	_ = work.Wait() //nolint:errcheck // Workers never fail.

	if errors.Is(perr, context.Canceled) {
		perr = nil
	}

	summary := counter.get()

	logger.InfoContext(ctx, "run finished",
		slog.Int("applied", summary.Applied),
		slog.Int("dry_run", summary.DryRun),
		slog.Int("no_match", summary.NoMatch),
		slog.Int("errors", summary.Errors),
	)

	return summary, perr
}

// processFile builds the context of path once and passes it through every
// ruleset in group, in order.
func (e *Executor) processFile(ctx context.Context, group []*Ruleset, path string, sink OutcomeSink) {
	start := time.Now()

	mc, err := e.builder.Build(ctx, path)
	if err != nil {
		for _, rs := range group {
			o := Outcome{
				Time:      start,
				RunID:     e.runID,
				Ruleset:   rs.Name,
				Source:    path,
				RuleIndex: -1,
			}
			e.finish(ctx, sink, &o, start, err)
		}

		return
	}

	for _, rs := range group {
		e.process(ctx, rs, mc, sink)
	}
}

// process evaluates rs against mc, applies the first matching rule and
// feeds the result downstream.
func (e *Executor) process(ctx context.Context, rs *Ruleset, mc *mediactx.MediaContext, sink OutcomeSink) {
	start := time.Now()

	ctx, span := e.tracer.Start(ctx, "pipeline.process", trace.WithAttributes(
		attribute.String("ruleset", rs.Name),
		attribute.String("path", mc.File.Path),
	))
	defer span.End()

	o := Outcome{
		Time:      start,
		RunID:     e.runID,
		Ruleset:   rs.Name,
		Source:    mc.File.Path,
		RuleIndex: -1,
	}

	logger := log.WithContext(ctx)

	var evalErr error

	matched := rs.Match(mc, func(i int, err error) {
		r := rs.Rules[i]
		logger.WarnContext(ctx, "rule evaluation failed",
			slog.String("ruleset", rs.Name),
			slog.String("rule", r.DisplayName(i)),
			slog.String("path", mc.File.Path),
			slog.Any("error", err),
		)

		if evalErr == nil {
			evalErr = fmt.Errorf("rule %s: %w", r.DisplayName(i), err)
		}
	})

	if matched < 0 {
		if evalErr != nil {
			span.SetStatus(codes.Error, evalErr.Error())
		}

		e.finish(ctx, sink, &o, start, evalErr)

		return
	}

	r, a := rs.Rules[matched], rs.Action(matched)
	o.Rule = r.DisplayName(matched)
	o.RuleIndex = matched
	o.Action = a.Name

	dest, err := e.resolver.Resolve(ctx, r.GetTemplate(), mc, mc.File.Path)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		e.finish(ctx, sink, &o, start, err)

		return
	}

	o.Destination = dest.Path
	o.InPlace = dest.InPlace

	// Builtins have nothing to do in place; commands still run.
	if !dest.InPlace || !a.IsBuiltin() {
		err = e.dispatcher.Dispatch(ctx, action.Request{
			Action:      a,
			Context:     mc,
			Source:      mc.File.Path,
			Destination: dest.Path,
		})
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			e.finish(ctx, sink, &o, start, err)

			return
		}
	}

	o.Status = StatusApplied
	if e.dryRun {
		o.Status = StatusDryRun
	}

	e.finish(ctx, sink, &o, start, nil)

	for _, next := range e.graph.Downstream(rs.Name) {
		if !e.selected[next.Name] {
			continue
		}

		rebased, err := mc.Rebase(dest.Path)
		if err != nil {
			no := Outcome{Time: time.Now(), RunID: e.runID, Ruleset: next.Name, Source: dest.Path, RuleIndex: -1}
			e.finish(ctx, sink, &no, no.Time, fmt.Errorf("%w: %w", mediactx.ErrMetadata, err))

			continue
		}

		e.process(ctx, next, rebased, sink)
	}
}

// finish completes o and reports it. A nil err with no status means no
// rule matched.
func (e *Executor) finish(ctx context.Context, sink OutcomeSink, o *Outcome, start time.Time, err error) {
	o.Duration = time.Since(start)

	switch {
	case err != nil:
		o.Status = StatusError
		o.Err = err
		o.Error = err.Error()
		o.ErrorKind = Kind(err)
	case o.Status == "":
		o.Status = StatusNoMatch
	}

	attrs := []any{
		slog.String("ruleset", o.Ruleset),
		slog.String("source", o.Source),
		slog.String("status", string(o.Status)),
	}

	if o.Destination != "" {
		attrs = append(attrs, slog.String("destination", o.Destination))
	}

	logger := log.WithContext(ctx)

	switch o.Status {
	case StatusError:
		attrs = append(attrs, slog.String("kind", o.ErrorKind), slog.Any("error", err))
		logger.ErrorContext(ctx, "file failed", attrs...)
	case StatusNoMatch:
		logger.InfoContext(ctx, "no rule matched", attrs...)
	default:
		logger.InfoContext(ctx, "file processed", attrs...)
	}

	sink.Record(ctx, *o)
}
