package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nilp0inter/monana/pkg/attr"
	"github.com/nilp0inter/monana/pkg/execs"
	"github.com/nilp0inter/monana/pkg/log"
)

// Environment variables set for command actions.
const (
	EnvSource = "MONANA_SOURCE"
	EnvTarget = "MONANA_TARGET"
)

// Request asks a [Dispatcher] to apply an action to one file.
type Request struct {
	Action *Action
	// Context supplies the attributes for command argument templates.
	Context     attr.Lookup
	Source      string
	Destination string
}

// Dispatcher applies actions.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) error
}

// Executor applies actions to the filesystem and runs command actions.
type Executor struct {
	exec   *execs.Executor
	tracer trace.Tracer
}

// NewExecutor creates an [Executor]. A nil executor uses the default
// [execs.Executor].
func NewExecutor(executor *execs.Executor) *Executor {
	if executor == nil {
		executor = execs.NewExecutor()
	}

	return &Executor{exec: executor, tracer: otel.Tracer("action")}
}

// Dispatch implements [Dispatcher]. The destination's parent directory is
// created first. Existing destinations are never overwritten.
func (e *Executor) Dispatch(ctx context.Context, req Request) error {
	ctx, span := e.tracer.Start(ctx, "action.dispatch", trace.WithAttributes(
		attribute.String("action", req.Action.Name),
		attribute.String("source", req.Source),
		attribute.String("destination", req.Destination),
	))
	defer span.End()

	err := e.dispatch(ctx, req)
	if err != nil {
		span.RecordError(err)
		return err
	}

	log.WithContext(ctx).DebugContext(ctx, "action applied",
		slog.String("action", req.Action.Name),
		slog.String("source", req.Source),
		slog.String("destination", req.Destination),
	)

	return nil
}

func (e *Executor) dispatch(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(req.Destination), 0o755); err != nil {
		return fmt.Errorf("%w: create directory: %w", ErrAction, err)
	}

	if fi, err := os.Lstat(req.Destination); err == nil && !isSource(req.Source, req.Destination, fi) {
		return fmt.Errorf("%w: %s: %w", ErrAction, req.Destination, os.ErrExist)
	}

	if !req.Action.IsBuiltin() {
		return e.command(ctx, req)
	}

	var err error

	switch req.Action.builtin {
	case Move:
		err = moveFile(req.Source, req.Destination)
	case Copy:
		err = copyFileVerified(req.Source, req.Destination)
	case Symlink:
		var target string

		target, err = filepath.Abs(req.Source)
		if err == nil {
			err = os.Symlink(target, req.Destination)
		}

	case Hardlink:
		err = os.Link(req.Source, req.Destination)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownAction, req.Action.builtin)
	}

	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrAction, req.Action.builtin, err)
	}

	return nil
}

// isSource reports whether the existing destination dst is the source file.
// Only commands are dispatched in place.
func isSource(src, dst string, dstInfo os.FileInfo) bool {
	if filepath.Clean(src) == filepath.Clean(dst) {
		return true
	}

	srcInfo, err := os.Stat(src)

	return err == nil && os.SameFile(srcInfo, dstInfo)
}

func (e *Executor) command(ctx context.Context, req Request) error {
	argv, err := RenderArgs(req.Action, req.Context, req.Destination)
	if err != nil {
		return err
	}

	_, err = e.exec.Exec(ctx, execs.Command{
		Command: argv[0],
		Args:    argv[1:],
		Env: []execs.EnvVar{
			{Name: EnvSource, Value: req.Source},
			{Name: EnvTarget, Value: req.Destination},
		},
	}, filepath.Dir(req.Destination))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrAction, req.Action.Name, err)
	}

	return nil
}

// RenderArgs renders the argument templates of a command action against
// l plus the target namespace derived from destination.
func RenderArgs(a *Action, l attr.Lookup, destination string) ([]string, error) {
	lookup := attr.Chain(TargetLookup(destination), l)

	argv := make([]string, 0, len(a.args))

	for _, t := range a.args {
		s, err := t.Render(lookup)
		if err != nil {
			return nil, fmt.Errorf("action %q: %w", a.Name, err)
		}

		argv = append(argv, s)
	}

	return argv, nil
}

// TargetLookup exposes destination under the target namespace.
func TargetLookup(destination string) attr.Lookup {
	s := attr.NewSet()

	base := filepath.Base(destination)
	ext := filepath.Ext(base)

	s.Put(attr.NamespaceTarget, "path", attr.String(destination))
	s.Put(attr.NamespaceTarget, "dir", attr.String(filepath.Dir(destination)))
	s.Put(attr.NamespaceTarget, "name", attr.String(strings.TrimSuffix(base, ext)))
	s.Put(attr.NamespaceTarget, "original", attr.String(base))
	s.Put(attr.NamespaceTarget, "extension", attr.String(strings.TrimPrefix(ext, ".")))

	return s
}

// DryRun logs the effect an action would have and never touches the
// filesystem.
type DryRun struct{}

// Dispatch implements [Dispatcher].
func (DryRun) Dispatch(ctx context.Context, req Request) error {
	attrs := []any{
		slog.String("action", req.Action.Name),
		slog.String("source", req.Source),
		slog.String("destination", req.Destination),
	}

	if !req.Action.IsBuiltin() {
		argv, err := RenderArgs(req.Action, req.Context, req.Destination)
		if err != nil {
			return err
		}

		attrs = append(attrs, slog.Any("command", argv))
	}

	log.WithContext(ctx).InfoContext(ctx, "dry run", attrs...)

	return nil
}

// IsActionError reports whether err came from applying an action.
func IsActionError(err error) bool {
	return errors.Is(err, ErrAction)
}
