package execs

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nilp0inter/monana/pkg/log"
)

// Executor runs [Command]s, capturing their output.
type Executor struct {
	tracer  trace.Tracer
	baseEnv []string
}

// ExecutorOpt configures an [Executor].
type ExecutorOpt func(*Executor)

// WithBaseEnv sets the environment commands inherit from. It defaults to
// [os.Environ].
func WithBaseEnv(env []string) ExecutorOpt {
	return func(e *Executor) {
		e.baseEnv = env
	}
}

func NewExecutor(opts ...ExecutorOpt) *Executor {
	e := &Executor{
		tracer:  otel.Tracer("executor"),
		baseEnv: os.Environ(),
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Exec runs cmd in dir and waits for it to finish. A non-zero exit returns
// an error wrapping [ErrCommandExecution] together with any output.
func (e *Executor) Exec(ctx context.Context, cmd Command, dir string) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "exec", trace.WithAttributes(
		attribute.String("command", cmd.String()),
		attribute.String("path", dir),
	))
	defer span.End()

	if cmd.Command == "" {
		return nil, ErrEmptyCommand
	}

	logger := log.WithContext(ctx).With(
		slog.String("command", cmd.String()),
		slog.String("path", dir),
	)

	start := time.Now()

	//nolint:gosec // G204: Subprocess launched with a potential tainted input or cmd arguments.
	c := exec.CommandContext(ctx, cmd.Command, cmd.Args...)
	c.Dir = dir
	c.Env = cmd.Environ(e.baseEnv)
	c.Stdin = nil

	var stdout, stderr bytes.Buffer

	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		span.RecordError(err)
		logger.DebugContext(ctx, "command failed",
			slog.Duration("duration", time.Since(start)),
			slog.String("stderr", strings.TrimSpace(result.Stderr)),
			slog.Any("error", err),
		)

		if msg := strings.TrimSpace(result.Stderr); msg != "" {
			return result, fmt.Errorf("%w: %w: %s", ErrCommandExecution, err, msg)
		}

		return result, fmt.Errorf("%w: %w", ErrCommandExecution, err)
	}

	logger.DebugContext(ctx, "command executed successfully",
		slog.Duration("duration", time.Since(start)),
	)

	return result, nil
}
