package expr

import (
	"errors"
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/cel-go/cel"
)

// Variables available to watch filters.
const (
	VarFile    = "file"
	VarFSEvent = "fs.event"
)

// ErrFilter is returned when a filter cannot be compiled or evaluated.
var ErrFilter = errors.New("filter")

// Protect CEL environment creation and compilation from concurrent access.
var celMutex sync.Mutex

// Environment provides a thread-safe wrapper around a [*cel.Env].
type Environment struct {
	env *cel.Env
}

// NewEnvironment creates a new [Environment].
func NewEnvironment(opts ...cel.EnvOption) (*Environment, error) {
	env, err := createEnvironment(opts...)
	if err != nil {
		return nil, err
	}

	return &Environment{env: env}, nil
}

// NewFilterEnvironment creates the [Environment] used by watch filters,
// declaring the `file` and `fs.event` variables.
func NewFilterEnvironment() (*Environment, error) {
	return NewEnvironment(
		cel.Variable(VarFile, cel.StringType),
		cel.Variable(VarFSEvent, cel.IntType),
	)
}

func createEnvironment(opts ...cel.EnvOption) (*cel.Env, error) {
	celMutex.Lock()
	defer celMutex.Unlock()

	opts = append(opts, cel.Lib(&lib{}))

	celEnv, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	return celEnv, nil
}

// Compile compiles a CEL expression and returns a program.
//
//nolint:ireturn // Following CEL's function signature.
func (e *Environment) Compile(expression string) (cel.Program, error) {
	celMutex.Lock()
	defer celMutex.Unlock()

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile expression: %w", issues.Err())
	}

	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("compile expression: must return bool, got %s", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("create program: %w", err)
	}

	return program, nil
}

// filterEnv is shared by every [Filter]; compilation is serialized by
// celMutex.
var filterEnv = sync.OnceValues(NewFilterEnvironment)

// Filter is a compiled watch event filter.
type Filter struct {
	program cel.Program
	src     string
}

// NewFilter compiles src into a [Filter].
func NewFilter(src string) (*Filter, error) {
	env, err := filterEnv()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFilter, err)
	}

	program, err := env.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrFilter, src, err)
	}

	return &Filter{program: program, src: src}, nil
}

// Match evaluates the filter for an event on file. A nil filter matches
// everything.
func (f *Filter) Match(file string, op fsnotify.Op) (bool, error) {
	if f == nil {
		return true, nil
	}

	result, _, err := f.program.Eval(map[string]any{
		VarFile:    file,
		VarFSEvent: int64(op),
	})
	if err != nil {
		return false, fmt.Errorf("%w: %q: %w", ErrFilter, f.src, err)
	}

	b, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q: result is %T, not bool", ErrFilter, f.src, result.Value())
	}

	return b, nil
}

func (f *Filter) String() string {
	if f == nil {
		return ""
	}

	return f.src
}
