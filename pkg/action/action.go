package action

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/nilp0inter/monana/pkg/template"
)

// Builtin action names.
const (
	Move     = "move"
	Copy     = "copy"
	Symlink  = "symlink"
	Hardlink = "hardlink"
)

// InlinePrefix marks an inline command line used as a rule action.
const InlinePrefix = "cmd:"

var (
	// ErrAction is returned when an action fails to take effect.
	ErrAction = errors.New("action")

	// ErrUnknownAction is returned for references to undefined actions.
	ErrUnknownAction = errors.New("unknown action")

	// Builtins lists the builtin action names.
	Builtins = []string{Move, Copy, Symlink, Hardlink}
)

// Action describes an effect. It is either a builtin filesystem primitive
// or a command whose arguments are templates.
type Action struct {
	Name    string
	builtin string
	args    []*template.Template
}

// NewBuiltin returns the builtin action called name.
func NewBuiltin(name string) (*Action, error) {
	if !slices.Contains(Builtins, name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}

	return &Action{Name: name, builtin: name}, nil
}

// NewCommand creates a command action from an argv of templates.
func NewCommand(name string, argv []string) (*Action, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, fmt.Errorf("action %q: empty command", name)
	}

	a := &Action{Name: name}

	for _, arg := range argv {
		t, err := template.Parse(arg)
		if err != nil {
			return nil, fmt.Errorf("action %q: argument %q: %w", name, arg, err)
		}

		a.args = append(a.args, t)
	}

	return a, nil
}

// ParseCommand creates a command action from a shell-style command line,
// e.g. `exiftool -overwrite_original "-FileName={target.path}" {source.path}`.
// The line is split into words; it is not run through a shell.
func ParseCommand(name, line string) (*Action, error) {
	argv, err := shellwords.Parse(line)
	if err != nil {
		return nil, fmt.Errorf("action %q: parse command: %w", name, err)
	}

	return NewCommand(name, argv)
}

// IsBuiltin reports whether a is a builtin filesystem primitive.
func (a *Action) IsBuiltin() bool {
	return a.builtin != ""
}

// Args returns the argument templates of a command action.
func (a *Action) Args() []*template.Template {
	return a.args
}

func (a *Action) String() string {
	if a.IsBuiltin() {
		return a.builtin
	}

	parts := make([]string, 0, len(a.args))
	for _, t := range a.args {
		parts = append(parts, t.String())
	}

	return strings.Join(parts, " ")
}

// Registry resolves action references used by rules.
type Registry struct {
	actions map[string]*Action
}

// NewRegistry creates a [Registry] holding the builtins plus custom.
// Custom actions may not shadow builtins.
func NewRegistry(custom ...*Action) (*Registry, error) {
	r := &Registry{actions: map[string]*Action{}}

	for _, name := range Builtins {
		r.actions[name] = &Action{Name: name, builtin: name}
	}

	for _, a := range custom {
		if _, ok := r.actions[a.Name]; ok {
			return nil, fmt.Errorf("action %q: name already defined", a.Name)
		}

		r.actions[a.Name] = a
	}

	return r, nil
}

// Resolve returns the action named ref. A ref starting with [InlinePrefix]
// is parsed as a command line.
func (r *Registry) Resolve(ref string) (*Action, error) {
	if line, ok := strings.CutPrefix(ref, InlinePrefix); ok {
		return ParseCommand(ref, line)
	}

	a, ok := r.actions[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, ref)
	}

	return a, nil
}

// Names returns the sorted names of every registered action.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}
