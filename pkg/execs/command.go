package execs

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

var (
	// ErrCommandExecution is returned when command execution fails.
	ErrCommandExecution = errors.New("run")

	// ErrEmptyCommand is returned when a command is empty.
	ErrEmptyCommand = errors.New("empty command")
)

// essentialEnv are inherited from the caller by every command.
var essentialEnv = []string{"PATH", "HOME", "USER", "TMPDIR", "LANG", "TZ"}

// Result represents the result of a command execution.
type Result struct {
	Stdout string
	Stderr string
}

// EnvVar is one environment variable passed to a command.
type EnvVar struct {
	Name  string `json:"name"            jsonschema:"title=Name"`
	Value string `json:"value,omitempty" jsonschema:"title=Value"`
}

// Command is a fully rendered command line.
type Command struct {
	// Command is the program to run, looked up in PATH.
	Command string
	// Args are the arguments passed to Command.
	Args []string
	// Env holds variables set on top of the inherited essentials.
	Env []EnvVar
}

// NewCommand creates a [Command] from an argv slice.
func NewCommand(argv []string, env ...EnvVar) (Command, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return Command{}, ErrEmptyCommand
	}

	return Command{Command: argv[0], Args: slices.Clone(argv[1:]), Env: env}, nil
}

// Environ builds the command environment from the caller's baseEnv
// ("KEY=value" entries). Only essential variables are inherited.
func (c Command) Environ(baseEnv []string) []string {
	envMap := make(map[string]string)

	for _, kv := range baseEnv {
		key, value, ok := strings.Cut(kv, "=")
		if ok && slices.Contains(essentialEnv, key) {
			envMap[key] = value
		}
	}

	for _, e := range c.Env {
		if e.Name != "" {
			envMap[e.Name] = e.Value
		}
	}

	env := make([]string, 0, len(envMap))
	for _, key := range slices.Sorted(maps.Keys(envMap)) {
		env = append(env, fmt.Sprintf("%s=%s", key, envMap[key]))
	}

	return env
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Command
	}

	return fmt.Sprintf("%s %s", c.Command, strings.Join(c.Args, " "))
}
