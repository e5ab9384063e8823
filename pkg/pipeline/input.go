package pipeline

import (
	"fmt"
	"strings"
)

// InputKind is the kind of an [Input].
type InputKind string

const (
	InputCmdline InputKind = "cmdline"
	InputPath    InputKind = "path"
	InputWatch   InputKind = "watch"
	InputRuleset InputKind = "ruleset"
)

// Input is a parsed ruleset input specification: "cmdline", "path:<dir>",
// "watch:<dir>" or "ruleset:<name>".
type Input struct {
	Kind  InputKind
	Value string
}

// ParseInput parses an input specification.
func ParseInput(s string) (Input, error) {
	s = strings.TrimSpace(s)
	if s == string(InputCmdline) {
		return Input{Kind: InputCmdline}, nil
	}

	kind, value, ok := strings.Cut(s, ":")
	if !ok {
		return Input{}, fmt.Errorf("%w: input %q: expected cmdline, path:<dir>, watch:<dir> or ruleset:<name>", ErrConfiguration, s)
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return Input{}, fmt.Errorf("%w: input %q: missing %s value", ErrConfiguration, s, kind)
	}

	switch InputKind(kind) {
	case InputPath, InputWatch, InputRuleset:
		return Input{Kind: InputKind(kind), Value: value}, nil
	}

	return Input{}, fmt.Errorf("%w: input %q: unknown input kind %q", ErrConfiguration, s, kind)
}

// IsRoot reports whether the input discovers files itself rather than
// consuming another ruleset.
func (i Input) IsRoot() bool {
	return i.Kind != InputRuleset
}

func (i Input) String() string {
	if i.Kind == InputCmdline {
		return string(InputCmdline)
	}

	return string(i.Kind) + ":" + i.Value
}
