package configs

import (
	"errors"

	"github.com/invopop/jsonschema"
)

// ActionSpec is a custom action: either a shell-like command line, split
// into words, or an explicit argument list.
type ActionSpec struct {
	Line string
	Argv []string
}

// UnmarshalYAML accepts a string or a list of strings.
func (a *ActionSpec) UnmarshalYAML(unmarshal func(any) error) error {
	var line string
	if err := unmarshal(&line); err == nil {
		*a = ActionSpec{Line: line}
		return nil
	}

	var argv []string
	if err := unmarshal(&argv); err != nil {
		return errors.New("action must be a command line or a list of arguments")
	}

	*a = ActionSpec{Argv: argv}

	return nil
}

// MarshalYAML writes the form the action was declared in.
func (a ActionSpec) MarshalYAML() (any, error) {
	if a.Argv != nil {
		return a.Argv, nil
	}

	return a.Line, nil
}

func (ActionSpec) JSONSchema() *jsonschema.Schema {
	one := uint64(1)

	return &jsonschema.Schema{
		Title: "Action",
		OneOf: []*jsonschema.Schema{
			{Type: "string", MinLength: &one, Description: "Command line, split into words."},
			{Type: "array", MinItems: &one, Items: &jsonschema.Schema{Type: "string"}, Description: "Argument list."},
		},
	}
}
