package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Validator checks decoded documents against a compiled JSON schema.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles schemaData, registered under url.
func NewValidator(url string, schemaData []byte) (*Validator, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaData))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	schema, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	return &Validator{schema: schema}, nil
}

// MustNewValidator is [NewValidator] for embedded schemas; it panics on
// error.
func MustNewValidator(url string, schemaData []byte) *Validator {
	v, err := NewValidator(url, schemaData)
	if err != nil {
		panic(err)
	}

	return v
}

// Validate checks data, as produced by [Decoder] into an any. A violation
// is returned as an [*Error] whose Path points at the deepest offending
// node, ready for source annotation.
func (v *Validator) Validate(data any) error {
	err := v.schema.Validate(data)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return fmt.Errorf("schema validation: %w", err)
	}

	leaf := deepest(verr)

	return NewError(verr, WithPath(pathFor(data, leaf.InstanceLocation)))
}

func deepest(e *jsonschema.ValidationError) *jsonschema.ValidationError {
	best := e

	for _, cause := range e.Causes {
		if d := deepest(cause); len(d.InstanceLocation) > len(best.InstanceLocation) {
			best = d
		}
	}

	return best
}

// pathFor walks data along location. Segments are sequence indexes only
// where data holds a sequence, so numeric mapping keys such as a ruleset
// named "2024" stay keys.
func pathFor(data any, location []string) *yaml.Path {
	p := NewPathBuilder().Root()
	node := data

	for _, part := range location {
		switch n := node.(type) {
		case []any:
			i, err := strconv.Atoi(part)
			if err == nil && i >= 0 && i < len(n) {
				p = p.Index(uint(i))
				node = n[i]

				continue
			}

			p = p.Child(part)
			node = nil

		case map[string]any:
			p = p.Child(part)
			node = n[part]

		default:
			p = p.Child(part)
			node = nil
		}
	}

	return p.Build()
}
