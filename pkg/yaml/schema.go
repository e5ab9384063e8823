package yaml

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaGenerator reflects a JSON schema from a Go value. Doc comments of
// the listed packages become property descriptions.
type SchemaGenerator struct {
	v         any
	reflector *jsonschema.Reflector
	module    string
	dir       string
}

// NewSchemaGenerator creates a [SchemaGenerator] for v. Comments are read
// from the Go sources below dir, which hold the module at import path
// module. An empty dir skips comments.
func NewSchemaGenerator(v any, module, dir string) *SchemaGenerator {
	return &SchemaGenerator{
		v:      v,
		module: module,
		dir:    dir,
		reflector: &jsonschema.Reflector{
			RequiredFromJSONSchemaTags: false,
			DoNotReference:             false,
		},
	}
}

// Generate returns the indented schema.
func (g *SchemaGenerator) Generate() ([]byte, error) {
	if g.dir != "" {
		if err := g.reflector.AddGoComments(g.module, g.dir); err != nil {
			return nil, fmt.Errorf("read go comments: %w", err)
		}
	}

	js := g.reflector.Reflect(g.v)

	b, err := json.MarshalIndent(js, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	return append(b, '\n'), nil
}
