// Package v1beta1 contains the v1beta1 monana configuration API.
package v1beta1

import (
	"fmt"
	"slices"

	"github.com/invopop/jsonschema"
)

// APIVersion is the API version of every v1beta1 kind.
const APIVersion = "monana.nilp0inter.dev/v1beta1"

// ValidAPIVersions lists the accepted API versions.
var ValidAPIVersions = []string{APIVersion}

// TypeMeta identifies the version and kind of a configuration document.
type TypeMeta struct {
	// APIVersion of the document.
	APIVersion string `json:"apiVersion" jsonschema:"title=API Version"`
	// Kind of the document.
	Kind string `json:"kind" jsonschema:"title=Kind"`
}

// GetAPIVersion returns the API version.
func (tm TypeMeta) GetAPIVersion() string {
	return tm.APIVersion
}

// GetKind returns the kind.
func (tm TypeMeta) GetKind() string {
	return tm.Kind
}

// Check reports an unsupported API version or a kind outside kinds.
func (tm TypeMeta) Check(kinds ...string) error {
	if !slices.Contains(ValidAPIVersions, tm.APIVersion) {
		return fmt.Errorf("unsupported apiVersion %q, expected %s", tm.APIVersion, APIVersion)
	}

	if !slices.Contains(kinds, tm.Kind) {
		return fmt.Errorf("unsupported kind %q, expected one of %v", tm.Kind, kinds)
	}

	return nil
}

// Object is implemented by every configuration kind.
type Object interface {
	GetAPIVersion() string
	GetKind() string
	EnsureDefaults()
}

// ExtendSchemaWithEnums restricts the apiVersion and kind properties of jss
// to the given values.
func ExtendSchemaWithEnums(jss *jsonschema.Schema, apiVersions, kinds []string) {
	restrict := func(name, title string, values []string) {
		prop, ok := jss.Properties.Get(name)
		if !ok {
			panic(name + " property not found in schema")
		}

		for _, v := range values {
			prop.OneOf = append(prop.OneOf, &jsonschema.Schema{Type: "string", Const: v, Title: title})
		}

		jss.Properties.Set(name, prop)
	}

	restrict("apiVersion", "API Version", apiVersions)
	restrict("kind", "Kind", kinds)
}
