// Package config loads versioned configuration documents.
//
// A [Loader] validates raw YAML against a JSON schema, decodes it into the
// document type and runs the document's own checks. Errors carry the
// offending YAML source lines.
package config
