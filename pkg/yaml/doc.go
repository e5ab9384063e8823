// Package yaml wraps [github.com/goccy/go-yaml] with the decoder and
// encoder settings used for monana configuration, source-annotated errors,
// and JSON schema validation of decoded documents.
package yaml
