// Package template renders destination paths and command arguments from
// "{namespace.field}" placeholders.
//
// Every referenced attribute must resolve. A missing attribute is an
// error listing every unresolved name, never a blank.
package template
