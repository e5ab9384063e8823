// Package attr defines the typed attribute values and namespaced attribute
// tables that conditions and templates are evaluated against.
//
// A [Value] is one of absent, string, integer, float or bool. Absent is a
// distinct value, never a zero value of another kind.
package attr
