package attr

import (
	"maps"
	"slices"
	"strings"
)

// Namespace groups related attributes of a media context.
type Namespace string

const (
	NamespaceTime    Namespace = "time"
	NamespaceSpace   Namespace = "space"
	NamespaceSource  Namespace = "source"
	NamespaceMedia   Namespace = "media"
	NamespaceMeta    Namespace = "meta"
	NamespaceSpecial Namespace = "special"
	NamespaceTarget  Namespace = "target"

	// FlatType is the one attribute addressable without a namespace.
	// It aliases media.type.
	FlatType = "type"
)

// Namespaces lists every namespace in display order.
var Namespaces = []Namespace{
	NamespaceTime,
	NamespaceSpace,
	NamespaceSource,
	NamespaceMedia,
	NamespaceMeta,
	NamespaceSpecial,
	NamespaceTarget,
}

// IsNamespace reports whether name is a known namespace.
func IsNamespace(name string) bool {
	return slices.Contains(Namespaces, Namespace(name))
}

// Lookup resolves dotted attribute names such as "space.city".
// Unknown names resolve to the absent value.
type Lookup interface {
	Lookup(name string) Value
}

// LookupFunc adapts a function to [Lookup].
type LookupFunc func(name string) Value

// Lookup calls f.
func (f LookupFunc) Lookup(name string) Value { return f(name) }

// Split separates a dotted name into namespace and key.
// The flat "type" name maps to media.type.
func Split(name string) (Namespace, string, bool) {
	if name == FlatType {
		return NamespaceMedia, "type", true
	}

	ns, key, ok := strings.Cut(name, ".")
	if !ok || key == "" {
		return "", "", false
	}

	return Namespace(ns), key, true
}

// Set is a namespaced attribute table.
type Set struct {
	values map[Namespace]map[string]Value
}

// NewSet creates an empty [Set].
func NewSet() *Set {
	return &Set{values: map[Namespace]map[string]Value{}}
}

// Put stores v under ns.key. Absent values remove the key.
func (s *Set) Put(ns Namespace, key string, v Value) {
	if v.IsAbsent() {
		delete(s.values[ns], key)
		return
	}

	m, ok := s.values[ns]
	if !ok {
		m = map[string]Value{}
		s.values[ns] = m
	}

	m[key] = v
}

// Get returns the value stored under ns.key.
func (s *Set) Get(ns Namespace, key string) Value {
	if s == nil {
		return Value{}
	}

	return s.values[ns][key]
}

// Lookup implements [Lookup].
func (s *Set) Lookup(name string) Value {
	ns, key, ok := Split(name)
	if !ok {
		return Value{}
	}

	return s.Get(ns, key)
}

// Keys returns the sorted keys present in ns.
func (s *Set) Keys(ns Namespace) []string {
	if s == nil {
		return nil
	}

	return slices.Sorted(maps.Keys(s.values[ns]))
}

// Namespace returns a copy of the attributes stored in ns.
func (s *Set) Namespace(ns Namespace) map[string]Value {
	if s == nil {
		return nil
	}

	return maps.Clone(s.values[ns])
}

// Drop removes every attribute in ns.
func (s *Set) Drop(ns Namespace) {
	delete(s.values, ns)
}

// Clone returns a deep copy of s.
func (s *Set) Clone() *Set {
	out := NewSet()
	if s == nil {
		return out
	}

	for ns, m := range s.values {
		out.values[ns] = maps.Clone(m)
	}

	return out
}

// Chain returns a [Lookup] that consults each lookup in order and returns
// the first value that is not absent.
func Chain(lookups ...Lookup) Lookup {
	return LookupFunc(func(name string) Value {
		for _, l := range lookups {
			if l == nil {
				continue
			}

			if v := l.Lookup(name); !v.IsAbsent() {
				return v
			}
		}

		return Value{}
	})
}
