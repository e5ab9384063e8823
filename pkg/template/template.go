package template

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/nilp0inter/monana/pkg/attr"
)

// CountRef is the collision counter placeholder.
const CountRef = "special.count"

// ErrTemplate is returned for malformed templates and unresolved variables.
var ErrTemplate = errors.New("template")

var placeholder = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*(?:\.[a-zA-Z_][a-zA-Z0-9_]*)*)\}`)

// UnresolvedError lists the variables a render could not resolve.
type UnresolvedError struct {
	Vars []string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("%v: unresolved variables: %s", ErrTemplate, strings.Join(e.Vars, ", "))
}

// Unwrap returns [ErrTemplate].
func (e *UnresolvedError) Unwrap() error { return ErrTemplate }

type part struct {
	text string
	ref  bool
}

// Template is a parsed template. It is immutable and safe for concurrent
// use.
type Template struct {
	src   string
	parts []part
}

// Parse parses src. Text outside placeholders is kept verbatim.
// Placeholders must name a known namespace or the flat "type".
func Parse(src string) (*Template, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("%w: empty template", ErrTemplate)
	}

	t := &Template{src: src}
	last := 0

	for _, m := range placeholder.FindAllStringSubmatchIndex(src, -1) {
		if m[0] > last {
			t.parts = append(t.parts, part{text: src[last:m[0]]})
		}

		name := src[m[2]:m[3]]
		if err := checkRef(name); err != nil {
			return nil, err
		}

		t.parts = append(t.parts, part{text: name, ref: true})
		last = m[1]
	}

	if last < len(src) {
		t.parts = append(t.parts, part{text: src[last:]})
	}

	return t, nil
}

// MustParse is like [Parse] but panics on error.
func MustParse(src string) *Template {
	t, err := Parse(src)
	if err != nil {
		panic(err)
	}

	return t
}

func checkRef(name string) error {
	if name == attr.FlatType {
		return nil
	}

	ns, _, ok := attr.Split(name)
	if !ok {
		return fmt.Errorf("%w: {%s}: variables need a namespace, e.g. {time.yyyy}", ErrTemplate, name)
	}

	if !attr.IsNamespace(string(ns)) {
		return fmt.Errorf("%w: {%s}: unknown namespace %q", ErrTemplate, name, ns)
	}

	return nil
}

// String returns the template source.
func (t *Template) String() string {
	return t.src
}

// References returns the distinct variables used by t, in order of first
// use.
func (t *Template) References() []string {
	var refs []string

	for _, p := range t.parts {
		if p.ref && !slices.Contains(refs, p.text) {
			refs = append(refs, p.text)
		}
	}

	return refs
}

// Uses reports whether t references name.
func (t *Template) Uses(name string) bool {
	return slices.Contains(t.References(), name)
}

// Render substitutes every placeholder with its value from l.
func (t *Template) Render(l attr.Lookup) (string, error) {
	return t.render(l, nil)
}

// RenderPath is like [Template.Render], but path separators inside
// free-form values (the meta and space namespaces) are replaced with "_"
// so they cannot add directory levels. Path-valued attributes such as
// source.dir are substituted as is.
func (t *Template) RenderPath(l attr.Lookup) (string, error) {
	return t.render(l, pathSafe)
}

var pathReplacer = strings.NewReplacer("/", "_", `\`, "_")

func pathSafe(name, s string) string {
	switch ns, _, _ := attr.Split(name); ns {
	case attr.NamespaceMeta, attr.NamespaceSpace:
		return pathReplacer.Replace(s)
	default:
		return s
	}
}

func (t *Template) render(l attr.Lookup, escape func(name, s string) string) (string, error) {
	if l == nil {
		l = attr.NewSet()
	}

	var (
		sb         strings.Builder
		unresolved []string
	)

	for _, p := range t.parts {
		if !p.ref {
			sb.WriteString(p.text)
			continue
		}

		v := l.Lookup(p.text)
		if v.IsAbsent() {
			if !slices.Contains(unresolved, p.text) {
				unresolved = append(unresolved, p.text)
			}

			continue
		}

		s := v.String()
		if escape != nil {
			s = escape(p.text, s)
		}

		sb.WriteString(s)
	}

	if len(unresolved) > 0 {
		return "", &UnresolvedError{Vars: unresolved}
	}

	return sb.String(), nil
}
