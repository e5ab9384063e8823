package cond

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nilp0inter/monana/pkg/attr"
)

const (
	// MaxLength is the longest condition accepted, in bytes.
	MaxLength = 4096
	// MaxDepth bounds the nesting of parentheses and negations.
	MaxDepth = 64

	// Default is the reserved always-match condition.
	Default = "default"
)

// ErrEvaluation is returned for malformed conditions and for conditions
// that cannot be evaluated against a context.
var ErrEvaluation = errors.New("evaluation")

// Expr is a compiled condition. It is safe for concurrent use.
type Expr struct {
	root node
	src  string
}

// Compile parses src into an [Expr]. An empty source, "default" and "true"
// compile to the always-match condition.
func Compile(src string) (*Expr, error) {
	trimmed := strings.TrimSpace(src)

	if trimmed == "" || trimmed == Default || trimmed == "true" {
		return &Expr{src: trimmed}, nil
	}

	if len(trimmed) > MaxLength {
		return nil, fmt.Errorf("%w: condition is longer than %d bytes", ErrEvaluation, MaxLength)
	}

	root, err := parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrEvaluation, trimmed, err)
	}

	return &Expr{src: trimmed, root: root}, nil
}

// MustCompile is like [Compile] but panics on error.
func MustCompile(src string) *Expr {
	e, err := Compile(src)
	if err != nil {
		panic(err)
	}

	return e
}

// IsDefault reports whether e always matches.
func (e *Expr) IsDefault() bool { return e == nil || e.root == nil }

// Eval evaluates e against l. The result of the top-level expression is
// interpreted for truthiness.
func (e *Expr) Eval(l attr.Lookup) (bool, error) {
	if e.IsDefault() {
		return true, nil
	}

	if l == nil {
		l = attr.NewSet()
	}

	v, err := e.root.eval(l)
	if err != nil {
		return false, fmt.Errorf("%w: %q: %w", ErrEvaluation, e.src, err)
	}

	return v.Truthy(), nil
}

func (e *Expr) String() string {
	if e == nil || e.src == "" {
		return Default
	}

	return e.src
}
