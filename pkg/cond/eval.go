package cond

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/nilp0inter/monana/pkg/attr"
)

func (n *literal) eval(attr.Lookup) (attr.Value, error) { return n.v, nil }

func (n *reference) eval(l attr.Lookup) (attr.Value, error) { return l.Lookup(n.name), nil }

func (n *negation) eval(l attr.Lookup) (attr.Value, error) {
	v, err := n.x.eval(l)
	if err != nil {
		return attr.Value{}, err
	}

	return attr.Bool(!v.Truthy()), nil
}

func (n *logical) eval(l attr.Lookup) (attr.Value, error) {
	left, err := n.l.eval(l)
	if err != nil {
		return attr.Value{}, err
	}

	// Short-circuit.
	if n.op == tokOr && left.Truthy() {
		return attr.Bool(true), nil
	}
	if n.op == tokAnd && !left.Truthy() {
		return attr.Bool(false), nil
	}

	right, err := n.r.eval(l)
	if err != nil {
		return attr.Value{}, err
	}

	return attr.Bool(right.Truthy()), nil
}

func (n *comparison) eval(l attr.Lookup) (attr.Value, error) {
	left, err := n.l.eval(l)
	if err != nil {
		return attr.Value{}, err
	}

	right, err := n.r.eval(l)
	if err != nil {
		return attr.Value{}, err
	}

	ok, err := compareValues(n.op, left, right)
	if err != nil {
		return attr.Value{}, err
	}

	return attr.Bool(ok), nil
}

// compareValues applies op to a and b. Absent values equal only each other
// and are never ordered. Mismatched kinds are unequal and cannot be ordered.
func compareValues(op tokenKind, a, b attr.Value) (bool, error) {
	if a.IsAbsent() || b.IsAbsent() {
		same := a.IsAbsent() && b.IsAbsent()

		switch op {
		case tokEq:
			return same, nil
		case tokNe:
			return !same, nil
		default:
			return false, nil
		}
	}

	var (
		order     int
		orderable = true
	)

	switch {
	case a.IsNumeric() && b.IsNumeric():
		ai, aInt := a.Int64()
		bi, bInt := b.Int64()

		if aInt && bInt {
			order = cmp.Compare(ai, bi)
		} else {
			af, _ := a.Float64()
			bf, _ := b.Float64()
			order = cmp.Compare(af, bf)
		}

	case a.Kind() == attr.KindString && b.Kind() == attr.KindString:
		as, _ := a.Str()
		bs, _ := b.Str()
		order = strings.Compare(as, bs)

	case a.Kind() == attr.KindBool && b.Kind() == attr.KindBool:
		ab, _ := a.Boolean()
		bb, _ := b.Boolean()
		orderable = false

		if ab != bb {
			order = 1
		}

	default:
		switch op {
		case tokEq:
			return false, nil
		case tokNe:
			return true, nil
		default:
			return false, fmt.Errorf("cannot order %s against %s", a.Kind(), b.Kind())
		}
	}

	switch op {
	case tokEq:
		return order == 0, nil
	case tokNe:
		return order != 0, nil
	}

	if !orderable {
		return false, fmt.Errorf("cannot order %s values", a.Kind())
	}

	switch op {
	case tokLt:
		return order < 0, nil
	case tokLe:
		return order <= 0, nil
	case tokGt:
		return order > 0, nil
	default:
		return order >= 0, nil
	}
}
