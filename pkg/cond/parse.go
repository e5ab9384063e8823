package cond

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nilp0inter/monana/pkg/attr"
)

type (
	node interface {
		eval(l attr.Lookup) (attr.Value, error)
	}

	literal struct {
		v attr.Value
	}

	reference struct {
		name string
	}

	negation struct {
		x node
	}

	logical struct {
		l, r node
		op   tokenKind
	}

	comparison struct {
		l, r node
		op   tokenKind
	}
)

type parser struct {
	toks  []token
	pos   int
	depth int
}

func parse(src string) (node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}

	p := &parser{toks: toks}

	n, err := p.or()
	if err != nil {
		return nil, err
	}

	if tk := p.peek(); tk.kind != tokEOF {
		return nil, fmt.Errorf("position %d: unexpected %s", tk.pos, describe(tk))
	}

	return n, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	tk := p.toks[p.pos]
	if tk.kind != tokEOF {
		p.pos++
	}

	return tk
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > MaxDepth {
		return fmt.Errorf("expression nested deeper than %d levels", MaxDepth)
	}

	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) or() (node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	left, err := p.and()
	if err != nil {
		return nil, err
	}

	for p.peek().kind == tokOr {
		p.next()

		right, err := p.and()
		if err != nil {
			return nil, err
		}

		left = &logical{op: tokOr, l: left, r: right}
	}

	return left, nil
}

func (p *parser) and() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}

	for p.peek().kind == tokAnd {
		p.next()

		right, err := p.unary()
		if err != nil {
			return nil, err
		}

		left = &logical{op: tokAnd, l: left, r: right}
	}

	return left, nil
}

func (p *parser) unary() (node, error) {
	if p.peek().kind != tokNot {
		return p.compare()
	}

	p.next()

	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	x, err := p.unary()
	if err != nil {
		return nil, err
	}

	return &negation{x: x}, nil
}

func (p *parser) compare() (node, error) {
	left, err := p.operand()
	if err != nil {
		return nil, err
	}

	switch op := p.peek().kind; op {
	case tokEq, tokNe, tokLt, tokLe, tokGt, tokGe:
		p.next()

		right, err := p.operand()
		if err != nil {
			return nil, err
		}

		return &comparison{op: op, l: left, r: right}, nil
	}

	return left, nil
}

func (p *parser) operand() (node, error) {
	tk := p.next()

	switch tk.kind {
	case tokString:
		return &literal{v: attr.String(tk.text)}, nil

	case tokNumber:
		return parseNumber(tk)

	case tokLParen:
		n, err := p.or()
		if err != nil {
			return nil, err
		}

		if closing := p.next(); closing.kind != tokRParen {
			return nil, fmt.Errorf("position %d: expected ) but found %s", closing.pos, describe(closing))
		}

		return n, nil

	case tokIdent:
		return p.identifier(tk)
	}

	return nil, fmt.Errorf("position %d: expected a value but found %s", tk.pos, describe(tk))
}

func (p *parser) identifier(first token) (node, error) {
	switch first.text {
	case "true":
		return &literal{v: attr.Bool(true)}, nil
	case "false":
		return &literal{v: attr.Bool(false)}, nil
	case "empty":
		return &literal{v: attr.Absent()}, nil
	case attr.FlatType:
		return &reference{name: attr.FlatType}, nil
	}

	if !attr.IsNamespace(first.text) {
		return nil, fmt.Errorf("position %d: unknown namespace %q", first.pos, first.text)
	}

	parts := []string{first.text}

	for p.peek().kind == tokDot {
		p.next()

		tk := p.next()
		if tk.kind != tokIdent {
			return nil, fmt.Errorf("position %d: expected attribute name after \".\" but found %s", tk.pos, describe(tk))
		}

		parts = append(parts, tk.text)
	}

	if len(parts) < 2 {
		return nil, fmt.Errorf("position %d: namespace %q needs an attribute, e.g. %s.name", first.pos, first.text, first.text)
	}

	return &reference{name: strings.Join(parts, ".")}, nil
}

func parseNumber(tk token) (node, error) {
	if !strings.Contains(tk.text, ".") {
		i, err := strconv.ParseInt(tk.text, 10, 64)
		if err == nil {
			return &literal{v: attr.Int(i)}, nil
		}
	}

	f, err := strconv.ParseFloat(tk.text, 64)
	if err != nil {
		return nil, fmt.Errorf("position %d: invalid number %q", tk.pos, tk.text)
	}

	return &literal{v: attr.Float(f)}, nil
}

func describe(tk token) string {
	switch tk.kind {
	case tokIdent, tokNumber:
		return fmt.Sprintf("%s %q", tk.kind, tk.text)
	case tokString:
		return fmt.Sprintf("string %q", tk.text)
	case tokEOF:
		return tk.kind.String()
	default:
		return fmt.Sprintf("%q", tk.kind.String())
	}
}
