package cond

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokLParen
	tokRParen
	tokDot
	tokNot
	tokAnd
	tokOr
	tokEq
	tokNe
	tokLt
	tokLe
	tokGt
	tokGe
)

var tokenNames = map[tokenKind]string{
	tokEOF:    "end of expression",
	tokIdent:  "identifier",
	tokString: "string",
	tokNumber: "number",
	tokLParen: "(",
	tokRParen: ")",
	tokDot:    ".",
	tokNot:    "!",
	tokAnd:    "&&",
	tokOr:     "||",
	tokEq:     "==",
	tokNe:     "!=",
	tokLt:     "<",
	tokLe:     "<=",
	tokGt:     ">",
	tokGe:     ">=",
}

func (k tokenKind) String() string { return tokenNames[k] }

type token struct {
	text string
	pos  int
	kind tokenKind
}

// lex splits src into tokens. String literals are unescaped.
func lex(src string) ([]token, error) {
	var (
		toks []token
		i    int
	)

	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		if unicode.IsSpace(r) {
			i += size
			continue
		}

		start := i

		switch {
		case r == '(':
			toks = append(toks, token{kind: tokLParen, pos: start})
			i++
		case r == ')':
			toks = append(toks, token{kind: tokRParen, pos: start})
			i++
		case r == '.' && (i+1 >= len(src) || !isDigit(src[i+1])):
			toks = append(toks, token{kind: tokDot, pos: start})
			i++
		case r == '&' || r == '|':
			if i+1 >= len(src) || rune(src[i+1]) != r {
				return nil, fmt.Errorf("position %d: unexpected %q, did you mean %q", start, r, string([]rune{r, r}))
			}

			kind := tokAnd
			if r == '|' {
				kind = tokOr
			}

			toks = append(toks, token{kind: kind, pos: start})
			i += 2
		case r == '=' || r == '!' || r == '<' || r == '>':
			kind, n, err := lexOperator(src[i:], start)
			if err != nil {
				return nil, err
			}

			toks = append(toks, token{kind: kind, pos: start})
			i += n
		case r == '"' || r == '\'':
			text, n, err := lexString(src[i:], start)
			if err != nil {
				return nil, err
			}

			toks = append(toks, token{kind: tokString, text: text, pos: start})
			i += n
		case r == '-' || r == '.' || isDigit(src[i]):
			n := lexNumber(src[i:])
			if n == 0 {
				return nil, fmt.Errorf("position %d: unexpected %q", start, r)
			}

			toks = append(toks, token{kind: tokNumber, text: src[i : i+n], pos: start})
			i += n
		case r == '_' || unicode.IsLetter(r):
			n := size
			for i+n < len(src) {
				next, nsize := utf8.DecodeRuneInString(src[i+n:])
				if next != '_' && !unicode.IsLetter(next) && !unicode.IsDigit(next) {
					break
				}

				n += nsize
			}

			toks = append(toks, token{kind: tokIdent, text: src[i : i+n], pos: start})
			i += n
		default:
			return nil, fmt.Errorf("position %d: unexpected %q", start, r)
		}
	}

	toks = append(toks, token{kind: tokEOF, pos: len(src)})

	return toks, nil
}

func lexOperator(s string, pos int) (tokenKind, int, error) {
	two := len(s) > 1 && s[1] == '='

	switch s[0] {
	case '=':
		if !two {
			return 0, 0, fmt.Errorf("position %d: unexpected \"=\", did you mean \"==\"", pos)
		}

		return tokEq, 2, nil
	case '!':
		if two {
			return tokNe, 2, nil
		}

		return tokNot, 1, nil
	case '<':
		if two {
			return tokLe, 2, nil
		}

		return tokLt, 1, nil
	default:
		if two {
			return tokGe, 2, nil
		}

		return tokGt, 1, nil
	}
}

func lexString(s string, pos int) (string, int, error) {
	quote := s[0]

	var sb strings.Builder

	for i := 1; i < len(s); i++ {
		c := s[i]

		switch c {
		case quote:
			return sb.String(), i + 1, nil
		case '\\':
			if i+1 >= len(s) {
				return "", 0, fmt.Errorf("position %d: unterminated string", pos)
			}

			i++

			switch s[i] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(s[i])
			}
		default:
			sb.WriteByte(c)
		}
	}

	return "", 0, fmt.Errorf("position %d: unterminated string", pos)
}

func lexNumber(s string) int {
	i := 0
	if s[0] == '-' {
		i++
	}

	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}

	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}

	if digits == 0 {
		return 0
	}

	return i
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
