// Package pattern parses the small S-expression-like pattern grammar used
// by preset rewrites: "?x" for a variable, a bare identifier for a
// literal/zero-arity operator, "op(a, b, ...)" for an application, and
// "@42" for a pinned concrete e-node id leaf.
package pattern

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/eqsat/eqsat/pkg/model"
)

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokVar
	tokPin
	tokLParen
	tokRParen
	tokComma
	tokEOF
)

type token struct {
	kind tokenKind
	text string
}

type lexer struct {
	src []rune
	pos int
}

func newLexer(s string) *lexer {
	return &lexer{src: []rune(s)}
}

func (l *lexer) peekRune() (rune, bool) {
	if l.pos >= len(l.src) {
		return 0, false
	}
	return l.src[l.pos], true
}

func (l *lexer) skipSpace() {
	for {
		r, ok := l.peekRune()
		if !ok || !unicode.IsSpace(r) {
			return
		}
		l.pos++
	}
}

func isIdentRune(r rune, first bool) bool {
	if unicode.IsLetter(r) || r == '_' {
		return true
	}
	if (unicode.IsDigit(r) || r == '-' || r == '.' || r == '+' || r == '*' || r == '/' || r == '%' || r == '=' || r == '<' || r == '>' || r == '!') {
		return true
	}
	return false
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	r, ok := l.peekRune()
	if !ok {
		return token{kind: tokEOF}, nil
	}
	switch r {
	case '(':
		l.pos++
		return token{kind: tokLParen}, nil
	case ')':
		l.pos++
		return token{kind: tokRParen}, nil
	case ',':
		l.pos++
		return token{kind: tokComma}, nil
	case '?':
		l.pos++
		start := l.pos
		for {
			rr, ok := l.peekRune()
			if !ok || !isIdentRune(rr, false) {
				break
			}
			l.pos++
		}
		if l.pos == start {
			return token{}, fmt.Errorf("empty variable name at position %d", start)
		}
		return token{kind: tokVar, text: string(l.src[start:l.pos])}, nil
	case '@':
		l.pos++
		start := l.pos
		for {
			rr, ok := l.peekRune()
			if !ok || !unicode.IsDigit(rr) {
				break
			}
			l.pos++
		}
		if l.pos == start {
			return token{}, fmt.Errorf("empty pin id at position %d", start)
		}
		return token{kind: tokPin, text: string(l.src[start:l.pos])}, nil
	default:
		if !isIdentRune(r, true) {
			return token{}, fmt.Errorf("unexpected character %q at position %d", r, l.pos)
		}
		start := l.pos
		l.pos++
		for {
			rr, ok := l.peekRune()
			if !ok || !isIdentRune(rr, false) {
				break
			}
			l.pos++
		}
		return token{kind: tokIdent, text: string(l.src[start:l.pos])}, nil
	}
}

// Parser is a recursive-descent parser over the pattern grammar.
type Parser struct {
	lex     *lexer
	current token
}

// Parse parses s as a single pattern and returns it, or a descriptive
// error if s is malformed or has trailing content.
func Parse(s string) (model.Pattern, error) {
	p := &Parser{lex: newLexer(s)}
	if err := p.advance(); err != nil {
		return model.Pattern{}, err
	}
	pat, err := p.parsePattern()
	if err != nil {
		return model.Pattern{}, err
	}
	if p.current.kind != tokEOF {
		return model.Pattern{}, fmt.Errorf("unexpected trailing input starting with %q", p.current.text)
	}
	return pat, nil
}

func (p *Parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.current = tok
	return nil
}

func (p *Parser) parsePattern() (model.Pattern, error) {
	switch p.current.kind {
	case tokVar:
		name := p.current.text
		if err := p.advance(); err != nil {
			return model.Pattern{}, err
		}
		return model.Var("?" + name), nil
	case tokPin:
		idText := p.current.text
		id, err := strconv.ParseInt(idText, 10, 64)
		if err != nil {
			return model.Pattern{}, fmt.Errorf("invalid pin id %q: %w", idText, err)
		}
		if err := p.advance(); err != nil {
			return model.Pattern{}, err
		}
		return model.Literal("@" + idText).Pin(model.EClassId(id)), nil
	case tokIdent:
		op := p.current.text
		if err := p.advance(); err != nil {
			return model.Pattern{}, err
		}
		if p.current.kind != tokLParen {
			return model.Literal(op), nil
		}
		if err := p.advance(); err != nil {
			return model.Pattern{}, err
		}
		var args []model.Pattern
		if p.current.kind != tokRParen {
			for {
				arg, err := p.parsePattern()
				if err != nil {
					return model.Pattern{}, err
				}
				args = append(args, arg)
				if p.current.kind == tokComma {
					if err := p.advance(); err != nil {
						return model.Pattern{}, err
					}
					continue
				}
				break
			}
		}
		if p.current.kind != tokRParen {
			return model.Pattern{}, fmt.Errorf("expected ')' after arguments of %q", op)
		}
		if err := p.advance(); err != nil {
			return model.Pattern{}, err
		}
		return model.App(op, args...), nil
	default:
		return model.Pattern{}, fmt.Errorf("unexpected token while parsing pattern")
	}
}

// Format renders p back to its textual grammar, the inverse of Parse
// (modulo pin-literal spelling), used for diagnostics and for preset
// round-tripping.
func Format(p model.Pattern) string {
	switch p.Kind {
	case model.PatternVar:
		return p.Name
	case model.PatternLiteral:
		return p.Name
	case model.PatternApp:
		parts := make([]string, len(p.Args))
		for i, a := range p.Args {
			parts[i] = Format(a)
		}
		return p.Name + "(" + strings.Join(parts, ", ") + ")"
	default:
		return ""
	}
}
