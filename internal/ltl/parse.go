package ltl

import (
	"fmt"
	"strings"
	"unicode"
)

// ParseError reports a syntax error at a byte offset of the input.
type ParseError struct {
	Input  string
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s at offset %d", e.Input, e.Msg, e.Offset)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokLParen
	tokRParen
	tokNot
	tokAnd
	tokOr
	tokImplies
	tokIff
	tokUnary  // X F G [] <>
	tokBinary // U R W
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// Parse reads a formula in the usual textual syntax:
//
//	true false ! & | -> <-> X F G U R W [] <>
//
// Binding from weakest to strongest is <->, -> (right associative), |, &,
// the binary temporal operators (right associative) and the unary
// operators. Proposition names may contain letters, digits, '_' and '.',
// so "p1.a" names player p1's action a. Words made only of F, G and X
// are read as stacked unary operators: "GF a" is "G F a".
func Parse(input string) (*Formula, error) {
	toks, err := tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &parser{input: input, toks: toks}
	f, err := p.parseIff()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.errorf(tok, "unexpected %q", tok.text)
	}
	return f, nil
}

// MustParse is Parse for literals in tests and examples.
func MustParse(input string) *Formula {
	f, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return f
}

func tokenize(input string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case c == '!' || c == '~':
			toks = append(toks, token{tokNot, "!", i})
			i++
		case c == '&':
			n := 1
			if strings.HasPrefix(input[i:], "&&") {
				n = 2
			}
			toks = append(toks, token{tokAnd, "&", i})
			i += n
		case c == '|':
			n := 1
			if strings.HasPrefix(input[i:], "||") {
				n = 2
			}
			toks = append(toks, token{tokOr, "|", i})
			i += n
		case strings.HasPrefix(input[i:], "->"):
			toks = append(toks, token{tokImplies, "->", i})
			i += 2
		case strings.HasPrefix(input[i:], "<->"):
			toks = append(toks, token{tokIff, "<->", i})
			i += 3
		case strings.HasPrefix(input[i:], "[]"):
			toks = append(toks, token{tokUnary, "G", i})
			i += 2
		case strings.HasPrefix(input[i:], "<>"):
			toks = append(toks, token{tokUnary, "F", i})
			i += 2
		case c == '_' || unicode.IsLetter(rune(c)):
			start := i
			for i < len(input) && isIdentByte(input[i]) {
				i++
			}
			toks = append(toks, wordTokens(input[start:i], start)...)
		default:
			return nil, &ParseError{Input: input, Offset: i, Msg: fmt.Sprintf("unexpected character %q", c)}
		}
	}
	return append(toks, token{tokEOF, "end of input", len(input)}), nil
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '.' || (c >= '0' && c <= '9') || unicode.IsLetter(rune(c))
}

func wordTokens(word string, pos int) []token {
	switch word {
	case "U", "R", "W":
		return []token{{tokBinary, word, pos}}
	}
	if strings.Trim(word, "FGX") == "" {
		toks := make([]token, len(word))
		for i := range word {
			toks[i] = token{tokUnary, word[i : i+1], pos + i}
		}
		return toks
	}
	return []token{{tokIdent, word, pos}}
}

type parser struct {
	input string
	toks  []token
	pos   int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	return &ParseError{Input: p.input, Offset: tok.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseIff() (*Formula, error) {
	left, err := p.parseImplies()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokIff {
		p.next()
		right, err := p.parseImplies()
		if err != nil {
			return nil, err
		}
		left = Iff(left, right)
	}
	return left, nil
}

func (p *parser) parseImplies() (*Formula, error) {
	left, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokImplies {
		return left, nil
	}
	p.next()
	right, err := p.parseImplies()
	if err != nil {
		return nil, err
	}
	return Implies(left, right), nil
}

func (p *parser) parseOr() (*Formula, error) {
	args, err := p.parseList(tokOr, p.parseAnd)
	if err != nil {
		return nil, err
	}
	return Or(args...), nil
}

func (p *parser) parseAnd() (*Formula, error) {
	args, err := p.parseList(tokAnd, p.parseBinary)
	if err != nil {
		return nil, err
	}
	return And(args...), nil
}

func (p *parser) parseList(sep tokenKind, operand func() (*Formula, error)) ([]*Formula, error) {
	first, err := operand()
	if err != nil {
		return nil, err
	}
	args := []*Formula{first}
	for p.peek().kind == sep {
		p.next()
		f, err := operand()
		if err != nil {
			return nil, err
		}
		args = append(args, f)
	}
	return args, nil
}

func (p *parser) parseBinary() (*Formula, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokBinary {
		return left, nil
	}
	op := p.next()
	right, err := p.parseBinary()
	if err != nil {
		return nil, err
	}
	switch op.text {
	case "U":
		return Until(left, right), nil
	case "R":
		return Release(left, right), nil
	default:
		return WeakUntil(left, right), nil
	}
}

func (p *parser) parseUnary() (*Formula, error) {
	tok := p.peek()
	switch tok.kind {
	case tokNot, tokUnary:
		p.next()
		arg, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		switch tok.text {
		case "!":
			return Not(arg), nil
		case "X":
			return Next(arg), nil
		case "F":
			return Finally(arg), nil
		default:
			return Globally(arg), nil
		}
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (*Formula, error) {
	tok := p.next()
	switch tok.kind {
	case tokIdent:
		switch tok.text {
		case "true":
			return True(), nil
		case "false":
			return False(), nil
		}
		return Prop(tok.text), nil
	case tokLParen:
		f, err := p.parseIff()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, p.errorf(closing, "expected ')' but found %q", closing.text)
		}
		return f, nil
	}
	return nil, p.errorf(tok, "expected formula but found %q", tok.text)
}
