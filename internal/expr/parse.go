package expr

import (
	"fmt"
	"strconv"
	"strings"
	"text/scanner"

	"github.com/roach88/halodb/internal/ir"
)

// ParseError reports a syntax error with its column (1-based).
type ParseError struct {
	Column  int
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at column %d: %s", e.Column, e.Message)
}

// Parse parses an expression.
//
// Grammar, lowest precedence first:
//
//	compare  = additive [ ( ">" | "<" ) additive ]
//	additive = term { ( "+" | "-" ) term }
//	term     = unary { ( "*" | "/" ) unary }
//	unary    = [ "-" ] postfix
//	postfix  = primary { "." ( ident | call ) }
//	primary  = number | string | keyword | ident | call | "(" compare ")"
//	keyword  = "None" | "True" | "False"
//	call     = ident "(" [ compare { "," compare } ] ")"
func Parse(src string) (Expr, error) {
	p := &parser{}
	p.s.Init(strings.NewReader(src))
	p.s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats | scanner.ScanStrings | scanner.ScanRawStrings
	p.s.Error = func(s *scanner.Scanner, msg string) {
		p.fail(s.Pos().Column, msg)
	}
	p.next()

	e := p.compare()
	if p.err == nil && p.tok != scanner.EOF {
		p.fail(p.pos, fmt.Sprintf("unexpected %q", p.text))
	}
	if p.err != nil {
		return nil, p.err
	}
	return e, nil
}

// MustParse is Parse for expressions known to be valid. Panics on error.
func MustParse(src string) Expr {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

var keywords = map[string]ir.Value{
	"None":  ir.Null{},
	"True":  ir.Bool(true),
	"False": ir.Bool(false),
}

type parser struct {
	s    scanner.Scanner
	tok  rune
	text string
	pos  int
	err  *ParseError
}

func (p *parser) next() {
	p.tok = p.s.Scan()
	p.text = p.s.TokenText()
	p.pos = p.s.Position.Column
}

// fail records the first error only; later errors are consequences.
func (p *parser) fail(col int, msg string) {
	if p.err == nil {
		p.err = &ParseError{Column: col, Message: msg}
	}
}

func (p *parser) expect(tok rune) {
	if p.tok != tok {
		p.fail(p.pos, fmt.Sprintf("expected %q, found %q", string(tok), p.tokenDesc()))
		return
	}
	p.next()
}

func (p *parser) tokenDesc() string {
	if p.tok == scanner.EOF {
		return "end of expression"
	}
	return p.text
}

func (p *parser) compare() Expr {
	left := p.additive()
	switch p.tok {
	case '>':
		p.next()
		return Call{Name: OpGreater, Args: []Expr{left, p.additive()}}
	case '<':
		p.next()
		return Call{Name: OpLess, Args: []Expr{left, p.additive()}}
	}
	return left
}

func (p *parser) additive() Expr {
	left := p.term()
	for p.err == nil && (p.tok == '+' || p.tok == '-') {
		name := OpAdd
		if p.tok == '-' {
			name = OpSubtract
		}
		p.next()
		left = Call{Name: name, Args: []Expr{left, p.term()}}
	}
	return left
}

func (p *parser) term() Expr {
	left := p.unary()
	for p.err == nil && (p.tok == '*' || p.tok == '/') {
		name := OpMultiply
		if p.tok == '/' {
			name = OpDivide
		}
		p.next()
		left = Call{Name: name, Args: []Expr{left, p.unary()}}
	}
	return left
}

func (p *parser) unary() Expr {
	if p.tok != '-' {
		return p.postfix()
	}
	p.next()
	operand := p.postfix()
	if leaf, ok := operand.(Leaf); ok {
		switch v := leaf.Value.(type) {
		case ir.Int:
			return Leaf{Value: -v}
		case ir.Float:
			return Leaf{Value: -v}
		}
	}
	return Call{Name: OpSubtract, Args: []Expr{Leaf{Value: ir.Int(0)}, operand}}
}

func (p *parser) postfix() Expr {
	e := p.primary()
	for p.err == nil && p.tok == '.' {
		p.next()
		if p.tok != scanner.Ident {
			p.fail(p.pos, fmt.Sprintf("expected property or function after '.', found %q", p.tokenDesc()))
			return e
		}
		e = Chain{Halos: e, Then: p.identOrCall()}
	}
	return e
}

func (p *parser) primary() Expr {
	switch p.tok {
	case scanner.Int:
		v, err := strconv.ParseInt(p.text, 0, 64)
		if err != nil {
			p.fail(p.pos, fmt.Sprintf("invalid integer %q", p.text))
		}
		p.next()
		return Leaf{Value: ir.Int(v)}
	case scanner.Float:
		v, err := strconv.ParseFloat(p.text, 64)
		if err != nil {
			p.fail(p.pos, fmt.Sprintf("invalid number %q", p.text))
		}
		p.next()
		return Leaf{Value: ir.Float(v)}
	case scanner.String, scanner.RawString:
		s, err := strconv.Unquote(p.text)
		if err != nil {
			p.fail(p.pos, fmt.Sprintf("invalid string %s", p.text))
		}
		p.next()
		return Leaf{Value: ir.String(s)}
	case scanner.Ident:
		return p.identOrCall()
	case '(':
		p.next()
		e := p.compare()
		p.expect(')')
		return e
	default:
		p.fail(p.pos, fmt.Sprintf("unexpected %q", p.tokenDesc()))
		p.next()
		return nil
	}
}

func (p *parser) identOrCall() Expr {
	name := p.text
	p.next()
	if p.tok != '(' {
		if v, ok := keywords[name]; ok {
			return Leaf{Value: v}
		}
		return Property{Name: name}
	}
	p.next()

	args := []Expr{}
	for p.err == nil && p.tok != ')' {
		args = append(args, p.compare())
		if p.tok != ',' {
			break
		}
		p.next()
	}
	p.expect(')')
	return Call{Name: name, Args: args}
}
