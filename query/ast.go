// Boolean query AST and parser for the -q flag (§4.G). Precedence
// (low to high): or < and < not < comparisons < string ops < field
// access < parentheses — mirrored directly in the recursive-descent
// parser's call chain below (parseOr -> parseAnd -> parseNot ->
// parseComparison -> parseStringOp -> parsePrimary).
package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tempestlab/hl/record"
)

// EvalContext supplies everything a Query needs to evaluate against one
// record: the resolved level enum and a field resolver that understands
// dotted paths (normally backed by semantic.ValueFor).
type EvalContext struct {
	Level   record.Level
	HasLvl  bool
	Resolve Resolver
}

// Expr is one node of a parsed boolean query.
type Expr interface {
	Eval(ctx EvalContext) bool
}

type orNode struct{ left, right Expr }

func (n orNode) Eval(ctx EvalContext) bool { return n.left.Eval(ctx) || n.right.Eval(ctx) }

type andNode struct{ left, right Expr }

func (n andNode) Eval(ctx EvalContext) bool { return n.left.Eval(ctx) && n.right.Eval(ctx) }

type notNode struct{ inner Expr }

func (n notNode) Eval(ctx EvalContext) bool { return !n.inner.Eval(ctx) }

type existsNode struct{ field string }

func (n existsNode) Eval(ctx EvalContext) bool {
	_, ok := ctx.Resolve(n.field)
	return ok
}

// compareNode implements both ordering comparisons (=, !=, <, <=, >, >=)
// and string operators (~=, !~=, ~~=, !~~=) against a field or the
// predefined `level` identifier.
type compareNode struct {
	field   string
	isLevel bool
	op      string
	operand string // literal RHS
	regex   *regexp.Regexp
}

func (n compareNode) Eval(ctx EvalContext) bool {
	if n.isLevel {
		return n.evalLevel(ctx)
	}
	v, ok := ctx.Resolve(n.field)
	if !ok {
		return false
	}
	s := v.String()
	switch n.op {
	case "=":
		return stringOrNumericEqual(s, n.operand)
	case "!=":
		return !stringOrNumericEqual(s, n.operand)
	case "<", "<=", ">", ">=":
		lf, lerr := strconv.ParseFloat(s, 64)
		rf, rerr := strconv.ParseFloat(n.operand, 64)
		if lerr != nil || rerr != nil {
			return false
		}
		switch n.op {
		case "<":
			return lf < rf
		case "<=":
			return lf <= rf
		case ">":
			return lf > rf
		default:
			return lf >= rf
		}
	case "~=":
		return strings.Contains(s, n.operand)
	case "!~=":
		return !strings.Contains(s, n.operand)
	case "~~=":
		return n.regex.MatchString(s)
	case "!~~=":
		return !n.regex.MatchString(s)
	default:
		return false
	}
}

func (n compareNode) evalLevel(ctx EvalContext) bool {
	want := record.DefaultLevelTable().Lookup(n.operand)
	lvl := record.LevelAbsent
	if ctx.HasLvl {
		lvl = ctx.Level
	}
	switch n.op {
	case "=":
		return lvl == want
	case "!=":
		return lvl != want
	case "<":
		return lvl < want
	case "<=":
		return lvl <= want
	case ">":
		return lvl > want
	case ">=":
		return lvl >= want
	default:
		return false
	}
}

func stringOrNumericEqual(a, b string) bool {
	if a == b {
		return true
	}
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	return errA == nil && errB == nil && fa == fb
}

// Parse compiles a -q query string into an Expr.
func Parse(src string) (Expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("unexpected trailing input at token %d", p.pos)
	}
	return expr, nil
}

// -- lexer --

type tokKind uint8

const (
	tokIdent tokKind = iota
	tokField // .dotted.name
	tokString
	tokNumber
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokKind
	text string
}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case c == ',':
			toks = append(toks, token{tokComma, ","})
			i++
		case c == '"':
			j := i + 1
			for j < len(src) && src[j] != '"' {
				if src[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(src) {
				return nil, fmt.Errorf("unterminated string literal at %d", i)
			}
			toks = append(toks, token{tokString, src[i+1 : j]})
			i = j + 1
		case c == '.':
			j := i + 1
			for j < len(src) && isFieldByte(src[j]) {
				j++
			}
			toks = append(toks, token{tokField, src[i+1 : j]})
			i = j
		case isOpByte(c):
			// Longest-match among the operator set.
			ops := []string{"!~~=", "!~=", "!=", "~~=", "~=", "<=", ">=", "=", "<", ">"}
			matched := ""
			for _, op := range ops {
				if strings.HasPrefix(src[i:], op) && len(op) > len(matched) {
					matched = op
				}
			}
			if matched == "" {
				return nil, fmt.Errorf("unexpected character %q at %d", c, i)
			}
			toks = append(toks, token{tokOp, matched})
			i += len(matched)
		case isDigit(c) || (c == '-' && i+1 < len(src) && isDigit(src[i+1])):
			j := i + 1
			for j < len(src) && (isDigit(src[j]) || src[j] == '.') {
				j++
			}
			toks = append(toks, token{tokNumber, src[i:j]})
			i = j
		case isIdentStart(c):
			j := i + 1
			for j < len(src) && isIdentByte(src[j]) {
				j++
			}
			word := src[i:j]
			toks = append(toks, token{tokIdent, word})
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q at %d", c, i)
		}
	}
	return toks, nil
}

func isDigit(b byte) bool      { return b >= '0' && b <= '9' }
func isIdentStart(b byte) bool { return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }
func isIdentByte(b byte) bool  { return isIdentStart(b) || isDigit(b) || b == '-' || b == '.' }
func isFieldByte(b byte) bool  { return isIdentStart(b) || isDigit(b) || b == '-' || b == '.' }
func isOpByte(b byte) bool {
	switch b {
	case '=', '!', '~', '<', '>':
		return true
	default:
		return false
	}
}

// -- parser --

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokIdent || t.text != "or" {
			return left, nil
		}
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left, right}
	}
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokIdent || t.text != "and" {
			return left, nil
		}
		p.pos++
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = andNode{left, right}
	}
}

func (p *parser) parseNot() (Expr, error) {
	t, ok := p.peek()
	if ok && t.kind == tokIdent && t.text == "not" {
		p.pos++
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return notNode{inner}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parseStringOp()
	if err != nil {
		return nil, err
	}
	t, ok := p.peek()
	if !ok || t.kind != tokOp {
		return left, nil
	}
	switch t.text {
	case "=", "!=", "<", "<=", ">", ">=":
	default:
		return left, nil
	}
	fieldExpr, isField := left.(rawFieldRef)
	if !isField {
		return nil, fmt.Errorf("comparison operator %q must follow a field or level reference", t.text)
	}
	p.pos++
	rhs, err := p.parsePrimaryLiteral()
	if err != nil {
		return nil, err
	}
	return compareNode{field: fieldExpr.name, isLevel: fieldExpr.isLevel, op: t.text, operand: rhs}, nil
}

func (p *parser) parseStringOp() (Expr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	t, ok := p.peek()
	if !ok || t.kind != tokOp {
		return left, nil
	}
	switch t.text {
	case "~=", "!~=", "~~=", "!~~=":
	default:
		return left, nil
	}
	fieldExpr, isField := left.(rawFieldRef)
	if !isField {
		return nil, fmt.Errorf("string operator %q must follow a field reference", t.text)
	}
	p.pos++
	rhs, err := p.parsePrimaryLiteral()
	if err != nil {
		return nil, err
	}
	var re *regexp.Regexp
	if t.text == "~~=" || t.text == "!~~=" {
		re, err = regexp.Compile(rhs)
		if err != nil {
			return nil, fmt.Errorf("compiling regex %q: %w", rhs, err)
		}
	}
	return compareNode{field: fieldExpr.name, isLevel: fieldExpr.isLevel, op: t.text, operand: rhs, regex: re}, nil
}

// rawFieldRef is an intermediate Expr used only during parsing to carry a
// field/level reference up to the comparison/string-op layer; it is
// never evaluated directly (Eval on a bare field reference has no
// defined truthiness in this grammar beyond exists()).
type rawFieldRef struct {
	name    string
	isLevel bool
}

func (r rawFieldRef) Eval(ctx EvalContext) bool {
	_, ok := ctx.Resolve(r.name)
	return ok
}

func (p *parser) parsePrimary() (Expr, error) {
	t, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("unexpected end of query")
	}
	switch t.kind {
	case tokLParen:
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		closing, ok := p.peek()
		if !ok || closing.kind != tokRParen {
			return nil, fmt.Errorf("expected closing parenthesis")
		}
		p.pos++
		return inner, nil
	case tokField:
		p.pos++
		return rawFieldRef{name: t.text}, nil
	case tokString:
		p.pos++
		return rawFieldRef{name: t.text}, nil
	case tokIdent:
		if t.text == "exists" {
			p.pos++
			open, ok := p.peek()
			if !ok || open.kind != tokLParen {
				return nil, fmt.Errorf("expected '(' after exists")
			}
			p.pos++
			field, ok := p.peek()
			if !ok || field.kind != tokField {
				return nil, fmt.Errorf("expected field reference inside exists(...)")
			}
			p.pos++
			closing, ok := p.peek()
			if !ok || closing.kind != tokRParen {
				return nil, fmt.Errorf("expected ')' after exists(.field")
			}
			p.pos++
			return existsNode{field: field.text}, nil
		}
		p.pos++
		if t.text == "level" {
			return rawFieldRef{name: "level", isLevel: true}, nil
		}
		return rawFieldRef{name: t.text}, nil
	default:
		return nil, fmt.Errorf("unexpected token %q", t.text)
	}
}

// parsePrimaryLiteral parses the RHS of a comparison/string operator: a
// quoted string, bare identifier (treated as a string literal), or
// number.
func (p *parser) parsePrimaryLiteral() (string, error) {
	t, ok := p.peek()
	if !ok {
		return "", fmt.Errorf("expected literal, got end of query")
	}
	switch t.kind {
	case tokString, tokNumber, tokIdent:
		p.pos++
		return t.text, nil
	default:
		return "", fmt.Errorf("expected literal, got %q", t.text)
	}
}
