package filter

import (
	"strconv"
)

var keywords = map[string]bool{
	"and": true, "or": true, "not": true,
	"eq": true, "ne": true, "lt": true, "le": true, "gt": true, "ge": true,
	"matches": true, "contains": true, "in": true,
}

// parser is a recursive-descent parser for filter expressions.
//
//	or      = and { ("||" | "or") and }
//	and     = unary { ("&&" | "and") unary }
//	unary   = ("!" | "not") unary | primary
//	primary = "(" or ")" | field op value
type parser struct {
	input string
	lex   *lexer
	cur   token
}

// parse parses input into an AST.
func parse(input string) (node, error) {
	p := &parser{input: input, lex: newLexer(input)}
	p.advance()
	if p.cur.typ == tokenEOF {
		return nil, p.errorf(p.cur.pos, "empty expression")
	}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	switch p.cur.typ {
	case tokenEOF:
		return n, nil
	case tokenIllegal:
		return nil, p.errorf(p.cur.pos, "%s", p.cur.val)
	default:
		return nil, p.errorf(p.cur.pos, "unexpected %s after expression", p.cur)
	}
}

func (p *parser) advance() {
	p.cur = p.lex.next()
}

// is reports whether the current token is typ or the keyword spelling of it.
func (p *parser) is(typ tokenType, word string) bool {
	return p.cur.typ == typ || p.isWord(word)
}

func (p *parser) isWord(word string) bool {
	return p.cur.typ == tokenIdent && p.cur.val == word
}

func (p *parser) errorf(pos int, format string, args ...any) *CompileError {
	return newCompileError(p.input, pos, format, args...)
}

// parseOr handles || (lowest precedence).
func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.is(tokenOr, "or") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{op: tokenOr, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.is(tokenAnd, "and") {
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{op: tokenAnd, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.is(tokenNot, "not") {
		p.advance()
		expr, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &notExpr{expr: expr}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	switch p.cur.typ {
	case tokenLParen:
		open := p.cur.pos
		p.advance()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur.typ != tokenRParen {
			if p.cur.typ == tokenEOF {
				return nil, p.errorf(open, "unclosed '('")
			}
			return nil, p.errorf(p.cur.pos, "expected ')', got %s", p.cur)
		}
		p.advance()
		return expr, nil

	case tokenIdent:
		if keywords[p.cur.val] {
			return nil, p.errorf(p.cur.pos, "unexpected keyword %q", p.cur.val)
		}
		return p.parseComparison()

	case tokenIllegal:
		return nil, p.errorf(p.cur.pos, "%s", p.cur.val)

	default:
		return nil, p.errorf(p.cur.pos, "expected field name, got %s", p.cur)
	}
}

func (p *parser) parseComparison() (node, error) {
	c := &comparison{field: p.cur.val, fieldPos: p.cur.pos}
	p.advance()
	c.opPos = p.cur.pos

	switch {
	case p.is(tokenEq, "eq"):
		c.op = opEq
	case p.is(tokenNe, "ne"):
		c.op = opNe
	case p.is(tokenLt, "lt"):
		c.op = opLt
	case p.is(tokenLe, "le"):
		c.op = opLe
	case p.is(tokenGt, "gt"):
		c.op = opGt
	case p.is(tokenGe, "ge"):
		c.op = opGe
	case p.is(tokenTilde, "matches"):
		c.op = opMatches
	case p.isWord("contains"):
		c.op = opContains
	case p.isWord("in"):
		c.op = opIn
	case p.cur.typ == tokenIllegal:
		return nil, p.errorf(p.cur.pos, "%s", p.cur.val)
	default:
		return nil, p.errorf(p.cur.pos, "expected operator after %s, got %s", c.field, p.cur)
	}
	p.advance()

	if c.op == opIn {
		set, err := p.parseSet()
		if err != nil {
			return nil, err
		}
		c.set = set
		return c, nil
	}

	lit, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	c.value = lit
	return c, nil
}

func (p *parser) parseLiteral() (literal, error) {
	tok := p.cur
	switch tok.typ {
	case tokenInt:
		v, err := strconv.ParseInt(tok.val, 10, 64)
		if err != nil {
			return literal{}, p.errorf(tok.pos, "integer %s out of range", tok.val)
		}
		p.advance()
		return literal{typ: tokenInt, i: v, pos: tok.pos}, nil
	case tokenString:
		p.advance()
		return literal{typ: tokenString, s: tok.val, pos: tok.pos}, nil
	case tokenIllegal:
		return literal{}, p.errorf(tok.pos, "%s", tok.val)
	default:
		return literal{}, p.errorf(tok.pos, "expected a value, got %s", tok)
	}
}

// parseSet parses "{" item { item } "}" where an item is a literal or an
// integer range lo..hi.
func (p *parser) parseSet() ([]setItem, error) {
	if p.cur.typ != tokenLBrace {
		return nil, p.errorf(p.cur.pos, "expected '{' after in, got %s", p.cur)
	}
	open := p.cur.pos
	p.advance()

	var items []setItem
	for p.cur.typ != tokenRBrace {
		if p.cur.typ == tokenEOF {
			return nil, p.errorf(open, "unclosed '{'")
		}
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		item := setItem{lit: lit, hi: lit.i}
		if p.cur.typ == tokenDotDot {
			if lit.typ != tokenInt {
				return nil, p.errorf(p.cur.pos, "ranges are only allowed between integers")
			}
			p.advance()
			hi, err := p.parseLiteral()
			if err != nil {
				return nil, err
			}
			if hi.typ != tokenInt {
				return nil, p.errorf(hi.pos, "ranges are only allowed between integers")
			}
			if hi.i < lit.i {
				return nil, p.errorf(lit.pos, "empty range %d..%d", lit.i, hi.i)
			}
			item.hi = hi.i
			item.isRange = true
		}
		items = append(items, item)
	}
	p.advance()

	if len(items) == 0 {
		return nil, p.errorf(open, "empty set")
	}
	return items, nil
}
