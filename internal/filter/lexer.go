package filter

import (
	"fmt"
	"strings"
)

// tokenType represents the type of a lexical token.
type tokenType int

const (
	tokenEOF tokenType = iota
	tokenIdent
	tokenInt
	tokenString
	tokenLParen
	tokenRParen
	tokenLBrace
	tokenRBrace
	tokenAnd    // &&
	tokenOr     // ||
	tokenNot    // !
	tokenEq     // ==
	tokenNe     // !=
	tokenLt     // <
	tokenLe     // <=
	tokenGt     // >
	tokenGe     // >=
	tokenTilde  // ~
	tokenDotDot // ..
	tokenIllegal
)

var tokenNames = [...]string{
	tokenEOF:     "end of expression",
	tokenIdent:   "identifier",
	tokenInt:     "integer",
	tokenString:  "string",
	tokenLParen:  "'('",
	tokenRParen:  "')'",
	tokenLBrace:  "'{'",
	tokenRBrace:  "'}'",
	tokenAnd:     "'&&'",
	tokenOr:      "'||'",
	tokenNot:     "'!'",
	tokenEq:      "'=='",
	tokenNe:      "'!='",
	tokenLt:      "'<'",
	tokenLe:      "'<='",
	tokenGt:      "'>'",
	tokenGe:      "'>='",
	tokenTilde:   "'~'",
	tokenDotDot:  "'..'",
	tokenIllegal: "illegal token",
}

func (t tokenType) String() string {
	if int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// token is one lexical token. Pos is the byte offset of its first character.
type token struct {
	typ tokenType
	val string
	pos int
}

func (t token) String() string {
	switch t.typ {
	case tokenIdent, tokenInt:
		return fmt.Sprintf("%q", t.val)
	case tokenString:
		return fmt.Sprintf("string %q", t.val)
	case tokenIllegal:
		return t.val
	default:
		return t.typ.String()
	}
}

// lexer tokenizes filter expressions.
type lexer struct {
	input string
	pos   int
}

func newLexer(input string) *lexer {
	return &lexer{input: input}
}

// next returns the next token. Malformed input yields tokenIllegal with a
// description in val.
func (l *lexer) next() token {
	l.skipWhitespace()
	if l.pos >= len(l.input) {
		return token{typ: tokenEOF, pos: l.pos}
	}

	start := l.pos
	ch := l.input[l.pos]
	two := ""
	if l.pos+1 < len(l.input) {
		two = l.input[l.pos : l.pos+2]
	}

	switch two {
	case "&&":
		l.pos += 2
		return token{typ: tokenAnd, val: two, pos: start}
	case "||":
		l.pos += 2
		return token{typ: tokenOr, val: two, pos: start}
	case "==":
		l.pos += 2
		return token{typ: tokenEq, val: two, pos: start}
	case "!=":
		l.pos += 2
		return token{typ: tokenNe, val: two, pos: start}
	case "<=":
		l.pos += 2
		return token{typ: tokenLe, val: two, pos: start}
	case ">=":
		l.pos += 2
		return token{typ: tokenGe, val: two, pos: start}
	case "..":
		l.pos += 2
		return token{typ: tokenDotDot, val: two, pos: start}
	}

	switch ch {
	case '(':
		l.pos++
		return token{typ: tokenLParen, val: "(", pos: start}
	case ')':
		l.pos++
		return token{typ: tokenRParen, val: ")", pos: start}
	case '{':
		l.pos++
		return token{typ: tokenLBrace, val: "{", pos: start}
	case '}':
		l.pos++
		return token{typ: tokenRBrace, val: "}", pos: start}
	case '!':
		l.pos++
		return token{typ: tokenNot, val: "!", pos: start}
	case '<':
		l.pos++
		return token{typ: tokenLt, val: "<", pos: start}
	case '>':
		l.pos++
		return token{typ: tokenGt, val: ">", pos: start}
	case '~':
		l.pos++
		return token{typ: tokenTilde, val: "~", pos: start}
	case '"':
		return l.readString()
	}

	switch {
	case isDigit(ch):
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
		return token{typ: tokenInt, val: l.input[start:l.pos], pos: start}
	case isIdentStart(ch):
		for l.pos < len(l.input) && isIdentChar(l.input[l.pos]) {
			l.pos++
		}
		return token{typ: tokenIdent, val: l.input[start:l.pos], pos: start}
	}

	l.pos++
	return token{typ: tokenIllegal, val: fmt.Sprintf("unexpected character %q", ch), pos: start}
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.input) && isSpace(l.input[l.pos]) {
		l.pos++
	}
}

// readString reads a double-quoted literal. \" and \\ are unescaped; any
// other backslash sequence is kept verbatim so regex escapes like \d
// survive.
func (l *lexer) readString() token {
	start := l.pos
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch {
		case c == '"':
			l.pos++
			return token{typ: tokenString, val: sb.String(), pos: start}
		case c == '\\' && l.pos+1 < len(l.input):
			n := l.input[l.pos+1]
			if n != '"' && n != '\\' {
				sb.WriteByte(c)
			}
			sb.WriteByte(n)
			l.pos += 2
		default:
			sb.WriteByte(c)
			l.pos++
		}
	}
	return token{typ: tokenIllegal, val: "unterminated string", pos: start}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch) || ch == '.'
}
