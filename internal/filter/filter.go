// Package filter compiles boolean filter expressions over a fixed Scheme
// into Predicates.
//
// Expressions look like
//
//	elb_status_code == 200 && user_agent matches "(Android|axios)"
//
// Int fields support == != < <= > >= and in {200 301..308}. Bytes fields
// support == !=, contains, matches (or ~) with an RE2 pattern, and in with
// strings. Terms combine with && || ! (or and, or, not) and parentheses.
package filter

import (
	"errors"
	"fmt"
)

// ErrSchemeMismatch is returned when a Predicate runs against a context
// built for a different Scheme.
var ErrSchemeMismatch = errors.New("filter: execution context belongs to another scheme")

// CompileError describes why an expression could not be compiled.
type CompileError struct {
	Expr string
	Pos  int // byte offset into Expr
	Msg  string
}

func newCompileError(expr string, pos int, format string, args ...any) *CompileError {
	return &CompileError{Expr: expr, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("filter: %s at offset %d in %q", e.Msg, e.Pos, e.Expr)
}

type evalFunc func(c *ExecutionContext) bool

// Predicate is a compiled expression. It holds no mutable state and may be
// executed concurrently against distinct contexts.
type Predicate struct {
	expr   string
	scheme *Scheme
	fields []int // scheme indexes the expression reads
	eval   evalFunc
}

// Compile parses and type-checks expr against scheme.
func Compile(scheme *Scheme, expr string) (*Predicate, error) {
	ast, err := parse(expr)
	if err != nil {
		return nil, err
	}
	c := &compiler{expr: expr, scheme: scheme, used: make(map[int]bool)}
	eval, err := c.compile(ast)
	if err != nil {
		return nil, err
	}
	p := &Predicate{expr: expr, scheme: scheme, eval: eval}
	for i := range scheme.fields {
		if c.used[i] {
			p.fields = append(p.fields, i)
		}
	}
	return p, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(scheme *Scheme, expr string) *Predicate {
	p, err := Compile(scheme, expr)
	if err != nil {
		panic(err)
	}
	return p
}

// Execute evaluates the predicate. It fails only if ctx was built for a
// different scheme or a referenced field was never set.
func (p *Predicate) Execute(ctx *ExecutionContext) (bool, error) {
	if ctx.scheme != p.scheme {
		return false, ErrSchemeMismatch
	}
	for _, i := range p.fields {
		if !ctx.values[i].set {
			return false, fmt.Errorf("filter: field %s is not set", p.scheme.fields[i].Name)
		}
	}
	return p.eval(ctx), nil
}

// String returns the source expression.
func (p *Predicate) String() string {
	return p.expr
}

// Scheme returns the scheme the predicate was compiled against.
func (p *Predicate) Scheme() *Scheme {
	return p.scheme
}
