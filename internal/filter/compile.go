package filter

import (
	"regexp"
	"strings"
)

// compiler type-checks an AST against a scheme and lowers it to closures.
type compiler struct {
	expr   string
	scheme *Scheme
	used   map[int]bool
}

func (c *compiler) compile(n node) (evalFunc, error) {
	switch n := n.(type) {
	case *binaryExpr:
		left, err := c.compile(n.left)
		if err != nil {
			return nil, err
		}
		right, err := c.compile(n.right)
		if err != nil {
			return nil, err
		}
		if n.op == tokenAnd {
			return func(ctx *ExecutionContext) bool { return left(ctx) && right(ctx) }, nil
		}
		return func(ctx *ExecutionContext) bool { return left(ctx) || right(ctx) }, nil

	case *notExpr:
		inner, err := c.compile(n.expr)
		if err != nil {
			return nil, err
		}
		return func(ctx *ExecutionContext) bool { return !inner(ctx) }, nil

	case *comparison:
		idx, ok := c.scheme.index[n.field]
		if !ok {
			return nil, c.errorf(n.fieldPos, "unknown field %s", n.field)
		}
		c.used[idx] = true
		if c.scheme.fields[idx].Type == TypeInt {
			return c.compileInt(idx, n)
		}
		return c.compileBytes(idx, n)
	}
	panic("filter: unexpected node type")
}

func (c *compiler) errorf(pos int, format string, args ...any) *CompileError {
	return newCompileError(c.expr, pos, format, args...)
}

func (c *compiler) compileInt(idx int, n *comparison) (evalFunc, error) {
	switch n.op {
	case opMatches, opContains:
		return nil, c.errorf(n.opPos, "operator %s is not defined for Int field %s", n.op, n.field)
	case opIn:
		type span struct{ lo, hi int64 }
		spans := make([]span, 0, len(n.set))
		for _, item := range n.set {
			if item.lit.typ != tokenInt {
				return nil, c.errorf(item.lit.pos, "type mismatch: Int field %s compared with string", n.field)
			}
			spans = append(spans, span{item.lit.i, item.hi})
		}
		return func(ctx *ExecutionContext) bool {
			v := ctx.values[idx].i
			for _, s := range spans {
				if v >= s.lo && v <= s.hi {
					return true
				}
			}
			return false
		}, nil
	}

	if n.value.typ != tokenInt {
		return nil, c.errorf(n.value.pos, "type mismatch: Int field %s compared with string", n.field)
	}
	want := n.value.i
	switch n.op {
	case opEq:
		return func(ctx *ExecutionContext) bool { return ctx.values[idx].i == want }, nil
	case opNe:
		return func(ctx *ExecutionContext) bool { return ctx.values[idx].i != want }, nil
	case opLt:
		return func(ctx *ExecutionContext) bool { return ctx.values[idx].i < want }, nil
	case opLe:
		return func(ctx *ExecutionContext) bool { return ctx.values[idx].i <= want }, nil
	case opGt:
		return func(ctx *ExecutionContext) bool { return ctx.values[idx].i > want }, nil
	default: // opGe
		return func(ctx *ExecutionContext) bool { return ctx.values[idx].i >= want }, nil
	}
}

func (c *compiler) compileBytes(idx int, n *comparison) (evalFunc, error) {
	switch n.op {
	case opLt, opLe, opGt, opGe:
		return nil, c.errorf(n.opPos, "operator %s is not defined for Bytes field %s", n.op, n.field)
	case opIn:
		set := make(map[string]struct{}, len(n.set))
		for _, item := range n.set {
			if item.lit.typ != tokenString {
				return nil, c.errorf(item.lit.pos, "type mismatch: Bytes field %s compared with integer", n.field)
			}
			set[item.lit.s] = struct{}{}
		}
		return func(ctx *ExecutionContext) bool {
			_, ok := set[ctx.values[idx].b]
			return ok
		}, nil
	}

	if n.value.typ != tokenString {
		return nil, c.errorf(n.value.pos, "type mismatch: Bytes field %s compared with integer", n.field)
	}
	want := n.value.s
	switch n.op {
	case opEq:
		return func(ctx *ExecutionContext) bool { return ctx.values[idx].b == want }, nil
	case opNe:
		return func(ctx *ExecutionContext) bool { return ctx.values[idx].b != want }, nil
	case opContains:
		return func(ctx *ExecutionContext) bool { return strings.Contains(ctx.values[idx].b, want) }, nil
	default: // opMatches
		// Compiled once here, never per record.
		re, err := regexp.Compile(want)
		if err != nil {
			return nil, c.errorf(n.value.pos, "invalid regex %q: %v", want, err)
		}
		return func(ctx *ExecutionContext) bool { return re.MatchString(ctx.values[idx].b) }, nil
	}
}
