package filter

// node is the interface implemented by all AST nodes.
type node interface {
	node() // marker method
}

// binaryExpr is a logical && or || of two expressions.
type binaryExpr struct {
	op    tokenType // tokenAnd or tokenOr
	left  node
	right node
}

func (*binaryExpr) node() {}

// notExpr negates its inner expression.
type notExpr struct {
	expr node
}

func (*notExpr) node() {}

type compareOp int

const (
	opEq compareOp = iota
	opNe
	opLt
	opLe
	opGt
	opGe
	opMatches
	opContains
	opIn
)

var opNames = [...]string{
	opEq:       "==",
	opNe:       "!=",
	opLt:       "<",
	opLe:       "<=",
	opGt:       ">",
	opGe:       ">=",
	opMatches:  "matches",
	opContains: "contains",
	opIn:       "in",
}

func (o compareOp) String() string { return opNames[o] }

// literal is an Int or a string constant.
type literal struct {
	typ tokenType // tokenInt or tokenString
	i   int64
	s   string
	pos int
}

// setItem is one member of an in-set. For Int ranges hi >= lo; a plain
// integer has lo == hi.
type setItem struct {
	lit     literal
	hi      int64
	isRange bool
}

// comparison applies op to a field and a literal or set.
type comparison struct {
	field    string
	fieldPos int
	op       compareOp
	opPos    int
	value    literal
	set      []setItem
}

func (*comparison) node() {}
