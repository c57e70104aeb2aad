package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vegasq/tabq/table"
)

// Node is a parsed formula node.
type Node interface {
	// eval computes the node for one row.
	eval(env *env) (interface{}, error)
	String() string
}

// env is the evaluation context of a single row.
type env struct {
	row        table.Row
	aggregates map[*AggregateCall]interface{}
}

// Literal is a number, string or boolean constant.
type Literal struct {
	Value interface{}
}

// ColumnRef references a column of the current row.
type ColumnRef struct {
	Name string
}

// UnaryExpr is a prefix operator: -, + or not.
type UnaryExpr struct {
	Operator TokenType
	Operand  Node
}

// BinaryExpr is an infix operator.
type BinaryExpr struct {
	Left     Node
	Operator TokenType
	Right    Node
}

// AggregateCall reduces its argument over every row of the table.
type AggregateCall struct {
	Function string // canonical reduction name
	Arg      Node
}

func (l *Literal) String() string {
	switch v := l.Value.(type) {
	case string:
		return strconv.Quote(v)
	case nil:
		return "null"
	default:
		return table.FormatValue(v)
	}
}

func (c *ColumnRef) String() string {
	return "`" + c.Name + "`"
}

func (u *UnaryExpr) String() string {
	if u.Operator == TokenNot {
		return fmt.Sprintf("(not %s)", u.Operand)
	}
	return fmt.Sprintf("(%s%s)", u.Operator, u.Operand)
}

func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Operator, b.Right)
}

func (a *AggregateCall) String() string {
	return fmt.Sprintf("%s(%s)", strings.ToUpper(a.Function), a.Arg)
}

// walk visits n and its children depth-first. Returning false from visit
// skips the children of that node.
func walk(n Node, visit func(Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	switch node := n.(type) {
	case *UnaryExpr:
		walk(node.Operand, visit)
	case *BinaryExpr:
		walk(node.Left, visit)
		walk(node.Right, visit)
	case *AggregateCall:
		walk(node.Arg, visit)
	}
}
