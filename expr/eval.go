package expr

import (
	"fmt"
	"math"
	"time"

	"github.com/vegasq/tabq/table"
)

// Expression is a parsed, validated formula ready to be evaluated against
// tables.
type Expression struct {
	source     string
	root       Node
	columns    []string
	aggregates []*AggregateCall
	scalar     bool
}

func newExpression(source string, root Node) *Expression {
	e := &Expression{source: source, root: root, scalar: true}

	seen := make(map[string]bool)
	walk(root, func(n Node) bool {
		switch node := n.(type) {
		case *ColumnRef:
			if !seen[node.Name] {
				seen[node.Name] = true
				e.columns = append(e.columns, node.Name)
			}
		case *AggregateCall:
			e.aggregates = append(e.aggregates, node)
		}
		return true
	})

	// A formula is scalar when no column is read outside an aggregate call.
	walk(root, func(n Node) bool {
		switch n.(type) {
		case *AggregateCall:
			return false
		case *ColumnRef:
			e.scalar = false
		}
		return true
	})

	return e
}

// Source returns the formula text as written
func (e *Expression) Source() string {
	return e.source
}

func (e *Expression) String() string {
	return e.root.String()
}

// Columns returns the referenced column names in first-seen order
func (e *Expression) Columns() []string {
	out := make([]string, len(e.columns))
	copy(out, e.columns)
	return out
}

// IsScalar reports whether the formula yields one value for the whole table,
// i.e. it only reads columns through aggregate calls.
func (e *Expression) IsScalar() bool {
	return e.scalar
}

// Evaluate computes the formula for every row of tbl.
//
// Column references are checked up front, then each aggregate call is
// reduced once over the whole table. Scalar formulas are computed once and
// broadcast. Any failure aborts the evaluation; no partial column is
// returned.
func (e *Expression) Evaluate(tbl *table.Table) ([]interface{}, error) {
	for _, col := range e.columns {
		if !tbl.HasColumn(col) {
			return nil, evalError(ErrUnknownColumn, "%q", col)
		}
	}

	aggregates, err := e.reduceAggregates(tbl)
	if err != nil {
		return nil, err
	}

	values := make([]interface{}, tbl.Len())

	if e.scalar {
		v, err := e.root.eval(&env{aggregates: aggregates})
		if err != nil {
			return nil, err
		}
		for i := range values {
			values[i] = v
		}
		return values, nil
	}

	rowEnv := &env{aggregates: aggregates}
	for i := range values {
		rowEnv.row = tbl.Row(i)
		v, err := e.root.eval(rowEnv)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		values[i] = v
	}
	return values, nil
}

// reduceAggregates evaluates every aggregate call over the table.
func (e *Expression) reduceAggregates(tbl *table.Table) (map[*AggregateCall]interface{}, error) {
	if len(e.aggregates) == 0 {
		return nil, nil
	}

	results := make(map[*AggregateCall]interface{}, len(e.aggregates))
	argEnv := &env{}
	for _, call := range e.aggregates {
		args := make([]interface{}, tbl.Len())
		for i := range args {
			argEnv.row = tbl.Row(i)
			v, err := call.Arg.eval(argEnv)
			if err != nil {
				return nil, fmt.Errorf("%s: row %d: %w", call, i, err)
			}
			args[i] = v
		}

		result, err := table.Reduce(call.Function, args)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrEvaluation, call, err)
		}
		results[call] = result
	}
	return results, nil
}

func (l *Literal) eval(_ *env) (interface{}, error) {
	return l.Value, nil
}

func (c *ColumnRef) eval(env *env) (interface{}, error) {
	if env.row == nil {
		return nil, evalError(ErrUnknownColumn, "%q outside of a row", c.Name)
	}
	v, ok := env.row[c.Name]
	if !ok {
		return nil, evalError(ErrUnknownColumn, "%q", c.Name)
	}
	return v, nil
}

func (a *AggregateCall) eval(env *env) (interface{}, error) {
	v, ok := env.aggregates[a]
	if !ok {
		return nil, fmt.Errorf("%w: aggregate %s was not reduced", ErrEvaluation, a)
	}
	return v, nil
}

func (u *UnaryExpr) eval(env *env) (interface{}, error) {
	v, err := u.Operand.eval(env)
	if err != nil {
		return nil, err
	}

	switch u.Operator {
	case TokenNot:
		return !truthy(v), nil
	case TokenPlus, TokenMinus:
		switch n := v.(type) {
		case nil:
			return nil, nil
		case int64:
			if u.Operator == TokenMinus {
				return -n, nil
			}
			return n, nil
		case float64:
			if u.Operator == TokenMinus {
				return -n, nil
			}
			return n, nil
		default:
			return nil, evalError(ErrTypeMismatch, "%s%s", u.Operator, table.KindOf(v))
		}
	}
	return nil, fmt.Errorf("%w: unsupported unary operator %s", ErrEvaluation, u.Operator)
}

func (b *BinaryExpr) eval(env *env) (interface{}, error) {
	left, err := b.Left.eval(env)
	if err != nil {
		return nil, err
	}

	switch b.Operator {
	case TokenAnd:
		if !truthy(left) {
			return false, nil
		}
		right, err := b.Right.eval(env)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	case TokenOr:
		if truthy(left) {
			return true, nil
		}
		right, err := b.Right.eval(env)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	}

	right, err := b.Right.eval(env)
	if err != nil {
		return nil, err
	}

	switch b.Operator {
	case TokenEqual, TokenNotEqual, TokenLess, TokenGreater, TokenLessEqual, TokenGreaterEqual:
		return compare(b.Operator, left, right)
	default:
		return arithmetic(b.Operator, left, right)
	}
}

// compare applies a comparison operator. nil operands compare false except
// for !=.
func compare(op TokenType, left, right interface{}) (interface{}, error) {
	if left == nil || right == nil {
		return op == TokenNotEqual, nil
	}

	cmp, ok := table.Compare(left, right)
	if !ok {
		switch op {
		case TokenEqual:
			return false, nil
		case TokenNotEqual:
			return true, nil
		default:
			return nil, evalError(ErrTypeMismatch, "%s %s %s", table.KindOf(left), op, table.KindOf(right))
		}
	}

	switch op {
	case TokenEqual:
		return table.Equal(left, right), nil
	case TokenNotEqual:
		return !table.Equal(left, right), nil
	case TokenLess:
		return cmp < 0, nil
	case TokenGreater:
		return cmp > 0, nil
	case TokenLessEqual:
		return cmp <= 0, nil
	default:
		return cmp >= 0, nil
	}
}

// arithmetic applies + - * / **. nil operands and division by zero give nil.
func arithmetic(op TokenType, left, right interface{}) (interface{}, error) {
	if left == nil || right == nil {
		return nil, nil
	}

	if op == TokenPlus {
		if ls, ok := left.(string); ok {
			if rs, ok := right.(string); ok {
				return ls + rs, nil
			}
		}
	}

	lf, lok := table.ToFloat(left)
	rf, rok := table.ToFloat(right)
	if !lok || !rok {
		return nil, evalError(ErrTypeMismatch, "%s %s %s", table.KindOf(left), op, table.KindOf(right))
	}
	li, lInt := left.(int64)
	ri, rInt := right.(int64)
	bothInt := lInt && rInt

	switch op {
	case TokenPlus:
		if bothInt {
			return li + ri, nil
		}
		return lf + rf, nil
	case TokenMinus:
		if bothInt {
			return li - ri, nil
		}
		return lf - rf, nil
	case TokenStar:
		if bothInt {
			return li * ri, nil
		}
		return lf * rf, nil
	case TokenSlash:
		if rf == 0 {
			return nil, nil
		}
		return lf / rf, nil
	case TokenPower:
		result := math.Pow(lf, rf)
		if math.IsNaN(result) || math.IsInf(result, 0) {
			return nil, nil
		}
		return result, nil
	}
	return nil, fmt.Errorf("%w: unsupported operator %s", ErrEvaluation, op)
}

func truthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case int64:
		return val != 0
	case float64:
		return val != 0 && !math.IsNaN(val)
	case string:
		return val != ""
	case time.Time:
		return !val.IsZero()
	default:
		return true
	}
}
