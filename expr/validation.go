package expr

import (
	"errors"
	"fmt"
)

// Input limits checked before a formula is parsed or evaluated
const (
	// MaxFormulaLength is the maximum formula length in bytes
	MaxFormulaLength = 4096

	// MaxTokens is the maximum number of tokens in a formula
	MaxTokens = 1000

	// MaxExpressionDepth is the maximum nesting depth for expressions
	MaxExpressionDepth = 100

	// MaxColumnNameLength is the maximum length for a column reference
	MaxColumnNameLength = 256
)

var (
	// ErrEvaluation is the umbrella error for every parse or evaluation
	// failure. All errors returned by this package wrap it.
	ErrEvaluation = errors.New("evaluation error")

	// ErrFormulaTooLong is returned when a formula exceeds MaxFormulaLength
	ErrFormulaTooLong = errors.New("formula too long")

	// ErrTooManyTokens is returned when a formula has too many tokens
	ErrTooManyTokens = errors.New("too many tokens in formula")

	// ErrExpressionTooDeep is returned when nesting exceeds MaxExpressionDepth
	ErrExpressionTooDeep = errors.New("expression nesting too deep")

	// ErrColumnNameTooLong is returned when a column reference is too long
	ErrColumnNameTooLong = errors.New("column name too long")

	// ErrUnknownColumn is returned when a formula references a missing column
	ErrUnknownColumn = errors.New("unknown column")

	// ErrUnknownFunction is returned for calls outside the aggregate whitelist
	ErrUnknownFunction = errors.New("unknown function")

	// ErrTypeMismatch is returned when an operator gets incompatible operands
	ErrTypeMismatch = errors.New("unsupported operand types")
)

// evalError wraps cause under ErrEvaluation.
func evalError(cause error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %w: %s", ErrEvaluation, cause, fmt.Sprintf(format, args...))
}

// ValidateFormula checks the formula length
func ValidateFormula(formula string) error {
	if len(formula) > MaxFormulaLength {
		return evalError(ErrFormulaTooLong, "%d bytes (max %d)", len(formula), MaxFormulaLength)
	}
	return nil
}

// ValidateTokens validates token count
func ValidateTokens(tokens []Token) error {
	if len(tokens) > MaxTokens {
		return evalError(ErrTooManyTokens, "%d tokens (max %d)", len(tokens), MaxTokens)
	}
	return nil
}

// ValidateColumnName validates column reference length
func ValidateColumnName(name string) error {
	if len(name) > MaxColumnNameLength {
		return evalError(ErrColumnNameTooLong, "%d chars (max %d)", len(name), MaxColumnNameLength)
	}
	return nil
}

// ExpressionDepthCounter tracks expression nesting depth
type ExpressionDepthCounter struct {
	depth    int
	maxDepth int
}

// NewExpressionDepthCounter creates a new depth counter
func NewExpressionDepthCounter() *ExpressionDepthCounter {
	return &ExpressionDepthCounter{maxDepth: MaxExpressionDepth}
}

// Enter increments depth and returns error if limit exceeded
func (c *ExpressionDepthCounter) Enter() error {
	c.depth++
	if c.depth > c.maxDepth {
		return evalError(ErrExpressionTooDeep, "%d (max %d)", c.depth, c.maxDepth)
	}
	return nil
}

// Exit decrements depth
func (c *ExpressionDepthCounter) Exit() {
	c.depth--
}
