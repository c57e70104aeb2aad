// Package expr implements the formula language used by derived columns and
// measures.
//
// The grammar is closed: arithmetic, comparisons, boolean logic, column
// references and a fixed set of aggregate calls. Anything else is rejected
// while parsing, before a single row is evaluated. Formulas are never handed
// to a host interpreter.
//
// Example usage:
//
//	e, err := expr.Parse("SUM(revenue) / SUM(units)")
//	if err != nil {
//	    return err
//	}
//	values, err := e.Evaluate(tbl)
package expr

import "fmt"

// TokenType represents the type of a token
type TokenType int

const (
	// Keywords
	TokenAnd TokenType = iota
	TokenOr
	TokenNot
	TokenBool

	// Operators
	TokenEqual        // ==
	TokenNotEqual     // !=
	TokenLess         // <
	TokenGreater      // >
	TokenLessEqual    // <=
	TokenGreaterEqual // >=
	TokenPlus         // +
	TokenMinus        // -
	TokenStar         // *
	TokenSlash        // /
	TokenPower        // **

	// Literals
	TokenString
	TokenNumber
	TokenIdent

	// Delimiters
	TokenLeftParen  // (
	TokenRightParen // )

	// Special
	TokenEOF
	TokenError
)

var tokenNames = map[TokenType]string{
	TokenAnd:          "and",
	TokenOr:           "or",
	TokenNot:          "not",
	TokenBool:         "boolean",
	TokenEqual:        "==",
	TokenNotEqual:     "!=",
	TokenLess:         "<",
	TokenGreater:      ">",
	TokenLessEqual:    "<=",
	TokenGreaterEqual: ">=",
	TokenPlus:         "+",
	TokenMinus:        "-",
	TokenStar:         "*",
	TokenSlash:        "/",
	TokenPower:        "**",
	TokenString:       "string",
	TokenNumber:       "number",
	TokenIdent:        "identifier",
	TokenLeftParen:    "(",
	TokenRightParen:   ")",
	TokenEOF:          "end of formula",
	TokenError:        "invalid token",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value string
	Pos   int // byte offset in the formula
}
