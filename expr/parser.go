package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vegasq/tabq/table"
)

// Parser builds a formula AST from tokens
type Parser struct {
	tokens       []Token
	pos          int
	depthCounter *ExpressionDepthCounter
	inAggregate  bool
}

// NewParser creates a new parser
func NewParser(tokens []Token) *Parser {
	return &Parser{
		tokens:       tokens,
		depthCounter: NewExpressionDepthCounter(),
	}
}

// current returns the current token
func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

// peek returns the next token without advancing
func (p *Parser) peek() Token {
	if p.pos+1 >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos+1]
}

// advance moves to the next token
func (p *Parser) advance() {
	p.pos++
}

// expect checks if current token matches expected type and advances
func (p *Parser) expect(tokType TokenType) error {
	if p.current().Type != tokType {
		return p.unexpected(fmt.Sprintf("expected %v", tokType))
	}
	p.advance()
	return nil
}

func (p *Parser) unexpected(context string) error {
	tok := p.current()
	if tok.Type == TokenError {
		return fmt.Errorf("%w: invalid input %q at offset %d", ErrEvaluation, tok.Value, tok.Pos)
	}
	if tok.Type == TokenEOF {
		return fmt.Errorf("%w: %s, got end of formula", ErrEvaluation, context)
	}
	return fmt.Errorf("%w: %s, got %q at offset %d", ErrEvaluation, context, tok.Value, tok.Pos)
}

// Parse validates and parses a formula
func Parse(formula string) (*Expression, error) {
	if err := ValidateFormula(formula); err != nil {
		return nil, err
	}
	if strings.TrimSpace(formula) == "" {
		return nil, fmt.Errorf("%w: empty formula", ErrEvaluation)
	}

	tokens := Tokenize(formula)
	if err := ValidateTokens(tokens); err != nil {
		return nil, err
	}

	parser := NewParser(tokens)
	root, err := parser.parseExpr()
	if err != nil {
		return nil, err
	}

	if parser.current().Type != TokenEOF {
		return nil, parser.unexpected("unexpected trailing input")
	}

	return newExpression(formula, root), nil
}

// parseExpr is the entry point for a full (sub)expression
func (p *Parser) parseExpr() (Node, error) {
	if err := p.depthCounter.Enter(); err != nil {
		return nil, err
	}
	defer p.depthCounter.Exit()

	return p.parseOr()
}

// parseOr parses OR expressions (lowest precedence)
func (p *Parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Operator: TokenOr, Right: right}
	}

	return left, nil
}

// parseAnd parses AND expressions (higher precedence than OR)
func (p *Parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Operator: TokenAnd, Right: right}
	}

	return left, nil
}

func (p *Parser) parseNot() (Node, error) {
	if p.current().Type != TokenNot {
		return p.parseComparison()
	}

	if err := p.depthCounter.Enter(); err != nil {
		return nil, err
	}
	defer p.depthCounter.Exit()

	p.advance()
	operand, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	return &UnaryExpr{Operator: TokenNot, Operand: operand}, nil
}

// parseComparison parses a single, non-chained comparison
func (p *Parser) parseComparison() (Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	operator := p.current().Type
	switch operator {
	case TokenEqual, TokenNotEqual, TokenLess, TokenGreater, TokenLessEqual, TokenGreaterEqual:
		p.advance()
	default:
		return left, nil
	}

	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return &BinaryExpr{Left: left, Operator: operator, Right: right}, nil
}

func (p *Parser) parseAdditive() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenPlus || p.current().Type == TokenMinus {
		operator := p.current().Type
		p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Operator: operator, Right: right}
	}

	return left, nil
}

func (p *Parser) parseTerm() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenStar || p.current().Type == TokenSlash {
		operator := p.current().Type
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Operator: operator, Right: right}
	}

	return left, nil
}

func (p *Parser) parseUnary() (Node, error) {
	operator := p.current().Type
	if operator != TokenMinus && operator != TokenPlus {
		return p.parsePower()
	}

	if err := p.depthCounter.Enter(); err != nil {
		return nil, err
	}
	defer p.depthCounter.Exit()

	p.advance()
	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &UnaryExpr{Operator: operator, Operand: operand}, nil
}

// parsePower parses the right-associative ** operator, which binds tighter
// than unary minus on its left: -2 ** 2 is -(2 ** 2).
func (p *Parser) parsePower() (Node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	if p.current().Type != TokenPower {
		return base, nil
	}
	p.advance()

	exponent, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &BinaryExpr{Left: base, Operator: TokenPower, Right: exponent}, nil
}

func (p *Parser) parsePrimary() (Node, error) {
	tok := p.current()

	switch tok.Type {
	case TokenNumber:
		value, err := parseNumber(tok.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid number %q at offset %d", ErrEvaluation, tok.Value, tok.Pos)
		}
		p.advance()
		return &Literal{Value: value}, nil

	case TokenString:
		p.advance()
		return &Literal{Value: tok.Value}, nil

	case TokenBool:
		p.advance()
		return &Literal{Value: strings.EqualFold(tok.Value, "true")}, nil

	case TokenIdent:
		if p.peek().Type == TokenLeftParen {
			return p.parseAggregate()
		}
		if err := ValidateColumnName(tok.Value); err != nil {
			return nil, err
		}
		p.advance()
		return &ColumnRef{Name: tok.Value}, nil

	case TokenLeftParen:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRightParen); err != nil {
			return nil, err
		}
		return inner, nil

	default:
		return nil, p.unexpected("expected a value, column or '('")
	}
}

// parseAggregate parses AGG "(" expr ")". Only the reduction whitelist is
// callable and calls may not nest.
func (p *Parser) parseAggregate() (Node, error) {
	tok := p.current()
	fn, ok := table.CanonicalFunc(tok.Value)
	if !ok {
		return nil, evalError(ErrUnknownFunction, "%q at offset %d", tok.Value, tok.Pos)
	}
	if p.inAggregate {
		return nil, fmt.Errorf("%w: nested aggregate %s at offset %d", ErrEvaluation, strings.ToUpper(tok.Value), tok.Pos)
	}

	p.advance() // function name
	p.advance() // (

	p.inAggregate = true
	arg, err := p.parseExpr()
	p.inAggregate = false
	if err != nil {
		return nil, err
	}

	if err := p.expect(TokenRightParen); err != nil {
		return nil, err
	}
	return &AggregateCall{Function: fn, Arg: arg}, nil
}

// parseNumber parses an int64 when possible, else a float64
func parseNumber(s string) (interface{}, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return f, nil
}
