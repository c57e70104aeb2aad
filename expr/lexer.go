package expr

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer tokenizes formulas
type Lexer struct {
	input  string
	pos    int // offset of the next rune
	offset int // offset of ch
	ch     rune
}

// NewLexer creates a new lexer
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// readChar reads the next character
func (l *Lexer) readChar() {
	l.offset = l.pos
	if l.pos >= len(l.input) {
		l.ch = 0
		return
	}
	r, width := utf8.DecodeRuneInString(l.input[l.pos:])
	l.ch = r
	l.pos += width
}

// peekChar looks at the next character without advancing
func (l *Lexer) peekChar() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// readString reads a quoted string. ok is false when the closing quote is
// missing.
func (l *Lexer) readString(quote rune) (string, bool) {
	var result strings.Builder
	l.readChar() // skip opening quote

	for l.ch != quote {
		if l.ch == 0 && l.pos >= len(l.input) {
			return result.String(), false
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				result.WriteRune('\n')
			case 't':
				result.WriteRune('\t')
			case '\\':
				result.WriteRune('\\')
			case quote:
				result.WriteRune(quote)
			case 0:
				return result.String(), false
			default:
				result.WriteRune('\\')
				result.WriteRune(l.ch)
			}
		} else {
			result.WriteRune(l.ch)
		}
		l.readChar()
	}

	l.readChar() // skip closing quote
	return result.String(), true
}

// readQuotedIdent reads a backtick-quoted column name.
func (l *Lexer) readQuotedIdent() (string, bool) {
	var result strings.Builder
	l.readChar() // skip opening backtick

	for l.ch != '`' {
		if l.ch == 0 && l.pos >= len(l.input) {
			return result.String(), false
		}
		result.WriteRune(l.ch)
		l.readChar()
	}

	l.readChar()
	return result.String(), result.Len() > 0
}

// readNumber reads digits with an optional fraction and exponent. Signs are
// handled by the parser as unary operators.
func (l *Lexer) readNumber() string {
	var result strings.Builder
	for unicode.IsDigit(l.ch) || l.ch == '.' {
		result.WriteRune(l.ch)
		l.readChar()
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if unicode.IsDigit(next) || next == '+' || next == '-' {
			result.WriteRune(l.ch)
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				result.WriteRune(l.ch)
				l.readChar()
			}
			for unicode.IsDigit(l.ch) {
				result.WriteRune(l.ch)
				l.readChar()
			}
		}
	}
	return result.String()
}

func (l *Lexer) readIdentifier() string {
	var result strings.Builder
	for unicode.IsLetter(l.ch) || unicode.IsDigit(l.ch) || l.ch == '_' {
		result.WriteRune(l.ch)
		l.readChar()
	}
	return result.String()
}

// NextToken returns the next token
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	start := l.offset
	var tok Token

	switch l.ch {
	case 0:
		if l.offset >= len(l.input) {
			tok = Token{Type: TokenEOF}
		} else {
			tok = Token{Type: TokenError, Value: "\\x00"}
			l.readChar()
		}
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TokenEqual, Value: "=="}
		} else {
			tok = Token{Type: TokenError, Value: "="}
		}
		l.readChar()
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TokenNotEqual, Value: "!="}
		} else {
			tok = Token{Type: TokenError, Value: "!"}
		}
		l.readChar()
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TokenLessEqual, Value: "<="}
		} else {
			tok = Token{Type: TokenLess, Value: "<"}
		}
		l.readChar()
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TokenGreaterEqual, Value: ">="}
		} else {
			tok = Token{Type: TokenGreater, Value: ">"}
		}
		l.readChar()
	case '+':
		tok = Token{Type: TokenPlus, Value: "+"}
		l.readChar()
	case '-':
		tok = Token{Type: TokenMinus, Value: "-"}
		l.readChar()
	case '*':
		if l.peekChar() == '*' {
			l.readChar()
			tok = Token{Type: TokenPower, Value: "**"}
		} else {
			tok = Token{Type: TokenStar, Value: "*"}
		}
		l.readChar()
	case '/':
		tok = Token{Type: TokenSlash, Value: "/"}
		l.readChar()
	case '(':
		tok = Token{Type: TokenLeftParen, Value: "("}
		l.readChar()
	case ')':
		tok = Token{Type: TokenRightParen, Value: ")"}
		l.readChar()
	case '\'', '"':
		value, ok := l.readString(l.ch)
		if ok {
			tok = Token{Type: TokenString, Value: value}
		} else {
			tok = Token{Type: TokenError, Value: "unterminated string"}
		}
	case '`':
		value, ok := l.readQuotedIdent()
		if ok {
			tok = Token{Type: TokenIdent, Value: value}
		} else {
			tok = Token{Type: TokenError, Value: "unterminated or empty quoted column name"}
		}
	default:
		switch {
		case unicode.IsDigit(l.ch) || (l.ch == '.' && unicode.IsDigit(l.peekChar())):
			tok = Token{Type: TokenNumber, Value: l.readNumber()}
		case unicode.IsLetter(l.ch) || l.ch == '_':
			value := l.readIdentifier()
			tok = Token{Type: identifierType(value), Value: value}
		default:
			tok = Token{Type: TokenError, Value: string(l.ch)}
			l.readChar()
		}
	}

	tok.Pos = start
	return tok
}

// identifierType determines if an identifier is a keyword. Keywords are
// case-insensitive; a column with a keyword name must be backtick-quoted.
func identifierType(ident string) TokenType {
	switch strings.ToLower(ident) {
	case "and":
		return TokenAnd
	case "or":
		return TokenOr
	case "not":
		return TokenNot
	case "true", "false":
		return TokenBool
	}
	return TokenIdent
}

// Tokenize returns all tokens from the input, stopping after EOF or the
// first invalid token.
func Tokenize(input string) []Token {
	lexer := NewLexer(input)
	var tokens []Token

	for {
		tok := lexer.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			break
		}
	}

	return tokens
}
