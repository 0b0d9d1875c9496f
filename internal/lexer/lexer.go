package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lyra-lang/lyra/internal/token"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int  // current line number
	column       int  // current column number
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		l.readPosition++
		l.column++
		return
	}

	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
	l.column++
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	var tok token.Token

	switch l.ch {
	case '(':
		tok = l.newToken(token.LPAREN, "(")
	case ')':
		tok = l.newToken(token.RPAREN, ")")
	case '{':
		tok = l.newToken(token.LBRACE, "{")
	case '}':
		tok = l.newToken(token.RBRACE, "}")
	case '[':
		tok = l.newToken(token.LBRACKET, "[")
	case ']':
		tok = l.newToken(token.RBRACKET, "]")
	case ',':
		tok = l.newToken(token.COMMA, ",")
	case '=':
		tok = l.newToken(token.ASSIGN, "=")
	case '<':
		if l.peekChar() == '-' {
			tok = l.newToken(token.RETURN, "<-")
			l.readChar()
		} else {
			tok = l.newToken(token.ILLEGAL, string(l.ch))
		}
	case '-':
		if l.peekChar() == '>' {
			tok = l.newToken(token.ARROW, "->")
			l.readChar()
		} else if unicode.IsDigit(l.peekChar()) {
			return l.readNumber()
		} else {
			return l.readIdentifier()
		}
	case '"':
		return l.readString()
	case 0:
		tok = token.Token{Type: token.EOF, Line: l.line, Column: l.column}
	default:
		if unicode.IsDigit(l.ch) {
			return l.readNumber()
		}
		if isIdentStart(l.ch) {
			return l.readIdentifier()
		}
		tok = l.newToken(token.ILLEGAL, string(l.ch))
	}

	l.readChar()
	return tok
}

// Tokens returns the whole token stream including the trailing EOF.
func (l *Lexer) Tokens() []token.Token {
	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			return tokens
		}
	}
}

func (l *Lexer) newToken(t token.Type, lexeme string) token.Token {
	return token.Token{Type: t, Lexeme: lexeme, Line: l.line, Column: l.column}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}
		if l.ch == '/' && l.peekChar() == '/' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		return
	}
}

func isIdentStart(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

func isIdentPart(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) ||
		ch == '_' || ch == '!' || ch == '?' || ch == '-'
}

func (l *Lexer) readIdentifier() token.Token {
	line, column := l.line, l.column
	start := l.position
	for isIdentPart(l.ch) {
		// a '-' that begins an arrow terminates the identifier
		if l.ch == '-' && l.peekChar() == '>' {
			break
		}
		l.readChar()
	}
	lexeme := l.input[start:l.position]
	return token.Token{Type: token.IDENT, Lexeme: lexeme, Line: line, Column: column}
}

func (l *Lexer) readNumber() token.Token {
	line, column := l.line, l.column
	start := l.position

	if l.ch == '-' {
		l.readChar()
	}

	// hexadecimal integer: 0x1A
	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar()
		l.readChar()
		for isHexDigit(l.ch) {
			l.readChar()
		}
		return token.Token{Type: token.INT, Lexeme: l.input[start:l.position], Line: line, Column: column}
	}

	for unicode.IsDigit(l.ch) {
		l.readChar()
	}

	isFloat := false
	if l.ch == '.' && unicode.IsDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for unicode.IsDigit(l.ch) {
			l.readChar()
		}
	}

	lexeme := l.input[start:l.position]
	if isFloat {
		return token.Token{Type: token.FLOAT, Lexeme: lexeme, Line: line, Column: column}
	}
	return token.Token{Type: token.INT, Lexeme: lexeme, Line: line, Column: column}
}

func isHexDigit(ch rune) bool {
	return unicode.IsDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func (l *Lexer) readString() token.Token {
	line, column := l.line, l.column
	l.readChar() // consume opening quote

	var sb strings.Builder
	for l.ch != '"' {
		if l.ch == 0 {
			return token.Token{Type: token.ILLEGAL, Lexeme: sb.String(), Line: line, Column: column}
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			default:
				sb.WriteRune(l.ch)
			}
			l.readChar()
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	l.readChar() // consume closing quote

	return token.Token{Type: token.STRING, Lexeme: sb.String(), Line: line, Column: column}
}
