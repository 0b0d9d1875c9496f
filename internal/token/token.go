package token

// Type identifies the lexical class of a token.
type Type string

const (
	ILLEGAL Type = "ILLEGAL"
	EOF     Type = "EOF"

	IDENT  Type = "IDENT"
	INT    Type = "INT"
	FLOAT  Type = "FLOAT"
	STRING Type = "STRING"

	ASSIGN Type = "="
	ARROW  Type = "->"
	RETURN Type = "<-"

	LPAREN   Type = "("
	RPAREN   Type = ")"
	LBRACE   Type = "{"
	RBRACE   Type = "}"
	LBRACKET Type = "["
	RBRACKET Type = "]"
	COMMA    Type = ","
)

// Token is a single lexical unit with its source position.
type Token struct {
	Type   Type
	Lexeme string
	Line   int
	Column int
}
